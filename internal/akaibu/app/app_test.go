package app

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiroemons/go-akaibu/internal/akaibu/config"
	"github.com/shiroemons/go-akaibu/internal/akaibu/extract"
	"github.com/shiroemons/go-akaibu/internal/akaibu/mocks"
	"github.com/shiroemons/go-akaibu/internal/akaibu/prompt"
	"github.com/shiroemons/go-akaibu/pkg/archive"
	"github.com/shiroemons/go-akaibu/pkg/magic"
	"github.com/shiroemons/go-akaibu/pkg/scheme"
	"github.com/shiroemons/go-akaibu/pkg/tlg/tlgtest"
)

var pfFiles = []testFile{
	{name: "script/first.txt", data: []byte("@start")},
	{name: `image\bg\title.bin`, data: []byte{1, 2, 3, 4}},
}

func TestApp_ExtractUniversal(t *testing.T) {
	in := writeTemp(t, t.TempDir(), "data.pfs", buildPF6(pfFiles))
	cfg := &config.Config{Inputs: []string{in}}
	selector := &mocks.MockSelector{}
	a, _, _ := newTestApp(t, cfg, selector)

	require.NoError(t, a.Run(context.Background()))

	// 汎用形式では選択を求めない
	assert.Equal(t, 0, selector.Calls)
	assert.Equal(t, "@start", string(readOutput(t, cfg, "script/first.txt")))
	assert.Equal(t, []byte{1, 2, 3, 4}, readOutput(t, cfg, "image/bg/title.bin"))
}

func TestApp_ExtractGameDependent(t *testing.T) {
	in := writeTemp(t, t.TempDir(), "data.acv", buildACV1([]acv1File{
		{hash: 0x1111, data: []byte("plain"), size: 5},
	}))
	cfg := &config.Config{Inputs: []string{in}}
	selector := &mocks.MockSelector{Index: 1}
	a, _, _ := newTestApp(t, cfg, selector)

	require.NoError(t, a.Run(context.Background()))

	require.Equal(t, 1, selector.Calls)
	want := make([]string, len(scheme.ACV1Games))
	for i, g := range scheme.ACV1Games {
		want[i] = g.Title
	}
	assert.Equal(t, want, selector.Candidates)
	assert.Equal(t, "plain", string(readOutput(t, cfg, "0000000000001111.bin")))
}

func TestApp_SelectorError(t *testing.T) {
	in := writeTemp(t, t.TempDir(), "data.acv", buildACV1(nil))

	tests := []struct {
		name     string
		selector *mocks.MockSelector
		wantErr  error
	}{
		{name: "端末でない", selector: &mocks.MockSelector{Error: prompt.ErrNotInteractive}, wantErr: prompt.ErrNotInteractive},
		{name: "範囲外", selector: &mocks.MockSelector{Index: 5}, wantErr: prompt.ErrInvalidSelection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _, _ := newTestApp(t, &config.Config{Inputs: []string{in}}, tt.selector)
			err := a.Run(context.Background())
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestApp_Unrecognized(t *testing.T) {
	header := []byte("NOT AN ARCHIVE AT ALL, JUST BYTES!")
	in := writeTemp(t, t.TempDir(), "unknown.bin", header)

	t.Run("オプションなし", func(t *testing.T) {
		a, _, _ := newTestApp(t, &config.Config{Inputs: []string{in}}, &mocks.MockSelector{})
		err := a.Run(context.Background())

		var uerr *archive.UnrecognizedFormatError
		require.True(t, errors.As(err, &uerr))
		assert.Equal(t, in, uerr.Path)
		assert.Equal(t, header[:magic.HeaderSize], uerr.Magic)
		assert.Equal(t, "UnrecognizedFormat", archive.KindOf(err))
	})

	t.Run("--convert でもリソースでなければエラー", func(t *testing.T) {
		a, _, _ := newTestApp(t, &config.Config{Inputs: []string{in}, Convert: true}, &mocks.MockSelector{})
		err := a.Run(context.Background())
		require.ErrorIs(t, err, archive.ErrUnrecognizedFormat)
	})

	t.Run("--manual では全スキームから選ぶ", func(t *testing.T) {
		selector := &mocks.MockSelector{Index: 0}
		a, _, _ := newTestApp(t, &config.Config{Inputs: []string{in}, Manual: true}, selector)
		err := a.Run(context.Background())

		// 選んだスキームのシグネチャとも一致しない
		require.ErrorIs(t, err, archive.ErrUnrecognizedFormat)
		assert.Len(t, selector.Candidates, len(magic.AllSchemes()))
	})
}

func TestApp_MissingFile(t *testing.T) {
	a, _, _ := newTestApp(t, &config.Config{Inputs: []string{filepath.Join(t.TempDir(), "missing.pfs")}}, &mocks.MockSelector{})
	err := a.Run(context.Background())
	require.ErrorIs(t, err, fs.ErrNotExist)
	assert.Equal(t, "IO", archive.KindOf(err))
}

func TestApp_ConvertResource(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 40), G: uint8(y * 90), B: 7, A: 0xff})
		}
	}
	in := writeTemp(t, t.TempDir(), "title.tlg", tlgtest.EncodeTLG5(img, tlgtest.Options{}))
	cfg := &config.Config{Inputs: []string{in}, Convert: true}
	a, _, _ := newTestApp(t, cfg, &mocks.MockSelector{})

	require.NoError(t, a.Run(context.Background()))

	got, err := png.Decode(bytes.NewReader(readOutput(t, cfg, "title.png")))
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), got.Bounds())
	r, g, b, _ := got.At(2, 1).RGBA()
	assert.Equal(t, []uint32{80, 90, 7}, []uint32{r >> 8, g >> 8, b >> 8})
}

func TestApp_ConvertArchive(t *testing.T) {
	in := writeTemp(t, t.TempDir(), "data.pfs", buildPF6(pfFiles))
	cfg := &config.Config{Inputs: []string{in}, Convert: true}
	a, _, _ := newTestApp(t, cfg, &mocks.MockSelector{})

	require.NoError(t, a.Run(context.Background()))

	assert.Equal(t, "@start", string(readOutput(t, cfg, "script/first.txt")))
	// 変換できないものはそのまま
	assert.Equal(t, []byte{1, 2, 3, 4}, readOutput(t, cfg, "image/bg/title.bin"))
}

func TestApp_KeepGoing(t *testing.T) {
	files := []acv1File{
		{hash: 0x01, flags: scheme.ACV1FlagCompressed, data: []byte("not zlib"), size: 32},
		{hash: 0x02, data: []byte("ok"), size: 2},
	}
	in := writeTemp(t, t.TempDir(), "data.acv", buildACV1(files))

	t.Run("既定では最初の失敗で止まる", func(t *testing.T) {
		cfg := &config.Config{Inputs: []string{in}}
		a, _, _ := newTestApp(t, cfg, &mocks.MockSelector{})
		a.config.Workers = 1

		err := a.Run(context.Background())
		require.ErrorIs(t, err, archive.ErrDecodeFailure)
		assert.False(t, extract.IsPartial(err))
		_, statErr := os.Stat(filepath.Join(cfg.OutputDir, "0000000000000002.bin"))
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("--keep-going では残りを展開する", func(t *testing.T) {
		cfg := &config.Config{Inputs: []string{in}, KeepGoing: true}
		a, _, _ := newTestApp(t, cfg, &mocks.MockSelector{})

		err := a.Run(context.Background())
		require.ErrorIs(t, err, archive.ErrDecodeFailure)
		assert.True(t, extract.IsPartial(err))
		assert.Equal(t, "ok", string(readOutput(t, cfg, "0000000000000002.bin")))
	})
}

func TestApp_MultipleInputs(t *testing.T) {
	dir := t.TempDir()
	bad := writeTemp(t, dir, "bad.bin", []byte("????"))
	good := writeTemp(t, dir, "data.pfs", buildPF6(pfFiles))
	cfg := &config.Config{Inputs: []string{bad, good}}
	a, _, _ := newTestApp(t, cfg, &mocks.MockSelector{})

	err := a.Run(context.Background())
	require.ErrorIs(t, err, archive.ErrUnrecognizedFormat)
	// 失敗したファイルの後も続ける
	assert.Equal(t, "@start", string(readOutput(t, cfg, "script/first.txt")))
}

func TestApp_List(t *testing.T) {
	in := writeTemp(t, t.TempDir(), "data.pfs", buildPF6(pfFiles))
	a, out, _ := newTestApp(t, &config.Config{Command: config.CommandList, Inputs: []string{in}}, &mocks.MockSelector{})

	require.NoError(t, a.Run(context.Background()))
	assert.Contains(t, out.String(), "script/first.txt")
	assert.Contains(t, out.String(), "image/bg/title.bin")
	assert.Contains(t, out.String(), "2 個のファイル (10B)")
}

func TestApp_Browse(t *testing.T) {
	in := writeTemp(t, t.TempDir(), "data.pfs", buildPF6(pfFiles))
	cfg := &config.Config{Command: config.CommandBrowse, Inputs: []string{in}}
	a, out, _ := newTestApp(t, cfg, &mocks.MockSelector{})
	a.stdin = bytes.NewReader([]byte("cd script\nget first.txt\nquit\n"))

	require.NoError(t, a.Run(context.Background()))
	assert.Contains(t, out.String(), "script/first.txt を書き出しました")
	assert.Equal(t, "@start", string(readOutput(t, cfg, "script/first.txt")))
}

func TestApp_SharedStdin(t *testing.T) {
	in := writeTemp(t, t.TempDir(), "data.acv", buildACV1([]acv1File{
		{hash: 0x1111, data: []byte("plain"), size: 5},
	}))
	cfg := &config.Config{Command: config.CommandBrowse, Inputs: []string{in}, OutputDir: t.TempDir(), SchemeIndex: -1, Workers: 1, NoProgress: true}
	var out bytes.Buffer
	// 番号の入力とシェルのコマンドを同じ入力から読む
	a := NewWithOptions(cfg, Options{
		Stdin:       bytes.NewReader([]byte("1\nget 0000000000001111.bin\nquit")),
		Stdout:      &out,
		Stderr:      &out,
		Interactive: true,
	})

	require.NoError(t, a.Run(context.Background()))
	assert.Contains(t, out.String(), scheme.ACV1Games[1].Title)
	assert.Contains(t, out.String(), "0000000000001111.bin を書き出しました")
	assert.NotContains(t, out.String(), "無効な入力です")
	assert.Equal(t, "plain", string(readOutput(t, cfg, "0000000000001111.bin")))
}

func TestApp_Schemes(t *testing.T) {
	a, out, _ := newTestApp(t, &config.Config{Command: config.CommandSchemes}, &mocks.MockSelector{})

	require.NoError(t, a.Run(context.Background()))
	assert.Contains(t, out.String(), "PF8 (汎用)")
	assert.Contains(t, out.String(), "ACV1 (タイトル選択)")
	for _, g := range scheme.CPZ7Games {
		assert.Contains(t, out.String(), g.Title)
	}
}

func TestApp_Cancelled(t *testing.T) {
	in := writeTemp(t, t.TempDir(), "data.pfs", buildPF6(pfFiles))
	a, _, _ := newTestApp(t, &config.Config{Inputs: []string{in}}, &mocks.MockSelector{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := a.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestApp_DebugLog(t *testing.T) {
	in := writeTemp(t, t.TempDir(), "data.pfs", buildPF6(pfFiles))
	a, _, logs := newTestApp(t, &config.Config{Inputs: []string{in}}, &mocks.MockSelector{})

	require.NoError(t, a.Run(context.Background()))
	entries := logs.FilterMessage("スキームを選択しました").All()
	require.Len(t, entries, 1)
	assert.Equal(t, scheme.NewPF6Scheme().Name(), entries[0].ContextMap()["scheme"])
}
