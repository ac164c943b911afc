package fileutil

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiroemons/go-akaibu/pkg/resource"
)

func TestSafeJoin(t *testing.T) {
	root := filepath.Join("out", "ext")

	tests := []struct {
		name    string
		rel     string
		want    string
		wantErr bool
	}{
		{name: "通常のパス", rel: "a/b.txt", want: filepath.Join(root, "a", "b.txt")},
		{name: "バックスラッシュ", rel: `bg\01.png`, want: filepath.Join(root, "bg", "01.png")},
		{name: "先頭のスラッシュ", rel: "/etc/passwd", want: filepath.Join(root, "etc", "passwd")},
		{name: "親ディレクトリ参照", rel: "../../etc/passwd", wantErr: true},
		{name: "途中の親ディレクトリ参照", rel: "a/../../b", wantErr: true},
		{name: "空", rel: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SafeJoin(root, tt.rel)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnsafePath)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConvertedName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		typ  resource.Type
		want string
	}{
		{name: "画像", in: "bg/title.tlg", typ: resource.TypeImage, want: "bg/title.png"},
		{name: "拡張子なしの画像", in: "bg01", typ: resource.TypeImage, want: "bg01.png"},
		{name: "テキスト", in: "scenario.ks", typ: resource.TypeText, want: "scenario.txt"},
		{name: "既に txt", in: "readme.TXT", typ: resource.TypeText, want: "readme.TXT"},
		{name: "その他", in: "se.ogg", typ: resource.TypeOther, want: "se.ogg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConvertedName(tt.in, tt.typ))
		})
	}
}

func TestEncodeResource(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	data, err := EncodeResource(resource.Image(img))
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(data[:4]))

	data, err = EncodeResource(resource.Text("台詞"))
	require.NoError(t, err)
	assert.Equal(t, "台詞", string(data))

	_, err = EncodeResource(resource.Other())
	require.Error(t, err)
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a", "b", "c.bin")

	require.NoError(t, WriteFile(NewOSFileSystem(), p, []byte("data")))
	got, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "data", string(got))
}

func TestOSFileSystem_ReadHeader(t *testing.T) {
	dir := t.TempDir()
	fs := NewOSFileSystem()

	short := filepath.Join(dir, "short")
	require.NoError(t, os.WriteFile(short, []byte("pf8"), 0o600))
	got, err := fs.ReadHeader(short, 32)
	require.NoError(t, err)
	assert.Equal(t, []byte("pf8"), got)

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	got, err = fs.ReadHeader(empty, 32)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = fs.ReadHeader(filepath.Join(dir, "missing"), 32)
	require.Error(t, err)
	assert.False(t, fs.FileExists(filepath.Join(dir, "missing")))
	assert.True(t, fs.FileExists(short))
}
