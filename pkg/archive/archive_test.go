package archive

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBase(t *testing.T) {
	src := NewMemorySource("mem", []byte("hello world"))
	entries := []FileEntry{
		mustEntry(t, `dir\b.txt`, 5),
		mustEntry(t, "a.txt", 6),
	}

	b, err := NewBase(src, entries)
	require.NoError(t, err)

	files := b.Files()
	require.Len(t, files, 2)
	assert.Equal(t, "a.txt", files[0].FullPath)
	assert.Equal(t, "dir/b.txt", files[1].FullPath)

	assert.ElementsMatch(t, files, traverse(t, b.NavigableDir()))

	e, ok := b.Lookup(`dir\b.txt`)
	require.True(t, ok)
	assert.Equal(t, "b.txt", e.FileName)

	_, err = b.Resolve(FileEntry{FullPath: "nothing"})
	require.ErrorIs(t, err, ErrEntryNotFound)

	require.NoError(t, b.Close())
}

// traverse は MoveDir/BackDir だけでツリー全体を辿り、見つけたファイルを返します
func traverse(t *testing.T, nav *NavigableDirectory) []FileEntry {
	t.Helper()
	files := append([]FileEntry(nil), nav.Current().Files...)
	for _, name := range nav.Current().SortedNames() {
		_, err := nav.MoveDir(name)
		require.NoError(t, err)
		files = append(files, traverse(t, nav)...)
		nav.BackDir()
	}
	return files
}

func TestBase_NavigableDir(t *testing.T) {
	b, err := NewBase(NewMemorySource("mem", nil), []FileEntry{
		mustEntry(t, "a/b/c.txt", 1),
		mustEntry(t, "a/d.txt", 1),
		mustEntry(t, "e.txt", 1),
	})
	require.NoError(t, err)

	nav := b.NavigableDir()
	_, err = nav.MoveDir("a")
	require.NoError(t, err)

	// 同じカーソルが返り、位置が保持される
	again := b.NavigableDir()
	assert.Same(t, nav, again)
	assert.Equal(t, "/a", again.Path())

	again.Reset()
	assert.ElementsMatch(t, b.Files(), traverse(t, again))
	assert.False(t, again.HasParent())
}

func TestNewBase_Duplicate(t *testing.T) {
	_, err := NewBase(NewMemorySource("mem", nil), []FileEntry{
		mustEntry(t, "a.txt", 1),
		mustEntry(t, "./a.txt", 1),
	})
	require.ErrorIs(t, err, ErrMalformedIndex)
}

func TestSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3, 4, 5}, 0o600))

	src, err := OpenSource(path)
	require.NoError(t, err)
	defer src.Close() //nolint:errcheck

	assert.Equal(t, uint64(5), src.Size())

	b, err := src.Slice(1, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 3, 4}, b)

	c, err := src.Copy(0, 5)
	require.NoError(t, err)
	c[0] = 0xFF
	b, err = src.Slice(0, 1)
	require.NoError(t, err)
	assert.Equal(t, byte(1), b[0])

	_, err = src.Slice(4, 2)
	require.ErrorIs(t, err, ErrMalformedIndex)
	_, err = src.Slice(^uint64(0), 2)
	require.ErrorIs(t, err, ErrMalformedIndex)
}

func TestOpenSource_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	src, err := OpenSource(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), src.Size())
	require.NoError(t, src.Close())
}

func TestOpenSource_NotExist(t *testing.T) {
	_, err := OpenSource(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.Equal(t, "IO", KindOf(err))
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "判別不能", err: NewUnrecognizedFormatError("x", []byte{0, 1}), want: "UnrecognizedFormat"},
		{name: "インデックス", err: NewArchiveError("open", "x", ErrMalformedIndex), want: "MalformedIndex"},
		{name: "デコード", err: ErrDecodeFailure, want: "DecodeFailure"},
		{name: "エントリなし", err: ErrEntryNotFound, want: "EntryNotFound"},
		{name: "未実装", err: ErrUnimplemented, want: "Unimplemented"},
		{name: "その他", err: errors.New("x"), want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestUnrecognizedFormatError(t *testing.T) {
	magic := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	err := NewUnrecognizedFormatError("foo.bin", magic)
	magic[0] = 0

	var ue *UnrecognizedFormatError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, ue.Magic)
	assert.Equal(t, "foo.bin", ue.Path)
	assert.Contains(t, err.Error(), "de ad be ef")
}
