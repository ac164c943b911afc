package archive

import (
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
)

// Source は読み取り専用でメモリマップしたアーカイブファイルです。
// 読み出しは範囲チェック付きのスライスのみで、複数の goroutine から同時に使えます。
type Source struct {
	path   string
	data   mmap.MMap
	mapped bool
}

// OpenSource はファイルを読み取り専用でマップします
func OpenSource(path string) (*Source, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, NewArchiveError("open", path, err)
	}
	defer f.Close() //nolint:errcheck

	st, err := f.Stat()
	if err != nil {
		return nil, NewArchiveError("stat", path, err)
	}

	// 空ファイルはマップできない
	if st.Size() == 0 {
		return &Source{path: path}, nil
	}

	mm, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, NewArchiveError("mmap", path, err)
	}

	return &Source{path: path, data: mm, mapped: true}, nil
}

// NewMemorySource はメモリ上のデータを Source として扱います
func NewMemorySource(path string, data []byte) *Source {
	return &Source{path: path, data: data}
}

// Path はファイルパスを返します
func (s *Source) Path() string {
	return s.path
}

// Size はファイルサイズを返します
func (s *Source) Size() uint64 {
	return uint64(len(s.data))
}

// Slice は [off, off+n) の読み取り専用ビューを返します。書き換えてはいけません。
func (s *Source) Slice(off, n uint64) ([]byte, error) {
	size := s.Size()
	if off > size || n > size-off {
		return nil, fmt.Errorf("%w: range %d+%d exceeds file size %d", ErrMalformedIndex, off, n, size)
	}
	return s.data[off : off+n : off+n], nil
}

// Copy は [off, off+n) をコピーして返します。復号などで書き換える場合に使います。
func (s *Source) Copy(off, n uint64) ([]byte, error) {
	b, err := s.Slice(off, n)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}

// Close はマップを解除します
func (s *Source) Close() error {
	if s.data == nil {
		return nil
	}
	mm := s.data
	s.data = nil
	if !s.mapped {
		return nil
	}
	if err := mm.Unmap(); err != nil {
		return NewArchiveError("unmap", s.path, err)
	}
	return nil
}
