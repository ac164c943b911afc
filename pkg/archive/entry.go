package archive

import (
	"fmt"
	"strings"
)

// FileEntry はアーカイブ内の1ファイルを表します。
// Offset, PackedSize, Key, Flags はスキームごとの位置情報で、意味はスキームが決めます。
type FileEntry struct {
	FileName   string // 最後のパス要素
	FullPath   string // '/' 区切りの正規化済みパス
	FileSize   uint64 // 展開後のサイズ
	Offset     uint64
	PackedSize uint64
	Key        uint64
	Flags      uint32
}

// NewFileEntry は raw を正規化して FileEntry を作成します
func NewFileEntry(raw string, size uint64) (FileEntry, error) {
	p, err := CleanPath(raw)
	if err != nil {
		return FileEntry{}, err
	}
	return FileEntry{
		FileName:   p[strings.LastIndexByte(p, '/')+1:],
		FullPath:   p,
		FileSize:   size,
		PackedSize: size,
	}, nil
}

// CleanPath はアーカイブ内のパスを '/' 区切りに正規化します。
// 空要素と "." は取り除き、".." を含むパスや空のパスはエラーにします。
func CleanPath(raw string) (string, error) {
	segs := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '/' || r == '\\'
	})

	out := segs[:0]
	for _, s := range segs {
		switch s {
		case ".":
			continue
		case "..":
			return "", fmt.Errorf("%w: path %q escapes archive root", ErrMalformedIndex, raw)
		}
		out = append(out, s)
	}

	if len(out) == 0 {
		return "", fmt.Errorf("%w: empty path %q", ErrMalformedIndex, raw)
	}
	return strings.Join(out, "/"), nil
}
