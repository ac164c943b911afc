package scheme

import (
	"encoding/binary"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/unicode"

	"github.com/shiroemons/go-akaibu/pkg/archive"
	"github.com/shiroemons/go-akaibu/pkg/resource"
)

// GXP のヘッダ
const (
	GXPMagic = "GXP\x00"

	gxpHeaderSize     = 0x30
	gxpEntryFixedSize = 0x20
)

var gxpKey = [24]byte{
	0x40, 0x21, 0x28, 0x38, 0xA6, 0x6E, 0x43, 0xA5,
	0x40, 0x21, 0x28, 0x38, 0xA6, 0x43, 0xA5, 0x64,
	0x3E, 0x65, 0x24, 0x20, 0x46, 0x6E, 0x74, 0x67,
}

// gxpCrypt は先頭からの位置 i に応じて i ^ gxpKey[i%24] と XOR します。暗号化と復号は同じ操作です。
func gxpCrypt(data []byte) {
	for i := range data {
		data[i] ^= byte(i) ^ gxpKey[i%len(gxpKey)]
	}
}

// GXPScheme は GXP アーカイブを読み込みます。
//
// 件数は 0x18、インデックスサイズは 0x1C、データ領域の開始位置は 0x20 (u64) にあり、
// インデックスは 0x30 から始まります。各エントリとデータはそれぞれ先頭から gxpCrypt で暗号化されています。
type GXPScheme struct{}

// NewGXPScheme は GXP のスキームを返します
func NewGXPScheme() *GXPScheme {
	return &GXPScheme{}
}

// Name は表示名を返します
func (s *GXPScheme) Name() string {
	return "GXP"
}

// Extract はアーカイブを開きます
func (s *GXPScheme) Extract(path string) (archive.Archive, error) {
	return openWith("open gxp", path, s.Open)
}

// Open はマップ済みのファイルからアーカイブを読み込みます
func (s *GXPScheme) Open(src *archive.Source) (archive.Archive, error) {
	if err := checkMagic(src, GXPMagic); err != nil {
		return nil, err
	}
	hdr, err := src.Slice(0, gxpHeaderSize)
	if err != nil {
		return nil, err
	}
	count := binary.LittleEndian.Uint32(hdr[0x18:])
	indexSize := uint64(binary.LittleEndian.Uint32(hdr[0x1C:]))
	dataOffset := binary.LittleEndian.Uint64(hdr[0x20:])

	if _, err := src.Slice(gxpHeaderSize, indexSize); err != nil {
		return nil, err
	}
	indexEnd := gxpHeaderSize + indexSize

	entries := make([]archive.FileEntry, 0, capacity(count, int(indexSize), gxpEntryFixedSize))
	pos := uint64(gxpHeaderSize)
	for i := uint32(0); i < count; i++ {
		e, size, err := readGXPEntry(src, pos, indexEnd)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		e.Offset += dataOffset
		if err := checkRange(src, e); err != nil {
			return nil, err
		}
		entries = append(entries, e)
		pos += size
	}

	base, err := archive.NewBase(src, entries)
	if err != nil {
		return nil, err
	}
	return &gxpArchive{Base: base}, nil
}

// readGXPEntry は pos のエントリを復号して読み、エントリ長とともに返します
func readGXPEntry(src *archive.Source, pos, indexEnd uint64) (archive.FileEntry, uint64, error) {
	if pos+4 > indexEnd {
		return archive.FileEntry{}, 0, fmt.Errorf("%w: entry at %d past index end", archive.ErrMalformedIndex, pos)
	}
	head, err := src.Copy(pos, 4)
	if err != nil {
		return archive.FileEntry{}, 0, err
	}
	gxpCrypt(head)
	size := uint64(binary.LittleEndian.Uint32(head))
	if size < gxpEntryFixedSize || size > indexEnd-pos {
		return archive.FileEntry{}, 0, fmt.Errorf("%w: bad entry size %d at %d", archive.ErrMalformedIndex, size, pos)
	}

	raw, err := src.Copy(pos, size)
	if err != nil {
		return archive.FileEntry{}, 0, err
	}
	gxpCrypt(raw)

	fileSize := uint64(binary.LittleEndian.Uint32(raw[0x04:]))
	nameLen := uint64(binary.LittleEndian.Uint32(raw[0x0C:]))
	offset := binary.LittleEndian.Uint64(raw[0x18:])
	if nameLen*2 > size-gxpEntryFixedSize {
		return archive.FileEntry{}, 0, fmt.Errorf("%w: name length %d exceeds entry size %d", archive.ErrMalformedIndex, nameLen, size)
	}

	dec := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	name, err := dec.Bytes(raw[gxpEntryFixedSize : gxpEntryFixedSize+nameLen*2])
	if err != nil {
		return archive.FileEntry{}, 0, fmt.Errorf("%w: %w", archive.ErrMalformedIndex, err)
	}

	e, err := archive.NewFileEntry(strings.TrimRight(string(name), "\x00"), fileSize)
	if err != nil {
		return archive.FileEntry{}, 0, err
	}
	e.Offset = offset
	return e, size, nil
}

// ConvertFromBytes は画像とテキストを変換します
func (s *GXPScheme) ConvertFromBytes(pathHint string, data []byte) (resource.Resource, error) {
	return resource.ConvertFromBytes(pathHint, data, nil)
}

type gxpArchive struct {
	*archive.Base
}

// Extract はエントリを読み出して復号します
func (a *gxpArchive) Extract(entry archive.FileEntry) ([]byte, error) {
	e, err := a.Resolve(entry)
	if err != nil {
		return nil, err
	}
	data, err := a.Source().Copy(e.Offset, e.PackedSize)
	if err != nil {
		return nil, err
	}
	gxpCrypt(data)
	return data, nil
}
