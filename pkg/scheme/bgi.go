package scheme

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/text/encoding/japanese"

	"github.com/shiroemons/go-akaibu/pkg/archive"
	"github.com/shiroemons/go-akaibu/pkg/resource"
)

// BGI (Ethornell) のヘッダ
const (
	BurikoMagic   = "BURIKO ARC20"
	PackFileMagic = "PackFile    "

	bgiHeaderSize = 16
)

// bgiLayout はバージョンごとのエントリ配置です
type bgiLayout struct {
	magic     string
	entrySize int
	nameSize  int
}

var (
	burikoLayout   = bgiLayout{magic: BurikoMagic, entrySize: 0x80, nameSize: 0x60}
	packFileLayout = bgiLayout{magic: PackFileMagic, entrySize: 0x20, nameSize: 0x10}
)

// BGIScheme は BGI の ARC アーカイブを読み込みます。
//
// ヘッダは magic(12) と u32 件数、続いて固定長のエントリ
// {Shift-JIS 名前, u32 オフセット, u32 サイズ} が並びます。
// オフセットはインデックス末尾からの相対位置です。
type BGIScheme struct {
	layout bgiLayout
}

// NewBurikoScheme は BURIKO ARC20 のスキームを返します
func NewBurikoScheme() *BGIScheme {
	return &BGIScheme{layout: burikoLayout}
}

// NewPackFileScheme は旧形式 PackFile のスキームを返します
func NewPackFileScheme() *BGIScheme {
	return &BGIScheme{layout: packFileLayout}
}

// Name は表示名を返します
func (s *BGIScheme) Name() string {
	if s.layout.magic == BurikoMagic {
		return "BGI BURIKO ARC20"
	}
	return "BGI PackFile"
}

// Extract はアーカイブを開きます
func (s *BGIScheme) Extract(path string) (archive.Archive, error) {
	return openWith("open bgi", path, s.Open)
}

// Open はマップ済みのファイルからアーカイブを読み込みます
func (s *BGIScheme) Open(src *archive.Source) (archive.Archive, error) {
	l := s.layout
	if err := checkMagic(src, l.magic); err != nil {
		return nil, err
	}
	hdr, err := src.Slice(0, bgiHeaderSize)
	if err != nil {
		return nil, err
	}
	count := uint64(binary.LittleEndian.Uint32(hdr[12:]))

	indexSize := count * uint64(l.entrySize)
	index, err := src.Slice(bgiHeaderSize, indexSize)
	if err != nil {
		return nil, err
	}
	dataBase := bgiHeaderSize + indexSize

	entries := make([]archive.FileEntry, 0, count)
	for i := 0; i < int(count); i++ {
		raw := index[i*l.entrySize : (i+1)*l.entrySize]
		name, err := decodeName(raw[:l.nameSize], japanese.ShiftJIS)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		e, err := archive.NewFileEntry(name, uint64(binary.LittleEndian.Uint32(raw[l.nameSize+4:])))
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		e.Offset = dataBase + uint64(binary.LittleEndian.Uint32(raw[l.nameSize:]))
		if err := checkRange(src, e); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	base, err := archive.NewBase(src, entries)
	if err != nil {
		return nil, err
	}
	return &plainArchive{Base: base}, nil
}

// ConvertFromBytes は Shift-JIS のスクリプトを変換します。
// DSC / CompressedBG は識別のみで ErrUnimplemented を返します。
func (s *BGIScheme) ConvertFromBytes(pathHint string, data []byte) (resource.Resource, error) {
	return resource.ConvertFromBytes(pathHint, data, japanese.ShiftJIS)
}

// plainArchive は暗号化も圧縮もないアーカイブです
type plainArchive struct {
	*archive.Base
}

// Extract はエントリをそのまま読み出します
func (a *plainArchive) Extract(entry archive.FileEntry) ([]byte, error) {
	e, err := a.Resolve(entry)
	if err != nil {
		return nil, err
	}
	return a.Source().Copy(e.Offset, e.PackedSize)
}
