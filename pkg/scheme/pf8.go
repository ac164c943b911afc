package scheme

import (
	"crypto/sha1" //nolint:gosec
	"encoding/binary"
	"fmt"

	"github.com/shiroemons/go-akaibu/pkg/archive"
	"github.com/shiroemons/go-akaibu/pkg/crypto"
	"github.com/shiroemons/go-akaibu/pkg/resource"
)

// PF8/PF6 のヘッダ
const (
	PF8Magic = "pf8"
	PF6Magic = "pf6"

	pfHeaderSize = 7
	pfMinEntry   = 16
)

// PFScheme は Artemis エンジンの PF8 / PF6 アーカイブを読み込みます。
//
// ヘッダは magic(3) と u32 インデックスサイズ、インデックスは u32 件数と
// {u32 名前長, 名前, u32 0, u32 オフセット, u32 サイズ} の並びです。
// PF8 はインデックスの SHA-1 を鍵としてデータを XOR しています。
type PFScheme struct {
	magic     string
	encrypted bool
}

// NewPF8Scheme は PF8 のスキームを返します
func NewPF8Scheme() *PFScheme {
	return &PFScheme{magic: PF8Magic, encrypted: true}
}

// NewPF6Scheme は暗号化のない PF6 のスキームを返します
func NewPF6Scheme() *PFScheme {
	return &PFScheme{magic: PF6Magic}
}

// Name は表示名を返します
func (s *PFScheme) Name() string {
	if s.encrypted {
		return "Artemis PF8"
	}
	return "Artemis PF6"
}

// Extract はアーカイブを開きます
func (s *PFScheme) Extract(path string) (archive.Archive, error) {
	return openWith("open "+s.magic, path, s.Open)
}

// Open はマップ済みのファイルからアーカイブを読み込みます
func (s *PFScheme) Open(src *archive.Source) (archive.Archive, error) {
	if err := checkMagic(src, s.magic); err != nil {
		return nil, err
	}
	hdr, err := src.Slice(0, pfHeaderSize)
	if err != nil {
		return nil, err
	}
	indexSize := uint64(binary.LittleEndian.Uint32(hdr[3:]))
	index, err := src.Slice(pfHeaderSize, indexSize)
	if err != nil {
		return nil, err
	}

	r := &indexReader{buf: index}
	count, err := r.u32()
	if err != nil {
		return nil, err
	}

	entries := make([]archive.FileEntry, 0, capacity(count, r.remaining(), pfMinEntry))
	for i := uint32(0); i < count; i++ {
		e, err := readPFEntry(r)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if err := checkRange(src, e); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	base, err := archive.NewBase(src, entries)
	if err != nil {
		return nil, err
	}

	arc := &pfArchive{Base: base}
	if s.encrypted {
		key := sha1.Sum(index) //nolint:gosec
		arc.key = key[:]
	}
	return arc, nil
}

func readPFEntry(r *indexReader) (archive.FileEntry, error) {
	nameLen, err := r.u32()
	if err != nil {
		return archive.FileEntry{}, err
	}
	raw, err := r.bytes(int(nameLen))
	if err != nil {
		return archive.FileEntry{}, err
	}
	name, err := decodeName(raw, nil)
	if err != nil {
		return archive.FileEntry{}, err
	}

	var fields [3]uint32 // 予約, オフセット, サイズ
	for i := range fields {
		if fields[i], err = r.u32(); err != nil {
			return archive.FileEntry{}, err
		}
	}

	e, err := archive.NewFileEntry(name, uint64(fields[2]))
	if err != nil {
		return archive.FileEntry{}, err
	}
	e.Offset = uint64(fields[1])
	return e, nil
}

// ConvertFromBytes は Artemis のスクリプト (UTF-8) と画像を変換します
func (s *PFScheme) ConvertFromBytes(pathHint string, data []byte) (resource.Resource, error) {
	return resource.ConvertFromBytes(pathHint, data, nil)
}

type pfArchive struct {
	*archive.Base
	key []byte
}

// Extract はエントリを読み出し、PF8 の場合は復号します
func (a *pfArchive) Extract(entry archive.FileEntry) ([]byte, error) {
	e, err := a.Resolve(entry)
	if err != nil {
		return nil, err
	}
	data, err := a.Source().Copy(e.Offset, e.PackedSize)
	if err != nil {
		return nil, err
	}
	crypto.XORCycle(data, a.key, 0)
	return data, nil
}
