package scheme

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"golang.org/x/text/encoding/japanese"

	"github.com/shiroemons/go-akaibu/pkg/archive"
	"github.com/shiroemons/go-akaibu/pkg/crypto"
	"github.com/shiroemons/go-akaibu/pkg/resource"
)

// ACV1 のヘッダ
const (
	ACV1Magic = "ACV1"

	acv1CountKey  = 0x8B6A4E5F
	acv1EntrySize = 21

	// ACV1FlagCompressed はデータが zlib で圧縮されていることを示します
	ACV1FlagCompressed = 0x02
	// ACV1FlagScript はデータがタイトルのマスターキーで暗号化されたスクリプトであることを示します
	ACV1FlagScript = 0x04
)

// ACV1Game は ACV1 を使うタイトルと鍵です
type ACV1Game struct {
	Title     string
	MasterKey uint64
}

// ACV1Games は選択できる鍵の一覧です。
// 特定のタイトル向けではない汎用の設定で、表示名に鍵を含みます。
var ACV1Games = []ACV1Game{
	{Title: "ACV1 汎用 (スクリプト鍵なし)", MasterKey: 0},
	{Title: "ACV1 汎用 (マスターキー 6cd2a3e1fa5b7c90)", MasterKey: 0x6CD2_A3E1_FA5B_7C90},
}

// ACV1Scheme は ACV1 アーカイブを読み込みます。
//
// 件数は 0x8B6A4E5F と XOR されており、エントリは
// {u64 名前ハッシュ, u8 フラグ, u32 オフセット, u32 格納サイズ, u32 サイズ} の21バイトで、
// 3つの u32 はハッシュの下位32ビットと XOR されています。
// ファイル名は格納されていないため、ハッシュから名前を作ります。
type ACV1Scheme struct {
	game ACV1Game
}

// NewACV1Scheme は game 用のスキームを返します
func NewACV1Scheme(game ACV1Game) *ACV1Scheme {
	return &ACV1Scheme{game: game}
}

// Name は表示名を返します
func (s *ACV1Scheme) Name() string {
	return s.game.Title
}

// Extract はアーカイブを開きます
func (s *ACV1Scheme) Extract(path string) (archive.Archive, error) {
	return openWith("open acv1", path, s.Open)
}

// Open はマップ済みのファイルからアーカイブを読み込みます
func (s *ACV1Scheme) Open(src *archive.Source) (archive.Archive, error) {
	if err := checkMagic(src, ACV1Magic); err != nil {
		return nil, err
	}
	hdr, err := src.Slice(0, 8)
	if err != nil {
		return nil, err
	}
	count := uint64(binary.LittleEndian.Uint32(hdr[4:]) ^ acv1CountKey)
	index, err := src.Slice(8, count*acv1EntrySize)
	if err != nil {
		return nil, err
	}

	entries := make([]archive.FileEntry, 0, count)
	for i := 0; i < int(count); i++ {
		raw := index[i*acv1EntrySize : (i+1)*acv1EntrySize]
		hash := binary.LittleEndian.Uint64(raw)
		flags := raw[8]
		k := uint32(hash)
		offset := binary.LittleEndian.Uint32(raw[9:]) ^ k
		packed := binary.LittleEndian.Uint32(raw[13:]) ^ k
		size := binary.LittleEndian.Uint32(raw[17:]) ^ k

		if flags&ACV1FlagCompressed == 0 && packed != size {
			return nil, fmt.Errorf("%w: entry %d stored size %d differs from size %d", archive.ErrMalformedIndex, i, packed, size)
		}

		e, err := archive.NewFileEntry(acv1Name(hash, flags), uint64(size))
		if err != nil {
			return nil, err
		}
		e.Offset = uint64(offset)
		e.PackedSize = uint64(packed)
		e.Key = hash
		e.Flags = uint32(flags)
		if err := checkRange(src, e); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	base, err := archive.NewBase(src, entries)
	if err != nil {
		return nil, err
	}
	return &acv1Archive{Base: base, masterKey: s.game.MasterKey}, nil
}

func acv1Name(hash uint64, flags byte) string {
	if flags&ACV1FlagScript != 0 {
		return fmt.Sprintf("script/%016x.txt", hash)
	}
	return fmt.Sprintf("%016x.bin", hash)
}

// ConvertFromBytes は Shift-JIS のスクリプトを変換します
func (s *ACV1Scheme) ConvertFromBytes(pathHint string, data []byte) (resource.Resource, error) {
	return resource.ConvertFromBytes(pathHint, data, japanese.ShiftJIS)
}

type acv1Archive struct {
	*archive.Base
	masterKey uint64
}

// Extract はエントリを読み出し、フラグに応じて復号と展開を行います
func (a *acv1Archive) Extract(entry archive.FileEntry) ([]byte, error) {
	e, err := a.Resolve(entry)
	if err != nil {
		return nil, err
	}
	data, err := a.Source().Copy(e.Offset, e.PackedSize)
	if err != nil {
		return nil, err
	}

	if e.Flags&ACV1FlagScript != 0 {
		crypto.XORWords(data, uint32(a.masterKey^e.Key))
	}
	if e.Flags&ACV1FlagCompressed == 0 {
		return data, nil
	}

	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", archive.ErrDecodeFailure, e.FullPath, err)
	}
	defer zr.Close() //nolint:errcheck

	out, err := io.ReadAll(io.LimitReader(zr, int64(e.FileSize)+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", archive.ErrDecodeFailure, e.FullPath, err)
	}
	if uint64(len(out)) != e.FileSize {
		return nil, fmt.Errorf("%w: %s: inflated %d bytes, want %d", archive.ErrDecodeFailure, e.FullPath, len(out), e.FileSize)
	}
	return out, nil
}
