package scheme

import (
	"bytes"
	"crypto/md5" //nolint:gosec
	"encoding/binary"
	"fmt"

	"golang.org/x/text/encoding/japanese"

	"github.com/shiroemons/go-akaibu/pkg/archive"
	"github.com/shiroemons/go-akaibu/pkg/crypto"
	"github.com/shiroemons/go-akaibu/pkg/resource"
)

// CPZ7 のヘッダ
const (
	CPZ7Magic = "CPZ7"

	cpzHeaderSize   = 0x40
	cpzEntryMinSize = 17
)

// CPZ7Game は CPZ7 を使うタイトルとパスワードです
type CPZ7Game struct {
	Title    string
	Password string
}

// CPZ7Games は選択できるパスワードの一覧です。
// 特定のタイトル向けではない汎用の設定で、表示名にパスワードを含みます。
var CPZ7Games = []CPZ7Game{
	{Title: "CPZ7 汎用 (パスワード cmvs)", Password: "cmvs"},
	{Title: "CPZ7 汎用 (パスワード cmvs-trial)", Password: "cmvs-trial"},
}

// CPZ7Key はパスワードから鍵を求めます
func CPZ7Key(password string) uint32 {
	sum := md5.Sum([]byte(password)) //nolint:gosec
	return binary.LittleEndian.Uint32(sum[:4])
}

// CPZ7Scheme は CPZ7 アーカイブを読み込みます。
//
// 0x40 バイトのヘッダに {ディレクトリ数, ディレクトリ索引サイズ, ファイル索引サイズ,
// 復号後の索引の MD5, シード} があり、索引はシードとタイトルの鍵から作る MT19937 の
// 乱数列で暗号化されています。MD5 が一致しない場合は選んだタイトルが違います。
// データはディレクトリとファイルの鍵から作る置換テーブルで暗号化されています。
type CPZ7Scheme struct {
	game CPZ7Game
	key  uint32
}

// NewCPZ7Scheme は game 用のスキームを返します
func NewCPZ7Scheme(game CPZ7Game) *CPZ7Scheme {
	return &CPZ7Scheme{game: game, key: CPZ7Key(game.Password)}
}

// Name は表示名を返します
func (s *CPZ7Scheme) Name() string {
	return s.game.Title
}

// Extract はアーカイブを開きます
func (s *CPZ7Scheme) Extract(path string) (archive.Archive, error) {
	return openWith("open cpz7", path, s.Open)
}

// Open はマップ済みのファイルからアーカイブを読み込みます
func (s *CPZ7Scheme) Open(src *archive.Source) (archive.Archive, error) {
	if err := checkMagic(src, CPZ7Magic); err != nil {
		return nil, err
	}
	hdr, err := src.Slice(0, cpzHeaderSize)
	if err != nil {
		return nil, err
	}
	dirCount := binary.LittleEndian.Uint32(hdr[0x04:])
	dirIndexSize := uint64(binary.LittleEndian.Uint32(hdr[0x08:]))
	fileIndexSize := uint64(binary.LittleEndian.Uint32(hdr[0x0C:]))
	seed := binary.LittleEndian.Uint32(hdr[0x20:])

	index, err := src.Copy(cpzHeaderSize, dirIndexSize+fileIndexSize)
	if err != nil {
		return nil, err
	}
	crypto.NewRNGMT(seed ^ s.key).KeyStream(index)
	if sum := md5.Sum(index); !bytes.Equal(sum[:], hdr[0x10:0x20]) { //nolint:gosec
		return nil, fmt.Errorf("%w: index checksum mismatch (wrong title selected?)", archive.ErrMalformedIndex)
	}

	dataBase := cpzHeaderSize + dirIndexSize + fileIndexSize
	dirs := &indexReader{buf: index[:dirIndexSize]}
	fileIndex := index[dirIndexSize:]

	var entries []archive.FileEntry
	for i := uint32(0); i < dirCount; i++ {
		raw, err := cpzEntry(dirs)
		if err != nil {
			return nil, fmt.Errorf("directory %d: %w", i, err)
		}
		fileCount := binary.LittleEndian.Uint32(raw[4:])
		fileOffset := binary.LittleEndian.Uint32(raw[8:])
		dirKey := binary.LittleEndian.Uint32(raw[12:])
		dirName, err := decodeName(raw[16:], japanese.ShiftJIS)
		if err != nil {
			return nil, err
		}
		if uint64(fileOffset) > uint64(len(fileIndex)) {
			return nil, fmt.Errorf("%w: directory %q file index offset %d out of range", archive.ErrMalformedIndex, dirName, fileOffset)
		}

		files := &indexReader{buf: fileIndex[fileOffset:]}
		for j := uint32(0); j < fileCount; j++ {
			e, err := readCPZFile(files, dirName, dirKey)
			if err != nil {
				return nil, fmt.Errorf("directory %q file %d: %w", dirName, j, err)
			}
			e.Offset += dataBase
			if err := checkRange(src, e); err != nil {
				return nil, err
			}
			entries = append(entries, e)
		}
	}

	base, err := archive.NewBase(src, entries)
	if err != nil {
		return nil, err
	}
	return &cpzArchive{Base: base, key: s.key}, nil
}

// cpzEntry は先頭の u32 をエントリ長とする可変長エントリを切り出します
func cpzEntry(r *indexReader) ([]byte, error) {
	start := r.off
	size, err := r.u32()
	if err != nil {
		return nil, err
	}
	if size < cpzEntryMinSize {
		return nil, fmt.Errorf("%w: entry size %d too small", archive.ErrMalformedIndex, size)
	}
	r.off = start
	return r.bytes(int(size))
}

func readCPZFile(r *indexReader, dirName string, dirKey uint32) (archive.FileEntry, error) {
	raw, err := cpzEntry(r)
	if err != nil {
		return archive.FileEntry{}, err
	}
	offset := binary.LittleEndian.Uint32(raw[4:])
	size := binary.LittleEndian.Uint32(raw[8:])
	fileKey := binary.LittleEndian.Uint32(raw[12:])
	name, err := decodeName(raw[16:], japanese.ShiftJIS)
	if err != nil {
		return archive.FileEntry{}, err
	}

	e, err := archive.NewFileEntry(dirName+"/"+name, uint64(size))
	if err != nil {
		return archive.FileEntry{}, err
	}
	e.Offset = uint64(offset)
	e.Key = uint64(dirKey)<<32 | uint64(fileKey)
	return e, nil
}

// ConvertFromBytes は Shift-JIS のスクリプトを変換します
func (s *CPZ7Scheme) ConvertFromBytes(pathHint string, data []byte) (resource.Resource, error) {
	return resource.ConvertFromBytes(pathHint, data, japanese.ShiftJIS)
}

type cpzArchive struct {
	*archive.Base
	key uint32
}

// Extract はエントリを読み出して置換テーブルで復号します
func (a *cpzArchive) Extract(entry archive.FileEntry) ([]byte, error) {
	e, err := a.Resolve(entry)
	if err != nil {
		return nil, err
	}
	data, err := a.Source().Copy(e.Offset, e.PackedSize)
	if err != nil {
		return nil, err
	}
	inv := crypto.Inverse(crypto.NewRNGMT(a.key ^ uint32(e.Key>>32) ^ uint32(e.Key)).Permutation())
	for i, b := range data {
		data[i] = inv[b]
	}
	return data, nil
}
