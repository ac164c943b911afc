// Package scheme はアーカイブ形式ごとの読み込み方式 (スキーム) を提供します。
//
// サポートする形式:
//   - PF8 / PF6: Artemis エンジン
//   - BURIKO ARC20 / PackFile: BGI (Ethornell)
//   - GXP: GXP コンテナ
//   - ACV1: タイトルごとのマスターキーが必要
//   - CPZ7: タイトルごとのパスワードが必要
//
// タイトルに依存する形式は、タイトルの数だけスキームを持ちます。
//
// 基本的な使い方:
//
//	s := scheme.NewPF8Scheme()
//	arc, err := s.Extract("data.pfs")
//	if err != nil {
//	    return err
//	}
//	defer arc.Close()
//	for _, e := range arc.Files() {
//	    data, err := arc.Extract(e)
//	    // ...
//	}
package scheme

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding"

	"github.com/shiroemons/go-akaibu/pkg/archive"
	"github.com/shiroemons/go-akaibu/pkg/resource"
)

// Scheme はアーカイブ形式 (とタイトル) ごとの読み込み方式です
type Scheme interface {
	// Name は表示名を返します
	Name() string

	// Extract はファイルを開いてインデックスを読み込みます
	Extract(path string) (archive.Archive, error)

	// ConvertFromBytes は展開済みのエントリを画像やテキストに変換します。
	// 変換できない場合は resource.TypeOther を返します。
	ConvertFromBytes(pathHint string, data []byte) (resource.Resource, error)
}

// openWith はファイルをマップして open に渡します。失敗した場合はマップを閉じます。
func openWith(op, path string, open func(*archive.Source) (archive.Archive, error)) (archive.Archive, error) {
	src, err := archive.OpenSource(path)
	if err != nil {
		return nil, err
	}
	arc, err := open(src)
	if err != nil {
		src.Close() //nolint:errcheck
		return nil, archive.NewArchiveError(op, path, err)
	}
	return arc, nil
}

// checkMagic はファイル先頭が magic で始まるか確認します
func checkMagic(src *archive.Source, magic string) error {
	b, err := src.Slice(0, uint64(len(magic)))
	if err != nil || string(b) != magic {
		return fmt.Errorf("%w: missing %q signature", archive.ErrUnrecognizedFormat, magic)
	}
	return nil
}

// checkRange はエントリのデータ範囲がファイル内に収まるか確認します
func checkRange(src *archive.Source, e archive.FileEntry) error {
	if e.Offset > src.Size() || e.PackedSize > src.Size()-e.Offset {
		return fmt.Errorf("%w: %s data %d+%d exceeds file size %d",
			archive.ErrMalformedIndex, e.FullPath, e.Offset, e.PackedSize, src.Size())
	}
	return nil
}

// decodeName は NUL 終端の名前を enc で文字列にします。enc が nil の場合は UTF-8 です。
func decodeName(raw []byte, enc encoding.Encoding) (string, error) {
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	if enc == nil {
		if !utf8.Valid(raw) {
			return "", fmt.Errorf("%w: invalid UTF-8 name % x", archive.ErrMalformedIndex, raw)
		}
		return string(raw), nil
	}
	s, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("%w: name % x: %w", archive.ErrMalformedIndex, raw, err)
	}
	return string(s), nil
}

// indexReader はインデックスを順に読みます。範囲外の読み込みは ErrMalformedIndex です。
type indexReader struct {
	buf []byte
	off int
}

func (r *indexReader) remaining() int {
	return len(r.buf) - r.off
}

func (r *indexReader) bytes(n int) ([]byte, error) {
	if n < 0 || n > r.remaining() {
		return nil, fmt.Errorf("%w: need %d bytes at index offset %d, have %d",
			archive.ErrMalformedIndex, n, r.off, r.remaining())
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *indexReader) u8() (byte, error) {
	b, err := r.bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *indexReader) u32() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *indexReader) u64() (uint64, error) {
	b, err := r.bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// capacity は件数 count に対して確保するスライスの容量です。
// 壊れた件数で巨大な確保をしないよう、残りバイト数から求めた上限で抑えます。
func capacity(count uint32, remaining, minEntry int) int {
	return min(int(count), remaining/minEntry)
}
