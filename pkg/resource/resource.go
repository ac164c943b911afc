// Package resource はアーカイブから取り出したリソースの識別と変換を行います
package resource

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"path"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"

	"github.com/shiroemons/go-akaibu/pkg/archive"
	"github.com/shiroemons/go-akaibu/pkg/tlg"
)

// Type はリソースの種類です
type Type int

// リソースの種類
const (
	TypeOther Type = iota
	TypeImage
	TypeText
)

// String は種類名を返します
func (t Type) String() string {
	switch t {
	case TypeImage:
		return "image"
	case TypeText:
		return "text"
	}
	return "other"
}

// Resource は変換結果です。Type に応じて Image または Text が設定されます。
type Resource struct {
	Type  Type
	Image *image.NRGBA
	Text  string
}

// Image は画像リソースを作成します
func Image(img *image.NRGBA) Resource {
	return Resource{Type: TypeImage, Image: img}
}

// Text はテキストリソースを作成します
func Text(s string) Resource {
	return Resource{Type: TypeText, Text: s}
}

// Other は変換できなかったリソースを表します
func Other() Resource {
	return Resource{Type: TypeOther}
}

// Magic はシグネチャから判別したリソース形式です
type Magic int

// リソース形式
const (
	Unrecognized Magic = iota
	TLG0
	TLG5
	TLG6
	DSC
	CBG
	UTF8Text
	UTF16Text
)

var magicNames = map[Magic]string{
	Unrecognized: "Unrecognized",
	TLG0:         "TLG0",
	TLG5:         "TLG5",
	TLG6:         "TLG6",
	DSC:          "DSC",
	CBG:          "CompressedBG",
	UTF8Text:     "UTF-8 text",
	UTF16Text:    "UTF-16 text",
}

// String は形式名を返します
func (m Magic) String() string {
	return magicNames[m]
}

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
)

// signatures は判定順に並んだシグネチャ表です。最初に一致したものを採用します。
var signatures = []struct {
	magic Magic
	sig   []byte
}{
	{TLG0, []byte(tlg.SigTLG0)},
	{TLG5, []byte(tlg.SigTLG5)},
	{TLG6, []byte(tlg.SigTLG6)},
	{DSC, []byte("DSC FORMAT 1.00")},
	{CBG, []byte("CompressedBG___")},
	{UTF8Text, bomUTF8},
	{UTF16Text, bomUTF16LE},
}

// ParseMagic は先頭バイトからリソース形式を判別します。短いバッファでも安全です。
func ParseMagic(buf []byte) Magic {
	for _, s := range signatures {
		if bytes.HasPrefix(buf, s.sig) {
			return s.magic
		}
	}
	return Unrecognized
}

// Decode は判別済みのリソースを変換します
func (m Magic) Decode(buf []byte) (Resource, error) {
	switch m {
	case TLG0, TLG5, TLG6:
		img, err := tlg.Decode(buf)
		if err != nil {
			if errors.Is(err, tlg.ErrUnsupportedVersion) {
				return Resource{}, fmt.Errorf("%w: %w", archive.ErrUnimplemented, err)
			}
			return Resource{}, fmt.Errorf("%w: %s: %w", archive.ErrDecodeFailure, m, err)
		}
		return Image(img.NRGBA), nil
	case DSC, CBG:
		return Resource{}, fmt.Errorf("%w: %s", archive.ErrUnimplemented, m)
	case UTF8Text:
		s := buf[len(bomUTF8):]
		if !utf8.Valid(s) {
			return Resource{}, fmt.Errorf("%w: invalid UTF-8 text", archive.ErrDecodeFailure)
		}
		return Text(string(s)), nil
	case UTF16Text:
		dec := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
		s, err := dec.Bytes(buf)
		if err != nil {
			return Resource{}, fmt.Errorf("%w: %w", archive.ErrDecodeFailure, err)
		}
		return Text(string(s)), nil
	}
	return Resource{}, archive.ErrUnrecognizedFormat
}

// textExtensions はシグネチャのないテキストとして扱う拡張子です
var textExtensions = map[string]struct{}{
	".txt": {}, ".ini": {}, ".csv": {}, ".ast": {}, ".lua": {}, ".json": {},
	".xml": {}, ".tjs": {}, ".ks": {}, ".s": {},
}

// IsTextName は拡張子がテキストのものか判定します
func IsTextName(name string) bool {
	_, ok := textExtensions[strings.ToLower(path.Ext(name))]
	return ok
}

// ConvertFromBytes はシグネチャ、次に拡張子の順でリソースを判別して変換します。
// enc はシグネチャのないテキストの文字コードで、nil の場合は UTF-8 とみなします。
// 変換できない場合は TypeOther を返します。エラーは判別できた形式の変換に失敗した場合のみです。
func ConvertFromBytes(pathHint string, data []byte, enc encoding.Encoding) (Resource, error) {
	if m := ParseMagic(data); m != Unrecognized {
		return m.Decode(data)
	}

	if !IsTextName(pathHint) {
		return Other(), nil
	}

	if enc == nil {
		if !utf8.Valid(data) {
			return Other(), nil
		}
		return Text(string(data)), nil
	}

	s, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return Resource{}, fmt.Errorf("%w: %s: %w", archive.ErrDecodeFailure, pathHint, err)
	}
	return Text(string(s)), nil
}
