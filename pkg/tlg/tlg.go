// Package tlg は吉里吉里の TLG 画像をデコードします。
//
// サポートする形式:
//   - TLG0: TLG5/TLG6 本体にタグなどのチャンクを付けたコンテナ
//   - TLG5: LZSS 圧縮のブロック単位ロスレス形式
//   - TLG6: 予測と Golomb 符号によるロスレス形式
package tlg

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"strconv"
)

// シグネチャ
const (
	SigTLG0 = "TLG0.0\x00sds\x1a"
	SigTLG5 = "TLG5.0\x00raw\x1a"
	SigTLG6 = "TLG6.0\x00raw\x1a"

	sigLen = 11

	// maxDimension は幅・高さの上限です
	maxDimension = 1 << 15
)

var (
	// ErrInvalidHeader はシグネチャが TLG でない場合のエラー
	ErrInvalidHeader = errors.New("invalid tlg header")

	// ErrCorrupt はデータが壊れている場合のエラー
	ErrCorrupt = errors.New("corrupt tlg data")

	// ErrUnsupportedVersion は識別できたが未対応の符号化方式の場合のエラー
	ErrUnsupportedVersion = errors.New("unsupported tlg version")
)

// Image はデコード結果です。Tags は TLG0 の tags チャンクの内容です。
type Image struct {
	*image.NRGBA
	Tags map[string]string
}

// Decode は buf の TLG 画像をデコードします
func Decode(buf []byte) (*Image, error) {
	switch {
	case bytes.HasPrefix(buf, []byte(SigTLG0)):
		return decodeTLG0(buf)
	case bytes.HasPrefix(buf, []byte(SigTLG5)):
		img, err := decodeTLG5(buf)
		if err != nil {
			return nil, err
		}
		return &Image{NRGBA: img}, nil
	case bytes.HasPrefix(buf, []byte(SigTLG6)):
		img, err := decodeTLG6(buf)
		if err != nil {
			return nil, err
		}
		return &Image{NRGBA: img}, nil
	}
	return nil, ErrInvalidHeader
}

func decodeTLG0(buf []byte) (*Image, error) {
	r := reader{buf: buf, off: sigLen}
	rawLen, err := r.u32()
	if err != nil {
		return nil, err
	}
	raw, err := r.bytes(int(rawLen))
	if err != nil {
		return nil, err
	}
	if bytes.HasPrefix(raw, []byte(SigTLG0)) {
		return nil, fmt.Errorf("%w: nested TLG0", ErrCorrupt)
	}

	inner, err := Decode(raw)
	if err != nil {
		return nil, err
	}

	for r.remaining() > 0 {
		name, err := r.bytes(4)
		if err != nil {
			return nil, err
		}
		size, err := r.u32()
		if err != nil {
			return nil, err
		}
		chunk, err := r.bytes(int(size))
		if err != nil {
			return nil, err
		}
		if string(name) == "tags" {
			inner.Tags = parseTags(chunk)
		}
	}
	return inner, nil
}

// parseTags は "長さ:キー=長さ:値," の並びを読みます。
// 壊れている場合はそこまでに読めたタグを返します。
func parseTags(b []byte) map[string]string {
	tags := make(map[string]string)
	for len(b) > 0 {
		key, rest, ok := lengthPrefixed(b)
		if !ok || len(rest) == 0 || rest[0] != '=' {
			break
		}
		val, rest, ok := lengthPrefixed(rest[1:])
		if !ok || len(rest) == 0 || rest[0] != ',' {
			break
		}
		tags[key] = val
		b = rest[1:]
	}
	return tags
}

func lengthPrefixed(b []byte) (string, []byte, bool) {
	i := bytes.IndexByte(b, ':')
	if i <= 0 {
		return "", nil, false
	}
	n, err := strconv.Atoi(string(b[:i]))
	if err != nil || n < 0 || n > len(b)-i-1 {
		return "", nil, false
	}
	b = b[i+1:]
	return string(b[:n]), b[n:], true
}

type reader struct {
	buf []byte
	off int
}

func (r *reader) remaining() int {
	return len(r.buf) - r.off
}

func (r *reader) bytes(n int) ([]byte, error) {
	if n < 0 || n > r.remaining() {
		return nil, fmt.Errorf("%w: need %d bytes at %d, have %d", ErrCorrupt, n, r.off, r.remaining())
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) u8() (byte, error) {
	b, err := r.bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) u32() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}
