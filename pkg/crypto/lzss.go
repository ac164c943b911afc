package crypto

import (
	"errors"
	"fmt"
)

// RingSize は Slide のリングバッファの大きさです
const RingSize = 4096

var (
	// ErrTruncated は圧縮データが途中で終わっている場合のエラー
	ErrTruncated = errors.New("truncated lzss stream")

	// ErrOverrun は展開結果が出力バッファに収まらない場合のエラー
	ErrOverrun = errors.New("lzss output overrun")
)

// Slide は TLG5 のブロック圧縮に使われる LZSS の展開器です。
// リングバッファの状態は呼び出しをまたいで引き継がれます。
type Slide struct {
	ring [RingSize]byte
	pos  int
}

// NewSlide はゼロで初期化されたリングを持つ展開器を返します
func NewSlide() *Slide {
	return &Slide{}
}

// NewSlideWithRing は ring の内容でリングを初期化した展開器を返します。
// ring が RingSize より短い場合、残りはゼロです。
func NewSlideWithRing(ring []byte) *Slide {
	s := &Slide{}
	copy(s.ring[:], ring)
	return s
}

// Decode は in を展開して out の先頭から書き込み、書き込んだバイト数を返します。
//
// フラグバイトの各ビットが下位から順に次のトークンの種類を表します。
// 0 はリテラル1バイト、1 は2バイトの参照 (12ビット位置, 4ビット長+3) で、
// 長さが18の場合は続く1バイトを長さに加算します。
func (s *Slide) Decode(out, in []byte) (int, error) {
	ip, op := 0, 0
	var flags uint
	for ip < len(in) {
		flags >>= 1
		if flags&0x100 == 0 {
			flags = uint(in[ip]) | 0xff00
			ip++
			if ip >= len(in) {
				break
			}
		}

		if flags&1 == 0 {
			if op >= len(out) {
				return op, ErrOverrun
			}
			c := in[ip]
			ip++
			out[op] = c
			op++
			s.ring[s.pos] = c
			s.pos = (s.pos + 1) & (RingSize - 1)
			continue
		}

		if ip+2 > len(in) {
			return op, fmt.Errorf("%w: reference at %d", ErrTruncated, ip)
		}
		mpos := int(in[ip]) | int(in[ip+1]&0x0f)<<8
		mlen := int(in[ip+1]>>4) + 3
		ip += 2
		if mlen == 18 {
			if ip >= len(in) {
				return op, fmt.Errorf("%w: length extension at %d", ErrTruncated, ip)
			}
			mlen += int(in[ip])
			ip++
		}

		if op+mlen > len(out) {
			return op, ErrOverrun
		}
		for ; mlen > 0; mlen-- {
			c := s.ring[mpos]
			out[op] = c
			op++
			s.ring[s.pos] = c
			s.pos = (s.pos + 1) & (RingSize - 1)
			mpos = (mpos + 1) & (RingSize - 1)
		}
	}
	return op, nil
}
