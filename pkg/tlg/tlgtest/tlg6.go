package tlgtest

import (
	"encoding/binary"
	"image"

	"github.com/shiroemons/go-akaibu/pkg/tlg"
)

var golombCompressed = [4][9]int{
	{3, 7, 15, 27, 63, 108, 223, 448, 130},
	{3, 5, 13, 24, 51, 95, 192, 384, 257},
	{2, 5, 12, 21, 39, 86, 155, 320, 384},
	{2, 3, 9, 18, 33, 61, 129, 258, 511},
}

func golombK(a, n int) int {
	for k, cnt := range golombCompressed[n] {
		if a < cnt {
			return k
		}
		a -= cnt
	}
	return len(golombCompressed[n]) - 1
}

// decorrelate は色相関フィルタ code の逆変換を b, g, r に適用します
func decorrelate(code byte, d [4]byte) [4]byte {
	b, g, r := d[0], d[1], d[2]
	switch code {
	case 1:
		r -= g
		b -= g
	case 2:
		r -= g
		g -= b
	case 3:
		b -= g
		g -= r
	case 4:
		r -= g
		g -= b
		b -= r
	case 5:
		g -= b
		b -= r
	case 6:
		b -= g
	case 7:
		g -= b
	case 8:
		r -= g
	case 9:
		b -= g
		g -= r
		r -= b
	case 10:
		g -= r
		b -= r
	case 11:
		r -= b
		g -= b
	case 12:
		g -= r
		r -= b
	case 13:
		g -= r
		r -= b
		b -= g
	case 14:
		r -= b
		b -= g
		g -= r
	case 15:
		r -= 2 * b
		g -= 2 * b
	}
	return [4]byte{b, g, r, d[3]}
}

func med(a, b, c byte) byte {
	lo, hi := min(a, b), max(a, b)
	switch {
	case c >= hi:
		return lo
	case c <= lo:
		return hi
	}
	return a + b - c
}

// EncodeTLG6 は img を TLG6 形式に変換します。
// フィルタ種別はブロックの位置から 32 種類を順に割り当てます。
func EncodeTLG6(img *image.NRGBA, opt Options) []byte {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	colors := 3
	if opt.Alpha {
		colors = 4
	}
	xBlocks := (w-1)/8 + 1
	yBlocks := (h-1)/4 + 1

	filters := make([]byte, xBlocks*yBlocks)
	for i := range filters {
		filters[i] = byte((i*7 + i/xBlocks) % 32)
	}

	var initial [4]byte
	if colors == 3 {
		initial[3] = 0xff
	}
	prev := make([][4]byte, w)
	for i := range prev {
		prev[i] = initial
	}

	var body []byte
	maxBits := 0
	for y0 := 0; y0 < h; y0 += 4 {
		lines := min(4, h-y0)
		pixels := make([][4]byte, lines*8*xBlocks)

		for y := y0; y < y0+lines; y++ {
			cur := make([][4]byte, w)
			p, up := initial, initial
			for x := range w {
				o := y*img.Stride + x*4
				px := [4]byte{img.Pix[o+2], img.Pix[o+1], img.Pix[o], img.Pix[o+3]}
				if colors == 3 {
					px[3] = 0xff
				}
				cur[x] = px

				ft := filters[(y0/4)*xBlocks+x/8]
				u := prev[x]
				var d [4]byte
				for c := range d {
					pred := med(p[c], u[c], up[c])
					if ft&1 == 1 {
						pred = byte((int(p[c]) + int(u[c]) + 1) >> 1)
					}
					d[c] = px[c] - pred
				}
				p, up = px, u

				i := x / 8
				bw := min(8, w-i*8)
				row := y - y0
				if i&1 == 1 {
					row = lines - 1 - row
				}
				col := x - i*8
				if y&1 == 1 {
					col = bw - 1 - col
				}
				pixels[i*lines*8+bw*row+col] = decorrelate(ft>>1, d)
			}
			prev = cur
		}

		for c := range colors {
			var vals []int8
			for _, px := range pixels[:lines*w] {
				vals = append(vals, int8(px[c]))
			}
			data, n := encodeGolomb(vals)
			maxBits = max(maxBits, n)
			body = binary.LittleEndian.AppendUint32(body, uint32(n))
			body = append(body, data...)
		}
	}

	out := []byte(tlg.SigTLG6)
	out = append(out, byte(colors), 0, 0, 0)
	out = binary.LittleEndian.AppendUint32(out, uint32(w))
	out = binary.LittleEndian.AppendUint32(out, uint32(h))
	out = binary.LittleEndian.AppendUint32(out, uint32(maxBits))
	lz := literalLZSS(filters)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(lz)))
	out = append(out, lz...)
	return append(out, body...)
}

type bitWriter struct {
	buf []byte
	n   int
}

func (w *bitWriter) put(v, bits int) {
	for i := range bits {
		if w.n%8 == 0 {
			w.buf = append(w.buf, 0)
		}
		w.buf[w.n/8] |= byte((v>>i)&1) << (w.n % 8)
		w.n++
	}
}

func (w *bitWriter) gamma(v int) {
	z := 0
	for 1<<(z+1) <= v {
		z++
	}
	w.put(0, z)
	w.put(1, 1)
	w.put(v-1<<z, z)
}

// encodeGolomb は値の並びを連長と Golomb 符号で書き出し、ビット数を返します
func encodeGolomb(vals []int8) ([]byte, int) {
	var w bitWriter
	if vals[0] != 0 {
		w.put(1, 1)
	} else {
		w.put(0, 1)
	}

	n, a := 3, 0
	for i := 0; i < len(vals); {
		zero := vals[i] == 0
		j := i
		for j < len(vals) && (vals[j] == 0) == zero {
			j++
		}
		w.gamma(j - i)
		if !zero {
			for _, e := range vals[i:j] {
				k := golombK(a, n)
				var v int
				if e > 0 {
					v = 2*(int(e)-1) + 1
				} else {
					v = 2 * (-int(e) - 1)
				}
				q := v >> k
				if bit := w.n % 8; q > 31-bit {
					// 4 バイト分をゼロで埋め、続く1バイトに商を置く
					w.put(0, 32-bit)
					w.put(q, 8)
				} else {
					w.put(0, q)
					w.put(1, 1)
				}
				w.put(v, k)

				a += v >> 1
				n--
				if n < 0 {
					a >>= 1
					n = 3
				}
			}
		}
		i = j
	}
	return w.buf, w.n
}
