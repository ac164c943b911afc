package tlg

import (
	"encoding/binary"
	"fmt"
	"image"
	"math/bits"

	"github.com/shiroemons/go-akaibu/pkg/crypto"
)

// TLG6 のブロックの大きさ
const (
	tlg6BlockWidth  = 8
	tlg6BlockHeight = 4
)

// golombCompressed は k ごとの出現数を並べた Golomb パラメータ表です
var golombCompressed = [4][9]int{
	{3, 7, 15, 27, 63, 108, 223, 448, 130},
	{3, 5, 13, 24, 51, 95, 192, 384, 257},
	{2, 5, 12, 21, 39, 86, 155, 320, 384},
	{2, 3, 9, 18, 33, 61, 129, 258, 511},
}

// golombBitLength[a][n] は累積誤差 a と残り回数 n から k を引く表です
var golombBitLength = func() (t [1024][4]uint) {
	for n, row := range golombCompressed {
		a := 0
		for k, cnt := range row {
			for range cnt {
				t[a][n] = uint(k)
				a++
			}
		}
	}
	return t
}()

// filterRing はフィルタ種別表の展開に使うリングの初期値です
var filterRing = func() []byte {
	ring := make([]byte, crypto.RingSize)
	p := 0
	for i := range 32 {
		for j := range 16 {
			for range 4 {
				ring[p] = byte(i)
				p++
			}
			for range 4 {
				ring[p] = byte(j)
				p++
			}
		}
	}
	return ring
}()

// chromaOp は dst += src * mul をチャネル (0:B 1:G 2:R) 単位で行います
type chromaOp struct {
	dst, src int
	mul      byte
}

// chromaFilters は色相関フィルタ 0-15 の復元手順です
var chromaFilters = [16][]chromaOp{
	{},
	{{0, 1, 1}, {2, 1, 1}},
	{{1, 0, 1}, {2, 1, 1}},
	{{1, 2, 1}, {0, 1, 1}},
	{{0, 2, 1}, {1, 0, 1}, {2, 1, 1}},
	{{0, 2, 1}, {1, 0, 1}},
	{{0, 1, 1}},
	{{1, 0, 1}},
	{{2, 1, 1}},
	{{2, 0, 1}, {1, 2, 1}, {0, 1, 1}},
	{{0, 2, 1}, {1, 2, 1}},
	{{1, 0, 1}, {2, 0, 1}},
	{{2, 0, 1}, {1, 2, 1}},
	{{0, 1, 1}, {2, 0, 1}, {1, 2, 1}},
	{{1, 2, 1}, {0, 1, 1}, {2, 0, 1}},
	{{1, 0, 2}, {2, 0, 2}},
}

// decodeTLG6 は TLG6 をデコードします。
//
// 画像は 8x4 のブロックに分かれ、ブロックごとに予測器 (MED または平均) と
// 色相関フィルタの組がフィルタ種別表で指定されます。予測誤差は 4 行ごとに
// チャネル単位で Golomb 符号化されています。
func decodeTLG6(buf []byte) (*image.NRGBA, error) {
	r := reader{buf: buf, off: sigLen}

	var head [4]byte
	for i := range head {
		b, err := r.u8()
		if err != nil {
			return nil, err
		}
		head[i] = b
	}
	colors := int(head[0])
	if colors != 1 && colors != 3 && colors != 4 {
		return nil, fmt.Errorf("%w: unsupported color count %d", ErrCorrupt, colors)
	}
	if head[1] != 0 || head[2] != 0 || head[3] != 0 {
		return nil, fmt.Errorf("%w: data flags %v", ErrUnsupportedVersion, head[1:])
	}

	var dims [3]uint32
	var err error
	for i := range dims {
		if dims[i], err = r.u32(); err != nil {
			return nil, err
		}
	}
	width, height := int(dims[0]), int(dims[1])
	if width == 0 || height == 0 || width > maxDimension || height > maxDimension {
		return nil, fmt.Errorf("%w: invalid size %dx%d", ErrCorrupt, width, height)
	}

	xBlocks := (width-1)/tlg6BlockWidth + 1
	yBlocks := (height-1)/tlg6BlockHeight + 1

	size, err := r.u32()
	if err != nil {
		return nil, err
	}
	packed, err := r.bytes(int(size))
	if err != nil {
		return nil, err
	}
	filters := make([]byte, xBlocks*yBlocks)
	n, err := crypto.NewSlideWithRing(filterRing).Decode(filters, packed)
	if err != nil {
		return nil, fmt.Errorf("%w: filter types: %w", ErrCorrupt, err)
	}
	if n < len(filters) {
		return nil, fmt.Errorf("%w: filter types have %d bytes, need %d", ErrCorrupt, n, len(filters))
	}

	initial := [4]byte{0, 0, 0, 0}
	if colors == 3 {
		initial[3] = 0xff
	}
	prev := make([][4]byte, width)
	for i := range prev {
		prev[i] = initial
	}
	cur := make([][4]byte, width)

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	pixels := make([][4]byte, tlg6BlockHeight*width)

	for y0 := 0; y0 < height; y0 += tlg6BlockHeight {
		lines := min(tlg6BlockHeight, height-y0)
		count := lines * width
		clear(pixels)

		for c := range colors {
			bitLen, err := r.u32()
			if err != nil {
				return nil, err
			}
			if method := bitLen >> 30; method != 0 {
				return nil, fmt.Errorf("%w: entropy coding method %d", ErrUnsupportedVersion, method)
			}
			bitLen &= 0x3fffffff
			data, err := r.bytes(int((bitLen + 7) / 8))
			if err != nil {
				return nil, err
			}
			if err := decodeGolomb(pixels[:count], c, data); err != nil {
				return nil, fmt.Errorf("%w: block at line %d channel %d: %w", ErrCorrupt, y0, c, err)
			}
		}

		ft := filters[(y0/tlg6BlockHeight)*xBlocks:]
		for y := y0; y < y0+lines; y++ {
			if err := decodeLine(prev, cur, pixels, ft[:xBlocks], y-y0, lines, initial); err != nil {
				return nil, fmt.Errorf("%w: line %d: %w", ErrCorrupt, y, err)
			}
			storeLine(img, y, cur, colors)
			prev, cur = cur, prev
		}
	}

	return img, nil
}

// decodeLine はブロック内で並べ替えられた予測誤差から1行を復元します。
// 奇数番目のブロックは行が上下反転し、奇数行は右から左に格納されています。
func decodeLine(prev, cur, pixels [][4]byte, filters []byte, row, lines int, initial [4]byte) error {
	width := len(cur)
	stride := lines * tlg6BlockWidth
	p, up := initial, initial

	for x := 0; x < width; x++ {
		i := x / tlg6BlockWidth
		bw := min(tlg6BlockWidth, width-i*tlg6BlockWidth)
		rr := row
		if i&1 == 1 {
			rr = lines - 1 - row
		}
		col := x - i*tlg6BlockWidth
		if row&1 == 1 {
			col = bw - 1 - col
		}
		in := pixels[i*stride+bw*rr+col]

		ft := filters[i]
		if int(ft>>1) >= len(chromaFilters) {
			return fmt.Errorf("filter type %d", ft)
		}
		for _, op := range chromaFilters[ft>>1] {
			in[op.dst] += in[op.src] * op.mul
		}

		u := prev[x]
		var pred [4]byte
		for c := range pred {
			if ft&1 == 0 {
				pred[c] = med(p[c], u[c], up[c])
			} else {
				pred[c] = avg(p[c], u[c])
			}
			pred[c] += in[c]
		}
		cur[x] = pred
		p, up = pred, u
	}
	return nil
}

// med は左 a、上 b、左上 c から Median Edge Detector で予測します
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

// avg は左と上の平均を切り上げで求めます
func avg(a, b byte) byte {
	return byte((int(a) + int(b) + 1) >> 1)
}

// storeLine は B, G, R, A 順の1行を img の y 行目に書き込みます
func storeLine(img *image.NRGBA, y int, line [][4]byte, colors int) {
	row := img.Pix[y*img.Stride:]
	for x, px := range line {
		o := x * 4
		switch colors {
		case 1:
			row[o], row[o+1], row[o+2], row[o+3] = px[0], px[0], px[0], 0xff
		default:
			row[o], row[o+1], row[o+2], row[o+3] = px[2], px[1], px[0], px[3]
		}
	}
}

// golombReader は下位ビットから読むビット列です。
// 末尾を越えた読み出しはゼロを返します。
type golombReader struct {
	buf []byte
	pos int
	bit uint
}

func (g *golombReader) fetch() uint32 {
	var w [4]byte
	if g.pos < len(g.buf) {
		copy(w[:], g.buf[g.pos:])
	}
	return binary.LittleEndian.Uint32(w[:]) >> g.bit
}

func (g *golombReader) skip(n uint) {
	g.bit += n
	g.pos += int(g.bit >> 3)
	g.bit &= 7
}

// zeros は 1 のビットまでを読み、その前のゼロの数を返します
func (g *golombReader) zeros() (int, error) {
	n := 0
	for {
		if t := g.fetch() & 0xfff; t != 0 {
			b := uint(bits.TrailingZeros32(t))
			g.skip(b + 1)
			return n + int(b), nil
		}
		n += 12
		g.skip(12)
		if g.pos > len(g.buf) {
			return 0, fmt.Errorf("unterminated run at byte %d", g.pos)
		}
	}
}

func (g *golombReader) value(k uint) int {
	v := int(g.fetch() & (1<<k - 1))
	g.skip(k)
	return v
}

// decodeGolomb はチャネル c の予測誤差を out に展開します。
// 先頭ビットが 1 なら非ゼロの連から始まり、以後ゼロの連と交互に並びます。
// 連の長さはガンマ符号、非ゼロの値は適応 Golomb 符号です。
func decodeGolomb(out [][4]byte, c int, data []byte) error {
	g := golombReader{buf: data}
	if len(data) == 0 {
		return fmt.Errorf("empty stream")
	}
	nonzero := data[0]&1 == 1
	g.skip(1)

	n, a := 3, 0
	for i := 0; i < len(out); {
		z, err := g.zeros()
		if err != nil {
			return err
		}
		if z > 30 {
			return fmt.Errorf("run length exponent %d", z)
		}
		count := 1<<z + g.value(uint(z))
		if count > len(out)-i {
			return fmt.Errorf("run of %d overflows %d remaining values", count, len(out)-i)
		}

		if !nonzero {
			for range count {
				out[i][c] = 0
				i++
			}
			nonzero = true
			continue
		}

		for range count {
			if a >= len(golombBitLength) {
				return fmt.Errorf("error sum %d out of range", a)
			}
			k := golombBitLength[a][n]

			var q int
			if g.fetch() != 0 {
				if q, err = g.zeros(); err != nil {
					return err
				}
			} else {
				// 32ビット以内に終端がない場合は 5 バイト目に商が入っている
				if g.pos+4 >= len(g.buf) {
					return fmt.Errorf("truncated escape at byte %d", g.pos)
				}
				q = int(g.buf[g.pos+4])
				g.pos += 5
				g.bit = 0
			}

			v := q<<k + g.value(k)
			m := v >> 1
			if v&1 == 1 {
				out[i][c] = byte(m + 1)
			} else {
				out[i][c] = byte(-m - 1)
			}
			a += m
			i++

			n--
			if n < 0 {
				a >>= 1
				n = 3
			}
		}
		nonzero = false
	}
	return nil
}
