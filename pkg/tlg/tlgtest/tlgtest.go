// Package tlgtest はテスト用の TLG データを組み立てます
package tlgtest

import (
	"encoding/binary"
	"image"
	"strconv"

	"github.com/shiroemons/go-akaibu/pkg/tlg"
)

// Options は TLG5/TLG6 の組み立て方を指定します
type Options struct {
	BlockHeight int  // TLG5 のみ。0 の場合は画像の高さ
	Alpha       bool // false の場合は3チャネル
	Compress    bool // TLG5 のみ。true の場合はリテラルのみの LZSS で格納
}

// EncodeTLG5 は img を TLG5 形式に変換します
func EncodeTLG5(img *image.NRGBA, opt Options) []byte {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	bh := opt.BlockHeight
	if bh <= 0 {
		bh = h
	}
	colors := 3
	if opt.Alpha {
		colors = 4
	}

	out := []byte(tlg.SigTLG5)
	out = append(out, byte(colors))
	out = binary.LittleEndian.AppendUint32(out, uint32(w))
	out = binary.LittleEndian.AppendUint32(out, uint32(h))
	out = binary.LittleEndian.AppendUint32(out, uint32(bh))
	blockCount := (h-1)/bh + 1
	out = append(out, make([]byte, blockCount*4)...)

	for y0 := 0; y0 < h; y0 += bh {
		lines := min(bh, h-y0)
		var chans [4][]byte
		for y := y0; y < y0+lines; y++ {
			line := filterLine(img, y)
			for c := 0; c < colors; c++ {
				chans[c] = append(chans[c], line[c]...)
			}
		}
		for c := 0; c < colors; c++ {
			data := chans[c]
			mark := byte(1)
			if opt.Compress {
				data = literalLZSS(data)
				mark = 0
			}
			out = append(out, mark)
			out = binary.LittleEndian.AppendUint32(out, uint32(len(data)))
			out = append(out, data...)
		}
	}
	return out
}

// WrapTLG0 は TLG5/TLG6 本体を TLG0 コンテナに入れます
func WrapTLG0(inner []byte, tags map[string]string) []byte {
	out := []byte(tlg.SigTLG0)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(inner)))
	out = append(out, inner...)
	if len(tags) > 0 {
		var chunk []byte
		for k, v := range tags {
			chunk = appendLP(chunk, k)
			chunk = append(chunk, '=')
			chunk = appendLP(chunk, v)
			chunk = append(chunk, ',')
		}
		out = append(out, "tags"...)
		out = binary.LittleEndian.AppendUint32(out, uint32(len(chunk)))
		out = append(out, chunk...)
	}
	return out
}

func appendLP(b []byte, s string) []byte {
	b = strconv.AppendInt(b, int64(len(s)), 10)
	b = append(b, ':')
	return append(b, s...)
}

// filterLine は1行を B, G, R, A の差分チャネルに変換します
func filterLine(img *image.NRGBA, y int) [4][]byte {
	w := img.Rect.Dx()
	var line [4][]byte
	for c := range line {
		line[c] = make([]byte, w)
	}

	var prev [4]byte // 左隣の上差分
	for x := 0; x < w; x++ {
		o := y*img.Stride + x*4
		var d [4]byte // R, G, B, A の上差分
		for c := 0; c < 4; c++ {
			d[c] = img.Pix[o+c]
			if y > 0 {
				d[c] -= img.Pix[o-img.Stride+c]
			}
		}
		r, g, b, a := d[0]-prev[0], d[1]-prev[1], d[2]-prev[2], d[3]-prev[3]
		prev = d
		line[0][x] = b - g
		line[1][x] = g
		line[2][x] = r - g
		line[3][x] = a
	}
	return line
}

func literalLZSS(data []byte) []byte {
	var out []byte
	for i := 0; i < len(data); i += 8 {
		out = append(out, 0x00)
		out = append(out, data[i:min(i+8, len(data))]...)
	}
	return out
}
