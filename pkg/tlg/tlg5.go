package tlg

import (
	"fmt"
	"image"

	"github.com/shiroemons/go-akaibu/pkg/crypto"
)

// decodeTLG5 は TLG5 をデコードします。
//
// 画像は blockHeight 行ごとのブロックに分かれ、各ブロックは色チャネルごとに
// LZSS 圧縮 (mark == 0) または無圧縮で格納されています。LZSS のリングは
// 全ブロックで共有されます。チャネルは B, G, R, (A) の順で、B と R は G との差分、
// 各行は左からの累積和、さらに上の行との差分になっています。
func decodeTLG5(buf []byte) (*image.NRGBA, error) {
	r := reader{buf: buf, off: sigLen}

	colors, err := r.u8()
	if err != nil {
		return nil, err
	}
	if colors != 3 && colors != 4 {
		return nil, fmt.Errorf("%w: unsupported color count %d", ErrCorrupt, colors)
	}

	var dims [3]uint32
	for i := range dims {
		if dims[i], err = r.u32(); err != nil {
			return nil, err
		}
	}
	width, height, blockHeight := int(dims[0]), int(dims[1]), int(dims[2])
	if width == 0 || height == 0 || width > maxDimension || height > maxDimension {
		return nil, fmt.Errorf("%w: invalid size %dx%d", ErrCorrupt, width, height)
	}
	if blockHeight == 0 {
		return nil, fmt.Errorf("%w: zero block height", ErrCorrupt)
	}
	blockHeight = min(blockHeight, height)

	// ブロックサイズ表は使わない
	blockCount := (height-1)/blockHeight + 1
	if _, err := r.bytes(blockCount * 4); err != nil {
		return nil, err
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	slide := crypto.NewSlide()

	var chans [4][]byte
	for c := 0; c < int(colors); c++ {
		chans[c] = make([]byte, blockHeight*width)
	}

	for y0 := 0; y0 < height; y0 += blockHeight {
		lines := min(blockHeight, height-y0)
		need := lines * width

		for c := 0; c < int(colors); c++ {
			mark, err := r.u8()
			if err != nil {
				return nil, err
			}
			size, err := r.u32()
			if err != nil {
				return nil, err
			}
			data, err := r.bytes(int(size))
			if err != nil {
				return nil, err
			}

			n := 0
			if mark == 0 {
				n, err = slide.Decode(chans[c], data)
				if err != nil {
					return nil, fmt.Errorf("%w: block at line %d channel %d: %w", ErrCorrupt, y0, c, err)
				}
			} else {
				n = copy(chans[c], data)
			}
			if n < need {
				return nil, fmt.Errorf("%w: block at line %d channel %d has %d bytes, need %d", ErrCorrupt, y0, c, n, need)
			}
		}

		for y := y0; y < y0+lines; y++ {
			composeLine(img, y, chans, int(colors), (y-y0)*width)
		}
	}

	return img, nil
}

// composeLine は1行分のチャネルデータから RGBA を復元して img の y 行目に書き込みます
func composeLine(img *image.NRGBA, y int, chans [4][]byte, colors, base int) {
	row := img.Pix[y*img.Stride : y*img.Stride+img.Rect.Dx()*4]
	var upper []byte
	if y > 0 {
		upper = img.Pix[(y-1)*img.Stride:]
	}

	var pr, pg, pb, pa byte
	for x := 0; x < img.Rect.Dx(); x++ {
		i := base + x
		g := chans[1][i]
		pb += chans[0][i] + g
		pg += g
		pr += chans[2][i] + g
		if colors == 4 {
			pa += chans[3][i]
		}

		var ur, ug, ub, ua byte
		if upper != nil {
			ur, ug, ub, ua = upper[x*4], upper[x*4+1], upper[x*4+2], upper[x*4+3]
		}

		o := x * 4
		row[o] = pr + ur
		row[o+1] = pg + ug
		row[o+2] = pb + ub
		if colors == 4 {
			row[o+3] = pa + ua
		} else {
			row[o+3] = 0xff
		}
	}
}
