package resource

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/bmp"
	"golang.org/x/image/webp"

	"github.com/shiroemons/go-akaibu/pkg/archive"
)

// PreviewFormat は汎用画像形式です
type PreviewFormat int

// 汎用画像形式
const (
	PreviewNone PreviewFormat = iota
	PreviewPNG
	PreviewJPEG
	PreviewGIF
	PreviewBMP
	PreviewWEBP
	PreviewICO
)

// ParsePreview は汎用画像形式を判別します
func ParsePreview(buf []byte) PreviewFormat {
	switch {
	case bytes.HasPrefix(buf, []byte("\x89PNG")), bytes.HasPrefix(buf, []byte("\x87PNG")):
		return PreviewPNG
	case bytes.HasPrefix(buf, []byte{0xFF, 0xD8, 0xFF}):
		return PreviewJPEG
	case bytes.HasPrefix(buf, []byte("GIF8")):
		return PreviewGIF
	case bytes.HasPrefix(buf, []byte("BM")):
		return PreviewBMP
	case len(buf) >= 12 && string(buf[:4]) == "RIFF" && string(buf[8:12]) == "WEBP":
		return PreviewWEBP
	case bytes.HasPrefix(buf, []byte{0x00, 0x00, 0x01, 0x00}):
		return PreviewICO
	}
	return PreviewNone
}

// Preview は ParseMagic で判別できなかったデータを汎用画像として読み込みます。
// 画像でない場合は TypeOther を返します。
func Preview(buf []byte) (Resource, error) {
	f := ParsePreview(buf)
	if f == PreviewNone {
		return Other(), nil
	}

	// 一部のエンジンは PNG シグネチャの先頭バイトを書き換えている
	if f == PreviewPNG && buf[0] == 0x87 {
		buf = append([]byte{0x89}, buf[1:]...)
	}

	var (
		img image.Image
		err error
	)
	r := bytes.NewReader(buf)
	switch f {
	case PreviewPNG:
		img, err = png.Decode(r)
	case PreviewJPEG:
		img, err = jpeg.Decode(r)
	case PreviewGIF:
		img, err = gif.Decode(r)
	case PreviewBMP:
		img, err = bmp.Decode(r)
	case PreviewWEBP:
		img, err = webp.Decode(r)
	case PreviewICO:
		img, err = decodeICO(buf)
	}
	if err != nil {
		return Resource{}, fmt.Errorf("%w: %w", archive.ErrDecodeFailure, err)
	}
	return Image(toNRGBA(img)), nil
}

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Rect, img, b.Min, draw.Src)
	return out
}
