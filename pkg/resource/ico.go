package resource

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/png"

	"golang.org/x/image/bmp"
)

const (
	icoDirLen   = 6
	icoEntryLen = 16
	bmpFileLen  = 14
)

var errIcoNoImage = errors.New("ico: no usable image")

// icoEntry は ICONDIRENTRY の必要な部分です
type icoEntry struct {
	width, height int
	bitCount      int
	size, offset  int
}

// decodeICO は ICO の中で最も大きい画像をデコードします。
// 中身は PNG か、高さが2倍の BITMAPINFOHEADER で始まる DIB です。
func decodeICO(buf []byte) (image.Image, error) {
	if len(buf) < icoDirLen {
		return nil, errIcoNoImage
	}
	count := int(binary.LittleEndian.Uint16(buf[4:]))

	var best *icoEntry
	for i := range count {
		p := icoDirLen + i*icoEntryLen
		if p+icoEntryLen > len(buf) {
			return nil, fmt.Errorf("ico: directory truncated at entry %d", i)
		}
		e := icoEntry{
			width:    int(buf[p]),
			height:   int(buf[p+1]),
			bitCount: int(binary.LittleEndian.Uint16(buf[p+6:])),
			size:     int(binary.LittleEndian.Uint32(buf[p+8:])),
			offset:   int(binary.LittleEndian.Uint32(buf[p+12:])),
		}
		// 0 は 256 を表す
		if e.width == 0 {
			e.width = 256
		}
		if e.height == 0 {
			e.height = 256
		}
		if e.offset < 0 || e.size <= 0 || e.offset+e.size > len(buf) {
			continue
		}
		if best == nil || e.width*e.height > best.width*best.height ||
			(e.width*e.height == best.width*best.height && e.bitCount > best.bitCount) {
			best = &e
		}
	}
	if best == nil {
		return nil, errIcoNoImage
	}

	data := buf[best.offset : best.offset+best.size]
	if bytes.HasPrefix(data, []byte("\x89PNG")) {
		return png.Decode(bytes.NewReader(data))
	}
	return bmp.Decode(bytes.NewReader(dibToBMP(data)))
}

// dibToBMP は ICO の DIB にファイルヘッダを付け、AND マスク分の高さを除きます
func dibToBMP(dib []byte) []byte {
	if len(dib) < 40 {
		return dib
	}
	hdrLen := int(binary.LittleEndian.Uint32(dib))
	bitCount := int(binary.LittleEndian.Uint16(dib[14:]))
	palette := 0
	if bitCount <= 8 {
		palette = int(binary.LittleEndian.Uint32(dib[32:]))
		if palette == 0 {
			palette = 1 << bitCount
		}
	}

	out := make([]byte, bmpFileLen, bmpFileLen+len(dib))
	copy(out, "BM")
	binary.LittleEndian.PutUint32(out[2:], uint32(bmpFileLen+len(dib)))
	binary.LittleEndian.PutUint32(out[10:], uint32(bmpFileLen+hdrLen+palette*4))
	out = append(out, dib...)

	h := int32(binary.LittleEndian.Uint32(out[bmpFileLen+8:]))
	binary.LittleEndian.PutUint32(out[bmpFileLen+8:], uint32(h/2))
	return out
}
