// Package imaging prepares team pictures: center-crop to a square, resize
// and re-encode as PNG.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	"image/png"

	"golang.org/x/image/draw"
)

// DefaultSize is the edge length of normalised pictures.
const DefaultSize = 512

// PNGContentType is the content type of Normalise output.
const PNGContentType = "image/png"

// Normalise decodes a JPEG, PNG or GIF image, crops the largest centred
// square, scales it to size×size and encodes the result as PNG.
func Normalise(data []byte, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultSize
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	crop := CenterSquare(src.Bounds())
	if crop.Empty() {
		return nil, fmt.Errorf("decode image: empty bounds")
	}

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// CenterSquare returns the largest square centred in r.
func CenterSquare(r image.Rectangle) image.Rectangle {
	w, h := r.Dx(), r.Dy()
	side := min(w, h)
	x0 := r.Min.X + (w-side)/2
	y0 := r.Min.Y + (h-side)/2
	return image.Rect(x0, y0, x0+side, y0+side)
}
