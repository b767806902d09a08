package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stripes builds a w×h image split into three vertical bands: red, green, blue.
func stripes(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		c := color.RGBA{G: 255, A: 255}
		switch {
		case x < w/3:
			c = color.RGBA{R: 255, A: 255}
		case x >= 2*w/3:
			c = color.RGBA{B: 255, A: 255}
		}
		for y := 0; y < h; y++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestCenterSquare(t *testing.T) {
	tests := []struct {
		name string
		in   image.Rectangle
		want image.Rectangle
	}{
		{name: "landscape", in: image.Rect(0, 0, 30, 10), want: image.Rect(10, 0, 20, 10)},
		{name: "portrait", in: image.Rect(0, 0, 10, 40), want: image.Rect(0, 15, 10, 25)},
		{name: "square", in: image.Rect(0, 0, 8, 8), want: image.Rect(0, 0, 8, 8)},
		{name: "offset", in: image.Rect(5, 5, 15, 9), want: image.Rect(8, 5, 12, 9)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CenterSquare(tt.in))
		})
	}
}

func TestNormalise_CropsAndResizes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, stripes(300, 100)))

	out, err := Normalise(buf.Bytes(), 64)

	require.NoError(t, err)
	img, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, image.Rect(0, 0, 64, 64), img.Bounds())

	r, g, b, _ := img.At(32, 32).RGBA()
	assert.Zero(t, r>>8)
	assert.Equal(t, uint32(255), g>>8)
	assert.Zero(t, b>>8)
}

func TestNormalise_AcceptsJPEG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, stripes(40, 80), nil))

	out, err := Normalise(buf.Bytes(), 0)

	require.NoError(t, err)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, DefaultSize, cfg.Width)
	assert.Equal(t, DefaultSize, cfg.Height)
}

func TestNormalise_RejectsGarbage(t *testing.T) {
	_, err := Normalise([]byte("not an image"), 64)

	assert.Error(t, err)
}
