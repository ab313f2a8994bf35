package imageprocessor

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngOf(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestProcessPhoto_CropsToSquareJPEG(t *testing.T) {
	p := NewProcessor(0)

	out, err := p.ProcessPhoto(pngOf(t, 800, 600))
	require.NoError(t, err)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, PhotoSize, cfg.Width)
	assert.Equal(t, PhotoSize, cfg.Height)
}

func TestProcessPhoto_DoesNotUpscale(t *testing.T) {
	out, err := NewProcessor(90).ProcessPhoto(pngOf(t, 120, 200))
	require.NoError(t, err)

	w, h, err := Dimensions(out)
	require.NoError(t, err)
	assert.Equal(t, 120, w)
	assert.Equal(t, 120, h)
}

func TestProcessPhoto_Rejects(t *testing.T) {
	p := NewProcessor(85)

	_, err := p.ProcessPhoto([]byte("%PDF-1.4 not an image"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = p.ProcessPhoto(pngOf(t, 32, 32))
	assert.ErrorIs(t, err, ErrImageTooSmall)
}

func TestSquareCrop(t *testing.T) {
	assert.Equal(t, image.Rect(100, 0, 700, 600), squareCrop(image.Rect(0, 0, 800, 600)))
	assert.Equal(t, image.Rect(0, 50, 300, 350), squareCrop(image.Rect(0, 0, 300, 400)))
}
