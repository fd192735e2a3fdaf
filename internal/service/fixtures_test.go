package service

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func opaqueRGBA(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	return img
}

func translucentNRGBA(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 128})
	return img
}

func pngRGB(t *testing.T, w, h int) []byte {
	return encodePNG(t, opaqueRGBA(w, h))
}

func pngRGBA(t *testing.T, w, h int) []byte {
	return encodePNG(t, translucentNRGBA(w, h))
}

func pngGray(t *testing.T, w, h int) []byte {
	return encodePNG(t, image.NewGray(image.Rect(0, 0, w, h)))
}

func pngGray16(t *testing.T, w, h int) []byte {
	return encodePNG(t, image.NewGray16(image.Rect(0, 0, w, h)))
}

func pngPaletted(t *testing.T, w, h int) []byte {
	pal := color.Palette{color.Black, color.White}
	return encodePNG(t, image.NewPaletted(image.Rect(0, 0, w, h), pal))
}

func jpegRGB(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, opaqueRGBA(w, h), nil))
	return buf.Bytes()
}

func jpegGray(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h)), nil))
	return buf.Bytes()
}

func gifImage(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, opaqueRGBA(w, h), nil))
	return buf.Bytes()
}

func bmpImage(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, opaqueRGBA(w, h)))
	return buf.Bytes()
}

func tiffImage(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, tiff.Encode(&buf, opaqueRGBA(w, h), nil))
	return buf.Bytes()
}
