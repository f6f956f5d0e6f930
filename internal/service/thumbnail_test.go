package service

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func pngFixture(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func TestGenerateThumbnail_FitsBounds(t *testing.T) {
	p := NewImagingProcessor()

	thumb, err := p.GenerateThumbnail(bytes.NewReader(pngFixture(t, 600, 400)), 300, 300)
	if err != nil {
		t.Fatalf("GenerateThumbnail() error = %v", err)
	}

	img, err := jpeg.Decode(bytes.NewReader(thumb))
	if err != nil {
		t.Fatalf("thumbnail is not a JPEG: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 300 || b.Dy() != 200 {
		t.Errorf("thumbnail size = %dx%d, want 300x200", b.Dx(), b.Dy())
	}
}

func TestGenerateThumbnail_RejectsGarbage(t *testing.T) {
	p := NewImagingProcessor()
	if _, err := p.GenerateThumbnail(bytes.NewReader([]byte("not an image")), 300, 300); err == nil {
		t.Error("expected error for undecodable input")
	}
}
