package service

import (
	"bytes"
	"fmt"
	"image"
	"io"

	// Decoders for the accepted upload formats.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/25S2-PRT681-Group-D/server/internal/domain"
	"github.com/disintegration/imaging"
)

// ThumbnailProcessor produces JPEG thumbnails for uploaded photos.
type ThumbnailProcessor interface {
	// GenerateThumbnail returns JPEG bytes that fit within maxWidth x maxHeight
	// with the aspect ratio preserved.
	GenerateThumbnail(data io.Reader, maxWidth, maxHeight int) ([]byte, error)
}

type imagingProcessor struct{}

// NewImagingProcessor creates a ThumbnailProcessor backed by the imaging
// library. JPEG, PNG and WebP input is supported.
func NewImagingProcessor() ThumbnailProcessor {
	return &imagingProcessor{}
}

func (p *imagingProcessor) GenerateThumbnail(data io.Reader, maxWidth, maxHeight int) ([]byte, error) {
	img, _, err := image.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	thumb := imaging.Fit(img, maxWidth, maxHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(domain.ThumbnailJPEGQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
