// Package domain contains core business types and interfaces.
//
// This file defines the Image domain type and the upload rules for
// inspection photos.
package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// =============================================================================
// Image Constants
// =============================================================================

const (
	// MaxImageSize is the maximum allowed size for an uploaded image (10 MiB).
	MaxImageSize = 10 << 20

	// ThumbnailMaxWidth is the maximum width for generated thumbnails.
	ThumbnailMaxWidth = 300

	// ThumbnailMaxHeight is the maximum height for generated thumbnails.
	ThumbnailMaxHeight = 300

	// ThumbnailJPEGQuality is the JPEG quality for thumbnail generation (0-100).
	ThumbnailJPEGQuality = 85
)

// ImageContentTypes maps the accepted extensions to the content type served
// for them.
var ImageContentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// =============================================================================
// Image Domain Type
// =============================================================================

// Image is a photo attached to an inspection. ImageName is the generated
// storage filename; it is also what GET /images/file/{imageName} takes.
type Image struct {
	ID               int64     `json:"id"`
	InspectionID     int64     `json:"inspectionId"`
	ImageName        string    `json:"imageName"`
	ThumbnailName    string    `json:"thumbnailName,omitempty"`
	OriginalFilename string    `json:"originalFilename"`
	ContentType      string    `json:"contentType"`
	SizeBytes        int64     `json:"sizeBytes"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// HasThumbnail returns true if a thumbnail was generated for the image.
func (i *Image) HasThumbnail() bool {
	return i.ThumbnailName != ""
}

// UploadFile is one file from a multipart upload, already read into memory.
type UploadFile struct {
	Filename string
	Data     []byte
}

// Size returns the number of bytes in the file.
func (f UploadFile) Size() int64 {
	return int64(len(f.Data))
}

// ImageExtension returns the lower-cased extension of name, including the dot.
func ImageExtension(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// ValidateImageUpload applies the upload rules in order: the file must be
// present and non-empty, carry an accepted extension, and fit in MaxImageSize.
func ValidateImageUpload(op, filename string, size int64) error {
	if filename == "" || size <= 0 {
		return NewValidationError(op, "imageFile", "No file uploaded or file is empty")
	}
	if _, ok := ImageContentTypes[ImageExtension(filename)]; !ok {
		return NewValidationError(op, "imageFile", "Only JPG, JPEG, PNG and WEBP images are allowed")
	}
	if size > MaxImageSize {
		return NewValidationError(op, "imageFile", "File size must not exceed 10MB")
	}
	return nil
}

// ContentTypeForImageName returns the content type served for a stored image,
// falling back to application/octet-stream for unknown extensions.
func ContentTypeForImageName(name string) string {
	if ct, ok := ImageContentTypes[ImageExtension(name)]; ok {
		return ct
	}
	return "application/octet-stream"
}
