package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateImageUpload(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		size     int64
		wantErr  bool
	}{
		{"zero bytes", "leaf.png", 0, true},
		{"no filename", "", 100, true},
		{"gif rejected", "leaf.gif", 1024, true},
		{"no extension", "leaf", 1024, true},
		{"eleven MiB rejected", "leaf.jpg", 11 << 20, true},
		{"exactly ten MiB accepted", "leaf.jpg", 10 << 20, false},
		{"five MiB png accepted", "leaf.png", 5 << 20, false},
		{"upper case extension accepted", "LEAF.JPEG", 1024, false},
		{"webp accepted", "leaf.webp", 1024, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateImageUpload("test", tt.filename, tt.size)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, EINVALID, ErrorCode(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestContentTypeForImageName(t *testing.T) {
	assert.Equal(t, "image/jpeg", ContentTypeForImageName("a.jpg"))
	assert.Equal(t, "image/jpeg", ContentTypeForImageName("a.JPEG"))
	assert.Equal(t, "image/png", ContentTypeForImageName("a.png"))
	assert.Equal(t, "image/webp", ContentTypeForImageName("a.webp"))
	assert.Equal(t, "application/octet-stream", ContentTypeForImageName("a.bin"))
}
