package report

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
	"time"

	"github.com/25S2-PRT681-Group-D/server/internal/domain"
)

func sampleJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: 160, B: uint8(y), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func sampleData(t *testing.T) *Data {
	t.Helper()
	return &Data{
		Inspection: &domain.Inspection{
			ID:             42,
			PlantName:      "Tomato Plant",
			InspectionDate: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			Country:        "Australia",
			State:          "NT",
			City:           "Darwin",
			Notes:          "Yellowing on the lower leaves, café-grade soil",
			Images:         []domain.Image{{ID: 1}, {ID: 2}, {ID: 3}},
			Analysis: &domain.Analysis{
				InspectionID:            42,
				Status:                  "At Risk",
				ConfidenceScore:         87.5,
				Description:             "Early blight spots",
				TreatmentRecommendation: "Remove affected leaves and apply copper fungicide",
			},
		},
		OwnerName:  "Jane Farmer",
		OwnerEmail: "jane@farm.test",
		Photos: []Photo{
			{ImageID: 1, OriginalFilename: "leaf.jpg", ContentType: "image/jpeg", Data: sampleJPEG(t, 300, 200)},
			{ImageID: 2, OriginalFilename: "stem.jpg", ContentType: "image/jpeg", Data: sampleJPEG(t, 200, 300)},
			{ImageID: 3, OriginalFilename: "broken.jpg", ContentType: "image/jpeg", Data: []byte("not an image")},
		},
		GeneratedAt: time.Date(2024, 3, 16, 9, 30, 0, 0, time.UTC),
	}
}

// =============================================================================
// PDF Generator Tests
// =============================================================================

func TestGenerate(t *testing.T) {
	var buf bytes.Buffer
	n, err := NewPDFGenerator().Generate(context.Background(), sampleData(t), &buf)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if n != int64(buf.Len()) {
		t.Errorf("returned %d bytes, buffer has %d", n, buf.Len())
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Errorf("output does not start with a PDF header: %q", buf.Bytes()[:8])
	}
}

func TestGenerate_WithoutAnalysisOrPhotos(t *testing.T) {
	data := sampleData(t)
	data.Inspection.Analysis = nil
	data.Photos = nil

	var buf bytes.Buffer
	if _, err := NewPDFGenerator().Generate(context.Background(), data, &buf); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("expected output")
	}
}

func TestGenerate_RequiresInspection(t *testing.T) {
	var buf bytes.Buffer
	if _, err := NewPDFGenerator().Generate(context.Background(), &Data{}, &buf); err == nil {
		t.Error("expected an error for missing inspection")
	}
}

func TestGenerate_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	if _, err := NewPDFGenerator().Generate(ctx, sampleData(t), &buf); err == nil {
		t.Error("expected context error")
	}
	if buf.Len() != 0 {
		t.Error("nothing should be written after cancellation")
	}
}

// =============================================================================
// Helper Tests
// =============================================================================

func TestDataNames(t *testing.T) {
	data := sampleData(t)
	if got := data.FileName(); got != "inspection_42_20240316.pdf" {
		t.Errorf("FileName() = %q", got)
	}
	if got := data.Location(); got != "Darwin, NT, Australia" {
		t.Errorf("Location() = %q", got)
	}

	data.Inspection.State = "  "
	if got := data.Location(); got != "Darwin, Australia" {
		t.Errorf("Location() with blank state = %q", got)
	}
}

func TestStatusColor(t *testing.T) {
	tests := map[string]string{
		"Healthy":  "#16A34A",
		"at risk":  "#F59E0B",
		"Diseased": "#DC2626",
		"Unknown":  Colors.TextMuted,
	}
	for status, want := range tests {
		if got := StatusColor(status); got != want {
			t.Errorf("StatusColor(%q) = %q, want %q", status, got, want)
		}
	}
}

func TestHexToRGB(t *testing.T) {
	tests := []struct {
		hex     string
		r, g, b int
	}{
		{"#2F6B3B", 47, 107, 59},
		{"ffffff", 255, 255, 255},
		{"#abc", 0, 0, 0},
	}
	for _, tt := range tests {
		r, g, b := HexToRGB(tt.hex)
		if r != tt.r || g != tt.g || b != tt.b {
			t.Errorf("HexToRGB(%q) = %d,%d,%d, want %d,%d,%d", tt.hex, r, g, b, tt.r, tt.g, tt.b)
		}
	}
}

func TestTruncateText(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly-ten", 11, "exactly-ten"},
		{"a longer filename.jpg", 10, "a longe..."},
		{"héllo wörld", 8, "héllo..."},
		{"abcdef", 2, "ab"},
	}
	for _, tt := range tests {
		if got := TruncateText(tt.in, tt.max); got != tt.want {
			t.Errorf("TruncateText(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
