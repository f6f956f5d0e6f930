// Package report renders a printable PDF summary of a single plant
// inspection: the inspection details, its analysis and thumbnails of the
// attached photos.
package report

import (
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/25S2-PRT681-Group-D/server/internal/domain"
)

// ContentType is the MIME type of a generated report.
const ContentType = "application/pdf"

// =============================================================================
// Generator Interface
// =============================================================================

// Generator renders an inspection report.
type Generator interface {
	// Generate writes the report to w and returns the number of bytes
	// written.
	Generate(ctx context.Context, data *Data, w io.Writer) (int64, error)
}

// =============================================================================
// Report Data
// =============================================================================

// Photo is an image thumbnail to embed. Data must be JPEG or PNG.
type Photo struct {
	ImageID          int64
	OriginalFilename string
	ContentType      string
	Data             []byte
}

// Data is everything a report shows. Photos may be shorter than
// Inspection.Images when a thumbnail could not be loaded.
type Data struct {
	Inspection  *domain.Inspection
	OwnerName   string
	OwnerEmail  string
	Photos      []Photo
	GeneratedAt time.Time
}

// Location joins the non-empty city, state and country.
func (d *Data) Location() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{d.Inspection.City, d.Inspection.State, d.Inspection.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// FileName is the download name of the report, e.g.
// inspection_42_20240315.pdf.
func (d *Data) FileName() string {
	return "inspection_" + strconv.FormatInt(d.Inspection.ID, 10) + "_" + d.GeneratedAt.Format("20060102") + ".pdf"
}

// =============================================================================
// Colors
// =============================================================================

// Colors is the report palette.
var Colors = struct {
	Leaf      string
	TextDark  string
	TextMuted string
	Border    string
	Panel     string
}{
	Leaf:      "#2F6B3B",
	TextDark:  "#1F2937",
	TextMuted: "#6B7280",
	Border:    "#E5E7EB",
	Panel:     "#F3F4F6",
}

// StatusColor picks an indicator color for a free-text analysis status.
func StatusColor(status string) string {
	s := strings.ToLower(status)
	switch {
	case strings.Contains(s, "healthy"):
		return "#16A34A"
	case strings.Contains(s, "risk"), strings.Contains(s, "warning"):
		return "#F59E0B"
	case strings.Contains(s, "disease"), strings.Contains(s, "infect"), strings.Contains(s, "dead"):
		return "#DC2626"
	default:
		return Colors.TextMuted
	}
}

// HexToRGB converts "#RRGGBB" or "RRGGBB" to components. Malformed input
// yields black.
func HexToRGB(hex string) (r, g, b int) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return 0, 0, 0
	}
	return hexToDec(hex[0:2]), hexToDec(hex[2:4]), hexToDec(hex[4:6])
}

func hexToDec(hex string) int {
	val := 0
	for _, c := range hex {
		val *= 16
		switch {
		case c >= '0' && c <= '9':
			val += int(c - '0')
		case c >= 'a' && c <= 'f':
			val += int(c - 'a' + 10)
		case c >= 'A' && c <= 'F':
			val += int(c - 'A' + 10)
		}
	}
	return val
}

// =============================================================================
// Text Helpers
// =============================================================================

// TruncateText shortens text to maxLen runes, ending in "..." when cut.
func TruncateText(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// FormatDate formats a date for display.
func FormatDate(t time.Time) string {
	return t.Format("January 2, 2006")
}

// FormatDateTime formats a timestamp for display.
func FormatDateTime(t time.Time) string {
	return t.Format("January 2, 2006 at 3:04 PM")
}
