package domain

import (
	"fmt"
	"strings"
	"time"
)

// Content types of generated export files.
const (
	ContentTypeCSV  = "text/csv"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ExportFile is a rendered export ready to be streamed or stored.
type ExportFile struct {
	FileName    string
	ContentType string
	Data        []byte
	Rows        int
}

// ExportExtension returns the file extension for an export format.
func ExportExtension(format string) string {
	if format == ExportFormatExcel {
		return "xlsx"
	}
	return "csv"
}

// ExportContentType returns the MIME type for an export format.
func ExportContentType(format string) string {
	if format == ExportFormatExcel {
		return ContentTypeXLSX
	}
	return ContentTypeCSV
}

// ParseExportFormat accepts "csv", "excel" or "xlsx", case-insensitively.
func ParseExportFormat(s string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", ExportFormatCSV:
		return ExportFormatCSV, true
	case ExportFormatExcel, "xlsx":
		return ExportFormatExcel, true
	}
	return "", false
}

// ExportFileName names a download as <type>_YYYYMMDD_HHMMSS.<ext>.
func ExportFileName(exportType, format string, at time.Time) string {
	return fmt.Sprintf("%s_%s.%s", exportType, at.UTC().Format("20060102_150405"), ExportExtension(format))
}

// ImportResult summarises a CSV import. Row numbers are 1-based and count
// the header line.
type ImportResult struct {
	Imported int         `json:"imported"`
	Skipped  int         `json:"skipped"`
	Errors   []ImportRow `json:"errors,omitempty"`
}

// ImportRow describes one rejected input row.
type ImportRow struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// Skip records a rejected row.
func (r *ImportResult) Skip(row int, message string) {
	r.Skipped++
	r.Errors = append(r.Errors, ImportRow{Row: row, Message: message})
}
