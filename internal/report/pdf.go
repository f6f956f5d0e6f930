package report

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strconv"

	"github.com/go-pdf/fpdf"
)

// =============================================================================
// PDF Generator
// =============================================================================

// PDFGenerator renders reports with fpdf core fonts on A4 pages.
type PDFGenerator struct {
	pageWidth    float64
	margin       float64
	contentWidth float64
	photoGap     float64
	maxPhotoH    float64
}

// NewPDFGenerator creates a PDF generator with default page settings.
func NewPDFGenerator() *PDFGenerator {
	margin := 15.0
	pageWidth := 210.0
	return &PDFGenerator{
		pageWidth:    pageWidth,
		margin:       margin,
		contentWidth: pageWidth - 2*margin,
		photoGap:     6,
		maxPhotoH:    80,
	}
}

// Generate renders the report and writes it to w.
func (g *PDFGenerator) Generate(ctx context.Context, data *Data, w io.Writer) (int64, error) {
	if data == nil || data.Inspection == nil {
		return 0, fmt.Errorf("report: no inspection")
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetTitle(tr("Plant Inspection Report - "+data.Inspection.PlantName), false)
	pdf.SetAuthor(tr(data.OwnerName), false)
	pdf.SetCreator("AgroScan", false)
	pdf.SetMargins(g.margin, g.margin, g.margin)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetFooterFunc(func() {
		g.addFooter(pdf, data)
	})

	pdf.AddPage()
	g.addHeader(pdf, tr, data)
	g.addDetails(pdf, tr, data)
	g.addAnalysis(pdf, tr, data)

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	g.addPhotos(pdf, tr, data)

	if err := pdf.Error(); err != nil {
		return 0, fmt.Errorf("pdf generation error: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return 0, fmt.Errorf("pdf output error: %w", err)
	}
	return buf.WriteTo(w)
}

// =============================================================================
// Sections
// =============================================================================

type translator func(string) string

func (g *PDFGenerator) addHeader(pdf *fpdf.Fpdf, tr translator, data *Data) {
	r, gr, b := HexToRGB(Colors.Leaf)
	pdf.SetFillColor(r, gr, b)
	pdf.Rect(0, 0, g.pageWidth, 45, "F")

	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 24)
	pdf.SetXY(g.margin, 14)
	pdf.Cell(0, 10, "Plant Inspection Report")

	pdf.SetFont("Helvetica", "", 13)
	pdf.SetXY(g.margin, 27)
	pdf.Cell(0, 8, tr(TruncateText(data.Inspection.PlantName, 70)))

	r, gr, b = HexToRGB(Colors.TextDark)
	pdf.SetTextColor(r, gr, b)
	pdf.SetXY(g.margin, 55)
}

func (g *PDFGenerator) addDetails(pdf *fpdf.Fpdf, tr translator, data *Data) {
	g.addSectionHeader(pdf, "Inspection Details")

	insp := data.Inspection
	g.addLabelValue(pdf, tr, "Inspection #", strconv.FormatInt(insp.ID, 10))
	g.addLabelValue(pdf, tr, "Date", FormatDate(insp.InspectionDate))
	g.addLabelValue(pdf, tr, "Location", data.Location())
	if data.OwnerName != "" {
		owner := data.OwnerName
		if data.OwnerEmail != "" {
			owner += " <" + data.OwnerEmail + ">"
		}
		g.addLabelValue(pdf, tr, "Inspected by", owner)
	}
	g.addLabelValue(pdf, tr, "Photos", strconv.Itoa(len(insp.Images)))

	if insp.Notes != "" {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.Cell(0, 6, "Notes:")
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(g.contentWidth, 5, tr(insp.Notes), "", "L", false)
	}
	pdf.Ln(8)
}

func (g *PDFGenerator) addAnalysis(pdf *fpdf.Fpdf, tr translator, data *Data) {
	g.addSectionHeader(pdf, "Analysis")

	a := data.Inspection.Analysis
	if a == nil {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.Cell(0, 8, "No analysis has been recorded for this inspection.")
		pdf.Ln(12)
		return
	}

	// Status bar
	r, gr, b := HexToRGB(StatusColor(a.Status))
	pdf.SetFillColor(r, gr, b)
	pdf.Rect(g.margin, pdf.GetY(), 4, 8, "F")
	pdf.SetX(g.margin + 8)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.SetTextColor(r, gr, b)
	pdf.Cell(0, 8, tr(a.Status))
	pdf.Ln(10)

	r, gr, b = HexToRGB(Colors.TextDark)
	pdf.SetTextColor(r, gr, b)
	g.addLabelValue(pdf, tr, "Confidence", strconv.FormatFloat(a.ConfidenceScore, 'f', 1, 64)+"%")
	g.addConfidenceBar(pdf, a.ConfidenceScore, StatusColor(a.Status))

	if a.Description != "" {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.Cell(0, 6, "Description:")
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(g.contentWidth, 5, tr(a.Description), "", "L", false)
		pdf.Ln(3)
	}
	if a.TreatmentRecommendation != "" {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.Cell(0, 6, "Recommended treatment:")
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(g.contentWidth, 5, tr(a.TreatmentRecommendation), "", "L", false)
	}
	pdf.Ln(8)
}

// addConfidenceBar draws a 0-100 gauge filled to score.
func (g *PDFGenerator) addConfidenceBar(pdf *fpdf.Fpdf, score float64, color string) {
	const width, height = 80.0, 4.0
	score = max(0, min(score, 100))

	y := pdf.GetY() + 1
	r, gr, b := HexToRGB(Colors.Panel)
	pdf.SetFillColor(r, gr, b)
	pdf.Rect(g.margin+40, y, width, height, "F")
	r, gr, b = HexToRGB(color)
	pdf.SetFillColor(r, gr, b)
	pdf.Rect(g.margin+40, y, width*score/100, height, "F")
	pdf.Ln(height + 5)
}

func (g *PDFGenerator) addPhotos(pdf *fpdf.Fpdf, tr translator, data *Data) {
	if len(data.Photos) == 0 {
		return
	}
	if pdf.GetY() > 200 {
		pdf.AddPage()
	}
	g.addSectionHeader(pdf, "Photos")

	cellW := (g.contentWidth - g.photoGap) / 2
	col := 0
	rowTop := pdf.GetY()
	rowH := 0.0

	for _, photo := range data.Photos {
		cfg, format, err := image.DecodeConfig(bytes.NewReader(photo.Data))
		if err != nil || cfg.Width == 0 || cfg.Height == 0 {
			continue
		}
		imageType := "JPG"
		if format == "png" {
			imageType = "PNG"
		}

		w := cellW
		h := w * float64(cfg.Height) / float64(cfg.Width)
		if h > g.maxPhotoH {
			h = g.maxPhotoH
			w = h * float64(cfg.Width) / float64(cfg.Height)
		}

		if col == 0 && rowTop+h+8 > 277 {
			pdf.AddPage()
			rowTop = pdf.GetY()
		}

		name := "photo-" + strconv.FormatInt(photo.ImageID, 10)
		opts := fpdf.ImageOptions{ImageType: imageType}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(photo.Data))

		x := g.margin + float64(col)*(cellW+g.photoGap)
		pdf.ImageOptions(name, x, rowTop, w, h, false, opts, 0, "")

		pdf.SetXY(x, rowTop+h+1)
		pdf.SetFont("Helvetica", "", 8)
		r, gr, b := HexToRGB(Colors.TextMuted)
		pdf.SetTextColor(r, gr, b)
		pdf.CellFormat(cellW, 5, tr(TruncateText(photo.OriginalFilename, 45)), "", 0, "L", false, 0, "")
		r, gr, b = HexToRGB(Colors.TextDark)
		pdf.SetTextColor(r, gr, b)

		rowH = max(rowH, h+7)
		col++
		if col == 2 {
			col = 0
			rowTop += rowH + g.photoGap
			rowH = 0
		}
	}
	pdf.SetXY(g.margin, rowTop+rowH)
}

// =============================================================================
// Helpers
// =============================================================================

func (g *PDFGenerator) addSectionHeader(pdf *fpdf.Fpdf, title string) {
	r, gr, b := HexToRGB(Colors.Leaf)
	pdf.SetDrawColor(r, gr, b)
	pdf.SetLineWidth(0.5)
	pdf.SetFont("Helvetica", "B", 15)
	pdf.SetTextColor(r, gr, b)
	pdf.Cell(0, 9, title)
	pdf.Ln(10)
	pdf.Line(g.margin, pdf.GetY(), g.pageWidth-g.margin, pdf.GetY())
	pdf.Ln(6)

	r, gr, b = HexToRGB(Colors.TextDark)
	pdf.SetTextColor(r, gr, b)
}

func (g *PDFGenerator) addLabelValue(pdf *fpdf.Fpdf, tr translator, label, value string) {
	if value == "" {
		return
	}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.Cell(40, 6, label+":")
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(g.contentWidth-40, 6, tr(value), "", "L", false)
}

func (g *PDFGenerator) addFooter(pdf *fpdf.Fpdf, data *Data) {
	pdf.SetY(-15)

	r, gr, b := HexToRGB(Colors.Border)
	pdf.SetDrawColor(r, gr, b)
	pdf.SetLineWidth(0.2)
	pdf.Line(g.margin, pdf.GetY()-3, g.pageWidth-g.margin, pdf.GetY()-3)

	r, gr, b = HexToRGB(Colors.TextMuted)
	pdf.SetTextColor(r, gr, b)
	pdf.SetFont("Helvetica", "", 8)
	pdf.Cell(0, 10, "Generated: "+FormatDateTime(data.GeneratedAt))

	pdf.SetX(-g.margin - 30)
	pdf.CellFormat(30, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "R", false, 0, "")
}
