package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// GridCell holds the sessions shown at one day and window.
type GridCell struct {
	Day    string
	Window string
	Lines  []string
}

// RoomUsage summarises how many windows a room is used for.
type RoomUsage struct {
	Room     string
	Sessions int
	Capacity int
}

// TimetableDocument is the input of a PDF timetable export.
type TimetableDocument struct {
	Title     string
	Subtitle  string
	Days      []string
	Windows   []string
	Cells     []GridCell
	RoomUsage []RoomUsage
	// SlotsPerWeek is used to compute occupancy percentages in the room report.
	SlotsPerWeek int
}

// PDFExporter renders a weekly grid followed by a room occupancy report.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

const (
	gridLineHeight  = 4.0
	gridLabelWidth  = 24.0
	gridHeaderSize  = 8.0
	reportRowHeight = 7.0
)

// Render creates the PDF document.
func (e *PDFExporter) Render(doc TimetableDocument) ([]byte, error) {
	if len(doc.Days) == 0 || len(doc.Windows) == 0 {
		return nil, fmt.Errorf("pdf requires days and windows")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(false, 10)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	cells := make(map[string][]string, len(doc.Cells))
	for _, cell := range doc.Cells {
		key := cell.Day + "|" + cell.Window
		cells[key] = append(cells[key], cell.Lines...)
	}

	pageW, pageH := pdf.GetPageSize()
	left, _, right, bottom := pdf.GetMargins()
	colWidth := (pageW - left - right - gridLabelWidth) / float64(len(doc.Days))

	header := func() {
		if doc.Title != "" {
			pdf.SetFont("Arial", "B", 14)
			pdf.CellFormat(0, 8, tr(strings.ToUpper(doc.Title)), "", 1, "C", false, 0, "")
		}
		if doc.Subtitle != "" {
			pdf.SetFont("Arial", "", 9)
			pdf.CellFormat(0, 5, tr(doc.Subtitle), "", 1, "C", false, 0, "")
		}
		pdf.Ln(3)
		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(gridLabelWidth, gridHeaderSize, "", "1", 0, "C", false, 0, "")
		for _, day := range doc.Days {
			pdf.CellFormat(colWidth, gridHeaderSize, tr(day), "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 7)
	}

	pdf.AddPage()
	header()
	for _, window := range doc.Windows {
		lines := 1
		for _, day := range doc.Days {
			if n := len(cells[day+"|"+window]); n > lines {
				lines = n
			}
		}
		height := float64(lines)*gridLineHeight + 2
		if pdf.GetY()+height > pageH-bottom {
			pdf.AddPage()
			header()
		}
		y := pdf.GetY()
		x := left
		pdf.Rect(x, y, gridLabelWidth, height, "D")
		pdf.SetXY(x, y+1)
		pdf.MultiCell(gridLabelWidth, gridLineHeight, tr(window), "", "C", false)
		x += gridLabelWidth
		for _, day := range doc.Days {
			pdf.Rect(x, y, colWidth, height, "D")
			if entries := cells[day+"|"+window]; len(entries) > 0 {
				pdf.SetXY(x, y+1)
				pdf.MultiCell(colWidth, gridLineHeight, tr(strings.Join(entries, "\n")), "", "L", false)
			}
			x += colWidth
		}
		pdf.SetXY(left, y+height)
	}

	if len(doc.RoomUsage) > 0 {
		renderRoomReport(pdf, tr, doc)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func renderRoomReport(pdf *gofpdf.Fpdf, tr func(string) string, doc TimetableDocument) {
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "ROOM OCCUPANCY", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	headers := []string{"Room", "Capacity", "Sessions", "Occupancy"}
	widths := []float64{80, 40, 40, 40}
	pdf.SetFont("Arial", "B", 9)
	for i, h := range headers {
		pdf.CellFormat(widths[i], reportRowHeight, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	_, pageH := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	pdf.SetFont("Arial", "", 9)
	for _, usage := range doc.RoomUsage {
		if pdf.GetY()+reportRowHeight > pageH-bottom {
			pdf.AddPage()
		}
		occupancy := "-"
		if doc.SlotsPerWeek > 0 {
			occupancy = fmt.Sprintf("%.1f%%", float64(usage.Sessions)*100/float64(doc.SlotsPerWeek))
		}
		capacity := "-"
		if usage.Capacity > 0 {
			capacity = fmt.Sprintf("%d", usage.Capacity)
		}
		pdf.CellFormat(widths[0], reportRowHeight, tr(usage.Room), "1", 0, "", false, 0, "")
		pdf.CellFormat(widths[1], reportRowHeight, capacity, "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], reportRowHeight, fmt.Sprintf("%d", usage.Sessions), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], reportRowHeight, occupancy, "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
}
