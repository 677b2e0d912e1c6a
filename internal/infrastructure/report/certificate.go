package report

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/go-pdf/fpdf"

	"github.com/shagyeeen/cgpa-shyne/internal/domain/transcript"
)

// Page geometry in millimetres.
const (
	pageMargin   = 14.0
	lineHeight   = 6.0
	rowHeight    = 7.0
	sectionSpace = 5.0
)

var columnWidths = [4]float64{25, 95, 22, 22}

// PDFRenderer draws the A4 CGPA certificate.
type PDFRenderer struct {
	title string
}

// NewPDFRenderer creates a PDFRenderer with the given heading.
func NewPDFRenderer(title string) *PDFRenderer {
	if title == "" {
		title = "CGPA CERTIFICATE"
	}
	return &PDFRenderer{title: title}
}

// ContentType implements Renderer.
func (r *PDFRenderer) ContentType() string { return "application/pdf" }

// Extension implements Renderer.
func (r *PDFRenderer) Extension() string { return ".pdf" }

// Render implements Renderer.
func (r *PDFRenderer) Render(ctx context.Context, summary transcript.Summary, w io.Writer) error {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(pageMargin, pageMargin, pageMargin)
	doc.SetAutoPageBreak(true, pageMargin)
	doc.SetTitle(r.title, true)
	doc.SetCreator("cgpa-shyne", true)

	// Core fonts are cp1252; the translator maps names and the dash.
	tr := doc.UnicodeTranslatorFromDescriptor("")

	doc.AddPage()
	r.header(doc, tr, summary.Identity)

	for _, term := range summary.Terms {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.termSection(doc, tr, term)
	}

	r.certification(doc, tr, summary)

	if err := doc.Output(w); err != nil {
		return fmt.Errorf("pdf report: %w", err)
	}
	return nil
}

func (r *PDFRenderer) header(doc *fpdf.Fpdf, tr func(string) string, id transcript.StudentIdentity) {
	doc.SetFont("Helvetica", "B", 18)
	doc.CellFormat(0, 12, tr(r.title), "", 1, "C", false, 0, "")
	doc.Ln(sectionSpace)

	labelled := func(label, value string) {
		doc.SetFont("Helvetica", "B", 11)
		doc.CellFormat(doc.GetStringWidth(label)+2, lineHeight, label, "", 0, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 11)
		doc.CellFormat(0, lineHeight, tr(value), "", 1, "L", false, 0, "")
	}
	labelled("Name:", id.Name)
	labelled("Register No:", id.RegisterNumber)
	doc.Ln(sectionSpace * 1.5)
}

func (r *PDFRenderer) termSection(doc *fpdf.Fpdf, tr func(string) string, term transcript.TermRecord) {
	doc.SetFont("Helvetica", "B", 13)
	heading := fmt.Sprintf("Semester %d - SGPA: %s", term.TermNumber, formatPoints(term.AveragePoints))
	doc.CellFormat(0, 8, tr(heading), "", 1, "L", false, 0, "")
	doc.Ln(1)

	doc.SetFont("Helvetica", "B", 10)
	doc.SetFillColor(245, 245, 245)
	for i, h := range []string{"Code", "Subject Name", "Credit", "Grade"} {
		doc.CellFormat(columnWidths[i], rowHeight, h, "1", 0, "L", true, 0, "")
	}
	doc.Ln(-1)

	doc.SetFont("Helvetica", "", 10)
	for _, s := range term.Subjects {
		doc.CellFormat(columnWidths[0], rowHeight, tr(s.Code), "1", 0, "L", false, 0, "")
		doc.CellFormat(columnWidths[1], rowHeight, tr(fitText(doc, s.Name, columnWidths[1]-2)), "1", 0, "L", false, 0, "")
		doc.CellFormat(columnWidths[2], rowHeight, strconv.Itoa(s.Credit), "1", 0, "C", false, 0, "")
		doc.CellFormat(columnWidths[3], rowHeight, tr(s.Grade.String()), "1", 0, "C", false, 0, "")
		doc.Ln(-1)
	}
	doc.Ln(sectionSpace)
}

func (r *PDFRenderer) certification(doc *fpdf.Fpdf, tr func(string) string, summary transcript.Summary) {
	centered := func(style string, size float64, text string) {
		doc.SetFont("Helvetica", style, size)
		doc.MultiCell(0, 8, tr(text), "", "C", false)
	}

	doc.Ln(sectionSpace * 2)
	centered("", 16, "This is to certify that")
	centered("B", 16, summary.Identity.Name)
	centered("", 16, "Register Number : "+summary.Identity.RegisterNumber)
	doc.Ln(sectionSpace)
	centered("", 16, fmt.Sprintf("has completed %d semesters", summary.TermCount()))
	centered("", 16, "and secured a Cumulative Grade Point Average (CGPA) of")
	doc.Ln(sectionSpace)
	centered("B", 18, formatPoints(summary.OverallAverage))
}

func formatPoints(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// fitText truncates s so that it fits in width at the current font.
func fitText(doc *fpdf.Fpdf, s string, width float64) string {
	if doc.GetStringWidth(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && doc.GetStringWidth(string(runes)+"...") > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
