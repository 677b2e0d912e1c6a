package document

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// PDFReader extracts the text of every page in reading order: one line per
// baseline, table cells separated by spaces. Pages without a content stream
// are skipped.
type PDFReader struct{}

// NewPDFReader creates a PDFReader.
func NewPDFReader() PDFReader {
	return PDFReader{}
}

// Read implements Reader.
func (PDFReader) Read(ctx context.Context, data []byte) (text string, err error) {
	// The pdf package panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("pdf: malformed document: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf: open: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		pageText := layoutText(page.Content().Text)
		if pageText == "" {
			continue
		}
		sb.WriteString(pageText)
	}

	return sb.String(), nil
}

// TextReader passes UTF-8 text through unchanged.
type TextReader struct{}

// Read implements Reader.
func (TextReader) Read(_ context.Context, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("text: invalid UTF-8")
	}
	return string(data), nil
}
