// Package document turns uploaded transcript files into plain text for the
// transcript engine.
//
// Key components:
//   - Extractor: routes a document to the PDF or plain-text reader by
//     magic bytes and file extension, then normalizes the result
//   - CachedExtractor: memoizes extracted text by content digest
package document

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/shagyeeen/cgpa-shyne/internal/domain/shared"
	"github.com/shagyeeen/cgpa-shyne/pkg/logger"
)

// Format identifies a supported document format.
type Format string

const (
	FormatPDF     Format = "pdf"
	FormatText    Format = "text"
	FormatUnknown Format = ""
)

var pdfMagic = []byte("%PDF-")

// Detect returns the format of a document. Magic bytes win over the
// extension so that a renamed PDF is still read as a PDF.
func Detect(name string, data []byte) Format {
	if bytes.HasPrefix(data, pdfMagic) {
		return FormatPDF
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return FormatPDF
	case ".txt", ".text":
		return FormatText
	}

	if utf8.Valid(data) && bytes.IndexByte(data, 0) < 0 {
		return FormatText
	}
	return FormatUnknown
}

// Reader converts the raw bytes of one format into text.
type Reader interface {
	Read(ctx context.Context, data []byte) (string, error)
}

// Extractor dispatches documents to format readers.
type Extractor struct {
	readers map[Format]Reader
	logger  *logger.Logger
}

// NewExtractor creates an Extractor with the PDF and plain-text readers.
func NewExtractor(log *logger.Logger) *Extractor {
	if log == nil {
		log = logger.Nop()
	}
	return &Extractor{
		readers: map[Format]Reader{
			FormatPDF:  NewPDFReader(),
			FormatText: TextReader{},
		},
		logger: log.With(logger.Component("document")),
	}
}

// ExtractText returns the normalized text of a document. The error is
// shared.ErrUnsupportedDocument when no reader handles the format.
func (e *Extractor) ExtractText(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	format := Detect(name, data)
	reader, ok := e.readers[format]
	if !ok {
		return "", shared.ErrUnsupportedDocument
	}

	text, err := reader.Read(ctx, data)
	if err != nil {
		return "", err
	}

	e.logger.Debug("document extracted",
		logger.DocumentName(name),
		logger.String("format", string(format)),
		logger.Int("bytes", len(data)),
		logger.Int("chars", len(text)),
	)

	return Normalize(text), nil
}
