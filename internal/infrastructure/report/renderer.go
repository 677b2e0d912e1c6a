// Package report renders transcript summaries as downloadable artifacts:
// the printable CGPA certificate (PDF) and a machine-readable JSON view.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/shagyeeen/cgpa-shyne/internal/domain/shared"
	"github.com/shagyeeen/cgpa-shyne/internal/domain/transcript"
)

// Format names an output format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatJSON Format = "json"
)

// ParseFormat maps user input to a Format. Empty input selects PDF.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatPDF:
		return FormatPDF, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", shared.ErrUnsupportedFormat
	}
}

// Renderer writes a summary to w.
type Renderer = transcript.Renderer

// Registry resolves renderers by format.
type Registry struct {
	renderers map[Format]Renderer
}

// NewRegistry creates a Registry with the PDF certificate and JSON renderers.
func NewRegistry(title string) *Registry {
	return &Registry{
		renderers: map[Format]Renderer{
			FormatPDF:  NewPDFRenderer(title),
			FormatJSON: JSONRenderer{},
		},
	}
}

// Renderer returns the renderer for a user-supplied format name.
func (r *Registry) Renderer(format string) (transcript.Renderer, error) {
	f, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}
	renderer, ok := r.renderers[f]
	if !ok {
		return nil, shared.ErrUnsupportedFormat
	}
	return renderer, nil
}

// JSONRenderer writes the summary as indented JSON.
type JSONRenderer struct{}

// Render implements Renderer.
func (JSONRenderer) Render(_ context.Context, summary transcript.Summary, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("json report: %w", err)
	}
	return nil
}

// ContentType implements Renderer.
func (JSONRenderer) ContentType() string { return "application/json" }

// Extension implements Renderer.
func (JSONRenderer) Extension() string { return ".json" }

// FileName replaces the extension of name with the renderer's.
func FileName(name string, r Renderer) string {
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	return name + r.Extension()
}
