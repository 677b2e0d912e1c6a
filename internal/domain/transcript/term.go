package transcript

import (
	"regexp"
	"strconv"
)

// TermResolver decides which academic term a transcript belongs to.
type TermResolver interface {
	// ResolveTerm returns the positive term number, or false if unresolved.
	ResolveTerm(text string) (int, bool)
}

// TermStrategy is one way of recognizing a term number.
type TermStrategy interface {
	TermResolver
	Name() string
}

// ══════════════════════════════════════════════════════════════════════════════
// CHAIN
// ══════════════════════════════════════════════════════════════════════════════

// TermChain tries strategies in order; the first one that resolves wins.
type TermChain struct {
	strategies []TermStrategy
}

// NewTermChain builds a chain from the given strategies.
func NewTermChain(strategies ...TermStrategy) *TermChain {
	return &TermChain{strategies: strategies}
}

// DefaultTermChain checks an explicit "SEMESTER n" label first and falls back
// to the semester digit embedded in subject codes.
func DefaultTermChain() *TermChain {
	return NewTermChain(NewLabelTermStrategy(), NewCodeTermStrategy())
}

// ResolveTerm implements TermResolver.
func (c *TermChain) ResolveTerm(text string) (int, bool) {
	n, _, ok := c.Resolve(text)
	return n, ok
}

// Resolve is ResolveTerm that also reports which strategy matched.
func (c *TermChain) Resolve(text string) (int, string, bool) {
	for _, s := range c.strategies {
		if n, ok := s.ResolveTerm(text); ok {
			return n, s.Name(), true
		}
	}
	return 0, "", false
}

// ══════════════════════════════════════════════════════════════════════════════
// STRATEGIES
// ══════════════════════════════════════════════════════════════════════════════

var semesterLabelPattern = regexp.MustCompile(`(?i)SEMESTER\s*[:\-]?\s*(\d+)`)

// LabelTermStrategy reads an explicit "SEMESTER <n>" label.
type LabelTermStrategy struct {
	pattern *regexp.Regexp
}

// NewLabelTermStrategy returns the label strategy.
func NewLabelTermStrategy() *LabelTermStrategy {
	return &LabelTermStrategy{pattern: semesterLabelPattern}
}

// Name implements TermStrategy.
func (s *LabelTermStrategy) Name() string { return "label" }

// ResolveTerm implements TermResolver.
func (s *LabelTermStrategy) ResolveTerm(text string) (int, bool) {
	for _, m := range s.pattern.FindAllStringSubmatch(text, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return n, true
		}
	}
	return 0, false
}

// Subject codes shaped like 21CS301: regulation year, department, then the
// semester digit followed by a two-digit serial.
var termCodePattern = regexp.MustCompile(`\b\d{2}[A-Z]{2}(\d)\d{2}\b`)

// CodeTermStrategy infers the term from the semester digit of a subject code.
type CodeTermStrategy struct {
	pattern *regexp.Regexp
}

// NewCodeTermStrategy returns the subject-code strategy.
func NewCodeTermStrategy() *CodeTermStrategy {
	return &CodeTermStrategy{pattern: termCodePattern}
}

// Name implements TermStrategy.
func (s *CodeTermStrategy) Name() string { return "subject_code" }

// ResolveTerm implements TermResolver.
func (s *CodeTermStrategy) ResolveTerm(text string) (int, bool) {
	for _, m := range s.pattern.FindAllStringSubmatch(text, -1) {
		if n := int(m[1][0] - '0'); n > 0 {
			return n, true
		}
	}
	return 0, false
}
