package transcript

import (
	"regexp"
	"strings"
)

// IdentityExtractor finds the candidate's identity in transcript text.
// Implementations never fail; missing fields fall back to placeholders.
type IdentityExtractor interface {
	ExtractIdentity(text string) StudentIdentity
}

var (
	// Matching is case-insensitive and the captured value keeps its case. The
	// colon is optional but a label must end at a word boundary, so
	// "Register Number" is not read as "Register No" plus "umber". The name
	// stops before "Month"/"Date" or at the end of the line.
	candidateNamePattern = regexp.MustCompile(
		`(?i)Name of the Candidate\b\s*:?\s*([A-Z][A-Z ]*?)(?:\s+(?:Month|Date)|[ \t]*(?:\n|$))`)

	registerNumberPattern = regexp.MustCompile(
		`(?i)Register No\b\s*:?\s*([A-Z0-9]+)`)
)

// PatternIdentityExtractor matches label/value pairs with regular expressions.
type PatternIdentityExtractor struct {
	name     *regexp.Regexp
	register *regexp.Regexp
}

// NewPatternIdentityExtractor returns the extractor for the standard
// "Name of the Candidate" / "Register No" labels.
func NewPatternIdentityExtractor() *PatternIdentityExtractor {
	return &PatternIdentityExtractor{
		name:     candidateNamePattern,
		register: registerNumberPattern,
	}
}

// NewCustomIdentityExtractor uses caller-supplied patterns. Each pattern must
// capture the value in its first group.
func NewCustomIdentityExtractor(name, register *regexp.Regexp) *PatternIdentityExtractor {
	return &PatternIdentityExtractor{name: name, register: register}
}

// ExtractIdentity implements IdentityExtractor.
func (e *PatternIdentityExtractor) ExtractIdentity(text string) StudentIdentity {
	id := PlaceholderIdentity()
	if v := firstGroup(e.name, text); v != "" {
		id.Name = v
	}
	if v := firstGroup(e.register, text); v != "" {
		id.RegisterNumber = v
	}
	return id
}

func firstGroup(re *regexp.Regexp, text string) string {
	if re == nil {
		return ""
	}
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}
