package transcript

import (
	"regexp"
	"strconv"
	"strings"
)

// SubjectExtractor scans transcript text for subject rows.
type SubjectExtractor interface {
	// ExtractSubjects returns the rows in order of appearance.
	ExtractSubjects(text string) []SubjectRecord
}

// One table row: code, name, single-digit credit, grade. Blanks are spaces
// or tabs so a match never crosses a line. The grade must be followed by
// whitespace or end of text so "AB" or "RA" do not pass as "A".
var subjectRowPattern = regexp.MustCompile(
	`\b([A-Z0-9]{5,7})[ \t]+([A-Za-z0-9 &()\-,.]+?)[ \t]+(\d)[ \t]+(O|A\+|A|B\+|B|C|U)(?:\s|$)`)

// PatternSubjectExtractor matches subject rows with a regular expression.
// The pattern must capture code, name, credit and grade in groups 1-4.
type PatternSubjectExtractor struct {
	pattern *regexp.Regexp
}

// NewPatternSubjectExtractor returns the extractor for the standard layout.
func NewPatternSubjectExtractor() *PatternSubjectExtractor {
	return &PatternSubjectExtractor{pattern: subjectRowPattern}
}

// NewCustomSubjectExtractor uses a caller-supplied row pattern.
func NewCustomSubjectExtractor(pattern *regexp.Regexp) *PatternSubjectExtractor {
	return &PatternSubjectExtractor{pattern: pattern}
}

// ExtractSubjects implements SubjectExtractor.
func (e *PatternSubjectExtractor) ExtractSubjects(text string) []SubjectRecord {
	matches := e.pattern.FindAllStringSubmatch(text, -1)
	subjects := make([]SubjectRecord, 0, len(matches))
	for _, m := range matches {
		if len(m) < 5 {
			continue
		}
		credit, err := strconv.Atoi(m[3])
		if err != nil || credit < 0 {
			continue
		}
		grade := Grade(m[4])
		if !grade.IsKnown() {
			continue
		}
		subjects = append(subjects, SubjectRecord{
			Code:   CanonicalCode(m[1]),
			Name:   strings.TrimSpace(m[2]),
			Credit: credit,
			Grade:  grade,
		})
	}
	return subjects
}
