package transcript

import "strings"

// ══════════════════════════════════════════════════════════════════════════════
// PLACEHOLDERS
// ══════════════════════════════════════════════════════════════════════════════

const (
	// PlaceholderName is used when no candidate name is found in the text.
	PlaceholderName = "Student Name"

	// PlaceholderRegisterNumber is used when no register number is found.
	PlaceholderRegisterNumber = "Register No"

	// codeLength is the canonical subject code length.
	codeLength = 5
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// StudentIdentity holds the candidate fields found in a transcript.
type StudentIdentity struct {
	Name           string `json:"name"`
	RegisterNumber string `json:"register_number"`
}

// PlaceholderIdentity returns an identity with both fields unresolved.
func PlaceholderIdentity() StudentIdentity {
	return StudentIdentity{
		Name:           PlaceholderName,
		RegisterNumber: PlaceholderRegisterNumber,
	}
}

// IsPlaceholder reports whether neither field was resolved.
func (i StudentIdentity) IsPlaceholder() bool {
	return i.Name == PlaceholderName && i.RegisterNumber == PlaceholderRegisterNumber
}

// SubjectRecord is one row of a term's subject table.
type SubjectRecord struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Credit int    `json:"credit"`
	Grade  Grade  `json:"grade"`
}

// Counted reports whether the subject takes part in grade-point math.
// Zero-credit subjects are kept for display only.
func (s SubjectRecord) Counted() bool {
	return s.Credit > 0
}

// CanonicalCode trims a subject code to its trailing five characters so that
// institution prefixes ("21CS301" vs "CS301") collapse to the same code.
func CanonicalCode(code string) string {
	code = strings.TrimSpace(code)
	if len(code) <= codeLength {
		return code
	}
	return code[len(code)-codeLength:]
}

// ══════════════════════════════════════════════════════════════════════════════
// AGGREGATES
// ══════════════════════════════════════════════════════════════════════════════

// TermRecord is the extracted record of one academic term.
type TermRecord struct {
	TermNumber          int             `json:"term_number"`
	Subjects            []SubjectRecord `json:"subjects"`
	AveragePoints       float64         `json:"average_points"`
	TotalCredits        int             `json:"total_credits"`
	TotalWeightedPoints int             `json:"total_weighted_points"`
}

// NewTermRecord builds a term record and derives its averages.
func NewTermRecord(termNumber int, subjects []SubjectRecord, scale GradeScale) TermRecord {
	if subjects == nil {
		subjects = []SubjectRecord{}
	}
	avg := scale.ComputeAverage(subjects)
	return TermRecord{
		TermNumber:          termNumber,
		Subjects:            subjects,
		AveragePoints:       avg.AveragePoints,
		TotalCredits:        avg.TotalCredits,
		TotalWeightedPoints: avg.TotalWeightedPoints,
	}
}

// Average returns the term's totals as an Average.
func (t TermRecord) Average() Average {
	return Average{
		AveragePoints:       t.AveragePoints,
		TotalCredits:        t.TotalCredits,
		TotalWeightedPoints: t.TotalWeightedPoints,
	}
}

// Summary is the final result of aggregating a batch of transcripts.
type Summary struct {
	Identity       StudentIdentity `json:"identity"`
	Terms          []TermRecord    `json:"terms"`
	OverallAverage float64         `json:"overall_average"`
}

// TermCount returns the number of distinct terms in the summary.
func (s Summary) TermCount() int {
	return len(s.Terms)
}

// Term returns the record for the given term number.
func (s Summary) Term(number int) (TermRecord, bool) {
	for _, t := range s.Terms {
		if t.TermNumber == number {
			return t, true
		}
	}
	return TermRecord{}, false
}
