package transcript

import "math"

// ══════════════════════════════════════════════════════════════════════════════
// GRADES
// ══════════════════════════════════════════════════════════════════════════════

// Grade is a letter grade symbol as printed on a transcript.
type Grade string

const (
	GradeO     Grade = "O"
	GradeAPlus Grade = "A+"
	GradeA     Grade = "A"
	GradeBPlus Grade = "B+"
	GradeB     Grade = "B"
	GradeC     Grade = "C"
	GradeU     Grade = "U"
)

// Grades lists the known symbols, best first.
func Grades() []Grade {
	return []Grade{GradeO, GradeAPlus, GradeA, GradeBPlus, GradeB, GradeC, GradeU}
}

// IsKnown reports whether the symbol belongs to the grade alphabet.
func (g Grade) IsKnown() bool {
	_, ok := defaultPoints[g]
	return ok
}

// String returns the symbol.
func (g Grade) String() string {
	return string(g)
}

var defaultPoints = map[Grade]int{
	GradeO:     10,
	GradeAPlus: 9,
	GradeA:     8,
	GradeBPlus: 7,
	GradeB:     6,
	GradeC:     5,
	GradeU:     0,
}

// ══════════════════════════════════════════════════════════════════════════════
// GRADE SCALE
// ══════════════════════════════════════════════════════════════════════════════

// GradeScale maps grade symbols to grade points.
type GradeScale struct {
	points map[Grade]int
}

// DefaultScale returns the ten-point scale O=10 ... C=5, U=0.
func DefaultScale() GradeScale {
	return GradeScale{points: defaultPoints}
}

// Points returns the grade points for a symbol; unknown symbols score 0.
func (s GradeScale) Points(g Grade) int {
	if s.points == nil {
		return defaultPoints[g]
	}
	return s.points[g]
}

// Average holds the weighted totals of a set of subjects.
type Average struct {
	AveragePoints       float64 `json:"average_points"`
	TotalCredits        int     `json:"total_credits"`
	TotalWeightedPoints int     `json:"total_weighted_points"`
}

// ComputeAverage returns the credit-weighted grade point average (SGPA) of
// the subjects. Zero-credit subjects are excluded from both totals.
func (s GradeScale) ComputeAverage(subjects []SubjectRecord) Average {
	var avg Average
	for _, sub := range subjects {
		if !sub.Counted() {
			continue
		}
		avg.TotalWeightedPoints += s.Points(sub.Grade) * sub.Credit
		avg.TotalCredits += sub.Credit
	}
	avg.AveragePoints = weightedMean(avg.TotalWeightedPoints, avg.TotalCredits)
	return avg
}

// ComputeAverage uses the default scale.
func ComputeAverage(subjects []SubjectRecord) Average {
	return DefaultScale().ComputeAverage(subjects)
}

// CombineAverages sums term totals into a cumulative average (CGPA).
// The result is weighted by subject credits, not a mean of term averages.
func CombineAverages(terms ...Average) Average {
	var total Average
	for _, t := range terms {
		total.TotalWeightedPoints += t.TotalWeightedPoints
		total.TotalCredits += t.TotalCredits
	}
	total.AveragePoints = weightedMean(total.TotalWeightedPoints, total.TotalCredits)
	return total
}

func weightedMean(points, credits int) float64 {
	if credits <= 0 {
		return 0
	}
	return Round2(float64(points) / float64(credits))
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
