package transcript

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeAverage(t *testing.T) {
	tests := []struct {
		name     string
		subjects []SubjectRecord
		expected Average
	}{
		{
			name: "weighted by credit",
			subjects: []SubjectRecord{
				{Credit: 3, Grade: GradeO},
				{Credit: 4, Grade: GradeA},
			},
			expected: Average{AveragePoints: 8.86, TotalCredits: 7, TotalWeightedPoints: 62},
		},
		{
			name: "zero credit excluded",
			subjects: []SubjectRecord{
				{Credit: 3, Grade: GradeO},
				{Credit: 0, Grade: GradeU},
			},
			expected: Average{AveragePoints: 10, TotalCredits: 3, TotalWeightedPoints: 30},
		},
		{
			name: "fail grade scores zero but counts credits",
			subjects: []SubjectRecord{
				{Credit: 4, Grade: GradeU},
				{Credit: 4, Grade: GradeO},
			},
			expected: Average{AveragePoints: 5, TotalCredits: 8, TotalWeightedPoints: 40},
		},
		{
			name: "unknown symbol scores zero",
			subjects: []SubjectRecord{
				{Credit: 2, Grade: Grade("Z")},
				{Credit: 2, Grade: GradeB},
			},
			expected: Average{AveragePoints: 3, TotalCredits: 4, TotalWeightedPoints: 12},
		},
		{
			name:     "only zero credits",
			subjects: []SubjectRecord{{Credit: 0, Grade: GradeO}},
			expected: Average{},
		},
		{
			name:     "no subjects",
			subjects: nil,
			expected: Average{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ComputeAverage(tt.subjects))
		})
	}
}

func TestComputeAverage_ZeroIffNoCredits(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	grades := Grades()

	for i := 0; i < 500; i++ {
		subjects := make([]SubjectRecord, rng.Intn(8))
		for j := range subjects {
			subjects[j] = SubjectRecord{
				Credit: rng.Intn(5),
				Grade:  grades[rng.Intn(len(grades)-1)], // U excluded so points stay positive
			}
		}

		avg := ComputeAverage(subjects)
		if avg.TotalCredits == 0 {
			assert.Zero(t, avg.AveragePoints)
			continue
		}
		assert.NotZero(t, avg.AveragePoints)
		assert.Equal(t, Round2(float64(avg.TotalWeightedPoints)/float64(avg.TotalCredits)), avg.AveragePoints)
	}
}

func TestCombineAverages_WeightedBySubjects(t *testing.T) {
	first := Average{AveragePoints: 8.86, TotalCredits: 7, TotalWeightedPoints: 62}
	second := Average{AveragePoints: 8.0, TotalCredits: 6, TotalWeightedPoints: 48}

	total := CombineAverages(first, second)

	assert.Equal(t, 8.46, total.AveragePoints)
	assert.Equal(t, 13, total.TotalCredits)
	assert.Equal(t, 110, total.TotalWeightedPoints)
	assert.NotEqual(t, Round2((8.86+8.0)/2), total.AveragePoints)
	assert.Equal(t, Average{}, CombineAverages())
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 8.86, Round2(62.0/7.0))
	assert.Equal(t, 8.46, Round2(110.0/13.0))
	assert.Equal(t, 7.13, Round2(7.125))
	assert.Equal(t, 0.0, Round2(0))
}

func TestGradeScale(t *testing.T) {
	scale := DefaultScale()
	expected := []int{10, 9, 8, 7, 6, 5, 0}

	for i, g := range Grades() {
		assert.True(t, g.IsKnown())
		assert.Equal(t, expected[i], scale.Points(g), "grade %s", g)
	}
	assert.False(t, Grade("A-").IsKnown())
	assert.Zero(t, scale.Points(Grade("A-")))
	assert.Equal(t, 10, GradeScale{}.Points(GradeO))
}

func semesterText(term int, name string, rows ...string) string {
	text := "Name of the Candidate " + name + "\nRegister No REG" + string(rune('0'+term)) + "\n"
	text += "SEMESTER " + string(rune('0'+term)) + "\n"
	for _, r := range rows {
		text += r + "\n"
	}
	return text
}

func TestEngine_Process(t *testing.T) {
	engine := NewEngine()

	res := engine.Process(semesterThree)
	require.True(t, res.Resolved)
	assert.Equal(t, StudentIdentity{Name: "PRIYA DHARSHINI", RegisterNumber: "812021104055"}, res.Identity)
	assert.Equal(t, 3, res.Term.TermNumber)
	assert.Len(t, res.Term.Subjects, 5)
	assert.Equal(t, 12, res.Term.TotalCredits)
	assert.Equal(t, 103, res.Term.TotalWeightedPoints)
	assert.Equal(t, 8.58, res.Term.AveragePoints)

	unresolved := engine.Process("Name of the Candidate LATE NAME\nno term here\n")
	assert.False(t, unresolved.Resolved)
	assert.Equal(t, "LATE NAME", unresolved.Identity.Name)
	assert.Zero(t, unresolved.Term.TermNumber)
}

func TestEngine_Aggregate(t *testing.T) {
	engine := NewEngine()

	texts := []string{
		semesterText(2, "ANU", "21CS201 DIGITAL LOGIC 3 A", "21CS202 CIRCUITS 3 A"),
		semesterText(1, "ANU", "21MA101 CALCULUS 3 O", "21PH102 PHYSICS 4 A"),
	}

	summary := engine.Aggregate(texts)

	require.Len(t, summary.Terms, 2)
	assert.Equal(t, 1, summary.Terms[0].TermNumber)
	assert.Equal(t, 2, summary.Terms[1].TermNumber)
	assert.Equal(t, 8.86, summary.Terms[0].AveragePoints)
	assert.Equal(t, 8.0, summary.Terms[1].AveragePoints)
	assert.Equal(t, 8.46, summary.OverallAverage)
	assert.Equal(t, "REG1", summary.Identity.RegisterNumber)
	assert.Equal(t, 2, summary.TermCount())
}

func TestEngine_Aggregate_LaterTermReplaces(t *testing.T) {
	engine := NewEngine()

	first := semesterText(3, "ANU", "21CS301 OLD SUBJECT 4 C", "21CS302 OTHER 3 C")
	second := semesterText(3, "ANU", "21CS303 NEW SUBJECT 2 O")

	summary := engine.Aggregate([]string{first, second})

	require.Len(t, summary.Terms, 1)
	term := summary.Terms[0]
	assert.Equal(t, engine.Process(second).Term, term)
	assert.Equal(t, []SubjectRecord{{Code: "CS303", Name: "NEW SUBJECT", Credit: 2, Grade: GradeO}}, term.Subjects)
	assert.Equal(t, 10.0, summary.OverallAverage)
}

func TestEngine_Aggregate_ZeroCreditDisplayed(t *testing.T) {
	summary := NewEngine().Aggregate([]string{
		semesterText(1, "ANU", "21HS101 YOGA 0 O", "21MA102 ALGEBRA 4 B"),
	})

	require.Len(t, summary.Terms, 1)
	assert.Len(t, summary.Terms[0].Subjects, 2)
	assert.Equal(t, 4, summary.Terms[0].TotalCredits)
	assert.Equal(t, 24, summary.Terms[0].TotalWeightedPoints)
	assert.Equal(t, 6.0, summary.OverallAverage)
}

func TestEngine_Aggregate_IdentityFromLastDocument(t *testing.T) {
	summary := NewEngine().Aggregate([]string{
		semesterText(1, "FIRST", "21MA101 CALCULUS 3 O"),
		"Name of the Candidate SECOND\nRegister No R2\nno term here\n",
	})

	assert.Equal(t, StudentIdentity{Name: "SECOND", RegisterNumber: "R2"}, summary.Identity)
	require.Len(t, summary.Terms, 1)
	assert.Equal(t, 1, summary.Terms[0].TermNumber)
}

func TestEngine_Aggregate_Empty(t *testing.T) {
	for _, texts := range [][]string{nil, {}, {"nothing useful", ""}} {
		summary := NewEngine().Aggregate(texts)

		assert.Equal(t, PlaceholderIdentity(), summary.Identity)
		assert.NotNil(t, summary.Terms)
		assert.Empty(t, summary.Terms)
		assert.Zero(t, summary.OverallAverage)
	}
}

func TestEngine_Aggregate_UnresolvedIdentityStillApplies(t *testing.T) {
	summary := NewEngine().Aggregate([]string{"Name of the Candidate ONLY NAME\n"})

	assert.Empty(t, summary.Terms)
	assert.Equal(t, "ONLY NAME", summary.Identity.Name)
	assert.Equal(t, PlaceholderRegisterNumber, summary.Identity.RegisterNumber)
}

type fixedTerm struct{ n int }

func (f fixedTerm) ResolveTerm(string) (int, bool) { return f.n, f.n > 0 }

func TestEngine_Options(t *testing.T) {
	engine := NewEngine(WithTermResolver(fixedTerm{n: 7}))

	res := engine.Process("CS101 ANYTHING 3 O\n")
	require.True(t, res.Resolved)
	assert.Equal(t, 7, res.Term.TermNumber)

	engine = NewEngine(WithTermResolver(fixedTerm{n: 0}))
	assert.False(t, engine.Process(semesterThree).Resolved)
}

func TestFold_SortedUnique(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	results := make([]DocumentResult, 40)
	for i := range results {
		results[i] = DocumentResult{
			Identity: PlaceholderIdentity(),
			Resolved: rng.Intn(4) != 0,
			Term:     NewTermRecord(rng.Intn(8)+1, nil, DefaultScale()),
		}
	}

	summary := Fold(results)
	for i := 1; i < len(summary.Terms); i++ {
		assert.Less(t, summary.Terms[i-1].TermNumber, summary.Terms[i].TermNumber)
	}
}

func TestSummary_Term(t *testing.T) {
	summary := Summary{Terms: []TermRecord{{TermNumber: 2}, {TermNumber: 5}}}

	term, ok := summary.Term(5)
	assert.True(t, ok)
	assert.Equal(t, 5, term.TermNumber)

	_, ok = summary.Term(3)
	assert.False(t, ok)
}
