package transcript

import "sort"

// ══════════════════════════════════════════════════════════════════════════════
// ENGINE
// ══════════════════════════════════════════════════════════════════════════════

// Engine turns transcript texts into a Summary. It holds no mutable state and
// is safe for concurrent use.
type Engine struct {
	identity IdentityExtractor
	terms    TermResolver
	subjects SubjectExtractor
	scale    GradeScale
}

// Option configures an Engine.
type Option func(*Engine)

// WithIdentityExtractor replaces the identity strategy.
func WithIdentityExtractor(e IdentityExtractor) Option {
	return func(en *Engine) {
		if e != nil {
			en.identity = e
		}
	}
}

// WithTermResolver replaces the term strategy.
func WithTermResolver(r TermResolver) Option {
	return func(en *Engine) {
		if r != nil {
			en.terms = r
		}
	}
}

// WithSubjectExtractor replaces the subject row strategy.
func WithSubjectExtractor(e SubjectExtractor) Option {
	return func(en *Engine) {
		if e != nil {
			en.subjects = e
		}
	}
}

// WithGradeScale replaces the grade point mapping.
func WithGradeScale(s GradeScale) Option {
	return func(en *Engine) {
		en.scale = s
	}
}

// NewEngine returns an engine with the standard strategies unless overridden.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		identity: NewPatternIdentityExtractor(),
		terms:    DefaultTermChain(),
		subjects: NewPatternSubjectExtractor(),
		scale:    DefaultScale(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DocumentResult is what one transcript contributes to a batch.
type DocumentResult struct {
	Identity StudentIdentity
	// Resolved is false when no term could be determined; Term is then empty
	// and only Identity takes part in the fold.
	Resolved bool
	Term     TermRecord
}

// Process runs identity, term and subject extraction over one text.
func (e *Engine) Process(text string) DocumentResult {
	res := DocumentResult{Identity: e.identity.ExtractIdentity(text)}

	number, ok := e.terms.ResolveTerm(text)
	if !ok || number <= 0 {
		return res
	}

	res.Resolved = true
	res.Term = NewTermRecord(number, e.subjects.ExtractSubjects(text), e.scale)
	return res
}

// Aggregate processes the texts in order and folds them into a Summary.
func (e *Engine) Aggregate(texts []string) Summary {
	results := make([]DocumentResult, len(texts))
	for i, text := range texts {
		results[i] = e.Process(text)
	}
	return Fold(results)
}

// ══════════════════════════════════════════════════════════════════════════════
// FOLD
// ══════════════════════════════════════════════════════════════════════════════

// Fold combines per-document results in the given order. The last identity
// wins, and a later term record replaces an earlier one with the same number
// entirely.
func Fold(results []DocumentResult) Summary {
	identity := PlaceholderIdentity()
	byTerm := make(map[int]TermRecord)

	for _, r := range results {
		identity = r.Identity
		if !r.Resolved {
			continue
		}
		byTerm[r.Term.TermNumber] = r.Term
	}

	terms := make([]TermRecord, 0, len(byTerm))
	averages := make([]Average, 0, len(byTerm))
	for _, t := range byTerm {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		return terms[i].TermNumber < terms[j].TermNumber
	})
	for _, t := range terms {
		averages = append(averages, t.Average())
	}

	return Summary{
		Identity:       identity,
		Terms:          terms,
		OverallAverage: CombineAverages(averages...).AveragePoints,
	}
}
