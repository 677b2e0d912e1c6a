// Package transcript contains the domain model for turning term transcripts
// into an academic record with SGPA and CGPA.
//
// The package has no external dependencies and performs no I/O. It defines:
//
//   - Value objects: StudentIdentity, SubjectRecord, Grade, GradeScale
//   - Aggregates: TermRecord, Summary
//   - Extraction strategies: IdentityExtractor, TermResolver, SubjectExtractor
//   - The Engine that folds a batch of texts into a Summary
//   - Repository interfaces for archived summaries
//
// # Extraction
//
// Every pattern sits behind a small interface so layouts from other
// institutions can be plugged in without touching the fold:
//
//	engine := transcript.NewEngine(
//	    transcript.WithTermResolver(transcript.NewTermChain(
//	        transcript.NewLabelTermStrategy(),
//	        transcript.NewCodeTermStrategy(),
//	    )),
//	)
//	summary := engine.Aggregate(texts)
//
// A pattern that does not match never fails: identity falls back to
// placeholders, unresolved terms are skipped and malformed rows are dropped.
//
// # Aggregation
//
// Documents are folded in upload order. The last document's identity wins,
// and a document whose term was already seen replaces that term entirely.
// Callers that extract text concurrently should call Process per document
// and Fold the results in the original order.
//
// CGPA is weighted by subject credits across all terms:
//
//	round(Σ points×credit / Σ credit, 2)
//
// which differs from the mean of the term averages whenever terms carry
// different credit loads.
package transcript
