package models

import "fmt"

// Pipeline error taxonomy. Extraction and assembly errors are fatal to
// a batch; retrieval and synthesis errors degrade the affected question
// to a safe deterministic status; publish errors leave the assembled
// document in memory so delivery can be retried without re-synthesis.

// ExtractionError reports a questionnaire payload with no recognizable
// question boundaries. Fatal to the batch, not retried.
type ExtractionError struct {
	Format string
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed (%s payload): %s", e.Format, e.Reason)
}

// RetrievalError reports a search collaborator failure for one
// question. The pipeline treats it as zero evidence plus a warning.
type RetrievalError struct {
	QuestionID string
	Err        error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval failed for question %s: %v", e.QuestionID, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// SynthesisError reports an LLM collaborator failure (timeout,
// malformed response). Retried once with backoff before the question
// is forced to unanswerable.
type SynthesisError struct {
	QuestionID string
	Err        error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis failed for question %s: %v", e.QuestionID, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// AssemblyError reports a malformed answer record reaching the
// document assembler. This is an internal invariant violation and
// fatal to the batch.
type AssemblyError struct {
	QuestionID string
	Reason     string
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("document assembly invariant violated (question %s): %s", e.QuestionID, e.Reason)
}

// PublishError reports a storage collaborator failure while delivering
// the finished document. The batch itself succeeded logically.
type PublishError struct {
	Name string
	Err  error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish of %s failed: %v", e.Name, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }
