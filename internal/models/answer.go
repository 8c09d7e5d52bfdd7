package models

// AnswerStatus distinguishes a grounded answer from the two failure
// shapes downstream consumers must never confuse: on-topic questions
// with no matching evidence (unanswerable) and questions outside the
// questionnaire's domain entirely (declined).
type AnswerStatus string

const (
	StatusAnswered     AnswerStatus = "answered"
	StatusUnanswerable AnswerStatus = "unanswerable"
	StatusDeclined     AnswerStatus = "declined"
)

// UnanswerableMessage is the fixed answer text for unanswerable
// questions. Every unanswerable record carries exactly this text.
const UnanswerableMessage = "No supporting evidence for this question was found in the indexed document corpus."

// DeclinedMessage is the fixed refusal text for out-of-domain questions.
const DeclinedMessage = "This question falls outside the scope of the due diligence materials and has not been answered."

// AnswerRecord is the synthesized answer for one question. Exactly one
// record exists per question. Records in the same consistency group
// share AnswerText and Citations verbatim.
type AnswerRecord struct {
	QuestionID         string       `json:"question_id"`
	AnswerText         string       `json:"answer_text"`
	Citations          []Citation   `json:"citations,omitempty"`
	Status             AnswerStatus `json:"status"`
	ConsistencyGroupID string       `json:"consistency_group_id,omitempty"`

	// ConditionMet is set on yes/no parent questions and drives the
	// deterministic handling of their conditional children.
	ConditionMet *bool `json:"condition_met,omitempty"`

	// Note carries a system-generated remark, e.g. when synthesis
	// failed after retry and the record was forced to unanswerable.
	Note string `json:"note,omitempty"`
}

// Validate checks the status invariants the document assembler relies on.
func (r *AnswerRecord) Validate() error {
	switch r.Status {
	case StatusAnswered:
		if len(r.Citations) == 0 {
			return &AssemblyError{QuestionID: r.QuestionID, Reason: "answered record has no citations"}
		}
		if r.AnswerText == "" {
			return &AssemblyError{QuestionID: r.QuestionID, Reason: "answered record has empty answer text"}
		}
	case StatusUnanswerable:
		if len(r.Citations) != 0 {
			return &AssemblyError{QuestionID: r.QuestionID, Reason: "unanswerable record carries citations"}
		}
		if r.AnswerText != UnanswerableMessage {
			return &AssemblyError{QuestionID: r.QuestionID, Reason: "unanswerable record does not carry the fixed message"}
		}
	case StatusDeclined:
		if len(r.Citations) != 0 {
			return &AssemblyError{QuestionID: r.QuestionID, Reason: "declined record carries citations"}
		}
	default:
		return &AssemblyError{QuestionID: r.QuestionID, Reason: "unknown answer status " + string(r.Status)}
	}
	return nil
}

// CopyFor clones the record content for another member of the same
// consistency group. AnswerText, Citations and Status are shared
// verbatim; only the question identity differs.
func (r *AnswerRecord) CopyFor(questionID string) *AnswerRecord {
	clone := *r
	clone.QuestionID = questionID
	clone.Citations = append([]Citation(nil), r.Citations...)
	if r.ConditionMet != nil {
		met := *r.ConditionMet
		clone.ConditionMet = &met
	}
	return &clone
}

// NewUnanswerable builds an unanswerable record with the fixed message.
func NewUnanswerable(questionID, note string) *AnswerRecord {
	return &AnswerRecord{
		QuestionID: questionID,
		AnswerText: UnanswerableMessage,
		Status:     StatusUnanswerable,
		Note:       note,
	}
}

// NewDeclined builds a declined record with the fixed refusal message.
func NewDeclined(questionID string) *AnswerRecord {
	return &AnswerRecord{
		QuestionID: questionID,
		AnswerText: DeclinedMessage,
		Status:     StatusDeclined,
	}
}
