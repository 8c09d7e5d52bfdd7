package common

import (
	"github.com/google/uuid"
)

// NewQuestionID generates a unique question ID with the "qst_" prefix
func NewQuestionID() string {
	return "qst_" + uuid.New().String()
}

// NewDocumentID generates a unique document ID with the "doc_" prefix
func NewDocumentID() string {
	return "doc_" + uuid.New().String()
}

// NewGroupID generates a unique consistency group ID with the "grp_" prefix
func NewGroupID() string {
	return "grp_" + uuid.New().String()
}

// NewBatchID generates a unique batch ID with the "bat_" prefix
func NewBatchID() string {
	return "bat_" + uuid.New().String()
}
