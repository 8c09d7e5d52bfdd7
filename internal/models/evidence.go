package models

// EvidenceSnippet is a retrieved fragment of corpus text with its
// attribution metadata. Snippets are produced fresh per retrieval call
// and never mutated afterwards.
type EvidenceSnippet struct {
	SourceFile string  `json:"source_file"`
	Section    string  `json:"section"` // section heading or page reference
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// Citation identifies the evidence a factual claim is grounded on.
type Citation struct {
	SourceFile string `json:"source_file"`
	Section    string `json:"section,omitempty"`
}
