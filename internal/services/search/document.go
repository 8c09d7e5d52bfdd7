package search

// EvidenceDocument is the indexed form of a corpus fragment. The local
// bleve mode writes these when seeding its index; the pipeline only
// queries them.
type EvidenceDocument struct {
	ID         string `json:"id"`
	Collection string `json:"collection"`
	SourceFile string `json:"source_file"`
	Section    string `json:"section"`
	Content    string `json:"content"`
}
