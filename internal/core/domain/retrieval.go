package domain

// RetrievedChunk is one ranked result from either index, and the fused
// output handed to prompt building. Transient, produced only during a query.
type RetrievedChunk struct {
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}
