package models

// Chunk is a bounded, overlap-aware slice of one page's text. Chunks are the
// atomic unit of retrieval and are never mutated after creation.
type Chunk struct {
	DocumentID   string `json:"document_id"`
	ChunkID      int    `json:"chunk_id"`
	Text         string `json:"text"`
	PageNumber   int    `json:"page_number"`
	Filename     string `json:"filename"`
	DocumentType string `json:"document_type"`
	TokenCount   int    `json:"token_count"` // approximate: whitespace-delimited words
	CharCount    int    `json:"char_count"`
	// StartOffset/EndOffset are approximations derived from the window index
	// and word count, not exact character positions. They are consistent
	// within one document only.
	StartOffset int `json:"start_offset"`
	EndOffset   int `json:"end_offset"`
}

// ChunkMetadata is the metadata payload stored alongside each vector.
type ChunkMetadata struct {
	Filename     string `json:"filename"`
	PageNumber   int    `json:"page_number"`
	DocumentType string `json:"document_type"`
	ChunkID      int    `json:"chunk_id"`
	DocumentID   string `json:"document_id"`
	TokenCount   int    `json:"token_count"`
	CharCount    int    `json:"char_count"`
}

// RetrievedChunk is a chunk returned from a vector store query. It is
// transient: created per query and discarded when the request completes.
type RetrievedChunk struct {
	ID       string        `json:"id"`
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
	// Distance is the store-reported dissimilarity for the query vector.
	Distance float64 `json:"distance"`
	// SimilarityScore is 1 - Distance. This is a cheap complement, not a
	// renormalization: it is only meaningful under cosine distance, and can
	// go slightly negative when distance exceeds 1. Callers must treat
	// negative values as valid, very-low-confidence matches.
	SimilarityScore float64 `json:"similarity_score"`
}

// Citation points a reader back at the source passage behind an answer.
type Citation struct {
	Filename    string `json:"filename"`
	PageNumber  int    `json:"page_number"`
	ChunkID     int    `json:"chunk_id"`
	TextSnippet string `json:"text_snippet"`
}

// ChunkStatistics aggregates token and character counts over a chunk set.
type ChunkStatistics struct {
	TotalChunks       int     `json:"total_chunks"`
	TotalTokens       int     `json:"total_tokens"`
	TotalChars        int     `json:"total_chars"`
	AvgTokensPerChunk float64 `json:"avg_tokens_per_chunk"`
	AvgCharsPerChunk  float64 `json:"avg_chars_per_chunk"`
}

// ChunkFilter restricts a vector store query by metadata. Zero-value fields
// are ignored; non-zero fields are combined conjunctively.
type ChunkFilter struct {
	Filename     string
	DocumentType string
}

// Empty reports whether no filter fields are set.
func (f ChunkFilter) Empty() bool {
	return f.Filename == "" && f.DocumentType == ""
}
