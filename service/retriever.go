package service

import (
	"context"
	"fmt"
	"strings"

	"policyqa-backend/models"
)

const citationSnippetLen = 200

// Retriever turns a query into a ranked, citation-ready context. It composes
// the embedding service and the vector store; it holds no mutable state and
// is safe for concurrent use.
type Retriever struct {
	embedder Embedder
	store    VectorStore
	topK     int
}

// NewRetriever creates a retriever with the given default top-k.
func NewRetriever(embedder Embedder, store VectorStore, topK int) *Retriever {
	if topK <= 0 {
		topK = 7
	}
	return &Retriever{
		embedder: embedder,
		store:    store,
		topK:     topK,
	}
}

// Retrieve returns the chunks most similar to the query, ordered by
// descending similarity. topK <= 0 means the configured default. Filters are
// combined conjunctively and passed through to the store untouched; no
// client-side re-filtering happens here.
//
// similarity_score is computed as 1 - distance. That is a cheap complement
// tied to cosine distance, not a renormalization: scores are not comparable
// across stores configured with different distance metrics.
//
// Zero matches yields an empty slice, which callers must treat as "no
// evidence", not as an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int, filterByDocument, filterByType string) ([]models.RetrievedChunk, error) {
	if topK <= 0 {
		topK = r.topK
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	filter := models.ChunkFilter{
		Filename:     filterByDocument,
		DocumentType: filterByType,
	}

	chunks, err := r.store.Query(ctx, vector, topK, filter)
	if err != nil {
		return nil, fmt.Errorf("vector store query failed: %w", err)
	}

	for i := range chunks {
		chunks[i].SimilarityScore = 1 - chunks[i].Distance
	}

	return chunks, nil
}

// Rerank is the hook for a future cross-encoder re-ranker. The current
// implementation returns chunks unchanged: the store's similarity ordering
// is the final ordering.
func (r *Retriever) Rerank(ctx context.Context, query string, chunks []models.RetrievedChunk) []models.RetrievedChunk {
	return chunks
}

// FormatContext renders retrieved chunks into the context block handed to
// the answer generator. The bracketed metadata tag is part of the contract
// with the generation prompt, which instructs the model to cite using this
// exact filename/page format. Do not change it without changing the prompt.
func (r *Retriever) FormatContext(chunks []models.RetrievedChunk) string {
	parts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		m := chunk.Metadata
		parts = append(parts, fmt.Sprintf("[DOC: %s | page: %d | paragraph: %d]\n%s\n",
			m.Filename, m.PageNumber, m.ChunkID, chunk.Text))
	}
	return strings.Join(parts, "\n")
}

// Citations derives one citation per retrieved chunk, preserving retrieval
// order. Snippets longer than 200 characters are truncated with an ellipsis.
// Truncation counts runes, not bytes, so multibyte text never ends mid-rune.
func (r *Retriever) Citations(chunks []models.RetrievedChunk) []models.Citation {
	citations := make([]models.Citation, 0, len(chunks))
	for _, chunk := range chunks {
		snippet := chunk.Text
		if runes := []rune(snippet); len(runes) > citationSnippetLen {
			snippet = string(runes[:citationSnippetLen]) + "..."
		}
		citations = append(citations, models.Citation{
			Filename:    chunk.Metadata.Filename,
			PageNumber:  chunk.Metadata.PageNumber,
			ChunkID:     chunk.Metadata.ChunkID,
			TextSnippet: snippet,
		})
	}
	return citations
}
