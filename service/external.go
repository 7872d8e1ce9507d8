package service

import (
	"context"
	"errors"
	"io"

	"policyqa-backend/models"
)

var (
	ErrUnsupportedDocumentType = errors.New("unsupported document type")
	ErrParseFailed             = errors.New("failed to parse document")
	ErrEmbeddingFailed         = errors.New("failed to generate embedding")
	ErrGenerationFailed        = errors.New("failed to generate content")
)

// Embedder turns text into fixed-length vectors via an external embedding
// service.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore is the persistent vector similarity store. Query results come
// back ordered by ascending distance. Upsert semantics govern what happens
// when the same chunk ID is written twice.
type VectorStore interface {
	Upsert(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error
	Query(ctx context.Context, vector []float32, topK int, filter models.ChunkFilter) ([]models.RetrievedChunk, error)
	DeleteByDocument(ctx context.Context, documentID string) error
}

// TextGenerator is a hosted LLM text-completion service.
type TextGenerator interface {
	Complete(ctx context.Context, prompt string, temperature float32, maxTokens int32) (string, error)
}

// DocumentParser extracts page-indexed plain text from an uploaded file.
// Text extraction (including OCR fallback) is the parser service's problem,
// not ours.
type DocumentParser interface {
	Parse(ctx context.Context, filename string, file io.Reader) (*models.ParsedDocument, error)
}
