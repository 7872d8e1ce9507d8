package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"policyqa-backend/models"
	"policyqa-backend/repository"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	upsertBatchSize       = 100
	embedBatchConcurrency = 4
)

// IngestService runs the document ingestion pipeline: parse, chunk, embed,
// upsert. One upload is one independent background unit of work tracked by
// an upload job; uploads never coordinate with each other because chunk IDs
// are namespaced by the deterministic document ID.
type IngestService struct {
	parser   DocumentParser
	chunker  *Chunker
	embedder Embedder
	store    VectorStore
	jobs     *repository.UploadJobStore
}

// IngestOption is a functional option for IngestService.
type IngestOption func(*IngestService)

// IngestWithParser sets the document parser client.
func IngestWithParser(parser DocumentParser) IngestOption {
	return func(s *IngestService) {
		s.parser = parser
	}
}

// IngestWithChunker sets the chunker.
func IngestWithChunker(chunker *Chunker) IngestOption {
	return func(s *IngestService) {
		s.chunker = chunker
	}
}

// IngestWithEmbedder sets the embedding client.
func IngestWithEmbedder(embedder Embedder) IngestOption {
	return func(s *IngestService) {
		s.embedder = embedder
	}
}

// IngestWithVectorStore sets the vector store.
func IngestWithVectorStore(store VectorStore) IngestOption {
	return func(s *IngestService) {
		s.store = store
	}
}

// IngestWithJobStore sets the upload job store.
func IngestWithJobStore(jobs *repository.UploadJobStore) IngestOption {
	return func(s *IngestService) {
		s.jobs = jobs
	}
}

// NewIngestService creates an ingestion service.
func NewIngestService(opts ...IngestOption) *IngestService {
	s := &IngestService{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProcessDocument runs the full pipeline for one uploaded file and records
// the outcome on the upload job. This is the background half of an upload
// request and can take a while on large documents.
func (s *IngestService) ProcessDocument(ctx context.Context, jobID uuid.UUID, filename string, file io.Reader) error {
	if s.parser == nil || s.chunker == nil || s.embedder == nil || s.store == nil || s.jobs == nil {
		return errors.New("ingest service not fully configured")
	}

	doc, err := s.parser.Parse(ctx, filename, file)
	if err != nil {
		s.markFailed(jobID, err)
		return err
	}

	chunks := s.chunker.ChunkDocument(doc)
	if len(chunks) == 0 {
		// A parseable but empty document is not an error; there is just
		// nothing to index.
		s.jobs.Complete(jobID, 0)
		return nil
	}

	vectors, err := s.embedChunks(ctx, chunks)
	if err != nil {
		s.markFailed(jobID, err)
		return err
	}

	if err := s.store.Upsert(ctx, chunks, vectors); err != nil {
		err = fmt.Errorf("failed to store chunks: %w", err)
		s.markFailed(jobID, err)
		return err
	}

	if err := s.jobs.Complete(jobID, len(chunks)); err != nil {
		return err
	}

	stats := s.chunker.Statistics(chunks)
	log.Printf("Ingested %s: %d chunks, %d tokens", doc.Filename, stats.TotalChunks, stats.TotalTokens)
	return nil
}

// embedChunks generates embeddings in batches, a few batches in flight at a
// time. Results land at their original positions so chunk order is
// preserved.
func (s *IngestService) embedChunks(ctx context.Context, chunks []models.Chunk) ([][]float32, error) {
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedBatchConcurrency)

	for start := 0; start < len(texts); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		start, end := start, end
		g.Go(func() error {
			batch, err := s.embedder.EmbedBatch(gctx, texts[start:end])
			if err != nil {
				return err
			}
			copy(vectors[start:], batch)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}
	return vectors, nil
}

func (s *IngestService) markFailed(jobID uuid.UUID, cause error) {
	if err := s.jobs.Fail(jobID, cause.Error()); err != nil {
		log.Printf("Warning: failed to mark job %s as failed: %v", jobID, err)
	}
}
