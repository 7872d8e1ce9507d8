package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"policyqa-backend/models"
	"policyqa-backend/repository"
)

type fakeParser struct {
	doc *models.ParsedDocument
	err error
}

func (f *fakeParser) Parse(_ context.Context, _ string, _ io.Reader) (*models.ParsedDocument, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

// lengthEmbedder encodes each text's length as its vector so callers can
// verify which text a vector belongs to.
type lengthEmbedder struct {
	mu      sync.Mutex
	batches int
	err     error
}

func (e *lengthEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return []float32{float32(len(text))}, nil
}

func (e *lengthEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.batches++
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text))}
	}
	return out, nil
}

// capturingStore records what was upserted.
type capturingStore struct {
	chunks  []models.Chunk
	vectors [][]float32
	upserts int
	err     error
}

func (s *capturingStore) Upsert(_ context.Context, chunks []models.Chunk, vectors [][]float32) error {
	s.upserts++
	if s.err != nil {
		return s.err
	}
	s.chunks = chunks
	s.vectors = vectors
	return nil
}

func (s *capturingStore) Query(_ context.Context, _ []float32, _ int, _ models.ChunkFilter) ([]models.RetrievedChunk, error) {
	return nil, nil
}

func (s *capturingStore) DeleteByDocument(_ context.Context, _ string) error {
	return nil
}

func newIngestFixture(parser *fakeParser, embedder *lengthEmbedder, store *capturingStore) (*IngestService, *repository.UploadJobStore) {
	jobs := repository.NewUploadJobStore()
	svc := NewIngestService(
		IngestWithParser(parser),
		IngestWithChunker(NewChunker(512, 128)),
		IngestWithEmbedder(embedder),
		IngestWithVectorStore(store),
		IngestWithJobStore(jobs),
	)
	return svc, jobs
}

func TestProcessDocumentSuccess(t *testing.T) {
	parser := &fakeParser{doc: &models.ParsedDocument{
		Filename:     "handbook.pdf",
		DocumentType: "pdf",
		Pages: []models.Page{
			{PageNumber: 1, Text: "Tuition is due on the first day of term."},
			{PageNumber: 2, Text: "Refunds are processed within ten business days."},
		},
	}}
	store := &capturingStore{}
	svc, jobs := newIngestFixture(parser, &lengthEmbedder{}, store)

	job := jobs.Create("handbook.pdf")
	if err := svc.ProcessDocument(context.Background(), job.ID, "handbook.pdf", strings.NewReader("raw")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if store.upserts != 1 {
		t.Fatalf("expected one upsert, got %d", store.upserts)
	}
	if len(store.chunks) != 2 || len(store.vectors) != 2 {
		t.Fatalf("expected 2 chunks and vectors, got %d/%d", len(store.chunks), len(store.vectors))
	}
	for i, chunk := range store.chunks {
		if store.vectors[i][0] != float32(len(chunk.Text)) {
			t.Errorf("vector %d does not belong to chunk %d", i, i)
		}
	}

	got, err := jobs.Get(job.ID)
	if err != nil {
		t.Fatalf("get job failed: %v", err)
	}
	if got.Status != models.UploadStatusCompleted || got.ChunksCreated != 2 {
		t.Errorf("expected completed job with 2 chunks, got %+v", got)
	}
}

func TestProcessDocumentParseFailure(t *testing.T) {
	parser := &fakeParser{err: fmt.Errorf("%w: parser returned 500", ErrParseFailed)}
	store := &capturingStore{}
	svc, jobs := newIngestFixture(parser, &lengthEmbedder{}, store)

	job := jobs.Create("broken.pdf")
	err := svc.ProcessDocument(context.Background(), job.ID, "broken.pdf", strings.NewReader("raw"))
	if !errors.Is(err, ErrParseFailed) {
		t.Fatalf("expected parse failure to propagate, got %v", err)
	}

	if store.upserts != 0 {
		t.Error("nothing must be upserted after a parse failure")
	}

	got, _ := jobs.Get(job.ID)
	if got.Status != models.UploadStatusFailed {
		t.Errorf("expected failed job, got %q", got.Status)
	}
	if got.ErrorMessage == nil || !strings.Contains(*got.ErrorMessage, "parser returned 500") {
		t.Errorf("expected failure cause on the job, got %v", got.ErrorMessage)
	}
}

func TestProcessDocumentEmptyDocument(t *testing.T) {
	parser := &fakeParser{doc: &models.ParsedDocument{
		Filename:     "blank.pdf",
		DocumentType: "pdf",
		Pages:        []models.Page{{PageNumber: 1, Text: "   \n  "}},
	}}
	store := &capturingStore{}
	svc, jobs := newIngestFixture(parser, &lengthEmbedder{}, store)

	job := jobs.Create("blank.pdf")
	if err := svc.ProcessDocument(context.Background(), job.ID, "blank.pdf", strings.NewReader("raw")); err != nil {
		t.Fatalf("an empty document is not an error: %v", err)
	}

	if store.upserts != 0 {
		t.Error("an empty document must not touch the vector store")
	}

	got, _ := jobs.Get(job.ID)
	if got.Status != models.UploadStatusCompleted || got.ChunksCreated != 0 {
		t.Errorf("expected completed job with 0 chunks, got %+v", got)
	}
}

func TestProcessDocumentEmbedFailure(t *testing.T) {
	parser := &fakeParser{doc: &models.ParsedDocument{
		Filename:     "handbook.pdf",
		DocumentType: "pdf",
		Pages:        []models.Page{{PageNumber: 1, Text: "Some policy text."}},
	}}
	store := &capturingStore{}
	svc, jobs := newIngestFixture(parser, &lengthEmbedder{err: errors.New("quota exceeded")}, store)

	job := jobs.Create("handbook.pdf")
	if err := svc.ProcessDocument(context.Background(), job.ID, "handbook.pdf", strings.NewReader("raw")); err == nil {
		t.Fatal("expected embedding failure to propagate")
	}

	if store.upserts != 0 {
		t.Error("nothing must be upserted after an embedding failure")
	}
	got, _ := jobs.Get(job.ID)
	if got.Status != models.UploadStatusFailed {
		t.Errorf("expected failed job, got %q", got.Status)
	}
}

func TestProcessDocumentStoreFailure(t *testing.T) {
	parser := &fakeParser{doc: &models.ParsedDocument{
		Filename:     "handbook.pdf",
		DocumentType: "pdf",
		Pages:        []models.Page{{PageNumber: 1, Text: "Some policy text."}},
	}}
	store := &capturingStore{err: errors.New("connection reset")}
	svc, jobs := newIngestFixture(parser, &lengthEmbedder{}, store)

	job := jobs.Create("handbook.pdf")
	if err := svc.ProcessDocument(context.Background(), job.ID, "handbook.pdf", strings.NewReader("raw")); err == nil {
		t.Fatal("expected store failure to propagate")
	}

	got, _ := jobs.Get(job.ID)
	if got.Status != models.UploadStatusFailed {
		t.Errorf("expected failed job, got %q", got.Status)
	}
}

func TestProcessDocumentPreservesOrderAcrossBatches(t *testing.T) {
	// 120 single-chunk pages force two embedding batches; every page gets a
	// distinct text length so each vector identifies its chunk.
	pages := make([]models.Page, 120)
	for i := range pages {
		pages[i] = models.Page{PageNumber: i + 1, Text: strings.Repeat("a", i+1)}
	}
	parser := &fakeParser{doc: &models.ParsedDocument{
		Filename:     "catalog.pdf",
		DocumentType: "pdf",
		Pages:        pages,
	}}
	embedder := &lengthEmbedder{}
	store := &capturingStore{}
	svc, jobs := newIngestFixture(parser, embedder, store)

	job := jobs.Create("catalog.pdf")
	if err := svc.ProcessDocument(context.Background(), job.ID, "catalog.pdf", strings.NewReader("raw")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if embedder.batches < 2 {
		t.Fatalf("expected at least two embedding batches, got %d", embedder.batches)
	}
	if len(store.chunks) != 120 || len(store.vectors) != 120 {
		t.Fatalf("expected 120 chunks and vectors, got %d/%d", len(store.chunks), len(store.vectors))
	}
	for i, chunk := range store.chunks {
		if store.vectors[i][0] != float32(len(chunk.Text)) {
			t.Fatalf("vector %d belongs to a different chunk (len %v vs %d)", i, store.vectors[i][0], len(chunk.Text))
		}
	}

	got, _ := jobs.Get(job.ID)
	if got.Status != models.UploadStatusCompleted || got.ChunksCreated != 120 {
		t.Errorf("expected completed job with 120 chunks, got %+v", got)
	}
}
