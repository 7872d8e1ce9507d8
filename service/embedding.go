package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/generative-ai-go/genai"
)

const (
	maxRetries     = 3
	initialBackoff = time.Second
)

// GeminiEmbedder generates embeddings through the Gemini embedding API.
// Vectors are L2-normalized before being returned so that cosine distance
// in the store behaves as expected.
type GeminiEmbedder struct {
	model     *genai.EmbeddingModel
	dimension int
}

// NewGeminiEmbedder creates an embedder for the given model name and
// expected output dimensionality.
func NewGeminiEmbedder(client *genai.Client, model string, dimension int) *GeminiEmbedder {
	return &GeminiEmbedder{
		model:     client.EmbeddingModel(model),
		dimension: dimension,
	}
}

// Dimension returns the fixed vector dimensionality of this embedder.
func (e *GeminiEmbedder) Dimension() int {
	return e.dimension
}

// Embed generates a single embedding with retry and exponential backoff.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	backoff := initialBackoff
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= 2
		}

		resp, err := e.model.EmbedContent(ctx, genai.Text(text))
		if err != nil {
			lastErr = err
			continue
		}
		if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
			lastErr = ErrEmbeddingFailed
			continue
		}
		vector := resp.Embedding.Values
		if err := e.checkDimension(vector); err != nil {
			return nil, err
		}
		normalize(vector)
		return vector, nil
	}
	return nil, fmt.Errorf("embedding failed after %d attempts: %w", maxRetries, lastErr)
}

// EmbedBatch generates embeddings for a batch of texts in one API call.
func (e *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	batch := e.model.NewBatch()
	for _, text := range texts {
		batch.AddContent(genai.Text(text))
	}

	var resp *genai.BatchEmbedContentsResponse
	var err error
	backoff := initialBackoff
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= 2
		}
		resp, err = e.model.BatchEmbedContents(ctx, batch)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("batch embedding failed after %d attempts: %w", maxRetries, err)
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d texts, got %d vectors", len(texts), len(resp.Embeddings))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, ErrEmbeddingFailed
		}
		if err := e.checkDimension(emb.Values); err != nil {
			return nil, err
		}
		normalize(emb.Values)
		vectors[i] = emb.Values
	}
	return vectors, nil
}

func (e *GeminiEmbedder) checkDimension(vector []float32) error {
	if e.dimension > 0 && len(vector) != e.dimension {
		return fmt.Errorf("embedding must be %d dimensions, got %d", e.dimension, len(vector))
	}
	return nil
}

// normalize scales a vector to unit length in place.
func normalize(vector []float32) {
	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return
	}
	for i := range vector {
		vector[i] = float32(float64(vector[i]) / norm)
	}
}
