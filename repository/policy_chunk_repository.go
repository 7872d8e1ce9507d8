package repository

import (
	"context"
	"fmt"
	"strings"

	"policyqa-backend/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PolicyChunkRepository is the pgvector-backed vector similarity store for
// policy chunks. Row IDs are "{document_id}_{chunk_id}", so re-ingesting the
// same filename overwrites its chunks in place.
type PolicyChunkRepository struct {
	db        *pgxpool.Pool
	dimension int
}

// NewPolicyChunkRepository creates a repository expecting vectors of the
// given dimensionality.
func NewPolicyChunkRepository(db *pgxpool.Pool, dimension int) *PolicyChunkRepository {
	return &PolicyChunkRepository{db: db, dimension: dimension}
}

// formatVector formats an embedding vector as a pgvector literal for pgx.
func formatVector(embedding []float32) string {
	if len(embedding) == 0 {
		return "[]"
	}
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = fmt.Sprintf("%.6f", v)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Upsert writes chunks and their vectors. Existing rows with the same ID are
// overwritten, which is what makes re-uploads of a filename idempotent.
func (r *PolicyChunkRepository) Upsert(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d vs %d", len(chunks), len(vectors))
	}

	const query = `
		INSERT INTO policy_chunks (
			id, document_id, chunk_id, filename, document_type, page_number,
			token_count, char_count, start_offset, end_offset, chunk_text, embedding
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::vector)
		ON CONFLICT (id) DO UPDATE SET
			filename = EXCLUDED.filename,
			document_type = EXCLUDED.document_type,
			page_number = EXCLUDED.page_number,
			token_count = EXCLUDED.token_count,
			char_count = EXCLUDED.char_count,
			start_offset = EXCLUDED.start_offset,
			end_offset = EXCLUDED.end_offset,
			chunk_text = EXCLUDED.chunk_text,
			embedding = EXCLUDED.embedding`

	batch := &pgx.Batch{}
	for i, chunk := range chunks {
		if r.dimension > 0 && len(vectors[i]) != r.dimension {
			return fmt.Errorf("embedding must be %d dimensions, got %d", r.dimension, len(vectors[i]))
		}
		id := fmt.Sprintf("%s_%d", chunk.DocumentID, chunk.ChunkID)
		batch.Queue(query,
			id,
			chunk.DocumentID,
			chunk.ChunkID,
			chunk.Filename,
			chunk.DocumentType,
			chunk.PageNumber,
			chunk.TokenCount,
			chunk.CharCount,
			chunk.StartOffset,
			chunk.EndOffset,
			chunk.Text,
			formatVector(vectors[i]),
		)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for range chunks {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to upsert policy chunk: %w", err)
		}
	}
	return nil
}

// Query returns the topK nearest chunks by cosine distance. Filter fields
// are ANDed into the WHERE clause exactly as given; the repository never
// second-guesses them.
func (r *PolicyChunkRepository) Query(ctx context.Context, vector []float32, topK int, filter models.ChunkFilter) ([]models.RetrievedChunk, error) {
	if r.dimension > 0 && len(vector) != r.dimension {
		return nil, fmt.Errorf("embedding must be %d dimensions, got %d", r.dimension, len(vector))
	}

	args := []interface{}{formatVector(vector)}
	conditions := make([]string, 0, 2)
	if filter.Filename != "" {
		args = append(args, filter.Filename)
		conditions = append(conditions, fmt.Sprintf("filename = $%d", len(args)))
	}
	if filter.DocumentType != "" {
		args = append(args, filter.DocumentType)
		conditions = append(conditions, fmt.Sprintf("document_type = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, topK)

	query := fmt.Sprintf(`
		SELECT
			id,
			chunk_text,
			filename,
			page_number,
			document_type,
			chunk_id,
			document_id,
			token_count,
			char_count,
			embedding <=> $1::vector AS distance
		FROM policy_chunks
		%s
		ORDER BY embedding <=> $1::vector
		LIMIT $%d`, where, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query policy chunks: %w", err)
	}
	defer rows.Close()

	chunks := make([]models.RetrievedChunk, 0, topK)
	for rows.Next() {
		var chunk models.RetrievedChunk
		err := rows.Scan(
			&chunk.ID,
			&chunk.Text,
			&chunk.Metadata.Filename,
			&chunk.Metadata.PageNumber,
			&chunk.Metadata.DocumentType,
			&chunk.Metadata.ChunkID,
			&chunk.Metadata.DocumentID,
			&chunk.Metadata.TokenCount,
			&chunk.Metadata.CharCount,
			&chunk.Distance,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan policy chunk: %w", err)
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating policy chunks: %w", err)
	}

	return chunks, nil
}

// DeleteByDocument removes every chunk belonging to one document.
func (r *PolicyChunkRepository) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM policy_chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return fmt.Errorf("failed to delete document chunks: %w", err)
	}
	return nil
}

// ListDocuments summarizes the distinct documents currently in the store.
func (r *PolicyChunkRepository) ListDocuments(ctx context.Context) ([]models.DocumentInfo, error) {
	rows, err := r.db.Query(ctx, `
		SELECT document_id, filename, document_type, COUNT(*) AS chunk_count
		FROM policy_chunks
		GROUP BY document_id, filename, document_type
		ORDER BY filename`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	docs := make([]models.DocumentInfo, 0)
	for rows.Next() {
		var doc models.DocumentInfo
		if err := rows.Scan(&doc.DocumentID, &doc.Filename, &doc.DocumentType, &doc.ChunkCount); err != nil {
			return nil, fmt.Errorf("failed to scan document info: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}

	return docs, nil
}

// Count returns the total number of stored chunks.
func (r *PolicyChunkRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM policy_chunks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count policy chunks: %w", err)
	}
	return count, nil
}
