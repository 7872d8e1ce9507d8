package models

import (
	"time"

	"github.com/google/uuid"
)

// UploadJobStatus represents the status of a document upload job.
type UploadJobStatus string

const (
	UploadStatusProcessing UploadJobStatus = "processing"
	UploadStatusCompleted  UploadJobStatus = "completed"
	UploadStatusFailed     UploadJobStatus = "failed"
)

// UploadJob tracks one background document-ingestion run. Jobs are advisory
// status records held in process memory; the vector store is the source of
// truth for ingested chunks.
type UploadJob struct {
	ID            uuid.UUID       `json:"id"`
	Filename      string          `json:"filename"`
	Status        UploadJobStatus `json:"status"`
	ChunksCreated int             `json:"chunks_created,omitempty"`
	ErrorMessage  *string         `json:"error_message,omitempty"`
	StartedAt     time.Time       `json:"started_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
}
