package repository

import (
	"errors"
	"sync"
	"time"

	"policyqa-backend/models"

	"github.com/google/uuid"
)

// ErrJobNotFound is returned when an upload job ID is unknown.
var ErrJobNotFound = errors.New("upload job not found")

// UploadJobStore tracks upload jobs in process memory. Jobs are advisory
// status records, not the source of truth for stored chunks, so losing them
// on restart is acceptable. Records are never evicted: the map grows with
// every upload for the life of the process, which is an accepted cost while
// job records stay small and restarts clear them.
type UploadJobStore struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*models.UploadJob
}

// NewUploadJobStore creates an empty job store.
func NewUploadJobStore() *UploadJobStore {
	return &UploadJobStore{
		jobs: make(map[uuid.UUID]*models.UploadJob),
	}
}

// Create registers a new processing job for the given filename.
func (s *UploadJobStore) Create(filename string) *models.UploadJob {
	job := &models.UploadJob{
		ID:        uuid.New(),
		Filename:  filename,
		Status:    models.UploadStatusProcessing,
		StartedAt: time.Now(),
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	snapshot := *job
	return &snapshot
}

// Get returns a snapshot of the job with the given ID.
func (s *UploadJobStore) Get(id uuid.UUID) (*models.UploadJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	snapshot := *job
	return &snapshot, nil
}

// Complete marks a job as completed with the number of chunks created.
func (s *UploadJobStore) Complete(id uuid.UUID, chunksCreated int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	now := time.Now()
	job.Status = models.UploadStatusCompleted
	job.ChunksCreated = chunksCreated
	job.CompletedAt = &now
	return nil
}

// Fail marks a job as failed with an error message.
func (s *UploadJobStore) Fail(id uuid.UUID, errorMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	now := time.Now()
	job.Status = models.UploadStatusFailed
	job.ErrorMessage = &errorMessage
	job.CompletedAt = &now
	return nil
}

// Counts returns the number of jobs per status.
func (s *UploadJobStore) Counts() (processing, completed, failed int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, job := range s.jobs {
		switch job.Status {
		case models.UploadStatusProcessing:
			processing++
		case models.UploadStatusCompleted:
			completed++
		case models.UploadStatusFailed:
			failed++
		}
	}
	return processing, completed, failed
}

// Total returns the total number of tracked jobs.
func (s *UploadJobStore) Total() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
