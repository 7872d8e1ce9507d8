package repository

import (
	"errors"
	"testing"

	"policyqa-backend/models"

	"github.com/google/uuid"
)

func TestUploadJobLifecycle(t *testing.T) {
	store := NewUploadJobStore()

	job := store.Create("handbook.pdf")
	if job.Filename != "handbook.pdf" {
		t.Errorf("filename mismatch: %q", job.Filename)
	}
	if job.Status != models.UploadStatusProcessing {
		t.Errorf("new jobs start processing, got %q", job.Status)
	}
	if job.StartedAt.IsZero() {
		t.Error("expected StartedAt to be set")
	}

	if err := store.Complete(job.ID, 42); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	got, err := store.Get(job.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Status != models.UploadStatusCompleted {
		t.Errorf("status: got %q, want completed", got.Status)
	}
	if got.ChunksCreated != 42 {
		t.Errorf("chunks created: got %d, want 42", got.ChunksCreated)
	}
	if got.CompletedAt == nil {
		t.Error("expected CompletedAt to be set")
	}
}

func TestUploadJobFail(t *testing.T) {
	store := NewUploadJobStore()

	job := store.Create("broken.pdf")
	if err := store.Fail(job.ID, "parser rejected the file"); err != nil {
		t.Fatalf("fail failed: %v", err)
	}

	got, err := store.Get(job.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Status != models.UploadStatusFailed {
		t.Errorf("status: got %q, want failed", got.Status)
	}
	if got.ErrorMessage == nil || *got.ErrorMessage != "parser rejected the file" {
		t.Errorf("error message not recorded: %v", got.ErrorMessage)
	}
}

func TestUploadJobUnknownID(t *testing.T) {
	store := NewUploadJobStore()

	if _, err := store.Get(uuid.New()); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("get: expected ErrJobNotFound, got %v", err)
	}
	if err := store.Complete(uuid.New(), 1); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("complete: expected ErrJobNotFound, got %v", err)
	}
	if err := store.Fail(uuid.New(), "x"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("fail: expected ErrJobNotFound, got %v", err)
	}
}

func TestUploadJobCounts(t *testing.T) {
	store := NewUploadJobStore()

	a := store.Create("a.pdf")
	b := store.Create("b.pdf")
	store.Create("c.pdf")

	store.Complete(a.ID, 5)
	store.Fail(b.ID, "boom")

	processing, completed, failed := store.Counts()
	if processing != 1 || completed != 1 || failed != 1 {
		t.Errorf("counts: got %d/%d/%d, want 1/1/1", processing, completed, failed)
	}
	if store.Total() != 3 {
		t.Errorf("total: got %d, want 3", store.Total())
	}
}

func TestUploadJobGetReturnsSnapshot(t *testing.T) {
	store := NewUploadJobStore()

	job := store.Create("a.pdf")
	got, _ := store.Get(job.ID)
	got.Status = models.UploadStatusFailed

	fresh, _ := store.Get(job.ID)
	if fresh.Status != models.UploadStatusProcessing {
		t.Error("mutating a returned job must not affect the store")
	}
}
