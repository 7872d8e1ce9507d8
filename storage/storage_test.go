package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
)

func TestPathFor(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     string
	}{
		{"plain", "handbook.pdf", "abc123/handbook.pdf"},
		{"spaces", "student handbook.pdf", "abc123/student_handbook.pdf"},
		{"path traversal", "../../etc/passwd", "abc123/passwd"},
		{"windows separators", `dir\handbook.pdf`, "abc123/handbook.pdf"},
		{"empty", "", "abc123/document"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PathFor("abc123", tt.filename); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPathForDeterministic(t *testing.T) {
	a := PathFor("abc123", "handbook.pdf")
	b := PathFor("abc123", "handbook.pdf")
	if a != b {
		t.Fatalf("same inputs produced different paths: %q vs %q", a, b)
	}
}

func TestLocalStorageRoundtrip(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	ctx := context.Background()

	content := []byte("policy document body")
	path, err := store.Upload(ctx, "abc123", "handbook.pdf", bytes.NewReader(content))
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if path != PathFor("abc123", "handbook.pdf") {
		t.Errorf("unexpected storage path: %q", path)
	}

	r, err := store.Download(ctx, path)
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}
	defer r.Close()

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("content mismatch: %q", got)
	}

	if err := store.Delete(ctx, path); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := store.Download(ctx, path); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestLocalStorageUploadOverwrites(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	ctx := context.Background()

	if _, err := store.Upload(ctx, "abc123", "handbook.pdf", bytes.NewReader([]byte("v1"))); err != nil {
		t.Fatalf("first upload failed: %v", err)
	}
	path, err := store.Upload(ctx, "abc123", "handbook.pdf", bytes.NewReader([]byte("v2")))
	if err != nil {
		t.Fatalf("second upload failed: %v", err)
	}

	r, err := store.Download(ctx, path)
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}
	defer r.Close()

	got, _ := io.ReadAll(r)
	if string(got) != "v2" {
		t.Errorf("expected overwrite, got %q", got)
	}
}

func TestLocalStorageDeleteMissing(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}

	if err := store.Delete(context.Background(), "abc123/missing.pdf"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
