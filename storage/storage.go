package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"policyqa-backend/config"
)

// ErrNotFound is returned when a stored file does not exist.
var ErrNotFound = errors.New("file not found")

// Storage stores the original uploaded documents so they can be re-ingested
// or inspected later. Keys are deterministic per (documentID, filename), so
// re-uploading the same file overwrites its previous copy.
type Storage interface {
	// Upload stores a file and returns the storage path.
	Upload(ctx context.Context, documentID, filename string, data io.Reader) (string, error)

	// Download retrieves a file by storage path. Returns ErrNotFound if it
	// does not exist.
	Download(ctx context.Context, storagePath string) (io.ReadCloser, error)

	// Delete removes a file by storage path. Returns ErrNotFound if it does
	// not exist.
	Delete(ctx context.Context, storagePath string) error
}

// NewStorageFromConfig creates a storage backend from the app config.
func NewStorageFromConfig(cfg config.StorageConfig) (Storage, error) {
	switch cfg.Type {
	case "local":
		return NewLocalStorage(cfg.LocalPath)
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, errors.New("storage.s3_bucket is required for s3 storage")
		}
		return NewS3Storage(cfg.S3Bucket, cfg.S3Region)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// PathFor returns the deterministic storage path for a document. Both upload
// and delete recompute it, so nothing needs to persist the path.
func PathFor(documentID, filename string) string {
	return path.Join(documentID, sanitizeFilename(filename))
}

// sanitizeFilename strips path separators and spaces so uploaded names
// cannot escape their document directory.
func sanitizeFilename(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	name = strings.ReplaceAll(name, " ", "_")
	if name == "" || name == "." || name == ".." {
		name = "document"
	}
	return name
}

// contentTypeFor determines the MIME type from the filename extension.
func contentTypeFor(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
