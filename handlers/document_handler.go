package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"policyqa-backend/models"
	"policyqa-backend/repository"
	"policyqa-backend/service"
	"policyqa-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxUploadSize = 10 * 1024 * 1024 // 10MB

// DocumentHandler handles HTTP requests for document uploads and the
// document catalog.
type DocumentHandler struct {
	ingest    *service.IngestService
	jobs      *repository.UploadJobStore
	chunkRepo *repository.PolicyChunkRepository
	storage   storage.Storage
}

// NewDocumentHandler creates a new document handler.
func NewDocumentHandler(
	ingest *service.IngestService,
	jobs *repository.UploadJobStore,
	chunkRepo *repository.PolicyChunkRepository,
	fileStorage storage.Storage,
) *DocumentHandler {
	return &DocumentHandler{
		ingest:    ingest,
		jobs:      jobs,
		chunkRepo: chunkRepo,
		storage:   fileStorage,
	}
}

// UploadDocument handles POST /api/documents/upload. The file is validated
// and persisted synchronously; parsing, chunking, embedding and indexing
// run in the background under the returned job ID.
func (h *DocumentHandler) UploadDocument(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MISSING_FILE",
				"message": "File is required",
			},
		})
		return
	}

	if fileHeader.Size > maxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FILE_TOO_LARGE",
				"message": fmt.Sprintf("File size exceeds maximum of %d bytes", int64(maxUploadSize)),
			},
		})
		return
	}

	// Unsupported types are rejected here, before anything is stored or
	// chunked.
	if _, err := service.DocumentTypeForFilename(fileHeader.Filename); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_FILE_TYPE",
				"message": "Unsupported file type. Only PDF and DOCX files are allowed.",
			},
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FILE_OPEN_ERROR",
				"message": err.Error(),
			},
		})
		return
	}
	defer file.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(file); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FILE_READ_ERROR",
				"message": err.Error(),
			},
		})
		return
	}
	data := buf.Bytes()

	documentID := service.DocumentID(fileHeader.Filename)
	storagePath, err := h.storage.Upload(c.Request.Context(), documentID, fileHeader.Filename, bytes.NewReader(data))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UPLOAD_FAILED",
				"message": fmt.Sprintf("Failed to store file: %v", err),
			},
		})
		return
	}
	log.Printf("Stored upload %s at %s", fileHeader.Filename, storagePath)

	job := h.jobs.Create(fileHeader.Filename)

	// Ingestion outlives the request, so it gets its own context.
	go func() {
		if err := h.ingest.ProcessDocument(context.Background(), job.ID, job.Filename, bytes.NewReader(data)); err != nil {
			log.Printf("Warning: ingestion failed for %s (job %s): %v", job.Filename, job.ID, err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"data": gin.H{
			"message":  "File uploaded successfully",
			"job_id":   job.ID,
			"filename": job.Filename,
			"status":   job.Status,
		},
	})
}

// GetUploadStatus handles GET /api/uploads/:id.
func (h *DocumentHandler) GetUploadStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_JOB_ID",
				"message": "Invalid job ID format",
			},
		})
		return
	}

	job, err := h.jobs.Get(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "JOB_NOT_FOUND",
				"message": "Job not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    job,
	})
}

// ListDocuments handles GET /api/documents.
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	docs, err := h.chunkRepo.ListDocuments(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "LIST_FAILED",
				"message": fmt.Sprintf("Failed to list documents: %v", err),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"documents": docs,
			"total":     len(docs),
		},
	})
}

// DeleteDocument handles DELETE /api/documents/:id. Removes the document's
// chunks from the vector store and its source file from storage.
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	documentID := c.Param("id")

	docs, err := h.chunkRepo.ListDocuments(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DELETE_FAILED",
				"message": fmt.Sprintf("Failed to delete document: %v", err),
			},
		})
		return
	}

	var target *models.DocumentInfo
	for i := range docs {
		if docs[i].DocumentID == documentID {
			target = &docs[i]
			break
		}
	}
	if target == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Document not found",
			},
		})
		return
	}

	if err := h.chunkRepo.DeleteByDocument(c.Request.Context(), documentID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DELETE_FAILED",
				"message": fmt.Sprintf("Failed to delete document: %v", err),
			},
		})
		return
	}

	storagePath := storage.PathFor(documentID, target.Filename)
	if err := h.storage.Delete(c.Request.Context(), storagePath); err != nil && !errors.Is(err, storage.ErrNotFound) {
		// Chunks are already gone; a stale source file is only worth a log line.
		log.Printf("Warning: failed to delete stored file %s: %v", storagePath, err)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"message":     "Document deleted successfully",
			"document_id": documentID,
			"filename":    target.Filename,
		},
	})
}
