package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"policyqa-backend/models"
)

// DocumentTypeForFilename maps a filename extension to the document type
// accepted by the pipeline. Unrecognized extensions are rejected here,
// before any chunking happens.
func DocumentTypeForFilename(filename string) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "pdf", nil
	case ".docx", ".doc":
		return "docx", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedDocumentType, filepath.Ext(filename))
	}
}

// ParserClient calls the external document-parsing service over HTTP. The
// service owns text extraction and OCR fallback; we only hand it the file
// and take back page-indexed plain text.
type ParserClient struct {
	baseURL string
	client  *http.Client
}

// NewParserClient creates a client for the parser service at baseURL.
func NewParserClient(baseURL string, timeout time.Duration) *ParserClient {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &ParserClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Parse uploads the file to the parser service and returns its pages.
func (p *ParserClient) Parse(ctx context.Context, filename string, file io.Reader) (*models.ParsedDocument, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build parse request: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to build parse request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/parse", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create parse request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: parser returned %d - %s", ErrParseFailed, resp.StatusCode, string(respBody))
	}

	var doc models.ParsedDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: bad parser response: %v", ErrParseFailed, err)
	}
	if doc.Filename == "" {
		doc.Filename = filename
	}

	return &doc, nil
}
