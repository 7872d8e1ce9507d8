package models

// Page is one page of extracted text as returned by the document parser
// service. Pages are immutable once produced.
type Page struct {
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
	CharCount  int    `json:"char_count"`
}

// ParsedDocument is the parser service's output for one uploaded file.
type ParsedDocument struct {
	Filename     string `json:"filename"`
	DocumentType string `json:"document_type"` // "pdf" or "docx"
	Pages        []Page `json:"pages"`
}

// DocumentInfo summarizes one ingested document in the vector store.
type DocumentInfo struct {
	DocumentID   string `json:"document_id"`
	Filename     string `json:"filename"`
	DocumentType string `json:"document_type"`
	ChunkCount   int    `json:"chunk_count"`
}
