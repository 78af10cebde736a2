package store

import "time"

// DocumentStatus is the lifecycle state of an uploaded document.
type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "UPLOADED"
	StatusProcessing DocumentStatus = "PROCESSING"
	StatusIndexed    DocumentStatus = "INDEXED"
	StatusFailed     DocumentStatus = "FAILED"
)

// Document is a stored upload and its indexing state.
type Document struct {
	ID           string         `json:"id"`
	OriginalName string         `json:"original_name"`
	StoragePath  string         `json:"storage_path"`
	ContentHash  string         `json:"content_hash"`
	ByteSize     int64          `json:"byte_size"`
	PageCount    int            `json:"page_count"`
	Status       DocumentStatus `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Chunk is one window of extracted text, the unit of retrieval.
// Start and End are character offsets within the source page.
type Chunk struct {
	Text       string
	Ordinal    int
	PageNum    int
	Start      int
	End        int
	EmbedModel string
}

// ChunkRecord is a hydrated chunk joined with its document, as returned
// to retrieval callers.
type ChunkRecord struct {
	ChunkID      int64  `json:"chunk_id"`
	DocumentID   string `json:"document_id"`
	DocumentName string `json:"document_name"`
	PageNum      int    `json:"page_num"`
	StartChar    int    `json:"start_char"`
	EndChar      int    `json:"end_char"`
	Text         string `json:"text"`
}

// ScoredChunk pairs a chunk id with a retrieval score. The meaning of the
// score depends on the producer (bm25 is lower-is-better, vector search
// higher-is-better).
type ScoredChunk struct {
	ChunkID int64
	Score   float64
}
