// Package ingest stores uploaded files and enqueues them for indexing.
// Ingestion is cheap and synchronous; the expensive work (extraction,
// chunking, embedding) happens later in the worker.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/hfarouk/docdex/internal/extract"
	"github.com/hfarouk/docdex/internal/queue"
	"github.com/hfarouk/docdex/internal/store"
)

// Result reports the outcome of ingesting one file.
type Result struct {
	DocumentID string `json:"document_id,omitempty"`
	Filename   string `json:"filename"`
	StoredAs   string `json:"stored_as,omitempty"`
	Bytes      int64  `json:"bytes"`
	Pages      int    `json:"pages"`
	SHA256     string `json:"sha256,omitempty"`
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
}

// Service ingests files into the upload directory, the document store
// and the job queue.
type Service struct {
	store     *store.Store
	queue     *queue.Queue
	uploadDir string
}

// New creates the service, ensuring the upload directory exists.
func New(st *store.Store, q *queue.Queue, uploadDir string) (*Service, error) {
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}
	return &Service{store: st, queue: q, uploadDir: uploadDir}, nil
}

// IngestPath ingests a file already on disk, for CLI use.
func (s *Service) IngestPath(ctx context.Context, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return s.Ingest(ctx, filepath.Base(path), f)
}

// Ingest streams the file to the upload directory while hashing it, then
// records the document and enqueues an indexing job. Unsupported file
// types and re-uploads are reported in the Result, not as errors.
func (s *Service) Ingest(ctx context.Context, originalName string, r io.Reader) (*Result, error) {
	if _, err := extract.ForFile(originalName); err != nil {
		return &Result{Filename: originalName, Status: "error", Message: err.Error()}, nil
	}

	docID := uuid.NewString()
	dest := filepath.Join(s.uploadDir, docID+"_"+filepath.Base(originalName))

	out, err := os.Create(dest)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", dest, err)
	}
	hasher := sha256.New()
	nbytes, err := io.Copy(io.MultiWriter(out, hasher), r)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dest)
		return nil, fmt.Errorf("storing %s: %w", originalName, err)
	}
	sum := hex.EncodeToString(hasher.Sum(nil))

	// Page count is best effort: a file that stores fine but does not
	// parse still gets a document record, and the worker will record the
	// parse failure properly.
	message := "stored for indexing"
	pages, perr := extract.PageCount(dest)
	if perr != nil {
		pages = 0
		message = "stored but could not parse: " + perr.Error()
	}

	doc, created, err := s.store.CreateDocument(ctx, store.Document{
		ID:           docID,
		OriginalName: originalName,
		StoragePath:  dest,
		ContentHash:  sum,
		ByteSize:     nbytes,
		PageCount:    pages,
	})
	if err != nil {
		os.Remove(dest)
		return nil, err
	}
	if !created {
		// Identical bytes already ingested under another document.
		os.Remove(dest)
		return &Result{
			DocumentID: doc.ID,
			Filename:   originalName,
			StoredAs:   doc.StoragePath,
			Bytes:      doc.ByteSize,
			Pages:      doc.PageCount,
			SHA256:     sum,
			Status:     "duplicate",
			Message:    "identical content already ingested",
		}, nil
	}

	if err := s.queue.Enqueue(ctx, docID, sum); err != nil {
		return nil, err
	}

	return &Result{
		DocumentID: docID,
		Filename:   originalName,
		StoredAs:   dest,
		Bytes:      nbytes,
		Pages:      pages,
		SHA256:     sum,
		Status:     "ok",
		Message:    message,
	}, nil
}
