package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hfarouk/docdex/internal/db"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Store provides access to document and chunk metadata, plus the
// full-text index over chunk text.
type Store struct {
	db *db.DB
}

// New creates a store backed by the given database.
func New(database *db.DB) *Store {
	return &Store{db: database}
}

// CreateDocument inserts a new document in UPLOADED state. Re-uploading
// identical bytes is a silent no-op: the unique content hash makes the
// insert an ignore, and the already-stored document is returned with
// created=false.
func (s *Store) CreateDocument(ctx context.Context, doc Document) (*Document, bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO documents
		 (id, original_name, storage_path, content_hash, byte_size, page_count, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.OriginalName, doc.StoragePath, doc.ContentHash,
		doc.ByteSize, doc.PageCount, StatusUploaded)
	if err != nil {
		return nil, false, fmt.Errorf("inserting document: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("rows affected: %w", err)
	}

	stored, err := s.GetDocumentByHash(ctx, doc.ContentHash)
	if err != nil {
		return nil, false, err
	}
	return stored, n > 0, nil
}

// GetDocument returns the document with the given id.
func (s *Store) GetDocument(ctx context.Context, id string) (*Document, error) {
	return s.scanDocument(s.db.QueryRowContext(ctx,
		`SELECT id, original_name, storage_path, content_hash, byte_size,
		        COALESCE(page_count, 0), status, COALESCE(error_message, ''),
		        created_at, updated_at
		 FROM documents WHERE id = ?`, id))
}

// GetDocumentByHash returns the document with the given content hash.
func (s *Store) GetDocumentByHash(ctx context.Context, hash string) (*Document, error) {
	return s.scanDocument(s.db.QueryRowContext(ctx,
		`SELECT id, original_name, storage_path, content_hash, byte_size,
		        COALESCE(page_count, 0), status, COALESCE(error_message, ''),
		        created_at, updated_at
		 FROM documents WHERE content_hash = ?`, hash))
}

// ListDocuments returns all documents, newest first.
func (s *Store) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, original_name, storage_path, content_hash, byte_size,
		        COALESCE(page_count, 0), status, COALESCE(error_message, ''),
		        created_at, updated_at
		 FROM documents ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		d, err := scanDocumentRow(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	return docs, rows.Err()
}

// UpdateDocumentStatus transitions a document's lifecycle status.
// A non-zero pageCount and non-empty errMsg overwrite the stored values;
// zero values leave them untouched.
func (s *Store) UpdateDocumentStatus(ctx context.Context, id string, status DocumentStatus, pageCount int, errMsg string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE documents
		 SET status = ?,
		     page_count = CASE WHEN ? > 0 THEN ? ELSE page_count END,
		     error_message = CASE WHEN ? != '' THEN ? ELSE error_message END,
		     updated_at = datetime('now')
		 WHERE id = ?`,
		status, pageCount, pageCount, errMsg, errMsg, id)
	if err != nil {
		return fmt.Errorf("updating document %s status: %w", id, err)
	}
	return nil
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanDocument(row *sql.Row) (*Document, error) {
	d, err := scanDocumentRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, err
}

func scanDocumentRow(sc scanner) (*Document, error) {
	var (
		d                    Document
		createdAt, updatedAt string
	)
	err := sc.Scan(&d.ID, &d.OriginalName, &d.StoragePath, &d.ContentHash,
		&d.ByteSize, &d.PageCount, &d.Status, &d.ErrorMessage,
		&createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	d.CreatedAt = parseSQLiteTime(createdAt)
	d.UpdatedAt = parseSQLiteTime(updatedAt)
	return &d, nil
}

// parseSQLiteTime parses the datetime('now') text format, falling back to
// RFC 3339 for values written by other tools.
func parseSQLiteTime(s string) time.Time {
	if t, err := time.Parse(time.DateTime, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}
