package store

import (
	"context"
	"fmt"
	"strings"
)

// InsertChunks writes chunk metadata and chunk text in a single
// transaction, so a document's chunks become searchable all at once or
// not at all. Returned ids are the chunk_meta rowids, which double as
// vector-index ids.
func (s *Store) InsertChunks(ctx context.Context, documentID string, chunks []Chunk) ([]int64, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning chunk transaction: %w", err)
	}
	defer tx.Rollback()

	ids := make([]int64, 0, len(chunks))
	for _, c := range chunks {
		var id int64
		err := tx.QueryRowContext(ctx,
			`INSERT INTO chunk_meta
			 (document_id, ordinal, page_num, start_char, end_char, embed_model)
			 VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
			documentID, c.Ordinal, c.PageNum, c.Start, c.End, c.EmbedModel).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("inserting chunk meta: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO chunk_fts(rowid, text) VALUES (?, ?)", id, c.Text); err != nil {
			return nil, fmt.Errorf("inserting chunk text: %w", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing chunks: %w", err)
	}
	return ids, nil
}

// TotalChunks returns the number of chunks across all documents.
func (s *Store) TotalChunks(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunk_meta").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// MatchFTS runs a relevance-ranked full-text match and returns up to
// topK chunk ids with their bm25 scores. SQLite's bm25 is lower-is-better,
// so results come back best-first in ascending score order.
func (s *Store) MatchFTS(ctx context.Context, ftsQuery string, topK int) ([]ScoredChunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT rowid, bm25(chunk_fts) AS s
		 FROM chunk_fts WHERE chunk_fts MATCH ?
		 ORDER BY s LIMIT ?`, ftsQuery, topK)
	if err != nil {
		return nil, fmt.Errorf("fts match: %w", err)
	}
	defer rows.Close()

	var hits []ScoredChunk
	for rows.Next() {
		var h ScoredChunk
		if err := rows.Scan(&h.ChunkID, &h.Score); err != nil {
			return nil, fmt.Errorf("scanning fts hit: %w", err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// GetChunkRecords hydrates full chunk records (text, document name, page)
// for the given ids, preserving the input order. Ids that no longer
// resolve are skipped.
func (s *Store) GetChunkRecords(ctx context.Context, ids []int64) ([]ChunkRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT m.id, m.document_id, d.original_name, m.page_num,
		        m.start_char, m.end_char, t.text
		 FROM chunk_meta m
		 JOIN documents d ON d.id = m.document_id
		 JOIN chunk_fts t ON t.rowid = m.id
		 WHERE m.id IN (%s)`, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("hydrating chunks: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]ChunkRecord, len(ids))
	for rows.Next() {
		var r ChunkRecord
		if err := rows.Scan(&r.ChunkID, &r.DocumentID, &r.DocumentName,
			&r.PageNum, &r.StartChar, &r.EndChar, &r.Text); err != nil {
			return nil, fmt.Errorf("scanning chunk record: %w", err)
		}
		byID[r.ChunkID] = r
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]ChunkRecord, 0, len(ids))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}
