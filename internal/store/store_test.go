package store

import (
	"context"
	"errors"
	"testing"

	"github.com/hfarouk/docdex/internal/db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return New(database)
}

func TestCreateDocumentDedupByHash(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc := Document{
		ID:           "doc-1",
		OriginalName: "report.pdf",
		StoragePath:  "data/uploads/doc-1_report.pdf",
		ContentHash:  "abc123",
		ByteSize:     1024,
		PageCount:    3,
	}

	first, created, err := s.CreateDocument(ctx, doc)
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	if !created {
		t.Error("first insert: created = false, want true")
	}
	if first.Status != StatusUploaded {
		t.Errorf("status = %s, want UPLOADED", first.Status)
	}

	// Same bytes under a new id: silently returns the existing record.
	dup := doc
	dup.ID = "doc-2"
	second, created, err := s.CreateDocument(ctx, dup)
	if err != nil {
		t.Fatalf("CreateDocument (dup): %v", err)
	}
	if created {
		t.Error("duplicate insert: created = true, want false")
	}
	if second.ID != "doc-1" {
		t.Errorf("duplicate returned id %s, want doc-1", second.ID)
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetDocument(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateDocumentStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, _, err := s.CreateDocument(ctx, Document{
		ID: "doc-1", OriginalName: "a.txt", StoragePath: "p", ContentHash: "h1", ByteSize: 1,
	})
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}

	if err := s.UpdateDocumentStatus(ctx, "doc-1", StatusProcessing, 0, ""); err != nil {
		t.Fatalf("UpdateDocumentStatus: %v", err)
	}
	if err := s.UpdateDocumentStatus(ctx, "doc-1", StatusIndexed, 7, ""); err != nil {
		t.Fatalf("UpdateDocumentStatus: %v", err)
	}

	doc, err := s.GetDocument(ctx, "doc-1")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if doc.Status != StatusIndexed {
		t.Errorf("status = %s, want INDEXED", doc.Status)
	}
	if doc.PageCount != 7 {
		t.Errorf("page_count = %d, want 7", doc.PageCount)
	}
}

func TestInsertChunksAndHydrate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, _, err := s.CreateDocument(ctx, Document{
		ID: "doc-1", OriginalName: "guide.txt", StoragePath: "p", ContentHash: "h1", ByteSize: 9,
	})
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}

	chunks := []Chunk{
		{Text: "cats are mammals", Ordinal: 0, PageNum: 1, Start: 0, End: 16, EmbedModel: "m"},
		{Text: "dogs are loyal", Ordinal: 1, PageNum: 1, Start: 8, End: 22, EmbedModel: "m"},
	}
	ids, err := s.InsertChunks(ctx, "doc-1", chunks)
	if err != nil {
		t.Fatalf("InsertChunks: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("got %d ids, want 2", len(ids))
	}

	total, err := s.TotalChunks(ctx)
	if err != nil {
		t.Fatalf("TotalChunks: %v", err)
	}
	if total != 2 {
		t.Errorf("TotalChunks = %d, want 2", total)
	}

	// Hydration preserves the requested order.
	records, err := s.GetChunkRecords(ctx, []int64{ids[1], ids[0]})
	if err != nil {
		t.Fatalf("GetChunkRecords: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].ChunkID != ids[1] || records[1].ChunkID != ids[0] {
		t.Errorf("records out of order: %d, %d", records[0].ChunkID, records[1].ChunkID)
	}
	if records[0].DocumentName != "guide.txt" {
		t.Errorf("document name = %q, want guide.txt", records[0].DocumentName)
	}
	if records[1].Text != "cats are mammals" {
		t.Errorf("text = %q", records[1].Text)
	}
}

func TestMatchFTS(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, _, err := s.CreateDocument(ctx, Document{
		ID: "doc-1", OriginalName: "pets.txt", StoragePath: "p", ContentHash: "h1", ByteSize: 9,
	})
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}

	ids, err := s.InsertChunks(ctx, "doc-1", []Chunk{
		{Text: "cats purr when content", Ordinal: 0, PageNum: 1, End: 22, EmbedModel: "m"},
		{Text: "dogs bark at strangers", Ordinal: 1, PageNum: 1, End: 22, EmbedModel: "m"},
	})
	if err != nil {
		t.Fatalf("InsertChunks: %v", err)
	}

	hits, err := s.MatchFTS(ctx, "(cats)", 10)
	if err != nil {
		t.Fatalf("MatchFTS: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}
	if hits[0].ChunkID != ids[0] {
		t.Errorf("hit id = %d, want %d", hits[0].ChunkID, ids[0])
	}

	// Porter stemming matches the singular form too.
	hits, err = s.MatchFTS(ctx, "cat", 10)
	if err != nil {
		t.Fatalf("MatchFTS (stemmed): %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("stemmed match: got %d hits, want 1", len(hits))
	}
}

func TestMatchFTSNoResults(t *testing.T) {
	s := newTestStore(t)
	hits, err := s.MatchFTS(context.Background(), "nothing", 10)
	if err != nil {
		t.Fatalf("MatchFTS: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("got %d hits, want 0", len(hits))
	}
}
