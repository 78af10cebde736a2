package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/hfarouk/docdex/internal/chat"
	"github.com/hfarouk/docdex/internal/config"
	"github.com/hfarouk/docdex/internal/db"
	"github.com/hfarouk/docdex/internal/embeddings"
	"github.com/hfarouk/docdex/internal/ingest"
	"github.com/hfarouk/docdex/internal/intent"
	"github.com/hfarouk/docdex/internal/llm"
	"github.com/hfarouk/docdex/internal/queue"
	"github.com/hfarouk/docdex/internal/refiner"
	"github.com/hfarouk/docdex/internal/retriever"
	"github.com/hfarouk/docdex/internal/store"
	"github.com/hfarouk/docdex/internal/vectorindex"
)

type fixedEmbedder struct{}

func (fixedEmbedder) Name() string { return "fixed" }

func (fixedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0, 0, 0}
	}
	return out, nil
}

// cannedLLM answers intent calls with a trigger and everything else with
// fixed text.
type cannedLLM struct{}

func (cannedLLM) Name() string { return "canned" }

func (cannedLLM) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if req.JSONMode {
		return &llm.CompletionResponse{Content: `{"trigger": true, "intent": "kb_search",
			"semantic_query": "", "keyword_query": "", "must_terms": [], "should_terms": []}`}, nil
	}
	return &llm.CompletionResponse{Content: "canned answer"}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	st := store.New(database)
	q := queue.New(database, 5*time.Minute)
	index, err := vectorindex.NewManager(t.TempDir(), vectorindex.Params{
		MinTrainSize: 5000, TrainSampleCap: 100000, BackfillBatchSize: 50000, NProbe: 16,
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	svc, err := ingest.New(st, q, t.TempDir())
	if err != nil {
		t.Fatalf("ingest.New: %v", err)
	}

	var embedder embeddings.Embedder = fixedEmbedder{}
	provider := cannedLLM{}
	return New(Config{Port: 0, AllowAll: true}, Deps{
		Store:     st,
		Queue:     q,
		Ingest:    svc,
		Index:     index,
		Retriever: retriever.New(embedder, index, st),
		Refiner:   refiner.New(provider),
		Intent:    intent.New(provider),
		Assistant: chat.New(provider),
		Search:    config.SearchConfig{TopK: 8, RRFK: 60},
		Log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", body["status"])
	}
}

func TestCORSHeaders(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("OPTIONS", "/healthz", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("expected CORS Allow-Origin header")
	}
}

func uploadRequest(t *testing.T, name, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("files", name)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := io.WriteString(fw, content); err != nil {
		t.Fatalf("writing form file: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest("POST", "/api/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadAndListDocuments(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, uploadRequest(t, "notes.txt", "the content"))
	if w.Code != http.StatusOK {
		t.Fatalf("upload status = %d: %s", w.Code, w.Body.String())
	}
	var results []ingest.Result
	if err := json.Unmarshal(w.Body.Bytes(), &results); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(results) != 1 || results[0].Status != "ok" {
		t.Fatalf("results = %+v", results)
	}

	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("GET", "/api/documents", nil))
	var docs []store.Document
	if err := json.Unmarshal(w.Body.Bytes(), &docs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(docs) != 1 || docs[0].Status != store.StatusUploaded {
		t.Fatalf("docs = %+v", docs)
	}

	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("GET", "/api/documents/"+docs[0].ID, nil))
	if w.Code != http.StatusOK {
		t.Errorf("get document status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("GET", "/api/documents/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("missing document status = %d, want 404", w.Code)
	}
}

func TestUploadNoFiles(t *testing.T) {
	srv := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.Close()
	req := httptest.NewRequest("POST", "/api/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestListJobsAfterUpload(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, uploadRequest(t, "a.txt", "text"))
	if w.Code != http.StatusOK {
		t.Fatalf("upload status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("GET", "/api/jobs", nil))
	var jobs []queue.Job
	if err := json.Unmarshal(w.Body.Bytes(), &jobs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Status != queue.StatusQueued {
		t.Fatalf("jobs = %+v", jobs)
	}
}

func TestQueryEmptyCorpus(t *testing.T) {
	srv := newTestServer(t)

	body := strings.NewReader(`{"query": "what is in the docs?"}`)
	req := httptest.NewRequest("POST", "/api/query", body)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Trigger   bool          `json:"trigger"`
		IndexType string        `json:"index_type"`
		Results   []chat.Source `json:"results"`
		Answer    string        `json:"answer"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.Trigger {
		t.Error("expected intent trigger")
	}
	if resp.IndexType != "none" {
		t.Errorf("index type = %q, want none", resp.IndexType)
	}
	if len(resp.Results) != 0 {
		t.Errorf("results = %+v, want empty", resp.Results)
	}
	if resp.Answer != "canned answer" {
		t.Errorf("answer = %q", resp.Answer)
	}
}

func TestQueryRequiresQuery(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("POST", "/api/query", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestTruncateTextRuneBoundary(t *testing.T) {
	long := strings.Repeat("文", maxResultChars+50)
	got := truncateText(long)
	if !utf8.ValidString(got) {
		t.Error("truncated text is invalid UTF-8")
	}
	if n := utf8.RuneCountInString(got); n != maxResultChars+1 {
		t.Errorf("truncated length = %d runes, want %d", n, maxResultChars+1)
	}
	if !strings.HasSuffix(got, "…") {
		t.Error("truncated text missing ellipsis")
	}

	short := "short result"
	if truncateText(short) != short {
		t.Error("short text should pass through unchanged")
	}
}

func TestIndexStatus(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("GET", "/api/index/status", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body struct {
		Index  vectorindex.Status `json:"index"`
		Chunks int                `json:"chunks"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Index.Kind != vectorindex.KindNone || body.Chunks != 0 {
		t.Errorf("body = %+v, want empty state", body)
	}
}
