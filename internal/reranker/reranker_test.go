package reranker

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/hfarouk/docdex/internal/llm"
)

type scriptedProvider struct {
	responses []string
	calls     []llm.CompletionRequest
}

func (s *scriptedProvider) Name() string { return "scripted" }

func (s *scriptedProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	s.calls = append(s.calls, req)
	content := s.responses[0]
	if len(s.responses) > 1 {
		s.responses = s.responses[1:]
	}
	return &llm.CompletionResponse{Content: content}, nil
}

func TestScoreNormalizesToUnitRange(t *testing.T) {
	p := &scriptedProvider{responses: []string{`{"scores": [3, 0, 2], "reasons": ["exact", "off-topic", "close"]}`}}
	r := New(p)

	results, err := r.Score(context.Background(), "q", []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].Score != 1.0 || results[1].Score != 0.0 {
		t.Errorf("scores = %v / %v, want 1.0 / 0.0", results[0].Score, results[1].Score)
	}
	if results[2].Reason != "close" {
		t.Errorf("reason = %q", results[2].Reason)
	}
	for i, res := range results {
		if res.Index != i {
			t.Errorf("result %d index = %d", i, res.Index)
		}
	}
}

func TestScoreParseFailureIsNeutral(t *testing.T) {
	p := &scriptedProvider{responses: []string{"not json"}}
	r := New(p)

	results, err := r.Score(context.Background(), "q", []string{"a", "b"})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	for _, res := range results {
		if res.Score != 1.0/3.0 {
			t.Errorf("score = %v, want neutral", res.Score)
		}
		if res.Reason != "llm_parse_failed" {
			t.Errorf("reason = %q", res.Reason)
		}
	}
}

func TestScoreBatches(t *testing.T) {
	full := `{"scores": [1,1,1,1,1,1,1,1,1,1,1,1,1,1,1,1], "reasons": []}`
	p := &scriptedProvider{responses: []string{full, `{"scores": [2], "reasons": []}`}}
	r := New(p)

	candidates := make([]string, batchSize+1)
	for i := range candidates {
		candidates[i] = "text"
	}
	results, err := r.Score(context.Background(), "q", candidates)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if len(p.calls) != 2 {
		t.Errorf("made %d LLM calls, want 2", len(p.calls))
	}
	if len(results) != batchSize+1 {
		t.Errorf("got %d results, want %d", len(results), batchSize+1)
	}
	if results[batchSize].Index != batchSize {
		t.Errorf("last index = %d", results[batchSize].Index)
	}
}

func TestTrimLongCandidate(t *testing.T) {
	long := strings.Repeat("x", maxCandidateChars+100)
	got := trim(long)
	if len([]rune(got)) != maxCandidateChars+1 {
		t.Errorf("trimmed length = %d runes", len([]rune(got)))
	}
	if !strings.HasSuffix(got, "…") {
		t.Error("trimmed candidate missing ellipsis")
	}
}

func TestTrimMultiByteCandidate(t *testing.T) {
	long := strings.Repeat("界", maxCandidateChars+100)
	got := trim(long)
	if !utf8.ValidString(got) {
		t.Error("trimmed candidate is invalid UTF-8")
	}
	if len([]rune(got)) != maxCandidateChars+1 {
		t.Errorf("trimmed length = %d runes, want %d", len([]rune(got)), maxCandidateChars+1)
	}
}
