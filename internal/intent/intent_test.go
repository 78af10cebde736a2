package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/hfarouk/docdex/internal/llm"
)

type stubProvider struct {
	content string
	err     error
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &llm.CompletionResponse{Content: s.content}, nil
}

const goodJSON = `{"trigger": true, "intent": "kb_search", "reason": "doc question",
"semantic_query": "how do leases expire", "keyword_query": "lease expiry",
"must_terms": ["lease"], "should_terms": ["expiry", "timeout"]}`

func TestAnalyzeParsesStrictJSON(t *testing.T) {
	s := New(&stubProvider{content: goodJSON})
	a := s.Analyze(context.Background(), "how do leases expire?")

	if !a.Trigger || a.Intent != "kb_search" {
		t.Errorf("analysis = %+v, want kb_search trigger", a)
	}
	if a.SemanticQuery != "how do leases expire" {
		t.Errorf("semantic query = %q", a.SemanticQuery)
	}
	if len(a.MustTerms) != 1 || a.MustTerms[0] != "lease" {
		t.Errorf("must terms = %v", a.MustTerms)
	}
}

func TestParseAnalysisRecoversFencedAndWrapped(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"code fence", "```json\n" + goodJSON + "\n```"},
		{"bare fence", "```\n" + goodJSON + "\n```"},
		{"prose wrapped", "Sure! Here is the analysis:\n" + goodJSON + "\nLet me know if you need more."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := parseAnalysis(tt.text)
			if !a.Trigger || a.Intent != "kb_search" {
				t.Errorf("parseAnalysis(%q) = %+v", tt.text, a)
			}
		})
	}
}

func TestParseAnalysisGarbageFallsBack(t *testing.T) {
	a := parseAnalysis("I could not decide, sorry.")
	if a.Trigger {
		t.Error("garbage response must not trigger retrieval")
	}
	if a.Intent != "other" {
		t.Errorf("intent = %q, want other", a.Intent)
	}
}

func TestAnalyzeLLMErrorKeepsQuery(t *testing.T) {
	s := New(&stubProvider{err: errors.New("connection refused")})
	a := s.Analyze(context.Background(), "my question")

	if a.Trigger {
		t.Error("failed analysis must not trigger retrieval")
	}
	if a.SemanticQuery != "my question" || a.KeywordQuery != "my question" {
		t.Errorf("fallback queries = %q / %q, want raw query", a.SemanticQuery, a.KeywordQuery)
	}
}
