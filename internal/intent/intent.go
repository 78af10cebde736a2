// Package intent decides whether a query should hit the knowledge base
// and, if so, produces search-friendly rewrites of it.
package intent

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/hfarouk/docdex/internal/llm"
)

const systemPrompt = `You are an intent and query-rewriting assistant for a RAG system.
Decide if the user's message should trigger a knowledge-base search (documents).
Ensure that a generic question that could be easily answered through web search
is not supposed to trigger a knowledge-base search.
If yes, output high-quality rewrites:
- semantic_query: best semantic form (natural language) for semantic similarity checks
- keyword_query: FTS-friendly string; OR terms; keep quotes together
- must_terms: []  (exact terms that must appear; else empty)
- should_terms: [] (optional helpful terms; do not force any keyword here just to fill this)
Return STRICT JSON only:
{
  "trigger": boolean,
  "intent": "kb_search" | "smalltalk" | "nonsense" | "other",
  "reason": string,
  "semantic_query": string,
  "keyword_query": string,
  "must_terms": string[],
  "should_terms": string[]
}`

var jsonFenceRE = regexp.MustCompile("(?s)^\\s*```(?:json)?\\s*(.*?)\\s*```\\s*$")

// Analysis is the parsed intent decision for one query.
type Analysis struct {
	Trigger       bool     `json:"trigger"`
	Intent        string   `json:"intent"`
	Reason        string   `json:"reason"`
	SemanticQuery string   `json:"semantic_query"`
	KeywordQuery  string   `json:"keyword_query"`
	MustTerms     []string `json:"must_terms"`
	ShouldTerms   []string `json:"should_terms"`
}

// Service asks an LLM for the intent analysis.
type Service struct {
	llm llm.Provider
}

func New(provider llm.Provider) *Service {
	return &Service{llm: provider}
}

// Analyze classifies the query. It never fails: any LLM or parse error
// degrades to a no-trigger analysis carrying the raw query, so retrieval
// simply does not run.
func (s *Service) Analyze(ctx context.Context, query string) Analysis {
	resp, err := s.llm.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: "User query:\n" + query + "\nRespond with STRICT JSON only."},
		},
		Temperature: 0.0,
		JSONMode:    true,
	})
	if err != nil {
		return Analysis{
			Intent:        "other",
			Reason:        "llm_failed: " + err.Error(),
			SemanticQuery: query,
			KeywordQuery:  query,
		}
	}
	return parseAnalysis(resp.Content)
}

// parseAnalysis is deliberately forgiving: models wrap JSON in code
// fences or prose often enough that a strict parse alone loses queries.
func parseAnalysis(text string) Analysis {
	var a Analysis
	if err := json.Unmarshal([]byte(text), &a); err == nil {
		return a
	}

	stripped := stripCodeFences(text)
	if obj := firstJSONObject(stripped); obj != "" {
		if err := json.Unmarshal([]byte(obj), &a); err == nil {
			return a
		}
	}

	return Analysis{Intent: "other", Reason: "llm_failed: unparseable response"}
}

func stripCodeFences(s string) string {
	if m := jsonFenceRE.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

// firstJSONObject returns the first brace-balanced object in the text,
// or empty when there is none.
func firstJSONObject(text string) string {
	text = strings.TrimSpace(text)
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
