// Package reranker scores retrieved chunks against the query with an
// LLM, giving a second relevance opinion on top of rank fusion.
package reranker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hfarouk/docdex/internal/llm"
)

const systemPrompt = "You are a reranker. Given a user query and a list of candidates, " +
	"assign an integer score 0 to 3 to each candidate where 3=highly relevant, 2=loosely relevant, " +
	"1=somewhat relevant, 0=not relevant at all. " +
	`Return STRICT JSON as: {"scores": [s0, s1, ...], "reasons": ["...", ...]} only.`

const (
	batchSize         = 16
	maxCandidateChars = 1000
)

// Result is the score for one candidate, normalized to [0,1]. Index
// refers to the caller's candidate slice.
type Result struct {
	Index  int
	Score  float64
	Reason string
}

// Reranker scores candidates against a query.
type Reranker interface {
	Score(ctx context.Context, query string, candidates []string) ([]Result, error)
}

// LLMReranker implements Reranker with batched completion calls.
type LLMReranker struct {
	llm llm.Provider
}

func New(provider llm.Provider) *LLMReranker {
	return &LLMReranker{llm: provider}
}

type rerankResponse struct {
	Scores  []float64 `json:"scores"`
	Reasons []string  `json:"reasons"`
}

// Score rates every candidate in batches. A batch whose response cannot
// be parsed degrades to neutral scores instead of failing the query.
func (r *LLMReranker) Score(ctx context.Context, query string, candidates []string) ([]Result, error) {
	results := make([]Result, 0, len(candidates))
	for start := 0; start < len(candidates); start += batchSize {
		end := start + batchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		batch := candidates[start:end]

		lines := []string{"Query: " + query, "Candidates:"}
		for i, c := range batch {
			lines = append(lines, fmt.Sprintf("[%d] %s", i, trim(c)))
		}

		resp, err := r.llm.Complete(ctx, llm.CompletionRequest{
			Messages: []llm.Message{
				{Role: llm.RoleSystem, Content: systemPrompt},
				{Role: llm.RoleUser, Content: strings.Join(lines, "\n")},
			},
			Temperature: 0.0,
			JSONMode:    true,
		})
		if err != nil {
			return nil, fmt.Errorf("rerank batch at %d: %w", start, err)
		}

		var parsed rerankResponse
		if jerr := json.Unmarshal([]byte(resp.Content), &parsed); jerr != nil || len(parsed.Scores) < len(batch) {
			for i := range batch {
				results = append(results, Result{Index: start + i, Score: 1.0 / 3.0, Reason: "llm_parse_failed"})
			}
			continue
		}

		for i := range batch {
			s := parsed.Scores[i] / 3.0
			if s < 0 {
				s = 0
			}
			if s > 1 {
				s = 1
			}
			res := Result{Index: start + i, Score: s}
			if i < len(parsed.Reasons) {
				res.Reason = parsed.Reasons[i]
			}
			results = append(results, res)
		}
	}
	return results, nil
}

func trim(s string) string {
	runes := []rune(s)
	if len(runes) <= maxCandidateChars {
		return s
	}
	return string(runes[:maxCandidateChars]) + "…"
}
