package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"

	"github.com/hfarouk/docdex/internal/chat"
	"github.com/hfarouk/docdex/internal/llm"
	"github.com/hfarouk/docdex/internal/retriever"
	"github.com/hfarouk/docdex/internal/vectorindex"
)

const maxResultChars = 1200

type queryRequest struct {
	Query   string        `json:"query"`
	TopK    int           `json:"top_k"`
	RRFK    int           `json:"rrf_k"`
	History []llm.Message `json:"history"`
}

type queryResponse struct {
	Trigger    bool             `json:"trigger"`
	QueryDebug map[string]any   `json:"query_debug"`
	IndexType  vectorindex.Kind `json:"index_type"`
	Results    []chat.Source    `json:"results"`
	Answer     string           `json:"answer"`
}

// queryHandler runs the full pipeline: refine with history, analyze
// intent, retrieve when triggered, optionally rerank, then answer.
func (s *Server) queryHandler(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}
	topK := clamp(req.TopK, 1, 50, s.deps.Search.TopK)
	rrfK := clamp(req.RRFK, 1, 200, s.deps.Search.RRFK)

	ctx := r.Context()
	refined := s.deps.Refiner.Refine(ctx, req.Query, req.History)
	analysis := s.deps.Intent.Analyze(ctx, refined)

	resp := queryResponse{
		Trigger:   analysis.Trigger,
		IndexType: vectorindex.KindNone,
		Results:   []chat.Source{},
		QueryDebug: map[string]any{
			"original": req.Query,
			"refined":  refined,
			"meta":     analysis,
		},
	}

	if analysis.Trigger {
		retrieved, err := s.deps.Retriever.Search(ctx, refined, retriever.QueryMetadata{
			SemanticQuery: analysis.SemanticQuery,
			KeywordQuery:  analysis.KeywordQuery,
			MustTerms:     analysis.MustTerms,
			ShouldTerms:   analysis.ShouldTerms,
		}, topK, rrfK)
		if err != nil {
			s.deps.Log.Error("retrieval failed", "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		resp.IndexType = retrieved.IndexType
		resp.Results = s.toSources(ctx, refined, retrieved.Results)
	}

	answer, err := s.deps.Assistant.Answer(ctx, refined, resp.Results)
	if err != nil {
		s.deps.Log.Error("answer failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	resp.Answer = answer

	writeJSON(w, http.StatusOK, resp)
}

// toSources converts retrieval results into ranked sources, reranking
// first when configured. A rerank failure keeps the fused order rather
// than failing the query.
func (s *Server) toSources(ctx context.Context, query string, results []retriever.Result) []chat.Source {
	if s.deps.Search.Rerank && s.deps.Reranker != nil && len(results) > 1 {
		texts := make([]string, len(results))
		for i, r := range results {
			texts[i] = r.Text
		}
		scored, err := s.deps.Reranker.Score(ctx, query, texts)
		if err != nil {
			s.deps.Log.Warn("rerank failed, keeping fused order", "error", err)
		} else {
			byIndex := make(map[int]float64, len(scored))
			for _, sc := range scored {
				byIndex[sc.Index] = sc.Score
			}
			ordered := make([]retriever.Result, len(results))
			idx := make([]int, len(results))
			for i := range idx {
				idx[i] = i
			}
			sort.SliceStable(idx, func(a, b int) bool {
				return byIndex[idx[a]] > byIndex[idx[b]]
			})
			for i, j := range idx {
				ordered[i] = results[j]
			}
			results = ordered
		}
	}

	sources := make([]chat.Source, 0, len(results))
	for i, r := range results {
		sources = append(sources, chat.Source{
			Rank:         i + 1,
			ChunkID:      r.ChunkID,
			DocumentID:   r.DocumentID,
			DocumentName: r.DocumentName,
			PageNum:      r.PageNum,
			Text:         truncateText(r.Text),
			Scores:       r.Scores,
		})
	}
	return sources
}

func clamp(v, lo, hi, fallback int) int {
	if v == 0 {
		v = fallback
	}
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	return v
}

func truncateText(s string) string {
	runes := []rune(s)
	if len(runes) <= maxResultChars {
		return s
	}
	return string(runes[:maxResultChars]) + "…"
}
