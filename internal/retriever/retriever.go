// Package retriever implements hybrid search: semantic nearest-neighbour
// candidates and lexical bm25 candidates are fused by reciprocal rank
// and hydrated into full chunk records.
package retriever

import (
	"context"
	"fmt"
	"sort"

	"github.com/hfarouk/docdex/internal/embeddings"
	"github.com/hfarouk/docdex/internal/store"
	"github.com/hfarouk/docdex/internal/vectorindex"
)

// QueryMetadata is the output of query analysis consumed by Search.
// All fields are optional; Search falls back to the raw query.
type QueryMetadata struct {
	SemanticQuery string   `json:"semantic_query"`
	KeywordQuery  string   `json:"keyword_query"`
	MustTerms     []string `json:"must_terms"`
	ShouldTerms   []string `json:"should_terms"`
}

// Scores is the per-result breakdown. Semantic and Keyword are nil when
// that signal did not retrieve the chunk, which is different from
// retrieving it with zero relevance.
type Scores struct {
	Semantic *float64 `json:"semantic"`
	Keyword  *float64 `json:"keyword"`
	Merged   float64  `json:"merged"`
}

// Result is one retrieved chunk.
type Result struct {
	store.ChunkRecord
	Scores Scores `json:"scores"`
}

// QueryEcho reports the query forms the retriever actually ran.
type QueryEcho struct {
	Original string `json:"original"`
	Semantic string `json:"semantic"`
	Keyword  string `json:"keyword"`
}

// Response is the full retrieval result.
type Response struct {
	IndexType vectorindex.Kind `json:"index_type"`
	Query     QueryEcho        `json:"query"`
	Results   []Result         `json:"results"`
}

// vectorSearcher is the slice of the index manager the retriever needs.
type vectorSearcher interface {
	Search(query []float32, k int) ([]vectorindex.Hit, vectorindex.Kind, error)
}

// chunkStore is the slice of the metadata store the retriever needs.
type chunkStore interface {
	MatchFTS(ctx context.Context, ftsQuery string, topK int) ([]store.ScoredChunk, error)
	GetChunkRecords(ctx context.Context, ids []int64) ([]store.ChunkRecord, error)
}

// Retriever runs hybrid search over one index/store pair.
type Retriever struct {
	embedder embeddings.Embedder
	index    vectorSearcher
	store    chunkStore
}

// New creates a retriever from already-constructed collaborators.
func New(embedder embeddings.Embedder, index vectorSearcher, st chunkStore) *Retriever {
	return &Retriever{embedder: embedder, index: index, store: st}
}

// Search runs both signals for the query, fuses them and hydrates the
// top chunks. An empty corpus or a query with no candidates returns an
// empty result set, never an error.
func (r *Retriever) Search(ctx context.Context, query string, meta QueryMetadata, topK, rrfK int) (*Response, error) {
	semanticQuery := normalizeWS(meta.SemanticQuery)
	if semanticQuery == "" {
		semanticQuery = normalizeWS(query)
	}
	keywordText := meta.KeywordQuery
	if keywordText == "" {
		keywordText = query
	}
	ftsQuery := buildFTSQuery(keywordText, meta.MustTerms, meta.ShouldTerms)

	resp := &Response{
		Query: QueryEcho{Original: query, Semantic: semanticQuery, Keyword: ftsQuery},
	}

	vecs, err := r.embedder.Embed(ctx, []string{semanticQuery})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("embedder returned no vector for query")
	}

	semantic, kind, err := r.semanticSearch(vecs[0], topK)
	if err != nil {
		return nil, err
	}
	resp.IndexType = kind

	keyword, err := r.keywordSearch(ctx, ftsQuery, topK)
	if err != nil {
		return nil, err
	}

	if len(semantic) == 0 && len(keyword) == 0 {
		return resp, nil
	}

	fused := rrf(semantic, keyword, rrfK)
	topIDs := topFused(fused, topK)

	records, err := r.store.GetChunkRecords(ctx, topIDs)
	if err != nil {
		return nil, fmt.Errorf("hydrating results: %w", err)
	}

	semMap := scoreMap(semantic)
	keyMap := scoreMap(keyword)
	for _, rec := range records {
		res := Result{ChunkRecord: rec, Scores: Scores{Merged: fused[rec.ChunkID]}}
		if s, ok := semMap[rec.ChunkID]; ok {
			v := s
			res.Scores.Semantic = &v
		}
		if s, ok := keyMap[rec.ChunkID]; ok {
			v := s
			res.Scores.Keyword = &v
		}
		resp.Results = append(resp.Results, res)
	}
	return resp, nil
}

// semanticSearch queries the vector index and rescales raw inner products
// from [-1,1] to [0,1].
func (r *Retriever) semanticSearch(query []float32, topK int) ([]store.ScoredChunk, vectorindex.Kind, error) {
	hits, kind, err := r.index.Search(query, topK)
	if err != nil {
		return nil, kind, fmt.Errorf("semantic search: %w", err)
	}
	out := make([]store.ScoredChunk, 0, len(hits))
	for _, h := range hits {
		s := h.Score
		if s > 1 {
			s = 1
		}
		if s < -1 {
			s = -1
		}
		out = append(out, store.ScoredChunk{ChunkID: h.ID, Score: (s + 1) / 2})
	}
	return out, kind, nil
}

// keywordSearch runs the lexical match and normalizes bm25 scores: invert
// so bigger is better, then min-max scale to [0,1]. When every raw score
// is equal all results get 1.0.
func (r *Retriever) keywordSearch(ctx context.Context, ftsQuery string, topK int) ([]store.ScoredChunk, error) {
	rows, err := r.store.MatchFTS(ctx, ftsQuery, topK)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	return normalizeBM25(rows), nil
}

func normalizeBM25(rows []store.ScoredChunk) []store.ScoredChunk {
	if len(rows) == 0 {
		return nil
	}

	smin, smax := rows[0].Score, rows[0].Score
	for _, r := range rows[1:] {
		if r.Score < smin {
			smin = r.Score
		}
		if r.Score > smax {
			smax = r.Score
		}
	}

	out := make([]store.ScoredChunk, len(rows))
	if smax-smin < 1e-9 {
		for i, r := range rows {
			out[i] = store.ScoredChunk{ChunkID: r.ChunkID, Score: 1.0}
		}
		return out
	}

	// Inverted values span [0, smax-smin], so min-max scaling reduces to
	// dividing by the spread.
	spread := smax - smin
	for i, r := range rows {
		out[i] = store.ScoredChunk{ChunkID: r.ChunkID, Score: (smax - r.Score) / spread}
	}
	return out
}

// topFused orders fused ids by score descending, id ascending on ties for
// determinism, and returns the top k.
func topFused(fused map[int64]float64, k int) []int64 {
	ids := make([]int64, 0, len(fused))
	for id := range fused {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if fused[ids[i]] != fused[ids[j]] {
			return fused[ids[i]] > fused[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if k < len(ids) {
		ids = ids[:k]
	}
	return ids
}

func scoreMap(list []store.ScoredChunk) map[int64]float64 {
	m := make(map[int64]float64, len(list))
	for _, s := range list {
		m[s.ChunkID] = s.Score
	}
	return m
}
