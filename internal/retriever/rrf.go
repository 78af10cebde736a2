package retriever

import "github.com/hfarouk/docdex/internal/store"

// rrf merges two ranked lists with reciprocal rank fusion: each id scores
// Σ 1/(k+rank) over the lists containing it, rank 1 being best. Ids near
// the top of either list, or present in both, win without the two score
// scales ever being compared directly.
func rrf(semantic, keyword []store.ScoredChunk, k int) map[int64]float64 {
	semRank := make(map[int64]int, len(semantic))
	for i, s := range semantic {
		semRank[s.ChunkID] = i + 1
	}
	keyRank := make(map[int64]int, len(keyword))
	for i, s := range keyword {
		keyRank[s.ChunkID] = i + 1
	}

	fused := make(map[int64]float64, len(semRank)+len(keyRank))
	for id, r := range semRank {
		fused[id] += 1.0 / float64(k+r)
	}
	for id, r := range keyRank {
		fused[id] += 1.0 / float64(k+r)
	}
	return fused
}
