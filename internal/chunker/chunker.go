// Package chunker splits extracted page text into overlapping fixed-size
// windows. It is a pure function of its inputs and holds no state.
package chunker

import "github.com/hfarouk/docdex/internal/store"

// Options controls window size and overlap, both in characters.
// Overlap must be smaller than Size.
type Options struct {
	Size       int
	Overlap    int
	EmbedModel string
}

// MakeChunks windows each page independently. Consecutive windows within
// a page overlap by exactly Overlap characters except the final window,
// which ends at the page end and may be shorter. Offsets count runes,
// not bytes, so multi-byte text never splits mid-character. Ordinals are
// assigned across the whole document in production order.
func MakeChunks(pages []string, opts Options) []store.Chunk {
	var chunks []store.Chunk
	ordinal := 0

	for pageIdx, page := range pages {
		runes := []rune(page)
		pageNum := pageIdx + 1
		start := 0
		for start < len(runes) {
			end := start + opts.Size
			if end > len(runes) {
				end = len(runes)
			}

			chunks = append(chunks, store.Chunk{
				Text:       string(runes[start:end]),
				Ordinal:    ordinal,
				PageNum:    pageNum,
				Start:      start,
				End:        end,
				EmbedModel: opts.EmbedModel,
			})
			ordinal++

			if end == len(runes) {
				break
			}
			start = end - opts.Overlap
		}
	}

	return chunks
}
