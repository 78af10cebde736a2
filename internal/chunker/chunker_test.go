package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestMakeChunks900CharPage(t *testing.T) {
	// 900-char page with size 400 / overlap 200 produces exactly the
	// windows (0,400) (200,600) (400,800) (600,900).
	page := strings.Repeat("a", 900)
	chunks := MakeChunks([]string{page}, Options{Size: 400, Overlap: 200, EmbedModel: "m"})

	want := [][2]int{{0, 400}, {200, 600}, {400, 800}, {600, 900}}
	if len(chunks) != len(want) {
		t.Fatalf("got %d chunks, want %d", len(chunks), len(want))
	}
	for i, c := range chunks {
		if c.Start != want[i][0] || c.End != want[i][1] {
			t.Errorf("chunk %d = (%d,%d), want (%d,%d)", i, c.Start, c.End, want[i][0], want[i][1])
		}
		if c.Ordinal != i {
			t.Errorf("chunk %d ordinal = %d", i, c.Ordinal)
		}
		if c.PageNum != 1 {
			t.Errorf("chunk %d page = %d, want 1", i, c.PageNum)
		}
		if len(c.Text) != c.End-c.Start {
			t.Errorf("chunk %d text length %d != span %d", i, len(c.Text), c.End-c.Start)
		}
	}
}

func TestMakeChunksMultiBytePage(t *testing.T) {
	// Offsets count runes, so a 900-rune CJK page windows exactly like
	// a 900-char ASCII page and no chunk splits a character.
	page := strings.Repeat("世", 900)
	chunks := MakeChunks([]string{page}, Options{Size: 400, Overlap: 200, EmbedModel: "m"})

	want := [][2]int{{0, 400}, {200, 600}, {400, 800}, {600, 900}}
	if len(chunks) != len(want) {
		t.Fatalf("got %d chunks, want %d", len(chunks), len(want))
	}
	for i, c := range chunks {
		if c.Start != want[i][0] || c.End != want[i][1] {
			t.Errorf("chunk %d = (%d,%d), want (%d,%d)", i, c.Start, c.End, want[i][0], want[i][1])
		}
		if !utf8.ValidString(c.Text) {
			t.Errorf("chunk %d text is invalid UTF-8", i)
		}
		if n := utf8.RuneCountInString(c.Text); n != c.End-c.Start {
			t.Errorf("chunk %d has %d runes, want span %d", i, n, c.End-c.Start)
		}
	}
}

func TestMakeChunksOverlapInvariant(t *testing.T) {
	page := strings.Repeat("x", 1337)
	opts := Options{Size: 100, Overlap: 25, EmbedModel: "m"}
	chunks := MakeChunks([]string{page}, opts)

	for i := 1; i < len(chunks); i++ {
		prev, cur := chunks[i-1], chunks[i]
		if cur.Start != prev.End-opts.Overlap {
			t.Errorf("chunk %d starts at %d, want %d", i, cur.Start, prev.End-opts.Overlap)
		}
	}
	last := chunks[len(chunks)-1]
	if last.End != len(page) {
		t.Errorf("final window ends at %d, want page end %d", last.End, len(page))
	}
}

func TestMakeChunksShortPage(t *testing.T) {
	chunks := MakeChunks([]string{"tiny"}, Options{Size: 400, Overlap: 200})
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].Start != 0 || chunks[0].End != 4 {
		t.Errorf("chunk = (%d,%d), want (0,4)", chunks[0].Start, chunks[0].End)
	}
}

func TestMakeChunksEmptyPagesSkipped(t *testing.T) {
	chunks := MakeChunks([]string{"", "ab", ""}, Options{Size: 400, Overlap: 200})
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].PageNum != 2 {
		t.Errorf("page = %d, want 2 (1-based)", chunks[0].PageNum)
	}
}

func TestMakeChunksOrdinalsSpanPages(t *testing.T) {
	pages := []string{strings.Repeat("a", 500), strings.Repeat("b", 500)}
	chunks := MakeChunks(pages, Options{Size: 400, Overlap: 200})

	for i, c := range chunks {
		if c.Ordinal != i {
			t.Fatalf("chunk %d ordinal = %d, want production order", i, c.Ordinal)
		}
	}
	// Offsets restart per page.
	var secondPageFirst *int
	for i, c := range chunks {
		if c.PageNum == 2 {
			secondPageFirst = &chunks[i].Start
			break
		}
	}
	if secondPageFirst == nil || *secondPageFirst != 0 {
		t.Errorf("first chunk of page 2 should start at 0, got %v", secondPageFirst)
	}
}
