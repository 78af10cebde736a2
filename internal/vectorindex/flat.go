// Package vectorindex owns the two persisted vector indexes: an exact
// flat index that is always authoritative, and an approximate IVF-PQ
// index that exists only once enough vectors have accumulated to train
// it. Both use inner-product similarity over unit-normalized vectors,
// so scores are cosine similarities in [-1, 1].
package vectorindex

import (
	"encoding/gob"
	"fmt"
	"os"
	"sort"
)

// Hit is one nearest-neighbour result.
type Hit struct {
	ID    int64
	Score float64
}

// Index is the search capability shared by the flat and IVF-PQ indexes.
type Index interface {
	Search(query []float32, k int) ([]Hit, error)
	Count() int
	Dim() int
}

// Flat is the exact index: every vector is kept verbatim with its chunk
// id and search is exhaustive. Always correct, cost linear in corpus size.
type Flat struct {
	dim  int
	ids  []int64
	vecs [][]float32
}

// NewFlat creates an empty flat index for vectors of the given dimension.
func NewFlat(dim int) *Flat {
	return &Flat{dim: dim}
}

func (f *Flat) Dim() int   { return f.dim }
func (f *Flat) Count() int { return len(f.ids) }

// Add appends vectors with their ids. Ids are never reused.
func (f *Flat) Add(ids []int64, vecs [][]float32) error {
	if len(ids) != len(vecs) {
		return fmt.Errorf("flat add: %d ids for %d vectors", len(ids), len(vecs))
	}
	for i, v := range vecs {
		if len(v) != f.dim {
			return fmt.Errorf("flat add: vector %d has dimension %d, index has %d", i, len(v), f.dim)
		}
	}
	f.ids = append(f.ids, ids...)
	f.vecs = append(f.vecs, vecs...)
	return nil
}

// Search returns the top k ids by inner product, best first.
func (f *Flat) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != f.dim {
		return nil, fmt.Errorf("flat search: query dimension %d, index has %d", len(query), f.dim)
	}
	if k <= 0 || len(f.ids) == 0 {
		return nil, nil
	}

	hits := make([]Hit, len(f.ids))
	for i, v := range f.vecs {
		hits[i] = Hit{ID: f.ids[i], Score: float64(dot(query, v))}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// All returns every stored id/vector pair, in insertion order. The
// returned slices share storage with the index and must not be mutated.
func (f *Flat) All() ([]int64, [][]float32) {
	return f.ids, f.vecs
}

// flatFile is the persisted representation.
type flatFile struct {
	Dim     int
	IDs     []int64
	Vectors [][]float32
}

// Save persists the index. The write goes through a temp file and rename
// so readers never observe a half-written index.
func (f *Flat) Save(path string) error {
	return saveGob(path, flatFile{Dim: f.dim, IDs: f.ids, Vectors: f.vecs})
}

// LoadFlat reads a persisted flat index.
func LoadFlat(path string) (*Flat, error) {
	var file flatFile
	if err := loadGob(path, &file); err != nil {
		return nil, err
	}
	return &Flat{dim: file.Dim, ids: file.IDs, vecs: file.Vectors}, nil
}

func saveGob(path string, v any) error {
	tmp := path + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating %s: %w", tmp, err)
	}
	if err := gob.NewEncoder(out).Encode(v); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

func loadGob(path string, v any) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := gob.NewDecoder(in).Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

func dot(a, b []float32) float32 {
	var s float32
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
