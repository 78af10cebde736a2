package vectorindex

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	flatFileName   = "flat.index"
	approxFileName = "ivfpq.index"

	maxPartitions = 65536
	codeBits      = 8
)

// Kind identifies which index served a search.
type Kind string

const (
	KindNone   Kind = "none"
	KindExact  Kind = "exact"
	KindApprox Kind = "approximate"
)

// Params tunes the approximate index lifecycle.
type Params struct {
	// MinTrainSize is the corpus size at which the approximate index is
	// first trained. Below it only the exact index exists.
	MinTrainSize int
	// TrainSampleCap bounds the number of vectors fed to training.
	TrainSampleCap int
	// BackfillBatchSize bounds how many vectors are encoded per batch
	// when a freshly trained index absorbs the corpus.
	BackfillBatchSize int
	// NProbe is the number of partitions probed per search.
	NProbe int
}

// Status describes the current index pair for observability endpoints.
type Status struct {
	Kind    Kind `json:"kind"`
	Vectors int  `json:"vectors"`
	Dim     int  `json:"dim,omitempty"`
	Trained bool `json:"trained"`
}

// Manager owns both indexes and their lifecycle: the exact index grows
// with every Add, and once the corpus crosses MinTrainSize an IVF-PQ
// index is trained on a sample and backfilled from the exact index.
// After that both indexes receive every new vector. All writes are
// serialized; the in-memory indexes are persisted after each mutation.
type Manager struct {
	mu     sync.RWMutex
	dir    string
	params Params
	rng    *rand.Rand

	flat   *Flat
	approx *IVFPQ
}

// NewManager loads any persisted indexes from dir, creating it if needed.
// A persisted approximate index is accepted only if it is trained and its
// dimension matches the exact index; a dimension mismatch deletes the
// stale file so the next threshold crossing retrains from scratch.
func NewManager(dir string, params Params) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index dir: %w", err)
	}
	m := &Manager{
		dir:    dir,
		params: params,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	flat, err := LoadFlat(m.flatPath())
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("loading exact index: %w", err)
	default:
		m.flat = flat
	}

	approx, err := LoadIVFPQ(m.approxPath(), m.rng)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("loading approximate index: %w", err)
	case !approx.Trained():
		// Untrained on disk should not happen; ignore it.
	case m.flat != nil && approx.Dim() != m.flat.Dim():
		// Embedding dimension changed. The stale index can never serve
		// queries again, so drop it.
		if err := os.Remove(m.approxPath()); err != nil {
			return nil, fmt.Errorf("removing stale approximate index: %w", err)
		}
	default:
		m.approx = approx
	}
	return m, nil
}

func (m *Manager) flatPath() string   { return filepath.Join(m.dir, flatFileName) }
func (m *Manager) approxPath() string { return filepath.Join(m.dir, approxFileName) }

// Add appends vectors to the exact index and, when present, the
// approximate index. Crossing the training threshold triggers training
// plus backfill inline, so the call that crosses it is slow.
func (m *Manager) Add(ids []int64, vecs [][]float32) error {
	if len(ids) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	dim := len(vecs[0])
	if m.flat == nil {
		m.flat = NewFlat(dim)
	}
	if err := m.flat.Add(ids, vecs); err != nil {
		return err
	}
	if err := m.flat.Save(m.flatPath()); err != nil {
		return fmt.Errorf("saving exact index: %w", err)
	}

	if m.approx != nil {
		if err := m.approx.Add(ids, vecs); err != nil {
			return err
		}
		if err := m.approx.Save(m.approxPath()); err != nil {
			return fmt.Errorf("saving approximate index: %w", err)
		}
		return nil
	}

	if m.flat.Count() < m.params.MinTrainSize {
		return nil
	}
	return m.trainAndBackfill()
}

// trainAndBackfill builds the approximate index from the full exact
// index: train on a capped sample, then encode the whole corpus in
// batches. Caller holds the write lock.
func (m *Manager) trainAndBackfill() error {
	allIDs, allVecs := m.flat.All()
	dim := m.flat.Dim()

	msub, ok := chooseSubquantizers(dim)
	if !ok {
		// No usable subspace split for this dimension; stay exact-only.
		return nil
	}
	ix, err := NewIVFPQ(dim, chooseNlist(len(allIDs)), msub, codeBits, m.params.NProbe, m.rng)
	if err != nil {
		return err
	}

	train := allVecs
	if len(train) > m.params.TrainSampleCap {
		sample := make([][]float32, m.params.TrainSampleCap)
		for i, idx := range m.rng.Perm(len(train))[:m.params.TrainSampleCap] {
			sample[i] = train[idx]
		}
		train = sample
	}
	if err := ix.Train(train); err != nil {
		return fmt.Errorf("training approximate index: %w", err)
	}

	for lo := 0; lo < len(allIDs); lo += m.params.BackfillBatchSize {
		hi := lo + m.params.BackfillBatchSize
		if hi > len(allIDs) {
			hi = len(allIDs)
		}
		if err := ix.Add(allIDs[lo:hi], allVecs[lo:hi]); err != nil {
			return fmt.Errorf("backfilling approximate index: %w", err)
		}
	}
	if err := ix.Save(m.approxPath()); err != nil {
		return fmt.Errorf("saving approximate index: %w", err)
	}
	m.approx = ix
	return nil
}

// Search runs the query against the approximate index when one is usable
// and the exact index otherwise. KindNone with no hits means no vectors
// have been indexed yet.
func (m *Manager) Search(query []float32, k int) ([]Hit, Kind, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.approx != nil && m.approx.Count() > 0 && m.approx.Dim() == len(query) {
		hits, err := m.approx.Search(query, k)
		return hits, KindApprox, err
	}
	if m.flat != nil && m.flat.Count() > 0 {
		hits, err := m.flat.Search(query, k)
		return hits, KindExact, err
	}
	return nil, KindNone, nil
}

// CurrentStatus reports which index would serve a search right now.
func (m *Manager) CurrentStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := Status{Kind: KindNone}
	if m.flat != nil {
		st.Vectors = m.flat.Count()
		st.Dim = m.flat.Dim()
		if st.Vectors > 0 {
			st.Kind = KindExact
		}
	}
	if m.approx != nil && m.approx.Count() > 0 {
		st.Kind = KindApprox
		st.Trained = true
	}
	return st
}

// chooseNlist picks the partition count as the square root of the corpus
// size, capped.
func chooseNlist(n int) int {
	nlist := int(math.Sqrt(float64(n)))
	if nlist < 1 {
		nlist = 1
	}
	if nlist > maxPartitions {
		nlist = maxPartitions
	}
	return nlist
}

// chooseSubquantizers returns the largest divisor of dim in [8, 64].
// Reports false when no divisor exists in that range.
func chooseSubquantizers(dim int) (int, bool) {
	for m := 64; m >= 8; m-- {
		if dim%m == 0 {
			return m, true
		}
	}
	return 0, false
}
