package vectorindex

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

func testParams() Params {
	return Params{MinTrainSize: 64, TrainSampleCap: 1000, BackfillBatchSize: 16, NProbe: 8}
}

func addRandom(t *testing.T, m *Manager, rng *rand.Rand, startID int64, n, dim int) ([]int64, [][]float32) {
	t.Helper()
	ids := make([]int64, n)
	vecs := make([][]float32, n)
	for i := range vecs {
		ids[i] = startID + int64(i)
		vecs[i] = randUnit(rng, dim)
	}
	if err := m.Add(ids, vecs); err != nil {
		t.Fatalf("Add: %v", err)
	}
	return ids, vecs
}

func TestManagerStaysExactBelowThreshold(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir, testParams())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	rng := rand.New(rand.NewSource(10))

	// One below the training threshold: the approximate index must
	// never come into existence and searches stay exact.
	_, vecs := addRandom(t, m, rng, 1, testParams().MinTrainSize-1, 16)

	hits, kind, err := m.Search(vecs[0], 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if kind != KindExact {
		t.Errorf("kind = %s, want exact", kind)
	}
	if len(hits) != 1 || hits[0].ID != 1 {
		t.Errorf("hits = %v, want id 1", hits)
	}
	if _, err := os.Stat(filepath.Join(dir, approxFileName)); !os.IsNotExist(err) {
		t.Errorf("approximate index file exists below threshold: %v", err)
	}
	if st := m.CurrentStatus(); st.Kind != KindExact || st.Trained {
		t.Errorf("status = %+v, want untrained exact", st)
	}
}

func TestManagerTrainsAtThreshold(t *testing.T) {
	dir := t.TempDir()
	p := testParams()
	m, err := NewManager(dir, p)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	rng := rand.New(rand.NewSource(11))

	addRandom(t, m, rng, 1, p.MinTrainSize-1, 16)
	// The add that crosses the threshold trains and backfills.
	_, vecs := addRandom(t, m, rng, int64(p.MinTrainSize), 1, 16)

	st := m.CurrentStatus()
	if st.Kind != KindApprox || !st.Trained {
		t.Fatalf("status = %+v, want trained approximate", st)
	}
	if st.Vectors != p.MinTrainSize {
		t.Errorf("vectors = %d, want %d", st.Vectors, p.MinTrainSize)
	}
	if _, err := os.Stat(filepath.Join(dir, approxFileName)); err != nil {
		t.Errorf("approximate index file missing: %v", err)
	}

	_, kind, err := m.Search(vecs[0], 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if kind != KindApprox {
		t.Errorf("kind = %s, want approximate", kind)
	}
}

func TestManagerAddsToBothIndexesAfterTraining(t *testing.T) {
	p := testParams()
	m, err := NewManager(t.TempDir(), p)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	rng := rand.New(rand.NewSource(12))

	addRandom(t, m, rng, 1, p.MinTrainSize, 16)
	ids, _ := addRandom(t, m, rng, int64(p.MinTrainSize)+1, 5, 16)

	st := m.CurrentStatus()
	if st.Vectors != p.MinTrainSize+5 {
		t.Errorf("exact count = %d, want %d", st.Vectors, p.MinTrainSize+5)
	}
	// The new vectors must be findable through the approximate path.
	hits, kind, err := m.Search(randUnit(rng, 16), p.MinTrainSize+5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if kind != KindApprox {
		t.Fatalf("kind = %s, want approximate", kind)
	}
	found := false
	for _, h := range hits {
		if h.ID == ids[0] {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("post-training vector %d not in approximate index", ids[0])
	}
}

func TestManagerReloadsFromDisk(t *testing.T) {
	dir := t.TempDir()
	p := testParams()
	m, err := NewManager(dir, p)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	rng := rand.New(rand.NewSource(13))
	_, vecs := addRandom(t, m, rng, 1, p.MinTrainSize, 16)

	reloaded, err := NewManager(dir, p)
	if err != nil {
		t.Fatalf("NewManager (reload): %v", err)
	}
	st := reloaded.CurrentStatus()
	if st.Kind != KindApprox || st.Vectors != p.MinTrainSize {
		t.Fatalf("reloaded status = %+v", st)
	}
	hits, _, err := reloaded.Search(vecs[3], 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != 4 {
		t.Errorf("hits = %v, want id 4", hits)
	}
}

func TestManagerDropsStaleApproxOnDimensionChange(t *testing.T) {
	dir := t.TempDir()
	p := testParams()
	rng := rand.New(rand.NewSource(14))

	// Exact index with dim 16 on disk.
	flat := NewFlat(16)
	if err := flat.Add([]int64{1}, [][]float32{randUnit(rng, 16)}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := flat.Save(filepath.Join(dir, flatFileName)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Approximate index trained for dim 8, as left behind by a model swap.
	stale, err := NewIVFPQ(8, 2, 8, codeBits, 2, rng)
	if err != nil {
		t.Fatalf("NewIVFPQ: %v", err)
	}
	train := make([][]float32, 20)
	for i := range train {
		train[i] = randUnit(rng, 8)
	}
	if err := stale.Train(train); err != nil {
		t.Fatalf("Train: %v", err)
	}
	if err := stale.Save(filepath.Join(dir, approxFileName)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	m, err := NewManager(dir, p)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, approxFileName)); !os.IsNotExist(err) {
		t.Errorf("stale approximate index not deleted: %v", err)
	}
	if st := m.CurrentStatus(); st.Kind != KindExact {
		t.Errorf("status = %+v, want exact after discard", st)
	}
}

func TestManagerEmptySearch(t *testing.T) {
	m, err := NewManager(t.TempDir(), testParams())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	hits, kind, err := m.Search(randUnit(rand.New(rand.NewSource(15)), 16), 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if kind != KindNone || hits != nil {
		t.Errorf("kind=%s hits=%v, want none/nil", kind, hits)
	}
}
