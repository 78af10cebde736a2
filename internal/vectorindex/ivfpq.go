package vectorindex

import (
	"fmt"
	"math/rand"
	"sort"
)

// IVFPQ is the approximate index: an inverted-file coarse quantizer over
// nlist partitions with product-quantized residuals. Vectors are encoded
// to m one-byte codes, search probes the nprobe closest partitions and
// scores candidates with a per-query lookup table, so it stays fast and
// memory-light at the cost of exactness.
type IVFPQ struct {
	dim    int
	nlist  int
	m      int
	ksub   int
	dsub   int
	nprobe int

	trained   bool
	centroids [][]float32   // nlist coarse centroids
	codebooks [][][]float32 // m sub-codebooks of ksub entries each

	listIDs   [][]int64
	listCodes [][]byte // m bytes per entry, parallel to listIDs

	rng *rand.Rand
}

// NewIVFPQ creates an untrained index. The dimension must be divisible
// by m so residuals split into equal subspaces.
func NewIVFPQ(dim, nlist, m, nbits, nprobe int, rng *rand.Rand) (*IVFPQ, error) {
	if dim%m != 0 {
		return nil, fmt.Errorf("ivfpq: dimension %d not divisible by %d subquantizers", dim, m)
	}
	if nbits != 8 {
		return nil, fmt.Errorf("ivfpq: only 8-bit codes are supported, got %d", nbits)
	}
	return &IVFPQ{
		dim:    dim,
		nlist:  nlist,
		m:      m,
		ksub:   1 << nbits,
		dsub:   dim / m,
		nprobe: nprobe,
		rng:    rng,
	}, nil
}

func (ix *IVFPQ) Dim() int      { return ix.dim }
func (ix *IVFPQ) Trained() bool { return ix.trained }

func (ix *IVFPQ) Count() int {
	n := 0
	for _, l := range ix.listIDs {
		n += len(l)
	}
	return n
}

// Train learns the coarse centroids from the sample, then a 256-entry
// codebook per subspace over the residuals. Training does not add any
// vectors; callers backfill afterwards.
func (ix *IVFPQ) Train(vecs [][]float32) error {
	if ix.trained {
		return fmt.Errorf("ivfpq: already trained")
	}
	if len(vecs) == 0 {
		return fmt.Errorf("ivfpq: no training vectors")
	}
	for i, v := range vecs {
		if len(v) != ix.dim {
			return fmt.Errorf("ivfpq train: vector %d has dimension %d, index has %d", i, len(v), ix.dim)
		}
	}

	ix.centroids = kmeans(vecs, ix.nlist, ix.rng)

	residuals := make([][]float32, len(vecs))
	for i, v := range vecs {
		c := ix.centroids[nearestCentroid(v, ix.centroids)]
		r := make([]float32, ix.dim)
		for d := range v {
			r[d] = v[d] - c[d]
		}
		residuals[i] = r
	}

	ix.codebooks = make([][][]float32, ix.m)
	sub := make([][]float32, len(residuals))
	for j := 0; j < ix.m; j++ {
		lo := j * ix.dsub
		for i, r := range residuals {
			sub[i] = r[lo : lo+ix.dsub]
		}
		ix.codebooks[j] = kmeans(sub, ix.ksub, ix.rng)
	}

	ix.listIDs = make([][]int64, ix.nlist)
	ix.listCodes = make([][]byte, ix.nlist)
	ix.trained = true
	return nil
}

// Add encodes vectors into their partitions. The index must be trained.
func (ix *IVFPQ) Add(ids []int64, vecs [][]float32) error {
	if !ix.trained {
		return fmt.Errorf("ivfpq: add before train")
	}
	if len(ids) != len(vecs) {
		return fmt.Errorf("ivfpq add: %d ids for %d vectors", len(ids), len(vecs))
	}
	for i, v := range vecs {
		if len(v) != ix.dim {
			return fmt.Errorf("ivfpq add: vector %d has dimension %d, index has %d", i, len(v), ix.dim)
		}
		list := nearestCentroid(v, ix.centroids)
		c := ix.centroids[list]

		code := make([]byte, ix.m)
		for j := 0; j < ix.m; j++ {
			lo := j * ix.dsub
			best, bestDist := 0, float32(0)
			for t, entry := range ix.codebooks[j] {
				var d float32
				for d2 := 0; d2 < ix.dsub; d2++ {
					r := (v[lo+d2] - c[lo+d2]) - entry[d2]
					d += r * r
				}
				if t == 0 || d < bestDist {
					best, bestDist = t, d
				}
			}
			code[j] = byte(best)
		}

		ix.listIDs[list] = append(ix.listIDs[list], ids[i])
		ix.listCodes[list] = append(ix.listCodes[list], code...)
	}
	return nil
}

// Search probes the nprobe partitions whose centroids score highest
// against the query and ranks their entries by approximate inner product:
// the centroid contribution plus per-subspace lookup-table terms.
func (ix *IVFPQ) Search(query []float32, k int) ([]Hit, error) {
	if !ix.trained {
		return nil, fmt.Errorf("ivfpq: search before train")
	}
	if len(query) != ix.dim {
		return nil, fmt.Errorf("ivfpq search: query dimension %d, index has %d", len(query), ix.dim)
	}
	if k <= 0 || ix.Count() == 0 {
		return nil, nil
	}

	coarse := make([]Hit, len(ix.centroids))
	for i, c := range ix.centroids {
		coarse[i] = Hit{ID: int64(i), Score: float64(dot(query, c))}
	}
	sort.Slice(coarse, func(i, j int) bool { return coarse[i].Score > coarse[j].Score })
	nprobe := ix.nprobe
	if nprobe > len(coarse) {
		nprobe = len(coarse)
	}

	// One lookup table per query: lut[j][t] = q_j · codebook[j][t].
	lut := make([][]float32, ix.m)
	for j := 0; j < ix.m; j++ {
		lo := j * ix.dsub
		q := query[lo : lo+ix.dsub]
		lut[j] = make([]float32, ix.ksub)
		for t, entry := range ix.codebooks[j] {
			lut[j][t] = dot(q, entry)
		}
	}

	var hits []Hit
	for p := 0; p < nprobe; p++ {
		list := int(coarse[p].ID)
		base := coarse[p].Score
		codes := ix.listCodes[list]
		for i, id := range ix.listIDs[list] {
			s := base
			off := i * ix.m
			for j := 0; j < ix.m; j++ {
				s += float64(lut[j][codes[off+j]])
			}
			hits = append(hits, Hit{ID: id, Score: s})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

type ivfpqFile struct {
	Dim, NList, M, KSub, DSub, NProbe int

	Trained   bool
	Centroids [][]float32
	Codebooks [][][]float32
	ListIDs   [][]int64
	ListCodes [][]byte
}

// Save persists the index atomically.
func (ix *IVFPQ) Save(path string) error {
	return saveGob(path, ivfpqFile{
		Dim: ix.dim, NList: ix.nlist, M: ix.m, KSub: ix.ksub, DSub: ix.dsub, NProbe: ix.nprobe,
		Trained: ix.trained, Centroids: ix.centroids, Codebooks: ix.codebooks,
		ListIDs: ix.listIDs, ListCodes: ix.listCodes,
	})
}

// LoadIVFPQ reads a persisted IVF-PQ index.
func LoadIVFPQ(path string, rng *rand.Rand) (*IVFPQ, error) {
	var file ivfpqFile
	if err := loadGob(path, &file); err != nil {
		return nil, err
	}
	return &IVFPQ{
		dim: file.Dim, nlist: file.NList, m: file.M, ksub: file.KSub, dsub: file.DSub, nprobe: file.NProbe,
		trained: file.Trained, centroids: file.Centroids, codebooks: file.Codebooks,
		listIDs: file.ListIDs, listCodes: file.ListCodes,
		rng: rng,
	}, nil
}
