package vectorindex

import "math/rand"

const kmeansIters = 25

// kmeans runs Lloyd's algorithm and returns k centroids. Assignment uses
// squared euclidean distance. Empty clusters are reseeded from a random
// training vector so k centroids always come back.
func kmeans(vecs [][]float32, k int, rng *rand.Rand) [][]float32 {
	dim := len(vecs[0])

	centroids := make([][]float32, k)
	perm := rng.Perm(len(vecs))
	for i := 0; i < k; i++ {
		src := vecs[perm[i%len(perm)]]
		c := make([]float32, dim)
		copy(c, src)
		centroids[i] = c
	}
	if len(vecs) <= k {
		return centroids
	}

	assign := make([]int, len(vecs))
	sums := make([][]float64, k)
	counts := make([]int, k)
	for i := range sums {
		sums[i] = make([]float64, dim)
	}

	for iter := 0; iter < kmeansIters; iter++ {
		changed := false
		for i, v := range vecs {
			best := nearestCentroid(v, centroids)
			if best != assign[i] {
				assign[i] = best
				changed = true
			}
		}
		if iter > 0 && !changed {
			break
		}

		for i := range sums {
			for d := range sums[i] {
				sums[i][d] = 0
			}
			counts[i] = 0
		}
		for i, v := range vecs {
			c := assign[i]
			counts[c]++
			for d, x := range v {
				sums[c][d] += float64(x)
			}
		}
		for i := range centroids {
			if counts[i] == 0 {
				copy(centroids[i], vecs[rng.Intn(len(vecs))])
				continue
			}
			for d := range centroids[i] {
				centroids[i][d] = float32(sums[i][d] / float64(counts[i]))
			}
		}
	}
	return centroids
}

// nearestCentroid returns the index of the closest centroid by squared
// euclidean distance.
func nearestCentroid(v []float32, centroids [][]float32) int {
	best, bestDist := 0, float32(0)
	for i, c := range centroids {
		d := sqDist(v, c)
		if i == 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func sqDist(a, b []float32) float32 {
	var s float32
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}
