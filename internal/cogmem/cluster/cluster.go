// Package cluster implements the two grouping algorithms the memory
// subsystem needs: density-based clustering of episode embeddings for
// consolidation batching (spec §4.11), and centroid-based diversity
// sampling for retrieval result sets (spec §4.6). Both are grounded on
// the original implementation's use of HDBSCAN and scikit-learn's KMeans
// respectively, reimplemented here since the pack carries no Go HDBSCAN
// or KMeans package; vector arithmetic is done with gonum/floats.
package cluster

import (
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Item is anything with an embedding the clusterer can group.
type Item struct {
	ID        string
	Embedding []float32
}

// diversitySeed fixes the k-means initialization for determinism (spec
// §4.6: "centroid-based clustering with a fixed seed").
const diversitySeed = 42

const kmeansMaxIterations = 50

// DensityCluster groups items by proximity, approximating HDBSCAN's
// behavior: a point belongs to a cluster if at least minClusterSize
// points (including itself) lie within epsilon of each other
// transitively; points that never reach that threshold become singleton
// "noise" clusters (spec §4.11 step 2).
func DensityCluster(items []Item, minClusterSize int, epsilon float64) [][]Item {
	n := len(items)
	if n == 0 {
		return nil
	}
	if minClusterSize < 1 {
		minClusterSize = 1
	}

	vecs := toFloat64(items)
	visited := make([]bool, n)
	assigned := make([]bool, n)
	var clusters [][]Item

	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}
		visited[i] = true

		neighbors := regionQuery(vecs, i, epsilon)
		if len(neighbors) < minClusterSize {
			continue // not yet a core point; may still be absorbed by another cluster below
		}

		var clusterIdx []int
		queue := append([]int{}, neighbors...)
		inCluster := map[int]bool{i: true}
		clusterIdx = append(clusterIdx, i)
		assigned[i] = true

		for len(queue) > 0 {
			j := queue[0]
			queue = queue[1:]
			if inCluster[j] {
				continue
			}
			inCluster[j] = true
			clusterIdx = append(clusterIdx, j)
			assigned[j] = true

			if !visited[j] {
				visited[j] = true
				jNeighbors := regionQuery(vecs, j, epsilon)
				if len(jNeighbors) >= minClusterSize {
					queue = append(queue, jNeighbors...)
				}
			}
		}

		cluster := make([]Item, 0, len(clusterIdx))
		for _, idx := range clusterIdx {
			cluster = append(cluster, items[idx])
		}
		clusters = append(clusters, cluster)
	}

	// Every unassigned point becomes its own singleton "noise" cluster.
	for i := 0; i < n; i++ {
		if !assigned[i] {
			clusters = append(clusters, []Item{items[i]})
		}
	}

	return clusters
}

func regionQuery(vecs [][]float64, i int, epsilon float64) []int {
	var out []int
	for j := range vecs {
		if j == i {
			out = append(out, j)
			continue
		}
		if euclidean(vecs[i], vecs[j]) <= epsilon {
			out = append(out, j)
		}
	}
	return out
}

// SplitOversized re-clusters any cluster exceeding maxSize with a higher
// min-size parameter, repeating until every cluster fits; it falls back
// to sequential chunking by maxSize if clustering cannot separate a
// cluster further (spec §4.11 step 3).
func SplitOversized(clusters [][]Item, maxSize, baseMinClusterSize int, epsilon float64) [][]Item {
	var out [][]Item
	for _, c := range clusters {
		out = append(out, splitOne(c, maxSize, baseMinClusterSize, epsilon, 1)...)
	}
	return out
}

func splitOne(c []Item, maxSize, baseMinClusterSize int, epsilon float64, attempt int) [][]Item {
	if len(c) <= maxSize {
		return [][]Item{c}
	}
	if attempt > 5 {
		return chunkSequentially(c, maxSize)
	}

	higherMin := baseMinClusterSize + attempt
	subclusters := DensityCluster(c, higherMin, epsilon)
	if len(subclusters) <= 1 {
		// re-clustering made no progress; retry with a higher bar, giving
		// up to sequential chunking once attempt exceeds 5.
		return splitOne(c, maxSize, baseMinClusterSize, epsilon, attempt+1)
	}

	var out [][]Item
	for _, sc := range subclusters {
		out = append(out, splitOne(sc, maxSize, baseMinClusterSize, epsilon, attempt+1)...)
	}
	return out
}

func chunkSequentially(items []Item, size int) [][]Item {
	var out [][]Item
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[i:end])
	}
	return out
}

// DiversitySample clusters rows into min(k, len(rows)) groups via k-means
// (fixed seed) and keeps the highest-similarity row from each group,
// returning the selection sorted by similarity descending (spec §4.6).
// similarity must be pre-computed per row (e.g. cosine similarity to the
// query vector); rows with len(rows) <= k are returned as-is.
func DiversitySample[T any](rows []T, embeddingOf func(T) []float32, similarityOf func(T) float32, k int) []T {
	if len(rows) <= k {
		return rows
	}

	vecs := make([][]float64, len(rows))
	for i, r := range rows {
		vecs[i] = toFloat64Vec(embeddingOf(r))
	}

	assignments := kMeans(vecs, k, diversitySeed)

	byCluster := make(map[int][]int)
	for i, c := range assignments {
		byCluster[c] = append(byCluster[c], i)
	}

	var selected []int
	for _, idxs := range byCluster {
		best := idxs[0]
		for _, idx := range idxs[1:] {
			if similarityOf(rows[idx]) > similarityOf(rows[best]) {
				best = idx
			}
		}
		selected = append(selected, best)
	}

	sort.Slice(selected, func(i, j int) bool {
		return similarityOf(rows[selected[i]]) > similarityOf(rows[selected[j]])
	})

	out := make([]T, len(selected))
	for i, idx := range selected {
		out[i] = rows[idx]
	}
	return out
}

// kMeans assigns each vector to one of k clusters using Lloyd's
// algorithm, seeded deterministically.
func kMeans(vecs [][]float64, k int, seed int64) []int {
	n := len(vecs)
	if k >= n {
		assignments := make([]int, n)
		for i := range assignments {
			assignments[i] = i
		}
		return assignments
	}

	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(n)
	centroids := make([][]float64, k)
	for i := 0; i < k; i++ {
		centroids[i] = append([]float64{}, vecs[perm[i]]...)
	}

	assignments := make([]int, n)
	for iter := 0; iter < kmeansMaxIterations; iter++ {
		changed := false
		for i, v := range vecs {
			best := 0
			bestDist := euclidean(v, centroids[0])
			for c := 1; c < k; c++ {
				d := euclidean(v, centroids[c])
				if d < bestDist {
					bestDist = d
					best = c
				}
			}
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		dim := len(vecs[0])
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, v := range vecs {
			c := assignments[i]
			floats.Add(sums[c], v)
			counts[c]++
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				continue
			}
			floats.Scale(1/float64(counts[c]), sums[c])
			centroids[c] = sums[c]
		}

		if !changed && iter > 0 {
			break
		}
	}

	return assignments
}

func euclidean(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}

func toFloat64(items []Item) [][]float64 {
	out := make([][]float64, len(items))
	for i, it := range items {
		out[i] = toFloat64Vec(it.Embedding)
	}
	return out
}

func toFloat64Vec(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}
