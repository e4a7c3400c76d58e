package comember

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// wardCluster agglomerates the n exchanges whose pairwise distances are
// read straight out of the similarity matrix and cuts the dendrogram at
// the given distance, returning a cluster id per exchange, numbered
// from 1 in order of first member appearance.
//
// Feeding raw co-membership counts in as distances is inherited
// behavior: it is not a metric, but changing it changes every report,
// so it stays. See the design notes before "fixing" this.
//
// The Lance-Williams update for Ward linkage:
//
//	d(ab,c) = sqrt(((na+nc)·d(a,c)² + (nb+nc)·d(b,c)² - nc·d(a,b)²) / (na+nb+nc))
//
// Ward linkage is monotone, so cutting at t is equivalent to merging
// until the closest pair is farther than t apart.
func wardCluster(sim *mat.Dense, cut float64) []int {
	n, _ := sim.Dims()
	if n == 0 {
		return nil
	}

	// Working copy of pairwise distances between live clusters.
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
		for j := range dist[i] {
			if i != j {
				dist[i][j] = sim.At(i, j)
			}
		}
	}

	size := make([]int, n)   // member count per live cluster
	member := make([]int, n) // original index -> live cluster
	alive := make([]bool, n)
	for i := 0; i < n; i++ {
		size[i] = 1
		member[i] = i
		alive[i] = true
	}

	for {
		// Closest live pair; ties broken by lowest (i,j).
		bi, bj := -1, -1
		best := math.Inf(1)
		for i := 0; i < n; i++ {
			if !alive[i] {
				continue
			}
			for j := i + 1; j < n; j++ {
				if !alive[j] {
					continue
				}
				if dist[i][j] < best {
					best = dist[i][j]
					bi, bj = i, j
				}
			}
		}
		if bi == -1 || best > cut {
			break
		}

		// Merge bj into bi, updating distances to every other cluster.
		na, nb := float64(size[bi]), float64(size[bj])
		for c := 0; c < n; c++ {
			if !alive[c] || c == bi || c == bj {
				continue
			}
			nc := float64(size[c])
			dac, dbc, dab := dist[bi][c], dist[bj][c], best
			d2 := ((na+nc)*dac*dac + (nb+nc)*dbc*dbc - nc*dab*dab) / (na + nb + nc)
			if d2 < 0 {
				d2 = 0 // counts-as-distances can drive the update negative
			}
			d := math.Sqrt(d2)
			dist[bi][c], dist[c][bi] = d, d
		}
		size[bi] += size[bj]
		alive[bj] = false
		for k := range member {
			if member[k] == bj {
				member[k] = bi
			}
		}
	}

	// Number surviving clusters from 1 by first-appearance order.
	ids := make([]int, n)
	next := 1
	assigned := make(map[int]int)
	for i := 0; i < n; i++ {
		c := member[i]
		id, ok := assigned[c]
		if !ok {
			id = next
			next++
			assigned[c] = id
		}
		ids[i] = id
	}
	return ids
}
