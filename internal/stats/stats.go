// Package stats computes the descriptive tables of the report: how a
// region's ASes distribute over number of exchanges joined, and which
// ASes peer nowhere at all.
package stats

import (
	"sort"

	"github.com/ixpscope/ixpscope/internal/iyp"
)

// Bucket is one row of the distribution table: ASCount ASes are members
// of exactly NumIXPs exchanges, Percent of the slice total.
type Bucket struct {
	NumIXPs int
	ASCount int
	Percent float64
}

// Distribution buckets the per-AS exchange counts, ordered by NumIXPs
// ascending. An empty input yields an empty table.
func Distribution(counts []iyp.ASMembershipCount) []Bucket {
	if len(counts) == 0 {
		return nil
	}

	byN := make(map[int]int)
	for _, c := range counts {
		byN[c.NumIXPs]++
	}

	ns := make([]int, 0, len(byN))
	for n := range byN {
		ns = append(ns, n)
	}
	sort.Ints(ns)

	total := float64(len(counts))
	out := make([]Bucket, 0, len(ns))
	for _, n := range ns {
		out = append(out, Bucket{
			NumIXPs: n,
			ASCount: byN[n],
			Percent: 100 * float64(byN[n]) / total,
		})
	}
	return out
}

// AbsentASes returns the ASes present at zero exchanges, ascending.
// Run over the eyeball or transit slice this is the "who should be
// peering but is not" list.
func AbsentASes(counts []iyp.ASMembershipCount) []int64 {
	var out []int64
	for _, c := range counts {
		if c.NumIXPs == 0 {
			out = append(out, c.ASN)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
