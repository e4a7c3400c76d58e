package comember

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/ixpscope/ixpscope/internal/iyp"
)

// Heatmap is the cluster-ordered co-membership matrix for one region
// and slice, ready for rendering. Row i and column i of Matrix always
// refer to Labels[i]; Clusters[i] is that exchange's cluster id.
type Heatmap struct {
	Region   string
	Labels   []Label
	Matrix   *mat.Dense
	Clusters []int
	Title    string
	Summary  Summary
}

// Build runs the whole pipeline for one region: group, prune, matrix,
// cluster, reorder. It returns ErrInsufficientData (wrapped with the
// region) when the relation is empty or fewer than three exchanges
// survive pruning.
func Build(edges []iyp.MembershipEdge, region string, p Params) (*Heatmap, error) {
	if len(edges) == 0 {
		return nil, fmt.Errorf("region %s: no membership edges: %w", region, ErrInsufficientData)
	}

	grouped, summary := GroupEdges(edges)
	pruned := Prune(grouped, region, summary.TotalASNs, p)
	if len(pruned.Order) < minSurvivingExchanges {
		return nil, fmt.Errorf("region %s: %d exchanges after pruning, need %d: %w",
			region, len(pruned.Order), minSurvivingExchanges, ErrInsufficientData)
	}

	matrix := intersectionMatrix(pruned)
	if p.Normalize {
		matrix = normalizeRows(matrix)
	}

	clusters := wardCluster(matrix, p.ClusterCutDistance)
	perm := clusterOrder(clusters)

	labels := make([]Label, len(perm))
	ordered := make([]int, len(perm))
	for k, idx := range perm {
		labels[k] = pruned.Order[idx]
		ordered[k] = clusters[idx]
	}

	return &Heatmap{
		Region:   region,
		Labels:   labels,
		Matrix:   permuteMatrix(matrix, perm),
		Clusters: ordered,
		Title:    title(region, summary),
		Summary:  summary,
	}, nil
}

// clusterOrder returns the permutation grouping exchanges contiguously
// by ascending cluster id, preserving first-appearance order within a
// cluster. Stable sort on ids keeps the within-cluster order.
func clusterOrder(clusters []int) []int {
	perm := make([]int, len(clusters))
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(a, b int) bool {
		return clusters[perm[a]] < clusters[perm[b]]
	})
	return perm
}

func title(region string, s Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "IXP co-membership, %s: %d ASes, %d memberships", region, s.TotalASNs, s.Memberships)

	if len(s.BySource) > 0 {
		sources := make([]string, 0, len(s.BySource))
		for src := range s.BySource {
			sources = append(sources, src)
		}
		sort.Strings(sources)
		parts := make([]string, 0, len(sources))
		for _, src := range sources {
			parts = append(parts, fmt.Sprintf("%s: %d", src, s.BySource[src]))
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(parts, ", "))
	}

	if top := s.TopCountries(5); len(top) > 0 {
		parts := make([]string, 0, len(top))
		for _, cc := range top {
			parts = append(parts, fmt.Sprintf("%s %d", cc.Country, cc.Peers))
		}
		fmt.Fprintf(&b, "; top countries: %s", strings.Join(parts, ", "))
	}
	return b.String()
}
