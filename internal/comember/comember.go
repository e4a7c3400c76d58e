// Package comember turns a region's IXP membership edges into a
// cluster-ordered co-membership heatmap.
//
// Pipeline:
//  1. Group edges into per-exchange member sets.
//  2. Prune exchanges too small to be informative.
//  3. Build the exchange-by-exchange intersection matrix.
//  4. Agglomerate with Ward linkage, cut at a fixed distance.
//  5. Reorder labels and matrix axes by cluster.
//
// Everything here is a pure function of the edge relation and the
// parameters; nothing touches the network or disk.
package comember

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ixpscope/ixpscope/internal/iyp"
)

// ErrInsufficientData marks a region/slice that cannot produce a
// meaningful heatmap: no edges at all, or fewer than three exchanges
// surviving the prune. Callers warn and move on.
var ErrInsufficientData = errors.New("insufficient data for heatmap")

// minSurvivingExchanges is the floor below which clustering carries no
// structure.
const minSurvivingExchanges = 3

// absoluteMemberFloor is the hard lower bound on the pruning threshold.
const absoluteMemberFloor = 5

// Label identifies one exchange: case-folded name plus hosting country.
// Two exchanges sharing a name in different countries stay distinct.
type Label struct {
	Name    string // lower-cased exchange name
	Country string // hosting country code; empty when unknown
}

// NewLabel normalizes a raw exchange name and country into a Label.
func NewLabel(name, country string) Label {
	return Label{
		Name:    strings.ToLower(strings.TrimSpace(name)),
		Country: strings.ToUpper(strings.TrimSpace(country)),
	}
}

// String renders the label the way it appears on heatmap axes.
func (l Label) String() string {
	if l.Country == "" {
		return l.Name
	}
	return fmt.Sprintf("%s (%s)", l.Name, l.Country)
}

// Domestic reports whether the exchange is hosted in the region under
// analysis.
func (l Label) Domestic(region string) bool {
	return l.Country != "" && l.Country == strings.ToUpper(region)
}

// ASNSet is a set of member AS numbers.
type ASNSet map[int64]struct{}

// Memberships maps each exchange to its distinct member ASNs, with
// labels remembered in first-appearance order so downstream output is
// deterministic regardless of map iteration.
type Memberships struct {
	Sets  map[Label]ASNSet
	Order []Label
}

// CountryCount is one hosting country and its distinct peer count.
type CountryCount struct {
	Country string
	Peers   int
}

// Summary holds the per-region aggregates used for report titles.
type Summary struct {
	TotalASNs   int
	Memberships int
	BySource    map[string]int // membership edges per data source
	ByCountry   []CountryCount // distinct peers per hosting country, first-appearance order
}

// GroupEdges folds the raw edge relation into per-exchange member sets
// and computes the region summary. Edges without an exchange name were
// already dropped by the extractor.
func GroupEdges(edges []iyp.MembershipEdge) (Memberships, Summary) {
	m := Memberships{Sets: make(map[Label]ASNSet)}
	sum := Summary{BySource: make(map[string]int)}

	allASNs := make(map[int64]struct{})
	countryPeers := make(map[string]map[int64]struct{})
	countryOrder := []string{}

	for _, e := range edges {
		label := NewLabel(e.IXPName, e.IXPCountry)
		set, ok := m.Sets[label]
		if !ok {
			set = make(ASNSet)
			m.Sets[label] = set
			m.Order = append(m.Order, label)
		}
		set[e.ASN] = struct{}{}

		allASNs[e.ASN] = struct{}{}
		sum.Memberships++
		if e.Source != "" {
			sum.BySource[e.Source]++
		}
		if e.IXPCountry != "" {
			peers, ok := countryPeers[e.IXPCountry]
			if !ok {
				peers = make(map[int64]struct{})
				countryPeers[e.IXPCountry] = peers
				countryOrder = append(countryOrder, e.IXPCountry)
			}
			peers[e.ASN] = struct{}{}
		}
	}

	sum.TotalASNs = len(allASNs)
	for _, cc := range countryOrder {
		sum.ByCountry = append(sum.ByCountry, CountryCount{Country: cc, Peers: len(countryPeers[cc])})
	}
	return m, sum
}

// Params are the pruning and clustering knobs.
type Params struct {
	MinASFraction      float64
	DomesticMinMembers int
	ClusterCutDistance float64
	Normalize          bool
}

// PruneThreshold is the member floor applied to international
// exchanges: a configured fraction of the region's distinct ASNs, never
// below the absolute floor.
func PruneThreshold(totalASNs int, fraction float64) int {
	t := int(float64(totalASNs) * fraction)
	if t < absoluteMemberFloor {
		t = absoluteMemberFloor
	}
	return t
}

// Prune returns a new Memberships containing only exchanges large
// enough to be informative. Domestic exchanges use the fixed member
// floor; international ones use the fractional threshold. The input is
// never modified.
func Prune(m Memberships, region string, totalASNs int, p Params) Memberships {
	intlMin := PruneThreshold(totalASNs, p.MinASFraction)
	domesticMin := p.DomesticMinMembers

	out := Memberships{Sets: make(map[Label]ASNSet, len(m.Sets))}
	for _, label := range m.Order {
		set := m.Sets[label]
		min := intlMin
		if label.Domestic(region) {
			min = domesticMin
		}
		if len(set) >= min {
			out.Sets[label] = set
			out.Order = append(out.Order, label)
		}
	}
	return out
}

// TopCountries returns the n hosting countries with the most distinct
// peers, descending, ties kept in first-appearance order.
func (s Summary) TopCountries(n int) []CountryCount {
	top := append([]CountryCount(nil), s.ByCountry...)
	sort.SliceStable(top, func(i, j int) bool { return top[i].Peers > top[j].Peers })
	if len(top) > n {
		top = top[:n]
	}
	return top
}
