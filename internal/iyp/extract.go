package iyp

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Thresholds carries the slice-specific numeric cutoffs from config.
type Thresholds struct {
	EyeballMinPercent float64
	HegemonyMin       float64
}

// FetchMemberships returns every (exchange, AS) membership edge for the
// region, restricted to the requested AS slice. An empty result is
// valid: a region can simply have no data.
func FetchMemberships(ctx context.Context, exec Executor, region string, slice Slice, th Thresholds) ([]MembershipEdge, error) {
	cypher, params, err := membershipQuery(region, slice, th)
	if err != nil {
		return nil, err
	}

	res, err := exec.Execute(ctx, cypher, params)
	if err != nil {
		return nil, regionErr(err, region)
	}

	cols, err := columnIndex(res, "ix_name", "asn", "ix_country", "source")
	if err != nil {
		return nil, &DataSourceError{Region: region, Op: "memberships", Err: err}
	}

	edges := make([]MembershipEdge, 0, len(res.Rows))
	for i, row := range res.Rows {
		name, ok := asString(row[cols[0]])
		if !ok || name == "" {
			continue // exchange without a name is unusable
		}
		asn, ok := asInt64(row[cols[1]])
		if !ok {
			return nil, &DataSourceError{Region: region, Op: "memberships",
				Err: fmt.Errorf("row %d: asn %v is not an integer", i, row[cols[1]])}
		}
		country, _ := asString(row[cols[2]])
		source, _ := asString(row[cols[3]])
		edges = append(edges, MembershipEdge{
			IXPName:    name,
			ASN:        asn,
			IXPCountry: strings.ToUpper(country),
			Source:     source,
		})
	}
	return edges, nil
}

// FetchDistribution returns, per AS in the slice, how many distinct
// exchanges it is a member of. Only all/transit/eyeball make sense
// here; the other slices have no per-AS count query.
func FetchDistribution(ctx context.Context, exec Executor, region string, slice Slice, th Thresholds) ([]ASMembershipCount, error) {
	var cypher string
	params := map[string]any{"country_code": region}
	switch slice {
	case SliceAll:
		cypher = queryDistributionAll
	case SliceTransit:
		cypher = queryDistributionTransit
		params["hegemony_min"] = th.HegemonyMin
	case SliceEyeball:
		cypher = queryDistributionEyeball
		params["eyeball_min_percent"] = th.EyeballMinPercent
	default:
		return nil, fmt.Errorf("no distribution query for slice %q", slice)
	}

	res, err := exec.Execute(ctx, cypher, params)
	if err != nil {
		return nil, regionErr(err, region)
	}

	cols, err := columnIndex(res, "asn", "nb_ix")
	if err != nil {
		return nil, &DataSourceError{Region: region, Op: "distribution", Err: err}
	}

	counts := make([]ASMembershipCount, 0, len(res.Rows))
	for i, row := range res.Rows {
		asn, ok := asInt64(row[cols[0]])
		if !ok {
			return nil, &DataSourceError{Region: region, Op: "distribution",
				Err: fmt.Errorf("row %d: asn %v is not an integer", i, row[cols[0]])}
		}
		n, ok := asInt64(row[cols[1]])
		if !ok {
			return nil, &DataSourceError{Region: region, Op: "distribution",
				Err: fmt.Errorf("row %d: nb_ix %v is not an integer", i, row[cols[1]])}
		}
		counts = append(counts, ASMembershipCount{ASN: asn, NumIXPs: int(n)})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].ASN < counts[j].ASN })
	return counts, nil
}

// FetchReferenceTime returns when the region's population estimate was
// collected, or "" when the graph has no estimate.
func FetchReferenceTime(ctx context.Context, exec Executor, region string) (string, error) {
	res, err := exec.Execute(ctx, queryReferenceTime, map[string]any{"country_code": region})
	if err != nil {
		return "", regionErr(err, region)
	}
	if len(res.Rows) == 0 || len(res.Rows[0]) == 0 {
		return "", nil
	}
	s, _ := asString(res.Rows[0][0])
	return s, nil
}

func membershipQuery(region string, slice Slice, th Thresholds) (string, map[string]any, error) {
	params := map[string]any{"country_code": region}
	switch slice {
	case SliceAll:
		return queryMembershipsAll, params, nil
	case SliceTransit:
		params["hegemony_min"] = th.HegemonyMin
		return queryMembershipsTransit, params, nil
	case SliceEyeball:
		params["eyeball_min_percent"] = th.EyeballMinPercent
		return queryMembershipsEyeball, params, nil
	case SliceContent:
		return queryMembershipsContent, params, nil
	case SliceInternational:
		return queryMembershipsInternational, params, nil
	}
	return "", nil, fmt.Errorf("unknown slice %q", slice)
}

// columnIndex resolves the position of each wanted column, erroring on
// any missing one so schema drift fails loudly.
func columnIndex(res *Result, want ...string) ([]int, error) {
	idx := make([]int, len(want))
	for i, name := range want {
		idx[i] = -1
		for j, key := range res.Keys {
			if key == name {
				idx[i] = j
				break
			}
		}
		if idx[i] == -1 {
			return nil, fmt.Errorf("column %q missing from result (have %v)", name, res.Keys)
		}
	}
	for _, row := range res.Rows {
		if len(row) != len(res.Keys) {
			return nil, fmt.Errorf("row width %d does not match %d columns", len(row), len(res.Keys))
		}
	}
	return idx, nil
}

func asString(v any) (string, bool) {
	switch s := v.(type) {
	case nil:
		return "", true
	case string:
		return s, true
	}
	return "", false
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
	}
	return 0, false
}

func regionErr(err error, region string) error {
	if dse, ok := err.(*DataSourceError); ok && dse.Region == "" {
		return &DataSourceError{Region: region, Op: dse.Op, Err: dse.Err}
	}
	return err
}
