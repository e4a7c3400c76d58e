package iyp

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// fakeExecutor serves canned results and records what it was asked.
type fakeExecutor struct {
	result *Result
	err    error
	calls  []call
}

type call struct {
	cypher string
	params map[string]any
}

func (f *fakeExecutor) Execute(ctx context.Context, cypher string, params map[string]any) (*Result, error) {
	f.calls = append(f.calls, call{cypher: cypher, params: params})
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func membershipResult(rows ...[]any) *Result {
	return &Result{Keys: []string{"ix_name", "asn", "ix_country", "source"}, Rows: rows}
}

func TestFetchMembershipsDecodes(t *testing.T) {
	exec := &fakeExecutor{result: membershipResult(
		[]any{"JPNAP Tokyo", int64(2497), "jp", "peeringdb"},
		[]any{"Equinix SG", int64(7713), nil, nil},
	)}

	edges, err := FetchMemberships(context.Background(), exec, "JP", SliceAll, Thresholds{})
	if err != nil {
		t.Fatalf("FetchMemberships: %v", err)
	}
	if len(edges) != 2 {
		t.Fatalf("expected 2 edges, got %d", len(edges))
	}
	if edges[0].IXPName != "JPNAP Tokyo" || edges[0].ASN != 2497 {
		t.Fatalf("edge 0 wrong: %+v", edges[0])
	}
	if edges[0].IXPCountry != "JP" {
		t.Fatalf("country not uppercased: %q", edges[0].IXPCountry)
	}
	if edges[1].IXPCountry != "" || edges[1].Source != "" {
		t.Fatalf("nil columns must decode to empty strings: %+v", edges[1])
	}
}

func TestFetchMembershipsSkipsNamelessExchange(t *testing.T) {
	exec := &fakeExecutor{result: membershipResult(
		[]any{nil, int64(1), "JP", "peeringdb"},
		[]any{"JPIX", int64(2), "JP", "peeringdb"},
	)}
	edges, err := FetchMemberships(context.Background(), exec, "JP", SliceAll, Thresholds{})
	if err != nil {
		t.Fatalf("FetchMemberships: %v", err)
	}
	if len(edges) != 1 || edges[0].IXPName != "JPIX" {
		t.Fatalf("nameless exchange not skipped: %+v", edges)
	}
}

func TestFetchMembershipsBadASN(t *testing.T) {
	exec := &fakeExecutor{result: membershipResult(
		[]any{"JPIX", "not-a-number", "JP", "peeringdb"},
	)}
	_, err := FetchMemberships(context.Background(), exec, "JP", SliceAll, Thresholds{})
	var dse *DataSourceError
	if !errors.As(err, &dse) {
		t.Fatalf("expected DataSourceError, got %v", err)
	}
	if dse.Region != "JP" {
		t.Fatalf("error not scoped to region: %+v", dse)
	}
}

func TestFetchMembershipsMissingColumn(t *testing.T) {
	exec := &fakeExecutor{result: &Result{Keys: []string{"ix_name", "asn"}, Rows: nil}}
	_, err := FetchMemberships(context.Background(), exec, "JP", SliceAll, Thresholds{})
	var dse *DataSourceError
	if !errors.As(err, &dse) {
		t.Fatalf("expected DataSourceError on schema drift, got %v", err)
	}
}

func TestFetchMembershipsEmptyIsNotError(t *testing.T) {
	exec := &fakeExecutor{result: membershipResult()}
	edges, err := FetchMemberships(context.Background(), exec, "GU", SliceAll, Thresholds{})
	if err != nil {
		t.Fatalf("empty region must not error: %v", err)
	}
	if len(edges) != 0 {
		t.Fatalf("expected no edges, got %d", len(edges))
	}
}

func TestFetchMembershipsPropagatesRegion(t *testing.T) {
	exec := &fakeExecutor{err: &DataSourceError{Op: "query", Err: errors.New("connection refused")}}
	_, err := FetchMemberships(context.Background(), exec, "KR", SliceAll, Thresholds{})
	var dse *DataSourceError
	if !errors.As(err, &dse) {
		t.Fatalf("expected DataSourceError, got %v", err)
	}
	if dse.Region != "KR" {
		t.Fatalf("region not attached: %+v", dse)
	}
}

func TestMembershipQueryParams(t *testing.T) {
	th := Thresholds{EyeballMinPercent: 1, HegemonyMin: 0.01}

	cases := []struct {
		slice     Slice
		wantParam string
		fragment  string
	}{
		{SliceAll, "", "MEMBER_OF"},
		{SliceTransit, "hegemony_min", "reference_org:'IHR'"},
		{SliceEyeball, "eyeball_min_percent", "POPULATION"},
		{SliceContent, "", "Tag"},
		{SliceInternational, "", "NOT (a)-[:COUNTRY"},
	}
	for _, tc := range cases {
		cypher, params, err := membershipQuery("JP", tc.slice, th)
		if err != nil {
			t.Fatalf("%s: %v", tc.slice, err)
		}
		if params["country_code"] != "JP" {
			t.Fatalf("%s: country_code param missing", tc.slice)
		}
		if tc.wantParam != "" {
			if _, ok := params[tc.wantParam]; !ok {
				t.Fatalf("%s: param %s missing", tc.slice, tc.wantParam)
			}
		}
		if !strings.Contains(cypher, tc.fragment) {
			t.Fatalf("%s: query missing %q", tc.slice, tc.fragment)
		}
	}

	if _, _, err := membershipQuery("JP", Slice("bogus"), th); err == nil {
		t.Fatal("unknown slice must error")
	}
}

func TestFetchDistributionSortsByASN(t *testing.T) {
	exec := &fakeExecutor{result: &Result{
		Keys: []string{"asn", "nb_ix"},
		Rows: [][]any{
			{int64(300), int64(2)},
			{int64(100), int64(0)},
			{int64(200), int64(1)},
		},
	}}
	counts, err := FetchDistribution(context.Background(), exec, "JP", SliceAll, Thresholds{})
	if err != nil {
		t.Fatalf("FetchDistribution: %v", err)
	}
	if counts[0].ASN != 100 || counts[1].ASN != 200 || counts[2].ASN != 300 {
		t.Fatalf("not sorted by ASN: %+v", counts)
	}
	if counts[0].NumIXPs != 0 {
		t.Fatalf("nb_ix lost in sort: %+v", counts[0])
	}
}

func TestFetchDistributionCachedFloats(t *testing.T) {
	// Results that round-tripped through the JSON cache come back as
	// float64; integral floats must still decode.
	exec := &fakeExecutor{result: &Result{
		Keys: []string{"asn", "nb_ix"},
		Rows: [][]any{{float64(2497), float64(3)}},
	}}
	counts, err := FetchDistribution(context.Background(), exec, "JP", SliceAll, Thresholds{})
	if err != nil {
		t.Fatalf("FetchDistribution: %v", err)
	}
	if counts[0].ASN != 2497 || counts[0].NumIXPs != 3 {
		t.Fatalf("float decoding wrong: %+v", counts[0])
	}
}

func TestFetchDistributionRejectsUnsupportedSlice(t *testing.T) {
	exec := &fakeExecutor{}
	if _, err := FetchDistribution(context.Background(), exec, "JP", SliceInternational, Thresholds{}); err == nil {
		t.Fatal("international slice has no distribution query")
	}
	if len(exec.calls) != 0 {
		t.Fatal("no query should have been issued")
	}
}

func TestFetchReferenceTime(t *testing.T) {
	exec := &fakeExecutor{result: &Result{
		Keys: []string{"p.reference_time_fetch"},
		Rows: [][]any{{"2024-06-01T00:00:00Z"}},
	}}
	when, err := FetchReferenceTime(context.Background(), exec, "NZ")
	if err != nil {
		t.Fatalf("FetchReferenceTime: %v", err)
	}
	if when != "2024-06-01T00:00:00Z" {
		t.Fatalf("reference time %q", when)
	}

	empty := &fakeExecutor{result: &Result{Keys: []string{"p.reference_time_fetch"}}}
	when, err = FetchReferenceTime(context.Background(), empty, "GU")
	if err != nil || when != "" {
		t.Fatalf("empty estimate should yield empty string, got %q, %v", when, err)
	}
}
