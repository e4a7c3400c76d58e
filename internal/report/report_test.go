package report

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/ixpscope/ixpscope/internal/config"
	"github.com/ixpscope/ixpscope/internal/iyp"
)

// scriptedExecutor answers by query shape and region, and can fail a
// whole region to exercise the skip path.
type scriptedExecutor struct {
	memberships  map[string][][]any // region -> membership rows
	distribution map[string][][]any // region -> (asn, nb_ix) rows
	failRegions  map[string]bool
}

func (s *scriptedExecutor) Execute(ctx context.Context, cypher string, params map[string]any) (*iyp.Result, error) {
	region, _ := params["country_code"].(string)
	if s.failRegions[region] {
		return nil, &iyp.DataSourceError{Region: region, Op: "query", Err: context.DeadlineExceeded}
	}

	switch {
	case strings.Contains(cypher, "reference_time_fetch"):
		return &iyp.Result{Keys: []string{"p.reference_time_fetch"}, Rows: [][]any{{"2024-06-01"}}}, nil
	case strings.Contains(cypher, "nb_ix"):
		return &iyp.Result{Keys: []string{"asn", "nb_ix"}, Rows: s.distribution[region]}, nil
	default:
		return &iyp.Result{Keys: []string{"ix_name", "asn", "ix_country", "source"}, Rows: s.memberships[region]}, nil
	}
}

// membershipRows builds rows for three domestic exchanges with enough
// overlap and members to survive pruning.
func membershipRows(region string) [][]any {
	rows := [][]any{}
	add := func(ix string, asns ...int64) {
		for _, asn := range asns {
			rows = append(rows, []any{ix, asn, region, "peeringdb"})
		}
	}
	add("IX_A", 1, 2, 3, 4, 5, 6)
	add("IX_B", 1, 2, 3, 7, 8)
	add("IX_C", 4, 9, 10, 11, 12)
	return rows
}

func distributionRows() [][]any {
	return [][]any{
		{int64(1), int64(2)},
		{int64(2), int64(1)},
		{int64(99), int64(0)},
	}
}

func testConfig(t *testing.T, regions ...string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Regions = regions
	cfg.OutputDir = t.TempDir()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return cfg
}

func TestRunProducesArtifacts(t *testing.T) {
	exec := &scriptedExecutor{
		memberships:  map[string][][]any{"JP": membershipRows("JP")},
		distribution: map[string][][]any{"JP": distributionRows()},
	}
	var out bytes.Buffer
	runner := &Runner{Exec: exec, Cfg: testConfig(t, "JP"), Out: &out}

	sum, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Regions != 1 {
		t.Fatalf("expected 1 region, got %d", sum.Regions)
	}
	if len(sum.Artifacts) == 0 {
		t.Fatal("expected artifacts")
	}
	for _, path := range sum.Artifacts {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("artifact %s missing: %v", path, err)
		}
		if info.Size() == 0 {
			t.Fatalf("artifact %s is empty", path)
		}
	}
	if !strings.Contains(out.String(), "Data collected on 2024-06-01") {
		t.Fatalf("reference time not reported:\n%s", out.String())
	}
}

func TestRunFailedRegionDoesNotStopOthers(t *testing.T) {
	exec := &scriptedExecutor{
		memberships:  map[string][][]any{"JP": membershipRows("JP")},
		distribution: map[string][][]any{"JP": distributionRows()},
		failRegions:  map[string]bool{"KR": true},
	}
	var out bytes.Buffer
	runner := &Runner{Exec: exec, Cfg: testConfig(t, "KR", "JP"), Out: &out}

	sum, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run must survive a failed region: %v", err)
	}
	if sum.Regions != 2 {
		t.Fatalf("expected both regions visited, got %d", sum.Regions)
	}
	if len(sum.Artifacts) == 0 {
		t.Fatal("healthy region produced no artifacts")
	}

	foundSkip := false
	for _, s := range sum.Skipped {
		if s.Region == "KR" {
			foundSkip = true
		}
	}
	if !foundSkip {
		t.Fatalf("failed region not recorded as skipped: %+v", sum.Skipped)
	}
	if !strings.Contains(out.String(), "region KR abandoned") {
		t.Fatalf("missing warning for failed region:\n%s", out.String())
	}
}

func TestRunInsufficientDataSkipsSlice(t *testing.T) {
	// GU: distribution exists but memberships are too thin for any
	// heatmap.
	exec := &scriptedExecutor{
		memberships: map[string][][]any{"GU": {
			{"IX_TINY", int64(1), "GU", "peeringdb"},
		}},
		distribution: map[string][][]any{"GU": distributionRows()},
	}
	var out bytes.Buffer
	runner := &Runner{Exec: exec, Cfg: testConfig(t, "GU"), Out: &out}

	sum, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	heatmaps := 0
	for _, p := range sum.Artifacts {
		if strings.Contains(p, "heatmap") {
			heatmaps++
		}
	}
	if heatmaps != 0 {
		t.Fatalf("expected no heatmaps for thin region, got %d", heatmaps)
	}
	if len(sum.Skipped) == 0 {
		t.Fatal("insufficient data not recorded as skipped")
	}
	if !strings.Contains(out.String(), "Warning: skipping") {
		t.Fatalf("missing warning:\n%s", out.String())
	}
}

func TestRunSliceFilter(t *testing.T) {
	exec := &scriptedExecutor{
		memberships:  map[string][][]any{"JP": membershipRows("JP")},
		distribution: map[string][][]any{"JP": distributionRows()},
	}
	var out bytes.Buffer
	runner := &Runner{
		Exec:   exec,
		Cfg:    testConfig(t, "JP"),
		Out:    &out,
		Slices: []iyp.Slice{iyp.SliceAll},
	}

	sum, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, p := range sum.Artifacts {
		if !strings.Contains(p, "_all") {
			t.Fatalf("artifact outside requested slice: %s", p)
		}
	}
}
