// Package report drives a full analysis run: every configured region,
// every AS slice, extraction through rendering. Failures stay scoped
// to the region or slice they hit; the run keeps going.
package report

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ixpscope/ixpscope/internal/comember"
	"github.com/ixpscope/ixpscope/internal/config"
	"github.com/ixpscope/ixpscope/internal/iyp"
	"github.com/ixpscope/ixpscope/internal/render"
	"github.com/ixpscope/ixpscope/internal/stats"
)

// distributionSlices are the slices with a per-AS exchange-count query.
var distributionSlices = []iyp.Slice{iyp.SliceAll, iyp.SliceTransit, iyp.SliceEyeball}

// Skip records one unit of work that produced no artifact and why.
type Skip struct {
	Region string
	Slice  iyp.Slice
	Reason string
}

// RunSummary is what a full run produced.
type RunSummary struct {
	Regions   int
	Artifacts []string
	Skipped   []Skip
}

// Runner holds the collaborators for one run.
type Runner struct {
	Exec   iyp.Executor
	Cfg    *config.Config
	Out    io.Writer   // progress and warnings; typically os.Stderr
	Slices []iyp.Slice // nil means every slice
}

func (r *Runner) slices() []iyp.Slice {
	if len(r.Slices) == 0 {
		return iyp.Slices
	}
	return r.Slices
}

func hasSlice(ss []iyp.Slice, s iyp.Slice) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// Run processes regions strictly in list order. A DataSourceError
// abandons the remaining analyses for that region only; insufficient
// data skips a single (region, slice) artifact.
func (r *Runner) Run(ctx context.Context) (*RunSummary, error) {
	sum := &RunSummary{}
	th := iyp.Thresholds{
		EyeballMinPercent: r.Cfg.EyeballMinPercent,
		HegemonyMin:       r.Cfg.HegemonyMin,
	}
	params := comember.Params{
		MinASFraction:      r.Cfg.MinASFraction,
		DomesticMinMembers: r.Cfg.DomesticMinMembers,
		ClusterCutDistance: r.Cfg.ClusterCutDistance,
		Normalize:          r.Cfg.NormalizeMatrix,
	}

	if when, err := iyp.FetchReferenceTime(ctx, r.Exec, r.Cfg.Regions[0]); err == nil && when != "" {
		fmt.Fprintf(r.Out, "Data collected on %s\n", when)
	}

	for _, region := range r.Cfg.Regions {
		sum.Regions++
		if err := r.runRegion(ctx, region, th, params, sum); err != nil {
			var dse *iyp.DataSourceError
			if errors.As(err, &dse) {
				fmt.Fprintf(r.Out, "Warning: region %s abandoned: %v\n", region, err)
				sum.Skipped = append(sum.Skipped, Skip{Region: region, Reason: err.Error()})
				continue
			}
			return sum, err
		}
	}
	return sum, nil
}

func (r *Runner) runRegion(ctx context.Context, region string, th iyp.Thresholds, params comember.Params, sum *RunSummary) error {
	// Distribution tables and bar charts.
	for _, slice := range distributionSlices {
		if !hasSlice(r.slices(), slice) {
			continue
		}
		counts, err := iyp.FetchDistribution(ctx, r.Exec, region, slice, th)
		if err != nil {
			return err
		}
		if len(counts) == 0 {
			r.skip(sum, region, slice, "no ASes in slice")
			continue
		}

		buckets := stats.Distribution(counts)
		title := fmt.Sprintf("Distribution of %s ASes at IXPs", slice)
		path := render.ArtifactPath(r.Cfg.OutputDir, region, string(slice), "")
		if err := render.DistributionBar(region, string(slice), title, buckets, path); err != nil {
			return fmt.Errorf("rendering distribution for %s/%s: %w", region, slice, err)
		}
		sum.Artifacts = append(sum.Artifacts, path)

		if absent := stats.AbsentASes(counts); len(absent) > 0 && slice != iyp.SliceAll {
			fmt.Fprintf(r.Out, "%s: %d %s ASes at no exchange: %v\n", region, len(absent), slice, absent)
		}
	}

	// Co-membership heatmaps.
	for _, slice := range r.slices() {
		edges, err := iyp.FetchMemberships(ctx, r.Exec, region, slice, th)
		if err != nil {
			return err
		}

		hm, err := comember.Build(edges, region, params)
		if err != nil {
			if errors.Is(err, comember.ErrInsufficientData) {
				r.skip(sum, region, slice, err.Error())
				continue
			}
			return err
		}

		path := render.ArtifactPath(r.Cfg.OutputDir, region, string(slice), "heatmap")
		if err := render.Heatmap(hm, path); err != nil {
			return fmt.Errorf("rendering heatmap for %s/%s: %w", region, slice, err)
		}
		sum.Artifacts = append(sum.Artifacts, path)
	}
	return nil
}

func (r *Runner) skip(sum *RunSummary, region string, slice iyp.Slice, reason string) {
	fmt.Fprintf(r.Out, "Warning: skipping %s/%s: %s\n", region, slice, reason)
	sum.Skipped = append(sum.Skipped, Skip{Region: region, Slice: slice, Reason: reason})
}
