// Package render writes the report artifacts as static HTML charts.
// It draws what it is given; all computation happens upstream.
package render

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/ixpscope/ixpscope/internal/comember"
	"github.com/ixpscope/ixpscope/internal/stats"
)

// Bucket colors from the original report: red for ASes at no exchange,
// green at one, blue at two or more.
const (
	colorAbsent = "#d62728"
	colorSingle = "#2ca02c"
	colorMulti  = "#1f77b4"
)

// Heatmap renders the cluster-ordered co-membership matrix to path.
func Heatmap(hm *comember.Heatmap, path string) error {
	n := len(hm.Labels)
	labels := make([]string, n)
	for i, l := range hm.Labels {
		labels[i] = l.String()
	}

	maxCell := 0.0
	data := make([]opts.HeatMapData, 0, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := hm.Matrix.At(i, j)
			if v > maxCell {
				maxCell = v
			}
			data = append(data, opts.HeatMapData{Value: [3]interface{}{j, i, v}})
		}
	}

	chart := charts.NewHeatMap()
	chart.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1000px", Height: "800px"}),
		charts.WithTitleOpts(opts.Title{Title: hm.Title}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: labels, AxisLabel: &opts.AxisLabel{Show: true, Rotate: 45}}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: labels}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: true,
			Min:        0,
			Max:        float32(maxCell),
			InRange:    &opts.VisualMapInRange{Color: []string{"#f7fbff", "#08306b"}},
		}),
	)
	chart.SetXAxis(labels).AddSeries("co-membership", data)

	return writeChart(path, chart.Render)
}

// DistributionBar renders the nb_ix distribution table for one region
// and slice: percent of ASes member of exactly N exchanges.
func DistributionBar(region, slice, title string, buckets []stats.Bucket, path string) error {
	xs := make([]string, len(buckets))
	data := make([]opts.BarData, len(buckets))
	for i, b := range buckets {
		xs[i] = fmt.Sprintf("%d", b.NumIXPs)
		data[i] = opts.BarData{
			Value:     b.Percent,
			ItemStyle: &opts.ItemStyle{Color: bucketColor(b.NumIXPs)},
		}
	}

	chart := charts.NewBar()
	chart.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("%s, %s ASes: share of ASes by number of IXPs joined", region, slice),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true}),
		charts.WithYAxisOpts(opts.YAxis{Name: "% of ASes"}),
	)
	chart.SetXAxis(xs).AddSeries("ASes", data)

	return writeChart(path, chart.Render)
}

func bucketColor(numIXPs int) string {
	switch {
	case numIXPs == 0:
		return colorAbsent
	case numIXPs == 1:
		return colorSingle
	default:
		return colorMulti
	}
}

// ArtifactPath builds the per-region, per-slice output filename.
func ArtifactPath(dir, region, slice, kind string) string {
	if kind == "" {
		return filepath.Join(dir, fmt.Sprintf("%s_%s.html", region, slice))
	}
	return filepath.Join(dir, fmt.Sprintf("%s_%s_%s.html", region, slice, kind))
}

func writeChart(path string, render func(w io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := render(f); err != nil {
		f.Close()
		return fmt.Errorf("rendering %s: %w", path, err)
	}
	return f.Close()
}
