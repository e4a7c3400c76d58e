package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ixpscope/ixpscope/internal/cache"
	"github.com/ixpscope/ixpscope/internal/config"
	"github.com/ixpscope/ixpscope/internal/iyp"
	"github.com/ixpscope/ixpscope/internal/report"
)

type reportFlags struct {
	configPath string
	outDir     string
	regions    []string
	slice      string
	normalize  bool
	noCache    bool
}

func runReport(args []string) error {
	flags, err := parseReportFlags(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	if flags.outDir != "" {
		cfg.OutputDir = flags.outDir
	}
	if len(flags.regions) > 0 {
		cfg.Regions = flags.regions
	}
	if flags.normalize {
		cfg.NormalizeMatrix = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	var slices []iyp.Slice
	if flags.slice != "" {
		s := iyp.Slice(flags.slice)
		if !s.Valid() {
			return fmt.Errorf("unknown slice %q (want all, transit, eyeball, content or international)", flags.slice)
		}
		slices = []iyp.Slice{s}
	}

	ctx := context.Background()

	client, err := iyp.Dial(ctx, iyp.ClientConfig{
		URI:      cfg.Neo4j.URI,
		Username: cfg.Neo4j.Username,
		Password: cfg.Neo4j.Password,
		Database: cfg.Neo4j.Database,
	})
	if err != nil {
		return err
	}
	defer client.Close(ctx)

	var exec iyp.Executor = client
	if cfg.CachePath != "" && !flags.noCache {
		c, err := cache.Open(cfg.CachePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cache disabled: %v\n", err)
		} else {
			defer c.Close()
			exec = c.Wrap(client, cfg.CacheTTL, func(format string, a ...any) {
				fmt.Fprintf(os.Stderr, "Warning: "+format+"\n", a...)
			})
		}
	}

	runner := &report.Runner{Exec: exec, Cfg: cfg, Out: os.Stderr, Slices: slices}
	sum, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Processed %d regions: %d artifacts, %d skipped\n",
		sum.Regions, len(sum.Artifacts), len(sum.Skipped))
	for _, p := range sum.Artifacts {
		fmt.Printf("  %s\n", p)
	}
	return nil
}

func parseReportFlags(args []string) (reportFlags, error) {
	var f reportFlags
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "--config" && i+1 < len(args):
			i++
			f.configPath = args[i]
		case strings.HasPrefix(args[i], "--config="):
			f.configPath = strings.TrimPrefix(args[i], "--config=")
		case args[i] == "--out" && i+1 < len(args):
			i++
			f.outDir = args[i]
		case strings.HasPrefix(args[i], "--out="):
			f.outDir = strings.TrimPrefix(args[i], "--out=")
		case args[i] == "--regions" && i+1 < len(args):
			i++
			f.regions = splitRegions(args[i])
		case strings.HasPrefix(args[i], "--regions="):
			f.regions = splitRegions(strings.TrimPrefix(args[i], "--regions="))
		case args[i] == "--slice" && i+1 < len(args):
			i++
			f.slice = strings.ToLower(strings.TrimSpace(args[i]))
		case strings.HasPrefix(args[i], "--slice="):
			f.slice = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(args[i], "--slice=")))
		case args[i] == "--normalize":
			f.normalize = true
		case args[i] == "--no-cache":
			f.noCache = true
		case strings.HasPrefix(args[i], "-"):
			return f, fmt.Errorf("unknown flag: %s", args[i])
		default:
			return f, fmt.Errorf("unexpected argument: %s", args[i])
		}
	}
	return f, nil
}

func splitRegions(s string) []string {
	var out []string
	for _, r := range strings.Split(s, ",") {
		r = strings.ToUpper(strings.TrimSpace(r))
		if r != "" {
			out = append(out, r)
		}
	}
	return out
}

func runConfig(args []string) error {
	path := ""
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "--config" && i+1 < len(args):
			i++
			path = args[i]
		case strings.HasPrefix(args[i], "--config="):
			path = strings.TrimPrefix(args[i], "--config=")
		default:
			return fmt.Errorf("unexpected argument: %s", args[i])
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	fmt.Printf("regions:              %s\n", strings.Join(cfg.Regions, ", "))
	fmt.Printf("neo4j.uri:            %s\n", cfg.Neo4j.URI)
	fmt.Printf("eyeball_min_percent:  %g\n", cfg.EyeballMinPercent)
	fmt.Printf("hegemony_min:         %g\n", cfg.HegemonyMin)
	fmt.Printf("min_as_fraction:      %g\n", cfg.MinASFraction)
	fmt.Printf("domestic_min_members: %d\n", cfg.DomesticMinMembers)
	fmt.Printf("cluster_cut_distance: %g\n", cfg.ClusterCutDistance)
	fmt.Printf("normalize_matrix:     %v\n", cfg.NormalizeMatrix)
	fmt.Printf("output_dir:           %s\n", cfg.OutputDir)
	if cfg.CachePath != "" {
		fmt.Printf("cache:                %s (ttl %s)\n", cfg.CachePath, cfg.CacheTTL)
	}
	if len(cfg.Sources) > 0 {
		fmt.Println("\nresolved from:")
		for field, rv := range cfg.Sources {
			fmt.Printf("  %-20s %s (%s)\n", field, rv.Source, rv.From)
		}
	}
	return nil
}
