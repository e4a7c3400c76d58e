// Package config loads and validates the ixpscope run configuration.
//
// Configuration is resolved from three layers, later layers winning:
// built-in defaults, the YAML config file, and environment variables.
// Every resolved value remembers where it came from so `ixpscope config`
// can print a provenance report.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default region list: the Asia-Pacific economies covered by the report.
var DefaultRegions = []string{"NZ", "AU", "JP", "KR", "CN", "TH", "GU", "IN", "PK", "PH", "ID", "SG", "MY"}

const (
	DefaultNeo4jURI    = "neo4j://localhost:7687"
	DefaultNeo4jUser   = "neo4j"
	DefaultOutputDir   = "./report"
	DefaultCacheTTL    = 24 * time.Hour
	DefaultEyeballMin  = 1.0  // population percent
	DefaultHegemonyMin = 0.01 // IHR AS hegemony
	DefaultASFraction  = 0.05 // heatmap pruning fraction
	DefaultDomesticMin = 5    // member floor for domestic exchanges
	DefaultClusterCut  = 0.2  // dendrogram cut distance
)

type ValueSource string

const (
	SourceDefault ValueSource = "default"
	SourceConfig  ValueSource = "config"
	SourceEnv     ValueSource = "env"
	SourceCLI     ValueSource = "cli"
)

// ResolvedValue is a config value plus where it was resolved from.
type ResolvedValue struct {
	Value  string      `json:"value"`
	Source ValueSource `json:"source"`
	From   string      `json:"from,omitempty"`
}

// Neo4j holds connection settings for the IYP instance.
type Neo4j struct {
	URI      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// Config is the full run configuration.
type Config struct {
	Regions []string `yaml:"regions"`
	Neo4j   Neo4j    `yaml:"neo4j"`

	EyeballMinPercent  float64 `yaml:"eyeball_min_percent"`
	HegemonyMin        float64 `yaml:"hegemony_min"`
	MinASFraction      float64 `yaml:"min_as_fraction"`
	DomesticMinMembers int     `yaml:"domestic_min_members"`
	ClusterCutDistance float64 `yaml:"cluster_cut_distance"`
	NormalizeMatrix    bool    `yaml:"normalize_matrix"`

	OutputDir string        `yaml:"output_dir"`
	CachePath string        `yaml:"cache_path"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`

	// Provenance for the `config` subcommand. Not serialized.
	Sources map[string]ResolvedValue `yaml:"-"`
}

// ConfigurationError marks a fatal misconfiguration detected at startup.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}

func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".ixpscope", "config.yaml")
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{
		Regions:            append([]string(nil), DefaultRegions...),
		EyeballMinPercent:  DefaultEyeballMin,
		HegemonyMin:        DefaultHegemonyMin,
		MinASFraction:      DefaultASFraction,
		DomesticMinMembers: DefaultDomesticMin,
		ClusterCutDistance: DefaultClusterCut,
		OutputDir:          DefaultOutputDir,
		CacheTTL:           DefaultCacheTTL,
		Sources:            map[string]ResolvedValue{},
	}
	cfg.Neo4j = Neo4j{URI: DefaultNeo4jURI, Username: DefaultNeo4jUser}
	cfg.record("neo4j.uri", cfg.Neo4j.URI, SourceDefault, "built-in")
	cfg.record("output_dir", cfg.OutputDir, SourceDefault, "built-in")
	return cfg
}

// Load reads the YAML file at path (or the default path when empty),
// applies environment overrides, and validates the result. A missing
// file at the default path is not an error; the defaults are used.
func Load(path string) (*Config, error) {
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = DefaultConfigPath()
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, &ConfigurationError{Field: path, Reason: fmt.Sprintf("invalid YAML: %v", err)}
		}
		if err := fc.applyTo(cfg, path); err != nil {
			return nil, err
		}
	case os.IsNotExist(err) && !explicit:
		// defaults only
	default:
		return nil, &ConfigurationError{Field: path, Reason: err.Error()}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fileConfig mirrors Config with pointer fields so "absent" and
// "explicit zero" can be told apart.
type fileConfig struct {
	Regions []string `yaml:"regions"`
	Neo4j   struct {
		URI      string `yaml:"uri"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		Database string `yaml:"database"`
	} `yaml:"neo4j"`
	EyeballMinPercent  *float64 `yaml:"eyeball_min_percent"`
	HegemonyMin        *float64 `yaml:"hegemony_min"`
	MinASFraction      *float64 `yaml:"min_as_fraction"`
	DomesticMinMembers *int     `yaml:"domestic_min_members"`
	ClusterCutDistance *float64 `yaml:"cluster_cut_distance"`
	NormalizeMatrix    *bool    `yaml:"normalize_matrix"`
	OutputDir          string   `yaml:"output_dir"`
	CachePath          string   `yaml:"cache_path"`
	CacheTTL           string   `yaml:"cache_ttl"`
}

func (fc *fileConfig) applyTo(cfg *Config, path string) error {
	if len(fc.Regions) > 0 {
		cfg.Regions = normalizeRegions(fc.Regions)
		cfg.record("regions", strings.Join(cfg.Regions, ","), SourceConfig, path)
	}
	if v := strings.TrimSpace(fc.Neo4j.URI); v != "" {
		cfg.Neo4j.URI = v
		cfg.record("neo4j.uri", v, SourceConfig, path)
	}
	if v := strings.TrimSpace(fc.Neo4j.Username); v != "" {
		cfg.Neo4j.Username = v
	}
	if fc.Neo4j.Password != "" {
		cfg.Neo4j.Password = fc.Neo4j.Password
	}
	if v := strings.TrimSpace(fc.Neo4j.Database); v != "" {
		cfg.Neo4j.Database = v
	}
	if fc.EyeballMinPercent != nil {
		cfg.EyeballMinPercent = *fc.EyeballMinPercent
	}
	if fc.HegemonyMin != nil {
		cfg.HegemonyMin = *fc.HegemonyMin
	}
	if fc.MinASFraction != nil {
		cfg.MinASFraction = *fc.MinASFraction
	}
	if fc.DomesticMinMembers != nil {
		cfg.DomesticMinMembers = *fc.DomesticMinMembers
	}
	if fc.ClusterCutDistance != nil {
		cfg.ClusterCutDistance = *fc.ClusterCutDistance
	}
	if fc.NormalizeMatrix != nil {
		cfg.NormalizeMatrix = *fc.NormalizeMatrix
	}
	if v := strings.TrimSpace(fc.OutputDir); v != "" {
		cfg.OutputDir = expandUserPath(v)
		cfg.record("output_dir", cfg.OutputDir, SourceConfig, path)
	}
	if v := strings.TrimSpace(fc.CachePath); v != "" {
		cfg.CachePath = expandUserPath(v)
	}
	if v := strings.TrimSpace(fc.CacheTTL); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return &ConfigurationError{Field: "cache_ttl", Reason: fmt.Sprintf("%q is not a duration", v)}
		}
		cfg.CacheTTL = d
	}
	return nil
}

func (cfg *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("IXPSCOPE_NEO4J_URI")); v != "" {
		cfg.Neo4j.URI = v
		cfg.record("neo4j.uri", v, SourceEnv, "IXPSCOPE_NEO4J_URI")
	}
	if v := strings.TrimSpace(os.Getenv("IXPSCOPE_NEO4J_USER")); v != "" {
		cfg.Neo4j.Username = v
	}
	if v := os.Getenv("IXPSCOPE_NEO4J_PASSWORD"); v != "" {
		cfg.Neo4j.Password = v
	}
	if v := strings.TrimSpace(os.Getenv("IXPSCOPE_OUTPUT_DIR")); v != "" {
		cfg.OutputDir = expandUserPath(v)
		cfg.record("output_dir", cfg.OutputDir, SourceEnv, "IXPSCOPE_OUTPUT_DIR")
	}
	if v := strings.TrimSpace(os.Getenv("IXPSCOPE_CACHE")); v != "" {
		cfg.CachePath = expandUserPath(v)
	}
}

// Validate checks every threshold and the region list. Any violation is
// a ConfigurationError and aborts the run before any region is queried.
func (cfg *Config) Validate() error {
	if len(cfg.Regions) == 0 {
		return &ConfigurationError{Field: "regions", Reason: "no regions configured"}
	}
	for _, r := range cfg.Regions {
		if len(r) != 2 || strings.ToUpper(r) != r {
			return &ConfigurationError{Field: "regions", Reason: fmt.Sprintf("%q is not a two-letter country code", r)}
		}
	}
	if strings.TrimSpace(cfg.Neo4j.URI) == "" {
		return &ConfigurationError{Field: "neo4j.uri", Reason: "empty"}
	}
	if cfg.EyeballMinPercent < 0 || cfg.EyeballMinPercent > 100 || isNaN(cfg.EyeballMinPercent) {
		return &ConfigurationError{Field: "eyeball_min_percent", Reason: fmt.Sprintf("%v outside [0,100]", cfg.EyeballMinPercent)}
	}
	if cfg.HegemonyMin < 0 || cfg.HegemonyMin > 1 || isNaN(cfg.HegemonyMin) {
		return &ConfigurationError{Field: "hegemony_min", Reason: fmt.Sprintf("%v outside [0,1]", cfg.HegemonyMin)}
	}
	if cfg.MinASFraction <= 0 || cfg.MinASFraction > 1 || isNaN(cfg.MinASFraction) {
		return &ConfigurationError{Field: "min_as_fraction", Reason: fmt.Sprintf("%v outside (0,1]", cfg.MinASFraction)}
	}
	if cfg.DomesticMinMembers < 1 {
		return &ConfigurationError{Field: "domestic_min_members", Reason: fmt.Sprintf("%d must be >= 1", cfg.DomesticMinMembers)}
	}
	if cfg.ClusterCutDistance <= 0 || isNaN(cfg.ClusterCutDistance) {
		return &ConfigurationError{Field: "cluster_cut_distance", Reason: fmt.Sprintf("%v must be > 0", cfg.ClusterCutDistance)}
	}
	if strings.TrimSpace(cfg.OutputDir) == "" {
		return &ConfigurationError{Field: "output_dir", Reason: "empty"}
	}
	if cfg.CachePath != "" && cfg.CacheTTL <= 0 {
		return &ConfigurationError{Field: "cache_ttl", Reason: "must be > 0 when cache_path is set"}
	}
	return nil
}

func (cfg *Config) record(field, value string, src ValueSource, from string) {
	if cfg.Sources == nil {
		cfg.Sources = map[string]ResolvedValue{}
	}
	cfg.Sources[field] = ResolvedValue{Value: value, Source: src, From: from}
}

func normalizeRegions(in []string) []string {
	out := make([]string, 0, len(in))
	for _, r := range in {
		r = strings.ToUpper(strings.TrimSpace(r))
		if r != "" {
			out = append(out, r)
		}
	}
	return out
}

func expandUserPath(p string) string {
	if strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	return p
}

func isNaN(f float64) bool { return f != f }
