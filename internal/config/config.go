// Package config loads the dashboard configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"opsdash/internal/engine"
)

var (
	ErrDataPathRequired   = errors.New("dataset path is required")
	ErrAddrRequired       = errors.New("server address is required")
	ErrRedisAddrRequired  = errors.New("redis address is required when the cache is enabled")
	ErrInvalidTopN        = errors.New("top_n must be positive")
	ErrNoColumnConfigured = errors.New("every dashboard column needs a name")
)

// Config is the complete server configuration.
type Config struct {
	Logging     string        `yaml:"logging" default:"info"`
	Addr        string        `yaml:"addr" default:":8080"`
	MetricsAddr string        `yaml:"metricsAddr" default:":9090"`
	Dataset     DatasetConfig `yaml:"dataset"`
	// Filters is the filter registry, in display and application order.
	Filters []engine.FilterSpec `yaml:"filters"`
	TopN    int                 `yaml:"top_n" default:"10"`
	Cache   CacheConfig         `yaml:"cache"`
}

// DatasetConfig describes where the records live and how to read them.
type DatasetConfig struct {
	Path        string         `yaml:"path"`
	Comma       string         `yaml:"comma" default:","`
	DateLayouts []string       `yaml:"date_layouts"`
	Columns     engine.Columns `yaml:"columns"`
}

// CacheConfig enables memoising dashboards in redis.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" default:"false"`
	Address string        `yaml:"address"`
	Prefix  string        `yaml:"prefix" default:"opsdash"`
	TTL     time.Duration `yaml:"ttl" default:"10m"`
}

// DefaultFilters mirrors the filters of the maintenance spreadsheet.
func DefaultFilters(c engine.Columns) []engine.FilterSpec {
	return []engine.FilterSpec{
		{ID: "sector", Column: c.Sector},
		{ID: "status", Column: c.Status},
		{ID: "model", Column: c.Model},
		{ID: "maintenance_type", Column: c.MaintenanceType},
		{ID: "maintenance_cost", Column: c.Cost},
		{ID: "downtime", Column: c.Downtime},
	}
}

// SetDefaults fills the fields struct tags cannot express.
func (c *Config) SetDefaults() {
	if len(c.Filters) == 0 {
		c.Filters = DefaultFilters(c.Dataset.Columns)
	}
	if len(c.Dataset.DateLayouts) == 0 {
		c.Dataset.DateLayouts = append([]string(nil), engine.DefaultDateLayouts...)
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Dataset.Path == "" {
		return ErrDataPathRequired
	}
	if c.Addr == "" {
		return ErrAddrRequired
	}
	if c.TopN <= 0 {
		return ErrInvalidTopN
	}
	for _, name := range c.Dataset.Columns.Names() {
		if name == "" {
			return ErrNoColumnConfigured
		}
	}
	if _, err := engine.NewRegistry(c.Filters...); err != nil {
		return fmt.Errorf("invalid filters: %w", err)
	}
	if c.Cache.Enabled && c.Cache.Address == "" {
		return ErrRedisAddrRequired
	}
	return nil
}

// LoadOptions derives the loader settings: cost and downtime are numeric,
// the maintenance date is temporal.
func (c *Config) LoadOptions() engine.LoadOptions {
	cols := c.Dataset.Columns
	opts := engine.LoadOptions{
		Columns:     cols.Names(),
		Numeric:     []string{cols.Cost, cols.Downtime},
		Temporal:    []string{cols.Date},
		DateLayouts: c.Dataset.DateLayouts,
	}
	for _, f := range c.Filters {
		opts.Columns = append(opts.Columns, f.Column)
	}
	if r := []rune(c.Dataset.Comma); len(r) == 1 {
		opts.Comma = r[0]
	}
	return opts
}

// New returns a Config holding only defaults.
func New() (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	return cfg, nil
}

// Load reads a YAML file over the defaults. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, err
	}

	if path != "" {
		raw, err := os.ReadFile(path) //nolint:gosec // User-provided config file path
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		if err == nil {
			if err := yaml.Unmarshal(raw, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	cfg.SetDefaults()
	return cfg, nil
}
