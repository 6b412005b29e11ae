// Package config loads the YAML job file describing a map page.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-mapbox/internal/mapbox"
	"github.com/joeblew999/plat-mapbox/internal/toggle"
)

// Config describes one generated map page.
type Config struct {
	Title    string       `yaml:"title"`
	Log      LogConfig    `yaml:"log"`
	Mapbox   MapboxConfig `yaml:"mapbox"`
	Template string       `yaml:"template"` // empty uses the built-in dark template
	Features []string     `yaml:"features"` // GeoJSON FeatureCollection files
	Query    QueryConfig  `yaml:"query"`
	Layers   LayersConfig `yaml:"layers"`
	Output   string       `yaml:"output"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `yaml:"level"` // trace, debug, info, warn, error
}

// MapboxConfig holds the map view and credentials.
type MapboxConfig struct {
	AccessToken     string    `yaml:"access_token"`
	AccessTokenPath string    `yaml:"access_token_path"`
	StyleURL        string    `yaml:"style_url"`
	Center          []float64 `yaml:"center"` // lon, lat
	Zoom            float64   `yaml:"zoom"`
	FitBounds       bool      `yaml:"fit_bounds"` // open on the extent of all features
}

// QueryConfig selects features from DuckDB.
type QueryConfig struct {
	DataDir string `yaml:"data_dir"`
	SQL     string `yaml:"sql"`
}

// LayersConfig controls how layers and toggle controls are built.
type LayersConfig struct {
	Property  string `yaml:"property"`
	Filters   []any  `yaml:"filters"`
	MaxLayers int    `yaml:"max_layers"`
	Indicator string `yaml:"indicator"` // last-layer, any-visible
}

// DefaultConfig returns a config with built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Title: "Map",
		Log:   LogConfig{Level: "info"},
		Mapbox: MapboxConfig{
			AccessTokenPath: ".mapbox_access_token",
			StyleURL:        "mapbox://styles/mapbox/dark-v11",
			Center:          []float64{0, 0},
			Zoom:            2,
		},
		Layers: LayersConfig{
			MaxLayers: mapbox.DefaultMaxLayers,
			Indicator: "last-layer",
		},
		Output: "map.html",
	}
}

// Load reads the YAML file at path over the defaults. Relative feature,
// template, token and output paths are resolved against the file's
// directory.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	dir := filepath.Dir(path)
	for i, f := range cfg.Features {
		cfg.Features[i] = resolve(dir, f)
	}
	cfg.Template = resolve(dir, cfg.Template)
	cfg.Mapbox.AccessTokenPath = resolve(dir, cfg.Mapbox.AccessTokenPath)
	cfg.Output = resolve(dir, cfg.Output)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolve(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// Validate checks values a YAML decode cannot.
func (c *Config) Validate() error {
	if _, err := ParseIndicator(c.Layers.Indicator); err != nil {
		return err
	}
	if c.Layers.MaxLayers < 0 {
		return fmt.Errorf("layers.max_layers must not be negative, got %d", c.Layers.MaxLayers)
	}
	return nil
}

// ParseIndicator maps a config value to a toggle indicator policy.
func ParseIndicator(s string) (toggle.IndicatorPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "last-layer":
		return toggle.IndicatorLastLayer, nil
	case "any-visible":
		return toggle.IndicatorAnyVisible, nil
	}
	return 0, fmt.Errorf("invalid layers.indicator %q: must be last-layer or any-visible", s)
}

// Save writes cfg as YAML to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# plat-mapbox page configuration
# layers.indicator: last-layer, any-visible

`)
	data = append(header, data...)

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}
