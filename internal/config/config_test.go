package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-mapbox/internal/toggle"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.yaml")

	content := `title: Food map
layers:
  property: category
  indicator: any-visible
  filters:
    - [">=", "rating", 3]
features:
  - data/food.geojson
  - /abs/path.geojson
mapbox:
  center: [-0.12, 51.5]
  zoom: 12
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Food map", cfg.Title)
	assert.Equal(t, "category", cfg.Layers.Property)
	assert.Equal(t, []any{[]any{">=", "rating", 3}}, cfg.Layers.Filters)
	assert.Equal(t, []string{filepath.Join(dir, "data/food.geojson"), "/abs/path.geojson"}, cfg.Features)
	assert.Equal(t, []float64{-0.12, 51.5}, cfg.Mapbox.Center)
	assert.Equal(t, 12.0, cfg.Mapbox.Zoom)

	// untouched defaults survive
	assert.Equal(t, "mapbox://styles/mapbox/dark-v11", cfg.Mapbox.StyleURL)
	assert.Equal(t, filepath.Join(dir, ".mapbox_access_token"), cfg.Mapbox.AccessTokenPath)
	assert.Equal(t, 200, cfg.Layers.MaxLayers)
	assert.Equal(t, filepath.Join(dir, "map.html"), cfg.Output)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("layers: [unterminated"), 0o644))
	_, err = Load(bad)
	assert.ErrorContains(t, err, "failed to parse config file")

	policy := filepath.Join(dir, "policy.yaml")
	require.NoError(t, os.WriteFile(policy, []byte("layers:\n  indicator: majority\n"), 0o644))
	_, err = Load(policy)
	assert.ErrorContains(t, err, "invalid layers.indicator")
}

func TestParseIndicator(t *testing.T) {
	p, err := ParseIndicator("")
	require.NoError(t, err)
	assert.Equal(t, toggle.IndicatorLastLayer, p)

	p, err = ParseIndicator("Any-Visible")
	require.NoError(t, err)
	assert.Equal(t, toggle.IndicatorAnyVisible, p)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "page.yaml")
	cfg := DefaultConfig()
	cfg.Title = "Saved"

	require.NoError(t, Save(path, cfg))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "# plat-mapbox page configuration")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Saved", loaded.Title)
	assert.Equal(t, "last-layer", loaded.Layers.Indicator)
}

func TestLoad_ResolvesOutput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output: out/food.html\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out", "food.html"), cfg.Output)

	require.NoError(t, os.WriteFile(path, []byte("output: /tmp/abs.html\n"), 0o644))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/abs.html", cfg.Output)
}
