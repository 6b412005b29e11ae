package templates

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-mapbox/internal/mapbox"
)

func foodStyle(t *testing.T) *mapbox.Style {
	t.Helper()
	b := mapbox.NewBuilder()
	require.NoError(t, b.AddFeatures(
		mapbox.Feature{ID: "1", GeometryType: "Point", Properties: map[string]any{"category": "food"}, Geometry: orb.Point{-0.1, 51.5}},
		mapbox.Feature{ID: "2", GeometryType: "LineString", Properties: map[string]any{"category": "path"}, Geometry: orb.LineString{{0, 0}, {1, 1}}},
	))
	style, err := b.Build(mapbox.BuildOptions{LayerProperty: "category"})
	require.NoError(t, err)
	return style
}

func TestRenderPage(t *testing.T) {
	r, err := New("")
	require.NoError(t, err)

	data, err := NewPageData("Food <map>", "pk.test", View{StyleURL: "mapbox://styles/mapbox/dark-v11", Center: []float64{-0.1, 51.5}, Zoom: 11}, foodStyle(t))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.RenderPage(&buf, data))
	html := buf.String()

	assert.Contains(t, html, "<title>Food &lt;map&gt;</title>")
	assert.Contains(t, html, `mapboxgl.accessToken = "pk.test"`)
	assert.Contains(t, html, `map.addSource("all_data"`)
	assert.Contains(t, html, `["food_point","path_linestring"]`)
	assert.Contains(t, html, `["food","path"]`)
	assert.Contains(t, html, "e.preventDefault();")
	assert.Contains(t, html, "e.stopPropagation();")
	assert.Contains(t, html, `<nav id="menu"></nav>`)
	assert.NotContains(t, html, "layers-toggled")
}

func TestRenderPage_Live(t *testing.T) {
	r, err := New("")
	require.NoError(t, err)

	data, err := NewPageData("Live", "pk.test", View{Zoom: 2}, foodStyle(t))
	require.NoError(t, err)
	data.Live = true

	html, err := r.Render("page", data)
	require.NoError(t, err)
	assert.Contains(t, html, `data-init="@get('/api/v1/menu')"`)
	assert.Contains(t, html, "layers-toggled")
	assert.NotContains(t, html, "findPrefixedLayers")
}

func TestNewPageData_Ungrouped(t *testing.T) {
	b := mapbox.NewBuilder()
	require.NoError(t, b.AddFeature(mapbox.Feature{ID: "1", GeometryType: "Point", Geometry: orb.Point{}}))
	style, err := b.Build(mapbox.BuildOptions{})
	require.NoError(t, err)

	data, err := NewPageData("t", "tok", View{}, style)
	require.NoError(t, err)
	assert.False(t, data.Grouped)
	assert.Equal(t, []string{}, data.Prefixes)
	assert.Equal(t, []string{"Point_layer"}, data.LayerIDs)
}

func TestRenderMenuControl(t *testing.T) {
	r, err := New("")
	require.NoError(t, err)

	html, err := r.Render("menu-control", map[string]any{"Index": 3, "Label": "food", "Active": true})
	require.NoError(t, err)
	assert.Contains(t, html, `id="control-3"`)
	assert.Contains(t, html, `class="active"`)
	assert.Contains(t, html, ">food</a>")

	html, err = r.Render("menu-control", map[string]any{"Index": 0, "Label": "path", "Active": false})
	require.NoError(t, err)
	assert.Contains(t, html, `class=""`)
}

func TestCustomPageTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.html")
	require.NoError(t, os.WriteFile(path, []byte(`{{define "page"}}custom {{.Title}} {{json .Prefixes}}{{end}}`), 0o644))

	r, err := New(path)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.RenderPage(&buf, PageData{Title: "x", Prefixes: []string{"a"}}))
	assert.Equal(t, `custom x [&#34;a&#34;]`, buf.String())

	require.NoError(t, r.Reload(""))
	buf.Reset()
	require.NoError(t, r.RenderPage(&buf, PageData{Title: "x", LayerIDs: []string{}, Prefixes: []string{}}))
	assert.Contains(t, buf.String(), "<!DOCTYPE html>")
}

func TestWritePage(t *testing.T) {
	r, err := New("")
	require.NoError(t, err)
	data, err := NewPageData("t", "tok", View{}, foodStyle(t))
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "out", "map.html")
	require.NoError(t, r.WritePage(out, data))

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "food_point")
}

func TestReadAccessToken(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".mapbox_access_token")
	require.NoError(t, os.WriteFile(path, []byte("pk.fromfile\nignored\n"), 0o600))

	t.Setenv(TokenEnv, "pk.fromenv")

	tok, err := ReadAccessToken(path)
	require.NoError(t, err)
	assert.Equal(t, "pk.fromfile", tok)

	tok, err = ReadAccessToken(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Equal(t, "pk.fromenv", tok)

	t.Setenv(TokenEnv, "")
	_, err = ReadAccessToken(filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, ErrNoAccessToken)
}

func TestRenderPage_Bounds(t *testing.T) {
	r, err := New("")
	require.NoError(t, err)

	data, err := NewPageData("t", "tok", View{Bounds: [][2]float64{{-1, 50}, {1, 52}}}, foodStyle(t))
	require.NoError(t, err)

	html, err := r.Render("page", data)
	require.NoError(t, err)
	assert.Contains(t, html, "bounds: [[-1,50],[1,52]]")

	data.View.Bounds = nil
	html, err = r.Render("page", data)
	require.NoError(t, err)
	assert.NotContains(t, html, "fitBoundsOptions")
}
