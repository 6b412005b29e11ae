package db

import (
	"bytes"
	"context"
	"testing"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-mapbox/internal/mapbox"
)

func TestFeatureFromRow(t *testing.T) {
	f, err := featureFromRow(int64(7), "Point", "#ff0000",
		`{"category":"food","rating":4}`,
		[]byte(`{"type":"Point","coordinates":[-0.1,51.5]}`))
	require.NoError(t, err)

	assert.Equal(t, "7", f.ID)
	assert.Equal(t, "#ff0000", f.Colour)
	assert.Equal(t, map[string]any{"category": "food", "rating": 4.0}, f.Properties)
	assert.Equal(t, orb.Point{-0.1, 51.5}, f.Geometry)
}

func TestFeatureFromRow_DecodedValuesAndInferredType(t *testing.T) {
	f, err := featureFromRow("a", "", "",
		map[string]any{"category": "path"},
		map[string]any{"type": "LineString", "coordinates": []any{[]any{0, 0}, []any{1, 1}}})
	require.NoError(t, err)

	assert.Equal(t, "LineString", f.GeometryType)
	assert.Equal(t, "path", f.Properties["category"])
}

func TestFeatureFromRow_Errors(t *testing.T) {
	_, err := featureFromRow("a", "Point", "", nil, nil)
	assert.ErrorIs(t, err, mapbox.ErrMissingGeometry)

	_, err = featureFromRow("a", "Point", "", "[1,2]", `{"type":"Point","coordinates":[0,0]}`)
	assert.ErrorContains(t, err, "properties")

	_, err = featureFromRow("a", "Polygon", "", nil, `{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}`)
	assert.ErrorIs(t, err, mapbox.ErrUnsupportedGeometry)

	_, err = featureFromRow("a", "Point", "", nil, `{"type":"LineString","coordinates":[[0,0],[1,1]]}`)
	assert.ErrorIs(t, err, mapbox.ErrGeometryMismatch)
}

func TestLoadFeatures(t *testing.T) {
	conn, err := Open(Config{})
	require.NoError(t, err)
	defer conn.Close()

	ctx := context.Background()
	_, err = conn.ExecContext(ctx, `CREATE TABLE places (
		id VARCHAR, geojson_type VARCHAR, colour VARCHAR, properties VARCHAR, geometry VARCHAR)`)
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, `INSERT INTO places VALUES
		('1', 'Point', '#ff0000', '{"category":"food"}', '{"type":"Point","coordinates":[1,2]}'),
		('2', 'LineString', NULL, NULL, '{"type":"LineString","coordinates":[[0,0],[1,1]]}')`)
	require.NoError(t, err)

	features, err := LoadFeatures(ctx, conn, "SELECT * FROM places ORDER BY id")
	require.NoError(t, err)
	require.Len(t, features, 2)
	assert.Equal(t, "food", features[0].Properties["category"])
	assert.Equal(t, "", features[1].Colour)
	assert.Nil(t, features[1].Properties)

	_, err = LoadFeatures(ctx, conn, "SELECT id FROM places")
	assert.ErrorContains(t, err, "returned 1 columns")

	tables, err := ListTables(ctx, conn)
	require.NoError(t, err)
	assert.Equal(t, []string{"places"}, tables)
}

func TestOpen_LogsUnavailableExtension(t *testing.T) {
	var logs bytes.Buffer
	conn, err := Open(Config{
		Extensions: []string{"no_such_extension_xyz"},
		Logger:     zerolog.New(&logs),
	})
	require.NoError(t, err)
	defer conn.Close()

	assert.Contains(t, logs.String(), `"level":"warn"`)
	assert.Contains(t, logs.String(), `"extension":"no_such_extension_xyz"`)
	assert.Contains(t, logs.String(), "duckdb extension unavailable")
}
