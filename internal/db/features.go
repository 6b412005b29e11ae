package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-mapbox/internal/mapbox"
)

// FeatureColumns is the column list LoadFeatures expects, in order.
var FeatureColumns = []string{"id", "geojson_type", "colour", "properties", "geometry"}

// LoadFeatures runs query and converts each row into a feature. The query
// must return FeatureColumns in order; properties is a JSON object (or
// NULL) and geometry a GeoJSON geometry, e.g. from ST_AsGeoJSON. A NULL
// geojson_type is taken from the geometry.
func LoadFeatures(ctx context.Context, db *sql.DB, query string) ([]mapbox.Feature, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query features: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("feature columns: %w", err)
	}
	if len(cols) != len(FeatureColumns) {
		return nil, fmt.Errorf("feature query returned %d columns, want %d (%s)",
			len(cols), len(FeatureColumns), strings.Join(FeatureColumns, ", "))
	}

	var features []mapbox.Feature
	for n := 0; rows.Next(); n++ {
		var (
			id, props, geom  any
			geomType, colour sql.NullString
		)
		if err := rows.Scan(&id, &geomType, &colour, &props, &geom); err != nil {
			return nil, fmt.Errorf("scan feature row %d: %w", n, err)
		}
		f, err := featureFromRow(id, geomType.String, colour.String, props, geom)
		if err != nil {
			return nil, fmt.Errorf("feature row %d: %w", n, err)
		}
		features = append(features, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate features: %w", err)
	}
	return features, nil
}

func featureFromRow(id any, geomType, colour string, props, geom any) (mapbox.Feature, error) {
	f := mapbox.Feature{
		GeometryType: geomType,
		Colour:       colour,
	}
	if id != nil {
		f.ID = fmt.Sprint(id)
	}

	raw, err := rawJSON(props)
	if err != nil {
		return f, fmt.Errorf("properties: %w", err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &f.Properties); err != nil {
			return f, fmt.Errorf("properties: %w", err)
		}
	}

	raw, err = rawJSON(geom)
	if err != nil {
		return f, fmt.Errorf("geometry: %w", err)
	}
	if len(raw) == 0 {
		return f, fmt.Errorf("feature %q: %w", f.ID, mapbox.ErrMissingGeometry)
	}
	g, err := geojson.UnmarshalGeometry(raw)
	if err != nil {
		return f, fmt.Errorf("geometry: %w", err)
	}
	f.Geometry = g.Geometry()
	if f.GeometryType == "" {
		f.GeometryType = f.Geometry.GeoJSONType()
	}

	return f, f.Validate()
}

// rawJSON normalises a scanned JSON column: drivers hand back text, bytes
// or an already decoded value.
func rawJSON(v any) ([]byte, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(t), nil
	case []byte:
		return t, nil
	default:
		return json.Marshal(t)
	}
}
