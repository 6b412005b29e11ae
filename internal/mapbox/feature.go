// Package mapbox turns user features into a Mapbox GL style: one GeoJSON
// source plus circle and line layers grouped by geometry kind or by a
// feature property.
package mapbox

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// DefaultColour is used for features added without a colour.
const DefaultColour = "#00ff00"

var (
	ErrUnsupportedGeometry = errors.New("unsupported geometry type")
	ErrMissingGeometry     = errors.New("feature has no geometry")
	ErrGeometryMismatch    = errors.New("geometry does not match declared type")
	ErrInvalidColour       = errors.New("invalid colour")
)

// Kind is the geometry family a layer filters on.
type Kind string

const (
	KindPoint      Kind = "Point"
	KindLineString Kind = "LineString"
)

// kindOf maps the accepted GeoJSON geometry types to their layer kind.
var kindOf = map[string]Kind{
	"Point":           KindPoint,
	"MultiPoint":      KindPoint,
	"LineString":      KindLineString,
	"MultiLineString": KindLineString,
}

var colourPattern = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Feature is one user-supplied map feature.
type Feature struct {
	ID           string         `json:"id" yaml:"id"`
	GeometryType string         `json:"geojson_type" yaml:"geojson_type"`
	Colour       string         `json:"colour,omitempty" yaml:"colour,omitempty"`
	Properties   map[string]any `json:"properties,omitempty" yaml:"properties,omitempty"`
	Geometry     orb.Geometry   `json:"-" yaml:"-"`
}

// Kind returns the layer kind for the feature's geometry type.
func (f Feature) Kind() (Kind, error) {
	k, ok := kindOf[f.GeometryType]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedGeometry, f.GeometryType)
	}
	return k, nil
}

// Validate checks geometry type, geometry and colour.
func (f Feature) Validate() error {
	if _, err := f.Kind(); err != nil {
		return err
	}
	if f.Geometry == nil {
		return fmt.Errorf("feature %q: %w", f.ID, ErrMissingGeometry)
	}
	if got := f.Geometry.GeoJSONType(); got != f.GeometryType {
		return fmt.Errorf("feature %q: %w: declared %s, got %s", f.ID, ErrGeometryMismatch, f.GeometryType, got)
	}
	if f.Colour != "" && !colourPattern.MatchString(f.Colour) {
		return fmt.Errorf("feature %q: %w: %q", f.ID, ErrInvalidColour, f.Colour)
	}
	return nil
}

// GeoJSON converts the feature to an orb GeoJSON feature. The colour is
// written as the "colour" property; user properties win on conflict.
func (f Feature) GeoJSON() *geojson.Feature {
	gf := geojson.NewFeature(f.Geometry)
	gf.ID = f.ID

	colour := f.Colour
	if colour == "" {
		colour = DefaultColour
	}
	gf.Properties["colour"] = colour
	for k, v := range f.Properties {
		gf.Properties[k] = v
	}
	return gf
}

// LoadGeoJSONFile reads a FeatureCollection file into features.
func LoadGeoJSONFile(path string) ([]Feature, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening geojson: %w", err)
	}
	defer fh.Close()

	features, err := LoadGeoJSON(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return features, nil
}

// LoadGeoJSON reads a FeatureCollection. The feature ID comes from the
// GeoJSON id member or, failing that, an "id" property; the colour comes
// from the "colour" property.
func LoadGeoJSON(r io.Reader) ([]Feature, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading geojson: %w", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parsing geojson: %w", err)
	}

	features := make([]Feature, 0, len(fc.Features))
	for _, gf := range fc.Features {
		features = append(features, fromGeoJSON(gf))
	}
	return features, nil
}

func fromGeoJSON(gf *geojson.Feature) Feature {
	f := Feature{
		Geometry:   gf.Geometry,
		Properties: map[string]any{},
	}
	if gf.Geometry != nil {
		f.GeometryType = gf.Geometry.GeoJSONType()
	}

	for k, v := range gf.Properties {
		if k == "colour" {
			if s, ok := v.(string); ok {
				f.Colour = s
				continue
			}
		}
		f.Properties[k] = v
	}

	switch {
	case gf.ID != nil:
		f.ID = fmt.Sprint(gf.ID)
	case gf.Properties["id"] != nil:
		f.ID = fmt.Sprint(gf.Properties["id"])
	}
	return f
}
