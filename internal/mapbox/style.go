package mapbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"
)

// SourceName is the ID of the single GeoJSON source every layer draws from.
const SourceName = "all_data"

// DefaultMaxLayers caps the number of layers a page can hold.
const DefaultMaxLayers = 200

var (
	ErrTooManyLayers     = errors.New("too many layers")
	ErrInvalidGroupValue = errors.New("group property value must be a string, number or bool")
)

// kindFilter is the Mapbox filter selecting one geometry kind.
func kindFilter(k Kind) []any {
	return []any{"==", "$type", string(k)}
}

// kindStyle is the layer type and paint for one geometry kind.
func kindStyle(k Kind) (string, map[string]any) {
	switch k {
	case KindLineString:
		return "line", map[string]any{
			"line-color":   []any{"get", "colour"},
			"line-width":   1,
			"line-opacity": 0.5,
		}
	default:
		return "circle", map[string]any{
			"circle-color": []any{"get", "colour"},
			"circle-radius": []any{"case",
				[]any{"has", "circle-radius"},
				[]any{"get", "circle-radius"},
				3,
			},
		}
	}
}

// Source is a Mapbox GeoJSON source.
type Source struct {
	Type string                     `json:"type"`
	Data *geojson.FeatureCollection `json:"data"`
}

// Layer is a Mapbox style layer.
type Layer struct {
	ID     string         `json:"id"`
	Type   string         `json:"type"`
	Source string         `json:"source"`
	Paint  map[string]any `json:"paint"`
	Layout map[string]any `json:"layout"`
	Filter []any          `json:"filter,omitempty"`
}

// Style is the built source, its layers and the toggle groups.
type Style struct {
	SourceName    string   `json:"sourceName"`
	Source        Source   `json:"source"`
	Layers        []Layer  `json:"layers"`
	LayerIDs      []string `json:"layerIds"`
	LayerProperty string   `json:"layerProperty,omitempty"`
	Prefixes      []string `json:"prefixes"`
}

// Grouped reports whether the layers are toggled by property-value prefix
// rather than one control per layer.
func (s *Style) Grouped() bool {
	return len(s.Prefixes) > 0
}

// Bounds returns the extent of every feature in the source. ok is false
// for an empty source.
func (s *Style) Bounds() (b orb.Bound, ok bool) {
	if s.Source.Data == nil {
		return b, false
	}
	for _, f := range s.Source.Data.Features {
		if f.Geometry == nil {
			continue
		}
		if !ok {
			b, ok = f.Geometry.Bound(), true
			continue
		}
		b = b.Union(f.Geometry.Bound())
	}
	return b, ok
}

// SourceJSON returns the source as JSON for embedding in a page.
func (s *Style) SourceJSON() ([]byte, error) {
	return json.Marshal(s.Source)
}

// LayersJSON returns the layers as JSON for embedding in a page.
func (s *Style) LayersJSON() ([]byte, error) {
	return json.Marshal(s.Layers)
}

// PropertyGroup is a distinct property value and the kinds carrying it.
type PropertyGroup struct {
	Value  string `json:"value"`
	Values []any  `json:"values"`
	Kinds  []Kind `json:"kinds"`
}

// Option configures a Builder.
type Option func(*Builder)

// WithMaxLayers overrides DefaultMaxLayers. Non-positive values are ignored.
func WithMaxLayers(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.maxLayers = n
		}
	}
}

// WithLogger sets the builder's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// Builder accumulates features and builds a Style from them.
type Builder struct {
	features  []Feature
	kinds     []Kind
	maxLayers int
	logger    zerolog.Logger
}

// NewBuilder creates an empty builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		maxLayers: DefaultMaxLayers,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// AddFeature validates and records a feature.
func (b *Builder) AddFeature(f Feature) error {
	if err := f.Validate(); err != nil {
		return err
	}
	k, _ := f.Kind()
	b.features = append(b.features, f)
	b.kinds = append(b.kinds, k)
	return nil
}

// AddFeatures records features in order, stopping at the first invalid one.
func (b *Builder) AddFeatures(fs ...Feature) error {
	for i, f := range fs {
		if err := b.AddFeature(f); err != nil {
			return fmt.Errorf("feature %d: %w", i, err)
		}
	}
	return nil
}

// Features returns the recorded features as GeoJSON.
func (b *Builder) Features() []*geojson.Feature {
	out := make([]*geojson.Feature, 0, len(b.features))
	for _, f := range b.features {
		out = append(out, f.GeoJSON())
	}
	return out
}

// Len returns the number of recorded features.
func (b *Builder) Len() int {
	return len(b.features)
}

// PropertyTypes groups features by the value of property. Groups are
// keyed by the value's string form and kept in first-seen order; features
// where the property is absent or empty are skipped. Values holds the
// distinct raw values of a group (1 and "1" share the group "1"), and each
// group's kinds are sorted and unique.
func (b *Builder) PropertyTypes(property string) ([]PropertyGroup, error) {
	var groups []PropertyGroup
	index := map[string]int{}
	for i, f := range b.features {
		v, ok := f.Properties[property]
		if !ok || isEmptyValue(v) {
			continue
		}
		switch v.(type) {
		case string, bool, float64, float32, int, int64:
		default:
			return nil, fmt.Errorf("feature %q: %w: %s=%v (%T)", f.ID, ErrInvalidGroupValue, property, v, v)
		}
		value := fmt.Sprint(v)
		gi, seen := index[value]
		if !seen {
			gi = len(groups)
			index[value] = gi
			groups = append(groups, PropertyGroup{Value: value})
		}
		if !slices.Contains(groups[gi].Values, v) {
			groups[gi].Values = append(groups[gi].Values, v)
		}
		groups[gi].Kinds = append(groups[gi].Kinds, b.kinds[i])
	}
	for i := range groups {
		groups[i].Kinds = uniqueKinds(groups[i].Kinds)
	}
	return groups, nil
}

// filter matches the group's raw values; Mapbox compares them type-strictly.
func (g PropertyGroup) filter(property string) []any {
	if len(g.Values) == 1 {
		return []any{"==", property, g.Values[0]}
	}
	return append([]any{"in", property}, g.Values...)
}

func isEmptyValue(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case bool:
		return !x
	case float64:
		return x == 0
	case int:
		return x == 0
	}
	return false
}

func uniqueKinds(ks []Kind) []Kind {
	out := slices.Clone(ks)
	slices.Sort(out)
	return slices.Compact(out)
}

// BuildOptions selects how layers are split.
type BuildOptions struct {
	// LayerProperty groups layers by this feature property. Empty means
	// one layer per geometry kind.
	LayerProperty string
	// Filters are extra Mapbox filter expressions ANDed into every layer.
	// A single flat expression (first element not a list) is accepted too.
	Filters []any
}

// Build creates the source and layers for the recorded features.
func (b *Builder) Build(opts BuildOptions) (*Style, error) {
	filters := normalizeFilters(opts.Filters)
	if len(filters) > 0 {
		b.logger.Warn().Msg("properties in filters must be present on every feature")
	}

	fc := geojson.NewFeatureCollection()
	fc.Features = b.Features()

	style := &Style{
		SourceName:    SourceName,
		Source:        Source{Type: "geojson", Data: fc},
		LayerProperty: opts.LayerProperty,
	}

	if opts.LayerProperty != "" {
		groups, err := b.PropertyTypes(opts.LayerProperty)
		if err != nil {
			return nil, err
		}
		for _, g := range groups {
			style.Prefixes = append(style.Prefixes, g.Value)
			for _, k := range g.Kinds {
				filter := append([]any{"all",
					g.filter(opts.LayerProperty),
					kindFilter(k),
				}, filters...)
				style.addLayer(g.Value+"_"+strings.ToLower(string(k)), k, filter)
			}
		}
	} else {
		for _, k := range uniqueKinds(b.kinds) {
			filter := append([]any{"all", kindFilter(k)}, filters...)
			style.addLayer(string(k)+"_layer", k, filter)
		}
	}

	if len(style.Layers) > b.maxLayers {
		return nil, fmt.Errorf("%w: %d layers, limit %d", ErrTooManyLayers, len(style.Layers), b.maxLayers)
	}

	b.logger.Debug().
		Int("features", len(b.features)).
		Strs("layers", style.LayerIDs).
		Strs("prefixes", style.Prefixes).
		Msg("style built")
	return style, nil
}

func (s *Style) addLayer(id string, k Kind, filter []any) {
	typ, paint := kindStyle(k)
	s.Layers = append(s.Layers, Layer{
		ID:     id,
		Type:   typ,
		Source: s.SourceName,
		Paint:  paint,
		Layout: map[string]any{"visibility": "visible"},
		Filter: filter,
	})
	s.LayerIDs = append(s.LayerIDs, id)
}

func normalizeFilters(filters []any) []any {
	if len(filters) == 0 {
		return nil
	}
	if _, ok := filters[0].([]any); !ok {
		return []any{filters}
	}
	return filters
}
