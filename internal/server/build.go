package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-mapbox/internal/config"
	"github.com/joeblew999/plat-mapbox/internal/db"
	"github.com/joeblew999/plat-mapbox/internal/mapbox"
	"github.com/joeblew999/plat-mapbox/internal/templates"
	"github.com/joeblew999/plat-mapbox/internal/toggle"
)

// ErrNoFeatures is returned when the page config names no feature source.
var ErrNoFeatures = errors.New("no features configured: set features or query.sql")

// Built is a style together with what it was built from.
type Built struct {
	Style    *mapbox.Style
	Features int
	DB       *sql.DB // set when features came from a query
	Policy   toggle.IndicatorPolicy
}

// BuildStyle loads every configured feature source and builds the style.
func BuildStyle(ctx context.Context, page *config.Config, dataDir string, logger zerolog.Logger) (*Built, error) {
	if len(page.Features) == 0 && page.Query.SQL == "" {
		return nil, ErrNoFeatures
	}
	policy, err := config.ParseIndicator(page.Layers.Indicator)
	if err != nil {
		return nil, err
	}

	b := mapbox.NewBuilder(
		mapbox.WithMaxLayers(page.Layers.MaxLayers),
		mapbox.WithLogger(logger.With().Str("component", "builder").Logger()),
	)

	for _, path := range page.Features {
		features, err := mapbox.LoadGeoJSONFile(path)
		if err != nil {
			return nil, err
		}
		if err := b.AddFeatures(features...); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		logger.Info().Str("file", path).Int("features", len(features)).Msg("loaded features")
	}

	var conn *sql.DB
	if page.Query.SQL != "" {
		dir := page.Query.DataDir
		if dir == "" {
			dir = dataDir
		}
		conn, err = db.Get(db.Config{
			DataDir:    dir,
			DBName:     "features",
			Extensions: []string{"spatial"},
			Logger:     logger.With().Str("component", "duckdb").Logger(),
		})
		if err != nil {
			return nil, err
		}
		features, err := db.LoadFeatures(ctx, conn, page.Query.SQL)
		if err != nil {
			return nil, err
		}
		if err := b.AddFeatures(features...); err != nil {
			return nil, fmt.Errorf("query: %w", err)
		}
		logger.Info().Int("features", len(features)).Msg("loaded features from duckdb")
	}

	style, err := b.Build(mapbox.BuildOptions{
		LayerProperty: page.Layers.Property,
		Filters:       page.Layers.Filters,
	})
	if err != nil {
		return nil, err
	}
	logger.Info().
		Int("layers", len(style.Layers)).
		Int("groups", len(style.Prefixes)).
		Msg("built style")

	return &Built{Style: style, Features: b.Len(), DB: conn, Policy: policy}, nil
}

// AccessToken returns the configured token, reading the token file when
// none is set inline.
func AccessToken(page *config.Config) (string, error) {
	if page.Mapbox.AccessToken != "" {
		return page.Mapbox.AccessToken, nil
	}
	return templates.ReadAccessToken(page.Mapbox.AccessTokenPath)
}

// NewPageData assembles template data for style under page.
func NewPageData(page *config.Config, token string, style *mapbox.Style, policy toggle.IndicatorPolicy) (templates.PageData, error) {
	view := templates.View{
		StyleURL: page.Mapbox.StyleURL,
		Center:   page.Mapbox.Center,
		Zoom:     page.Mapbox.Zoom,
	}
	if page.Mapbox.FitBounds {
		if b, ok := style.Bounds(); ok {
			view.Bounds = [][2]float64{{b.Min.Lon(), b.Min.Lat()}, {b.Max.Lon(), b.Max.Lat()}}
		}
	}
	data, err := templates.NewPageData(page.Title, token, view, style)
	if err != nil {
		return data, err
	}
	data.AnyVisible = policy == toggle.IndicatorAnyVisible
	return data, nil
}
