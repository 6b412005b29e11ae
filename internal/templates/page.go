package templates

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"github.com/joeblew999/plat-mapbox/internal/mapbox"
)

// ErrNoAccessToken is returned when neither the token file nor the
// environment provide a Mapbox access token.
var ErrNoAccessToken = errors.New("no mapbox access token")

// TokenEnv is the environment variable consulted when no token file exists.
const TokenEnv = "MAPBOX_ACCESS_TOKEN"

// View is the initial camera and basemap of the page.
type View struct {
	StyleURL string
	Center   []float64 // lon, lat
	Zoom     float64
	Bounds   [][2]float64 // [[west, south], [east, north]]; overrides center and zoom
}

// PageData is everything the page template needs.
type PageData struct {
	Title       string
	AccessToken string
	View        View
	SourceName  string
	Source      template.JS
	Layers      template.JS
	LayerIDs    []string
	Prefixes    []string
	Grouped     bool
	AnyVisible  bool // indicator reflects any visible layer instead of the last one
	Live        bool // menu is driven by the server over SSE
}

// NewPageData marshals style into page data.
func NewPageData(title, token string, view View, style *mapbox.Style) (PageData, error) {
	src, err := style.SourceJSON()
	if err != nil {
		return PageData{}, fmt.Errorf("marshal source: %w", err)
	}
	layers, err := style.LayersJSON()
	if err != nil {
		return PageData{}, fmt.Errorf("marshal layers: %w", err)
	}

	layerIDs := style.LayerIDs
	if layerIDs == nil {
		layerIDs = []string{}
	}
	prefixes := style.Prefixes
	if prefixes == nil {
		prefixes = []string{}
	}

	return PageData{
		Title:       title,
		AccessToken: token,
		View:        view,
		SourceName:  style.SourceName,
		Source:      template.JS(src),
		Layers:      template.JS(layers),
		LayerIDs:    layerIDs,
		Prefixes:    prefixes,
		Grouped:     style.Grouped(),
	}, nil
}

// ReadAccessToken returns the first line of the token file, falling back to
// MAPBOX_ACCESS_TOKEN when the file does not exist.
func ReadAccessToken(path string) (string, error) {
	if path != "" {
		f, err := os.Open(path)
		switch {
		case err == nil:
			defer f.Close()
			sc := bufio.NewScanner(f)
			if sc.Scan() {
				if tok := strings.TrimSpace(sc.Text()); tok != "" {
					return tok, nil
				}
			}
			if err := sc.Err(); err != nil {
				return "", fmt.Errorf("reading access token: %w", err)
			}
		case !os.IsNotExist(err):
			return "", fmt.Errorf("opening access token: %w", err)
		}
	}

	if tok := strings.TrimSpace(os.Getenv(TokenEnv)); tok != "" {
		return tok, nil
	}
	return "", ErrNoAccessToken
}

// WritePage renders the page and writes it to path, creating parent dirs.
func (r *Renderer) WritePage(path string, data PageData) error {
	var buf bytes.Buffer
	if err := r.RenderPage(&buf, data); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write page: %w", err)
	}
	return nil
}
