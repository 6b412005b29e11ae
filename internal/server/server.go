// Package server wires the map services, the REST API and the live page
// into one http.Handler.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-mapbox/internal/api"
	"github.com/joeblew999/plat-mapbox/internal/api/menu"
	"github.com/joeblew999/plat-mapbox/internal/config"
	"github.com/joeblew999/plat-mapbox/internal/db"
	"github.com/joeblew999/plat-mapbox/internal/humastar"
	"github.com/joeblew999/plat-mapbox/internal/mapbox"
	"github.com/joeblew999/plat-mapbox/internal/service"
	"github.com/joeblew999/plat-mapbox/internal/templates"
)

// Config holds the server configuration.
type Config struct {
	Host    string
	Port    string
	DataDir string // visibility state and the duckdb database live here
	Page    *config.Config
	Logger  zerolog.Logger
	// ReloadTemplates re-reads the page template on every /map request.
	ReloadTemplates bool
}

// Server is the map HTTP server.
type Server struct {
	config   Config
	mux      *http.ServeMux
	humaAPI  huma.API
	links    *humastar.Links
	db       *sql.DB
	services *api.Services
	bus      *service.EventBus
	renderer *templates.Renderer
	built    *Built
	token    string
	logger   zerolog.Logger
}

// New builds the style described by cfg.Page and creates the server.
func New(ctx context.Context, cfg Config) (*Server, error) {
	if cfg.Page == nil {
		cfg.Page = config.DefaultConfig()
	}
	built, err := BuildStyle(ctx, cfg.Page, cfg.DataDir, cfg.Logger)
	if err != nil {
		return nil, err
	}
	return assemble(cfg, built)
}

// ForSpec creates a server over an empty map, enough to describe the API.
func ForSpec(cfg Config) (*Server, error) {
	if cfg.Page == nil {
		cfg.Page = config.DefaultConfig()
	}
	style, err := mapbox.NewBuilder().Build(mapbox.BuildOptions{})
	if err != nil {
		return nil, err
	}
	return assemble(cfg, &Built{Style: style})
}

func assemble(cfg Config, built *Built) (*Server, error) {
	logger := cfg.Logger

	renderer, err := templates.New(cfg.Page.Template)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	token, err := AccessToken(cfg.Page)
	if err != nil {
		logger.Warn().Err(err).Msg("map page will not load tiles")
	}

	bus := service.NewEventBus()
	store := service.NewVisibilityStore(cfg.DataDir, bus, logger.With().Str("component", "store").Logger())
	if err := store.Prune(built.Style.LayerIDs); err != nil {
		logger.Warn().Err(err).Msg("prune visibility state")
	}
	services := &api.Services{
		Map: service.NewMapService(built.Style, store, bus, logger, built.Policy),
	}

	mux := http.NewServeMux()
	links := humastar.NewLinks("/health")

	// Create Huma API with humago (pure stdlib) adapter
	humaConfig := huma.DefaultConfig("plat-mapbox API", "1.0.0")
	humaConfig.Info.Description = "Mapbox map with layer group toggle controls."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, links.Transformer())

	s := &Server{
		config:   cfg,
		mux:      mux,
		humaAPI:  humago.New(mux, humaConfig),
		links:    links,
		services: services,
		bus:      bus,
		renderer: renderer,
		built:    built,
		db:       built.DB,
		token:    token,
		logger:   logger,
	}

	s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Close closes server resources.
func (s *Server) Close() error {
	return db.Close()
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

func (s *Server) routes() {
	// Huma REST API routes (OpenAPI-documented JSON endpoints)
	api.RegisterRoutes(s.humaAPI, s.services)
	api.NewInfoHandler(api.InfoBody{
		Name:          "plat-mapbox",
		Version:       "0.1.0",
		Title:         s.config.Page.Title,
		DataDir:       s.config.DataDir,
		DB:            s.db != nil,
		Features:      s.config.Page.Features,
		FeatureCount:  s.built.Features,
		LayerProperty: s.built.Style.LayerProperty,
		Indicator:     s.config.Page.Layers.Indicator,
	}).RegisterRoutes(s.humaAPI)
	api.NewDBHandler(s.db).RegisterRoutes(s.humaAPI)

	// Datastar SSE menu
	menu.NewHandler(s.services.Map, s.bus, s.renderer, s.logger.With().Str("component", "menu").Logger()).
		RegisterRoutes(s.humaAPI)

	s.links.Build(s.humaAPI, "menu")

	// Page routes
	s.mux.HandleFunc("GET /map", s.handleMap)
	s.mux.HandleFunc("GET /{$}", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/map", http.StatusFound)
}

// handleMap serves the live page: the menu is driven over SSE and layers
// start with the visibility the server holds.
func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	if s.config.ReloadTemplates {
		if err := s.renderer.Reload(s.config.Page.Template); err != nil {
			s.logger.Error().Err(err).Str("template", s.config.Page.Template).Msg("reload template")
			http.Error(w, "failed to load template", http.StatusInternalServerError)
			return
		}
	}
	data, err := NewPageData(s.config.Page, s.token, s.services.Map.Style(), s.built.Policy)
	if err != nil {
		s.logger.Error().Err(err).Msg("page data")
		http.Error(w, "failed to build page", http.StatusInternalServerError)
		return
	}
	data.Live = true

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.renderer.RenderPage(w, data); err != nil {
		s.logger.Error().Err(err).Msg("render page")
	}
}
