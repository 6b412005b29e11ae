// Package menu contains the Datastar SSE handlers that drive the live map
// menu.
package menu

import (
	"context"
	"fmt"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-mapbox/internal/humastar"
	"github.com/joeblew999/plat-mapbox/internal/service"
	"github.com/joeblew999/plat-mapbox/internal/templates"
)

// ToggledEvent is the browser event carrying layer visibilities to apply.
const ToggledEvent = "layers-toggled"

// Handler renders the menu controls and applies clicks.
type Handler struct {
	humastar.Handler
	maps   *service.MapService
	bus    *service.EventBus
	logger zerolog.Logger
}

// NewHandler creates a menu handler.
func NewHandler(maps *service.MapService, bus *service.EventBus, renderer *templates.Renderer, logger zerolog.Logger) *Handler {
	return &Handler{
		Handler: humastar.Handler{Renderer: renderer},
		maps:    maps,
		bus:     bus,
		logger:  logger,
	}
}

func (h *Handler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/menu", h.Menu, huma.OperationTags("menu"))
	huma.Post(api, "/api/v1/menu/{index}/click", h.Click, huma.OperationTags("menu"))
	huma.Get(api, "/api/v1/menu/events", h.Events, huma.OperationTags("menu"))
}

// Menu patches #menu with one control per prefix (or layer).
func (h *Handler) Menu(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		h.patchMenu(sse)
	}), nil
}

type ClickInput struct {
	Index int `path:"index" minimum:"0" doc:"Control position in the menu"`
}

// Click toggles the control's layers, replaces the control and tells the
// page which layers changed.
func (h *Handler) Click(ctx context.Context, input *ClickInput) (*huma.StreamResponse, error) {
	res, err := h.maps.Click(input.Index)
	if err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}

	return h.Stream(func(sse humastar.SSE) {
		html, err := h.Renderer.Render("menu-control", res)
		if err != nil {
			h.logger.Error().Err(err).Int("control", res.Index).Msg("render control")
			sse.Error(err.Error())
			return
		}
		sse.Replace(html, fmt.Sprintf("#control-%d", res.Index))
		sse.DispatchCustomEvent(ToggledEvent, map[string]any{
			"index":  res.Index,
			"label":  res.Label,
			"active": res.Active,
			"layers": res.Layers,
		})
	}), nil
}

// Events streams click events from other clients: the menu is re-rendered
// and every layer visibility is re-sent.
func (h *Handler) Events(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			// Subscribe before the SSE headers go out so a client that has
			// seen the response cannot miss an event.
			ch := h.bus.Subscribe()
			defer h.bus.Unsubscribe(ch)
			sse := humastar.NewSSE(humaCtx)

			done := humaCtx.Context().Done()
			for {
				select {
				case <-done:
					return
				case ev, ok := <-ch:
					if !ok {
						return
					}
					if ev.Resource != "controls" {
						continue
					}
					if !h.patchMenu(sse) {
						continue
					}
					sse.DispatchCustomEvent(ToggledEvent, map[string]any{
						"layers": h.maps.Layers(),
					})
				}
			}
		},
	}, nil
}

// patchMenu renders every control into #menu. A render failure is logged
// and reported to the page as an error signal.
func (h *Handler) patchMenu(sse humastar.SSE) bool {
	controls := h.maps.Controls()
	items := make([]any, len(controls))
	for i, c := range controls {
		items[i] = c
	}
	html, err := h.RenderList("menu-control", items, "No layers", "The map has nothing to toggle")
	if err != nil {
		h.logger.Error().Err(err).Msg("render menu")
		sse.Error(err.Error())
		return false
	}
	sse.Patch(html, "#menu")
	return true
}
