// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"errors"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-mapbox/internal/humastar"
	"github.com/joeblew999/plat-mapbox/internal/mapbox"
	"github.com/joeblew999/plat-mapbox/internal/service"
	"github.com/joeblew999/plat-mapbox/internal/toggle"
)

// Services holds the service dependencies for API handlers.
type Services struct {
	Map *service.MapService
}

// Types

type IndexInput struct {
	Index int `path:"index" minimum:"0" doc:"Control position in the menu" example:"0"`
}

// controlActions are offered on every control.
var controlActions = []humastar.ActionDef{
	{Rel: "toggle", Pattern: "/api/v1/controls/%s/click", Method: "POST", Title: "Toggle %s"},
}

// ControlBody is a control with its click action advertised as a Link header.
type ControlBody struct {
	service.ControlStatus
}

func (c ControlBody) Actions() []humastar.Action {
	return humastar.ActionsFor(strconv.Itoa(c.Index), c.Label, controlActions)
}

type ControlOutput struct {
	Body ControlBody
}

type ControlsOutput struct {
	Body []service.ControlStatus
}

type LayersOutput struct {
	Body []service.LayerStatus
}

type StyleBody struct {
	SourceName    string         `json:"source_name" doc:"GeoJSON source name" example:"all_data"`
	Source        mapbox.Source  `json:"source" doc:"GeoJSON source holding every feature"`
	Layers        []mapbox.Layer `json:"layers" doc:"Mapbox style layers with current visibility"`
	LayerProperty string         `json:"layer_property,omitempty" doc:"Feature property layers are grouped by"`
	Prefixes      []string       `json:"prefixes" doc:"Group prefixes, one menu control each"`
}

type StyleOutput struct {
	Body StyleBody
}

type ClickOutput struct {
	Body toggle.Result
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterStyle registers the style route.
func (h *APIHandler) RegisterStyle(api huma.API) {
	huma.Get(api, "/api/v1/style", h.GetStyle, huma.OperationTags("style"))
}

// RegisterLayers registers layer listing routes.
func (h *APIHandler) RegisterLayers(api huma.API) {
	huma.Get(api, "/api/v1/layers", h.GetLayers, huma.OperationTags("layers"))
}

// RegisterControls registers menu control routes.
func (h *APIHandler) RegisterControls(api huma.API) {
	huma.Get(api, "/api/v1/controls", h.GetControls, huma.OperationTags("controls"))
	huma.Get(api, "/api/v1/controls/{index}", h.GetControl, huma.OperationTags("controls"))
	huma.Register(api, huma.Operation{
		OperationID: "click-control",
		Method:      "POST",
		Path:        "/api/v1/controls/{index}/click",
		Summary:     "Click control",
		Description: "Flips the visibility of every layer the control owns and updates its active state.",
		Tags:        []string{"controls"},
	}, h.ClickControl)
}

// RegisterRoutes registers every REST route.
func RegisterRoutes(api huma.API, svc *Services) {
	huma.AutoRegister(api, NewAPIHandler(svc))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: "1.0.0"}}, nil
}

func (h *APIHandler) GetStyle(ctx context.Context, input *struct{}) (*StyleOutput, error) {
	if h.svc == nil || h.svc.Map == nil {
		return nil, huma.Error503ServiceUnavailable("map not loaded")
	}
	style := h.svc.Map.Style()
	prefixes := style.Prefixes
	if prefixes == nil {
		prefixes = []string{}
	}
	return &StyleOutput{Body: StyleBody{
		SourceName:    style.SourceName,
		Source:        style.Source,
		Layers:        style.Layers,
		LayerProperty: style.LayerProperty,
		Prefixes:      prefixes,
	}}, nil
}

func (h *APIHandler) GetLayers(ctx context.Context, input *struct{}) (*LayersOutput, error) {
	if h.svc == nil || h.svc.Map == nil {
		return &LayersOutput{Body: []service.LayerStatus{}}, nil
	}
	return &LayersOutput{Body: h.svc.Map.Layers()}, nil
}

func (h *APIHandler) GetControls(ctx context.Context, input *struct{}) (*ControlsOutput, error) {
	if h.svc == nil || h.svc.Map == nil {
		return &ControlsOutput{Body: []service.ControlStatus{}}, nil
	}
	return &ControlsOutput{Body: h.svc.Map.Controls()}, nil
}

func (h *APIHandler) GetControl(ctx context.Context, input *IndexInput) (*ControlOutput, error) {
	if h.svc == nil || h.svc.Map == nil {
		return nil, huma.Error404NotFound("map not loaded")
	}
	c, err := h.svc.Map.Control(input.Index)
	if err != nil {
		return nil, controlError(err)
	}
	return &ControlOutput{Body: ControlBody{c}}, nil
}

func (h *APIHandler) ClickControl(ctx context.Context, input *IndexInput) (*ClickOutput, error) {
	if h.svc == nil || h.svc.Map == nil {
		return nil, huma.Error404NotFound("map not loaded")
	}
	res, err := h.svc.Map.Click(input.Index)
	if err != nil {
		return nil, controlError(err)
	}
	if res.Layers == nil {
		res.Layers = []toggle.LayerState{}
	}
	return &ClickOutput{Body: res}, nil
}

func controlError(err error) error {
	if errors.Is(err, service.ErrControlNotFound) {
		return huma.Error404NotFound(err.Error())
	}
	return huma.Error500InternalServerError("control failed", err)
}
