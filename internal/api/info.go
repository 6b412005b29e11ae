package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
)

// InfoHandler reports how the running map was built.
type InfoHandler struct {
	info InfoBody
}

func NewInfoHandler(info InfoBody) *InfoHandler {
	if info.Features == nil {
		info.Features = []string{}
	}
	return &InfoHandler{info: info}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name          string   `json:"name" doc:"Service name"`
	Version       string   `json:"version" doc:"Service version"`
	Title         string   `json:"title" doc:"Map page title"`
	DataDir       string   `json:"data_dir" doc:"Data directory path"`
	DB            bool     `json:"db" doc:"Whether features were loaded from DuckDB"`
	Features      []string `json:"features" doc:"GeoJSON files the map was built from"`
	FeatureCount  int      `json:"feature_count" doc:"Number of features on the map"`
	LayerProperty string   `json:"layer_property,omitempty" doc:"Feature property layers are grouped by"`
	Indicator     string   `json:"indicator" doc:"Control indicator policy" enum:"last-layer,any-visible"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	return &struct{ Body InfoBody }{Body: h.info}, nil
}
