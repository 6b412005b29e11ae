// Package service holds the live map state behind the HTTP API: the built
// style, per-layer visibility and the toggle controls acting on it.
package service

// LayerStatus is a style layer and its current visibility.
type LayerStatus struct {
	ID         string `json:"id" doc:"Layer identifier" example:"food_point"`
	Type       string `json:"type" doc:"Mapbox layer type" enum:"circle,line" example:"circle"`
	Visibility string `json:"visibility" doc:"Layout visibility" enum:"visible,none" example:"visible"`
}

// ControlStatus is one menu control.
type ControlStatus struct {
	Index  int      `json:"index" doc:"Control position in the menu" example:"0"`
	Label  string   `json:"label" doc:"Group prefix or layer ID shown on the control" example:"food"`
	Active bool     `json:"active" doc:"Whether the control is shown as active"`
	Layers []string `json:"layers" doc:"Layer IDs the control toggles"`
}
