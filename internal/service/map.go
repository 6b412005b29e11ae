package service

import (
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-mapbox/internal/mapbox"
	"github.com/joeblew999/plat-mapbox/internal/toggle"
)

// ErrControlNotFound is returned for a control index outside the menu.
var ErrControlNotFound = errors.New("control not found")

// MapService serves one built style. HTTP handlers run concurrently, so
// every click is serialised here before it reaches the controller.
type MapService struct {
	style  *mapbox.Style
	store  *VisibilityStore
	ctrl   *toggle.Controller
	bus    *EventBus
	logger zerolog.Logger
	mu     sync.Mutex
}

// NewMapService wires a controller over store for style. Grouped styles
// get one control per prefix, ungrouped styles one control per layer.
func NewMapService(style *mapbox.Style, store *VisibilityStore, bus *EventBus, logger zerolog.Logger, policy toggle.IndicatorPolicy) *MapService {
	opts := []toggle.Option{
		toggle.WithLogger(logger.With().Str("component", "toggle").Logger()),
		toggle.WithIndicatorPolicy(policy),
	}

	var ctrl *toggle.Controller
	if style.Grouped() {
		ctrl = toggle.New(store, style.LayerIDs, style.Prefixes, opts...)
	} else {
		ctrl = toggle.NewPerLayer(store, style.LayerIDs, opts...)
	}
	// The store may hold visibility from a previous run.
	ctrl.Sync()

	return &MapService{
		style:  style,
		store:  store,
		ctrl:   ctrl,
		bus:    bus,
		logger: logger,
	}
}

// Style returns the style with each layer's layout visibility taken from
// the store.
func (s *MapService) Style() *mapbox.Style {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := *s.style
	out.Layers = make([]mapbox.Layer, len(s.style.Layers))
	for i, l := range s.style.Layers {
		l.Layout = maps.Clone(l.Layout)
		if l.Layout == nil {
			l.Layout = map[string]any{}
		}
		l.Layout["visibility"] = string(s.store.Visibility(l.ID))
		out.Layers[i] = l
	}
	return &out
}

// Layers returns every layer with its current visibility.
func (s *MapService) Layers() []LayerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]LayerStatus, 0, len(s.style.Layers))
	for _, l := range s.style.Layers {
		out = append(out, LayerStatus{
			ID:         l.ID,
			Type:       l.Type,
			Visibility: string(s.store.Visibility(l.ID)),
		})
	}
	return out
}

// Controls returns the menu controls in order.
func (s *MapService) Controls() []ControlStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	controls := s.ctrl.Controls()
	out := make([]ControlStatus, 0, len(controls))
	for _, c := range controls {
		out = append(out, controlStatus(c))
	}
	return out
}

// Control returns a single control.
func (s *MapService) Control(index int) (ControlStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.ctrl.Control(index)
	if !ok {
		return ControlStatus{}, fmt.Errorf("%w: %d", ErrControlNotFound, index)
	}
	return controlStatus(c), nil
}

// Click activates the control at index.
func (s *MapService) Click(index int) (toggle.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.ctrl.Control(index)
	if !ok {
		return toggle.Result{}, fmt.Errorf("%w: %d", ErrControlNotFound, index)
	}

	res := c.Click()
	s.logger.Info().
		Int("control", res.Index).
		Str("label", res.Label).
		Bool("active", res.Active).
		Int("layers", len(res.Layers)).
		Msg("control clicked")

	value := ""
	if res.Active {
		value = "active"
	}
	s.bus.Publish(Event{Resource: "controls", Action: "clicked", ID: res.Label, Value: value})
	return res, nil
}

func controlStatus(c *toggle.Control) ControlStatus {
	layers := c.Layers()
	if layers == nil {
		layers = []string{}
	}
	return ControlStatus{
		Index:  c.Index,
		Label:  c.Label,
		Active: c.Active(),
		Layers: layers,
	}
}
