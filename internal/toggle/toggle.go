// Package toggle groups map layers behind menu controls and flips their
// visibility together.
//
// A control owns a label. Clicking it resolves the label against the full
// layer list (prefix match for group controls, exact match for per-layer
// controls) and flips the visibility of every layer it resolves to on the
// injected Map.
package toggle

import (
	"slices"
	"strings"

	"github.com/rs/zerolog"
)

// Visibility is the layout visibility of a single map layer.
type Visibility string

const (
	Visible Visibility = "visible"
	None    Visibility = "none"
)

// Flip returns none for visible and visible for anything else.
func (v Visibility) Flip() Visibility {
	if v == Visible {
		return None
	}
	return Visible
}

// Map is the live map handle a Controller reads and writes.
// The map owns the visibility state; the controller never caches it.
type Map interface {
	Visibility(layerID string) Visibility
	SetVisibility(layerID string, v Visibility)
}

// IndicatorPolicy decides how a control's active flag follows its layers.
type IndicatorPolicy int

const (
	// IndicatorLastLayer mirrors the new visibility of the last layer
	// processed in a click.
	IndicatorLastLayer IndicatorPolicy = iota
	// IndicatorAnyVisible marks the control active when any of its layers
	// is visible after the click.
	IndicatorAnyVisible
)

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the sink for the click trace.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithIndicatorPolicy overrides the default IndicatorLastLayer policy.
func WithIndicatorPolicy(p IndicatorPolicy) Option {
	return func(c *Controller) { c.policy = p }
}

type resolveFunc func(label string, layerIDs []string) []string

// Controller owns one Control per group and the map they act on.
type Controller struct {
	m        Map
	layerIDs []string
	controls []*Control
	logger   zerolog.Logger
	policy   IndicatorPolicy
}

// New builds one prefix control per entry of prefixes, in order.
// Duplicate prefixes produce duplicate controls.
func New(m Map, layerIDs, prefixes []string, opts ...Option) *Controller {
	c := newController(m, layerIDs, opts)
	for _, p := range prefixes {
		c.add(p, FindPrefixedLayers)
	}
	return c
}

// NewPerLayer builds one control per layer ID, each governing exactly that
// layer. It is used when the map was built without a grouping property.
func NewPerLayer(m Map, layerIDs []string, opts ...Option) *Controller {
	c := newController(m, layerIDs, opts)
	for _, id := range c.layerIDs {
		c.add(id, findExactLayer)
	}
	return c
}

func newController(m Map, layerIDs []string, opts []Option) *Controller {
	c := &Controller{
		m:        m,
		layerIDs: slices.Clone(layerIDs),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) add(label string, resolve resolveFunc) {
	c.controls = append(c.controls, &Control{
		Index:   len(c.controls),
		Label:   label,
		active:  true,
		resolve: resolve,
		ctrl:    c,
	})
}

// Controls returns the controls in creation order.
func (c *Controller) Controls() []*Control {
	return slices.Clone(c.controls)
}

// Control returns the control at index i.
func (c *Controller) Control(i int) (*Control, bool) {
	if i < 0 || i >= len(c.controls) {
		return nil, false
	}
	return c.controls[i], true
}

// LayerIDs returns every layer ID the controller knows about.
func (c *Controller) LayerIDs() []string {
	return slices.Clone(c.layerIDs)
}

// Sync sets every control's active flag from the layers' current
// visibility on the map, using the controller's indicator policy. Call it
// when the map may already hold state, e.g. restored after a restart.
// Controls that resolve to no layers keep their flag.
func (c *Controller) Sync() {
	for _, ctl := range c.controls {
		layers := ctl.Layers()
		if len(layers) == 0 {
			continue
		}
		anyVisible := false
		for _, id := range layers {
			anyVisible = anyVisible || c.m.Visibility(id) == Visible
		}
		ctl.active = c.m.Visibility(layers[len(layers)-1]) == Visible
		if c.policy == IndicatorAnyVisible {
			ctl.active = anyVisible
		}
	}
}

// FindPrefixedLayers returns the layer IDs that start with prefix, keeping
// their relative order. The match is a literal, case-sensitive prefix test.
func FindPrefixedLayers(prefix string, layerIDs []string) []string {
	var out []string
	for _, id := range layerIDs {
		if strings.HasPrefix(id, prefix) {
			out = append(out, id)
		}
	}
	return out
}

func findExactLayer(label string, layerIDs []string) []string {
	var out []string
	for _, id := range layerIDs {
		if id == label {
			out = append(out, id)
		}
	}
	return out
}

// Control is one menu entry. Its label is fixed at construction so each
// click handler resolves its own group.
type Control struct {
	Index int
	Label string

	active  bool
	resolve resolveFunc
	ctrl    *Controller
}

// Active reports the presentation state of the control.
func (c *Control) Active() bool {
	return c.active
}

// Layers resolves the control's label against the controller's layers.
func (c *Control) Layers() []string {
	return c.resolve(c.Label, c.ctrl.layerIDs)
}

// LayerState is the visibility a layer was left with by a click.
type LayerState struct {
	ID         string     `json:"id"`
	Visibility Visibility `json:"visibility"`
}

// Result describes the outcome of one click.
type Result struct {
	Index  int          `json:"index"`
	Label  string       `json:"label"`
	Active bool         `json:"active"`
	Layers []LayerState `json:"layers"`
}

// Click flips the visibility of every layer the control resolves to.
//
// Under IndicatorLastLayer the active flag is rewritten after each layer,
// so a group with mixed visibility ends up reflecting the last layer only.
// A control that resolves to no layers leaves the map untouched and just
// flips its active flag.
func (c *Control) Click() Result {
	log := c.ctrl.logger
	layers := c.Layers()
	log.Debug().Str("control", c.Label).Strs("layers", layers).Msg("resolved layers")

	res := Result{Index: c.Index, Label: c.Label, Layers: make([]LayerState, 0, len(layers))}
	if len(layers) == 0 {
		c.active = !c.active
		res.Active = c.active
		return res
	}

	anyVisible := false
	for _, id := range layers {
		log.Debug().Str("control", c.Label).Str("layer", id).Msg("toggling layer")
		next := c.ctrl.m.Visibility(id).Flip()
		c.ctrl.m.SetVisibility(id, next)
		c.active = next == Visible
		anyVisible = anyVisible || c.active
		res.Layers = append(res.Layers, LayerState{ID: id, Visibility: next})
	}
	if c.ctrl.policy == IndicatorAnyVisible {
		c.active = anyVisible
	}

	res.Active = c.active
	return res
}
