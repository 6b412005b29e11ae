// Package humastar bridges Huma (REST/OpenAPI) with Datastar (SSE/hypermedia).
//
// It provides:
//   - SSE: Huma streaming → Datastar SSE protocol via [SSE] and [NewSSE]
//   - Handler: Embeddable base for menu-style SSE handlers via [Handler]
//   - Links: RFC 8288 Link headers via [Links] and [Links.Transformer]
//
// Usage:
//
//	type MenuHandler struct {
//	    humastar.Handler
//	    maps *service.MapService
//	}
//
//	func (h *MenuHandler) Menu(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
//	    return h.Stream(func(sse humastar.SSE) {
//	        html, err := h.RenderList("menu-control", items, "No layers", "Nothing to toggle")
//	        if err != nil {
//	            sse.Error(err.Error())
//	            return
//	        }
//	        sse.Patch(html, "#menu")
//	    }), nil
//	}
package humastar

import (
	"bytes"
	"fmt"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/joeblew999/plat-mapbox/internal/templates"
)

// ---------------------------------------------------------------------------
// Handler: embeddable base for Datastar SSE handlers
// ---------------------------------------------------------------------------

// Handler is an embeddable base for Huma handlers that produce Datastar SSE
// responses. It holds a [templates.Renderer] and provides convenience methods
// to create streams and render templates.
type Handler struct {
	Renderer *templates.Renderer
}

// Stream returns a Huma StreamResponse that calls fn with a ready SSE helper.
func (h *Handler) Stream(fn func(sse SSE)) *huma.StreamResponse {
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			fn(NewSSE(humaCtx))
		},
	}
}

// RenderList renders items with a named template, or an empty state if none.
func (h *Handler) RenderList(tmpl string, items []any, emptyTitle, emptyMsg string) (string, error) {
	return RenderList(h.Renderer, tmpl, items, emptyTitle, emptyMsg)
}

// ---------------------------------------------------------------------------
// SSE: Huma to Datastar bridge
// ---------------------------------------------------------------------------

// SSE wraps a Datastar SSE generator with convenience methods for common
// patterns: inner/outer element patching and error signals.
type SSE struct {
	*datastar.ServerSentEventGenerator
}

// NewSSE creates a Datastar SSE helper from a Huma streaming context.
func NewSSE(ctx huma.Context) SSE {
	r, w := humago.Unwrap(ctx)
	return SSE{datastar.NewSSE(w, r)}
}

// Patch sends HTML to replace inner content at a CSS selector.
func (s SSE) Patch(html, selector string) {
	s.PatchElements(html,
		datastar.WithSelector(selector),
		datastar.WithModeInner(),
	)
}

// Replace replaces outer HTML at a CSS selector.
func (s SSE) Replace(html, selector string) {
	s.PatchElements(html,
		datastar.WithSelector(selector),
		datastar.WithModeOuter(),
	)
}

// Error sends an error signal to the UI.
func (s SSE) Error(msg string) {
	s.MarshalAndPatchSignals(map[string]any{"error": msg})
}

// EmptyInput is a shared input struct for handlers with no parameters.
type EmptyInput struct{}

// RenderList renders items with a named template, or an empty state if none.
// It stops at the first template error.
func RenderList(r *templates.Renderer, tmpl string, items []any, emptyTitle, emptyMsg string) (string, error) {
	var buf bytes.Buffer
	if len(items) == 0 {
		err := r.RenderToBuffer(&buf, "empty-state", map[string]string{
			"Title": emptyTitle, "Message": emptyMsg,
		})
		if err != nil {
			return "", fmt.Errorf("render empty-state: %w", err)
		}
		return buf.String(), nil
	}
	for i, item := range items {
		if err := r.RenderToBuffer(&buf, tmpl, item); err != nil {
			return "", fmt.Errorf("render %s item %d: %w", tmpl, i, err)
		}
	}
	return buf.String(), nil
}
