package humastar

import (
	"fmt"
	"strings"
)

// ActionDef is a reusable action template.
// Pattern uses a single %s verb for the resource ID.
type ActionDef struct {
	Rel     string // e.g. "toggle"
	Pattern string // e.g. "/api/v1/controls/%s/click"
	Method  string
	Title   string // may contain a %s verb for the resource label
}

// ActionsFor generates concrete actions from defs for one resource.
// label fills the title verb and id fills the pattern verb.
func ActionsFor(id, label string, defs []ActionDef) []Action {
	actions := make([]Action, len(defs))
	for i, d := range defs {
		title := d.Title
		if strings.Contains(title, "%s") {
			title = fmt.Sprintf(d.Title, label)
		}
		actions[i] = Action{
			Rel:    d.Rel,
			Href:   fmt.Sprintf(d.Pattern, id),
			Method: d.Method,
			Title:  title,
		}
	}
	return actions
}
