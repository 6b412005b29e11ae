package humastar

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActionsFor(t *testing.T) {
	defs := []ActionDef{
		{Rel: "toggle", Pattern: "/api/v1/controls/%s/click", Method: "POST", Title: "Toggle %s"},
		{Rel: "self", Pattern: "/api/v1/controls/%s"},
	}

	actions := ActionsFor("3", "food", defs)
	assert.Equal(t, []Action{
		{Rel: "toggle", Href: "/api/v1/controls/3/click", Method: "POST", Title: "Toggle food"},
		{Rel: "self", Href: "/api/v1/controls/3"},
	}, actions)

	assert.Equal(t, `</api/v1/controls/3/click>; rel="toggle"; method="POST"; title="Toggle food"`, actions[0].LinkHeader())
	assert.Equal(t, `</api/v1/controls/3>; rel="self"`, actions[1].LinkHeader())
}

func TestParseLinkHeader(t *testing.T) {
	rel, href := parseLinkHeader(`</api/v1/layers>; rel="layers"`)
	assert.Equal(t, "layers", rel)
	assert.Equal(t, "/api/v1/layers", href)

	rel, _ = parseLinkHeader("garbage")
	assert.Empty(t, rel)
}

func TestLastSegment(t *testing.T) {
	assert.Equal(t, "controls", lastSegment("/api/v1/controls/"))
}
