package humastar

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-mapbox/internal/templates"
)

func TestRenderList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extra.html")
	require.NoError(t, os.WriteFile(path, []byte(`{{define "strict"}}{{.Name}}{{end}}`), 0o644))
	r, err := templates.New(path)
	require.NoError(t, err)

	type named struct{ Name string }
	html, err := RenderList(r, "strict", []any{named{"a"}, named{"b"}}, "t", "m")
	require.NoError(t, err)
	assert.Equal(t, "ab", html)

	html, err = RenderList(r, "strict", nil, "Nothing", "here")
	require.NoError(t, err)
	assert.Contains(t, html, "Nothing")

	_, err = RenderList(r, "strict", []any{named{"a"}, struct{ Other int }{1}}, "t", "m")
	assert.ErrorContains(t, err, "render strict item 1")

	_, err = RenderList(r, "no-such-template", []any{named{"a"}}, "t", "m")
	assert.Error(t, err)
}
