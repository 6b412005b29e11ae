// Package templates renders the map page and the menu fragments.
package templates

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"io"
	"sync"
)

//go:embed page.html fragments.html
var builtin embed.FS

// funcMap provides common template functions.
var funcMap = template.FuncMap{
	// json embeds a value as a JavaScript literal inside <script>
	"json": func(v any) (template.JS, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return template.JS(b), nil
	},
}

// Renderer manages the page template and HTML fragment templates.
type Renderer struct {
	templates *template.Template
	mu        sync.RWMutex
}

// New creates a new template renderer.
// pagePath overrides the built-in "page" template when non-empty; the file
// must define a template named "page".
func New(pagePath string) (*Renderer, error) {
	tmpl, err := parse(pagePath)
	if err != nil {
		return nil, err
	}
	return &Renderer{templates: tmpl}, nil
}

func parse(pagePath string) (*template.Template, error) {
	tmpl, err := template.New("").Funcs(funcMap).ParseFS(builtin, "fragments.html", "page.html")
	if err != nil {
		return nil, err
	}
	if pagePath != "" {
		if tmpl, err = tmpl.ParseFiles(pagePath); err != nil {
			return nil, err
		}
	}
	return tmpl, nil
}

// Render renders a named template to a string.
func (r *Renderer) Render(name string, data any) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToBuffer renders a named template to a buffer.
func (r *Renderer) RenderToBuffer(buf *bytes.Buffer, name string, data any) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.templates.ExecuteTemplate(buf, name, data)
}

// RenderPage writes the full map page.
func (r *Renderer) RenderPage(w io.Writer, data PageData) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.templates.ExecuteTemplate(w, "page", data)
}

// Reload re-parses the templates, picking up edits to a custom page.
func (r *Renderer) Reload(pagePath string) error {
	tmpl, err := parse(pagePath)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.templates = tmpl
	r.mu.Unlock()

	return nil
}
