package humastar

import (
	"fmt"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
)

// Links holds RFC 8288 Link headers generated from an OpenAPI document,
// keyed by operation path. The zero value is ready to use; it emits no
// generated links until Build is called.
type Links struct {
	mu    sync.RWMutex
	byOp  map[string][]string
	entry string
}

// NewLinks returns a link set whose entry point is entry (usually "/health").
func NewLinks(entry string) *Links {
	return &Links{entry: entry}
}

// Build walks the OpenAPI spec and generates hypermedia links.
// Call after all routes are registered. Operations tagged skipTag
// (Datastar SSE endpoints) are left out.
func (l *Links) Build(api huma.API, skipTag string) {
	oapi := api.OpenAPI()
	m := map[string][]string{}
	add := func(from, to, rel string) {
		val := fmt.Sprintf(`<%s>; rel="%s"`, to, rel)
		if !slices.Contains(m[from], val) {
			m[from] = append(m[from], val)
		}
	}

	var collections, items []string
	for p, pi := range oapi.Paths {
		if slices.Contains(primaryTags(pi), skipTag) {
			continue
		}
		if strings.Contains(p, "{") {
			items = append(items, p)
		} else {
			collections = append(collections, p)
		}
	}
	// Map iteration order is random; keep headers stable.
	slices.Sort(collections)
	slices.Sort(items)

	// Item → collection (rel="collection") + up (rel="up")
	for _, item := range items {
		parent := path.Dir(item)
		for parent != "/" {
			if _, ok := oapi.Paths[parent]; ok {
				add(item, parent, "collection")
				add(item, parent, "up")
				break
			}
			parent = path.Dir(parent)
		}
	}

	// Collection → item template (rel="item")
	for _, coll := range collections {
		for _, item := range items {
			if path.Dir(item) == coll {
				add(coll, item, "item")
			}
		}
	}

	// Collections → entry point, entry point → collections
	if l.entry != "" {
		for _, coll := range collections {
			if coll == l.entry {
				continue
			}
			add(coll, l.entry, "up")
			add(l.entry, coll, lastSegment(coll))
		}
		add(l.entry, "/openapi.json", "describedby")
		add(l.entry, "/openapi.json", "service-desc")
		add(l.entry, "/docs", "service-doc")
	}

	// Document the relationships in the OpenAPI document too.
	for p, pi := range oapi.Paths {
		headers, ok := m[p]
		if !ok {
			continue
		}
		for _, op := range operationsOf(pi) {
			if op != nil {
				injectResponseLinks(op, headers)
			}
		}
	}

	l.mu.Lock()
	l.byOp = m
	l.mu.Unlock()
}

// For returns the generated headers for an operation path.
func (l *Links) For(opPath string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.byOp[opPath])
}

// Transformer returns a Huma Transformer that injects the generated links,
// a self link for item endpoints and any actions offered by the body.
func (l *Links) Transformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}

		for _, link := range l.For(op.Path) {
			ctx.AppendHeader("Link", link)
		}

		if strings.Contains(op.Path, "{") {
			ctx.AppendHeader("Link", fmt.Sprintf(`<%s>; rel="self"`, ctx.URL().Path))
		}

		if a, ok := v.(Actor); ok {
			for _, action := range a.Actions() {
				ctx.AppendHeader("Link", action.LinkHeader())
			}
		}

		return v, nil
	}
}

// --- helpers ---

func primaryTags(pi *huma.PathItem) []string {
	for _, op := range operationsOf(pi) {
		if op != nil && len(op.Tags) > 0 {
			return op.Tags
		}
	}
	return nil
}

func operationsOf(pi *huma.PathItem) []*huma.Operation {
	return []*huma.Operation{pi.Get, pi.Post, pi.Put, pi.Patch, pi.Delete}
}

func lastSegment(p string) string {
	parts := strings.Split(strings.TrimRight(p, "/"), "/")
	return parts[len(parts)-1]
}

// injectResponseLinks adds OpenAPI Link objects to the operation's success
// response.
func injectResponseLinks(op *huma.Operation, headers []string) {
	var resp *huma.Response
	for code, r := range op.Responses {
		if strings.HasPrefix(code, "2") {
			resp = r
			break
		}
	}
	if resp == nil {
		return
	}
	if resp.Links == nil {
		resp.Links = map[string]*huma.Link{}
	}
	for _, h := range headers {
		rel, href := parseLinkHeader(h)
		if rel == "" {
			continue
		}
		resp.Links[rel] = &huma.Link{
			OperationRef: href,
			Description:  fmt.Sprintf("Related: %s", rel),
		}
	}
}

func parseLinkHeader(h string) (rel, href string) {
	parts := strings.SplitN(h, ";", 2)
	if len(parts) < 2 {
		return "", ""
	}
	href = strings.Trim(strings.TrimSpace(parts[0]), "<>")
	relPart := strings.TrimSpace(parts[1])
	if strings.HasPrefix(relPart, `rel="`) {
		rel = strings.Trim(relPart[4:], `"`)
	}
	return rel, href
}
