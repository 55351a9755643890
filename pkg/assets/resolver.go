package assets

import (
	"html/template"
	"strings"
)

// Resolver turns source asset names into URL paths under a prefix.
type Resolver struct {
	manifest *Manifest
	prefix   string
}

// NewResolver creates a resolver. A nil manifest passes names through
// unchanged, which suits development where files are not fingerprinted.
func NewResolver(m *Manifest, prefix string) *Resolver {
	return &Resolver{manifest: m, prefix: strings.TrimSuffix(prefix, "/") + "/"}
}

// Asset returns the URL path of source.
func (r *Resolver) Asset(source string) string {
	source = strings.TrimPrefix(source, "/")
	if r.manifest != nil {
		if resolved, ok := r.manifest.Lookup(source); ok {
			source = resolved
		}
	}
	return r.prefix + source
}

// FuncMap exposes Asset to templates as "asset".
func (r *Resolver) FuncMap() template.FuncMap {
	return template.FuncMap{"asset": r.Asset}
}
