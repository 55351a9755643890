// Package view renders page templates.
package view

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/vango-dev/appcore/pkg/render"
)

// Engine renders a template source against a model and a result value.
// Implementations must be safe for concurrent use.
type Engine interface {
	Render(ctx context.Context, source string, model map[string]any, result any) (string, error)
}

// EngineFunc adapts a function to the Engine interface.
type EngineFunc func(ctx context.Context, source string, model map[string]any, result any) (string, error)

// Render implements Engine.
func (f EngineFunc) Render(ctx context.Context, source string, model map[string]any, result any) (string, error) {
	return f(ctx, source, model, result)
}

// DefaultCacheSize is the number of parsed templates HTMLEngine keeps.
const DefaultCacheSize = 256

// HTMLEngine renders html/template sources. The model is the template's
// dot. Parsed templates are cached by a hash of their source.
//
// Besides the standard functions, templates can call:
//
//	render  - renders tag nodes (or any content) to HTML
//	result  - returns the handler result
//	raw     - marks a trusted string as HTML
//	json    - encodes a value as JSON text
type HTMLEngine struct {
	renderer *render.Renderer
	funcs    template.FuncMap
	size     int

	mu    sync.RWMutex
	cache map[uint64]*cached
}

type cached struct {
	source string
	tmpl   *template.Template
}

// Option configures an HTMLEngine.
type Option func(*HTMLEngine)

// WithFuncs adds template functions.
func WithFuncs(funcs template.FuncMap) Option {
	return func(e *HTMLEngine) {
		for k, v := range funcs {
			e.funcs[k] = v
		}
	}
}

// WithRenderer sets the renderer used by the render function.
func WithRenderer(r *render.Renderer) Option {
	return func(e *HTMLEngine) { e.renderer = r }
}

// WithCacheSize bounds the number of cached templates. Zero disables
// caching.
func WithCacheSize(n int) Option {
	return func(e *HTMLEngine) { e.size = n }
}

// NewHTMLEngine creates an engine.
func NewHTMLEngine(opts ...Option) *HTMLEngine {
	e := &HTMLEngine{
		renderer: render.NewRenderer(render.Config{}),
		funcs:    template.FuncMap{},
		size:     DefaultCacheSize,
		cache:    make(map[uint64]*cached),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Render implements Engine.
func (e *HTMLEngine) Render(ctx context.Context, source string, model map[string]any, result any) (string, error) {
	base, err := e.parse(source)
	if err != nil {
		return "", err
	}

	tmpl, err := base.Clone()
	if err != nil {
		return "", fmt.Errorf("view: clone template: %w", err)
	}
	tmpl.Funcs(template.FuncMap{
		"result": func() any { return result },
	})

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, model); err != nil {
		return "", fmt.Errorf("view: execute: %w", err)
	}
	return buf.String(), nil
}

// Check parses source without executing it.
func (e *HTMLEngine) Check(source string) error {
	_, err := e.parse(source)
	return err
}

// CacheLen returns the number of cached templates.
func (e *HTMLEngine) CacheLen() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.cache)
}

func (e *HTMLEngine) parse(source string) (*template.Template, error) {
	key := xxhash.Sum64String(source)

	e.mu.RLock()
	c, ok := e.cache[key]
	e.mu.RUnlock()
	if ok && c.source == source {
		return c.tmpl, nil
	}

	tmpl, err := template.New("page").Funcs(e.builtins()).Parse(source)
	if err != nil {
		return nil, fmt.Errorf("view: parse: %w", err)
	}

	if e.size > 0 {
		e.mu.Lock()
		if len(e.cache) >= e.size {
			e.cache = make(map[uint64]*cached)
		}
		e.cache[key] = &cached{source: source, tmpl: tmpl}
		e.mu.Unlock()
	}
	return tmpl, nil
}

func (e *HTMLEngine) builtins() template.FuncMap {
	funcs := template.FuncMap{
		"render": func(content any) (template.HTML, error) {
			html, err := e.renderer.RenderToString(content)
			return template.HTML(html), err
		},
		"result": func() any { return nil },
		"raw":    func(s string) template.HTML { return template.HTML(s) },
		"json": func(v any) (string, error) {
			data, err := json.Marshal(v)
			return string(data), err
		},
	}
	for k, v := range e.funcs {
		funcs[k] = v
	}
	return funcs
}
