// Package screen resolves fallback views for conventional entity routes
// when no handler produced a result.
//
// The recognised routes are:
//
//	/                      home
//	/new/{type}            new entity form
//	/edit/{type}/{id}      edit an existing entity
//	/view/{type}/{id}      show an existing entity
//	/{type}                list entities ("/users" lists "user")
//
// Entity routes are skipped when the request carries a query string.
package screen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/vango-dev/appcore/pkg/exchange"
)

// ErrNotFound is returned by a Finder when the entity does not exist.
var ErrNotFound = errors.New("screen: entity not found")

// Kind identifies the conventional route a screen was resolved from.
type Kind int

const (
	KindHome Kind = iota
	KindNew
	KindEdit
	KindView
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindHome:
		return "home"
	case KindNew:
		return "new"
	case KindEdit:
		return "edit"
	case KindView:
		return "view"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// Screen describes a resolved conventional route.
type Screen struct {
	Kind   Kind
	Type   string
	ID     string
	Entity any
}

// Factory builds the view object for a screen.
type Factory func(Screen) any

// Finder loads entities for the edit and view screens.
type Finder interface {
	Find(ctx context.Context, typ, id string) (any, error)
}

// FinderFunc adapts a function to the Finder interface.
type FinderFunc func(ctx context.Context, typ, id string) (any, error)

// Find implements Finder.
func (f FinderFunc) Find(ctx context.Context, typ, id string) (any, error) {
	return f(ctx, typ, id)
}

// Registry maps entity type tags to screen factories.
type Registry struct {
	mu     sync.RWMutex
	types  map[string]Factory
	home   Factory
	finder Finder
	routes *chi.Mux
	kinds  map[string]Kind
	logger *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithFinder sets the entity finder. Without one the edit and view
// screens never resolve.
func WithFinder(f Finder) Option {
	return func(r *Registry) { r.finder = f }
}

// WithLogger sets the logger used for finder failures.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

var routeMarker = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		types:  make(map[string]Factory),
		routes: chi.NewRouter(),
		kinds: map[string]Kind{
			"/":                 KindHome,
			"/new/{type}":       KindNew,
			"/edit/{type}/{id}": KindEdit,
			"/view/{type}/{id}": KindView,
			"/{type}":           KindList,
		},
	}
	for pattern := range r.kinds {
		r.routes.Get(pattern, routeMarker)
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Home sets the factory of the home screen.
func (r *Registry) Home(f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.home = f
}

// Register adds an entity type. Type tags are case-insensitive.
func (r *Registry) Register(typ string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[strings.ToLower(typ)] = f
}

// Types returns the number of registered entity types.
func (r *Registry) Types() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types)
}

// Resolve returns the fallback view for the exchange's request, or nil
// when no conventional route applies.
func (r *Registry) Resolve(x *exchange.Exchange) (any, error) {
	return r.ResolvePath(x.Context(), x.Path(), x.HasQuery())
}

// ResolvePath is Resolve for a bare path.
func (r *Registry) ResolvePath(ctx context.Context, path string, hasQuery bool) (any, error) {
	rctx := chi.NewRouteContext()
	pattern := r.routes.Find(rctx, http.MethodGet, path)
	if pattern == "" {
		return nil, nil
	}
	kind := r.kinds[pattern]

	r.mu.RLock()
	home := r.home
	r.mu.RUnlock()

	if kind == KindHome {
		if home == nil {
			return nil, nil
		}
		return home(Screen{Kind: KindHome}), nil
	}
	if hasQuery {
		return nil, nil
	}

	typ := strings.ToLower(rctx.URLParam("type"))
	id := rctx.URLParam("id")

	if kind == KindList {
		if f, ok := r.factory(typ); ok {
			return f(Screen{Kind: KindList, Type: typ}), nil
		}
		singular := strings.TrimSuffix(typ, "s")
		if f, ok := r.factory(singular); ok && singular != typ {
			return f(Screen{Kind: KindList, Type: singular}), nil
		}
		return nil, nil
	}

	f, ok := r.factory(typ)
	if !ok {
		return nil, nil
	}
	if kind == KindNew {
		return f(Screen{Kind: KindNew, Type: typ}), nil
	}

	if r.finder == nil {
		return nil, nil
	}
	entity, err := r.finder.Find(ctx, typ, id)
	if errors.Is(err, ErrNotFound) {
		r.logger.Debug("screen entity not found", "type", typ, "id", id)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("screen: find %s %s: %w", typ, id, err)
	}
	if entity == nil {
		return nil, nil
	}
	return f(Screen{Kind: kind, Type: typ, ID: id, Entity: entity}), nil
}

func (r *Registry) factory(typ string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.types[typ]
	return f, ok
}
