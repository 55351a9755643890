package dispatch

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/vango-dev/appcore/pkg/exchange"
)

// ServiceFunc handles an API request. Its return value is written as the
// response without page rendering.
type ServiceFunc func(req *Request) (any, error)

// ViewFunc produces the view model for a page.
type ViewFunc func(req *Request) (any, error)

// EventFunc handles a client event on a page. Validation problems are
// recorded on the exchange; a returned error is a dispatch failure.
type EventFunc func(req *Request, ev *exchange.Event) error

// Router is a Dispatcher matching request paths with chi patterns.
//
// In PhaseEvent only the event handler for the path and event name runs.
// In PhasePrimary services are tried before views and event handlers
// never run.
type Router struct {
	mu sync.RWMutex

	services *chi.Mux
	views    *chi.Mux
	events   *chi.Mux

	serviceFuncs map[string]ServiceFunc
	viewFuncs    map[string]ViewFunc
	eventFuncs   map[string]map[string]EventFunc

	logger *slog.Logger
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithRouterLogger sets the logger used for recovered panics.
func WithRouterLogger(l *slog.Logger) RouterOption {
	return func(r *Router) { r.logger = l }
}

// NewRouter creates an empty router.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{
		services:     chi.NewRouter(),
		views:        chi.NewRouter(),
		events:       chi.NewRouter(),
		serviceFuncs: make(map[string]ServiceFunc),
		viewFuncs:    make(map[string]ViewFunc),
		eventFuncs:   make(map[string]map[string]EventFunc),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// routeMarker is registered with chi; matching only needs the pattern.
var routeMarker = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})

// Service registers an API handler for method and pattern.
func (r *Router) Service(method, pattern string, fn ServiceFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services.Method(method, pattern, routeMarker)
	r.serviceFuncs[method+" "+pattern] = fn
}

// View registers the view handler for pattern.
func (r *Router) View(pattern string, fn ViewFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views.Method(http.MethodGet, pattern, routeMarker)
	r.viewFuncs[pattern] = fn
}

// On registers an event handler for the named event on pages matching
// pattern.
func (r *Router) On(pattern, event string, fn EventFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.eventFuncs[pattern]; !ok {
		r.events.Method(http.MethodPost, pattern, routeMarker)
		r.eventFuncs[pattern] = make(map[string]EventFunc)
	}
	r.eventFuncs[pattern][event] = fn
}

// Dispatch implements Dispatcher.
func (r *Router) Dispatch(req *Request) Result {
	r.mu.RLock()
	defer r.mu.RUnlock()

	switch req.Phase {
	case PhaseEvent:
		return r.dispatchEvent(req)
	default:
		return r.dispatchPrimary(req)
	}
}

func (r *Router) dispatchPrimary(req *Request) Result {
	x := req.Exchange
	method, path := x.Request().Method, x.Path()

	if pattern, params, ok := find(r.services, method, path); ok {
		fn := r.serviceFuncs[method+" "+pattern]
		req.setParams(params)
		v, err := r.call(req, pattern, func() (any, error) { return fn(req) })
		if err != nil {
			return Failed(err)
		}
		return Service(v)
	}

	if method != http.MethodGet && method != http.MethodPost {
		return NotFound()
	}
	return r.resolveView(req)
}

func (r *Router) dispatchEvent(req *Request) Result {
	x := req.Exchange
	ev := x.Event()
	if ev == nil {
		return Failed(r.wrap(req, "", ErrNoEvent))
	}

	pattern, params, ok := find(r.events, http.MethodPost, x.Path())
	if !ok {
		return NotFound()
	}
	fn, ok := r.eventFuncs[pattern][ev.Name]
	if !ok {
		return NotFound()
	}

	req.setParams(params)
	_, err := r.call(req, ev.Name, func() (any, error) { return nil, fn(req, ev) })
	if err != nil {
		return Failed(err)
	}
	// The view is resolved once, by the primary phase.
	return View(nil)
}

func (r *Router) resolveView(req *Request) Result {
	pattern, params, ok := find(r.views, http.MethodGet, req.Exchange.Path())
	if !ok {
		return NotFound()
	}
	fn := r.viewFuncs[pattern]
	req.setParams(params)
	v, err := r.call(req, pattern, func() (any, error) { return fn(req) })
	if err != nil {
		return Failed(err)
	}
	return View(v)
}

// call runs a handler with panic recovery and wraps failures in a
// DispatchError.
func (r *Router) call(req *Request, handler string, fn func() (any, error)) (v any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			stack := make([]byte, 4096)
			n := runtime.Stack(stack, false)
			r.logger.Error("handler panic",
				"path", req.Exchange.Path(),
				"handler", handler,
				"panic", rec,
				"stack", string(stack[:n]))
			v, err = nil, r.wrap(req, handler, fmt.Errorf("%w: %v", ErrPanic, rec))
		}
	}()

	v, err = fn()
	if err != nil {
		return nil, r.wrap(req, handler, err)
	}
	return v, nil
}

func (r *Router) wrap(req *Request, handler string, err error) error {
	return &DispatchError{
		Method:  req.Exchange.Request().Method,
		Path:    req.Exchange.Path(),
		Phase:   req.Phase,
		Handler: handler,
		Err:     err,
	}
}

func (req *Request) setParams(params map[string]string) {
	if req.Params == nil {
		req.Params = make(map[string]string, len(params))
	}
	for k, v := range params {
		req.Params[k] = v
	}
	req.Exchange.SetPathParams(params)
}

// find matches path against mux and returns the route pattern and its
// URL parameters.
func find(mux *chi.Mux, method, path string) (string, map[string]string, bool) {
	rctx := chi.NewRouteContext()
	pattern := mux.Find(rctx, method, path)
	if pattern == "" {
		return "", nil, false
	}
	params := make(map[string]string, len(rctx.URLParams.Keys))
	for i, key := range rctx.URLParams.Keys {
		if key == "*" {
			continue
		}
		params[key] = rctx.URLParams.Values[i]
	}
	return pattern, params, true
}
