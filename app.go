package appcore

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/appcore/pkg/assets"
	"github.com/vango-dev/appcore/pkg/dispatch"
	"github.com/vango-dev/appcore/pkg/exchange"
	"github.com/vango-dev/appcore/pkg/page"
	"github.com/vango-dev/appcore/pkg/render"
	"github.com/vango-dev/appcore/pkg/resource"
	"github.com/vango-dev/appcore/pkg/state"
	"github.com/vango-dev/appcore/pkg/static"
	"github.com/vango-dev/appcore/pkg/view"
)

// =============================================================================
// App Type
// =============================================================================

// App dispatches requests to static files, services, event handlers and
// template-backed pages. It is an http.Handler.
//
//	app := appcore.New(appcore.Config{
//	    TemplateDir: "templates",
//	    StaticDir:   "public",
//	})
//	app.Router().View("/users/{id}", showUser)
//	http.ListenAndServe(":8080", app)
type App struct {
	dispatcher dispatch.Dispatcher
	router     *dispatch.Router
	static     StaticFiles
	screens    ScreenResolver
	codec      state.Codec
	builder    *page.Builder
	layout     *page.Layout
	observer   Observer

	config Config
	logger *slog.Logger
}

// New creates an App, filling in defaults for unset collaborators.
func New(cfg Config) *App {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = exchange.DefaultMaxBodyBytes
	}

	a := &App{
		dispatcher: cfg.Dispatcher,
		screens:    cfg.Screens,
		codec:      cfg.State,
		observer:   cfg.Observer,
		config:     cfg,
		logger:     logger,
	}

	if a.dispatcher == nil {
		a.router = dispatch.NewRouter(dispatch.WithRouterLogger(logger))
		a.dispatcher = a.router
	}

	switch {
	case cfg.Static != nil:
		a.static = cfg.Static
	case cfg.StaticDir != "":
		cache := static.CacheProduction
		if cfg.DevMode {
			cache = static.CacheNone
		}
		if s := static.New(static.Config{Dir: cfg.StaticDir, Cache: cache}); s != nil {
			a.static = s
		}
	}

	resources := cfg.Resources
	if resources == nil && cfg.TemplateDir != "" {
		resources = resource.Dir(cfg.TemplateDir, resource.WithCache(!cfg.DevMode))
	}
	if resources == nil {
		resources = resource.Chain()
	}

	renderer := render.NewRenderer(render.Config{Pretty: cfg.DevMode})
	engine := cfg.Engine
	if engine == nil {
		res := cfg.Assets
		if res == nil {
			res = assets.NewResolver(nil, "/")
		}
		engine = view.NewHTMLEngine(view.WithRenderer(renderer), view.WithFuncs(res.FuncMap()))
	}

	if a.codec == nil {
		a.codec = state.NewSignedCodec(nil)
	}

	a.builder = page.NewBuilder(resources, engine, logger)
	a.layout = cfg.Layout
	if a.layout == nil {
		a.layout = &page.Layout{Resources: resources, Engine: engine, Renderer: renderer}
	}

	return a
}

// Router returns the built-in router, or nil when Config.Dispatcher was
// set.
func (a *App) Router() *dispatch.Router { return a.router }

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// Config returns the configuration the App was created with.
func (a *App) Config() Config { return a.config }

// =============================================================================
// http.Handler Implementation
// =============================================================================

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	x := exchange.New(w, r,
		exchange.WithCodec(a.codec),
		exchange.WithLogger(a.logger),
		exchange.WithMaxBodyBytes(a.config.MaxBodyBytes),
	)

	out, err := a.Dispatch(x)
	if err == nil && out.Kind == OutcomeService {
		if werr := a.writeService(x, out.Value); werr != nil {
			err = a.fail(x, StageWrite, werr)
		}
	}

	status := x.Status()
	if err != nil {
		status = a.writeError(x, err)
	}

	report := Report{
		Method:           r.Method,
		Path:             r.URL.Path,
		Outcome:          out.Kind,
		Status:           status,
		Duration:         time.Since(start),
		ValidationErrors: len(x.Errors()),
		Err:              err,
	}
	if ev := x.Event(); ev != nil {
		report.Event = ev.Name
	}
	a.annotate(r, report)
	if a.observer != nil {
		a.observer.Observe(report)
	}
}

func (a *App) writeService(x *exchange.Exchange, v any) error {
	if rw, ok := v.(ResponseWriter); ok {
		return rw.WriteResponse(x)
	}
	return x.WriteJSON(v)
}

// writeError answers a failed request. Internal failures are logged and
// get a generic body.
func (a *App) writeError(x *exchange.Exchange, err error) int {
	status := StatusOf(err)
	switch {
	case status >= http.StatusInternalServerError:
		a.logger.Error("request failed", "method", x.Request().Method, "path", x.Path(), "error", err)
	case status == http.StatusNotFound:
		a.logger.Debug("no handler or page", "path", x.Path())
	default:
		a.logger.Warn("bad request", "method", x.Request().Method, "path", x.Path(), "error", err)
	}

	if x.Written() {
		return x.Status()
	}
	x.MarkWritten()
	http.Error(x.ResponseWriter(), http.StatusText(status), status)
	return status
}

// annotate records the outcome on the active span.
func (a *App) annotate(r *http.Request, report Report) {
	span := trace.SpanFromContext(r.Context())
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(
		attribute.String("appcore.outcome", report.Outcome.String()),
		attribute.Int("appcore.validation_errors", report.ValidationErrors),
	)
	if report.Event != "" {
		span.SetAttributes(attribute.String("appcore.event", report.Event))
	}
	if report.Err != nil {
		span.RecordError(report.Err)
		if report.Status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, report.Err.Error())
		}
	}
}
