package appcore

import (
	"log/slog"
	"net/http"

	"github.com/vango-dev/appcore/pkg/assets"
	"github.com/vango-dev/appcore/pkg/dispatch"
	"github.com/vango-dev/appcore/pkg/exchange"
	"github.com/vango-dev/appcore/pkg/page"
	"github.com/vango-dev/appcore/pkg/resource"
	"github.com/vango-dev/appcore/pkg/state"
	"github.com/vango-dev/appcore/pkg/view"
)

// =============================================================================
// Collaborators
// =============================================================================

// StaticFiles serves static assets ahead of dynamic dispatch.
// *static.Server implements it.
type StaticFiles interface {
	// TryServe serves the file for r and reports whether it did.
	TryServe(w http.ResponseWriter, r *http.Request) bool
}

// ScreenResolver produces a fallback view when no handler produced a
// result. *screen.Registry implements it.
type ScreenResolver interface {
	Resolve(x *exchange.Exchange) (any, error)
}

// ResponseWriter is implemented by service results that write their own
// response instead of being encoded as JSON.
type ResponseWriter interface {
	WriteResponse(x *exchange.Exchange) error
}

// =============================================================================
// Configuration
// =============================================================================

// Config configures an App. Every collaborator is optional; New fills in
// defaults.
type Config struct {
	// Dispatcher resolves services, views and events.
	// If nil, a dispatch.Router is created and exposed through App.Router.
	Dispatcher dispatch.Dispatcher

	// Static serves static files. If nil and StaticDir is set, files are
	// served from StaticDir.
	Static StaticFiles

	// StaticDir is a directory of static files.
	StaticDir string

	// Resources loads page templates. If nil and TemplateDir is set,
	// templates are read from TemplateDir.
	Resources resource.Loader

	// TemplateDir is the directory holding page.html and dynamic/*.html.
	TemplateDir string

	// Engine renders templates. Default: view.HTMLEngine.
	Engine view.Engine

	// Assets resolves the "asset" template function of the default
	// engine. Default: names pass through under "/".
	Assets *assets.Resolver

	// Screens resolves generic fallback screens. May be nil.
	Screens ScreenResolver

	// State persists locals between requests.
	// Default: a state.SignedCodec with a random secret, so tokens do not
	// survive restarts and are not shared between instances.
	State state.Codec

	// Layout wraps page content. Default: a page.Layout over Resources
	// and Engine.
	Layout *page.Layout

	// Logger is the structured logger for the application.
	// If nil, slog.Default() is used.
	Logger *slog.Logger

	// Observer receives a report for every request. May be nil.
	Observer Observer

	// DevMode disables template caching and pretty-prints rendered tags.
	DevMode bool

	// MaxBodyBytes limits posted bodies.
	// Default: exchange.DefaultMaxBodyBytes.
	MaxBodyBytes int64
}
