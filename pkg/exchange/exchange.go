package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/vango-dev/appcore/pkg/state"
)

// DefaultMaxBodyBytes bounds the size of posted forms.
const DefaultMaxBodyBytes = 1 << 20

// Kind classifies the request method.
type Kind uint8

const (
	KindGet Kind = iota
	KindPost
	KindOther
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindGet:
		return "GET"
	case KindPost:
		return "POST"
	default:
		return "OTHER"
	}
}

// Exchange is the mutable context of one request.
type Exchange struct {
	w http.ResponseWriter
	r *http.Request

	query  url.Values
	posted url.Values
	params map[string]string

	locals   state.Locals
	errors   []FieldError
	redirect string
	event    *Event

	codec   state.Codec
	logger  *slog.Logger
	maxBody int64

	status      int
	contentType string
	written     bool
}

// Option configures an Exchange.
type Option func(*Exchange)

// WithCodec sets the codec used by LoadState and SerializeLocals.
func WithCodec(c state.Codec) Option {
	return func(x *Exchange) { x.codec = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(x *Exchange) { x.logger = l }
}

// WithMaxBodyBytes limits the size of posted bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(x *Exchange) { x.maxBody = n }
}

// New creates the exchange for r and parses its query and posted form.
// A body that cannot be parsed is logged and treated as empty.
func New(w http.ResponseWriter, r *http.Request, opts ...Option) *Exchange {
	x := &Exchange{
		w:       w,
		r:       r,
		params:  make(map[string]string),
		locals:  make(state.Locals),
		maxBody: DefaultMaxBodyBytes,
		status:  http.StatusOK,
	}
	for _, opt := range opts {
		opt(x)
	}
	if x.logger == nil {
		x.logger = slog.Default()
	}

	x.query = r.URL.Query()
	x.posted = url.Values{}

	if r.Method == http.MethodPost && r.Body != nil {
		r.Body = http.MaxBytesReader(w, r.Body, x.maxBody)
		var err error
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			err = r.ParseMultipartForm(x.maxBody)
		} else {
			err = r.ParseForm()
		}
		if err != nil {
			x.logger.Warn("failed to parse request body", "path", r.URL.Path, "error", err)
		}
		if r.PostForm != nil {
			x.posted = r.PostForm
		}
	}
	return x
}

// =============================================================================
// Request info
// =============================================================================

// Request returns the underlying request.
func (x *Exchange) Request() *http.Request { return x.r }

// Context returns the request context.
func (x *Exchange) Context() context.Context { return x.r.Context() }

// Logger returns the request logger.
func (x *Exchange) Logger() *slog.Logger { return x.logger }

// Kind classifies the request method. HEAD is not GET here; static serving
// checks for it separately.
func (x *Exchange) Kind() Kind {
	switch x.r.Method {
	case http.MethodGet:
		return KindGet
	case http.MethodPost:
		return KindPost
	default:
		return KindOther
	}
}

func (x *Exchange) IsGet() bool  { return x.Kind() == KindGet }
func (x *Exchange) IsPost() bool { return x.Kind() == KindPost }

// Path returns the URL path.
func (x *Exchange) Path() string { return x.r.URL.Path }

// ResourceName returns the path without surrounding slashes and without a
// trailing ".html". The root path is "index".
func (x *Exchange) ResourceName() string {
	return ResourceName(x.r.URL.Path)
}

// ResourceName derives a resource name from a URL path.
func ResourceName(path string) string {
	name := strings.Trim(path, "/")
	name = strings.TrimSuffix(name, ".html")
	if name == "" {
		return "index"
	}
	return name
}

// Query returns a query parameter.
func (x *Exchange) Query(key string) string { return x.query.Get(key) }

// QueryValues returns a copy of the query parameters.
func (x *Exchange) QueryValues() url.Values { return cloneValues(x.query) }

// HasQuery reports whether the request has any query parameters.
func (x *Exchange) HasQuery() bool { return len(x.query) > 0 }

// Posted returns a posted form field.
func (x *Exchange) Posted(key string) string { return x.posted.Get(key) }

// PostedValues returns a copy of the posted form fields.
func (x *Exchange) PostedValues() url.Values { return cloneValues(x.posted) }

func (x *Exchange) lookupPosted(key string) (string, bool) {
	vs, ok := x.posted[key]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// Param looks a parameter up in the path parameters, then the posted
// fields, then the query.
func (x *Exchange) Param(key string) string {
	v, _ := x.LookupParam(key)
	return v
}

// LookupParam is like Param but reports whether the parameter exists.
func (x *Exchange) LookupParam(key string) (string, bool) {
	if v, ok := x.params[key]; ok {
		return v, true
	}
	if v, ok := x.lookupPosted(key); ok {
		return v, true
	}
	if vs, ok := x.query[key]; ok && len(vs) > 0 {
		return vs[0], true
	}
	return "", false
}

// SetPathParams records parameters extracted from the route pattern.
func (x *Exchange) SetPathParams(params map[string]string) {
	for k, v := range params {
		x.params[k] = v
	}
}

// PathParams returns a copy of the path parameters.
func (x *Exchange) PathParams() map[string]string {
	out := make(map[string]string, len(x.params))
	for k, v := range x.params {
		out[k] = v
	}
	return out
}

// =============================================================================
// Locals
// =============================================================================

// Locals returns a copy of the UI locals.
func (x *Exchange) Locals() state.Locals { return x.locals.Clone() }

// Local returns one local value (null if absent).
func (x *Exchange) Local(key string) state.Value { return x.locals[key] }

// SetLocal stores v under key, coerced to a serializable Value.
func (x *Exchange) SetLocal(key string, v any) { x.locals[key] = state.ValueOf(v) }

// DeleteLocal removes a local.
func (x *Exchange) DeleteLocal(key string) { delete(x.locals, key) }

// Var returns a two-way variable backed by the local named key.
func (x *Exchange) Var(key string) *LocalVar {
	return &LocalVar{x: x, key: key}
}

// LocalVar is a variable stored in the exchange locals.
// It satisfies tag.Var.
type LocalVar struct {
	x   *Exchange
	key string
}

// Get returns the plain Go form of the local.
func (v *LocalVar) Get() any { return v.x.locals[v.key].Interface() }

// Set stores value in the local.
func (v *LocalVar) Set(value any) { v.x.SetLocal(v.key, value) }

// Key returns the name of the backing local.
func (v *LocalVar) Key() string { return v.key }

// LoadState decodes the _state token of the request and merges it into
// the locals. A missing token is a no-op; an unreadable one is logged and
// the request continues with fresh state.
func (x *Exchange) LoadState(ctx context.Context) {
	if x.codec == nil {
		return
	}
	token := x.Param(FieldState)
	if token == "" {
		return
	}
	locals, err := x.codec.Decode(ctx, token)
	if err != nil {
		level := slog.LevelWarn
		if errors.Is(err, state.ErrExpired) {
			level = slog.LevelDebug
		}
		x.logger.Log(ctx, level, "discarding client state", "path", x.Path(), "error", err)
		return
	}
	x.locals.Merge(locals)
}

// SerializeLocals encodes the locals for the client. Without a codec it
// returns the plain JSON of the locals.
func (x *Exchange) SerializeLocals(ctx context.Context) (string, error) {
	if x.codec == nil {
		data, err := json.Marshal(map[string]state.Value(x.locals))
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	return x.codec.Encode(ctx, x.locals)
}

// =============================================================================
// Errors and redirect
// =============================================================================

// AddError records a validation or binding error.
func (x *Exchange) AddError(field, message string) {
	x.errors = append(x.errors, FieldError{Field: field, Message: message})
}

// Errors returns a copy of the recorded errors in the order they were
// added.
func (x *Exchange) Errors() []FieldError {
	out := make([]FieldError, len(x.errors))
	copy(out, x.errors)
	return out
}

// HasErrors reports whether any error was recorded.
func (x *Exchange) HasErrors() bool { return len(x.errors) > 0 }

// Redirect asks the client to navigate to url.
func (x *Exchange) Redirect(url string) { x.redirect = url }

// RedirectURL returns the requested redirect target, or "".
func (x *Exchange) RedirectURL() string { return x.redirect }

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}
