package appcore

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/vango-dev/appcore/pkg/assets"
	"github.com/vango-dev/appcore/pkg/dispatch"
	"github.com/vango-dev/appcore/pkg/exchange"
	"github.com/vango-dev/appcore/pkg/resource"
	"github.com/vango-dev/appcore/pkg/state"
	"github.com/vango-dev/appcore/pkg/view"
)

var testSecret = []byte("test-secret")

type countingEngine struct {
	mu    sync.Mutex
	calls int
	next  view.Engine
}

func (e *countingEngine) Render(ctx context.Context, source string, model map[string]any, result any) (string, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	return e.next.Render(ctx, source, model, result)
}

type recordingObserver struct {
	mu      sync.Mutex
	reports []Report
}

func (o *recordingObserver) Observe(r Report) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reports = append(o.reports, r)
}

func (o *recordingObserver) last(t *testing.T) Report {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.reports) == 0 {
		t.Fatal("no report observed")
	}
	return o.reports[len(o.reports)-1]
}

type testApp struct {
	*App
	engine   *countingEngine
	observer *recordingObserver
}

func newTestApp(t *testing.T, cfg Config) *testApp {
	t.Helper()
	engine := &countingEngine{next: view.NewHTMLEngine()}
	observer := &recordingObserver{}
	if cfg.Resources == nil {
		cfg.Resources = resource.NewFSLoader(fstest.MapFS{
			"dynamic/users.html": {Data: []byte("<!-- -navbar -->\n<p>{{result}}</p>")},
			"dynamic/about.html": {Data: []byte("<p>about us</p>")},
		})
	}
	cfg.Engine = engine
	cfg.Observer = observer
	if cfg.State == nil {
		cfg.State = state.NewSignedCodec(testSecret)
	}
	return &testApp{App: New(cfg), engine: engine, observer: observer}
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func post(t *testing.T, h http.Handler, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return m
}

func eventForm(event, inputs string) url.Values {
	return url.Values{
		exchange.FieldEvent:  {event},
		exchange.FieldInputs: {inputs},
	}
}

// =============================================================================
// Primary dispatch
// =============================================================================

func TestServiceSkipsRendering(t *testing.T) {
	app := newTestApp(t, Config{})
	app.Router().Service(http.MethodGet, "/api/users/{id}", func(req *dispatch.Request) (any, error) {
		return map[string]string{"id": req.Param("id")}, nil
	})

	rec := get(t, app, "/api/users/42")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decode(t, rec)["id"]; got != "42" {
		t.Errorf("id = %v", got)
	}
	if ct := rec.Header().Get("Content-Type"); ct != exchange.ContentTypeJSON {
		t.Errorf("Content-Type = %q", ct)
	}
	if app.engine.calls != 0 {
		t.Errorf("engine called %d times for a service", app.engine.calls)
	}
	if r := app.observer.last(t); r.Outcome != OutcomeService || r.Failure() != "" {
		t.Errorf("report = %+v", r)
	}
}

type selfWriting struct{}

func (selfWriting) WriteResponse(x *exchange.Exchange) error {
	x.StartResponse(http.StatusAccepted)
	return x.WriteHTML("queued")
}

func TestServiceResponseWriter(t *testing.T) {
	app := newTestApp(t, Config{})
	app.Router().Service(http.MethodPost, "/jobs", func(*dispatch.Request) (any, error) {
		return selfWriting{}, nil
	})

	rec := post(t, app, "/jobs", url.Values{})
	if rec.Code != http.StatusAccepted || rec.Body.String() != "queued" {
		t.Errorf("response = %d %q", rec.Code, rec.Body.String())
	}
}

func TestTemplatePage(t *testing.T) {
	app := newTestApp(t, Config{})
	app.Router().View("/users", func(*dispatch.Request) (any, error) { return "alice", nil })

	rec := get(t, app, "/users")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<main><p>alice</p></main>") {
		t.Errorf("page missing content:\n%s", body)
	}
	if strings.Contains(body, "<nav>") {
		t.Errorf("-navbar directive ignored:\n%s", body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != exchange.ContentTypeHTML {
		t.Errorf("Content-Type = %q", ct)
	}
	if r := app.observer.last(t); r.Outcome != OutcomePage {
		t.Errorf("outcome = %v", r.Outcome)
	}
}

func TestTemplateWithoutHandler(t *testing.T) {
	app := newTestApp(t, Config{})

	rec := get(t, app, "/about.html")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<p>about us</p>") {
		t.Errorf("response = %d %q", rec.Code, rec.Body.String())
	}
}

func TestMinimalPage(t *testing.T) {
	app := newTestApp(t, Config{})
	app.Router().View("/hello", func(*dispatch.Request) (any, error) { return "hi <you>", nil })

	rec := get(t, app, "/hello")
	body := rec.Body.String()
	if !strings.Contains(body, "<main>hi &lt;you&gt;</main>") || !strings.Contains(body, "<nav>") {
		t.Errorf("minimal page:\n%s", body)
	}

	rec = get(t, app, "/hello?embedded")
	if rec.Body.String() != "hi &lt;you&gt;" {
		t.Errorf("embedded page = %q", rec.Body.String())
	}
}

func TestNotFound(t *testing.T) {
	app := newTestApp(t, Config{})

	rec := get(t, app, "/missing")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	r := app.observer.last(t)
	if !errors.Is(r.Err, ErrNotFound) || r.Failure() != "not_found" {
		t.Errorf("report = %+v", r)
	}
}

func TestDispatchFailure(t *testing.T) {
	app := newTestApp(t, Config{})
	app.Router().View("/boom", func(*dispatch.Request) (any, error) {
		return nil, errors.New("database password is hunter2")
	})

	rec := get(t, app, "/boom")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "hunter2") {
		t.Error("internal error leaked into the response")
	}

	r := app.observer.last(t)
	var de *dispatch.DispatchError
	if !errors.As(r.Err, &de) {
		t.Fatalf("error %v does not wrap a DispatchError", r.Err)
	}
	var pe *PipelineError
	if !errors.As(r.Err, &pe) || pe.Stage != StageService || pe.Path != "/boom" {
		t.Errorf("pipeline error = %+v", pe)
	}
}

type forbidden struct{}

func (forbidden) Error() string   { return "forbidden" }
func (forbidden) StatusCode() int { return http.StatusForbidden }

func TestErrorStatusCode(t *testing.T) {
	app := newTestApp(t, Config{})
	app.Router().View("/admin", func(*dispatch.Request) (any, error) { return nil, forbidden{} })

	if rec := get(t, app, "/admin"); rec.Code != http.StatusForbidden {
		t.Errorf("status = %d", rec.Code)
	}
}

type staticFunc func(w http.ResponseWriter, r *http.Request) bool

func (f staticFunc) TryServe(w http.ResponseWriter, r *http.Request) bool { return f(w, r) }

func TestStaticShortCircuit(t *testing.T) {
	dispatched := false
	app := newTestApp(t, Config{
		Dispatcher: dispatch.Func(func(*dispatch.Request) dispatch.Result {
			dispatched = true
			return dispatch.NotFound()
		}),
		Static: staticFunc(func(w http.ResponseWriter, r *http.Request) bool {
			if r.URL.Path != "/app.css" {
				return false
			}
			w.Write([]byte("body{}"))
			return true
		}),
	})

	rec := get(t, app, "/app.css")
	if rec.Body.String() != "body{}" || dispatched {
		t.Errorf("static not served first: %q dispatched=%v", rec.Body.String(), dispatched)
	}
	if r := app.observer.last(t); r.Outcome != OutcomeStatic {
		t.Errorf("outcome = %v", r.Outcome)
	}

	// POST never reaches the static server.
	post(t, app, "/app.css", url.Values{})
	if !dispatched {
		t.Error("POST should be dispatched")
	}
}

type screenFunc func(x *exchange.Exchange) (any, error)

func (f screenFunc) Resolve(x *exchange.Exchange) (any, error) { return f(x) }

func TestScreenFallback(t *testing.T) {
	app := newTestApp(t, Config{
		Screens: screenFunc(func(x *exchange.Exchange) (any, error) {
			if x.Path() == "/orders" {
				return "order list", nil
			}
			return nil, nil
		}),
	})

	rec := get(t, app, "/orders")
	if !strings.Contains(rec.Body.String(), "<main>order list</main>") {
		t.Errorf("fallback page:\n%s", rec.Body.String())
	}
	if rec := get(t, app, "/nothing"); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}

// =============================================================================
// Events
// =============================================================================

func TestEventPartial(t *testing.T) {
	app := newTestApp(t, Config{})
	r := app.Router()
	r.View("/form", func(req *dispatch.Request) (any, error) {
		return "saved=" + req.Exchange.Local("saved").String(), nil
	})
	r.On("/form", "save", func(req *dispatch.Request, ev *exchange.Event) error {
		if req.Exchange.Local("name").String() != "bob" {
			t.Errorf("input not in locals")
		}
		req.Exchange.SetLocal("saved", true)
		return nil
	})

	rec := post(t, app, "/form", eventForm("save", `{"name":"bob"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	m := decode(t, rec)
	sel, ok := m[KeySelector].(map[string]any)
	if !ok || sel["body"] != "saved=true" {
		t.Errorf("%s = %v", KeySelector, m[KeySelector])
	}

	token, _ := m[KeyState].(string)
	locals, err := state.NewSignedCodec(testSecret).Decode(context.Background(), token)
	if err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if locals["name"].String() != "bob" || !locals["saved"].Truthy() {
		t.Errorf("locals = %v", locals)
	}

	report := app.observer.last(t)
	if report.Outcome != OutcomePartial || report.Event != "save" {
		t.Errorf("report = %+v", report)
	}
}

func TestEventStateRoundTrip(t *testing.T) {
	app := newTestApp(t, Config{})
	r := app.Router()
	r.View("/counter", func(req *dispatch.Request) (any, error) {
		return req.Exchange.Local("count").String(), nil
	})
	r.On("/counter", "inc", func(req *dispatch.Request, _ *exchange.Event) error {
		n, _ := req.Exchange.Local("count").Num()
		req.Exchange.SetLocal("count", n+1)
		return nil
	})

	var token string
	for i := 1; i <= 3; i++ {
		form := eventForm("inc", `{}`)
		if token != "" {
			form.Set(exchange.FieldState, token)
		}
		m := decode(t, post(t, app, "/counter", form))
		token, _ = m[KeyState].(string)
		body := m[KeySelector].(map[string]any)["body"]
		if want := strconv.Itoa(i); body != want {
			t.Errorf("step %d: body = %v, want %s", i, body, want)
		}
	}
}

func TestEventErrorsShortCircuit(t *testing.T) {
	var phases []dispatch.Phase
	app := newTestApp(t, Config{
		Dispatcher: dispatch.Func(func(req *dispatch.Request) dispatch.Result {
			phases = append(phases, req.Phase)
			if req.Phase == dispatch.PhaseEvent {
				req.Exchange.AddError("name", "required")
			}
			return dispatch.View("page")
		}),
	})

	rec := post(t, app, "/form", eventForm("save", `{"name":""}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	errs, ok := decode(t, rec)[KeyErrors].([]any)
	if !ok || len(errs) != 1 {
		t.Fatalf("errors = %v", decode(t, rec))
	}
	first := errs[0].(map[string]any)
	if first["field"] != "name" || first["message"] != "required" {
		t.Errorf("error = %v", first)
	}
	if len(phases) != 1 || phases[0] != dispatch.PhaseEvent {
		t.Errorf("phases = %v, want only the event phase", phases)
	}
	if app.engine.calls != 0 {
		t.Error("page rendered despite errors")
	}
	if r := app.observer.last(t); r.Outcome != OutcomeErrors || r.ValidationErrors != 1 {
		t.Errorf("report = %+v", r)
	}
}

func TestEventBindingErrors(t *testing.T) {
	app := newTestApp(t, Config{})
	app.Router().On("/form", "save", func(req *dispatch.Request, _ *exchange.Event) error {
		var form struct {
			Age int `form:"age"`
		}
		return dispatch.Bind(req, &form)
	})

	rec := post(t, app, "/form", eventForm("save", `{"age":"old"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	errs, ok := decode(t, rec)[KeyErrors].([]any)
	if !ok || len(errs) != 1 {
		t.Fatalf("payload = %s", rec.Body.String())
	}
	if field := errs[0].(map[string]any)["field"]; field != "age" {
		t.Errorf("field = %v, want age", field)
	}
	if r := app.observer.last(t); r.Outcome != OutcomeErrors {
		t.Errorf("report = %+v", r)
	}
}

func TestEventViewRunsOnce(t *testing.T) {
	var views int
	app := newTestApp(t, Config{})
	r := app.Router()
	r.View("/form", func(req *dispatch.Request) (any, error) {
		views++
		return "form", nil
	})
	r.On("/form", "save", func(*dispatch.Request, *exchange.Event) error { return nil })

	rec := post(t, app, "/form", eventForm("save", `{}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if views != 1 {
		t.Errorf("view ran %d times, want 1", views)
	}
}

func TestEventRedirect(t *testing.T) {
	app := newTestApp(t, Config{})
	app.Router().On("/users", "delete", func(req *dispatch.Request, _ *exchange.Event) error {
		req.Exchange.Redirect("/users/deleted")
		return nil
	})

	m := decode(t, post(t, app, "/users", eventForm("delete", `{}`)))
	if m[KeyRedirect] != "/users/deleted" {
		t.Errorf("payload = %v", m)
	}
	if _, ok := m[KeySelector]; ok {
		t.Error("redirect payload should not carry a body")
	}
}

func TestEventRejected(t *testing.T) {
	tests := []struct {
		name    string
		form    url.Values
		status  int
		failure string
	}{
		{"missing inputs", url.Values{exchange.FieldEvent: {"save"}}, http.StatusBadRequest, "bad_request"},
		{"bad args", url.Values{exchange.FieldEvent: {"save"}, exchange.FieldInputs: {"{}"}, exchange.FieldArgs: {"{"}}, http.StatusBadRequest, "bad_request"},
		{"unknown event", eventForm("nope", `{}`), http.StatusInternalServerError, "event_result"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t, Config{})
			app.Router().On("/form", "save", func(*dispatch.Request, *exchange.Event) error { return nil })

			rec := post(t, app, "/form", tt.form)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if got := app.observer.last(t).Failure(); got != tt.failure {
				t.Errorf("failure = %q, want %q", got, tt.failure)
			}
		})
	}
}

func TestEventServiceResultRejected(t *testing.T) {
	app := newTestApp(t, Config{
		Dispatcher: dispatch.Func(func(*dispatch.Request) dispatch.Result {
			return dispatch.Service("raw")
		}),
	})

	rec := post(t, app, "/form", eventForm("save", `{}`))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
	if !errors.Is(app.observer.last(t).Err, ErrEventResult) {
		t.Errorf("err = %v", app.observer.last(t).Err)
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{&PipelineError{Err: ErrNotFound}, http.StatusNotFound},
		{&PipelineError{Err: ErrMissingInputs}, http.StatusBadRequest},
		{forbidden{}, http.StatusForbidden},
		{errors.New("x"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusOf(tt.err); got != tt.want {
			t.Errorf("StatusOf(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestHandlerNotFoundErrorFallsThrough(t *testing.T) {
	app := newTestApp(t, Config{
		Dispatcher: dispatch.Func(func(*dispatch.Request) dispatch.Result {
			return dispatch.Failed(dispatch.ErrHandlerNotFound)
		}),
	})

	rec := get(t, app, "/about")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "about us") {
		t.Errorf("response = %d %q", rec.Code, rec.Body.String())
	}
}

func TestDefaultEngineAssetFunc(t *testing.T) {
	resources := resource.NewFSLoader(fstest.MapFS{
		"dynamic/home.html": {Data: []byte(`<link rel="stylesheet" href="{{asset "app.css"}}">`)},
	})

	tests := []struct {
		name     string
		resolver *assets.Resolver
		want     string
	}{
		{"manifest", assets.NewResolver(assets.NewManifest(map[string]string{"app.css": "app.a1b2c3d4.css"}), "/static/"), `href="/static/app.a1b2c3d4.css"`},
		{"default passthrough", nil, `href="/app.css"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := New(Config{Resources: resources, Assets: tt.resolver, State: state.NewSignedCodec(testSecret)})
			rec := get(t, app, "/home")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), tt.want) {
				t.Errorf("body = %q, want %s", rec.Body.String(), tt.want)
			}
		})
	}
}
