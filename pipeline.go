package appcore

import (
	"context"
	"errors"
	"net/http"

	"github.com/vango-dev/appcore/pkg/dispatch"
	"github.com/vango-dev/appcore/pkg/exchange"
	"github.com/vango-dev/appcore/pkg/page"
)

// Keys of the JSON payloads written for event requests.
const (
	KeyErrors   = "!errors"
	KeyRedirect = "_redirect_"
	KeySelector = "_sel_"
	KeyState    = "_state_"
)

// OutcomeKind tells how Dispatch answered a request.
type OutcomeKind uint8

const (
	// OutcomeNone is the kind of a failed dispatch.
	OutcomeNone OutcomeKind = iota
	// OutcomeStatic means a static file was served.
	OutcomeStatic
	// OutcomeService means a service result is returned unwritten.
	OutcomeService
	// OutcomePage means a full page was written.
	OutcomePage
	// OutcomePartial means a JSON partial update was written.
	OutcomePartial
	// OutcomeErrors means the validation errors of an event were written.
	OutcomeErrors
)

// String returns the string representation of the OutcomeKind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeNone:
		return "none"
	case OutcomeStatic:
		return "static"
	case OutcomeService:
		return "service"
	case OutcomePage:
		return "page"
	case OutcomePartial:
		return "partial"
	case OutcomeErrors:
		return "errors"
	default:
		return "unknown"
	}
}

// Outcome is the result of Dispatch.
//
// Value holds the service result for OutcomeService, the rendered HTML for
// OutcomePage, the JSON payload for OutcomePartial and the field errors
// for OutcomeErrors.
type Outcome struct {
	Kind  OutcomeKind
	Value any
}

// Dispatch runs the request pipeline on x. Every outcome except
// OutcomeService has been written to the response when Dispatch returns.
//
// The steps, in order, stopping at the first that answers:
//
//  1. serve a static file for GET and HEAD requests
//  2. restore the locals from the _state token
//  3. for event requests: parse the event, dispatch it in PhaseEvent and
//     answer with the recorded field errors if there are any
//  4. dispatch in PhasePrimary; service results are returned as is
//  5. ask the screen resolver for a fallback view
//  6. render the page template, or the result alone when there is no
//     template; event requests get a JSON partial
//  7. fail with ErrNotFound
func (a *App) Dispatch(x *exchange.Exchange) (Outcome, error) {
	ctx := x.Context()
	r := x.Request()

	if a.static != nil && (r.Method == http.MethodGet || r.Method == http.MethodHead) {
		if a.static.TryServe(x.ResponseWriter(), r) {
			x.MarkWritten()
			return Outcome{Kind: OutcomeStatic}, nil
		}
	}

	x.LoadState(ctx)

	event := x.HasEvent()
	if event {
		if _, err := x.ParseEvent(); err != nil {
			return Outcome{}, a.fail(x, StageEvent, err)
		}

		res := a.dispatcher.Dispatch(dispatch.NewRequest(x, dispatch.PhaseEvent))
		switch {
		case res.Failed() && errors.Is(res.Err, dispatch.ErrBinding) && x.HasErrors():
			// Recorded field errors are reported below.
		case res.Failed():
			return Outcome{}, a.fail(x, StageEvent, res.Err)
		case !res.Found() || res.Service:
			return Outcome{}, a.fail(x, StageEvent, ErrEventResult)
		}

		if x.HasErrors() {
			errs := x.Errors()
			if err := x.WriteJSON(map[string]any{KeyErrors: errs}); err != nil {
				return Outcome{}, a.fail(x, StageWrite, err)
			}
			return Outcome{Kind: OutcomeErrors, Value: errs}, nil
		}
	}

	var result any
	res := a.dispatcher.Dispatch(dispatch.NewRequest(x, dispatch.PhasePrimary))
	switch {
	case res.Failed() && errors.Is(res.Err, dispatch.ErrHandlerNotFound):
		// Same as NotFound: fall back to screens and templates.
	case res.Failed():
		return Outcome{}, a.fail(x, StageService, res.Err)
	case res.Found():
		if res.Service {
			return Outcome{Kind: OutcomeService, Value: res.Value}, nil
		}
		result = res.Value
	}

	if result == nil && a.screens != nil {
		v, err := a.screens.Resolve(x)
		if err != nil {
			return Outcome{}, a.fail(x, StageScreen, err)
		}
		result = v
	}

	out, ok, err := a.renderPage(ctx, x, result, event)
	if err != nil {
		return Outcome{}, err
	}
	if ok {
		return out, nil
	}

	return Outcome{}, a.fail(x, StageRender, ErrNotFound)
}

// renderPage renders the dynamic page of the request. It reports false
// when there is neither a template nor a result.
func (a *App) renderPage(ctx context.Context, x *exchange.Exchange, result any, event bool) (Outcome, bool, error) {
	name := page.TemplateName(x.ResourceName())

	var model page.Model
	switch {
	case a.builder.Exists(ctx, name):
		m, err := a.builder.Build(ctx, name, result)
		if err != nil {
			return Outcome{}, false, a.fail(x, StageRender, err)
		}
		model = m
	case result != nil:
		model = page.Minimal(result)
	default:
		return Outcome{}, false, nil
	}

	_, embedded := x.LookupParam(exchange.FieldEmbedded)
	model[page.KeyEmbedded] = event || embedded

	if event && x.RedirectURL() != "" {
		payload := map[string]any{KeyRedirect: x.RedirectURL()}
		if err := x.WriteJSON(payload); err != nil {
			return Outcome{}, false, a.fail(x, StageWrite, err)
		}
		return Outcome{Kind: OutcomePartial, Value: payload}, true, nil
	}

	body, err := a.layout.Render(ctx, model, result)
	if err != nil {
		return Outcome{}, false, a.fail(x, StageRender, err)
	}

	if !event {
		if err := x.WriteHTML(body); err != nil {
			return Outcome{}, false, a.fail(x, StageWrite, err)
		}
		return Outcome{Kind: OutcomePage, Value: body}, true, nil
	}

	token, err := x.SerializeLocals(ctx)
	if err != nil {
		return Outcome{}, false, a.fail(x, StageState, err)
	}
	payload := map[string]any{
		KeySelector: map[string]string{"body": body},
		KeyState:    token,
	}
	if err := x.WriteJSON(payload); err != nil {
		return Outcome{}, false, a.fail(x, StageWrite, err)
	}
	return Outcome{Kind: OutcomePartial, Value: payload}, true, nil
}

// fail wraps err with the request path and stage. Errors already wrapped
// by an earlier stage are returned unchanged.
func (a *App) fail(x *exchange.Exchange, stage Stage, err error) error {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return err
	}
	return &PipelineError{Path: x.Path(), Stage: stage, Err: err}
}
