package dispatch

import (
	"context"

	"github.com/vango-dev/appcore/pkg/exchange"
)

// Phase tells a dispatcher which pipeline stage is calling it. Event
// requests are dispatched twice, once per phase, so side effects that must
// run once belong to exactly one phase.
type Phase uint8

const (
	// PhasePrimary resolves services and views for the request.
	PhasePrimary Phase = iota
	// PhaseEvent handles a client event; it must yield a view.
	PhaseEvent
)

// String returns the string representation of the Phase.
func (p Phase) String() string {
	switch p {
	case PhasePrimary:
		return "primary"
	case PhaseEvent:
		return "event"
	default:
		return "unknown"
	}
}

// Request is what a dispatcher receives.
type Request struct {
	Exchange *exchange.Exchange
	Phase    Phase

	// Params holds route parameters. Dispatchers that match routes fill
	// it in.
	Params map[string]string
}

// NewRequest creates a request for x in the given phase.
func NewRequest(x *exchange.Exchange, phase Phase) *Request {
	return &Request{Exchange: x, Phase: phase, Params: make(map[string]string)}
}

// Context returns the request context.
func (r *Request) Context() context.Context { return r.Exchange.Context() }

// Param returns a route parameter, falling back to the exchange
// parameters.
func (r *Request) Param(key string) string {
	if v, ok := r.Params[key]; ok {
		return v
	}
	return r.Exchange.Param(key)
}

// Status discriminates a Result.
type Status uint8

const (
	StatusNotFound Status = iota
	StatusFound
	StatusError
)

// String returns the string representation of the Status.
func (s Status) String() string {
	switch s {
	case StatusNotFound:
		return "not_found"
	case StatusFound:
		return "found"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Result is the outcome of one dispatcher invocation. The zero Result is
// NotFound.
type Result struct {
	Status Status

	// Value is the handler's return value. It may be nil for Found.
	Value any

	// Service marks a raw API response that must never be wrapped in a
	// page.
	Service bool

	// Err is set for StatusError.
	Err error
}

// View returns a Found result carrying a view model.
func View(v any) Result { return Result{Status: StatusFound, Value: v} }

// Service returns a Found result carrying a raw service response.
func Service(v any) Result { return Result{Status: StatusFound, Value: v, Service: true} }

// NotFound returns the result for an unmatched request.
func NotFound() Result { return Result{} }

// Failed returns an error result.
func Failed(err error) Result { return Result{Status: StatusError, Err: err} }

func (r Result) Found() bool    { return r.Status == StatusFound }
func (r Result) NotFound() bool { return r.Status == StatusNotFound }
func (r Result) Failed() bool   { return r.Status == StatusError }

// Dispatcher resolves a request to a handler result.
// Implementations must be safe for concurrent use.
type Dispatcher interface {
	Dispatch(req *Request) Result
}

// Func adapts a function to the Dispatcher interface.
type Func func(req *Request) Result

// Dispatch implements Dispatcher.
func (f Func) Dispatch(req *Request) Result { return f(req) }

// Chain tries each dispatcher in order and returns the first result that
// is not NotFound.
func Chain(dispatchers ...Dispatcher) Dispatcher {
	return Func(func(req *Request) Result {
		for _, d := range dispatchers {
			if res := d.Dispatch(req); !res.NotFound() {
				return res
			}
		}
		return NotFound()
	})
}
