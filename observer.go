package appcore

import (
	"errors"
	"net/http"
	"time"
)

// Observer receives a report for every request handled by an App.
// Implementations must be safe for concurrent use.
type Observer interface {
	Observe(Report)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Report)

// Observe implements Observer.
func (f ObserverFunc) Observe(r Report) { f(r) }

// Report describes a handled request.
type Report struct {
	Method   string
	Path     string
	Event    string
	Outcome  OutcomeKind
	Status   int
	Duration time.Duration

	// ValidationErrors is the number of field errors recorded on the
	// exchange.
	ValidationErrors int

	// Err is the Dispatch error, if any.
	Err error
}

// Failure classifies Err: "" when the request succeeded, otherwise one of
// "not_found", "bad_request", "event_result" or "internal".
func (r Report) Failure() string {
	switch {
	case r.Err == nil:
		return ""
	case errors.Is(r.Err, ErrEventResult):
		return "event_result"
	}
	switch StatusOf(r.Err) {
	case http.StatusNotFound:
		return "not_found"
	case http.StatusBadRequest:
		return "bad_request"
	default:
		return "internal"
	}
}

// Observers fans reports out to several observers.
func Observers(observers ...Observer) Observer {
	return multiObserver(observers)
}

type multiObserver []Observer

func (m multiObserver) Observe(r Report) {
	for _, o := range m {
		if o != nil {
			o.Observe(r)
		}
	}
}
