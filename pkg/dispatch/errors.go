package dispatch

import (
	"errors"
	"fmt"
)

// Sentinel errors for dispatch.
var (
	// ErrHandlerNotFound indicates that no handler matched the request.
	ErrHandlerNotFound = errors.New("dispatch: handler not found")

	// ErrPanic indicates that a handler panicked.
	ErrPanic = errors.New("dispatch: handler panic")

	// ErrNoEvent indicates an event-phase dispatch without a parsed event.
	ErrNoEvent = errors.New("dispatch: event phase without event")

	// ErrBinding indicates that request parameters could not be bound to
	// a handler's input struct.
	ErrBinding = errors.New("dispatch: binding failed")
)

// DispatchError wraps a failure that happened while dispatching a request
// to a handler that was found.
type DispatchError struct {
	Method  string
	Path    string
	Phase   Phase
	Handler string // route pattern or event name
	Err     error
}

// Error returns the error message with request context.
func (e *DispatchError) Error() string {
	if e.Handler == "" {
		return fmt.Sprintf("dispatch: %s %s (%s): %v", e.Method, e.Path, e.Phase, e.Err)
	}
	return fmt.Sprintf("dispatch: %s %s (%s, %s): %v", e.Method, e.Path, e.Phase, e.Handler, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *DispatchError) Unwrap() error {
	return e.Err
}
