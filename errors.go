package appcore

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/vango-dev/appcore/pkg/exchange"
)

// Sentinel errors returned by Dispatch.
var (
	// ErrNotFound is returned when neither a handler result nor a page
	// template exists for the request.
	ErrNotFound = errors.New("appcore: not found")

	// ErrMissingInputs is returned for event requests without _inputs.
	ErrMissingInputs = exchange.ErrMissingInputs

	// ErrInvalidEventPayload is returned when _args or _inputs is
	// malformed.
	ErrInvalidEventPayload = exchange.ErrInvalidEventPayload

	// ErrEventResult is returned when event dispatch produced a service
	// result or no result at all. Event handlers must yield a view.
	ErrEventResult = errors.New("appcore: event dispatch did not yield a view")
)

// Stage names the pipeline step an error came from.
type Stage string

const (
	StageState   Stage = "state"
	StageEvent   Stage = "event"
	StageService Stage = "dispatch"
	StageScreen  Stage = "screen"
	StageRender  Stage = "render"
	StageWrite   Stage = "write"
)

// PipelineError wraps a failure with the request path and pipeline stage.
type PipelineError struct {
	Path  string
	Stage Stage
	Err   error
}

// Error returns the error message with pipeline context.
func (e *PipelineError) Error() string {
	return fmt.Sprintf("appcore: %s %s: %v", e.Stage, e.Path, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// StatusCode is implemented by errors that choose their HTTP status.
type StatusCode interface {
	StatusCode() int
}

// StatusOf maps a Dispatch error to an HTTP status.
func StatusOf(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrMissingInputs), errors.Is(err, ErrInvalidEventPayload):
		return http.StatusBadRequest
	}
	var sc StatusCode
	if errors.As(err, &sc) {
		if code := sc.StatusCode(); code >= 400 && code <= 599 {
			return code
		}
	}
	return http.StatusInternalServerError
}
