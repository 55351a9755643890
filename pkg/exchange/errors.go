package exchange

import (
	"errors"
	"fmt"
)

// Sentinel errors for event parsing.
var (
	// ErrMissingInputs is returned when an event request has no _inputs
	// field.
	ErrMissingInputs = errors.New("exchange: event request without _inputs")

	// ErrInvalidEventPayload is returned when _args or _inputs is not
	// valid JSON of the expected shape.
	ErrInvalidEventPayload = errors.New("exchange: invalid event payload")

	// ErrNoEvent is returned by ParseEvent on requests that carry no event.
	ErrNoEvent = errors.New("exchange: request carries no event")
)

// FieldError is a validation or binding error tied to an input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e FieldError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
