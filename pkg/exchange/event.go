package exchange

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/vango-dev/appcore/pkg/state"
)

// Wire field names of the event protocol.
const (
	FieldEvent    = "_event"
	FieldArgs     = "_args"
	FieldInputs   = "_inputs"
	FieldState    = "_state"
	FieldEmbedded = "embedded"
)

// Input is one bound input value submitted with an event.
type Input struct {
	ID    string
	Value state.Value
}

// Event is a client-originated UI action.
type Event struct {
	Name   string
	Args   []state.Value
	Inputs []Input
}

// Arg returns the i-th argument, or null when there is none.
func (e *Event) Arg(i int) state.Value {
	if e == nil || i < 0 || i >= len(e.Args) {
		return state.Null()
	}
	return e.Args[i]
}

// HasEvent reports whether the request is a POST carrying a non-empty
// _event field.
func (x *Exchange) HasEvent() bool {
	return x.IsPost() && x.Posted(FieldEvent) != ""
}

// ParseEvent reads _event, _args and _inputs from the posted fields and
// writes every input into the locals under its id. Inputs keep the order
// in which the client sent them.
func (x *Exchange) ParseEvent() (*Event, error) {
	if x.event != nil {
		return x.event, nil
	}
	if !x.HasEvent() {
		return nil, ErrNoEvent
	}

	ev := &Event{Name: x.Posted(FieldEvent), Args: []state.Value{}}

	if raw, ok := x.lookupPosted(FieldArgs); ok && raw != "" {
		if !gjson.Valid(raw) {
			return nil, fmt.Errorf("%w: _args is not valid JSON", ErrInvalidEventPayload)
		}
		args := gjson.Parse(raw)
		if !args.IsArray() {
			return nil, fmt.Errorf("%w: _args must be a JSON array", ErrInvalidEventPayload)
		}
		for _, arg := range args.Array() {
			ev.Args = append(ev.Args, state.FromJSON(arg))
		}
	}

	raw, ok := x.lookupPosted(FieldInputs)
	if !ok {
		return nil, ErrMissingInputs
	}
	if !gjson.Valid(raw) {
		return nil, fmt.Errorf("%w: _inputs is not valid JSON", ErrInvalidEventPayload)
	}
	inputs := gjson.Parse(raw)
	if !inputs.IsObject() {
		return nil, fmt.Errorf("%w: _inputs must be a JSON object", ErrInvalidEventPayload)
	}
	inputs.ForEach(func(key, value gjson.Result) bool {
		in := Input{ID: key.String(), Value: state.FromJSON(value)}
		ev.Inputs = append(ev.Inputs, in)
		x.locals[in.ID] = in.Value
		return true
	})

	x.event = ev
	return ev, nil
}

// Event returns the event parsed by ParseEvent, or nil.
func (x *Exchange) Event() *Event { return x.event }
