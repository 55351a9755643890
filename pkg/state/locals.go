package state

import (
	"encoding/json"
	"sort"
)

// Locals is the client-visible UI state of a page.
// Every entry is a Value, so a Locals map is always serializable.
type Locals map[string]Value

// Clone returns a shallow copy of l. Values are immutable, so the copy is
// fully independent.
func (l Locals) Clone() Locals {
	out := make(Locals, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// Merge copies every entry of other into l, overwriting existing keys.
func (l Locals) Merge(other Locals) {
	for k, v := range other {
		l[k] = v
	}
}

// Keys returns the keys in sorted order.
func (l Locals) Keys() []string {
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// payload is the wire form of Locals inside a state token.
type payload struct {
	Locals  map[string]Value `json:"locals"`
	Version int              `json:"v"`
}

// CurrentVersion is the version of the state payload format.
// Increment when making breaking changes to the format.
const CurrentVersion = 1

func marshalLocals(l Locals) ([]byte, error) {
	return json.Marshal(payload{Locals: l, Version: CurrentVersion})
}

func unmarshalLocals(data []byte) (Locals, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if p.Version != CurrentVersion {
		return nil, ErrVersionMismatch
	}
	if p.Locals == nil {
		return Locals{}, nil
	}
	return Locals(p.Locals), nil
}
