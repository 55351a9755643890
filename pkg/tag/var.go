package tag

import "sync"

// Var is a two-way variable a node can be bound to. Client input updates
// it through Set; rendering reads it through Get.
type Var interface {
	Get() any
	Set(value any)
}

// Value is a concurrency-safe Var holding a plain Go value.
type Value struct {
	mu    sync.RWMutex
	value any
}

// NewVar returns a Var holding initial.
func NewVar(initial any) *Value {
	return &Value{value: initial}
}

// Get implements Var.
func (v *Value) Get() any {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value
}

// Set implements Var.
func (v *Value) Set(value any) {
	v.mu.Lock()
	v.value = value
	v.mu.Unlock()
}
