// SPDX-License-Identifier: MPL-2.0

package activation

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"modboot/internal/lifecycle"
)

type (
	// Activatable is an entry hook.
	Activatable interface {
		Activate(ctx context.Context) error
	}

	// ActivatableFunc adapts a function to the Activatable interface.
	ActivatableFunc func(ctx context.Context) error

	// Awakener runs when its unit is scanned in an internal module.
	Awakener interface {
		Awake(r lifecycle.Registrar)
	}

	// AwakenerFunc adapts a function to the Awakener interface.
	AwakenerFunc func(r lifecycle.Registrar)

	// Releasable services are released when Disable fires.
	Releasable interface {
		Release()
	}

	entryKey struct {
		unit   string
		method string
	}

	// Registry holds entry hooks, awakeners and services.
	Registry struct {
		mu        sync.RWMutex
		entries   map[entryKey]Activatable
		awakeners map[string]Awakener
		awakened  map[string]bool
		services  map[string]any
		order     []string
	}
)

// Default is the process-wide registry compiled-in modules register on.
var Default = NewRegistry()

// Activate calls f(ctx).
func (f ActivatableFunc) Activate(ctx context.Context) error { return f(ctx) }

// Awake calls f(r).
func (f AwakenerFunc) Awake(r lifecycle.Registrar) { f(r) }

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries:   make(map[entryKey]Activatable),
		awakeners: make(map[string]Awakener),
		awakened:  make(map[string]bool),
		services:  make(map[string]any),
	}
}

// Register binds the entry method of unit to a. A later registration for the
// same pair replaces the earlier one.
func (r *Registry) Register(unit, method string, a Activatable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entryKey{unit: unit, method: method}] = a
}

// Lookup returns the activatable bound to (unit, method).
func (r *Registry) Lookup(unit, method string) (Activatable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.entries[entryKey{unit: unit, method: method}]
	return a, ok
}

// Invoke runs the activatable bound to (unit, method). Missing bindings,
// returned errors and panics are reported as *EntryInvocationError.
func (r *Registry) Invoke(ctx context.Context, unit, method string) (err error) {
	a, ok := r.Lookup(unit, method)
	if !ok {
		return &EntryInvocationError{Unit: unit, Method: method, Cause: ErrNoEntry}
	}
	defer func() {
		if p := recover(); p != nil {
			err = &EntryInvocationError{Unit: unit, Method: method, Cause: fmt.Errorf("panic: %v", p)}
		}
	}()
	if aerr := a.Activate(ctx); aerr != nil {
		return &EntryInvocationError{Unit: unit, Method: method, Cause: aerr}
	}
	return nil
}

// RegisterAwakener binds an awakener to a unit name.
func (r *Registry) RegisterAwakener(unit string, a Awakener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.awakeners[unit] = a
}

// Awaken runs the awakeners of the given units, in order, each at most once
// per registry lifetime. It returns the units whose awakener ran.
func (r *Registry) Awaken(units []string, reg lifecycle.Registrar) []string {
	var ran []string
	for _, u := range units {
		r.mu.Lock()
		a, ok := r.awakeners[u]
		if !ok || r.awakened[u] {
			r.mu.Unlock()
			continue
		}
		r.awakened[u] = true
		r.mu.Unlock()

		a.Awake(reg)
		ran = append(ran, u)
	}
	return ran
}

// RegisterService publishes a named service.
func (r *Registry) RegisterService(name string, v any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.services[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateService, name)
	}
	r.services[name] = v
	r.order = append(r.order, name)
	return nil
}

// Service returns a named service.
func (r *Registry) Service(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.services[name]
	return v, ok
}

// ServiceAs returns a named service asserted to T.
func ServiceAs[T any](r *Registry, name string) (T, bool) {
	v, ok := r.Service(name)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// ReleaseServices releases every Releasable service in reverse registration
// order and forgets all services.
func (r *Registry) ReleaseServices() int {
	r.mu.Lock()
	order := slices.Clone(r.order)
	services := r.services
	r.services = make(map[string]any)
	r.order = nil
	r.mu.Unlock()

	released := 0
	for _, name := range slices.Backward(order) {
		if rel, ok := services[name].(Releasable); ok {
			rel.Release()
			released++
		}
	}
	return released
}

// Bind registers service release on the Disable stage.
func (r *Registry) Bind(reg lifecycle.Registrar) {
	reg.Register(lifecycle.Disable, func() { r.ReleaseServices() })
}

// Register binds an entry hook on Default.
func Register(unit, method string, a Activatable) {
	Default.Register(unit, method, a)
}

// RegisterAwakener binds an awakener on Default.
func RegisterAwakener(unit string, a Awakener) {
	Default.RegisterAwakener(unit, a)
}
