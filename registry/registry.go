package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hupe1980/automesh/core"
)

// Registry is a thread-safe, typed store mapping component names to live
// instances. The type parameter pins what kind of component a given registry
// holds (tools, agents, executors, ...) while keeping the lifecycle surface
// identical across all of them.
//
// Registries are read-mostly after boot: Register/Unregister/Clear happen
// during boot and teardown, Get/Invoke happen on the hot path.
type Registry[T core.Component] struct {
	mu    sync.RWMutex
	items map[string]T
}

// New constructs an empty registry.
func New[T core.Component]() *Registry[T] {
	return &Registry[T]{items: make(map[string]T)}
}

// Register adds a component under its own name. Registering a name twice is
// an error; replace explicitly via Unregister first so accidental shadowing
// of live components cannot happen.
func (r *Registry[T]) Register(item T) error {
	name := item.Name()
	if name == "" {
		return &core.ValidationError{Field: "name", Message: "component name must not be empty"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[name]; exists {
		return fmt.Errorf("%q: %w", name, core.ErrAlreadyRegistered)
	}
	r.items[name] = item

	return nil
}

// Unregister removes a component by name.
func (r *Registry[T]) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[name]; !exists {
		return fmt.Errorf("component %q: %w", name, core.ErrNotFound)
	}
	delete(r.items, name)

	return nil
}

// Get returns the component registered under name.
func (r *Registry[T]) Get(name string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, exists := r.items[name]
	if !exists {
		var zero T
		return zero, fmt.Errorf("component %q: %w", name, core.ErrNotFound)
	}

	return item, nil
}

// Has reports whether a component is registered under name.
func (r *Registry[T]) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.items[name]
	return exists
}

// List returns all registered components ordered by name.
func (r *Registry[T]) List() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.items))
	for name := range r.items {
		names = append(names, name)
	}
	sort.Strings(names)

	items := make([]T, 0, len(names))
	for _, name := range names {
		items = append(items, r.items[name])
	}

	return items
}

// Names returns the sorted identifiers of all registered components.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.items))
	for name := range r.items {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Len returns the number of registered components.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Clear removes every component. Used by teardown after components had their
// chance to release resources.
func (r *Registry[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = make(map[string]T)
}

// Invoke dispatches to the execution entry point of the named component.
// Components that do not implement core.Invokable yield ErrNotInvokable.
func (r *Registry[T]) Invoke(ctx context.Context, name string, input map[string]any) (map[string]any, error) {
	item, err := r.Get(name)
	if err != nil {
		return nil, err
	}

	invokable, ok := any(item).(core.Invokable)
	if !ok {
		return nil, fmt.Errorf("component %q: %w", name, core.ErrNotInvokable)
	}

	return invokable.Invoke(ctx, input)
}
