package component

import (
	"errors"
	"fmt"
	"sync"
)

// ErrRoleRegistered indicates a second registration for an occupied role.
var ErrRoleRegistered = errors.New("role already registered")

// Registry holds the registered components. It is append-only: components
// are registered during initialization and never removed or replaced, so a
// reader that has seen a component will keep seeing it.
type Registry struct {
	mu         sync.RWMutex
	components map[Role]Component
	order      []Role
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		components: make(map[Role]Component),
	}
}

// Register adds a component under its role. Registering an occupied role
// fails; the first registration wins.
func (r *Registry) Register(c Component) error {
	if c == nil {
		return errors.New("cannot register nil component")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	role := c.Role()
	if _, exists := r.components[role]; exists {
		return fmt.Errorf("%w: %s", ErrRoleRegistered, role)
	}
	r.components[role] = c
	r.order = append(r.order, role)
	return nil
}

// Get returns the component registered under role.
func (r *Registry) Get(role Role) (Component, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.components[role]
	return c, ok
}

// Has reports whether a component occupies the role.
func (r *Registry) Has(role Role) bool {
	_, ok := r.Get(role)
	return ok
}

// Len returns the number of registered components.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.components)
}

// Roles returns the registered roles in registration order.
func (r *Registry) Roles() []Role {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Role(nil), r.order...)
}

// Range calls fn for each component in registration order. It iterates over
// a snapshot, so fn may itself use the registry without deadlocking.
func (r *Registry) Range(fn func(Component) bool) {
	r.mu.RLock()
	snapshot := make([]Component, 0, len(r.order))
	for _, role := range r.order {
		snapshot = append(snapshot, r.components[role])
	}
	r.mu.RUnlock()

	for _, c := range snapshot {
		if !fn(c) {
			return
		}
	}
}
