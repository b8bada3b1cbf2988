package component

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubComponent is a minimal registrable component.
type stubComponent struct {
	role Role
}

func (s *stubComponent) Role() Role { return s.role }

func TestRegistry_Register(t *testing.T) {
	registry := NewRegistry()
	assert.Equal(t, 0, registry.Len())

	require.NoError(t, registry.Register(&stubComponent{role: RoleTracking}))
	require.NoError(t, registry.Register(&stubComponent{role: RoleRealtime}))

	assert.Equal(t, 2, registry.Len())
	assert.True(t, registry.Has(RoleTracking))
	assert.True(t, registry.Has(RoleRealtime))
	assert.False(t, registry.Has(RolePush))
}

func TestRegistry_Register_DuplicateRole(t *testing.T) {
	registry := NewRegistry()
	first := &stubComponent{role: RoleTracking}

	require.NoError(t, registry.Register(first))
	err := registry.Register(&stubComponent{role: RoleTracking})
	assert.ErrorIs(t, err, ErrRoleRegistered)

	// First registration wins.
	got, ok := registry.Get(RoleTracking)
	require.True(t, ok)
	assert.Same(t, first, got)
}

func TestRegistry_Register_Nil(t *testing.T) {
	assert.Error(t, NewRegistry().Register(nil))
}

func TestRegistry_RolesInRegistrationOrder(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&stubComponent{role: RolePush}))
	require.NoError(t, registry.Register(&stubComponent{role: RoleTracking}))
	require.NoError(t, registry.Register(&stubComponent{role: RoleRealtime}))

	assert.Equal(t, []Role{RolePush, RoleTracking, RoleRealtime}, registry.Roles())
}

func TestRegistry_Range_Order(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&stubComponent{role: RoleTracking}))
	require.NoError(t, registry.Register(&stubComponent{role: RoleRealtime}))

	var seen []Role
	registry.Range(func(c Component) bool {
		seen = append(seen, c.Role())
		return true
	})
	assert.Equal(t, []Role{RoleTracking, RoleRealtime}, seen)
}

func TestRegistry_Range_EarlyStop(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&stubComponent{role: RoleTracking}))
	require.NoError(t, registry.Register(&stubComponent{role: RoleRealtime}))

	count := 0
	registry.Range(func(c Component) bool {
		count++
		return false
	})
	assert.Equal(t, 1, count)
}

func TestRegistry_Range_ReentrantAccess(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&stubComponent{role: RoleTracking}))

	done := make(chan struct{})
	go func() {
		defer close(done)
		registry.Range(func(c Component) bool {
			// The snapshot iteration must not hold the registry lock.
			_ = registry.Len()
			_, _ = registry.Get(RoleTracking)
			return true
		})
	}()

	select {
	case <-done:
	case <-ctxDone(t):
		t.Fatal("Range deadlocked on reentrant registry access")
	}
}

func ctxDone(t *testing.T) <-chan struct{} {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx.Done()
}
