package component

import (
	"context"

	"github.com/optimove/optimove-go/pkg/optimove/event"
)

// Role identifies a component slot. Each role is registered at most once.
type Role string

// Built-in component roles.
const (
	RoleTracking Role = "tracking"
	RoleRealtime Role = "realtime"
	RolePush     Role = "push"
)

// Component is the minimal contract every registered component satisfies.
// Capability interfaces below declare what a component can actually consume;
// the router checks for them per dispatch.
type Component interface {
	// Role returns the component's registry slot.
	Role() Role
}

// OperationHandler consumes raw operations. Components that need the
// operation's full intent (identity updates, flush requests) implement this.
type OperationHandler interface {
	Component

	// HandleOperation processes one operation. Errors are isolated per
	// component: a failure is logged and counted, never propagated to the
	// caller or to sibling components.
	HandleOperation(ctx context.Context, op Operation) error
}

// WireConsumer consumes decorated events. Components that only forward
// validated events to a backend implement this; the router decorates
// report operations once and shares the result across consumers.
type WireConsumer interface {
	Component

	// ConsumeWire processes validated, transport-ready events.
	ConsumeWire(ctx context.Context, events []event.Decorated) error
}
