// Package realtime delivers events to the realtime gateway: a serial send
// queue, a persisted per-category failure ledger, and the retry engine that
// restores identity ordering after transport failures.
package realtime

import "context"

// WireEvent is the realtime gateway payload for one event.
type WireEvent struct {
	// TenantID identifies the tenant on the gateway.
	TenantID string `json:"tid"`

	// Token authenticates the tenant.
	Token string `json:"token"`

	// EventID is the numeric identifier from the event schema.
	EventID int `json:"eid"`

	// Name is the normalized event name.
	Name string `json:"event"`

	// VisitorID is the device-scoped visitor identifier.
	VisitorID string `json:"visitor_id"`

	// UserID is the bound user identifier, if any.
	UserID string `json:"user_id,omitempty"`

	// FirstVisit is the first-visit timestamp, seconds since epoch.
	FirstVisit int64 `json:"first_visit"`

	// Params carries the validated event parameters.
	Params map[string]any `json:"context"`
}

// Transport sends wire events to the realtime gateway. The HTTP
// implementation lives with the host application; tests use fakes.
type Transport interface {
	// Send delivers one event. A non-nil error marks the send as failed
	// and, for identity events, arms the retry ledger.
	Send(ctx context.Context, evt WireEvent) error
}
