// Package event defines the SDK's event value and the decoration/validation
// stage that normalizes a raw event against its remote-defined schema before
// it reaches any component.
package event

// Reserved event names carrying visitor identity. Their ordering relative to
// other events is enforced by the realtime delivery path.
const (
	// SetUserIDName identifies the event that binds a user ID to the visitor.
	SetUserIDName = "set_user_id"

	// SetEmailName identifies the event that binds an email to the visitor.
	SetEmailName = "set_email"

	// ScreenVisitName identifies the synthetic screen-visit event.
	ScreenVisitName = "set_screen_visit"
)

// Event is a named application event with a parameter mapping.
// Events are treated as immutable once handed to the SDK.
type Event struct {
	Name   string
	Params map[string]any
}

// New creates an event with the given name and parameters.
func New(name string, params map[string]any) Event {
	return Event{Name: name, Params: params}
}
