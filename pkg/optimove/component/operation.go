// Package component defines the SDK's pluggable delivery components, the
// append-only registry that holds them, and the router that fans operations
// out to them.
package component

import "github.com/optimove/optimove-go/pkg/optimove/event"

// Operation kinds, used for routing decisions and observability labels.
const (
	KindReport       = "report_event"
	KindDispatchNow  = "dispatch_now"
	KindSetUserID    = "set_user_id"
	KindSetUserEmail = "set_user_email"
	KindReportScreen = "report_screen"
)

// Operation is a command fanned out to every registered component.
// The closed set of implementations mirrors the SDK's public surface.
type Operation interface {
	// Kind returns the operation's routing label.
	Kind() string

	isOperation()
}

// ReportOperation carries one or more application events for delivery.
type ReportOperation struct {
	Events []event.Event
}

func (ReportOperation) Kind() string { return KindReport }
func (ReportOperation) isOperation() {}

// DispatchNowOperation requests an immediate flush of buffered events.
type DispatchNowOperation struct{}

func (DispatchNowOperation) Kind() string { return KindDispatchNow }
func (DispatchNowOperation) isOperation() {}

// SetUserIDOperation binds a user identifier to the current visitor.
type SetUserIDOperation struct {
	UserID string
}

func (SetUserIDOperation) Kind() string { return KindSetUserID }
func (SetUserIDOperation) isOperation() {}

// SetUserEmailOperation binds an email address to the current visitor.
type SetUserEmailOperation struct {
	Email string
}

func (SetUserEmailOperation) Kind() string { return KindSetUserEmail }
func (SetUserEmailOperation) isOperation() {}

// Screen visit parameter names.
const (
	ParamScreenTitle    = "screen_title"
	ParamScreenCategory = "screen_category"
)

// ReportScreenOperation records a screen visit.
type ReportScreenOperation struct {
	Title    string
	Category string
}

func (ReportScreenOperation) Kind() string { return KindReportScreen }
func (ReportScreenOperation) isOperation() {}

// Event converts the screen visit to its synthetic application event.
func (o ReportScreenOperation) Event() event.Event {
	params := map[string]any{ParamScreenTitle: o.Title}
	if o.Category != "" {
		params[ParamScreenCategory] = o.Category
	}
	return event.New(event.ScreenVisitName, params)
}
