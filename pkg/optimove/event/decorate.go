package event

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/optimove/optimove-go/pkg/optimove/config"
)

// Event categories stamped during decoration.
const (
	CategoryIdentity = "identity"
	CategoryCustom   = "custom"
)

// Decorated is a transport-ready event: normalized, validated against its
// schema, and stamped with instance metadata.
type Decorated struct {
	// InstanceID uniquely identifies this event instance.
	InstanceID string

	// ID is the numeric event identifier from the schema.
	ID int

	// Name is the normalized event name.
	Name string

	// Category distinguishes identity-bearing events from custom ones.
	Category string

	// Timestamp is seconds since epoch at decoration time.
	Timestamp int64

	// Params holds only the declared, validated parameters.
	Params map[string]any
}

// ValidationError indicates an event failed schema validation.
type ValidationError struct {
	Event   string
	Param   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("event %s: parameter %s: %s", e.Event, e.Param, e.Message)
	}
	return fmt.Sprintf("event %s: %s", e.Event, e.Message)
}

// Normalize canonicalizes an event name: trimmed, lowercased, inner
// whitespace replaced with underscores.
func Normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Join(strings.Fields(name), "_")
}

// Decorate validates an event against its settings and produces the
// transport-ready representation. It is pure and synchronous.
//
// Parameters not declared in the schema are dropped; declared parameters are
// type-checked and mandatory ones must be present.
func Decorate(evt Event, settings config.EventSettings) (Decorated, error) {
	name := Normalize(evt.Name)

	validated := make(map[string]any, len(settings.Parameters))
	for pname, ps := range settings.Parameters {
		value, ok := evt.Params[pname]
		if !ok {
			if ps.Mandatory {
				return Decorated{}, &ValidationError{
					Event:   name,
					Param:   pname,
					Message: "mandatory parameter missing",
				}
			}
			continue
		}
		if !typeMatches(ps.Type, value) {
			return Decorated{}, &ValidationError{
				Event:   name,
				Param:   pname,
				Message: fmt.Sprintf("expected %s, got %T", ps.Type, value),
			}
		}
		validated[pname] = value
	}

	return Decorated{
		InstanceID: uuid.NewString(),
		ID:         settings.ID,
		Name:       name,
		Category:   categoryFor(name),
		Timestamp:  time.Now().Unix(),
		Params:     validated,
	}, nil
}

func categoryFor(name string) string {
	switch name {
	case SetUserIDName, SetEmailName:
		return CategoryIdentity
	}
	return CategoryCustom
}

func typeMatches(declared string, value any) bool {
	switch declared {
	case "string":
		_, ok := value.(string)
		return ok
	case "number":
		switch value.(type) {
		case int, int32, int64, float32, float64:
			return true
		}
		return false
	case "boolean":
		_, ok := value.(bool)
		return ok
	}
	// Unknown declared types accept anything; the backend owns the schema.
	return true
}
