package realtime

import (
	"errors"
	"fmt"

	"github.com/optimove/optimove-go/pkg/optimove/event"
	"github.com/optimove/optimove-go/pkg/optimove/storage"
)

// Category classifies an event for retry purposes. Identity categories carry
// their own persisted failure flag; regular events are never retried.
type Category string

const (
	// CategoryRegular covers all non-identity events.
	CategoryRegular Category = "regular"

	// CategoryUserID covers the set-user-id identity event.
	CategoryUserID Category = Category(event.SetUserIDName)

	// CategoryUserEmail covers the set-email identity event.
	CategoryUserEmail Category = Category(event.SetEmailName)
)

// retryOrder fixes the sequence in which armed identity categories are
// retried ahead of any outgoing event: user ID first, then email.
var retryOrder = []Category{CategoryUserID, CategoryUserEmail}

// CategoryFor maps a normalized event name to its category.
func CategoryFor(name string) Category {
	switch name {
	case event.SetUserIDName:
		return CategoryUserID
	case event.SetEmailName:
		return CategoryUserEmail
	}
	return CategoryRegular
}

// Failure flag keys, persisted so retry obligations survive restarts.
const (
	keyFailedUserID    = "realtime_failed_set_user_id"
	keyFailedUserEmail = "realtime_failed_set_email"
)

// flagKey returns the persistence key for an identity category.
func flagKey(c Category) (string, bool) {
	switch c {
	case CategoryUserID:
		return keyFailedUserID, true
	case CategoryUserEmail:
		return keyFailedUserEmail, true
	}
	return "", false
}

// FailureLedger persists per-category send failure flags. Regular events
// have no flag; ledger operations on them are no-ops.
type FailureLedger struct {
	store storage.Store
}

// NewFailureLedger creates a ledger over the given settings store.
func NewFailureLedger(store storage.Store) *FailureLedger {
	return &FailureLedger{store: store}
}

// IsFailed reports whether the category has an unresolved send failure.
func (l *FailureLedger) IsFailed(c Category) (bool, error) {
	key, ok := flagKey(c)
	if !ok {
		return false, nil
	}
	failed, err := l.store.GetBool(key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read failure flag %s: %w", key, err)
	}
	return failed, nil
}

// SetFailed arms the category's failure flag.
func (l *FailureLedger) SetFailed(c Category) error {
	key, ok := flagKey(c)
	if !ok {
		return nil
	}
	if err := l.store.SetBool(key, true); err != nil {
		return fmt.Errorf("arm failure flag %s: %w", key, err)
	}
	return nil
}

// ClearFailed disarms the category's failure flag.
func (l *FailureLedger) ClearFailed(c Category) error {
	key, ok := flagKey(c)
	if !ok {
		return nil
	}
	if err := l.store.SetBool(key, false); err != nil {
		return fmt.Errorf("clear failure flag %s: %w", key, err)
	}
	return nil
}

// Record updates the ledger after a send attempt: failure arms the flag,
// success disarms it.
func (l *FailureLedger) Record(c Category, sendErr error) error {
	if sendErr != nil {
		return l.SetFailed(c)
	}
	return l.ClearFailed(c)
}
