// Package storage provides durable key-value storage for SDK settings.
package storage

import (
	"errors"
	"strconv"
)

// Store persists scalar SDK settings (identifiers, flags, timestamps).
// Implementations must be safe for concurrent use.
type Store interface {
	// GetString retrieves a string setting.
	// Returns ErrNotFound if the key has never been set.
	GetString(key string) (string, error)

	// SetString stores a string setting, overwriting any previous value.
	SetString(key, value string) error

	// GetBool retrieves a boolean setting.
	GetBool(key string) (bool, error)

	// SetBool stores a boolean setting.
	SetBool(key string, value bool) error

	// GetInt64 retrieves an integer setting.
	GetInt64(key string) (int64, error)

	// SetInt64 stores an integer setting.
	SetInt64(key string, value int64) error

	// Delete removes a setting. Returns nil if the key doesn't exist.
	Delete(key string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Well-known setting keys shared across SDK components.
const (
	KeySiteID              = "site_id"
	KeyTenantID            = "tenant_id"
	KeyVisitorID           = "visitor_id"
	KeyUserID              = "user_id"
	KeyUserEmail           = "user_email"
	KeyFirstVisitTimestamp = "first_visit_ts"
)

// Sentinel errors for settings operations.
var (
	// ErrNotFound indicates a setting doesn't exist.
	ErrNotFound = errors.New("setting not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("settings store closed")
)

// All values are persisted as text; these helpers keep the encoding
// consistent between implementations.

func encodeBool(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func decodeBool(s string) (bool, error) {
	switch s {
	case "1", "true":
		return true, nil
	case "0", "false", "":
		return false, nil
	}
	return false, errors.New("invalid boolean setting: " + s)
}

func encodeInt64(v int64) string {
	return strconv.FormatInt(v, 10)
}

func decodeInt64(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
