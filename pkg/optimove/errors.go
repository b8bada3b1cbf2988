package optimove

import (
	"github.com/optimove/optimove-go/pkg/optimove/bootstrap"
	"github.com/optimove/optimove-go/pkg/optimove/component"
	"github.com/optimove/optimove-go/pkg/optimove/config"
	"github.com/optimove/optimove-go/pkg/optimove/storage"
)

// Common sentinel errors, re-exported so callers rarely need to import the
// internal packages to test outcomes with errors.Is.
var (
	// ErrAlreadyInitialized indicates a previous attempt already initialized
	// the SDK.
	ErrAlreadyInitialized = bootstrap.ErrAlreadyInitialized

	// ErrConfigurationUnavailable indicates no usable configuration could be
	// built.
	ErrConfigurationUnavailable = bootstrap.ErrConfigurationUnavailable

	// ErrRoleRegistered indicates a duplicate component registration.
	ErrRoleRegistered = component.ErrRoleRegistered

	// ErrTenantIDMissing indicates the tenant fragment carries no tenant ID.
	ErrTenantIDMissing = config.ErrTenantIDMissing

	// ErrSettingNotFound indicates a persisted setting doesn't exist.
	ErrSettingNotFound = storage.ErrNotFound
)
