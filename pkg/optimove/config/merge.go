package config

import (
	"errors"
	"fmt"
)

// Sentinel errors for configuration building.
var (
	// ErrGlobalFragmentMissing indicates the global fragment was never fetched.
	ErrGlobalFragmentMissing = errors.New("global configuration fragment missing")

	// ErrTenantFragmentMissing indicates the tenant fragment was never fetched.
	ErrTenantFragmentMissing = errors.New("tenant configuration fragment missing")

	// ErrTenantIDMissing indicates the tenant fragment carries no tenant identifier.
	ErrTenantIDMissing = errors.New("tenant identifier missing")

	// ErrRealtimeTokenMissing indicates realtime is enabled without an auth token.
	ErrRealtimeTokenMissing = errors.New("realtime token missing")
)

// Merge combines the two fragments into one immutable Configuration.
// It is best-effort over whatever fragments are present: a nil fragment or a
// fragment missing required fields surfaces a build error, and all problems
// are reported together.
func Merge(global *GlobalFragment, tenant *TenantFragment) (*Configuration, error) {
	var errs []error

	if global == nil {
		errs = append(errs, ErrGlobalFragmentMissing)
	}
	if tenant == nil {
		errs = append(errs, ErrTenantFragmentMissing)
	} else {
		if tenant.TenantID == "" {
			errs = append(errs, ErrTenantIDMissing)
		}
		if tenant.RealtimeEnabled && tenant.RealtimeToken == "" {
			errs = append(errs, ErrRealtimeTokenMissing)
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("build configuration: %w", errors.Join(errs...))
	}

	// Tenant event definitions override core definitions of the same name.
	events := make(map[string]EventSettings, len(global.CoreEvents)+len(tenant.Events))
	for name, settings := range global.CoreEvents {
		events[name] = copyEventSettings(settings)
	}
	for name, settings := range tenant.Events {
		events[name] = copyEventSettings(settings)
	}

	return &Configuration{
		tenantID:        tenant.TenantID,
		siteID:          tenant.SiteID,
		logsEndpoint:    global.LogsEndpoint,
		realtimeGateway: global.RealtimeGateway,
		realtimeToken:   tenant.RealtimeToken,
		realtimeEnabled: tenant.RealtimeEnabled,
		events:          events,
	}, nil
}

// copyEventSettings deep-copies settings so the Configuration never aliases
// fragment maps.
func copyEventSettings(s EventSettings) EventSettings {
	params := make(map[string]ParameterSettings, len(s.Parameters))
	for name, p := range s.Parameters {
		params[name] = p
	}
	s.Parameters = params
	return s
}
