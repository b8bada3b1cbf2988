// Package config models the SDK's remote configuration: the two fetched
// fragments, the merge that combines them, and the immutable Configuration
// value the rest of the SDK reads.
package config

// ParameterSettings describes one declared event parameter.
type ParameterSettings struct {
	// Type is the declared value type: "string", "number", or "boolean".
	Type string `yaml:"type" json:"type"`

	// Mandatory marks the parameter as required for the event to validate.
	Mandatory bool `yaml:"mandatory" json:"mandatory"`
}

// EventSettings describes one event as defined by the remote service.
type EventSettings struct {
	// ID is the numeric event identifier assigned by the backend.
	ID int `yaml:"id" json:"id"`

	// SupportedOnRealtime marks the event as deliverable to the realtime channel.
	SupportedOnRealtime bool `yaml:"supported_on_realtime" json:"supported_on_realtime"`

	// SupportedOnOptitrack marks the event as deliverable to the tracking channel.
	SupportedOnOptitrack bool `yaml:"supported_on_optitrack" json:"supported_on_optitrack"`

	// Parameters declares the event's parameter schema, keyed by name.
	Parameters map[string]ParameterSettings `yaml:"parameters" json:"parameters"`
}

// GlobalFragment is the tenant-independent configuration fragment.
type GlobalFragment struct {
	LogsEndpoint    string                   `yaml:"logs_endpoint" json:"logs_endpoint"`
	RealtimeGateway string                   `yaml:"realtime_gateway" json:"realtime_gateway"`
	CoreEvents      map[string]EventSettings `yaml:"core_events" json:"core_events"`
}

// TenantFragment is the per-tenant configuration fragment.
type TenantFragment struct {
	TenantID        string                   `yaml:"tenant_id" json:"tenant_id"`
	SiteID          string                   `yaml:"site_id" json:"site_id"`
	RealtimeToken   string                   `yaml:"realtime_token" json:"realtime_token"`
	RealtimeEnabled bool                     `yaml:"realtime_enabled" json:"realtime_enabled"`
	Events          map[string]EventSettings `yaml:"events" json:"events"`
}

// Configuration is the merged, immutable configuration value.
// A new bootstrap cycle produces a wholly new value, never a patch.
type Configuration struct {
	tenantID        string
	siteID          string
	logsEndpoint    string
	realtimeGateway string
	realtimeToken   string
	realtimeEnabled bool
	events          map[string]EventSettings
}

// TenantID returns the tenant identifier.
func (c *Configuration) TenantID() string { return c.tenantID }

// SiteID returns the persisted site identifier.
func (c *Configuration) SiteID() string { return c.siteID }

// LogsEndpoint returns the remote logging endpoint.
func (c *Configuration) LogsEndpoint() string { return c.logsEndpoint }

// RealtimeGateway returns the realtime service gateway address.
func (c *Configuration) RealtimeGateway() string { return c.realtimeGateway }

// RealtimeToken returns the realtime authentication token.
func (c *Configuration) RealtimeToken() string { return c.realtimeToken }

// RealtimeEnabled reports whether the realtime channel is active for the tenant.
func (c *Configuration) RealtimeEnabled() bool { return c.realtimeEnabled }

// EventSettings returns the settings for a (normalized) event name.
func (c *Configuration) EventSettings(name string) (EventSettings, bool) {
	s, ok := c.events[name]
	return s, ok
}

// EventNames returns the names of all configured events.
func (c *Configuration) EventNames() []string {
	names := make([]string, 0, len(c.events))
	for name := range c.events {
		names = append(names, name)
	}
	return names
}
