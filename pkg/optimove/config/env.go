package config

import (
	"context"

	"github.com/caarlos0/env/v11"
)

// EnvOverrides carries endpoint and token overrides read from the process
// environment. Empty fields leave the fetched value untouched.
type EnvOverrides struct {
	LogsEndpoint    string `env:"OPTIMOVE_LOGS_ENDPOINT"`
	RealtimeGateway string `env:"OPTIMOVE_REALTIME_GATEWAY"`
	RealtimeToken   string `env:"OPTIMOVE_REALTIME_TOKEN"`
}

// OverridesFromEnv parses overrides from OPTIMOVE_* environment variables.
func OverridesFromEnv() (EnvOverrides, error) {
	return env.ParseAs[EnvOverrides]()
}

// Apply writes non-empty overrides onto the given fragments.
// Nil fragments are left alone.
func (o EnvOverrides) Apply(global *GlobalFragment, tenant *TenantFragment) {
	if global != nil {
		if o.LogsEndpoint != "" {
			global.LogsEndpoint = o.LogsEndpoint
		}
		if o.RealtimeGateway != "" {
			global.RealtimeGateway = o.RealtimeGateway
		}
	}
	if tenant != nil && o.RealtimeToken != "" {
		tenant.RealtimeToken = o.RealtimeToken
	}
}

// WithOverrides wraps a Source so fetched fragments have the overrides applied.
func WithOverrides(source Source, overrides EnvOverrides) Source {
	return &overrideSource{source: source, overrides: overrides}
}

type overrideSource struct {
	source    Source
	overrides EnvOverrides
}

func (s *overrideSource) FetchGlobal(ctx context.Context) (*GlobalFragment, error) {
	fragment, err := s.source.FetchGlobal(ctx)
	if err != nil {
		return nil, err
	}
	s.overrides.Apply(fragment, nil)
	return fragment, nil
}

func (s *overrideSource) FetchTenant(ctx context.Context) (*TenantFragment, error) {
	fragment, err := s.source.FetchTenant(ctx)
	if err != nil {
		return nil, err
	}
	s.overrides.Apply(nil, fragment)
	return fragment, nil
}
