package config

import "context"

// Source retrieves the two configuration fragments from a remote service.
// The two fetches are independent; either may fail with an opaque error.
// The HTTP implementation lives with the host application.
type Source interface {
	// FetchGlobal retrieves the tenant-independent fragment.
	FetchGlobal(ctx context.Context) (*GlobalFragment, error)

	// FetchTenant retrieves the per-tenant fragment.
	FetchTenant(ctx context.Context) (*TenantFragment, error)
}

// StaticSource serves fragments from memory. Used for the local bootstrap
// path and in tests.
type StaticSource struct {
	GlobalFragment *GlobalFragment
	TenantFragment *TenantFragment
}

// FetchGlobal implements Source.
func (s *StaticSource) FetchGlobal(ctx context.Context) (*GlobalFragment, error) {
	if s.GlobalFragment == nil {
		return nil, ErrGlobalFragmentMissing
	}
	return s.GlobalFragment, nil
}

// FetchTenant implements Source.
func (s *StaticSource) FetchTenant(ctx context.Context) (*TenantFragment, error) {
	if s.TenantFragment == nil {
		return nil, ErrTenantFragmentMissing
	}
	return s.TenantFragment, nil
}
