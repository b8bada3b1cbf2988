package config

import "sync"

// FragmentRepository holds the fragments written by the concurrent fetch
// tasks. Writes replace the whole fragment; there are no partial edits.
type FragmentRepository struct {
	mu     sync.RWMutex
	global *GlobalFragment
	tenant *TenantFragment
}

// NewFragmentRepository creates an empty repository.
func NewFragmentRepository() *FragmentRepository {
	return &FragmentRepository{}
}

// SetGlobal stores the global fragment.
func (r *FragmentRepository) SetGlobal(f *GlobalFragment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.global = f
}

// SetTenant stores the tenant fragment.
func (r *FragmentRepository) SetTenant(f *TenantFragment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tenant = f
}

// Global returns the last stored global fragment, or nil.
func (r *FragmentRepository) Global() *GlobalFragment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.global
}

// Tenant returns the last stored tenant fragment, or nil.
func (r *FragmentRepository) Tenant() *TenantFragment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tenant
}

// Clear drops both fragments. Used between bootstrap attempts in tests.
func (r *FragmentRepository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.global = nil
	r.tenant = nil
}

// Store holds the last-known merged Configuration.
// The value is replaced whole on each successful bootstrap and never
// mutated in place.
type Store struct {
	mu      sync.RWMutex
	current *Configuration
}

// NewStore creates an empty configuration store.
func NewStore() *Store {
	return &Store{}
}

// Replace installs a new Configuration, superseding any previous one.
func (s *Store) Replace(cfg *Configuration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = cfg
}

// Current returns the last-known Configuration, or nil before bootstrap.
func (s *Store) Current() *Configuration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}
