// Package tenant supplies per-realm configuration overrides that are merged
// over the process-wide defaults.
package tenant

import (
	"context"
	"maps"
	"sync"
)

// Provider returns the raw key/value overrides stored for a realm. A realm
// with no overrides yields an empty map and a nil error.
type Provider interface {
	Overrides(ctx context.Context, realmID string) (map[string]string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, realmID string) (map[string]string, error)

// Overrides implements Provider.
func (f ProviderFunc) Overrides(ctx context.Context, realmID string) (map[string]string, error) {
	return f(ctx, realmID)
}

// compile-time interface check
var _ Provider = (*Static)(nil)

// Static is an in-memory Provider.
type Static struct {
	mu     sync.RWMutex
	realms map[string]map[string]string
}

// NewStatic creates an empty in-memory provider.
func NewStatic() *Static {
	return &Static{realms: make(map[string]map[string]string)}
}

// Set replaces the overrides for realmID.
func (s *Static) Set(realmID string, overrides map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.realms[realmID] = maps.Clone(overrides)
}

// Delete removes the overrides for realmID.
func (s *Static) Delete(realmID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.realms, realmID)
}

// Overrides implements Provider.
func (s *Static) Overrides(_ context.Context, realmID string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := maps.Clone(s.realms[realmID])
	if out == nil {
		out = map[string]string{}
	}
	return out, nil
}
