package modules

import (
	"context"
	"sync"
)

type orgModule struct {
	orgID  int64
	module Module
}

// MemoryRegistry is an in-memory Store for tests and local development.
type MemoryRegistry struct {
	mu      sync.RWMutex
	enabled map[orgModule]bool
}

// NewMemoryRegistry creates an empty registry; every module starts disabled.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{enabled: make(map[orgModule]bool)}
}

// IsModuleEnabled implements Registry.
func (m *MemoryRegistry) IsModuleEnabled(ctx context.Context, orgID int64, module Module) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled[orgModule{orgID: orgID, module: module}], nil
}

// List returns the stored rows for orgID.
func (m *MemoryRegistry) List(ctx context.Context, orgID int64) (map[Module]bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[Module]bool)
	for key, enabled := range m.enabled {
		if key.orgID == orgID {
			out[key.module] = enabled
		}
	}
	return out, nil
}

// Set stores the enablement of module for orgID.
func (m *MemoryRegistry) Set(ctx context.Context, orgID int64, module Module, enabled bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !module.Valid() {
		return ErrUnknownModule
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled[orgModule{orgID: orgID, module: module}] = enabled
	return nil
}
