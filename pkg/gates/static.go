package gates

import (
	"context"
	"sync"
)

// StaticSecurityGate holds grants in memory. Suitable for tests and for
// single-node deployments without a Redis backend.
type StaticSecurityGate struct {
	mu       sync.RWMutex
	grants   map[string]struct{}
	allowAll bool
}

// NewStaticSecurityGate returns a gate that denies everything until grants
// are added.
func NewStaticSecurityGate() *StaticSecurityGate {
	return &StaticSecurityGate{grants: make(map[string]struct{})}
}

// NewAllowAllSecurityGate returns a gate that admits every execution.
func NewAllowAllSecurityGate() *StaticSecurityGate {
	return &StaticSecurityGate{grants: make(map[string]struct{}), allowAll: true}
}

func (g *StaticSecurityGate) CanExecute(_ context.Context, tenantID, workflowID string) (bool, error) {
	if g.allowAll {
		return true, nil
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	_, ok := g.grants[grantKey(tenantID, workflowID)]

	return ok, nil
}

func (g *StaticSecurityGate) Grant(tenantID, workflowID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.grants[grantKey(tenantID, workflowID)] = struct{}{}
}

func (g *StaticSecurityGate) Revoke(tenantID, workflowID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.grants, grantKey(tenantID, workflowID))
}
