// Package gates provides the security, audit, and analytics hooks consulted
// by the execution engine.
package gates

import (
	"context"
	"fmt"
	"log/slog"

	redis "github.com/redis/go-redis/v9"
)

// RedisSecurityGate authorizes executions against grant keys stored in Redis.
// A grant for workflow wf-1 of tenant acme lives at caravel:grants:acme:wf-1.
// Absent key or Redis failure both deny; the gate fails closed.
type RedisSecurityGate struct {
	client redis.UniversalClient
	logger *slog.Logger
}

func NewRedisSecurityGate(client redis.UniversalClient, logger *slog.Logger) *RedisSecurityGate {
	return &RedisSecurityGate{
		client: client,
		logger: logger.With("module", "security_gate"),
	}
}

// NewRedisSecurityGateFromURL connects using a redis:// URL.
func NewRedisSecurityGateFromURL(url string, logger *slog.Logger) (*RedisSecurityGate, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	return NewRedisSecurityGate(redis.NewClient(opts), logger), nil
}

func grantKey(tenantID, workflowID string) string {
	return fmt.Sprintf("caravel:grants:%s:%s", tenantID, workflowID)
}

func (g *RedisSecurityGate) CanExecute(ctx context.Context, tenantID, workflowID string) (bool, error) {
	exists, err := g.client.Exists(ctx, grantKey(tenantID, workflowID)).Result()
	if err != nil {
		g.logger.ErrorContext(ctx, "Grant lookup failed, denying execution",
			"tenant_id", tenantID, "workflow_id", workflowID, "error", err)

		return false, fmt.Errorf("grant lookup for %s/%s: %w", tenantID, workflowID, err)
	}

	return exists > 0, nil
}

// Grant stores a grant key so executions of the workflow are allowed.
func (g *RedisSecurityGate) Grant(ctx context.Context, tenantID, workflowID string) error {
	return g.client.Set(ctx, grantKey(tenantID, workflowID), "1", 0).Err()
}

// Revoke deletes the grant key.
func (g *RedisSecurityGate) Revoke(ctx context.Context, tenantID, workflowID string) error {
	return g.client.Del(ctx, grantKey(tenantID, workflowID)).Err()
}

func (g *RedisSecurityGate) Close() error {
	return g.client.Close()
}
