package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/autentica/marketplace/internal/domain"
)

// AuditStore implements domain.AuditStore using PostgreSQL.
type AuditStore struct {
	pool *pgxpool.Pool
}

// NewAuditStore creates an AuditStore backed by the given pool.
func NewAuditStore(pool *pgxpool.Pool) *AuditStore {
	return &AuditStore{pool: pool}
}

// Log records one administrative action with free-form details.
func (s *AuditStore) Log(ctx context.Context, action string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("postgres: marshal audit details: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		"INSERT INTO audit_log (action, details) VALUES ($1, $2)",
		action, payload,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert audit entry: %w", err)
	}
	return nil
}

var _ domain.AuditStore = (*AuditStore)(nil)
