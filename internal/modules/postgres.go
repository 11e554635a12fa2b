package modules

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRegistry reads organization_modules.
type PostgresRegistry struct {
	pool *pgxpool.Pool
}

// NewPostgresRegistry constructs a PostgresRegistry.
func NewPostgresRegistry(pool *pgxpool.Pool) *PostgresRegistry {
	return &PostgresRegistry{pool: pool}
}

// IsModuleEnabled implements Registry.
func (r *PostgresRegistry) IsModuleEnabled(ctx context.Context, orgID int64, module Module) (bool, error) {
	if !module.Valid() {
		return false, nil
	}
	var enabled bool
	err := r.pool.QueryRow(ctx, `SELECT enabled FROM organization_modules WHERE organization_id = $1 AND module = $2`, orgID, string(module)).Scan(&enabled)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("modules: is enabled: %w", err)
	}
	return enabled, nil
}

// List returns the stored enablement rows for orgID.
func (r *PostgresRegistry) List(ctx context.Context, orgID int64) (map[Module]bool, error) {
	rows, err := r.pool.Query(ctx, `SELECT module, enabled FROM organization_modules WHERE organization_id = $1`, orgID)
	if err != nil {
		return nil, fmt.Errorf("modules: list: %w", err)
	}
	defer rows.Close()
	return scanModules(rows)
}

type moduleRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// scanModules reads (module, enabled) rows. Unknown module names are
// skipped so a stale row can never enable anything.
func scanModules(rows moduleRows) (map[Module]bool, error) {
	out := make(map[Module]bool)
	for rows.Next() {
		var (
			raw     string
			enabled bool
		)
		if err := rows.Scan(&raw, &enabled); err != nil {
			return nil, fmt.Errorf("modules: scan: %w", err)
		}
		if m := Parse(raw); m.Valid() {
			out[m] = enabled
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("modules: rows: %w", err)
	}
	return out, nil
}

// Set upserts the enablement of module for orgID.
func (r *PostgresRegistry) Set(ctx context.Context, orgID int64, module Module, enabled bool) error {
	if !module.Valid() {
		return ErrUnknownModule
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO organization_modules (organization_id, module, enabled, updated_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (organization_id, module) DO UPDATE SET enabled = EXCLUDED.enabled, updated_at = NOW()`,
		orgID, string(module), enabled)
	if err != nil {
		return fmt.Errorf("modules: set: %w", err)
	}
	return nil
}
