package grants

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerdesk/ledgerdesk/internal/authz"
	"github.com/ledgerdesk/ledgerdesk/internal/platform/db"
)

const uniqueViolation = "23505"

// PostgresStore keeps grants in the role_permissions table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// HasGrant checks a single triple. One statement means one snapshot.
func (s *PostgresStore) HasGrant(ctx context.Context, role authz.Role, resource authz.Resource, action authz.Action) (bool, error) {
	const query = `SELECT EXISTS (
	SELECT 1 FROM role_permissions WHERE role = $1 AND resource = $2 AND action = $3
)`
	var exists bool
	if err := s.pool.QueryRow(ctx, query, role.String(), string(resource), string(action)).Scan(&exists); err != nil {
		return false, fmt.Errorf("grants: has grant: %w", err)
	}
	return exists, nil
}

// RoleGrants returns the grant set for role. Rows with values outside the
// known enumerations are skipped.
func (s *PostgresStore) RoleGrants(ctx context.Context, role authz.Role) ([]authz.Grant, error) {
	rows, err := s.pool.Query(ctx, `SELECT role, resource, action FROM role_permissions WHERE role = $1 ORDER BY resource, action`, role.String())
	if err != nil {
		return nil, fmt.Errorf("grants: role grants: %w", err)
	}
	defer rows.Close()
	return scanGrants(rows)
}

// List returns every stored grant.
func (s *PostgresStore) List(ctx context.Context) ([]authz.Grant, error) {
	rows, err := s.pool.Query(ctx, `SELECT role, resource, action FROM role_permissions ORDER BY role, resource, action`)
	if err != nil {
		return nil, fmt.Errorf("grants: list: %w", err)
	}
	defer rows.Close()
	return scanGrants(rows)
}

// Insert stores a new grant.
func (s *PostgresStore) Insert(ctx context.Context, grant authz.Grant) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO role_permissions (role, resource, action) VALUES ($1, $2, $3)`,
		grant.Role.String(), string(grant.Resource), string(grant.Action))
	return insertError(err)
}

// insertError maps a unique violation to ErrDuplicate.
func insertError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return fmt.Errorf("grants: insert: %w", err)
}

// Delete removes a grant. Returns ErrNotFound if nothing was deleted.
func (s *PostgresStore) Delete(ctx context.Context, grant authz.Grant) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM role_permissions WHERE role = $1 AND resource = $2 AND action = $3`,
		grant.Role.String(), string(grant.Resource), string(grant.Action))
	if err != nil {
		return fmt.Errorf("grants: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceRole deletes the rows of role and copies set in, inside one
// transaction, so readers see either the old or the new set.
func (s *PostgresStore) ReplaceRole(ctx context.Context, role authz.Role, set []authz.Grant) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role = $1`, role.String()); err != nil {
			return fmt.Errorf("grants: replace delete: %w", err)
		}
		if len(set) == 0 {
			return nil
		}
		rows := make([][]any, 0, len(set))
		for _, g := range set {
			rows = append(rows, []any{g.Role.String(), string(g.Resource), string(g.Action)})
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"role_permissions"}, []string{"role", "resource", "action"}, pgx.CopyFromRows(rows)); err != nil {
			return fmt.Errorf("grants: replace copy: %w", err)
		}
		return nil
	})
}

type grantRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanGrants(rows grantRows) ([]authz.Grant, error) {
	var out []authz.Grant
	for rows.Next() {
		var role, resource, action string
		if err := rows.Scan(&role, &resource, &action); err != nil {
			return nil, fmt.Errorf("grants: scan: %w", err)
		}
		g := authz.Grant{
			Role:     authz.ParseRole(role),
			Resource: authz.ParseResource(resource),
			Action:   authz.ParseAction(action),
		}
		if !g.Valid() {
			continue
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("grants: rows: %w", err)
	}
	return out, nil
}
