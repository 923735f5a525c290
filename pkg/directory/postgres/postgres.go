// Package postgres provides a PostgreSQL-backed user directory.
// It uses pgx/v5 for connection pooling and stores user attributes
// as JSONB.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/francescomari/portier/pkg/auth"
	"github.com/francescomari/portier/pkg/directory"
)

// Directory is a PostgreSQL-backed user directory.
type Directory struct {
	pool *pgxpool.Pool
}

// Ensure Directory implements directory.Lookup at compile time.
var _ directory.Lookup = (*Directory)(nil)

// New creates a new PostgreSQL directory with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Directory, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connectivity.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	d := &Directory{pool: pool}

	if cfg.MigrateOnStart {
		if err := d.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return d, nil
}

// User returns the record for name. Unknown names map to
// directory.ErrUserNotFound; infrastructure failures are reported as
// auth.ErrBackendUnavailable so resolution failures stay
// distinguishable from a broken database.
func (d *Directory) User(ctx context.Context, name string) (*directory.User, error) {
	var (
		user           directory.User
		attributesJSON []byte
	)

	err := d.pool.QueryRow(ctx, `
		SELECT name, password_hash, disabled, impersonators, attributes
		FROM users
		WHERE name = $1`,
		name,
	).Scan(&user.Name, &user.PasswordHash, &user.Disabled, &user.Impersonators, &attributesJSON)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", directory.ErrUserNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: querying user: %v", auth.ErrBackendUnavailable, err)
	}

	if len(attributesJSON) > 0 {
		if err := json.Unmarshal(attributesJSON, &user.Attributes); err != nil {
			return nil, fmt.Errorf("unmarshaling attributes for %q: %w", name, err)
		}
	}

	return &user, nil
}

// UpsertUser creates or replaces a user record.
func (d *Directory) UpsertUser(ctx context.Context, user *directory.User) error {
	var attributesJSON []byte
	if user.Attributes != nil {
		b, err := json.Marshal(user.Attributes)
		if err != nil {
			return fmt.Errorf("marshaling attributes: %w", err)
		}
		attributesJSON = b
	}

	impersonators := user.Impersonators
	if impersonators == nil {
		impersonators = []string{}
	}

	_, err := d.pool.Exec(ctx, `
		INSERT INTO users (name, password_hash, disabled, impersonators, attributes, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (name) DO UPDATE SET
			password_hash = EXCLUDED.password_hash,
			disabled = EXCLUDED.disabled,
			impersonators = EXCLUDED.impersonators,
			attributes = EXCLUDED.attributes,
			updated_at = now()`,
		user.Name, user.PasswordHash, user.Disabled, impersonators, nullJSON(attributesJSON),
	)
	if err != nil {
		return fmt.Errorf("%w: upserting user: %v", auth.ErrBackendUnavailable, err)
	}

	return nil
}

// DeleteUser removes a user record. Deleting an unknown user returns
// directory.ErrUserNotFound.
func (d *Directory) DeleteUser(ctx context.Context, name string) error {
	result, err := d.pool.Exec(ctx, "DELETE FROM users WHERE name = $1", name)
	if err != nil {
		return fmt.Errorf("%w: deleting user: %v", auth.ErrBackendUnavailable, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", directory.ErrUserNotFound, name)
	}

	return nil
}

// HealthCheck verifies the database connection.
func (d *Directory) HealthCheck(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

// Close releases the connection pool.
func (d *Directory) Close() error {
	d.pool.Close()
	return nil
}

// nullJSON converts nil/empty byte slices to nil for nullable JSONB columns.
func nullJSON(b []byte) *[]byte {
	if len(b) == 0 {
		return nil
	}
	return &b
}
