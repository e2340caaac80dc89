// Package dbtest gives repository tests a migrated Postgres schema of their
// own. Tests are skipped unless POSTGRES_DSN is set.
package dbtest

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"

	"github.com/MikeMC777/tienda-commerce/internal/db"
)

const EnvDSN = "POSTGRES_DSN"

// Open creates a fresh schema, applies the migrations inside it and returns a
// pool whose search_path points there. The schema is dropped on cleanup.
func Open(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv(EnvDSN)
	if dsn == "" {
		t.Skip(EnvDSN + " not set")
	}
	ctx := context.Background()
	schema := "t_" + strings.ToLower(ulid.Make().String())

	admin, err := pgx.Connect(ctx, dsn)
	require.NoError(t, err)
	_, err = admin.Exec(ctx, "CREATE SCHEMA "+schema)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = admin.Exec(context.Background(), "DROP SCHEMA "+schema+" CASCADE")
		_ = admin.Close(context.Background())
	})

	cfg, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err)
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, db.Migrate(ctx, pool))
	return pool
}

// Account inserts an account and returns its id.
func Account(t *testing.T, pool *pgxpool.Pool, email, role, status string) int64 {
	t.Helper()
	var id int64
	require.NoError(t, pool.QueryRow(context.Background(), `
		INSERT INTO accounts (email, name, role, status) VALUES ($1, $1, $2, $3) RETURNING id
	`, email, role, status).Scan(&id))
	return id
}

// Product inserts a product owned by ownerID and returns its id.
func Product(t *testing.T, pool *pgxpool.Pool, ownerID int64, name, price string) int64 {
	t.Helper()
	var id int64
	require.NoError(t, pool.QueryRow(context.Background(), `
		INSERT INTO products (owner_id, name, price) VALUES ($1, $2, $3) RETURNING id
	`, ownerID, name, price).Scan(&id))
	return id
}
