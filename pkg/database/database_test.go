package database

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(Config{
		Driver: DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "test.db"),
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestDataSourceName(t *testing.T) {
	dsn, err := dataSourceName(Config{Driver: DriverSQLite, Path: "/tmp/x.db"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(dsn, "file:/tmp/x.db?"))
	assert.Contains(t, dsn, "_txlock=immediate")
	assert.Contains(t, dsn, "_foreign_keys=on")

	dsn, err = dataSourceName(Config{Driver: DriverPostgres, DSN: "postgres://u:p@localhost/db"})
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@localhost/db", dsn)

	_, err = dataSourceName(Config{Driver: DriverSQLite})
	assert.Error(t, err)
	_, err = dataSourceName(Config{Driver: DriverPostgres})
	assert.Error(t, err)
	_, err = dataSourceName(Config{Driver: "mysql", DSN: "x"})
	assert.Error(t, err)
}

func TestNew_DefaultsToSQLite(t *testing.T) {
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "default.db")}, zap.NewNop())
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, DriverSQLite, db.Driver())
}

func TestMigrator_UpAndDown(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	m := NewMigrator(db, zap.NewNop())

	require.NoError(t, m.Up(ctx))

	version, err := m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	for _, table := range []string{"companies", "users", "approval_rules", "claims", "claim_lines", "decisions"} {
		var name string
		err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
	}

	// re-running is a no-op
	require.NoError(t, m.Up(ctx))

	require.NoError(t, m.Down(ctx, 1))
	version, err = m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	var count int
	err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'claims'").Scan(&count)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMigrator_UniqueDecisionPerApprover(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, NewMigrator(db, zap.NewNop()).Up(ctx))

	stmts := []string{
		`INSERT INTO companies (name, default_currency_code, created_at) VALUES ('Acme', 'USD', CURRENT_TIMESTAMP)`,
		`INSERT INTO users (company_id, name, email, role, created_at) VALUES (1, 'A', 'a@acme.test', 'Employee', CURRENT_TIMESTAMP)`,
		`INSERT INTO claims (owner_id, company_id, status, local_currency_code, total_amount_local, exchange_rate,
			total_amount_company_currency, submitted_at, updated_at)
			VALUES (1, 1, 'Pending', 'USD', 10, 1, 10, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		`INSERT INTO decisions (claim_id, approver_id, outcome, decided_at) VALUES (1, 1, 'Approved', CURRENT_TIMESTAMP)`,
	}
	for _, stmt := range stmts {
		_, err := db.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}

	_, err := db.ExecContext(ctx, `INSERT INTO decisions (claim_id, approver_id, outcome, decided_at) VALUES (1, 1, 'Rejected', CURRENT_TIMESTAMP)`)
	assert.Error(t, err)
}
