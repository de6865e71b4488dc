package database

import (
	"context"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/sqlite3/*.sql migrations/postgres/*.sql
var migrations embed.FS

// goose keeps its dialect and filesystem in package globals
var gooseMu sync.Mutex

// Migrator applies the embedded schema migrations for the connection's dialect
type Migrator struct {
	db     *DB
	logger *zap.Logger
}

// NewMigrator creates a new migrator
func NewMigrator(db *DB, logger *zap.Logger) *Migrator {
	return &Migrator{db: db, logger: logger}
}

// Up applies all pending migrations
func (m *Migrator) Up(ctx context.Context) error {
	return m.run(ctx, func(dir string) error {
		return goose.UpContext(ctx, m.db.DB, dir)
	})
}

// Down rolls back the given number of migrations
func (m *Migrator) Down(ctx context.Context, steps int) error {
	return m.run(ctx, func(dir string) error {
		for i := 0; i < steps; i++ {
			if err := goose.DownContext(ctx, m.db.DB, dir); err != nil {
				return err
			}
		}
		return nil
	})
}

// Version returns the current schema version
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	var version int64
	err := m.run(ctx, func(string) error {
		v, err := goose.GetDBVersionContext(ctx, m.db.DB)
		version = v
		return err
	})
	return version, err
}

func (m *Migrator) run(ctx context.Context, fn func(dir string) error) error {
	dialect, dir, err := migrationSource(m.db.driver)
	if err != nil {
		return err
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{m.logger.Sugar()})
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	m.logger.Info("Running database migrations", zap.String("dialect", dialect), zap.String("dir", dir))
	if err := fn(dir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func migrationSource(driver string) (dialect, dir string, err error) {
	switch driver {
	case DriverSQLite:
		return "sqlite3", "migrations/sqlite3", nil
	case DriverPostgres:
		return "postgres", "migrations/postgres", nil
	}
	return "", "", fmt.Errorf("no migrations for driver %q", driver)
}

// gooseLogger routes goose output through zap
type gooseLogger struct {
	s *zap.SugaredLogger
}

func (l gooseLogger) Printf(format string, v ...interface{}) { l.s.Infof(format, v...) }
func (l gooseLogger) Fatalf(format string, v ...interface{}) { l.s.Fatalf(format, v...) }
