// Package testutil builds migrated SQLite stores for package tests.
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/garyjia/expense-approval/internal/infrastructure/persistence/repository"
	"github.com/garyjia/expense-approval/internal/infrastructure/persistence/sqlstore"
	"github.com/garyjia/expense-approval/pkg/database"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Store is a migrated database with every repository wired
type Store struct {
	DB        *sqlstore.DB
	Companies port.CompanyRepository
	Users     port.UserRepository
	Rules     port.RuleRepository
	Claims    port.ClaimRepository
	Decisions port.DecisionRepository
}

// NewStore opens a fresh SQLite database under t.TempDir and migrates it
func NewStore(t *testing.T) *Store {
	t.Helper()
	logger := zap.NewNop()

	db, err := database.New(database.Config{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "test.db"),
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.NewMigrator(db, logger).Up(context.Background()))

	store := sqlstore.NewDB(db, logger)
	return &Store{
		DB:        store,
		Companies: repository.NewCompanyRepository(store, logger),
		Users:     repository.NewUserRepository(store, logger),
		Rules:     repository.NewRuleRepository(store, logger),
		Claims:    repository.NewClaimRepository(store, logger),
		Decisions: repository.NewDecisionRepository(store, logger),
	}
}

// Company inserts a company with the given currency
func (s *Store) Company(t *testing.T, currency string) *entity.Company {
	t.Helper()
	c := &entity.Company{Name: "Acme " + currency, DefaultCurrencyCode: currency, CreatedAt: time.Now().UTC()}
	require.NoError(t, s.Companies.Create(context.Background(), c))
	return c
}

// User inserts a user with a unique email
func (s *Store) User(t *testing.T, companyID int64, name, role string) *entity.User {
	t.Helper()
	u := &entity.User{
		CompanyID: companyID,
		Name:      name,
		Email:     fmt.Sprintf("%s.%d.%d@example.test", name, companyID, time.Now().UnixNano()),
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.Users.Create(context.Background(), u))
	return u
}

// Rule inserts an active rule
func (s *Store) Rule(t *testing.T, companyID int64, percentage int, required []int64, ordinary ...entity.OrdinaryApprover) *entity.Rule {
	t.Helper()
	r := &entity.Rule{
		CompanyID:           companyID,
		Name:                "rule",
		IsActive:            true,
		Percentage:          percentage,
		RequiredApproverIDs: required,
		OrdinaryApprovers:   ordinary,
		CreatedAt:           time.Now().UTC(),
	}
	require.NoError(t, s.Rules.Create(context.Background(), r))
	return r
}
