package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/garyjia/expense-approval/internal/infrastructure/persistence/sqlstore"
	"go.uber.org/zap"
)

// CompanyRepository implements port.CompanyRepository
type CompanyRepository struct {
	db     *sqlstore.DB
	logger *zap.Logger
}

// NewCompanyRepository creates a new company repository
func NewCompanyRepository(db *sqlstore.DB, logger *zap.Logger) port.CompanyRepository {
	return &CompanyRepository{db: db, logger: logger}
}

// Create inserts a company and sets its ID
func (r *CompanyRepository) Create(ctx context.Context, company *entity.Company) error {
	query := r.db.Rebind(`
		INSERT INTO companies (name, default_currency_code, created_at)
		VALUES (?, ?, ?)
		RETURNING id
	`)

	err := r.db.Executor(ctx).QueryRowContext(ctx, query,
		company.Name,
		company.DefaultCurrencyCode,
		company.CreatedAt,
	).Scan(&company.ID)
	if err != nil {
		r.logger.Error("Failed to create company", zap.String("name", company.Name), zap.Error(err))
		return fmt.Errorf("failed to create company: %w", err)
	}
	return nil
}

// GetByID retrieves a company by ID
func (r *CompanyRepository) GetByID(ctx context.Context, id int64) (*entity.Company, error) {
	query := r.db.Rebind(`
		SELECT id, name, default_currency_code, created_at
		FROM companies
		WHERE id = ?
	`)

	var c entity.Company
	err := r.db.Executor(ctx).QueryRowContext(ctx, query, id).Scan(
		&c.ID,
		&c.Name,
		&c.DefaultCurrencyCode,
		&c.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get company", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return &c, nil
}

var _ port.CompanyRepository = (*CompanyRepository)(nil)
