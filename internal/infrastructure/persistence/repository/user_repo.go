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

const userColumns = `id, company_id, name, email, role, rule_id, created_at`

// UserRepository implements port.UserRepository
type UserRepository struct {
	db     *sqlstore.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sqlstore.DB, logger *zap.Logger) port.UserRepository {
	return &UserRepository{db: db, logger: logger}
}

// Create inserts a user. A duplicate email yields entity.ErrConflict.
func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	query := r.db.Rebind(`
		INSERT INTO users (company_id, name, email, role, rule_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	err := r.db.Executor(ctx).QueryRowContext(ctx, query,
		user.CompanyID,
		user.Name,
		user.Email,
		user.Role,
		nullInt64(user.RuleID),
		user.CreatedAt,
	).Scan(&user.ID)
	if sqlstore.IsUniqueViolation(err) {
		return fmt.Errorf("%w: email %s is already registered", entity.ErrConflict, user.Email)
	}
	if err != nil {
		r.logger.Error("Failed to create user", zap.String("email", user.Email), zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	query := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE id = ?`)
	user, err := scanUser(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	query := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE email = ?`)
	user, err := scanUser(r.db.Executor(ctx).QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// ListByCompany lists a company's users ordered by ID
func (r *UserRepository) ListByCompany(ctx context.Context, companyID int64) ([]*entity.User, error) {
	query := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE company_id = ? ORDER BY id`)
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*entity.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// AssignRule binds a rule to a user for future submissions
func (r *UserRepository) AssignRule(ctx context.Context, userID, ruleID int64) error {
	query := r.db.Rebind(`UPDATE users SET rule_id = ? WHERE id = ?`)
	result, err := r.db.Executor(ctx).ExecContext(ctx, query, ruleID, userID)
	if err != nil {
		r.logger.Error("Failed to assign rule", zap.Int64("user_id", userID), zap.Int64("rule_id", ruleID), zap.Error(err))
		return fmt.Errorf("failed to assign rule: %w", err)
	}
	return requireRowsAffected(result, "user", userID)
}

func scanUser(s scanner) (*entity.User, error) {
	var u entity.User
	var ruleID sql.NullInt64
	if err := s.Scan(&u.ID, &u.CompanyID, &u.Name, &u.Email, &u.Role, &ruleID, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.RuleID = int64Ptr(ruleID)
	return &u, nil
}

var _ port.UserRepository = (*UserRepository)(nil)
