package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/garyjia/expense-approval/internal/infrastructure/persistence/sqlstore"
	"go.uber.org/zap"
)

const claimColumns = `id, owner_id, company_id, description, status, local_currency_code,
	total_amount_local, exchange_rate, total_amount_company_currency, rule_id,
	submitted_at, updated_at`

// ClaimRepository implements port.ClaimRepository
type ClaimRepository struct {
	db     *sqlstore.DB
	logger *zap.Logger
}

// NewClaimRepository creates a new claim repository
func NewClaimRepository(db *sqlstore.DB, logger *zap.Logger) port.ClaimRepository {
	return &ClaimRepository{db: db, logger: logger}
}

// Create inserts the claim and its lines, setting their IDs
func (r *ClaimRepository) Create(ctx context.Context, claim *entity.Claim) error {
	return r.db.WithTransaction(ctx, func(ctx context.Context) error {
		exec := r.db.Executor(ctx)

		query := r.db.Rebind(`
			INSERT INTO claims (
				owner_id, company_id, description, status, local_currency_code,
				total_amount_local, exchange_rate, total_amount_company_currency,
				rule_id, submitted_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id
		`)
		err := exec.QueryRowContext(ctx, query,
			claim.OwnerID,
			claim.CompanyID,
			claim.Description,
			claim.Status,
			claim.LocalCurrencyCode,
			claim.TotalLocal,
			claim.ExchangeRate,
			claim.TotalCompany,
			nullInt64(claim.RuleID),
			claim.SubmittedAt,
			claim.UpdatedAt,
		).Scan(&claim.ID)
		if err != nil {
			r.logger.Error("Failed to create claim", zap.Int64("owner_id", claim.OwnerID), zap.Error(err))
			return fmt.Errorf("failed to create claim: %w", err)
		}

		lineQuery := r.db.Rebind(`
			INSERT INTO claim_lines (
				claim_id, category, vendor, expense_date, amount_local, description, receipt_url
			) VALUES (?, ?, ?, ?, ?, ?, ?)
			RETURNING id
		`)
		for _, line := range claim.Lines {
			line.ClaimID = claim.ID
			err := exec.QueryRowContext(ctx, lineQuery,
				line.ClaimID,
				line.Category,
				line.Vendor,
				line.ExpenseDate,
				line.Amount,
				line.Description,
				line.ReceiptURL,
			).Scan(&line.ID)
			if err != nil {
				return fmt.Errorf("failed to create claim line: %w", err)
			}
		}
		return nil
	})
}

// GetByID retrieves a claim header by ID
func (r *ClaimRepository) GetByID(ctx context.Context, id int64) (*entity.Claim, error) {
	return r.get(ctx, `SELECT `+claimColumns+` FROM claims WHERE id = ?`, id)
}

// GetForUpdate retrieves a claim header and locks the row on PostgreSQL
func (r *ClaimRepository) GetForUpdate(ctx context.Context, id int64) (*entity.Claim, error) {
	if !sqlstore.InTransaction(ctx) {
		return nil, fmt.Errorf("GetForUpdate requires a transaction")
	}
	return r.get(ctx, `SELECT `+claimColumns+` FROM claims WHERE id = ?`+r.db.ForUpdate(), id)
}

func (r *ClaimRepository) get(ctx context.Context, query string, id int64) (*entity.Claim, error) {
	claim, err := scanClaim(r.db.Executor(ctx).QueryRowContext(ctx, r.db.Rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get claim", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}
	return claim, nil
}

// GetLines retrieves the lines of a claim in insertion order
func (r *ClaimRepository) GetLines(ctx context.Context, claimID int64) ([]*entity.ClaimLine, error) {
	query := r.db.Rebind(`
		SELECT id, claim_id, category, vendor, expense_date, amount_local, description, receipt_url
		FROM claim_lines
		WHERE claim_id = ?
		ORDER BY id
	`)
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to get claim lines: %w", err)
	}
	defer rows.Close()

	lines := []*entity.ClaimLine{}
	for rows.Next() {
		var l entity.ClaimLine
		if err := rows.Scan(&l.ID, &l.ClaimID, &l.Category, &l.Vendor, &l.ExpenseDate, &l.Amount, &l.Description, &l.ReceiptURL); err != nil {
			return nil, fmt.Errorf("failed to scan claim line: %w", err)
		}
		lines = append(lines, &l)
	}
	return lines, rows.Err()
}

// ListByOwner lists a user's claims, newest first
func (r *ClaimRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*entity.Claim, error) {
	return r.list(ctx, `SELECT `+claimColumns+` FROM claims WHERE owner_id = ? ORDER BY submitted_at DESC, id DESC`, ownerID)
}

// ListByStatus lists a company's claims in status, oldest first
func (r *ClaimRepository) ListByStatus(ctx context.Context, companyID int64, status string) ([]*entity.Claim, error) {
	return r.list(ctx, `SELECT `+claimColumns+` FROM claims WHERE company_id = ? AND status = ? ORDER BY submitted_at, id`, companyID, status)
}

func (r *ClaimRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.Claim, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		r.logger.Error("Failed to list claims", zap.Error(err))
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	defer rows.Close()

	claims := []*entity.Claim{}
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		claims = append(claims, claim)
	}
	return claims, rows.Err()
}

// UpdateStatus sets a claim's status
func (r *ClaimRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	query := r.db.Rebind(`UPDATE claims SET status = ?, updated_at = ? WHERE id = ?`)
	result, err := r.db.Executor(ctx).ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to update claim status", zap.Int64("id", id), zap.String("status", status), zap.Error(err))
		return fmt.Errorf("failed to update claim status: %w", err)
	}
	return requireRowsAffected(result, "claim", id)
}

func scanClaim(s scanner) (*entity.Claim, error) {
	var c entity.Claim
	var ruleID sql.NullInt64
	err := s.Scan(
		&c.ID,
		&c.OwnerID,
		&c.CompanyID,
		&c.Description,
		&c.Status,
		&c.LocalCurrencyCode,
		&c.TotalLocal,
		&c.ExchangeRate,
		&c.TotalCompany,
		&ruleID,
		&c.SubmittedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.RuleID = int64Ptr(ruleID)
	return &c, nil
}

var _ port.ClaimRepository = (*ClaimRepository)(nil)
