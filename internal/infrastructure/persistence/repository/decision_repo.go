package repository

import (
	"context"
	"fmt"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/garyjia/expense-approval/internal/infrastructure/persistence/sqlstore"
	"go.uber.org/zap"
)

const decisionColumns = `id, claim_id, approver_id, outcome, comment, decided_at`

// DecisionRepository implements port.DecisionRepository
type DecisionRepository struct {
	db     *sqlstore.DB
	logger *zap.Logger
}

// NewDecisionRepository creates a new decision repository
func NewDecisionRepository(db *sqlstore.DB, logger *zap.Logger) port.DecisionRepository {
	return &DecisionRepository{db: db, logger: logger}
}

// Create inserts a decision. A second decision by the same approver on the
// same claim yields entity.ErrConflict.
func (r *DecisionRepository) Create(ctx context.Context, d *entity.Decision) error {
	query := r.db.Rebind(`
		INSERT INTO decisions (claim_id, approver_id, outcome, comment, decided_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`)

	err := r.db.Executor(ctx).QueryRowContext(ctx, query,
		d.ClaimID,
		d.ApproverID,
		d.Outcome,
		d.Comment,
		d.DecidedAt,
	).Scan(&d.ID)
	if sqlstore.IsUniqueViolation(err) {
		return fmt.Errorf("%w: user %d already decided claim %d", entity.ErrConflict, d.ApproverID, d.ClaimID)
	}
	if err != nil {
		r.logger.Error("Failed to create decision",
			zap.Int64("claim_id", d.ClaimID),
			zap.Int64("approver_id", d.ApproverID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to create decision: %w", err)
	}
	return nil
}

// ListByClaim lists a claim's decisions in the order they were made
func (r *DecisionRepository) ListByClaim(ctx context.Context, claimID int64) ([]*entity.Decision, error) {
	byClaim, err := r.ListByClaims(ctx, []int64{claimID})
	if err != nil {
		return nil, err
	}
	if decisions := byClaim[claimID]; decisions != nil {
		return decisions, nil
	}
	return []*entity.Decision{}, nil
}

// claimBatchSize caps the claim IDs bound into one IN list, well under the
// parameter limits of both drivers.
const claimBatchSize = 500

// ListByClaims lists decisions for several claims, grouped by claim ID
func (r *DecisionRepository) ListByClaims(ctx context.Context, claimIDs []int64) (map[int64][]*entity.Decision, error) {
	result := make(map[int64][]*entity.Decision, len(claimIDs))
	for start := 0; start < len(claimIDs); start += claimBatchSize {
		end := min(start+claimBatchSize, len(claimIDs))
		if err := r.listBatch(ctx, claimIDs[start:end], result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (r *DecisionRepository) listBatch(ctx context.Context, claimIDs []int64, result map[int64][]*entity.Decision) error {
	query := r.db.Rebind(`SELECT ` + decisionColumns + ` FROM decisions WHERE claim_id IN (` +
		sqlstore.Placeholders(len(claimIDs)) + `) ORDER BY decided_at, id`)
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, int64Args(claimIDs)...)
	if err != nil {
		r.logger.Error("Failed to list decisions", zap.Int("claims", len(claimIDs)), zap.Error(err))
		return fmt.Errorf("failed to list decisions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d entity.Decision
		if err := rows.Scan(&d.ID, &d.ClaimID, &d.ApproverID, &d.Outcome, &d.Comment, &d.DecidedAt); err != nil {
			return fmt.Errorf("failed to scan decision: %w", err)
		}
		result[d.ClaimID] = append(result[d.ClaimID], &d)
	}
	return rows.Err()
}

var _ port.DecisionRepository = (*DecisionRepository)(nil)
