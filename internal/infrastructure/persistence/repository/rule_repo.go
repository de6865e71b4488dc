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

const ruleColumns = `id, company_id, name, description, is_active, approval_percentage, threshold_amount, created_at`

// RuleRepository implements port.RuleRepository. A rule and its two approver
// pools are written together and always read back together.
type RuleRepository struct {
	db     *sqlstore.DB
	logger *zap.Logger
}

// NewRuleRepository creates a new rule repository
func NewRuleRepository(db *sqlstore.DB, logger *zap.Logger) port.RuleRepository {
	return &RuleRepository{db: db, logger: logger}
}

// Create inserts the rule with both pools
func (r *RuleRepository) Create(ctx context.Context, rule *entity.Rule) error {
	return r.db.WithTransaction(ctx, func(ctx context.Context) error {
		exec := r.db.Executor(ctx)

		query := r.db.Rebind(`
			INSERT INTO approval_rules (
				company_id, name, description, is_active,
				approval_percentage, threshold_amount, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?)
			RETURNING id
		`)
		err := exec.QueryRowContext(ctx, query,
			rule.CompanyID,
			rule.Name,
			rule.Description,
			rule.IsActive,
			rule.Percentage,
			rule.ThresholdAmount,
			rule.CreatedAt,
		).Scan(&rule.ID)
		if err != nil {
			r.logger.Error("Failed to create rule", zap.String("name", rule.Name), zap.Error(err))
			return fmt.Errorf("failed to create rule: %w", err)
		}

		requiredQuery := r.db.Rebind(`INSERT INTO rule_required_approvers (rule_id, user_id) VALUES (?, ?)`)
		for _, userID := range rule.RequiredApproverIDs {
			if _, err := exec.ExecContext(ctx, requiredQuery, rule.ID, userID); err != nil {
				return fmt.Errorf("failed to add required approver %d: %w", userID, err)
			}
		}

		ordinaryQuery := r.db.Rebind(`INSERT INTO rule_ordinary_approvers (rule_id, user_id, sequence) VALUES (?, ?, ?)`)
		for _, o := range rule.OrdinaryApprovers {
			if _, err := exec.ExecContext(ctx, ordinaryQuery, rule.ID, o.UserID, o.Sequence); err != nil {
				if sqlstore.IsUniqueViolation(err) {
					return fmt.Errorf("%w: duplicate ordinary approver or sequence in rule", entity.ErrValidation)
				}
				return fmt.Errorf("failed to add ordinary approver %d: %w", o.UserID, err)
			}
		}
		return nil
	})
}

// GetByID retrieves a rule with its pools
func (r *RuleRepository) GetByID(ctx context.Context, id int64) (*entity.Rule, error) {
	query := r.db.Rebind(`SELECT ` + ruleColumns + ` FROM approval_rules WHERE id = ?`)
	rule, err := scanRule(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get rule", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}

	if err := r.loadPools(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// ListByCompany lists a company's rules ordered by ID
func (r *RuleRepository) ListByCompany(ctx context.Context, companyID int64) ([]*entity.Rule, error) {
	query := r.db.Rebind(`SELECT ` + ruleColumns + ` FROM approval_rules WHERE company_id = ? ORDER BY id`)
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}

	var rules []*entity.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// pools are loaded after the cursor is released; a single-connection
	// transaction cannot run a second query while rows are open
	rows.Close()

	for _, rule := range rules {
		if err := r.loadPools(ctx, rule); err != nil {
			return nil, err
		}
	}
	return rules, nil
}

func (r *RuleRepository) loadPools(ctx context.Context, rule *entity.Rule) error {
	exec := r.db.Executor(ctx)

	rows, err := exec.QueryContext(ctx,
		r.db.Rebind(`SELECT user_id FROM rule_required_approvers WHERE rule_id = ? ORDER BY user_id`), rule.ID)
	if err != nil {
		return fmt.Errorf("failed to load required approvers: %w", err)
	}
	rule.RequiredApproverIDs = []int64{}
	for rows.Next() {
		var userID int64
		if err := rows.Scan(&userID); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan required approver: %w", err)
		}
		rule.RequiredApproverIDs = append(rule.RequiredApproverIDs, userID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = exec.QueryContext(ctx,
		r.db.Rebind(`SELECT user_id, sequence FROM rule_ordinary_approvers WHERE rule_id = ? ORDER BY sequence`), rule.ID)
	if err != nil {
		return fmt.Errorf("failed to load ordinary approvers: %w", err)
	}
	defer rows.Close()
	rule.OrdinaryApprovers = []entity.OrdinaryApprover{}
	for rows.Next() {
		var o entity.OrdinaryApprover
		if err := rows.Scan(&o.UserID, &o.Sequence); err != nil {
			return fmt.Errorf("failed to scan ordinary approver: %w", err)
		}
		rule.OrdinaryApprovers = append(rule.OrdinaryApprovers, o)
	}
	return rows.Err()
}

func scanRule(s scanner) (*entity.Rule, error) {
	var rule entity.Rule
	err := s.Scan(
		&rule.ID,
		&rule.CompanyID,
		&rule.Name,
		&rule.Description,
		&rule.IsActive,
		&rule.Percentage,
		&rule.ThresholdAmount,
		&rule.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

var _ port.RuleRepository = (*RuleRepository)(nil)
