package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/domain/entity"
)

// CreateRuleInput describes a new approval rule. Nil Percentage and IsActive
// take their defaults (100 and true).
type CreateRuleInput struct {
	CompanyID           int64
	Name                string
	Description         string
	Percentage          *int
	ThresholdAmount     float64
	IsActive            *bool
	RequiredApproverIDs []int64
	OrdinaryApprovers   []entity.OrdinaryApprover
}

// RuleService manages approval rules. Rules cannot be changed once created.
type RuleService interface {
	CreateRule(ctx context.Context, in CreateRuleInput) (*entity.Rule, error)
	GetRule(ctx context.Context, id int64) (*entity.Rule, error)
	ListRules(ctx context.Context, companyID int64) ([]*entity.Rule, error)
}

type ruleServiceImpl struct {
	companyRepo port.CompanyRepository
	userRepo    port.UserRepository
	ruleRepo    port.RuleRepository
	txManager   port.TransactionManager
	logger      Logger
}

// NewRuleService creates a new RuleService
func NewRuleService(
	companyRepo port.CompanyRepository,
	userRepo port.UserRepository,
	ruleRepo port.RuleRepository,
	txManager port.TransactionManager,
	logger Logger,
) RuleService {
	return &ruleServiceImpl{
		companyRepo: companyRepo,
		userRepo:    userRepo,
		ruleRepo:    ruleRepo,
		txManager:   txManager,
		logger:      logger,
	}
}

// CreateRule validates and persists a rule with both approver pools
func (s *ruleServiceImpl) CreateRule(ctx context.Context, in CreateRuleInput) (*entity.Rule, error) {
	rule := &entity.Rule{
		CompanyID:           in.CompanyID,
		Name:                strings.TrimSpace(in.Name),
		Description:         strings.TrimSpace(in.Description),
		IsActive:            true,
		Percentage:          entity.DefaultApprovalPercentage,
		ThresholdAmount:     in.ThresholdAmount,
		RequiredApproverIDs: in.RequiredApproverIDs,
		OrdinaryApprovers:   in.OrdinaryApprovers,
		CreatedAt:           time.Now().UTC(),
	}
	if in.Percentage != nil {
		rule.Percentage = *in.Percentage
	}
	if in.IsActive != nil {
		rule.IsActive = *in.IsActive
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := loadCompany(txCtx, s.companyRepo, in.CompanyID); err != nil {
			return err
		}
		for _, id := range rule.MemberIDs() {
			user, err := s.userRepo.GetByID(txCtx, id)
			if err != nil {
				return err
			}
			if user == nil || user.CompanyID != rule.CompanyID {
				return fmt.Errorf("%w: approver %d is not a member of company %d", entity.ErrValidation, id, rule.CompanyID)
			}
		}
		return s.ruleRepo.Create(txCtx, rule)
	})
	if err != nil {
		s.logger.Error("Failed to create rule", "error", err, "company_id", in.CompanyID, "name", rule.Name)
		return nil, err
	}

	s.logger.Info("Rule created",
		"rule_id", rule.ID,
		"company_id", rule.CompanyID,
		"required", len(rule.RequiredApproverIDs),
		"ordinary", len(rule.OrdinaryApprovers),
		"percentage", rule.Percentage)
	return rule, nil
}

// GetRule retrieves a rule with its pools
func (s *ruleServiceImpl) GetRule(ctx context.Context, id int64) (*entity.Rule, error) {
	return loadRule(ctx, s.ruleRepo, id)
}

// ListRules lists a company's rules
func (s *ruleServiceImpl) ListRules(ctx context.Context, companyID int64) ([]*entity.Rule, error) {
	return s.ruleRepo.ListByCompany(ctx, companyID)
}
