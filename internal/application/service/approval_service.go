package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/garyjia/expense-approval/internal/application/dispatcher"
	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/domain/approval"
	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/garyjia/expense-approval/internal/domain/event"
	"github.com/garyjia/expense-approval/internal/domain/workflow"
	"github.com/garyjia/expense-approval/pkg/tracing"
	"github.com/garyjia/expense-approval/pkg/utils"
)

// DecisionInput is one approver's decision on a claim
type DecisionInput struct {
	ClaimID    int64
	ApproverID int64
	Outcome    string
	Comment    string
}

// DecisionResult is the recorded decision and the claim status it produced
type DecisionResult struct {
	Decision *entity.Decision `json:"decision"`
	Status   string           `json:"status"`
	Changed  bool             `json:"status_changed"`
}

// ApprovalService resolves who owes decisions and records them
type ApprovalService interface {
	// PendingFor lists the Pending claims of the user's company that await
	// the user's decision, oldest first
	PendingFor(ctx context.Context, userID int64) ([]*entity.Claim, error)
	// RecordDecision applies one decision and re-derives the claim status
	RecordDecision(ctx context.Context, in DecisionInput) (*DecisionResult, error)
}

type approvalServiceImpl struct {
	userRepo     port.UserRepository
	ruleRepo     port.RuleRepository
	claimRepo    port.ClaimRepository
	decisionRepo port.DecisionRepository
	txManager    port.TransactionManager
	locker       port.ClaimLocker
	dispatcher   dispatcher.Dispatcher
	logger       Logger
}

// NewApprovalService creates a new ApprovalService
func NewApprovalService(
	userRepo port.UserRepository,
	ruleRepo port.RuleRepository,
	claimRepo port.ClaimRepository,
	decisionRepo port.DecisionRepository,
	txManager port.TransactionManager,
	locker port.ClaimLocker,
	dispatcher dispatcher.Dispatcher,
	logger Logger,
) ApprovalService {
	return &approvalServiceImpl{
		userRepo:     userRepo,
		ruleRepo:     ruleRepo,
		claimRepo:    claimRepo,
		decisionRepo: decisionRepo,
		txManager:    txManager,
		locker:       locker,
		dispatcher:   dispatcher,
		logger:       logger,
	}
}

// PendingFor evaluates every Pending claim of the user's company against the
// rule bound to it at submission
func (s *approvalServiceImpl) PendingFor(ctx context.Context, userID int64) (pending []*entity.Claim, err error) {
	ctx, span := tracing.StartSpan(ctx, "ApprovalService.PendingFor", attribute.Int64("user_id", userID))
	defer func() { tracing.EndSpan(span, err) }()

	pending = []*entity.Claim{}
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		user, err := loadUser(txCtx, s.userRepo, userID)
		if err != nil {
			return err
		}

		claims, err := s.claimRepo.ListByStatus(txCtx, user.CompanyID, entity.StatusPending)
		if err != nil {
			return err
		}
		if len(claims) == 0 {
			return nil
		}

		ids := make([]int64, len(claims))
		for i, c := range claims {
			ids[i] = c.ID
		}
		decisions, err := s.decisionRepo.ListByClaims(txCtx, ids)
		if err != nil {
			return err
		}

		rules := make(map[int64]*entity.Rule)
		for _, claim := range claims {
			if claim.RuleID == nil {
				continue
			}
			rule, ok := rules[*claim.RuleID]
			if !ok {
				if rule, err = loadRule(txCtx, s.ruleRepo, *claim.RuleID); err != nil {
					return err
				}
				rules[rule.ID] = rule
			}
			if approval.NewSnapshot(rule, decisions[claim.ID]).IsPendingFor(userID) {
				pending = append(pending, claim)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to list pending claims", "error", err, "user_id", userID)
		return nil, err
	}
	return pending, nil
}

// RecordDecision validates the decision, checks the approver is pending on
// the claim, stores the decision and moves the claim through its lifecycle.
// Decisions on one claim are serialized.
func (s *approvalServiceImpl) RecordDecision(ctx context.Context, in DecisionInput) (result *DecisionResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "ApprovalService.RecordDecision",
		attribute.Int64("claim_id", in.ClaimID),
		attribute.Int64("approver_id", in.ApproverID),
		attribute.String("outcome", in.Outcome))
	defer func() { tracing.EndSpan(span, err) }()

	if !entity.IsValidOutcome(in.Outcome) {
		return nil, fmt.Errorf("%w: unknown outcome %q", entity.ErrValidation, in.Outcome)
	}
	comment := strings.TrimSpace(utils.SanitizeString(in.Comment))
	if in.Outcome == entity.OutcomeRejected && comment == "" {
		return nil, fmt.Errorf("%w: a rejection needs a comment", entity.ErrValidation)
	}

	unlock := s.locker.Lock(in.ClaimID)
	defer unlock()

	var (
		claim       *entity.Claim
		transitions []workflow.Transition
	)
	decision := &entity.Decision{
		ClaimID:    in.ClaimID,
		ApproverID: in.ApproverID,
		Outcome:    in.Outcome,
		Comment:    comment,
		DecidedAt:  time.Now().UTC(),
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		approver, err := loadUser(txCtx, s.userRepo, in.ApproverID)
		if err != nil {
			return err
		}

		claim, err = s.claimRepo.GetForUpdate(txCtx, in.ClaimID)
		if err != nil {
			return err
		}
		if claim == nil || claim.CompanyID != approver.CompanyID {
			return fmt.Errorf("%w: claim %d", entity.ErrNotFound, in.ClaimID)
		}
		if claim.IsTerminal() {
			return fmt.Errorf("%w: claim %d is already %s", entity.ErrConflict, claim.ID, claim.Status)
		}
		if claim.Status != entity.StatusPending || claim.RuleID == nil {
			return fmt.Errorf("%w: claim %d is not awaiting your decision", entity.ErrUnauthorized, claim.ID)
		}

		rule, err := loadRule(txCtx, s.ruleRepo, *claim.RuleID)
		if err != nil {
			return err
		}
		decisions, err := s.decisionRepo.ListByClaim(txCtx, claim.ID)
		if err != nil {
			return err
		}

		snapshot := approval.NewSnapshot(rule, decisions)
		if !snapshot.IsPendingFor(approver.ID) {
			return fmt.Errorf("%w: claim %d is not awaiting your decision", entity.ErrUnauthorized, claim.ID)
		}

		if err := s.decisionRepo.Create(txCtx, decision); err != nil {
			return err
		}

		transitions, err = workflow.Advance(txCtx, workflow.State(claim.Status),
			verdictTrigger(snapshot.With(decision).Verdict()))
		if err != nil {
			return err
		}

		next := workflow.Final(workflow.State(claim.Status), transitions)
		if next.String() != claim.Status {
			if err := s.claimRepo.UpdateStatus(txCtx, claim.ID, next.String()); err != nil {
				return err
			}
			claim.Status = next.String()
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to record decision",
			"error", err,
			"claim_id", in.ClaimID,
			"approver_id", in.ApproverID,
			"outcome", in.Outcome)
		return nil, err
	}

	changed := len(transitions) > 0 && transitions[len(transitions)-1].Changed()
	s.logger.Info("Decision recorded",
		"claim_id", claim.ID,
		"approver_id", decision.ApproverID,
		"outcome", decision.Outcome,
		"status", claim.Status)

	recorded := event.NewEvent(event.TypeDecisionRecorded, claim.ID, claim.CompanyID, map[string]interface{}{
		event.KeyApproverID: decision.ApproverID,
		event.KeyOutcome:    decision.Outcome,
		event.KeyStatus:     claim.Status,
	})
	evts := append([]*event.Event{recorded}, statusEvents(claim, transitions, recorded.CorrelationID)...)
	s.dispatcher.Publish(ctx, evts...)

	return &DecisionResult{Decision: decision, Status: claim.Status, Changed: changed}, nil
}

func verdictTrigger(v approval.Verdict) workflow.Trigger {
	switch v {
	case approval.VerdictApproved:
		return workflow.TriggerApprove
	case approval.VerdictRejected:
		return workflow.TriggerReject
	default:
		return workflow.TriggerAwait
	}
}
