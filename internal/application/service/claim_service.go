package service

import (
	"context"
	"errors"
	"fmt"
	"math"
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

// LineInput is one expense line of a submission
type LineInput struct {
	Category    string
	Vendor      string
	ExpenseDate string
	Amount      float64
	Description string
	ReceiptURL  string
}

// SubmitInput describes a claim submission
type SubmitInput struct {
	OwnerID      int64
	CurrencyCode string
	Description  string
	Lines        []LineInput
}

// ClaimDetail is a claim with its lines, decisions and the users who
// currently owe a decision
type ClaimDetail struct {
	Claim     *entity.Claim      `json:"claim"`
	Decisions []*entity.Decision `json:"decisions"`
	Awaiting  []int64            `json:"awaiting"`
}

// ClaimService submits claims and answers claim queries
type ClaimService interface {
	Submit(ctx context.Context, in SubmitInput) (*entity.Claim, error)
	// GetClaim returns the claim if viewerID is its owner, an admin of its
	// company, or a member of its rule
	GetClaim(ctx context.Context, viewerID, claimID int64) (*ClaimDetail, error)
	ListClaims(ctx context.Context, userID int64) ([]*entity.Claim, error)
	ListUnrouted(ctx context.Context, companyID int64) ([]*entity.Claim, error)
}

type claimServiceImpl struct {
	companyRepo  port.CompanyRepository
	userRepo     port.UserRepository
	ruleRepo     port.RuleRepository
	claimRepo    port.ClaimRepository
	decisionRepo port.DecisionRepository
	rates        port.RateProvider
	txManager    port.TransactionManager
	dispatcher   dispatcher.Dispatcher
	rateTimeout  time.Duration
	logger       Logger
}

// NewClaimService creates a new ClaimService. rateTimeout bounds each rate
// lookup; zero leaves it to the provider.
func NewClaimService(
	companyRepo port.CompanyRepository,
	userRepo port.UserRepository,
	ruleRepo port.RuleRepository,
	claimRepo port.ClaimRepository,
	decisionRepo port.DecisionRepository,
	rates port.RateProvider,
	txManager port.TransactionManager,
	dispatcher dispatcher.Dispatcher,
	rateTimeout time.Duration,
	logger Logger,
) ClaimService {
	return &claimServiceImpl{
		companyRepo:  companyRepo,
		userRepo:     userRepo,
		ruleRepo:     ruleRepo,
		claimRepo:    claimRepo,
		decisionRepo: decisionRepo,
		rates:        rates,
		txManager:    txManager,
		dispatcher:   dispatcher,
		rateTimeout:  rateTimeout,
		logger:       logger,
	}
}

// Submit converts, routes and persists a new claim.
//
// Admin claims are approved on submission. Claims whose owner has an active
// rule move to Pending, and straight on to Approved when the rule needs no
// approvals. Everything else stays Submitted and is reported as unrouted.
func (s *claimServiceImpl) Submit(ctx context.Context, in SubmitInput) (claim *entity.Claim, err error) {
	ctx, span := tracing.StartSpan(ctx, "ClaimService.Submit", attribute.Int64("owner_id", in.OwnerID))
	defer func() { tracing.EndSpan(span, err) }()

	currency := utils.NormalizeCurrency(in.CurrencyCode)
	lines, total, err := buildLines(currency, in.Lines)
	if err != nil {
		return nil, err
	}

	owner, err := loadUser(ctx, s.userRepo, in.OwnerID)
	if err != nil {
		return nil, err
	}
	company, err := loadCompany(ctx, s.companyRepo, owner.CompanyID)
	if err != nil {
		return nil, err
	}

	// The rate lookup is the only remote call; keep it outside the transaction.
	rate, degraded := s.resolveRate(ctx, currency, company.DefaultCurrencyCode)
	converted := roundCents(total * rate)
	if math.IsNaN(converted) || math.IsInf(converted, 0) {
		return nil, fmt.Errorf("%w: converted total is out of range at rate %v", entity.ErrValidation, rate)
	}

	rule, err := s.ownerRule(ctx, owner)
	if err != nil {
		return nil, err
	}

	triggers := []workflow.Trigger{workflow.TriggerSubmit}
	switch {
	case owner.IsAdmin():
		triggers = append(triggers, workflow.TriggerAutoApprove)
		rule = nil
	case rule != nil:
		triggers = append(triggers, workflow.TriggerRoute)
		if approval.NewSnapshot(rule, nil).Verdict() == approval.VerdictApproved {
			triggers = append(triggers, workflow.TriggerApprove)
		}
	}

	transitions, err := workflow.Advance(ctx, workflow.StateDraft, triggers...)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	claim = &entity.Claim{
		OwnerID:           owner.ID,
		CompanyID:         company.ID,
		Description:       strings.TrimSpace(utils.SanitizeString(in.Description)),
		Status:            workflow.Final(workflow.StateDraft, transitions).String(),
		LocalCurrencyCode: currency,
		TotalLocal:        total,
		ExchangeRate:      rate,
		TotalCompany:      converted,
		SubmittedAt:       now,
		UpdatedAt:         now,
		Lines:             lines,
	}
	if rule != nil {
		claim.RuleID = &rule.ID
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.claimRepo.Create(txCtx, claim)
	})
	if err != nil {
		s.logger.Error("Failed to submit claim", "error", err, "owner_id", owner.ID)
		return nil, err
	}

	unrouted := !owner.IsAdmin() && rule == nil
	if unrouted {
		s.logger.Warn("Claim has no active approval rule and will stay Submitted",
			"claim_id", claim.ID, "owner_id", owner.ID, "company_id", company.ID)
	}

	s.logger.Info("Claim submitted",
		"claim_id", claim.ID,
		"owner_id", owner.ID,
		"status", claim.Status,
		"total_company", claim.TotalCompany,
		"rate", rate)

	s.dispatcher.Publish(ctx, submissionEvents(claim, transitions, degraded, unrouted)...)
	return claim, nil
}

// resolveRate returns the conversion rate and whether it fell back to 1.0
func (s *claimServiceImpl) resolveRate(ctx context.Context, from, to string) (float64, bool) {
	if from == to {
		return 1.0, false
	}

	if s.rateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.rateTimeout)
		defer cancel()
	}

	rate, err := s.rates.GetRate(ctx, from, to)
	if err == nil && rate > 0 {
		return rate, false
	}
	if err == nil {
		err = fmt.Errorf("%w: non-positive rate %v", entity.ErrExternalDegraded, rate)
	}
	if !errors.Is(err, entity.ErrExternalDegraded) {
		err = fmt.Errorf("%w: %v", entity.ErrExternalDegraded, err)
	}
	s.logger.Warn("Exchange rate unavailable, using 1.0", "from", from, "to", to, "error", err)
	return 1.0, true
}

// ownerRule returns the owner's assigned rule, or nil when none is assigned
// or the assigned rule is inactive
func (s *claimServiceImpl) ownerRule(ctx context.Context, owner *entity.User) (*entity.Rule, error) {
	if owner.RuleID == nil {
		return nil, nil
	}
	rule, err := s.ruleRepo.GetByID(ctx, *owner.RuleID)
	if err != nil {
		return nil, err
	}
	if rule == nil || !rule.IsActive {
		return nil, nil
	}
	return rule, nil
}

// GetClaim returns a claim with its lines and decisions
func (s *claimServiceImpl) GetClaim(ctx context.Context, viewerID, claimID int64) (*ClaimDetail, error) {
	viewer, err := loadUser(ctx, s.userRepo, viewerID)
	if err != nil {
		return nil, err
	}
	claim, err := loadClaim(ctx, s.claimRepo, claimID)
	if err != nil {
		return nil, err
	}
	if claim.CompanyID != viewer.CompanyID {
		return nil, fmt.Errorf("%w: claim %d", entity.ErrNotFound, claimID)
	}

	var rule *entity.Rule
	if claim.RuleID != nil {
		if rule, err = loadRule(ctx, s.ruleRepo, *claim.RuleID); err != nil {
			return nil, err
		}
	}

	member := rule != nil && (rule.IsRequired(viewerID) || hasOrdinary(rule, viewerID))
	if claim.OwnerID != viewerID && !viewer.IsAdmin() && !member {
		return nil, fmt.Errorf("%w: user %d cannot view claim %d", entity.ErrUnauthorized, viewerID, claimID)
	}

	lines, err := s.claimRepo.GetLines(ctx, claimID)
	if err != nil {
		return nil, err
	}
	claim.Lines = lines

	decisions, err := s.decisionRepo.ListByClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}

	detail := &ClaimDetail{Claim: claim, Decisions: decisions, Awaiting: []int64{}}
	if claim.Status == entity.StatusPending {
		if awaiting := approval.NewSnapshot(rule, decisions).PendingApprovers(); awaiting != nil {
			detail.Awaiting = awaiting
		}
	}
	return detail, nil
}

// ListClaims lists the claims a user submitted, newest first
func (s *claimServiceImpl) ListClaims(ctx context.Context, userID int64) ([]*entity.Claim, error) {
	if _, err := loadUser(ctx, s.userRepo, userID); err != nil {
		return nil, err
	}
	return s.claimRepo.ListByOwner(ctx, userID)
}

// ListUnrouted lists a company's claims stuck in Submitted, oldest first
func (s *claimServiceImpl) ListUnrouted(ctx context.Context, companyID int64) ([]*entity.Claim, error) {
	return s.claimRepo.ListByStatus(ctx, companyID, entity.StatusSubmitted)
}

func buildLines(currency string, in []LineInput) ([]*entity.ClaimLine, float64, error) {
	if err := utils.ValidateCurrencyCode(currency); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", entity.ErrValidation, err)
	}
	if len(in) == 0 {
		return nil, 0, fmt.Errorf("%w: a claim needs at least one line", entity.ErrValidation)
	}

	lines := make([]*entity.ClaimLine, 0, len(in))
	var total float64
	for i, l := range in {
		if err := utils.ValidateAmount(l.Amount); err != nil {
			return nil, 0, fmt.Errorf("%w: line %d: %v", entity.ErrValidation, i+1, err)
		}
		if l.ExpenseDate != "" {
			if _, err := time.Parse("2006-01-02", l.ExpenseDate); err != nil {
				return nil, 0, fmt.Errorf("%w: line %d: expense date must be YYYY-MM-DD", entity.ErrValidation, i+1)
			}
		}
		category := strings.TrimSpace(l.Category)
		if category == "" {
			category = entity.CategoryOther
		}
		lines = append(lines, &entity.ClaimLine{
			Category:    category,
			Vendor:      strings.TrimSpace(l.Vendor),
			ExpenseDate: l.ExpenseDate,
			Amount:      l.Amount,
			Description: strings.TrimSpace(utils.SanitizeString(l.Description)),
			ReceiptURL:  strings.TrimSpace(l.ReceiptURL),
		})
		total += l.Amount
	}
	total = roundCents(total)
	if math.IsInf(total, 0) {
		return nil, 0, fmt.Errorf("%w: claim total is out of range", entity.ErrValidation)
	}
	return lines, total, nil
}

func submissionEvents(claim *entity.Claim, transitions []workflow.Transition, degraded, unrouted bool) []*event.Event {
	payload := map[string]interface{}{
		event.KeyOwnerID:  claim.OwnerID,
		event.KeyStatus:   claim.Status,
		event.KeyRate:     claim.ExchangeRate,
		event.KeyDegraded: degraded,
	}
	if claim.RuleID != nil {
		payload[event.KeyRuleID] = *claim.RuleID
	}
	submitted := event.NewEvent(event.TypeClaimSubmitted, claim.ID, claim.CompanyID, payload)

	evts := []*event.Event{submitted}
	evts = append(evts, statusEvents(claim, transitions, submitted.CorrelationID)...)
	if unrouted {
		evts = append(evts, event.NewEventWithCorrelation(event.TypeClaimUnrouted, claim.ID, claim.CompanyID,
			map[string]interface{}{
				event.KeyOwnerID: claim.OwnerID,
				event.KeyReason:  "owner has no active approval rule",
			}, submitted.CorrelationID))
	}
	return evts
}

func statusEvents(claim *entity.Claim, transitions []workflow.Transition, correlationID string) []*event.Event {
	var evts []*event.Event
	for _, t := range transitions {
		if !t.Changed() {
			continue
		}
		evts = append(evts, event.NewEventWithCorrelation(event.TypeClaimStatusChanged, claim.ID, claim.CompanyID,
			map[string]interface{}{
				event.KeyFromStatus: t.From.String(),
				event.KeyToStatus:   t.To.String(),
			}, correlationID))
	}
	return evts
}

func hasOrdinary(rule *entity.Rule, userID int64) bool {
	_, ok := rule.OrdinarySequence(userID)
	return ok
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
