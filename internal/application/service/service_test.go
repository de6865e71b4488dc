package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/expense-approval/internal/application/dispatcher"
	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/garyjia/expense-approval/internal/domain/event"
	"github.com/garyjia/expense-approval/internal/infrastructure/locking"
	"github.com/garyjia/expense-approval/internal/infrastructure/report"
	"github.com/garyjia/expense-approval/internal/testutil"
)

// mockLogger records warnings so tests can assert on operational alerts
type mockLogger struct {
	mu    sync.Mutex
	warns []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}
func (m *mockLogger) Warn(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warns = append(m.warns, msg)
}

func (m *mockLogger) WarnCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.warns)
}

// stubRates answers every lookup with rate or err. With hang set it waits
// for the caller's context instead.
type stubRates struct {
	mu    sync.Mutex
	rate  float64
	err   error
	hang  bool
	calls int
}

func (s *stubRates) GetRate(ctx context.Context, from, to string) (float64, error) {
	s.mu.Lock()
	s.calls++
	hang, rate, err := s.hang, s.rate, s.err
	s.mu.Unlock()

	if hang {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	return rate, err
}

// eventLog collects published events
type eventLog struct {
	mu     sync.Mutex
	events []*event.Event
}

func (l *eventLog) handle(ctx context.Context, evt *event.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, evt)
	return nil
}

func (l *eventLog) ofType(t event.Type) []*event.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*event.Event
	for _, e := range l.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type testEnv struct {
	store     *testutil.Store
	rates     *stubRates
	logger    *mockLogger
	events    *eventLog
	bus       dispatcher.Dispatcher
	directory DirectoryService
	rules     RuleService
	claims    ClaimService
	approvals ApprovalService
	exports   ExportService
	company   *entity.Company
	admin     *entity.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := testutil.NewStore(t)
	env := &testEnv{
		store:  store,
		rates:  &stubRates{rate: 1.08},
		logger: &mockLogger{},
		events: &eventLog{},
	}

	d := dispatcher.NewDispatcher()
	for _, typ := range []event.Type{
		event.TypeClaimSubmitted,
		event.TypeClaimUnrouted,
		event.TypeDecisionRecorded,
		event.TypeClaimStatusChanged,
	} {
		d.Subscribe(typ, env.events.handle)
	}
	env.bus = d

	env.directory = NewDirectoryService(store.Companies, store.Users, store.Rules, store.DB, env.logger)
	env.rules = NewRuleService(store.Companies, store.Users, store.Rules, store.DB, env.logger)
	env.claims = NewClaimService(store.Companies, store.Users, store.Rules, store.Claims, store.Decisions,
		env.rates, store.DB, d, 0, env.logger)
	env.approvals = NewApprovalService(store.Users, store.Rules, store.Claims, store.Decisions,
		store.DB, locking.NewKeyedMutex(), d, env.logger)
	env.exports = NewExportService(store.Companies, store.Users, store.Claims,
		report.NewExcelRenderer(zap.NewNop()), env.logger)

	company, admin, err := env.directory.CreateCompany(context.Background(), CreateCompanyInput{
		Name:         "Acme",
		CurrencyCode: "usd",
		AdminName:    "Ada",
		AdminEmail:   "ada@acme.test",
	})
	require.NoError(t, err)
	env.company, env.admin = company, admin
	return env
}

func (e *testEnv) user(t *testing.T, name, role string) *entity.User {
	t.Helper()
	return e.store.User(t, e.company.ID, name, role)
}

// withRule creates a rule and assigns it to owner
func (e *testEnv) withRule(t *testing.T, owner *entity.User, pct int, required []int64, ordinary ...entity.OrdinaryApprover) *entity.Rule {
	t.Helper()
	rule, err := e.rules.CreateRule(context.Background(), CreateRuleInput{
		CompanyID:           e.company.ID,
		Name:                "chain",
		Percentage:          &pct,
		RequiredApproverIDs: required,
		OrdinaryApprovers:   ordinary,
	})
	require.NoError(t, err)
	_, err = e.directory.AssignRule(context.Background(), owner.ID, rule.ID)
	require.NoError(t, err)
	return rule
}

func (e *testEnv) submit(t *testing.T, owner *entity.User, currency string, amounts ...float64) *entity.Claim {
	t.Helper()
	lines := make([]LineInput, len(amounts))
	for i, a := range amounts {
		lines[i] = LineInput{Category: entity.CategoryTravel, Amount: a, ExpenseDate: "2026-03-01"}
	}
	claim, err := e.claims.Submit(context.Background(), SubmitInput{
		OwnerID:      owner.ID,
		CurrencyCode: currency,
		Description:  "trip",
		Lines:        lines,
	})
	require.NoError(t, err)
	return claim
}

func (e *testEnv) approve(ctx context.Context, claimID, approverID int64) (*DecisionResult, error) {
	return e.approvals.RecordDecision(ctx, DecisionInput{
		ClaimID:    claimID,
		ApproverID: approverID,
		Outcome:    entity.OutcomeApproved,
	})
}

func pendingIDs(t *testing.T, svc ApprovalService, userID int64) []int64 {
	t.Helper()
	claims, err := svc.PendingFor(context.Background(), userID)
	require.NoError(t, err)
	ids := make([]int64, 0, len(claims))
	for _, c := range claims {
		ids = append(ids, c.ID)
	}
	return ids
}
