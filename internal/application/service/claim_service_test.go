package service

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/garyjia/expense-approval/internal/domain/event"
)

func TestClaimService_SubmitAdmin(t *testing.T) {
	env := newTestEnv(t)

	claim := env.submit(t, env.admin, "EUR", 100, 25.5)

	assert.Equal(t, entity.StatusApproved, claim.Status)
	assert.Nil(t, claim.RuleID)
	assert.Equal(t, 125.5, claim.TotalLocal)
	assert.Equal(t, 1.08, claim.ExchangeRate)
	assert.InDelta(t, 135.54, claim.TotalCompany, 1e-9)
	assert.Len(t, claim.Lines, 2)
	assert.Equal(t, 1, env.rates.calls)

	var path []string
	for _, e := range env.events.ofType(event.TypeClaimStatusChanged) {
		path = append(path, e.GetPayloadString(event.KeyToStatus))
	}
	assert.Equal(t, []string{entity.StatusSubmitted, entity.StatusApproved}, path)
}

func TestClaimService_SubmitRouted(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner", entity.RoleEmployee)
	m := env.user(t, "m", entity.RoleManager)
	rule := env.withRule(t, owner, 100, []int64{m.ID})

	claim := env.submit(t, owner, "usd", 40)

	assert.Equal(t, entity.StatusPending, claim.Status)
	require.NotNil(t, claim.RuleID)
	assert.Equal(t, rule.ID, *claim.RuleID)
	assert.Equal(t, 1.0, claim.ExchangeRate)
	assert.Equal(t, 40.0, claim.TotalCompany)
	assert.Zero(t, env.rates.calls, "same currency needs no lookup")

	submitted := env.events.ofType(event.TypeClaimSubmitted)
	require.Len(t, submitted, 1)
	assert.Equal(t, rule.ID, submitted[0].GetPayloadInt(event.KeyRuleID))
	assert.Empty(t, env.events.ofType(event.TypeClaimUnrouted))
}

func TestClaimService_SubmitAutoSatisfiedRule(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner", entity.RoleEmployee)
	a := env.user(t, "a", entity.RoleManager)
	env.withRule(t, owner, 0, nil, entity.OrdinaryApprover{UserID: a.ID, Sequence: 1})

	claim := env.submit(t, owner, "USD", 10)

	assert.Equal(t, entity.StatusApproved, claim.Status)
	assert.NotNil(t, claim.RuleID)
	assert.Empty(t, pendingIDs(t, env.approvals, a.ID))
}

func TestClaimService_SubmitUnrouted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner", entity.RoleEmployee)

	claim := env.submit(t, owner, "USD", 10)

	assert.Equal(t, entity.StatusSubmitted, claim.Status)
	assert.Nil(t, claim.RuleID)
	assert.Equal(t, 1, env.logger.WarnCount())
	require.Len(t, env.events.ofType(event.TypeClaimUnrouted), 1)

	unrouted, err := env.claims.ListUnrouted(ctx, env.company.ID)
	require.NoError(t, err)
	require.Len(t, unrouted, 1)
	assert.Equal(t, claim.ID, unrouted[0].ID)

	t.Run("inactive rule counts as unrouted", func(t *testing.T) {
		m := env.user(t, "m", entity.RoleManager)
		inactive := false
		rule, err := env.rules.CreateRule(ctx, CreateRuleInput{
			CompanyID:           env.company.ID,
			Name:                "dormant",
			IsActive:            &inactive,
			RequiredApproverIDs: []int64{m.ID},
		})
		require.NoError(t, err)
		require.NoError(t, env.store.Users.AssignRule(ctx, owner.ID, rule.ID))

		claim := env.submit(t, owner, "USD", 10)
		assert.Equal(t, entity.StatusSubmitted, claim.Status)
		assert.Empty(t, pendingIDs(t, env.approvals, m.ID))
	})
}

func TestClaimService_RateDegraded(t *testing.T) {
	env := newTestEnv(t)
	env.rates.err = errors.New("connection refused")

	claim := env.submit(t, env.admin, "EUR", 80)

	assert.Equal(t, 1.0, claim.ExchangeRate)
	assert.Equal(t, 80.0, claim.TotalCompany)
	assert.Equal(t, 1, env.logger.WarnCount())

	submitted := env.events.ofType(event.TypeClaimSubmitted)
	require.Len(t, submitted, 1)
	assert.True(t, submitted[0].GetPayloadBool(event.KeyDegraded))
}

func TestClaimService_RateLookupTimeout(t *testing.T) {
	env := newTestEnv(t)
	env.rates.hang = true
	claims := NewClaimService(env.store.Companies, env.store.Users, env.store.Rules, env.store.Claims,
		env.store.Decisions, env.rates, env.store.DB, env.bus, 50*time.Millisecond, env.logger)

	start := time.Now()
	claim, err := claims.Submit(context.Background(), SubmitInput{
		OwnerID:      env.admin.ID,
		CurrencyCode: "EUR",
		Lines:        []LineInput{{Amount: 40}},
	})
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, 1.0, claim.ExchangeRate)
	assert.Equal(t, 40.0, claim.TotalCompany)
	assert.Equal(t, entity.StatusApproved, claim.Status)
	assert.Equal(t, 1, env.logger.WarnCount())

	submitted := env.events.ofType(event.TypeClaimSubmitted)
	require.Len(t, submitted, 1)
	assert.True(t, submitted[0].GetPayloadBool(event.KeyDegraded))
}

func TestClaimService_SubmitValidation(t *testing.T) {
	env := newTestEnv(t)
	env.rates.rate = 1e4
	ctx := context.Background()
	owner := env.user(t, "owner", entity.RoleEmployee)

	tests := []struct {
		name string
		in   SubmitInput
		want error
	}{
		{"no lines", SubmitInput{OwnerID: owner.ID, CurrencyCode: "USD"}, entity.ErrValidation},
		{"bad currency", SubmitInput{OwnerID: owner.ID, CurrencyCode: "US", Lines: []LineInput{{Amount: 1}}}, entity.ErrValidation},
		{"zero amount", SubmitInput{OwnerID: owner.ID, CurrencyCode: "USD", Lines: []LineInput{{Amount: 0}}}, entity.ErrValidation},
		{"NaN amount", SubmitInput{OwnerID: owner.ID, CurrencyCode: "USD", Lines: []LineInput{{Amount: math.NaN()}}}, entity.ErrValidation},
		{"infinite amount", SubmitInput{OwnerID: owner.ID, CurrencyCode: "USD", Lines: []LineInput{{Amount: math.Inf(1)}}}, entity.ErrValidation},
		{"total overflows", SubmitInput{OwnerID: owner.ID, CurrencyCode: "USD", Lines: []LineInput{{Amount: 1e308}, {Amount: 1e308}}}, entity.ErrValidation},
		{"converted total overflows", SubmitInput{OwnerID: owner.ID, CurrencyCode: "JPY", Lines: []LineInput{{Amount: 1e305}}}, entity.ErrValidation},
		{"bad date", SubmitInput{OwnerID: owner.ID, CurrencyCode: "USD", Lines: []LineInput{{Amount: 1, ExpenseDate: "03/01/2026"}}}, entity.ErrValidation},
		{"unknown owner", SubmitInput{OwnerID: 9999, CurrencyCode: "USD", Lines: []LineInput{{Amount: 1}}}, entity.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.claims.Submit(ctx, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	claims, err := env.claims.ListClaims(ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, claims)
}

func TestClaimService_GetClaim(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner", entity.RoleEmployee)
	m := env.user(t, "m", entity.RoleManager)
	stranger := env.user(t, "stranger", entity.RoleEmployee)
	env.withRule(t, owner, 100, []int64{m.ID})
	claim := env.submit(t, owner, "USD", 10, 20)

	for _, viewer := range []*entity.User{owner, m, env.admin} {
		detail, err := env.claims.GetClaim(ctx, viewer.ID, claim.ID)
		require.NoError(t, err, viewer.Name)
		assert.Len(t, detail.Claim.Lines, 2)
		assert.Equal(t, []int64{m.ID}, detail.Awaiting)
		assert.Empty(t, detail.Decisions)
	}

	_, err := env.claims.GetClaim(ctx, stranger.ID, claim.ID)
	assert.ErrorIs(t, err, entity.ErrUnauthorized)

	_, err = env.claims.GetClaim(ctx, owner.ID, 9999)
	assert.ErrorIs(t, err, entity.ErrNotFound)

	_, err = env.approve(ctx, claim.ID, m.ID)
	require.NoError(t, err)
	detail, err := env.claims.GetClaim(ctx, owner.ID, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusApproved, detail.Claim.Status)
	assert.Len(t, detail.Decisions, 1)
	assert.Empty(t, detail.Awaiting)
}

func TestClaimService_ListClaims(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner", entity.RoleEmployee)

	first := env.submit(t, owner, "USD", 1)
	second := env.submit(t, owner, "USD", 2)
	env.submit(t, env.admin, "USD", 3)

	claims, err := env.claims.ListClaims(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, claims, 2)
	assert.Equal(t, second.ID, claims[0].ID)
	assert.Equal(t, first.ID, claims[1].ID)
}

func TestExportService_ExportClaims(t *testing.T) {
	env := newTestEnv(t)
	env.submit(t, env.admin, "EUR", 10, 20)
	env.submit(t, env.admin, "USD", 5)

	export, err := env.exports.ExportClaims(context.Background(), env.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, "claims.xlsx", export.Filename)

	f, err := excelize.OpenReader(bytes.NewReader(export.Data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Claims")
	require.NoError(t, err)
	assert.Len(t, rows, 4)
	lines, err := f.GetRows("Lines")
	require.NoError(t, err)
	assert.Len(t, lines, 4)
}
