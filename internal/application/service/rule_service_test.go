package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/expense-approval/internal/domain/entity"
)

func TestRuleService_CreateRule(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	m := env.user(t, "m", entity.RoleManager)
	a := env.user(t, "a", entity.RoleManager)
	b := env.user(t, "b", entity.RoleManager)

	rule, err := env.rules.CreateRule(ctx, CreateRuleInput{
		CompanyID:           env.company.ID,
		Name:                "  travel  ",
		ThresholdAmount:     500,
		RequiredApproverIDs: []int64{m.ID},
		OrdinaryApprovers: []entity.OrdinaryApprover{
			{UserID: a.ID, Sequence: 2},
			{UserID: b.ID, Sequence: 5},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "travel", rule.Name)
	assert.Equal(t, entity.DefaultApprovalPercentage, rule.Percentage)
	assert.True(t, rule.IsActive)

	got, err := env.rules.GetRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{m.ID}, got.RequiredApproverIDs)
	assert.Len(t, got.OrdinaryApprovers, 2)
	assert.Equal(t, 500.0, got.ThresholdAmount)

	rules, err := env.rules.ListRules(ctx, env.company.ID)
	require.NoError(t, err)
	assert.Len(t, rules, 1)

	_, err = env.rules.GetRule(ctx, 9999)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestRuleService_CreateRuleValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	m := env.user(t, "m", entity.RoleManager)
	a := env.user(t, "a", entity.RoleManager)

	_, foreign, err := env.directory.CreateCompany(ctx, CreateCompanyInput{
		Name: "Other", CurrencyCode: "GBP", AdminName: "Olga", AdminEmail: "olga@other.test",
	})
	require.NoError(t, err)

	pct := func(v int) *int { return &v }

	tests := []struct {
		name string
		in   CreateRuleInput
	}{
		{"empty name", CreateRuleInput{Name: " "}},
		{"percentage too high", CreateRuleInput{Name: "r", Percentage: pct(101)}},
		{"negative percentage", CreateRuleInput{Name: "r", Percentage: pct(-1)}},
		{"duplicate sequence", CreateRuleInput{Name: "r", OrdinaryApprovers: []entity.OrdinaryApprover{
			{UserID: m.ID, Sequence: 1}, {UserID: a.ID, Sequence: 1},
		}}},
		{"sequence below one", CreateRuleInput{Name: "r", OrdinaryApprovers: []entity.OrdinaryApprover{
			{UserID: m.ID, Sequence: 0},
		}}},
		{"user twice in ordinary pool", CreateRuleInput{Name: "r", OrdinaryApprovers: []entity.OrdinaryApprover{
			{UserID: m.ID, Sequence: 1}, {UserID: m.ID, Sequence: 2},
		}}},
		{"user in both pools", CreateRuleInput{Name: "r", RequiredApproverIDs: []int64{m.ID},
			OrdinaryApprovers: []entity.OrdinaryApprover{{UserID: m.ID, Sequence: 1}}}},
		{"approver from another company", CreateRuleInput{Name: "r", RequiredApproverIDs: []int64{foreign.ID}}},
		{"unknown approver", CreateRuleInput{Name: "r", RequiredApproverIDs: []int64{9999}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.CompanyID = env.company.ID
			_, err := env.rules.CreateRule(ctx, tt.in)
			assert.ErrorIs(t, err, entity.ErrValidation)
		})
	}

	rules, err := env.rules.ListRules(ctx, env.company.ID)
	require.NoError(t, err)
	assert.Empty(t, rules)
}
