package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/expense-approval/internal/domain/entity"
)

func TestDirectoryService_CreateCompany(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, "USD", env.company.DefaultCurrencyCode)
	assert.Equal(t, entity.RoleAdmin, env.admin.Role)
	assert.Equal(t, env.company.ID, env.admin.CompanyID)

	tests := []struct {
		name string
		in   CreateCompanyInput
		want error
	}{
		{"missing name", CreateCompanyInput{CurrencyCode: "USD", AdminName: "x", AdminEmail: "x@y.io"}, entity.ErrValidation},
		{"bad currency", CreateCompanyInput{Name: "B", CurrencyCode: "DOLLAR", AdminName: "x", AdminEmail: "x@y.io"}, entity.ErrValidation},
		{"bad email", CreateCompanyInput{Name: "B", CurrencyCode: "USD", AdminName: "x", AdminEmail: "nope"}, entity.ErrValidation},
		{"email taken", CreateCompanyInput{Name: "B", CurrencyCode: "USD", AdminName: "x", AdminEmail: "ADA@acme.test"}, entity.ErrConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := env.directory.CreateCompany(context.Background(), tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDirectoryService_CreateUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.directory.CreateUser(ctx, CreateUserInput{
		CompanyID: env.company.ID, Name: "Bob", Email: "Bob@Acme.test",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.RoleEmployee, user.Role)
	assert.Equal(t, "bob@acme.test", user.Email)

	_, err = env.directory.CreateUser(ctx, CreateUserInput{
		CompanyID: env.company.ID, Name: "Bob2", Email: "bob@acme.test",
	})
	assert.ErrorIs(t, err, entity.ErrConflict)

	_, err = env.directory.CreateUser(ctx, CreateUserInput{
		CompanyID: env.company.ID, Name: "Eve", Email: "eve@acme.test", Role: "Owner",
	})
	assert.ErrorIs(t, err, entity.ErrValidation)

	_, err = env.directory.CreateUser(ctx, CreateUserInput{
		CompanyID: 9999, Name: "Eve", Email: "eve@acme.test",
	})
	assert.ErrorIs(t, err, entity.ErrNotFound)

	users, err := env.directory.ListUsers(ctx, env.company.ID)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestDirectoryService_AssignRule(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner", entity.RoleEmployee)
	m := env.user(t, "m", entity.RoleManager)

	rule := env.withRule(t, owner, 100, []int64{m.ID})
	stored, err := env.directory.GetUser(ctx, owner.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.RuleID)
	assert.Equal(t, rule.ID, *stored.RuleID)

	inactive := false
	dormant, err := env.rules.CreateRule(ctx, CreateRuleInput{
		CompanyID: env.company.ID, Name: "dormant", IsActive: &inactive,
	})
	require.NoError(t, err)
	_, err = env.directory.AssignRule(ctx, owner.ID, dormant.ID)
	assert.ErrorIs(t, err, entity.ErrValidation)

	_, err = env.directory.AssignRule(ctx, owner.ID, 9999)
	assert.ErrorIs(t, err, entity.ErrNotFound)

	_, err = env.directory.AssignRule(ctx, 9999, rule.ID)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}
