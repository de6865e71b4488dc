// Package service implements the expense approval use cases on top of the
// repository ports.
package service

import (
	"context"
	"fmt"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/domain/entity"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

func loadUser(ctx context.Context, users port.UserRepository, id int64) (*entity.User, error) {
	user, err := users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %d", entity.ErrNotFound, id)
	}
	return user, nil
}

func loadCompany(ctx context.Context, companies port.CompanyRepository, id int64) (*entity.Company, error) {
	company, err := companies.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, fmt.Errorf("%w: company %d", entity.ErrNotFound, id)
	}
	return company, nil
}

func loadRule(ctx context.Context, rules port.RuleRepository, id int64) (*entity.Rule, error) {
	rule, err := rules.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, fmt.Errorf("%w: rule %d", entity.ErrNotFound, id)
	}
	return rule, nil
}

func loadClaim(ctx context.Context, claims port.ClaimRepository, id int64) (*entity.Claim, error) {
	claim, err := claims.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, fmt.Errorf("%w: claim %d", entity.ErrNotFound, id)
	}
	return claim, nil
}
