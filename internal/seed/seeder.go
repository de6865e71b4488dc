package seed

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/expense-approval/internal/application/service"
	"github.com/garyjia/expense-approval/internal/domain/entity"
)

// Result maps fixture keys to the IDs created for them, per company name
type Result struct {
	Companies map[string]int64
	Users     map[string]map[string]int64
	Rules     map[string]map[string]int64
}

// Seeder creates fixtures through the application services, so every
// invariant the API enforces also holds for seeded data.
type Seeder struct {
	directory service.DirectoryService
	rules     service.RuleService
	logger    *zap.Logger
}

// NewSeeder creates a new Seeder
func NewSeeder(directory service.DirectoryService, rules service.RuleService, logger *zap.Logger) *Seeder {
	return &Seeder{directory: directory, rules: rules, logger: logger}
}

// Run creates every company in the fixture. It stops at the first failure;
// companies created before it are kept.
func (s *Seeder) Run(ctx context.Context, f *Fixture) (*Result, error) {
	res := &Result{
		Companies: map[string]int64{},
		Users:     map[string]map[string]int64{},
		Rules:     map[string]map[string]int64{},
	}
	for _, c := range f.Companies {
		if err := s.seedCompany(ctx, c, res); err != nil {
			return res, fmt.Errorf("seed company %q: %w", c.Name, err)
		}
	}
	return res, nil
}

func (s *Seeder) seedCompany(ctx context.Context, c Company, res *Result) error {
	company, admin, err := s.directory.CreateCompany(ctx, service.CreateCompanyInput{
		Name:         c.Name,
		CurrencyCode: c.Currency,
		AdminName:    c.Admin.Name,
		AdminEmail:   c.Admin.Email,
	})
	if err != nil {
		return fmt.Errorf("create company: %w", err)
	}

	users := map[string]int64{c.Admin.Key: admin.ID}
	for _, u := range c.Users {
		user, err := s.directory.CreateUser(ctx, service.CreateUserInput{
			CompanyID: company.ID,
			Name:      u.Name,
			Email:     u.Email,
			Role:      u.Role,
		})
		if err != nil {
			return fmt.Errorf("create user %q: %w", u.Key, err)
		}
		users[u.Key] = user.ID
	}

	rules := map[string]int64{}
	for _, r := range c.Rules {
		in := service.CreateRuleInput{
			CompanyID:       company.ID,
			Name:            r.Name,
			Description:     r.Description,
			Percentage:      r.Percentage,
			ThresholdAmount: r.Threshold,
			IsActive:        r.Active,
		}
		for _, key := range r.Required {
			in.RequiredApproverIDs = append(in.RequiredApproverIDs, users[key])
		}
		for _, o := range r.Ordinary {
			in.OrdinaryApprovers = append(in.OrdinaryApprovers, entity.OrdinaryApprover{
				UserID:   users[o.User],
				Sequence: o.Sequence,
			})
		}
		rule, err := s.rules.CreateRule(ctx, in)
		if err != nil {
			return fmt.Errorf("create rule %q: %w", r.Key, err)
		}
		rules[r.Key] = rule.ID
	}

	for _, a := range c.Assignments {
		if _, err := s.directory.AssignRule(ctx, users[a.User], rules[a.Rule]); err != nil {
			return fmt.Errorf("assign rule %q to %q: %w", a.Rule, a.User, err)
		}
	}

	res.Companies[c.Name] = company.ID
	res.Users[c.Name] = users
	res.Rules[c.Name] = rules

	s.logger.Info("Seeded company",
		zap.String("company", c.Name),
		zap.Int64("company_id", company.ID),
		zap.Int("users", len(users)),
		zap.Int("rules", len(rules)),
		zap.Int("assignments", len(c.Assignments)),
	)
	return nil
}
