package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/garyjia/expense-approval/pkg/utils"
)

// CreateCompanyInput describes a new company and its first administrator
type CreateCompanyInput struct {
	Name         string
	CurrencyCode string
	AdminName    string
	AdminEmail   string
}

// CreateUserInput describes a new user inside an existing company
type CreateUserInput struct {
	CompanyID int64
	Name      string
	Email     string
	Role      string
}

// DirectoryService manages companies, users and rule assignment
type DirectoryService interface {
	CreateCompany(ctx context.Context, in CreateCompanyInput) (*entity.Company, *entity.User, error)
	GetCompany(ctx context.Context, id int64) (*entity.Company, error)
	CreateUser(ctx context.Context, in CreateUserInput) (*entity.User, error)
	GetUser(ctx context.Context, id int64) (*entity.User, error)
	ListUsers(ctx context.Context, companyID int64) ([]*entity.User, error)
	AssignRule(ctx context.Context, userID, ruleID int64) (*entity.User, error)
}

type directoryServiceImpl struct {
	companyRepo port.CompanyRepository
	userRepo    port.UserRepository
	ruleRepo    port.RuleRepository
	txManager   port.TransactionManager
	logger      Logger
}

// NewDirectoryService creates a new DirectoryService
func NewDirectoryService(
	companyRepo port.CompanyRepository,
	userRepo port.UserRepository,
	ruleRepo port.RuleRepository,
	txManager port.TransactionManager,
	logger Logger,
) DirectoryService {
	return &directoryServiceImpl{
		companyRepo: companyRepo,
		userRepo:    userRepo,
		ruleRepo:    ruleRepo,
		txManager:   txManager,
		logger:      logger,
	}
}

// CreateCompany creates a company and its first Admin in one transaction
func (s *directoryServiceImpl) CreateCompany(ctx context.Context, in CreateCompanyInput) (*entity.Company, *entity.User, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, nil, fmt.Errorf("%w: company name is required", entity.ErrValidation)
	}
	currency := utils.NormalizeCurrency(in.CurrencyCode)
	if err := utils.ValidateCurrencyCode(currency); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", entity.ErrValidation, err)
	}

	now := time.Now().UTC()
	company := &entity.Company{Name: name, DefaultCurrencyCode: currency, CreatedAt: now}
	admin := &entity.User{
		Name:      strings.TrimSpace(in.AdminName),
		Email:     strings.ToLower(strings.TrimSpace(in.AdminEmail)),
		Role:      entity.RoleAdmin,
		CreatedAt: now,
	}
	if err := validateUser(admin); err != nil {
		return nil, nil, err
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.companyRepo.Create(txCtx, company); err != nil {
			return fmt.Errorf("create company: %w", err)
		}
		admin.CompanyID = company.ID
		if err := s.userRepo.Create(txCtx, admin); err != nil {
			return fmt.Errorf("create admin: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create company", "error", err, "name", name)
		return nil, nil, err
	}

	s.logger.Info("Company created", "company_id", company.ID, "admin_id", admin.ID, "currency", currency)
	return company, admin, nil
}

// GetCompany retrieves a company by ID
func (s *directoryServiceImpl) GetCompany(ctx context.Context, id int64) (*entity.Company, error) {
	return loadCompany(ctx, s.companyRepo, id)
}

// CreateUser adds a user to a company. Email addresses are unique across
// companies.
func (s *directoryServiceImpl) CreateUser(ctx context.Context, in CreateUserInput) (*entity.User, error) {
	user := &entity.User{
		CompanyID: in.CompanyID,
		Name:      strings.TrimSpace(in.Name),
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		Role:      in.Role,
		CreatedAt: time.Now().UTC(),
	}
	if user.Role == "" {
		user.Role = entity.RoleEmployee
	}
	if err := validateUser(user); err != nil {
		return nil, err
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := loadCompany(txCtx, s.companyRepo, in.CompanyID); err != nil {
			return err
		}
		return s.userRepo.Create(txCtx, user)
	})
	if err != nil {
		s.logger.Error("Failed to create user", "error", err, "company_id", in.CompanyID)
		return nil, err
	}

	s.logger.Info("User created", "user_id", user.ID, "company_id", user.CompanyID, "role", user.Role)
	return user, nil
}

// GetUser retrieves a user by ID
func (s *directoryServiceImpl) GetUser(ctx context.Context, id int64) (*entity.User, error) {
	return loadUser(ctx, s.userRepo, id)
}

// ListUsers lists a company's users
func (s *directoryServiceImpl) ListUsers(ctx context.Context, companyID int64) ([]*entity.User, error) {
	return s.userRepo.ListByCompany(ctx, companyID)
}

// AssignRule binds a rule to a user. Claims the user submits afterwards
// follow that rule; claims already submitted keep theirs.
func (s *directoryServiceImpl) AssignRule(ctx context.Context, userID, ruleID int64) (*entity.User, error) {
	var user *entity.User
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		user, err = loadUser(txCtx, s.userRepo, userID)
		if err != nil {
			return err
		}
		rule, err := loadRule(txCtx, s.ruleRepo, ruleID)
		if err != nil {
			return err
		}
		if rule.CompanyID != user.CompanyID {
			return fmt.Errorf("%w: rule %d belongs to another company", entity.ErrValidation, ruleID)
		}
		if !rule.IsActive {
			return fmt.Errorf("%w: rule %d is inactive", entity.ErrValidation, ruleID)
		}
		if err := s.userRepo.AssignRule(txCtx, userID, ruleID); err != nil {
			return err
		}
		user.RuleID = &ruleID
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to assign rule", "error", err, "user_id", userID, "rule_id", ruleID)
		return nil, err
	}

	s.logger.Info("Rule assigned", "user_id", userID, "rule_id", ruleID)
	return user, nil
}

func validateUser(u *entity.User) error {
	if u.Name == "" {
		return fmt.Errorf("%w: user name is required", entity.ErrValidation)
	}
	if err := utils.ValidateEmail(u.Email); err != nil {
		return fmt.Errorf("%w: %v", entity.ErrValidation, err)
	}
	if !entity.IsValidRole(u.Role) {
		return fmt.Errorf("%w: unknown role %q", entity.ErrValidation, u.Role)
	}
	return nil
}
