package port

import (
	"context"

	"github.com/garyjia/expense-approval/internal/domain/entity"
)

// Get* methods return (nil, nil) when the row does not exist; services turn
// that into entity.ErrNotFound.

// CompanyRepository defines persistence operations for Company
type CompanyRepository interface {
	Create(ctx context.Context, company *entity.Company) error
	GetByID(ctx context.Context, id int64) (*entity.Company, error)
}

// UserRepository defines persistence operations for User
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	ListByCompany(ctx context.Context, companyID int64) ([]*entity.User, error)
	AssignRule(ctx context.Context, userID, ruleID int64) error
}

// RuleRepository defines persistence operations for Rule. Rules are
// immutable, so there is no update.
type RuleRepository interface {
	Create(ctx context.Context, rule *entity.Rule) error
	GetByID(ctx context.Context, id int64) (*entity.Rule, error)
	ListByCompany(ctx context.Context, companyID int64) ([]*entity.Rule, error)
}

// ClaimRepository defines persistence operations for Claim and its lines
type ClaimRepository interface {
	// Create inserts the claim and its lines
	Create(ctx context.Context, claim *entity.Claim) error
	GetByID(ctx context.Context, id int64) (*entity.Claim, error)
	// GetForUpdate reads the claim and locks its row until the surrounding
	// transaction ends, where the store supports row locks
	GetForUpdate(ctx context.Context, id int64) (*entity.Claim, error)
	GetLines(ctx context.Context, claimID int64) ([]*entity.ClaimLine, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]*entity.Claim, error)
	ListByStatus(ctx context.Context, companyID int64, status string) ([]*entity.Claim, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
}

// DecisionRepository defines persistence operations for Decision
type DecisionRepository interface {
	// Create fails with entity.ErrConflict when the approver already decided
	Create(ctx context.Context, decision *entity.Decision) error
	ListByClaim(ctx context.Context, claimID int64) ([]*entity.Decision, error)
	ListByClaims(ctx context.Context, claimIDs []int64) (map[int64][]*entity.Decision, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ClaimLocker serializes work on a single claim within this process
type ClaimLocker interface {
	Lock(claimID int64) (unlock func())
}
