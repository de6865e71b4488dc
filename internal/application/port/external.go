package port

import (
	"context"

	"github.com/garyjia/expense-approval/internal/domain/entity"
)

// RateProvider looks up currency exchange rates
type RateProvider interface {
	// GetRate returns how many units of to one unit of from buys
	GetRate(ctx context.Context, from, to string) (float64, error)
}

// ClaimReportRenderer renders claims into a downloadable report
type ClaimReportRenderer interface {
	RenderClaims(ctx context.Context, company *entity.Company, owner *entity.User, claims []*entity.Claim) ([]byte, error)
	ContentType() string
}
