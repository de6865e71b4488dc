package service

import (
	"context"

	"github.com/garyjia/expense-approval/internal/application/port"
)

// Export is a rendered report ready for download
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders a user's claims into a report
type ExportService interface {
	ExportClaims(ctx context.Context, userID int64) (*Export, error)
}

type exportServiceImpl struct {
	companyRepo port.CompanyRepository
	userRepo    port.UserRepository
	claimRepo   port.ClaimRepository
	renderer    port.ClaimReportRenderer
	logger      Logger
}

// NewExportService creates a new ExportService
func NewExportService(
	companyRepo port.CompanyRepository,
	userRepo port.UserRepository,
	claimRepo port.ClaimRepository,
	renderer port.ClaimReportRenderer,
	logger Logger,
) ExportService {
	return &exportServiceImpl{
		companyRepo: companyRepo,
		userRepo:    userRepo,
		claimRepo:   claimRepo,
		renderer:    renderer,
		logger:      logger,
	}
}

// ExportClaims renders every claim the user owns, newest first, with lines
func (s *exportServiceImpl) ExportClaims(ctx context.Context, userID int64) (*Export, error) {
	user, err := loadUser(ctx, s.userRepo, userID)
	if err != nil {
		return nil, err
	}
	company, err := loadCompany(ctx, s.companyRepo, user.CompanyID)
	if err != nil {
		return nil, err
	}

	claims, err := s.claimRepo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, c := range claims {
		if c.Lines, err = s.claimRepo.GetLines(ctx, c.ID); err != nil {
			return nil, err
		}
	}

	data, err := s.renderer.RenderClaims(ctx, company, user, claims)
	if err != nil {
		s.logger.Error("Failed to render claim export", "error", err, "user_id", userID)
		return nil, err
	}

	s.logger.Info("Claims exported", "user_id", userID, "claims", len(claims), "bytes", len(data))
	return &Export{
		Filename:    "claims.xlsx",
		ContentType: s.renderer.ContentType(),
		Data:        data,
	}, nil
}
