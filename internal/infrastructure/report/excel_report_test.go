package report

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/expense-approval/internal/domain/entity"
)

func TestExcelRenderer_RenderClaims(t *testing.T) {
	r := NewExcelRenderer(zap.NewNop())
	company := &entity.Company{ID: 1, Name: "Acme", DefaultCurrencyCode: "USD"}
	owner := &entity.User{ID: 3, CompanyID: 1, Name: "Eve"}
	claims := []*entity.Claim{
		{
			ID: 10, OwnerID: 3, CompanyID: 1, Description: "Berlin trip",
			Status: entity.StatusPending, LocalCurrencyCode: "EUR",
			TotalLocal: 100, ExchangeRate: 1.08, TotalCompany: 108,
			SubmittedAt: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
			Lines: []*entity.ClaimLine{
				{Category: entity.CategoryTravel, Vendor: "DB", ExpenseDate: "2026-02-27", Amount: 60},
				{Category: entity.CategoryMeal, Vendor: "Cafe", ExpenseDate: "2026-02-28", Amount: 40},
			},
		},
		{
			ID: 11, OwnerID: 3, CompanyID: 1, Description: "Taxi",
			Status: entity.StatusApproved, LocalCurrencyCode: "USD",
			TotalLocal: 20, ExchangeRate: 1, TotalCompany: 20,
			SubmittedAt: time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
		},
	}

	data, err := r.RenderClaims(context.Background(), company, owner, claims)
	require.NoError(t, err)
	assert.Equal(t, XLSXContentType, r.ContentType())

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{claimsSheet, linesSheet}, f.GetSheetList())

	rows, err := f.GetRows(claimsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4) // header, two claims, total
	assert.Equal(t, "Claim ID", rows[0][0])
	assert.Equal(t, "Berlin trip", rows[1][2])
	assert.Equal(t, "Pending", rows[1][3])
	assert.Equal(t, "USD", rows[1][7])

	formula, err := f.GetCellFormula(claimsSheet, "I4")
	require.NoError(t, err)
	assert.Equal(t, "SUM(I2:I3)", formula)

	lines, err := f.GetRows(linesSheet)
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, "DB", lines[1][2])
	assert.Equal(t, "Cafe", lines[2][2])
}

func TestExcelRenderer_Empty(t *testing.T) {
	r := NewExcelRenderer(zap.NewNop())
	data, err := r.RenderClaims(context.Background(),
		&entity.Company{DefaultCurrencyCode: "USD"}, &entity.User{ID: 1}, nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(claimsSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
