// Package report renders claim exports as Excel workbooks.
package report

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/domain/entity"
)

const (
	claimsSheet = "Claims"
	linesSheet  = "Lines"

	// XLSXContentType is the MIME type of the rendered workbook
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var claimHeaders = []string{
	"Claim ID", "Submitted", "Description", "Status",
	"Currency", "Local Total", "Rate", "Company Currency", "Company Total",
}

var lineHeaders = []string{
	"Claim ID", "Category", "Vendor", "Date", "Amount", "Description", "Receipt",
}

// ExcelRenderer writes a user's claims into a two-sheet workbook
type ExcelRenderer struct {
	logger *zap.Logger
}

// NewExcelRenderer creates a new Excel renderer
func NewExcelRenderer(logger *zap.Logger) port.ClaimReportRenderer {
	return &ExcelRenderer{logger: logger}
}

// ContentType returns the MIME type of RenderClaims output
func (r *ExcelRenderer) ContentType() string {
	return XLSXContentType
}

// RenderClaims builds the workbook in memory. Claims keep the order given.
func (r *ExcelRenderer) RenderClaims(ctx context.Context, company *entity.Company, owner *entity.User, claims []*entity.Claim) ([]byte, error) {
	r.logger.Info("Rendering claim export",
		zap.Int64("owner_id", owner.ID),
		zap.Int("claims", len(claims)))

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), claimsSheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(linesSheet); err != nil {
		return nil, fmt.Errorf("failed to create lines sheet: %w", err)
	}

	if err := r.writeRow(f, claimsSheet, 1, toRow(claimHeaders)); err != nil {
		return nil, err
	}
	if err := r.writeRow(f, linesSheet, 1, toRow(lineHeaders)); err != nil {
		return nil, err
	}

	lineRow := 2
	for i, c := range claims {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row := []interface{}{
			c.ID,
			c.SubmittedAt.Format("2006-01-02 15:04"),
			c.Description,
			c.Status,
			c.LocalCurrencyCode,
			c.TotalLocal,
			c.ExchangeRate,
			company.DefaultCurrencyCode,
			c.TotalCompany,
		}
		if err := r.writeRow(f, claimsSheet, i+2, row); err != nil {
			return nil, err
		}

		for _, l := range c.Lines {
			line := []interface{}{
				c.ID, l.Category, l.Vendor, l.ExpenseDate, l.Amount, l.Description, l.ReceiptURL,
			}
			if err := r.writeRow(f, linesSheet, lineRow, line); err != nil {
				return nil, err
			}
			lineRow++
		}
	}

	// Totals in company currency
	if len(claims) > 0 {
		totalRow := len(claims) + 2
		r.setCell(f, claimsSheet, fmt.Sprintf("H%d", totalRow), "Total")
		if err := f.SetCellFormula(claimsSheet, fmt.Sprintf("I%d", totalRow),
			fmt.Sprintf("SUM(I2:I%d)", totalRow-1)); err != nil {
			return nil, fmt.Errorf("failed to set total formula: %w", err)
		}
	}

	if err := f.SetColWidth(claimsSheet, "C", "C", 40); err != nil {
		r.logger.Warn("Failed to set column width", zap.Error(err))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *ExcelRenderer) writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("invalid row %d: %w", row, err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

// setCell sets a cell value, logging rather than failing
func (r *ExcelRenderer) setCell(f *excelize.File, sheet, cell string, value interface{}) {
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		r.logger.Warn("Failed to set cell value",
			zap.String("sheet", sheet),
			zap.String("cell", cell),
			zap.Error(err))
	}
}

func toRow(headers []string) []interface{} {
	row := make([]interface{}, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	return row
}
