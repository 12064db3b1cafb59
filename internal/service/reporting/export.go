package reporting

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/mamadbah2/hotelerp/internal/domain/models"
)

// XLSXContentType is the MIME type of WriteLeakageXLSX output.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const leakageSheet = "Leakage"

var leakageHeader = []interface{}{"Group", "Issued", "Consumed", "Leakage", "Leakage %"}

// WriteLeakageXLSX renders the report as a single-sheet workbook.
func WriteLeakageXLSX(w io.Writer, report *models.LeakageReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", leakageSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	title := fmt.Sprintf("Leakage by %s %s", report.GroupBy, rangeLabel(report))
	if err := f.SetCellValue(leakageSheet, "A1", title); err != nil {
		return err
	}
	if err := f.SetSheetRow(leakageSheet, "A3", &leakageHeader); err != nil {
		return err
	}

	rowNo := 4
	for _, row := range withTotal(report) {
		cell, err := excelize.CoordinatesToCellName(1, rowNo)
		if err != nil {
			return err
		}
		values := []interface{}{
			row.Label,
			number(row.Issued),
			number(row.Consumed),
			number(row.Leakage),
			number(row.PercentDifference),
		}
		if err := f.SetSheetRow(leakageSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", rowNo, err)
		}
		rowNo++
	}

	if err := f.SetColWidth(leakageSheet, "A", "A", 32); err != nil {
		return err
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// LeakageSheetHeader labels the columns of LeakageSheetRows.
var LeakageSheetHeader = []interface{}{"Period", "Group by", "Label", "Issued", "Consumed", "Leakage", "Leakage %"}

// LeakageSheetRows flattens a report into spreadsheet rows: period, grouping, label,
// issued, consumed, leakage and percentage.
func LeakageSheetRows(report *models.LeakageReport) [][]interface{} {
	period := rangeLabel(report)
	rows := make([][]interface{}, 0, len(report.Rows)+1)
	for _, row := range withTotal(report) {
		rows = append(rows, []interface{}{
			period,
			string(report.GroupBy),
			row.Label,
			row.Issued.String(),
			row.Consumed.String(),
			row.Leakage.String(),
			row.PercentDifference.StringFixed(2),
		})
	}
	return rows
}

// ExportLeakageToSheets appends the report to the configured spreadsheet range.
func (s *Service) ExportLeakageToSheets(ctx context.Context, report *models.LeakageReport) error {
	if s.sheets == nil {
		return ErrSheetsDisabled
	}
	rows := LeakageSheetRows(report)
	if err := s.sheets.AppendTable(ctx, s.leakageRange, LeakageSheetHeader, rows); err != nil {
		return fmt.Errorf("export leakage: %w", err)
	}
	s.logger.Info("leakage report exported to sheets", zap.Int("rows", len(rows)), zap.String("range", s.leakageRange))
	return nil
}

// ExportDailyToSheets appends a nightly snapshot to the configured spreadsheet range.
func (s *Service) ExportDailyToSheets(ctx context.Context, daily *models.DailyReport) error {
	return s.ExportLeakageToSheets(ctx, &models.LeakageReport{
		From:    daily.Date,
		To:      daily.Date.AddDate(0, 0, 1),
		GroupBy: models.GroupByHotel,
		Rows:    daily.Rows,
		Total:   daily.Total,
	})
}

// LastDay is the day holding the last instant before the exclusive bound to. A midnight
// bound gives the previous day; any other bound gives its own day.
func LastDay(to time.Time) time.Time {
	return to.Add(-time.Nanosecond)
}

func rangeLabel(report *models.LeakageReport) string {
	switch {
	case report.From.IsZero() && report.To.IsZero():
		return "all time"
	case report.To.IsZero():
		return "from " + report.From.Format(dateLayout)
	case report.From.IsZero():
		return "until " + LastDay(report.To).Format(dateLayout)
	}
	last := LastDay(report.To)
	if last.Format(dateLayout) == report.From.Format(dateLayout) {
		return report.From.Format(dateLayout)
	}
	return report.From.Format(dateLayout) + " to " + last.Format(dateLayout)
}

func withTotal(report *models.LeakageReport) []models.LeakageRow {
	rows := make([]models.LeakageRow, 0, len(report.Rows)+1)
	rows = append(rows, report.Rows...)
	return append(rows, report.Total)
}

func number(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
