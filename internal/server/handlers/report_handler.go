package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/hotelerp/internal/domain/models"
	"github.com/mamadbah2/hotelerp/internal/service/reporting"
)

// ReportService computes the aggregation reports.
type ReportService interface {
	Leakage(ctx context.Context, q models.ReportQuery) (*models.LeakageReport, error)
	ConsumedVsSales(ctx context.Context, q models.ReportQuery) ([]models.ConsumptionSalesRow, error)
	StockSummary(ctx context.Context, q models.ReportQuery) ([]models.StockSummaryRow, error)
	VendorSpend(ctx context.Context, q models.ReportQuery) ([]models.VendorSpendRow, error)
	ExportLeakageToSheets(ctx context.Context, report *models.LeakageReport) error
}

// ReportHandler serves /reports.
type ReportHandler struct {
	svc    ReportService
	loc    *time.Location
	logger *zap.Logger
}

// NewReportHandler constructs the HTTP handler adapter. Date-only query parameters are read
// in loc.
func NewReportHandler(svc ReportService, loc *time.Location, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ReportHandler{svc: svc, loc: loc, logger: logger}
}

func (h *ReportHandler) Leakage(c *gin.Context) {
	q, ok := h.query(c)
	if !ok {
		return
	}
	report, err := h.svc.Leakage(c.Request.Context(), q)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *ReportHandler) ConsumedVsSales(c *gin.Context) {
	q, ok := h.query(c)
	if !ok {
		return
	}
	rows, err := h.svc.ConsumedVsSales(c.Request.Context(), q)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows})
}

func (h *ReportHandler) StockSummary(c *gin.Context) {
	q, ok := h.query(c)
	if !ok {
		return
	}
	rows, err := h.svc.StockSummary(c.Request.Context(), q)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows})
}

func (h *ReportHandler) VendorSpend(c *gin.Context) {
	q, ok := h.query(c)
	if !ok {
		return
	}
	rows, err := h.svc.VendorSpend(c.Request.Context(), q)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows})
}

// ExportLeakage downloads the leakage report as XLSX (default) or appends it to the
// configured Google Sheet with format=sheets.
func (h *ReportHandler) ExportLeakage(c *gin.Context) {
	format := c.DefaultQuery("format", "xlsx")
	if format != "xlsx" && format != "sheets" {
		respondError(c, h.logger, models.Invalid("format", "must be xlsx or sheets"))
		return
	}

	q, ok := h.query(c)
	if !ok {
		return
	}
	report, err := h.svc.Leakage(c.Request.Context(), q)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if format == "sheets" {
		if err := h.svc.ExportLeakageToSheets(c.Request.Context(), report); err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "exported", "rows": len(report.Rows) + 1})
		return
	}

	var buf bytes.Buffer
	if err := reporting.WriteLeakageXLSX(&buf, report); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFilename(report, h.loc)))
	c.Data(http.StatusOK, reporting.XLSXContentType, buf.Bytes())
}

func (h *ReportHandler) query(c *gin.Context) (models.ReportQuery, bool) {
	from, to, err := queryRange(c, h.loc)
	if err != nil {
		respondError(c, h.logger, err)
		return models.ReportQuery{}, false
	}
	itemID, err := queryID(c, "item_id")
	if err != nil {
		respondError(c, h.logger, err)
		return models.ReportQuery{}, false
	}
	requested, err := queryID(c, "hotel_id")
	if err != nil {
		respondError(c, h.logger, err)
		return models.ReportQuery{}, false
	}
	hotelID, err := scopedHotel(CurrentClaims(c), requested)
	if err != nil {
		respondError(c, h.logger, err)
		return models.ReportQuery{}, false
	}

	return models.ReportQuery{
		From:    from,
		To:      to,
		HotelID: hotelID,
		ItemID:  itemID,
		GroupBy: models.GroupBy(c.Query("group_by")),
	}, true
}

// exportFilename names the download after the days the report covers in loc.
func exportFilename(report *models.LeakageReport, loc *time.Location) string {
	name := "leakage-" + string(report.GroupBy)
	if !report.From.IsZero() {
		name += "-" + report.From.In(loc).Format(dateLayout)
	}
	if !report.To.IsZero() {
		name += "-" + reporting.LastDay(report.To).In(loc).Format(dateLayout)
	}
	return name + ".xlsx"
}
