package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/hotelerp/internal/domain/models"
	"github.com/mamadbah2/hotelerp/internal/service/auth"
	"github.com/mamadbah2/hotelerp/internal/service/inventory"
)

// InventoryService posts stock movements and reads the ledger.
type InventoryService interface {
	Issue(ctx context.Context, actor primitive.ObjectID, in inventory.IssueInput) (*inventory.IssueResult, error)
	Adjust(ctx context.Context, actor primitive.ObjectID, in inventory.AdjustmentInput) (*models.StockLedgerEntry, error)
	RecordConsumption(ctx context.Context, actor primitive.ObjectID, in inventory.ConsumptionInput) (*models.ConsumptionEntry, error)
	RecordSales(ctx context.Context, actor primitive.ObjectID, in inventory.SalesInput) (*models.SalesEntry, error)
	Balances(ctx context.Context, location string, itemID *primitive.ObjectID) ([]models.StockBalance, error)
	Ledger(ctx context.Context, filter models.LedgerFilter) ([]models.StockLedgerEntry, error)
}

// StockHandler serves /stock, /consumption and /sales.
type StockHandler struct {
	svc    InventoryService
	loc    *time.Location
	logger *zap.Logger
}

// NewStockHandler constructs the HTTP handler adapter. Date-only query parameters are read
// in loc.
func NewStockHandler(svc InventoryService, loc *time.Location, logger *zap.Logger) *StockHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &StockHandler{svc: svc, loc: loc, logger: logger}
}

func (h *StockHandler) Issue(c *gin.Context) {
	var in inventory.IssueInput
	if !bindJSON(c, h.logger, &in) {
		return
	}
	result, err := h.svc.Issue(c.Request.Context(), actorID(c), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *StockHandler) Adjust(c *gin.Context) {
	var in inventory.AdjustmentInput
	if !bindJSON(c, h.logger, &in) {
		return
	}
	entry, err := h.svc.Adjust(c.Request.Context(), actorID(c), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (h *StockHandler) RecordConsumption(c *gin.Context) {
	var in inventory.ConsumptionInput
	if !bindJSON(c, h.logger, &in) {
		return
	}
	if err := pinHotel(CurrentClaims(c), &in.HotelID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	entry, err := h.svc.RecordConsumption(c.Request.Context(), actorID(c), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (h *StockHandler) RecordSales(c *gin.Context) {
	var in inventory.SalesInput
	if !bindJSON(c, h.logger, &in) {
		return
	}
	if err := pinHotel(CurrentClaims(c), &in.HotelID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	entry, err := h.svc.RecordSales(c.Request.Context(), actorID(c), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (h *StockHandler) Balances(c *gin.Context) {
	itemID, err := queryID(c, "item_id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	location, err := scopedLocation(CurrentClaims(c), c.Query("location"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	balances, err := h.svc.Balances(c.Request.Context(), location, itemID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": balances})
}

func (h *StockHandler) Ledger(c *gin.Context) {
	itemID, err := queryID(c, "item_id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	location, err := scopedLocation(CurrentClaims(c), c.Query("location"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	from, to, err := queryRange(c, h.loc)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	filter := models.LedgerFilter{
		ItemID:    itemID,
		Location:  location,
		Kind:      models.EntryKind(c.Query("kind")),
		Direction: models.Direction(c.Query("direction")),
		From:      from,
		To:        to,
	}
	entries, err := h.svc.Ledger(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entries})
}

// scopedLocation pins hotel-scoped callers to their hotel's ledger location.
func scopedLocation(claims *auth.Claims, location string) (string, error) {
	if claims == nil || !claims.Role.HotelScoped() {
		return location, nil
	}
	own := claims.HotelObjectID()
	if own == nil {
		return "", models.ErrForbidden
	}
	if location != "" && location != own.Hex() {
		return "", models.ErrForbidden
	}
	return own.Hex(), nil
}
