package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/hotelerp/internal/domain/models"
	"github.com/mamadbah2/hotelerp/internal/repository"
)

// Repository is the persistence inventory needs.
type Repository interface {
	repository.Ledger
	repository.Entries
	repository.Items
	repository.Hotels
	repository.Recipes
}

// Service records stock movements and keeps running balances.
type Service struct {
	repo   Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires a new inventory service instance.
func NewService(repo Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Movement is a single ledger posting.
type Movement struct {
	ItemID       primitive.ObjectID
	ItemName     string
	Unit         string
	Location     string
	Direction    models.Direction
	Kind         models.EntryKind
	Quantity     decimal.Decimal
	Date         time.Time
	Counterparty string
	ReferenceID  *primitive.ObjectID
	CreatedBy    primitive.ObjectID
}

// Post applies a movement to the running balance and appends the ledger entry carrying
// the balances around it.
func (s *Service) Post(ctx context.Context, m Movement) (*models.StockLedgerEntry, error) {
	if !m.Quantity.IsPositive() {
		return nil, models.Invalid("quantity", "must be positive")
	}

	entry := &models.StockLedgerEntry{
		ItemID:       m.ItemID,
		ItemName:     m.ItemName,
		Location:     m.Location,
		Direction:    m.Direction,
		Kind:         m.Kind,
		Quantity:     m.Quantity,
		Unit:         m.Unit,
		Date:         m.Date,
		Counterparty: m.Counterparty,
		ReferenceID:  m.ReferenceID,
		CreatedBy:    m.CreatedBy,
		CreatedAt:    s.now(),
	}
	if entry.Date.IsZero() {
		entry.Date = entry.CreatedAt
	}

	closing, err := s.repo.AdjustBalance(ctx, m.ItemID, m.Location, entry.Delta())
	if err != nil {
		return nil, fmt.Errorf("post %s movement: %w", m.Kind, err)
	}
	entry.SettleBalances(closing)

	if err := s.repo.AppendEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("append ledger entry: %w", err)
	}

	if entry.OverConsumed {
		s.logger.Warn("stock balance went negative",
			zap.String("item_id", m.ItemID.Hex()),
			zap.String("item", m.ItemName),
			zap.String("location", m.Location),
			zap.String("closing", closing.String()))
	}
	return entry, nil
}

// IssueInput is the payload of POST /stock/issues.
type IssueInput struct {
	HotelID primitive.ObjectID    `json:"hotel_id" binding:"required"`
	Date    time.Time             `json:"date"`
	Lines   []models.QuantityLine `json:"lines" binding:"required,min=1,dive"`
	Notes   string                `json:"notes"`
}

// IssueResult groups the two postings of every issued line.
type IssueResult struct {
	ReferenceID primitive.ObjectID        `json:"reference_id"`
	Entries     []models.StockLedgerEntry `json:"entries"`
}

// Issue moves stock from the central store to a hotel: an outward issue at the store
// and an inward issue at the hotel per line, sharing one reference.
func (s *Service) Issue(ctx context.Context, actor primitive.ObjectID, in IssueInput) (*IssueResult, error) {
	hotel, err := s.activeHotel(ctx, in.HotelID)
	if err != nil {
		return nil, err
	}
	lines, err := s.resolveLines(ctx, in.Lines)
	if err != nil {
		return nil, err
	}

	ref := primitive.NewObjectID()
	date := s.dateOrNow(in.Date)
	result := &IssueResult{ReferenceID: ref}

	for _, line := range lines {
		outward, err := s.Post(ctx, Movement{
			ItemID:       line.ItemID,
			ItemName:     line.ItemName,
			Unit:         line.Unit,
			Location:     models.StoreLocation,
			Direction:    models.DirectionOutward,
			Kind:         models.KindIssue,
			Quantity:     line.Quantity,
			Date:         date,
			Counterparty: hotel.Name,
			ReferenceID:  &ref,
			CreatedBy:    actor,
		})
		if err != nil {
			return nil, err
		}
		inward, err := s.Post(ctx, Movement{
			ItemID:       line.ItemID,
			ItemName:     line.ItemName,
			Unit:         line.Unit,
			Location:     hotel.Location(),
			Direction:    models.DirectionInward,
			Kind:         models.KindIssue,
			Quantity:     line.Quantity,
			Date:         date,
			Counterparty: models.StoreLocation,
			ReferenceID:  &ref,
			CreatedBy:    actor,
		})
		if err != nil {
			return nil, err
		}
		result.Entries = append(result.Entries, *outward, *inward)
	}

	s.logger.Info("stock issued",
		zap.String("reference_id", ref.Hex()),
		zap.String("hotel_id", hotel.ID.Hex()),
		zap.Int("lines", len(lines)))
	return result, nil
}

// ConsumptionInput is the payload of POST /consumption.
type ConsumptionInput struct {
	HotelID primitive.ObjectID    `json:"hotel_id" binding:"required"`
	Date    time.Time             `json:"date"`
	Lines   []models.QuantityLine `json:"lines" binding:"required,min=1,dive"`
	Notes   string                `json:"notes"`
}

// RecordConsumption stores what a hotel used and posts an outward consumption entry
// at the hotel per line.
func (s *Service) RecordConsumption(ctx context.Context, actor primitive.ObjectID, in ConsumptionInput) (*models.ConsumptionEntry, error) {
	hotel, err := s.activeHotel(ctx, in.HotelID)
	if err != nil {
		return nil, err
	}
	lines, err := s.resolveLines(ctx, in.Lines)
	if err != nil {
		return nil, err
	}

	entry := &models.ConsumptionEntry{
		HotelID:   hotel.ID,
		Date:      s.dateOrNow(in.Date),
		Lines:     lines,
		Notes:     strings.TrimSpace(in.Notes),
		CreatedBy: actor,
		CreatedAt: s.now(),
	}
	if err := s.repo.CreateConsumption(ctx, entry); err != nil {
		return nil, fmt.Errorf("create consumption: %w", err)
	}

	for _, line := range lines {
		if _, err := s.Post(ctx, Movement{
			ItemID:      line.ItemID,
			ItemName:    line.ItemName,
			Unit:        line.Unit,
			Location:    hotel.Location(),
			Direction:   models.DirectionOutward,
			Kind:        models.KindConsumption,
			Quantity:    line.Quantity,
			Date:        entry.Date,
			ReferenceID: &entry.ID,
			CreatedBy:   actor,
		}); err != nil {
			return nil, err
		}
	}
	return entry, nil
}

// SalesInput is the payload of POST /sales.
type SalesInput struct {
	HotelID primitive.ObjectID `json:"hotel_id" binding:"required"`
	Date    time.Time          `json:"date"`
	Lines   []models.SalesLine `json:"lines" binding:"required,min=1,dive"`
}

// RecordSales stores recipe portions sold by a hotel.
func (s *Service) RecordSales(ctx context.Context, actor primitive.ObjectID, in SalesInput) (*models.SalesEntry, error) {
	hotel, err := s.activeHotel(ctx, in.HotelID)
	if err != nil {
		return nil, err
	}
	if len(in.Lines) == 0 {
		return nil, models.Invalid("lines", "at least one line is required")
	}

	lines := make([]models.SalesLine, 0, len(in.Lines))
	for i, line := range in.Lines {
		field := fmt.Sprintf("lines[%d]", i)
		if !line.Portions.IsPositive() {
			return nil, models.Invalid(field+".portions", "must be positive")
		}
		recipe, err := s.repo.GetRecipe(ctx, line.RecipeID)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return nil, models.Invalid(field+".recipe_id", "unknown recipe")
			}
			return nil, err
		}
		if !recipe.Active || (recipe.HotelID != nil && *recipe.HotelID != hotel.ID) {
			return nil, models.Invalid(field+".recipe_id", "recipe is not available for this hotel")
		}
		lines = append(lines, models.SalesLine{RecipeID: recipe.ID, RecipeName: recipe.Name, Portions: line.Portions})
	}

	entry := &models.SalesEntry{
		HotelID:   hotel.ID,
		Date:      s.dateOrNow(in.Date),
		Lines:     lines,
		CreatedBy: actor,
		CreatedAt: s.now(),
	}
	if err := s.repo.CreateSales(ctx, entry); err != nil {
		return nil, fmt.Errorf("create sales: %w", err)
	}
	return entry, nil
}

// AdjustmentInput is the payload of POST /stock/adjustments. A negative quantity
// removes stock.
type AdjustmentInput struct {
	ItemID   primitive.ObjectID `json:"item_id" binding:"required"`
	Location string             `json:"location" binding:"required"`
	Quantity decimal.Decimal    `json:"quantity"`
	Date     time.Time          `json:"date"`
	Reason   string             `json:"reason" binding:"required"`
}

// Adjust corrects a balance after a physical count.
func (s *Service) Adjust(ctx context.Context, actor primitive.ObjectID, in AdjustmentInput) (*models.StockLedgerEntry, error) {
	if in.Quantity.IsZero() {
		return nil, models.Invalid("quantity", "must not be zero")
	}
	if err := s.CheckLocation(ctx, in.Location); err != nil {
		return nil, err
	}
	item, err := s.activeItem(ctx, "item_id", in.ItemID)
	if err != nil {
		return nil, err
	}

	direction := models.DirectionInward
	if in.Quantity.IsNegative() {
		direction = models.DirectionOutward
	}
	return s.Post(ctx, Movement{
		ItemID:       item.ID,
		ItemName:     item.Name,
		Unit:         item.Unit,
		Location:     in.Location,
		Direction:    direction,
		Kind:         models.KindAdjustment,
		Quantity:     in.Quantity.Abs(),
		Date:         s.dateOrNow(in.Date),
		Counterparty: strings.TrimSpace(in.Reason),
		CreatedBy:    actor,
	})
}

// Balances returns current balances, optionally narrowed to a location and an item.
func (s *Service) Balances(ctx context.Context, location string, itemID *primitive.ObjectID) ([]models.StockBalance, error) {
	if location != "" {
		if err := s.CheckLocation(ctx, location); err != nil {
			return nil, err
		}
	}
	return s.repo.ListBalances(ctx, location, itemID)
}

// Ledger lists ledger entries in date order with balances restated in that order, so a
// backdated movement chains with its neighbours.
func (s *Service) Ledger(ctx context.Context, filter models.LedgerFilter) ([]models.StockLedgerEntry, error) {
	history, err := s.repo.ListEntries(ctx, models.LedgerFilter{ItemID: filter.ItemID, Location: filter.Location, To: filter.To})
	if err != nil {
		return nil, err
	}
	models.RestateBalances(history)

	out := make([]models.StockLedgerEntry, 0, len(history))
	for _, e := range history {
		if filter.Matches(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

// CheckLocation accepts the central store or the id of a known hotel.
func (s *Service) CheckLocation(ctx context.Context, location string) error {
	if location == models.StoreLocation {
		return nil
	}
	id, err := primitive.ObjectIDFromHex(location)
	if err != nil {
		return models.Invalid("location", "must be \"store\" or a hotel id")
	}
	if _, err := s.repo.GetHotel(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.Invalid("location", "unknown hotel")
		}
		return err
	}
	return nil
}

func (s *Service) resolveLines(ctx context.Context, in []models.QuantityLine) ([]models.QuantityLine, error) {
	if len(in) == 0 {
		return nil, models.Invalid("lines", "at least one line is required")
	}
	out := make([]models.QuantityLine, 0, len(in))
	for i, line := range in {
		field := fmt.Sprintf("lines[%d]", i)
		if !line.Quantity.IsPositive() {
			return nil, models.Invalid(field+".quantity", "must be positive")
		}
		item, err := s.activeItem(ctx, field+".item_id", line.ItemID)
		if err != nil {
			return nil, err
		}
		out = append(out, models.QuantityLine{ItemID: item.ID, ItemName: item.Name, Quantity: line.Quantity, Unit: item.Unit})
	}
	return out, nil
}

func (s *Service) activeHotel(ctx context.Context, id primitive.ObjectID) (*models.Hotel, error) {
	hotel, err := s.repo.GetHotel(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.Invalid("hotel_id", "unknown hotel")
		}
		return nil, err
	}
	if !hotel.Active {
		return nil, models.Invalid("hotel_id", "hotel is disabled")
	}
	return hotel, nil
}

func (s *Service) activeItem(ctx context.Context, field string, id primitive.ObjectID) (*models.Item, error) {
	item, err := s.repo.GetItem(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.Invalid(field, "unknown item")
		}
		return nil, err
	}
	if !item.Active {
		return nil, models.Invalid(field, "item is disabled")
	}
	return item, nil
}

func (s *Service) dateOrNow(date time.Time) time.Time {
	if date.IsZero() {
		return s.now()
	}
	return date.UTC()
}
