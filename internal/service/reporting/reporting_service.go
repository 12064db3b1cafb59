package reporting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/hotelerp/internal/domain/models"
	"github.com/mamadbah2/hotelerp/internal/repository"
)

const dateLayout = "2006-01-02"

var hundred = decimal.NewFromInt(100)

// ErrSheetsDisabled is returned by Sheets exports when no spreadsheet is configured.
var ErrSheetsDisabled = errors.New("google sheets export is not configured")

// Repository is the persistence the reports read from.
type Repository interface {
	repository.Ledger
	repository.Entries
	repository.Hotels
	repository.Items
	repository.Recipes
	repository.Orders
	repository.Reports
}

// SheetWriter appends a table, with its header row, to a spreadsheet range.
type SheetWriter interface {
	AppendTable(ctx context.Context, sheetRange string, header []interface{}, rows [][]interface{}) error
}

// Service computes the issued-vs-consumed, consumed-vs-sales, stock and spend reports.
type Service struct {
	repo         Repository
	sheets       SheetWriter
	leakageRange string
	logger       *zap.Logger
	now          func() time.Time
}

// NewService wires a new reporting service instance. sheets may be nil.
func NewService(repository Repository, sheets SheetWriter, leakageRange string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:         repository,
		sheets:       sheets,
		leakageRange: leakageRange,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Leakage sums quantities issued to hotels and quantities the hotels reported as
// consumed over the range, grouped by hotel or item.
func (s *Service) Leakage(ctx context.Context, q models.ReportQuery) (*models.LeakageReport, error) {
	if err := checkRange(q); err != nil {
		return nil, err
	}
	if q.GroupBy == "" {
		q.GroupBy = models.GroupByHotel
	}
	if q.GroupBy != models.GroupByHotel && q.GroupBy != models.GroupByItem {
		return nil, models.Invalid("group_by", "must be hotel or item")
	}

	hotels, err := s.hotelNames(ctx)
	if err != nil {
		return nil, err
	}

	filter := models.LedgerFilter{
		ItemID:    q.ItemID,
		Kind:      models.KindIssue,
		Direction: models.DirectionInward,
		From:      q.From,
		To:        q.To,
	}
	if q.HotelID != nil {
		filter.Location = q.HotelID.Hex()
	}
	issues, err := s.repo.ListEntries(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("load issues: %w", err)
	}

	consumption, err := s.repo.ListConsumption(ctx, models.EntryFilter{HotelID: q.HotelID, From: q.From, To: q.To})
	if err != nil {
		return nil, fmt.Errorf("load consumption: %w", err)
	}

	acc := newLeakageAccumulator()
	for _, e := range issues {
		if e.Location == models.StoreLocation {
			continue
		}
		key, label := groupKey(q.GroupBy, e.Location, hotels[e.Location], e.ItemID, e.ItemName)
		row := acc.row(key, label)
		row.Issued = row.Issued.Add(e.Quantity)
	}
	for _, entry := range consumption {
		hotelKey := entry.HotelID.Hex()
		for _, line := range entry.Lines {
			if q.ItemID != nil && line.ItemID != *q.ItemID {
				continue
			}
			key, label := groupKey(q.GroupBy, hotelKey, hotels[hotelKey], line.ItemID, line.ItemName)
			row := acc.row(key, label)
			row.Consumed = row.Consumed.Add(line.Quantity)
		}
	}

	report := &models.LeakageReport{
		From:    q.From,
		To:      q.To,
		GroupBy: q.GroupBy,
		Rows:    acc.rows(),
		Total:   models.LeakageRow{Key: "total", Label: "Total"},
	}
	for _, row := range report.Rows {
		report.Total.Issued = report.Total.Issued.Add(row.Issued)
		report.Total.Consumed = report.Total.Consumed.Add(row.Consumed)
	}
	finishLeakageRow(&report.Total)

	return report, nil
}

// finishLeakageRow derives leakage and its percentage of the issued quantity.
func finishLeakageRow(row *models.LeakageRow) {
	row.Leakage = row.Issued.Sub(row.Consumed)
	row.PercentDifference = percentOf(row.Leakage, row.Issued)
}

func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred).Round(2)
}

func groupKey(by models.GroupBy, hotelKey, hotelName string, itemID primitive.ObjectID, itemName string) (string, string) {
	if by == models.GroupByItem {
		return itemID.Hex(), itemName
	}
	if hotelName == "" {
		hotelName = hotelKey
	}
	return hotelKey, hotelName
}

type leakageAccumulator struct {
	byKey map[string]*models.LeakageRow
}

func newLeakageAccumulator() *leakageAccumulator {
	return &leakageAccumulator{byKey: make(map[string]*models.LeakageRow)}
}

func (a *leakageAccumulator) row(key, label string) *models.LeakageRow {
	row, ok := a.byKey[key]
	if !ok {
		row = &models.LeakageRow{Key: key, Label: label}
		a.byKey[key] = row
	}
	if row.Label == "" {
		row.Label = label
	}
	return row
}

func (a *leakageAccumulator) rows() []models.LeakageRow {
	out := make([]models.LeakageRow, 0, len(a.byKey))
	for _, row := range a.byKey {
		finishLeakageRow(row)
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Label != out[j].Label {
			return out[i].Label < out[j].Label
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// ConsumedVsSales compares what recipes say sold dishes should have used with what each
// hotel reported as consumed, per hotel and item.
func (s *Service) ConsumedVsSales(ctx context.Context, q models.ReportQuery) ([]models.ConsumptionSalesRow, error) {
	if err := checkRange(q); err != nil {
		return nil, err
	}

	hotels, err := s.hotelNames(ctx)
	if err != nil {
		return nil, err
	}

	filter := models.EntryFilter{HotelID: q.HotelID, From: q.From, To: q.To}
	sales, err := s.repo.ListSales(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("load sales: %w", err)
	}
	consumption, err := s.repo.ListConsumption(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("load consumption: %w", err)
	}

	type key struct {
		hotel primitive.ObjectID
		item  primitive.ObjectID
	}
	rows := make(map[key]*models.ConsumptionSalesRow)
	get := func(hotel, item primitive.ObjectID, itemName string) *models.ConsumptionSalesRow {
		k := key{hotel: hotel, item: item}
		row, ok := rows[k]
		if !ok {
			row = &models.ConsumptionSalesRow{
				HotelID:   hotel,
				HotelName: hotels[hotel.Hex()],
				ItemID:    item,
				ItemName:  itemName,
			}
			rows[k] = row
		}
		return row
	}

	recipes := make(map[primitive.ObjectID]*models.Recipe)
	for _, entry := range sales {
		for _, line := range entry.Lines {
			recipe, ok := recipes[line.RecipeID]
			if !ok {
				recipe, err = s.repo.GetRecipe(ctx, line.RecipeID)
				if err != nil {
					if !errors.Is(err, models.ErrNotFound) {
						return nil, fmt.Errorf("load recipe %s: %w", line.RecipeID.Hex(), err)
					}
					s.logger.Warn("sales line references a missing recipe", zap.String("recipe_id", line.RecipeID.Hex()))
					recipe = nil
				}
				recipes[line.RecipeID] = recipe
			}
			if recipe == nil {
				continue
			}
			for _, ing := range recipe.Ingredients {
				if q.ItemID != nil && ing.ItemID != *q.ItemID {
					continue
				}
				row := get(entry.HotelID, ing.ItemID, ing.ItemName)
				row.Expected = row.Expected.Add(ing.Quantity.Mul(line.Portions))
			}
		}
	}

	for _, entry := range consumption {
		for _, line := range entry.Lines {
			if q.ItemID != nil && line.ItemID != *q.ItemID {
				continue
			}
			row := get(entry.HotelID, line.ItemID, line.ItemName)
			row.Consumed = row.Consumed.Add(line.Quantity)
		}
	}

	out := make([]models.ConsumptionSalesRow, 0, len(rows))
	for _, row := range rows {
		row.Variance = row.Consumed.Sub(row.Expected)
		row.VariancePercent = percentOf(row.Variance, row.Expected)
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].HotelName != out[j].HotelName {
			return out[i].HotelName < out[j].HotelName
		}
		return out[i].ItemName < out[j].ItemName
	})
	return out, nil
}

type stockKey struct {
	item     primitive.ObjectID
	location string
}

// StockSummary reports per item and location the balance before the range, the inward
// and outward movements inside it and the resulting closing balance.
func (s *Service) StockSummary(ctx context.Context, q models.ReportQuery) ([]models.StockSummaryRow, error) {
	if err := checkRange(q); err != nil {
		return nil, err
	}

	location := ""
	if q.HotelID != nil {
		location = q.HotelID.Hex()
	}

	rows := make(map[stockKey]*models.StockSummaryRow)
	get := func(e models.StockLedgerEntry) *models.StockSummaryRow {
		k := stockKey{item: e.ItemID, location: e.Location}
		row, ok := rows[k]
		if !ok {
			row = &models.StockSummaryRow{ItemID: e.ItemID, ItemName: e.ItemName, Location: e.Location}
			rows[k] = row
		}
		return row
	}

	history, err := s.repo.ListEntries(ctx, models.LedgerFilter{ItemID: q.ItemID, Location: location, To: q.To})
	if err != nil {
		return nil, fmt.Errorf("load movements: %w", err)
	}
	models.RestateBalances(history)

	for _, e := range history {
		row := get(e)
		if e.Date.Before(q.From) {
			row.Opening = row.Opening.Add(e.Delta())
			continue
		}
		if e.Direction == models.DirectionInward {
			row.Inward = row.Inward.Add(e.Quantity)
		} else {
			row.Outward = row.Outward.Add(e.Quantity)
		}
		if e.OverConsumed {
			row.OverConsumed = true
		}
	}

	out := make([]models.StockSummaryRow, 0, len(rows))
	for _, row := range rows {
		row.Closing = row.Opening.Add(row.Inward).Sub(row.Outward)
		if row.Closing.IsNegative() {
			row.OverConsumed = true
		}
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Location != out[j].Location {
			return out[i].Location < out[j].Location
		}
		return out[i].ItemName < out[j].ItemName
	})
	return out, nil
}

// VendorSpend sums approved, billed and paid orders per vendor by bill date.
func (s *Service) VendorSpend(ctx context.Context, q models.ReportQuery) ([]models.VendorSpendRow, error) {
	if err := checkRange(q); err != nil {
		return nil, err
	}

	orders, err := s.repo.ListOrders(ctx, models.OrderFilter{From: q.From, To: q.To})
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}

	rows := make(map[primitive.ObjectID]*models.VendorSpendRow)
	for _, order := range orders {
		switch order.Status {
		case models.StatusMDApproved, models.StatusPendingPayment, models.StatusPaid:
		default:
			continue
		}
		row, ok := rows[order.VendorID]
		if !ok {
			row = &models.VendorSpendRow{VendorID: order.VendorID, VendorName: order.VendorName}
			rows[order.VendorID] = row
		}
		row.Orders++
		row.Subtotal = row.Subtotal.Add(order.Subtotal)
		row.GSTTotal = row.GSTTotal.Add(order.GSTTotal)
		row.FinalAmount = row.FinalAmount.Add(order.FinalAmount)
		if order.Status == models.StatusPaid {
			row.PaidAmount = row.PaidAmount.Add(order.FinalAmount)
		}
	}

	out := make([]models.VendorSpendRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FinalAmount.Equal(out[j].FinalAmount) {
			return out[i].FinalAmount.GreaterThan(out[j].FinalAmount)
		}
		return out[i].VendorName < out[j].VendorName
	})
	return out, nil
}

// DailySnapshot computes the per-hotel leakage of the calendar day containing day in
// loc and stores it as a DailyReport.
func (s *Service) DailySnapshot(ctx context.Context, day time.Time, loc *time.Location) (*models.DailyReport, error) {
	if loc == nil {
		loc = time.UTC
	}
	local := day.In(loc)
	from := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	to := from.AddDate(0, 0, 1)

	leakage, err := s.Leakage(ctx, models.ReportQuery{From: from.UTC(), To: to.UTC(), GroupBy: models.GroupByHotel})
	if err != nil {
		return nil, err
	}

	report := models.DailyReport{
		Date:      from.UTC(),
		Rows:      leakage.Rows,
		Total:     leakage.Total,
		CreatedAt: s.now(),
	}
	if err := s.repo.SaveDailyReport(ctx, &report); err != nil {
		return nil, fmt.Errorf("save daily report %s: %w", from.Format(dateLayout), err)
	}

	s.logger.Info("daily leakage snapshot stored",
		zap.String("date", from.Format(dateLayout)),
		zap.Int("hotels", len(report.Rows)),
		zap.String("leakage", report.Total.Leakage.String()))
	return &report, nil
}

func (s *Service) hotelNames(ctx context.Context) (map[string]string, error) {
	hotels, err := s.repo.ListHotels(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("load hotels: %w", err)
	}
	names := make(map[string]string, len(hotels))
	for _, h := range hotels {
		names[h.Location()] = h.Name
	}
	return names, nil
}

func checkRange(q models.ReportQuery) error {
	if !q.From.IsZero() && !q.To.IsZero() && !q.From.Before(q.To) {
		return models.Invalid("to", "must be after from")
	}
	return nil
}
