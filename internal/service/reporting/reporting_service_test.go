package reporting

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/hotelerp/internal/domain/models"
	"github.com/mamadbah2/hotelerp/internal/repository/memory"
	"github.com/mamadbah2/hotelerp/internal/service/inventory"
)

var day = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

type fixture struct {
	svc     *Service
	store   *memory.Store
	seaview models.Hotel
	hilltop models.Hotel
	rice    models.Item
	oil     models.Item
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func line(item models.Item, q string) models.QuantityLine {
	return models.QuantityLine{ItemID: item.ID, Quantity: dec(q)}
}

// newFixture receives stock the day before, issues it to two hotels and records
// consumption on the report day.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	inv := inventory.NewService(store, nil)
	actor := primitive.NewObjectID()

	seaview := models.Hotel{Name: "Seaview", Code: "SV", Active: true}
	require.NoError(t, store.CreateHotel(ctx, &seaview))
	hilltop := models.Hotel{Name: "Hilltop", Code: "HT", Active: true}
	require.NoError(t, store.CreateHotel(ctx, &hilltop))
	rice := models.Item{Name: "Rice", Unit: "kg", Active: true}
	require.NoError(t, store.CreateItem(ctx, &rice))
	oil := models.Item{Name: "Oil", Unit: "l", Active: true}
	require.NoError(t, store.CreateItem(ctx, &oil))

	for item, q := range map[*models.Item]string{&rice: "100", &oil: "50"} {
		_, err := inv.Post(ctx, inventory.Movement{
			ItemID: item.ID, ItemName: item.Name, Unit: item.Unit,
			Location: models.StoreLocation, Direction: models.DirectionInward, Kind: models.KindReceipt,
			Quantity: dec(q), Date: day.AddDate(0, 0, -1),
		})
		require.NoError(t, err)
	}

	_, err := inv.Issue(ctx, actor, inventory.IssueInput{HotelID: seaview.ID, Date: day.Add(8 * time.Hour), Lines: []models.QuantityLine{line(rice, "20"), line(oil, "10")}})
	require.NoError(t, err)
	_, err = inv.Issue(ctx, actor, inventory.IssueInput{HotelID: hilltop.ID, Date: day.Add(9 * time.Hour), Lines: []models.QuantityLine{line(rice, "10")}})
	require.NoError(t, err)

	_, err = inv.RecordConsumption(ctx, actor, inventory.ConsumptionInput{HotelID: seaview.ID, Date: day.Add(20 * time.Hour), Lines: []models.QuantityLine{line(rice, "18"), line(oil, "10")}})
	require.NoError(t, err)
	_, err = inv.RecordConsumption(ctx, actor, inventory.ConsumptionInput{HotelID: hilltop.ID, Date: day.Add(21 * time.Hour), Lines: []models.QuantityLine{line(rice, "10")}})
	require.NoError(t, err)

	// Outside the report day.
	_, err = inv.RecordConsumption(ctx, actor, inventory.ConsumptionInput{HotelID: seaview.ID, Date: day.AddDate(0, 0, 2), Lines: []models.QuantityLine{line(rice, "1")}})
	require.NoError(t, err)

	return &fixture{
		svc:     NewService(store, nil, "Leakage!A:G", nil),
		store:   store,
		seaview: seaview,
		hilltop: hilltop,
		rice:    rice,
		oil:     oil,
	}
}

func oneDay() models.ReportQuery {
	return models.ReportQuery{From: day, To: day.AddDate(0, 0, 1)}
}

func TestLeakageByHotel(t *testing.T) {
	f := newFixture(t)

	report, err := f.svc.Leakage(context.Background(), oneDay())
	require.NoError(t, err)
	assert.Equal(t, models.GroupByHotel, report.GroupBy)
	require.Len(t, report.Rows, 2)

	hilltop, seaview := report.Rows[0], report.Rows[1]
	assert.Equal(t, "Hilltop", hilltop.Label)
	assert.True(t, hilltop.Leakage.IsZero())
	assert.True(t, hilltop.PercentDifference.IsZero())

	assert.Equal(t, "Seaview", seaview.Label)
	assert.Equal(t, f.seaview.Location(), seaview.Key)
	assert.True(t, seaview.Issued.Equal(dec("30")))
	assert.True(t, seaview.Consumed.Equal(dec("28")))
	assert.True(t, seaview.Leakage.Equal(dec("2")))
	assert.True(t, seaview.PercentDifference.Equal(dec("6.67")), "pct %s", seaview.PercentDifference)

	assert.True(t, report.Total.Issued.Equal(dec("40")))
	assert.True(t, report.Total.Consumed.Equal(dec("38")))
	assert.True(t, report.Total.PercentDifference.Equal(dec("5")))

	for _, row := range append(report.Rows, report.Total) {
		assert.True(t, row.Leakage.Equal(row.Issued.Sub(row.Consumed)), "row %s", row.Label)
	}
}

func TestLeakageByItemWithHotelFilter(t *testing.T) {
	f := newFixture(t)
	q := oneDay()
	q.GroupBy = models.GroupByItem
	q.HotelID = &f.seaview.ID

	report, err := f.svc.Leakage(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, report.Rows, 2)
	assert.Equal(t, "Oil", report.Rows[0].Label)
	assert.True(t, report.Rows[0].Leakage.IsZero())
	assert.Equal(t, "Rice", report.Rows[1].Label)
	assert.True(t, report.Rows[1].Issued.Equal(dec("20")))
	assert.True(t, report.Rows[1].Leakage.Equal(dec("2")))
}

func TestLeakageWithoutIssuesHasZeroPercent(t *testing.T) {
	f := newFixture(t)

	report, err := f.svc.Leakage(context.Background(), models.ReportQuery{From: day.AddDate(0, 0, 2), To: day.AddDate(0, 0, 3)})
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	assert.True(t, report.Rows[0].Issued.IsZero())
	assert.True(t, report.Rows[0].Leakage.Equal(dec("-1")))
	assert.True(t, report.Rows[0].PercentDifference.IsZero())
}

func TestLeakageRejectsBadQuery(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Leakage(context.Background(), models.ReportQuery{From: day, To: day})
	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "to", verr.Field)

	_, err = f.svc.Leakage(context.Background(), models.ReportQuery{GroupBy: "vendor"})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "group_by", verr.Field)
}

func TestConsumedVsSales(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	recipe := models.Recipe{
		Name:   "Fried rice",
		Active: true,
		Ingredients: []models.Ingredient{
			{ItemID: f.rice.ID, ItemName: "Rice", Quantity: dec("0.2")},
			{ItemID: f.oil.ID, ItemName: "Oil", Quantity: dec("0.05")},
		},
	}
	require.NoError(t, f.store.CreateRecipe(ctx, &recipe))
	require.NoError(t, f.store.CreateSales(ctx, &models.SalesEntry{
		HotelID: f.seaview.ID,
		Date:    day.Add(22 * time.Hour),
		Lines:   []models.SalesLine{{RecipeID: recipe.ID, Portions: dec("80")}},
	}))

	rows, err := f.svc.ConsumedVsSales(ctx, oneDay())
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Hilltop", rows[0].HotelName)
	assert.True(t, rows[0].Expected.IsZero())
	assert.True(t, rows[0].Variance.Equal(dec("10")))
	assert.True(t, rows[0].VariancePercent.IsZero())

	oil, rice := rows[1], rows[2]
	assert.Equal(t, "Oil", oil.ItemName)
	assert.True(t, oil.Expected.Equal(dec("4")))
	assert.True(t, oil.Variance.Equal(dec("6")))
	assert.True(t, oil.VariancePercent.Equal(dec("150")))

	assert.Equal(t, "Rice", rice.ItemName)
	assert.True(t, rice.Expected.Equal(dec("16")))
	assert.True(t, rice.Consumed.Equal(dec("18")))
	assert.True(t, rice.VariancePercent.Equal(dec("12.5")))
}

func TestStockSummary(t *testing.T) {
	f := newFixture(t)
	q := oneDay()
	q.ItemID = &f.rice.ID

	rows, err := f.svc.StockSummary(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	byLocation := map[string]models.StockSummaryRow{}
	for _, row := range rows {
		byLocation[row.Location] = row
	}

	store := byLocation[models.StoreLocation]
	assert.True(t, store.Opening.Equal(dec("100")))
	assert.True(t, store.Outward.Equal(dec("30")))
	assert.True(t, store.Closing.Equal(dec("70")))
	assert.False(t, store.OverConsumed)

	seaview := byLocation[f.seaview.Location()]
	assert.True(t, seaview.Opening.IsZero())
	assert.True(t, seaview.Inward.Equal(dec("20")))
	assert.True(t, seaview.Outward.Equal(dec("18")))
	assert.True(t, seaview.Closing.Equal(dec("2")))

	for _, row := range rows {
		assert.True(t, row.Closing.Equal(row.Opening.Add(row.Inward).Sub(row.Outward)))
	}
}

func TestStockSummaryIgnoresOverConsumptionHealedByBackdatedIssue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := inventory.NewService(f.store, nil)
	actor := primitive.NewObjectID()

	entry, err := inv.RecordConsumption(ctx, actor, inventory.ConsumptionInput{HotelID: f.hilltop.ID, Date: day.Add(22 * time.Hour), Lines: []models.QuantityLine{line(f.oil, "5")}})
	require.NoError(t, err)
	require.NotNil(t, entry)
	_, err = inv.Issue(ctx, actor, inventory.IssueInput{HotelID: f.hilltop.ID, Date: day.Add(10 * time.Hour), Lines: []models.QuantityLine{line(f.oil, "10")}})
	require.NoError(t, err)

	q := oneDay()
	q.ItemID = &f.oil.ID
	q.HotelID = &f.hilltop.ID
	rows, err := f.svc.StockSummary(ctx, q)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Inward.Equal(dec("10")))
	assert.True(t, rows[0].Outward.Equal(dec("5")))
	assert.True(t, rows[0].Closing.Equal(dec("5")))
	assert.False(t, rows[0].OverConsumed)
}

func TestVendorSpend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	x, y := primitive.NewObjectID(), primitive.NewObjectID()
	orders := []models.ProcurementOrder{
		{VendorID: x, VendorName: "Xpress", BillNumber: "1", BillDate: day, Status: models.StatusPaid, FinalAmount: dec("100")},
		{VendorID: x, VendorName: "Xpress", BillNumber: "2", BillDate: day, Status: models.StatusPendingPayment, FinalAmount: dec("50")},
		{VendorID: x, VendorName: "Xpress", BillNumber: "3", BillDate: day, Status: models.StatusRejected, FinalAmount: dec("999")},
		{VendorID: y, VendorName: "Yellow", BillNumber: "4", BillDate: day, Status: models.StatusMDApproved, FinalAmount: dec("300")},
		{VendorID: y, VendorName: "Yellow", BillNumber: "5", BillDate: day, Status: models.StatusPendingMDApproval, FinalAmount: dec("10")},
	}
	for i := range orders {
		require.NoError(t, f.store.CreateOrder(ctx, &orders[i]))
	}

	rows, err := f.svc.VendorSpend(ctx, oneDay())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Yellow", rows[0].VendorName)
	assert.Equal(t, 1, rows[0].Orders)
	assert.Equal(t, "Xpress", rows[1].VendorName)
	assert.Equal(t, 2, rows[1].Orders)
	assert.True(t, rows[1].FinalAmount.Equal(dec("150")))
	assert.True(t, rows[1].PaidAmount.Equal(dec("100")))
}

func TestDailySnapshotIsStored(t *testing.T) {
	f := newFixture(t)

	report, err := f.svc.DailySnapshot(context.Background(), day.Add(23*time.Hour), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, day, report.Date)
	assert.True(t, report.Total.Leakage.Equal(dec("2")))

	assert.False(t, report.ID.IsZero())

	again, err := f.svc.DailySnapshot(context.Background(), day.Add(22*time.Hour), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, report.ID, again.ID)

	saved := f.store.DailyReports()
	require.Len(t, saved, 1)
	assert.Equal(t, day, saved[0].Date)
	assert.Equal(t, report.ID, saved[0].ID)
}

func TestWriteLeakageXLSX(t *testing.T) {
	f := newFixture(t)
	report, err := f.svc.Leakage(context.Background(), oneDay())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteLeakageXLSX(&buf, report))

	book, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer book.Close()

	title, err := book.GetCellValue("Leakage", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Leakage by hotel 2026-03-10", title)

	header, err := book.GetCellValue("Leakage", "B3")
	require.NoError(t, err)
	assert.Equal(t, "Issued", header)

	first, err := book.GetCellValue("Leakage", "A4")
	require.NoError(t, err)
	assert.Equal(t, "Hilltop", first)

	total, err := book.GetCellValue("Leakage", "A6")
	require.NoError(t, err)
	assert.Equal(t, "Total", total)
}

type fakeSheet struct {
	rng    string
	header []interface{}
	rows   [][]interface{}
}

func (f *fakeSheet) AppendTable(_ context.Context, rng string, header []interface{}, rows [][]interface{}) error {
	f.rng = rng
	f.header = header
	f.rows = append(f.rows, rows...)
	return nil
}

func TestExportLeakageToSheets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	report, err := f.svc.Leakage(ctx, oneDay())
	require.NoError(t, err)

	assert.True(t, errors.Is(f.svc.ExportLeakageToSheets(ctx, report), ErrSheetsDisabled))

	sheet := &fakeSheet{}
	f.svc.sheets = sheet
	require.NoError(t, f.svc.ExportLeakageToSheets(ctx, report))

	assert.Equal(t, "Leakage!A:G", sheet.rng)
	assert.Len(t, sheet.header, 7)
	require.Len(t, sheet.rows, 3)
	assert.Equal(t, []interface{}{"2026-03-10", "hotel", "Seaview", "30", "28", "2", "6.67"}, sheet.rows[1])
	assert.Equal(t, "Total", sheet.rows[2][2])
}

func TestRangeLabelHandlesInstantBounds(t *testing.T) {
	assert.Equal(t, "2026-03-10", rangeLabel(&models.LeakageReport{From: day, To: day.AddDate(0, 0, 1)}))
	assert.Equal(t, "2026-03-10", rangeLabel(&models.LeakageReport{From: day, To: day.Add(12 * time.Hour)}))
	assert.Equal(t, "2026-03-10 to 2026-03-12", rangeLabel(&models.LeakageReport{From: day, To: day.AddDate(0, 0, 2).Add(time.Hour)}))
	assert.Equal(t, "until 2026-03-10", rangeLabel(&models.LeakageReport{To: day.Add(18 * time.Hour)}))
}
