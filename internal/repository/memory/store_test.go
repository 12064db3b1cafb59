package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/hotelerp/internal/domain/models"
	"github.com/mamadbah2/hotelerp/internal/repository"
)

var _ repository.Store = (*Store)(nil)

func TestUserEmailIsUnique(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	require.NoError(t, s.CreateUser(ctx, &models.User{Name: "A", Email: "Ops@Hotel.test"}))
	err := s.CreateUser(ctx, &models.User{Name: "B", Email: " ops@hotel.test "})
	assert.ErrorIs(t, err, models.ErrConflict)

	user, err := s.GetUserByEmail(ctx, "OPS@hotel.test")
	require.NoError(t, err)
	assert.Equal(t, "A", user.Name)

	_, err = s.GetUser(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdateOrderIfStatus(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	order := &models.ProcurementOrder{
		VendorID:   primitive.NewObjectID(),
		BillNumber: "B-1",
		Status:     models.StatusPendingPayment,
		Lines:      []models.OrderLine{{ID: primitive.NewObjectID(), ItemName: "Rice"}},
	}
	require.NoError(t, s.CreateOrder(ctx, order))

	dup := &models.ProcurementOrder{VendorID: order.VendorID, BillNumber: "B-1"}
	assert.ErrorIs(t, s.CreateOrder(ctx, dup), models.ErrConflict)

	loaded, err := s.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	loaded.Lines[0].ItemName = "changed"
	again, err := s.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rice", again.Lines[0].ItemName)

	loaded.Status = models.StatusPaid
	require.NoError(t, s.UpdateOrderIfStatus(ctx, loaded, models.StatusPendingPayment))
	assert.ErrorIs(t, s.UpdateOrderIfStatus(ctx, loaded, models.StatusPendingPayment), models.ErrConflict)
}

func TestAdjustBalanceIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	item := primitive.NewObjectID()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.AdjustBalance(ctx, item, models.StoreLocation, decimal.NewFromInt(2))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	closing, err := s.AdjustBalance(ctx, item, models.StoreLocation, decimal.NewFromInt(-1))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(99).Equal(closing))

	balances, err := s.ListBalances(ctx, models.StoreLocation, &item)
	require.NoError(t, err)
	require.Len(t, balances, 1)
	assert.True(t, decimal.NewFromInt(99).Equal(balances[0].Quantity))
}

func TestListEntriesFiltersAndSorts(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	item := primitive.NewObjectID()
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	for _, e := range []models.StockLedgerEntry{
		{ItemID: item, Location: "h1", Kind: models.KindIssue, Direction: models.DirectionInward, Date: day.Add(5 * time.Hour)},
		{ItemID: item, Location: "h1", Kind: models.KindConsumption, Direction: models.DirectionOutward, Date: day.Add(2 * time.Hour)},
		{ItemID: item, Location: "h1", Kind: models.KindIssue, Direction: models.DirectionInward, Date: day.Add(1 * time.Hour)},
		{ItemID: item, Location: "h1", Kind: models.KindIssue, Direction: models.DirectionInward, Date: day.AddDate(0, 0, 1)},
	} {
		entry := e
		require.NoError(t, s.AppendEntry(ctx, &entry))
	}

	got, err := s.ListEntries(ctx, models.LedgerFilter{
		Kind: models.KindIssue,
		From: day,
		To:   day.AddDate(0, 0, 1),
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Date.Before(got[1].Date))
}

func TestListRecipesScope(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	hotel := primitive.NewObjectID()
	other := primitive.NewObjectID()

	require.NoError(t, s.CreateRecipe(ctx, &models.Recipe{Name: "Dal", Active: true}))
	require.NoError(t, s.CreateRecipe(ctx, &models.Recipe{Name: "Biryani", HotelID: &hotel, Active: true}))
	require.NoError(t, s.CreateRecipe(ctx, &models.Recipe{Name: "Pulao", HotelID: &other, Active: true}))
	require.NoError(t, s.CreateRecipe(ctx, &models.Recipe{Name: "Retired", Active: false}))

	got, err := s.ListRecipes(ctx, &hotel)
	require.NoError(t, err)
	names := make([]string, 0, len(got))
	for _, r := range got {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"Biryani", "Dal"}, names)

	all, err := s.ListRecipes(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestReceiptClaimsAreOncePerLine(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	order, line := primitive.NewObjectID(), primitive.NewObjectID()

	ok, err := s.ClaimReceipt(ctx, order, line)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.ClaimReceipt(ctx, order, line)
	require.NoError(t, err)
	assert.False(t, ok)

	lines, err := s.ReceivedLines(ctx, order)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{line}, lines)

	require.NoError(t, s.ReleaseReceipt(ctx, order, line))
	ok, err = s.ClaimReceipt(ctx, order, line)
	require.NoError(t, err)
	assert.True(t, ok)
}
