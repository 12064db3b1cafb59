// Package memory is a process-local repository.Store used by tests and by local runs
// started with STORAGE_DRIVER=memory.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/hotelerp/internal/domain/models"
)

type balanceKey struct {
	item     primitive.ObjectID
	location string
}

type receiptKey struct {
	order primitive.ObjectID
	line  primitive.ObjectID
}

// Store keeps every collection in maps guarded by one mutex.
type Store struct {
	mu sync.RWMutex

	users       map[primitive.ObjectID]models.User
	hotels      map[primitive.ObjectID]models.Hotel
	items       map[primitive.ObjectID]models.Item
	vendors     map[primitive.ObjectID]models.Vendor
	recipes     map[primitive.ObjectID]models.Recipe
	orders      map[primitive.ObjectID]models.ProcurementOrder
	receipts    map[receiptKey]struct{}
	balances    map[balanceKey]models.StockBalance
	ledger      []models.StockLedgerEntry
	consumption []models.ConsumptionEntry
	sales       []models.SalesEntry
	reports     map[time.Time]models.DailyReport
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users:    make(map[primitive.ObjectID]models.User),
		hotels:   make(map[primitive.ObjectID]models.Hotel),
		items:    make(map[primitive.ObjectID]models.Item),
		vendors:  make(map[primitive.ObjectID]models.Vendor),
		recipes:  make(map[primitive.ObjectID]models.Recipe),
		orders:   make(map[primitive.ObjectID]models.ProcurementOrder),
		receipts: make(map[receiptKey]struct{}),
		balances: make(map[balanceKey]models.StockBalance),
		reports:  make(map[time.Time]models.DailyReport),
	}
}

func ensureID(id *primitive.ObjectID) {
	if id.IsZero() {
		*id = primitive.NewObjectID()
	}
}

func notFound(kind string, id primitive.ObjectID) error {
	return fmt.Errorf("%s %s: %w", kind, id.Hex(), models.ErrNotFound)
}

func (s *Store) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user.Email = models.NormalizeEmail(user.Email)
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return fmt.Errorf("user %s: %w", user.Email, models.ErrConflict)
		}
	}
	ensureID(&user.ID)
	s.users[user.ID] = *user
	return nil
}

func (s *Store) GetUser(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, notFound("user", id)
	}
	return &user, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	email = models.NormalizeEmail(email)
	for _, user := range s.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, models.ErrNotFound)
}

func (s *Store) ListUsers(_ context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.User, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return notFound("user", user.ID)
	}
	s.users[user.ID] = *user
	return nil
}

func (s *Store) CreateHotel(_ context.Context, hotel *models.Hotel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.hotels {
		if strings.EqualFold(existing.Code, hotel.Code) {
			return fmt.Errorf("hotel %s: %w", hotel.Code, models.ErrConflict)
		}
	}
	ensureID(&hotel.ID)
	s.hotels[hotel.ID] = *hotel
	return nil
}

func (s *Store) GetHotel(_ context.Context, id primitive.ObjectID) (*models.Hotel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hotel, ok := s.hotels[id]
	if !ok {
		return nil, notFound("hotel", id)
	}
	return &hotel, nil
}

func (s *Store) ListHotels(_ context.Context, activeOnly bool) ([]models.Hotel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Hotel, 0, len(s.hotels))
	for _, hotel := range s.hotels {
		if activeOnly && !hotel.Active {
			continue
		}
		out = append(out, hotel)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateHotel(_ context.Context, hotel *models.Hotel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.hotels[hotel.ID]; !ok {
		return notFound("hotel", hotel.ID)
	}
	s.hotels[hotel.ID] = *hotel
	return nil
}

func (s *Store) CreateItem(_ context.Context, item *models.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ensureID(&item.ID)
	s.items[item.ID] = *item
	return nil
}

func (s *Store) GetItem(_ context.Context, id primitive.ObjectID) (*models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return nil, notFound("item", id)
	}
	return &item, nil
}

func (s *Store) ListItems(_ context.Context, activeOnly bool) ([]models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Item, 0, len(s.items))
	for _, item := range s.items {
		if activeOnly && !item.Active {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateItem(_ context.Context, item *models.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[item.ID]; !ok {
		return notFound("item", item.ID)
	}
	s.items[item.ID] = *item
	return nil
}

func (s *Store) CreateVendor(_ context.Context, vendor *models.Vendor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ensureID(&vendor.ID)
	s.vendors[vendor.ID] = *vendor
	return nil
}

func (s *Store) GetVendor(_ context.Context, id primitive.ObjectID) (*models.Vendor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vendor, ok := s.vendors[id]
	if !ok {
		return nil, notFound("vendor", id)
	}
	return &vendor, nil
}

func (s *Store) ListVendors(_ context.Context, activeOnly bool) ([]models.Vendor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Vendor, 0, len(s.vendors))
	for _, vendor := range s.vendors {
		if activeOnly && !vendor.Active {
			continue
		}
		out = append(out, vendor)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateVendor(_ context.Context, vendor *models.Vendor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.vendors[vendor.ID]; !ok {
		return notFound("vendor", vendor.ID)
	}
	s.vendors[vendor.ID] = *vendor
	return nil
}

func (s *Store) CreateRecipe(_ context.Context, recipe *models.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ensureID(&recipe.ID)
	recipe.Ingredients = append([]models.Ingredient(nil), recipe.Ingredients...)
	s.recipes[recipe.ID] = *recipe
	return nil
}

func (s *Store) GetRecipe(_ context.Context, id primitive.ObjectID) (*models.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recipe, ok := s.recipes[id]
	if !ok {
		return nil, notFound("recipe", id)
	}
	return &recipe, nil
}

func (s *Store) ListRecipes(_ context.Context, hotelID *primitive.ObjectID) ([]models.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Recipe, 0, len(s.recipes))
	for _, recipe := range s.recipes {
		if !recipe.Active {
			continue
		}
		if hotelID != nil && recipe.HotelID != nil && *recipe.HotelID != *hotelID {
			continue
		}
		out = append(out, recipe)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func cloneOrder(order models.ProcurementOrder) models.ProcurementOrder {
	order.Lines = append([]models.OrderLine(nil), order.Lines...)
	return order
}

func (s *Store) CreateOrder(_ context.Context, order *models.ProcurementOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.orders {
		if existing.VendorID == order.VendorID && existing.BillNumber == order.BillNumber {
			return fmt.Errorf("bill %s: %w", order.BillNumber, models.ErrConflict)
		}
	}
	ensureID(&order.ID)
	s.orders[order.ID] = cloneOrder(*order)
	return nil
}

func (s *Store) GetOrder(_ context.Context, id primitive.ObjectID) (*models.ProcurementOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, notFound("order", id)
	}
	out := cloneOrder(order)
	return &out, nil
}

func (s *Store) ListOrders(_ context.Context, filter models.OrderFilter) ([]models.ProcurementOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ProcurementOrder, 0, len(s.orders))
	for _, order := range s.orders {
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		if filter.VendorID != nil && order.VendorID != *filter.VendorID {
			continue
		}
		if !filter.From.IsZero() && order.BillDate.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && !order.BillDate.Before(filter.To) {
			continue
		}
		out = append(out, cloneOrder(order))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BillDate.After(out[j].BillDate) })
	return out, nil
}

func (s *Store) UpdateOrderIfStatus(_ context.Context, order *models.ProcurementOrder, expected models.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.orders[order.ID]
	if !ok {
		return notFound("order", order.ID)
	}
	if current.Status != expected {
		return fmt.Errorf("order %s is no longer %s: %w", order.ID.Hex(), expected, models.ErrConflict)
	}
	s.orders[order.ID] = cloneOrder(*order)
	return nil
}

func (s *Store) ClaimReceipt(_ context.Context, orderID, lineID primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := receiptKey{order: orderID, line: lineID}
	if _, ok := s.receipts[key]; ok {
		return false, nil
	}
	s.receipts[key] = struct{}{}
	return true, nil
}

func (s *Store) ReleaseReceipt(_ context.Context, orderID, lineID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.receipts, receiptKey{order: orderID, line: lineID})
	return nil
}

func (s *Store) ReceivedLines(_ context.Context, orderID primitive.ObjectID) ([]primitive.ObjectID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []primitive.ObjectID{}
	for key := range s.receipts {
		if key.order == orderID {
			out = append(out, key.line)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hex() < out[j].Hex() })
	return out, nil
}

func (s *Store) AdjustBalance(_ context.Context, itemID primitive.ObjectID, location string, delta decimal.Decimal) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := balanceKey{item: itemID, location: location}
	balance, ok := s.balances[key]
	if !ok {
		balance = models.StockBalance{ItemID: itemID, Location: location}
	}
	balance.Quantity = balance.Quantity.Add(delta)
	balance.UpdatedAt = time.Now().UTC()
	s.balances[key] = balance
	return balance.Quantity, nil
}

func (s *Store) ListBalances(_ context.Context, location string, itemID *primitive.ObjectID) ([]models.StockBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.StockBalance, 0, len(s.balances))
	for key, balance := range s.balances {
		if location != "" && key.location != location {
			continue
		}
		if itemID != nil && key.item != *itemID {
			continue
		}
		out = append(out, balance)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Location != out[j].Location {
			return out[i].Location < out[j].Location
		}
		return out[i].ItemID.Hex() < out[j].ItemID.Hex()
	})
	return out, nil
}

func (s *Store) AppendEntry(_ context.Context, entry *models.StockLedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ensureID(&entry.ID)
	s.ledger = append(s.ledger, *entry)
	return nil
}

func (s *Store) ListEntries(_ context.Context, filter models.LedgerFilter) ([]models.StockLedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.StockLedgerEntry, 0)
	for _, entry := range s.ledger {
		if filter.Matches(entry) {
			out = append(out, entry)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *Store) CreateConsumption(_ context.Context, entry *models.ConsumptionEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ensureID(&entry.ID)
	stored := *entry
	stored.Lines = append([]models.QuantityLine(nil), entry.Lines...)
	s.consumption = append(s.consumption, stored)
	return nil
}

func (s *Store) ListConsumption(_ context.Context, filter models.EntryFilter) ([]models.ConsumptionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ConsumptionEntry, 0)
	for _, entry := range s.consumption {
		if filter.Matches(entry.HotelID, entry.Date) {
			out = append(out, entry)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *Store) CreateSales(_ context.Context, entry *models.SalesEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ensureID(&entry.ID)
	stored := *entry
	stored.Lines = append([]models.SalesLine(nil), entry.Lines...)
	s.sales = append(s.sales, stored)
	return nil
}

func (s *Store) ListSales(_ context.Context, filter models.EntryFilter) ([]models.SalesEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.SalesEntry, 0)
	for _, entry := range s.sales {
		if filter.Matches(entry.HotelID, entry.Date) {
			out = append(out, entry)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *Store) SaveDailyReport(_ context.Context, report *models.DailyReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.reports[report.Date]; ok {
		report.ID = existing.ID
	}
	ensureID(&report.ID)
	s.reports[report.Date] = *report
	return nil
}

// DailyReports returns the saved snapshots ordered by date.
func (s *Store) DailyReports() []models.DailyReport {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.DailyReport, 0, len(s.reports))
	for _, report := range s.reports {
		out = append(out, report)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Close is a no-op.
func (s *Store) Close(context.Context) error {
	return nil
}
