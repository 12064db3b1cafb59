package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/hotelerp/internal/domain/models"
)

// Users persists dashboard operators.
type Users interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
}

// Hotels persists hotel properties.
type Hotels interface {
	CreateHotel(ctx context.Context, hotel *models.Hotel) error
	GetHotel(ctx context.Context, id primitive.ObjectID) (*models.Hotel, error)
	ListHotels(ctx context.Context, activeOnly bool) ([]models.Hotel, error)
	UpdateHotel(ctx context.Context, hotel *models.Hotel) error
}

// Items persists the item catalog.
type Items interface {
	CreateItem(ctx context.Context, item *models.Item) error
	GetItem(ctx context.Context, id primitive.ObjectID) (*models.Item, error)
	ListItems(ctx context.Context, activeOnly bool) ([]models.Item, error)
	UpdateItem(ctx context.Context, item *models.Item) error
}

// Vendors persists the vendor catalog.
type Vendors interface {
	CreateVendor(ctx context.Context, vendor *models.Vendor) error
	GetVendor(ctx context.Context, id primitive.ObjectID) (*models.Vendor, error)
	ListVendors(ctx context.Context, activeOnly bool) ([]models.Vendor, error)
	UpdateVendor(ctx context.Context, vendor *models.Vendor) error
}

// Recipes persists dish recipes.
type Recipes interface {
	CreateRecipe(ctx context.Context, recipe *models.Recipe) error
	GetRecipe(ctx context.Context, id primitive.ObjectID) (*models.Recipe, error)
	ListRecipes(ctx context.Context, hotelID *primitive.ObjectID) ([]models.Recipe, error)
}

// Orders persists procurement orders.
type Orders interface {
	CreateOrder(ctx context.Context, order *models.ProcurementOrder) error
	GetOrder(ctx context.Context, id primitive.ObjectID) (*models.ProcurementOrder, error)
	ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.ProcurementOrder, error)
	// UpdateOrderIfStatus replaces the stored order only while its status still equals
	// expected, and returns models.ErrConflict otherwise.
	UpdateOrderIfStatus(ctx context.Context, order *models.ProcurementOrder, expected models.OrderStatus) error
}

// Receipts records which approved order lines have been received into the store.
type Receipts interface {
	// ClaimReceipt marks a line as received and reports false when it already was.
	ClaimReceipt(ctx context.Context, orderID, lineID primitive.ObjectID) (bool, error)
	// ReleaseReceipt drops a claim whose ledger posting failed.
	ReleaseReceipt(ctx context.Context, orderID, lineID primitive.ObjectID) error
	ReceivedLines(ctx context.Context, orderID primitive.ObjectID) ([]primitive.ObjectID, error)
}

// Ledger persists stock movements and running balances.
type Ledger interface {
	// AdjustBalance atomically adds delta to the item balance at location and returns
	// the balance after the change.
	AdjustBalance(ctx context.Context, itemID primitive.ObjectID, location string, delta decimal.Decimal) (decimal.Decimal, error)
	ListBalances(ctx context.Context, location string, itemID *primitive.ObjectID) ([]models.StockBalance, error)
	AppendEntry(ctx context.Context, entry *models.StockLedgerEntry) error
	ListEntries(ctx context.Context, filter models.LedgerFilter) ([]models.StockLedgerEntry, error)
}

// Entries persists consumption and sales entries.
type Entries interface {
	CreateConsumption(ctx context.Context, entry *models.ConsumptionEntry) error
	ListConsumption(ctx context.Context, filter models.EntryFilter) ([]models.ConsumptionEntry, error)
	CreateSales(ctx context.Context, entry *models.SalesEntry) error
	ListSales(ctx context.Context, filter models.EntryFilter) ([]models.SalesEntry, error)
}

// Reports persists nightly report snapshots.
type Reports interface {
	// SaveDailyReport upserts the snapshot of report.Date and sets report.ID to the stored id.
	SaveDailyReport(ctx context.Context, report *models.DailyReport) error
}

// Store groups every repository the application needs.
type Store interface {
	Users
	Hotels
	Items
	Vendors
	Recipes
	Orders
	Receipts
	Ledger
	Entries
	Reports
	Close(ctx context.Context) error
}
