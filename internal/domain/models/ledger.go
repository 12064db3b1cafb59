package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Direction tells whether stock enters or leaves a location.
type Direction string

const (
	DirectionInward  Direction = "inward"
	DirectionOutward Direction = "outward"
)

// EntryKind is the business event behind a ledger movement.
type EntryKind string

const (
	KindReceipt     EntryKind = "receipt"
	KindIssue       EntryKind = "issue"
	KindConsumption EntryKind = "consumption"
	KindAdjustment  EntryKind = "adjustment"
)

// StockLedgerEntry records one movement of an item at a location with the balances
// before and after it.
type StockLedgerEntry struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	ItemID         primitive.ObjectID  `bson:"item_id" json:"item_id"`
	ItemName       string              `bson:"item_name" json:"item_name"`
	Location       string              `bson:"location" json:"location"`
	Direction      Direction           `bson:"direction" json:"direction"`
	Kind           EntryKind           `bson:"kind" json:"kind"`
	Quantity       decimal.Decimal     `bson:"quantity" json:"quantity"`
	Unit           string              `bson:"unit" json:"unit"`
	Date           time.Time           `bson:"date" json:"date"`
	Counterparty   string              `bson:"counterparty,omitempty" json:"counterparty,omitempty"`
	ReferenceID    *primitive.ObjectID `bson:"reference_id,omitempty" json:"reference_id,omitempty"`
	OpeningBalance decimal.Decimal     `bson:"opening_balance" json:"opening_balance"`
	ClosingBalance decimal.Decimal     `bson:"closing_balance" json:"closing_balance"`
	OverConsumed   bool                `bson:"over_consumed" json:"over_consumed"`
	CreatedBy      primitive.ObjectID  `bson:"created_by" json:"created_by"`
	CreatedAt      time.Time           `bson:"created_at" json:"created_at"`
}

// Delta is the signed balance change of the entry.
func (e StockLedgerEntry) Delta() decimal.Decimal {
	if e.Direction == DirectionOutward {
		return e.Quantity.Neg()
	}
	return e.Quantity
}

// SettleBalances fills opening and closing balances from the balance after the movement
// and flags over-consumption when the closing balance went negative.
func (e *StockLedgerEntry) SettleBalances(closing decimal.Decimal) {
	e.ClosingBalance = closing
	e.OpeningBalance = closing.Sub(e.Delta())
	e.OverConsumed = closing.IsNegative()
}

// RestateBalances recomputes opening and closing balances in slice order, running each
// item and location from zero. entries must hold the full history of every item and
// location they touch, sorted by date. Stored balances follow posting order instead, which
// differs once a movement is backdated.
func RestateBalances(entries []StockLedgerEntry) {
	type key struct {
		item     primitive.ObjectID
		location string
	}
	running := make(map[key]decimal.Decimal)
	for i := range entries {
		k := key{item: entries[i].ItemID, location: entries[i].Location}
		entries[i].SettleBalances(running[k].Add(entries[i].Delta()))
		running[k] = entries[i].ClosingBalance
	}
}

// StockBalance is the running quantity of an item at a location.
type StockBalance struct {
	ItemID    primitive.ObjectID `bson:"item_id" json:"item_id"`
	Location  string             `bson:"location" json:"location"`
	Quantity  decimal.Decimal    `bson:"quantity" json:"quantity"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// LedgerFilter narrows ledger queries. Zero values mean "any".
type LedgerFilter struct {
	ItemID    *primitive.ObjectID
	Location  string
	Kind      EntryKind
	Direction Direction
	From      time.Time
	To        time.Time
}

// Matches reports whether e passes the filter. From is inclusive, To is exclusive.
func (f LedgerFilter) Matches(e StockLedgerEntry) bool {
	if f.ItemID != nil && e.ItemID != *f.ItemID {
		return false
	}
	if f.Location != "" && e.Location != f.Location {
		return false
	}
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if f.Direction != "" && e.Direction != f.Direction {
		return false
	}
	if !f.From.IsZero() && e.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !e.Date.Before(f.To) {
		return false
	}
	return true
}
