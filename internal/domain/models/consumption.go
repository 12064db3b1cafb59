package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// QuantityLine is an item quantity inside an entry.
type QuantityLine struct {
	ItemID   primitive.ObjectID `bson:"item_id" json:"item_id" binding:"required"`
	ItemName string             `bson:"item_name" json:"item_name"`
	Quantity decimal.Decimal    `bson:"quantity" json:"quantity"`
	Unit     string             `bson:"unit" json:"unit"`
}

// ConsumptionEntry is what a hotel kitchen or housekeeping used on a day.
type ConsumptionEntry struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	HotelID   primitive.ObjectID `bson:"hotel_id" json:"hotel_id"`
	Date      time.Time          `bson:"date" json:"date"`
	Lines     []QuantityLine     `bson:"lines" json:"lines"`
	Notes     string             `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedBy primitive.ObjectID `bson:"created_by" json:"created_by"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// SalesLine is a number of portions sold of one recipe.
type SalesLine struct {
	RecipeID   primitive.ObjectID `bson:"recipe_id" json:"recipe_id" binding:"required"`
	RecipeName string             `bson:"recipe_name" json:"recipe_name"`
	Portions   decimal.Decimal    `bson:"portions" json:"portions"`
}

// SalesEntry is what a hotel sold on a day.
type SalesEntry struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	HotelID   primitive.ObjectID `bson:"hotel_id" json:"hotel_id"`
	Date      time.Time          `bson:"date" json:"date"`
	Lines     []SalesLine        `bson:"lines" json:"lines"`
	CreatedBy primitive.ObjectID `bson:"created_by" json:"created_by"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// Ingredient is the quantity of an item used for one portion.
type Ingredient struct {
	ItemID   primitive.ObjectID `bson:"item_id" json:"item_id" binding:"required"`
	ItemName string             `bson:"item_name" json:"item_name"`
	Quantity decimal.Decimal    `bson:"quantity" json:"quantity"`
	Unit     string             `bson:"unit" json:"unit"`
}

// Recipe maps a sold dish to the stock it should consume.
type Recipe struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name        string              `bson:"name" json:"name"`
	HotelID     *primitive.ObjectID `bson:"hotel_id,omitempty" json:"hotel_id,omitempty"`
	Ingredients []Ingredient        `bson:"ingredients" json:"ingredients"`
	Active      bool                `bson:"active" json:"active"`
	CreatedAt   time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time           `bson:"updated_at" json:"updated_at"`
}

// EntryFilter narrows consumption and sales queries. From is inclusive, To is exclusive.
type EntryFilter struct {
	HotelID *primitive.ObjectID
	From    time.Time
	To      time.Time
}

// Matches reports whether an entry of the given hotel and date passes the filter.
func (f EntryFilter) Matches(hotelID primitive.ObjectID, date time.Time) bool {
	if f.HotelID != nil && hotelID != *f.HotelID {
		return false
	}
	if !f.From.IsZero() && date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !date.Before(f.To) {
		return false
	}
	return true
}
