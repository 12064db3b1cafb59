package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GroupBy selects the key of leakage report rows.
type GroupBy string

const (
	GroupByHotel GroupBy = "hotel"
	GroupByItem  GroupBy = "item"
)

// ReportQuery is the common input of the aggregation reports. From is inclusive,
// To is exclusive.
type ReportQuery struct {
	From    time.Time
	To      time.Time
	HotelID *primitive.ObjectID
	ItemID  *primitive.ObjectID
	GroupBy GroupBy
}

// LeakageRow compares what was issued to a group with what it reported as consumed.
type LeakageRow struct {
	Key               string          `bson:"key" json:"key"`
	Label             string          `bson:"label" json:"label"`
	Issued            decimal.Decimal `bson:"issued" json:"issued"`
	Consumed          decimal.Decimal `bson:"consumed" json:"consumed"`
	Leakage           decimal.Decimal `bson:"leakage" json:"leakage"`
	PercentDifference decimal.Decimal `bson:"percent_difference" json:"percent_difference"`
}

// LeakageReport is the issued-vs-consumed aggregation over a date range.
type LeakageReport struct {
	From    time.Time    `bson:"from" json:"from"`
	To      time.Time    `bson:"to" json:"to"`
	GroupBy GroupBy      `bson:"group_by" json:"group_by"`
	Rows    []LeakageRow `bson:"rows" json:"rows"`
	Total   LeakageRow   `bson:"total" json:"total"`
}

// ConsumptionSalesRow compares recipe-expected consumption with reported consumption.
type ConsumptionSalesRow struct {
	HotelID         primitive.ObjectID `json:"hotel_id"`
	HotelName       string             `json:"hotel_name"`
	ItemID          primitive.ObjectID `json:"item_id"`
	ItemName        string             `json:"item_name"`
	Expected        decimal.Decimal    `json:"expected"`
	Consumed        decimal.Decimal    `json:"consumed"`
	Variance        decimal.Decimal    `json:"variance"`
	VariancePercent decimal.Decimal    `json:"variance_percent"`
}

// StockSummaryRow is the movement of one item at one location over a range.
type StockSummaryRow struct {
	ItemID       primitive.ObjectID `json:"item_id"`
	ItemName     string             `json:"item_name"`
	Location     string             `json:"location"`
	Opening      decimal.Decimal    `json:"opening"`
	Inward       decimal.Decimal    `json:"inward"`
	Outward      decimal.Decimal    `json:"outward"`
	Closing      decimal.Decimal    `json:"closing"`
	OverConsumed bool               `json:"over_consumed"`
}

// VendorSpendRow sums approved purchases per vendor.
type VendorSpendRow struct {
	VendorID    primitive.ObjectID `json:"vendor_id"`
	VendorName  string             `json:"vendor_name"`
	Orders      int                `json:"orders"`
	Subtotal    decimal.Decimal    `json:"subtotal"`
	GSTTotal    decimal.Decimal    `json:"gst_total"`
	FinalAmount decimal.Decimal    `json:"final_amount"`
	PaidAmount  decimal.Decimal    `json:"paid_amount"`
}

// DailyReport is the nightly leakage snapshot stored in MongoDB.
type DailyReport struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Date      time.Time          `bson:"date" json:"date"`
	Rows      []LeakageRow       `bson:"rows" json:"rows"`
	Total     LeakageRow         `bson:"total" json:"total"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
