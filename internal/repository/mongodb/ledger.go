package mongodb

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mamadbah2/hotelerp/internal/domain/models"
)

// AdjustBalance relies on $inc being atomic on a single document; concurrent movements
// of the same item at the same location each observe a distinct resulting balance.
func (r *MongoDBRepository) AdjustBalance(ctx context.Context, itemID primitive.ObjectID, location string, delta decimal.Decimal) (decimal.Decimal, error) {
	filter := bson.M{"item_id": itemID, "location": location}
	update := bson.M{
		"$inc": bson.M{"quantity": delta},
		"$set": bson.M{"updated_at": r.now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var balance models.StockBalance
	if err := r.db.Collection(balancesCollection).FindOneAndUpdate(ctx, filter, update, opts).Decode(&balance); err != nil {
		return decimal.Zero, fmt.Errorf("adjust balance of %s at %s: %w", itemID.Hex(), location, err)
	}

	r.logger.Debug("stock balance adjusted",
		zap.String("item_id", itemID.Hex()),
		zap.String("location", location),
		zap.String("delta", delta.String()),
		zap.String("balance", balance.Quantity.String()))
	return balance.Quantity, nil
}

func (r *MongoDBRepository) ListBalances(ctx context.Context, location string, itemID *primitive.ObjectID) ([]models.StockBalance, error) {
	query := bson.M{}
	if location != "" {
		query["location"] = location
	}
	if itemID != nil {
		query["item_id"] = *itemID
	}

	balances := []models.StockBalance{}
	err := r.findAll(ctx, balancesCollection, query, bson.D{{Key: "location", Value: 1}, {Key: "item_id", Value: 1}}, &balances)
	return balances, err
}

func (r *MongoDBRepository) AppendEntry(ctx context.Context, entry *models.StockLedgerEntry) error {
	return r.insert(ctx, ledgerCollection, &entry.ID, entry)
}

func (r *MongoDBRepository) ListEntries(ctx context.Context, filter models.LedgerFilter) ([]models.StockLedgerEntry, error) {
	query := bson.M{}
	if filter.ItemID != nil {
		query["item_id"] = *filter.ItemID
	}
	if filter.Location != "" {
		query["location"] = filter.Location
	}
	if filter.Kind != "" {
		query["kind"] = filter.Kind
	}
	if filter.Direction != "" {
		query["direction"] = filter.Direction
	}
	if rng := dateRange(filter.From, filter.To); len(rng) > 0 {
		query["date"] = rng
	}

	entries := []models.StockLedgerEntry{}
	err := r.findAll(ctx, ledgerCollection, query, bson.D{{Key: "date", Value: 1}, {Key: "created_at", Value: 1}}, &entries)
	return entries, err
}
