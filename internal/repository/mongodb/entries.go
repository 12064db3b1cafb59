package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/mamadbah2/hotelerp/internal/domain/models"
)

var byDate = bson.D{{Key: "date", Value: 1}}

func (r *MongoDBRepository) CreateConsumption(ctx context.Context, entry *models.ConsumptionEntry) error {
	return r.insert(ctx, consumptionCollection, &entry.ID, entry)
}

func (r *MongoDBRepository) ListConsumption(ctx context.Context, filter models.EntryFilter) ([]models.ConsumptionEntry, error) {
	entries := []models.ConsumptionEntry{}
	err := r.findAll(ctx, consumptionCollection, entryQuery(filter), byDate, &entries)
	return entries, err
}

func (r *MongoDBRepository) CreateSales(ctx context.Context, entry *models.SalesEntry) error {
	return r.insert(ctx, salesCollection, &entry.ID, entry)
}

func (r *MongoDBRepository) ListSales(ctx context.Context, filter models.EntryFilter) ([]models.SalesEntry, error) {
	entries := []models.SalesEntry{}
	err := r.findAll(ctx, salesCollection, entryQuery(filter), byDate, &entries)
	return entries, err
}

func entryQuery(filter models.EntryFilter) bson.M {
	query := bson.M{}
	if filter.HotelID != nil {
		query["hotel_id"] = *filter.HotelID
	}
	if rng := dateRange(filter.From, filter.To); len(rng) > 0 {
		query["date"] = rng
	}
	return query
}
