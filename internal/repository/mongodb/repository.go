package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mamadbah2/hotelerp/internal/domain/models"
)

const (
	usersCollection        = "users"
	hotelsCollection       = "hotels"
	itemsCollection        = "items"
	vendorsCollection      = "vendors"
	recipesCollection      = "recipes"
	ordersCollection       = "procurement_orders"
	receiptsCollection     = "order_receipts"
	ledgerCollection       = "stock_ledger"
	balancesCollection     = "stock_balances"
	consumptionCollection  = "consumption_entries"
	salesCollection        = "sales_entries"
	dailyReportsCollection = "daily_reports"
)

// MongoDBRepository implements repository.Store on MongoDB.
type MongoDBRepository struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
	now    func() time.Time
}

// NewMongoDBRepository connects, verifies the connection and makes sure indexes exist.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string, logger *zap.Logger) (*MongoDBRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	clientOptions := options.Client().ApplyURI(uri).SetRegistry(newRegistry())
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	repo := &MongoDBRepository{
		client: client,
		db:     client.Database(dbName),
		logger: logger,
		now:    time.Now,
	}

	if err := repo.ensureIndexes(ctx); err != nil {
		return nil, err
	}

	logger.Info("mongodb repository ready", zap.String("database", dbName))
	return repo, nil
}

func (r *MongoDBRepository) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		hotelsCollection: {
			{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		ordersCollection: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "bill_date", Value: -1}}},
			{Keys: bson.D{{Key: "vendor_id", Value: 1}, {Key: "bill_number", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		receiptsCollection: {
			{Keys: bson.D{{Key: "order_id", Value: 1}, {Key: "line_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		ledgerCollection: {
			{Keys: bson.D{{Key: "location", Value: 1}, {Key: "item_id", Value: 1}, {Key: "date", Value: 1}}},
			{Keys: bson.D{{Key: "kind", Value: 1}, {Key: "date", Value: 1}}},
		},
		balancesCollection: {
			{Keys: bson.D{{Key: "item_id", Value: 1}, {Key: "location", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		consumptionCollection: {
			{Keys: bson.D{{Key: "hotel_id", Value: 1}, {Key: "date", Value: 1}}},
		},
		salesCollection: {
			{Keys: bson.D{{Key: "hotel_id", Value: 1}, {Key: "date", Value: 1}}},
		},
		dailyReportsCollection: {
			{Keys: bson.D{{Key: "date", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}

	for coll, idx := range indexes {
		if _, err := r.db.Collection(coll).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

// SaveDailyReport upserts the snapshot of a day.
func (r *MongoDBRepository) SaveDailyReport(ctx context.Context, report *models.DailyReport) error {
	if report.CreatedAt.IsZero() {
		report.CreatedAt = r.now().UTC()
	}

	update := bson.M{"$set": bson.M{
		"rows":       report.Rows,
		"total":      report.Total,
		"created_at": report.CreatedAt,
	}}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After).
		SetProjection(bson.M{"_id": 1})

	var saved struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := r.db.Collection(dailyReportsCollection).FindOneAndUpdate(ctx, bson.M{"date": report.Date}, update, opts).Decode(&saved); err != nil {
		return fmt.Errorf("failed to save daily report: %w", err)
	}
	report.ID = saved.ID
	return nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func (r *MongoDBRepository) insert(ctx context.Context, coll string, id *primitive.ObjectID, doc interface{}) error {
	if id.IsZero() {
		*id = primitive.NewObjectID()
	}
	if _, err := r.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("insert into %s: %w", coll, models.ErrConflict)
		}
		return fmt.Errorf("insert into %s: %w", coll, err)
	}
	return nil
}

func (r *MongoDBRepository) findByID(ctx context.Context, coll string, id primitive.ObjectID, out interface{}) error {
	return r.findOne(ctx, coll, bson.M{"_id": id}, out)
}

func (r *MongoDBRepository) findOne(ctx context.Context, coll string, filter bson.M, out interface{}) error {
	err := r.db.Collection(coll).FindOne(ctx, filter).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s: %w", coll, models.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("find in %s: %w", coll, err)
	}
	return nil
}

func (r *MongoDBRepository) findAll(ctx context.Context, coll string, filter bson.M, sort bson.D, out interface{}) error {
	opts := options.Find()
	if len(sort) > 0 {
		opts.SetSort(sort)
	}
	cursor, err := r.db.Collection(coll).Find(ctx, filter, opts)
	if err != nil {
		return fmt.Errorf("query %s: %w", coll, err)
	}
	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("decode %s: %w", coll, err)
	}
	return nil
}

func (r *MongoDBRepository) replace(ctx context.Context, coll string, filter bson.M, doc interface{}) error {
	res, err := r.db.Collection(coll).ReplaceOne(ctx, filter, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("replace in %s: %w", coll, models.ErrConflict)
		}
		return fmt.Errorf("replace in %s: %w", coll, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", coll, models.ErrNotFound)
	}
	return nil
}

func activeFilter(activeOnly bool) bson.M {
	if activeOnly {
		return bson.M{"active": true}
	}
	return bson.M{}
}

func dateRange(from, to time.Time) bson.M {
	rng := bson.M{}
	if !from.IsZero() {
		rng["$gte"] = from
	}
	if !to.IsZero() {
		rng["$lt"] = to
	}
	return rng
}
