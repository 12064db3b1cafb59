package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/hotelerp/internal/domain/models"
)

func (r *MongoDBRepository) CreateOrder(ctx context.Context, order *models.ProcurementOrder) error {
	return r.insert(ctx, ordersCollection, &order.ID, order)
}

func (r *MongoDBRepository) GetOrder(ctx context.Context, id primitive.ObjectID) (*models.ProcurementOrder, error) {
	var order models.ProcurementOrder
	if err := r.findByID(ctx, ordersCollection, id, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *MongoDBRepository) ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.ProcurementOrder, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.VendorID != nil {
		query["vendor_id"] = *filter.VendorID
	}
	if rng := dateRange(filter.From, filter.To); len(rng) > 0 {
		query["bill_date"] = rng
	}

	orders := []models.ProcurementOrder{}
	err := r.findAll(ctx, ordersCollection, query, bson.D{{Key: "bill_date", Value: -1}}, &orders)
	return orders, err
}

// UpdateOrderIfStatus is a compare-and-set on the status field: a concurrent writer that
// already moved the order makes the filter miss and the call fail with ErrConflict.
func (r *MongoDBRepository) UpdateOrderIfStatus(ctx context.Context, order *models.ProcurementOrder, expected models.OrderStatus) error {
	res, err := r.db.Collection(ordersCollection).ReplaceOne(ctx, bson.M{"_id": order.ID, "status": expected}, order)
	if err != nil {
		return fmt.Errorf("update order %s: %w", order.ID.Hex(), err)
	}
	if res.MatchedCount == 0 {
		if _, err := r.GetOrder(ctx, order.ID); err != nil {
			return err
		}
		return fmt.Errorf("order %s is no longer %s: %w", order.ID.Hex(), expected, models.ErrConflict)
	}
	return nil
}

type receiptDoc struct {
	OrderID   primitive.ObjectID `bson:"order_id"`
	LineID    primitive.ObjectID `bson:"line_id"`
	ClaimedAt time.Time          `bson:"claimed_at"`
}

// ClaimReceipt relies on the unique (order_id, line_id) index: the second claimant gets a
// duplicate key error.
func (r *MongoDBRepository) ClaimReceipt(ctx context.Context, orderID, lineID primitive.ObjectID) (bool, error) {
	doc := receiptDoc{OrderID: orderID, LineID: lineID, ClaimedAt: r.now()}
	if _, err := r.db.Collection(receiptsCollection).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("claim receipt %s/%s: %w", orderID.Hex(), lineID.Hex(), err)
	}
	return true, nil
}

func (r *MongoDBRepository) ReleaseReceipt(ctx context.Context, orderID, lineID primitive.ObjectID) error {
	if _, err := r.db.Collection(receiptsCollection).DeleteOne(ctx, bson.M{"order_id": orderID, "line_id": lineID}); err != nil {
		return fmt.Errorf("release receipt %s/%s: %w", orderID.Hex(), lineID.Hex(), err)
	}
	return nil
}

func (r *MongoDBRepository) ReceivedLines(ctx context.Context, orderID primitive.ObjectID) ([]primitive.ObjectID, error) {
	cursor, err := r.db.Collection(receiptsCollection).Find(ctx, bson.M{"order_id": orderID},
		options.Find().SetSort(bson.D{{Key: "line_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find receipts of %s: %w", orderID.Hex(), err)
	}
	var docs []receiptDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode receipts of %s: %w", orderID.Hex(), err)
	}
	lines := make([]primitive.ObjectID, 0, len(docs))
	for _, d := range docs {
		lines = append(lines, d.LineID)
	}
	return lines, nil
}
