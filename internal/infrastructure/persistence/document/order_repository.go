package document

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/trade"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// OrderRepository implements trade.OrderRepository on MongoDB. Line items are
// embedded in the order document.
type OrderRepository struct {
	coll    *mongo.Collection
	session mongo.Session
}

// NewOrderRepository creates an OrderRepository on the orders collection
func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{coll: db.Collection(ordersCollection)}
}

func (r *OrderRepository) withSession(sess mongo.Session) *OrderRepository {
	return &OrderRepository{coll: r.coll, session: sess}
}

// Create inserts a new order
func (r *OrderRepository) Create(ctx context.Context, order *trade.Order) error {
	if _, err := r.coll.InsertOne(scope(ctx, r.session), orderDocFrom(order)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return trade.ErrDuplicateOrderNumber
		}
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

// Update persists status changes guarded by the previous aggregate version
func (r *OrderRepository) Update(ctx context.Context, order *trade.Order) error {
	ctx = scope(ctx, r.session)
	doc := orderDocFrom(order)

	result, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": doc.Meta.ID, "version": order.Version - 1},
		bson.M{"$set": bson.M{
			"status":        doc.Status,
			"statusHistory": doc.StatusHistory,
			"deliveredAt":   doc.DeliveredAt,
			"version":       doc.Meta.Version,
			"updatedAt":     doc.Meta.UpdatedAt,
		}},
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if result.MatchedCount == 1 {
		return nil
	}

	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": doc.Meta.ID})
	if err != nil {
		return err
	}
	if n == 0 {
		return shared.ErrNotFound
	}
	return shared.ErrConcurrentModification
}

// FindByID finds an order by ID
func (r *OrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Order, error) {
	var doc orderDoc
	if err := r.coll.FindOne(scope(ctx, r.session), bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		return nil, mapNotFound(err)
	}
	return doc.toDomain(), nil
}

// FindByUser returns a user's orders, newest first
func (r *OrderRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]*trade.Order, error) {
	ctx = scope(ctx, r.session)
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := r.coll.Find(ctx, bson.M{"user": userID.String()}, opts)
	if err != nil {
		return nil, err
	}
	docs, err := decodeAll[orderDoc](ctx, cur)
	if err != nil {
		return nil, err
	}
	return toOrders(docs), nil
}

// FindAll returns orders matching the filter with the total count
func (r *OrderRepository) FindAll(ctx context.Context, filter trade.OrderFilter) ([]*trade.Order, int64, error) {
	ctx = scope(ctx, r.session)
	query := bson.M{}
	if filter.Status != nil {
		query["status"] = filter.Status.String()
	}

	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	cur, err := r.coll.Find(ctx, query, findOptions(filter.Filter, orderSortFields))
	if err != nil {
		return nil, 0, err
	}
	docs, err := decodeAll[orderDoc](ctx, cur)
	if err != nil {
		return nil, 0, err
	}
	return toOrders(docs), total, nil
}

func toOrders(docs []orderDoc) []*trade.Order {
	orders := make([]*trade.Order, len(docs))
	for i := range docs {
		orders[i] = docs[i].toDomain()
	}
	return orders
}

var _ trade.OrderRepository = (*OrderRepository)(nil)
