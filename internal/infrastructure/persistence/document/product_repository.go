package document

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ProductRepository implements catalog.ProductRepository on MongoDB
type ProductRepository struct {
	coll    *mongo.Collection
	session mongo.Session
}

// NewProductRepository creates a ProductRepository on the products collection
func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{coll: db.Collection(productsCollection)}
}

func (r *ProductRepository) withSession(sess mongo.Session) *ProductRepository {
	return &ProductRepository{coll: r.coll, session: sess}
}

// FindByID finds a product by its ID
func (r *ProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	var doc productDoc
	if err := r.coll.FindOne(scope(ctx, r.session), bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		return nil, mapNotFound(err)
	}
	return doc.toDomain(), nil
}

// FindByIDs finds multiple products by their IDs
func (r *ProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	if len(ids) == 0 {
		return []catalog.Product{}, nil
	}
	ctx = scope(ctx, r.session)
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}
	cur, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": keys}})
	if err != nil {
		return nil, err
	}
	docs, err := decodeAll[productDoc](ctx, cur)
	if err != nil {
		return nil, err
	}
	return toProducts(docs), nil
}

// FindAll finds products matching the filter and returns the total match count
func (r *ProductRepository) FindAll(ctx context.Context, filter catalog.ProductFilter) ([]catalog.Product, int64, error) {
	ctx = scope(ctx, r.session)
	query := productQuery(filter)

	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	cur, err := r.coll.Find(ctx, query, findOptions(filter.Filter, productSortFields))
	if err != nil {
		return nil, 0, err
	}
	docs, err := decodeAll[productDoc](ctx, cur)
	if err != nil {
		return nil, 0, err
	}
	return toProducts(docs), total, nil
}

// DistinctCategories returns the categories in use
func (r *ProductRepository) DistinctCategories(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, "category")
}

// DistinctBrands returns the brands in use
func (r *ProductRepository) DistinctBrands(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, "brand")
}

func (r *ProductRepository) distinct(ctx context.Context, field string) ([]string, error) {
	raw, err := r.coll.Distinct(scope(ctx, r.session), field, bson.M{field: bson.M{"$ne": ""}})
	if err != nil {
		return nil, err
	}
	values := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			values = append(values, s)
		}
	}
	slices.Sort(values)
	return values, nil
}

// Create inserts a new product
func (r *ProductRepository) Create(ctx context.Context, product *catalog.Product) error {
	if _, err := r.coll.InsertOne(scope(ctx, r.session), productDocFrom(product)); err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

// Update replaces the product if the stored version is the one it was loaded at
func (r *ProductRepository) Update(ctx context.Context, product *catalog.Product) error {
	ctx = scope(ctx, r.session)
	doc := productDocFrom(product)
	result, err := r.coll.ReplaceOne(ctx, bson.M{"_id": doc.Meta.ID, "version": product.Version - 1}, doc)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
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

// Delete deletes a product
func (r *ProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.coll.DeleteOne(scope(ctx, r.session), bson.M{"_id": id.String()})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DecrementStock removes qty units with a single conditional update, so the
// stock guard and the write are one atomic document operation.
func (r *ProductRepository) DecrementStock(ctx context.Context, id uuid.UUID, qty int) error {
	if qty < 1 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be at least 1")
	}
	ctx = scope(ctx, r.session)

	result, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id.String(), "stock": bson.M{"$gte": qty}},
		bson.M{
			"$inc": bson.M{"stock": -qty, "version": 1},
			"$set": bson.M{"updatedAt": time.Now().UTC()},
		},
	)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if result.MatchedCount == 1 {
		return nil
	}

	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return err
	}
	if n == 0 {
		return shared.ErrNotFound
	}
	return shared.ErrInsufficientStock
}

// IncrementStock returns qty units to stock
func (r *ProductRepository) IncrementStock(ctx context.Context, id uuid.UUID, qty int) error {
	if qty < 1 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be at least 1")
	}
	result, err := r.coll.UpdateOne(scope(ctx, r.session),
		bson.M{"_id": id.String()},
		bson.M{
			"$inc": bson.M{"stock": qty, "version": 1},
			"$set": bson.M{"updatedAt": time.Now().UTC()},
		},
	)
	if err != nil {
		return fmt.Errorf("increment stock: %w", err)
	}
	if result.MatchedCount == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func productQuery(filter catalog.ProductFilter) bson.M {
	query := bson.M{}
	if filter.Search != "" {
		pattern := containsPattern(filter.Search)
		query["$or"] = bson.A{
			bson.M{"name": pattern},
			bson.M{"description": pattern},
			bson.M{"brand": pattern},
		}
	}
	if filter.Category != "" {
		query["category"] = filter.Category.String()
	}
	if filter.Brand != "" {
		query["brand"] = filter.Brand
	}
	if filter.MinPrice != nil || filter.MaxPrice != nil {
		price := bson.M{}
		if filter.MinPrice != nil {
			price["$gte"] = toDecimal128(*filter.MinPrice)
		}
		if filter.MaxPrice != nil {
			price["$lte"] = toDecimal128(*filter.MaxPrice)
		}
		query["price"] = price
	}
	if filter.Featured != nil {
		query["featured"] = *filter.Featured
	}
	if filter.BestSeller != nil {
		query["bestSeller"] = *filter.BestSeller
	}
	return query
}

func toProducts(docs []productDoc) []catalog.Product {
	products := make([]catalog.Product, len(docs))
	for i := range docs {
		products[i] = *docs[i].toDomain()
	}
	return products
}

var _ catalog.ProductRepository = (*ProductRepository)(nil)
