package document

import (
	"context"
	"regexp"
	"strings"

	"github.com/storefront/backend/internal/domain/shared"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Sort keys map the column names used by the filters to document fields.
var (
	productSortFields = map[string]string{
		"created_at": "createdAt",
		"updated_at": "updatedAt",
		"name":       "name",
		"price":      "price",
		"ratings":    "ratings",
		"stock":      "stock",
	}
	userSortFields = map[string]string{
		"created_at": "createdAt",
		"updated_at": "updatedAt",
		"name":       "name",
		"email":      "email",
		"role":       "role",
		"status":     "status",
	}
	orderSortFields = map[string]string{
		"created_at":   "createdAt",
		"updated_at":   "updatedAt",
		"order_number": "orderNumber",
		"status":       "status",
		"total_amount": "totalAmount",
	}
)

// sortSpec resolves a filter's order columns, falling back to newest first.
// _id is appended so paging is stable across equal sort keys.
func sortSpec(filter shared.Filter, allowed map[string]string) bson.D {
	field, ok := allowed[filter.OrderBy]
	if !ok {
		field = "createdAt"
	}
	dir := -1
	if strings.EqualFold(filter.OrderDir, "asc") {
		dir = 1
	}
	return bson.D{{Key: field, Value: dir}, {Key: "_id", Value: dir}}
}

func findOptions(filter shared.Filter, allowed map[string]string) *options.FindOptions {
	opts := options.Find().SetSort(sortSpec(filter, allowed))
	if filter.PageSize > 0 {
		opts.SetSkip(int64(filter.Offset())).SetLimit(int64(filter.PageSize))
	}
	return opts
}

// containsPattern builds a case-insensitive substring match for user input
func containsPattern(search string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
}

// scope binds ctx to an open session so that repository calls made inside a
// transaction callback join it, whichever context the caller passes.
func scope(ctx context.Context, sess mongo.Session) context.Context {
	if sess == nil {
		return ctx
	}
	return mongo.NewSessionContext(ctx, sess)
}

func decodeAll[T any](ctx context.Context, cur *mongo.Cursor) ([]T, error) {
	defer cur.Close(ctx)
	docs := make([]T, 0)
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}
