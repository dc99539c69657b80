package document

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// UserRepository implements identity.UserRepository on MongoDB
type UserRepository struct {
	coll *mongo.Collection
}

// NewUserRepository creates a UserRepository on the users collection
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(usersCollection)}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *identity.User) error {
	if _, err := r.coll.InsertOne(ctx, userDocFrom(user)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Update replaces the stored user document, so optional fields the aggregate
// has cleared (a consumed verification token) are removed too.
func (r *UserRepository) Update(ctx context.Context, user *identity.User) error {
	doc := userDocFrom(user)
	result, err := r.coll.ReplaceOne(ctx, bson.M{"_id": doc.Meta.ID}, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return shared.NewDomainError("EMAIL_TAKEN", "Email is already in use")
		}
		return fmt.Errorf("update user: %w", err)
	}
	if result.MatchedCount == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID finds a user by ID
func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	var doc userDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		return nil, mapNotFound(err)
	}
	return doc.toDomain(), nil
}

// FindByIDs finds users by ID; missing ids are skipped
func (r *UserRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*identity.User, error) {
	if len(ids) == 0 {
		return []*identity.User{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}
	cur, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": keys}})
	if err != nil {
		return nil, err
	}
	docs, err := decodeAll[userDoc](ctx, cur)
	if err != nil {
		return nil, err
	}
	return toUsers(docs), nil
}

// FindByEmail finds a user by case-normalized email
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	email = identity.NormalizeEmail(email)
	if email == "" {
		return nil, shared.ErrNotFound
	}
	var doc userDoc
	if err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&doc); err != nil {
		return nil, mapNotFound(err)
	}
	return doc.toDomain(), nil
}

// FindAll returns users matching the filter with the total count
func (r *UserRepository) FindAll(ctx context.Context, filter identity.UserFilter) ([]*identity.User, int64, error) {
	query := bson.M{}
	if filter.Search != "" {
		pattern := containsPattern(filter.Search)
		query["$or"] = bson.A{bson.M{"name": pattern}, bson.M{"email": pattern}}
	}
	if filter.Role != nil {
		query["role"] = string(*filter.Role)
	}
	if filter.Status != nil {
		query["status"] = string(*filter.Status)
	}

	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	cur, err := r.coll.Find(ctx, query, findOptions(filter.Filter, userSortFields))
	if err != nil {
		return nil, 0, err
	}
	docs, err := decodeAll[userDoc](ctx, cur)
	if err != nil {
		return nil, 0, err
	}
	return toUsers(docs), total, nil
}

func toUsers(docs []userDoc) []*identity.User {
	users := make([]*identity.User, len(docs))
	for i := range docs {
		users[i] = docs[i].toDomain()
	}
	return users
}

var _ identity.UserRepository = (*UserRepository)(nil)
