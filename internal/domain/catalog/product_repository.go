package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
)

// Sort keys accepted by the storefront listing
const (
	SortPriceLow  = "price-low"
	SortPriceHigh = "price-high"
	SortName      = "name"
	SortRating    = "rating"
	SortNewest    = "newest"
)

// ProductFilter narrows a product listing. Zero values mean "no constraint".
type ProductFilter struct {
	shared.Filter
	Category   Category
	Brand      string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Featured   *bool
	BestSeller *bool
}

// ApplySort translates a storefront sort key into the filter's order columns.
// Unknown keys fall back to newest first.
func (f *ProductFilter) ApplySort(key string) {
	switch key {
	case SortPriceLow:
		f.OrderBy, f.OrderDir = "price", "asc"
	case SortPriceHigh:
		f.OrderBy, f.OrderDir = "price", "desc"
	case SortName:
		f.OrderBy, f.OrderDir = "name", "asc"
	case SortRating:
		f.OrderBy, f.OrderDir = "ratings", "desc"
	default:
		f.OrderBy, f.OrderDir = "created_at", "desc"
	}
}

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	// FindByID finds a product by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindByIDs finds multiple products by their IDs; missing ids are skipped
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)

	// FindAll finds products matching the filter and returns the total match count
	FindAll(ctx context.Context, filter ProductFilter) ([]Product, int64, error)

	// DistinctCategories returns the categories in use
	DistinctCategories(ctx context.Context) ([]string, error)

	// DistinctBrands returns the brands in use
	DistinctBrands(ctx context.Context) ([]string, error)

	// Create inserts a new product
	Create(ctx context.Context, product *Product) error

	// Update persists a modified product. The write only applies when the
	// stored version is product.Version-1; otherwise shared.ErrConcurrentModification.
	Update(ctx context.Context, product *Product) error

	// Delete deletes a product
	Delete(ctx context.Context, id uuid.UUID) error

	// DecrementStock atomically removes qty units if at least qty are available.
	// Returns shared.ErrInsufficientStock when the guard fails and
	// shared.ErrNotFound when the product does not exist.
	DecrementStock(ctx context.Context, id uuid.UUID, qty int) error

	// IncrementStock atomically returns qty units to stock.
	// Both stock operations bump the stored version.
	IncrementStock(ctx context.Context, id uuid.UUID, qty int) error
}
