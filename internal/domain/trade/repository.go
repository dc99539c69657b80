package trade

import (
	"context"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// ErrDuplicateOrderNumber is returned by Create when the order number is taken
var ErrDuplicateOrderNumber = shared.NewDomainError("DUPLICATE_ORDER_NUMBER", "Order number already exists")

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	// Create inserts a new order
	Create(ctx context.Context, order *Order) error

	// Update persists status changes of an existing order
	Update(ctx context.Context, order *Order) error

	// FindByID finds an order by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByUser returns the orders owned by a user, newest first
	FindByUser(ctx context.Context, userID uuid.UUID) ([]*Order, error)

	// FindAll returns orders matching the filter, newest first, with the total count
	FindAll(ctx context.Context, filter OrderFilter) ([]*Order, int64, error)
}

// OrderFilter contains filter options for querying orders
type OrderFilter struct {
	shared.Filter

	// Filter by status
	Status *OrderStatus
}
