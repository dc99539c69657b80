package identity

import (
	"context"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// UserRepository defines the interface for user persistence
type UserRepository interface {
	// Create creates a new user; returns shared.ErrAlreadyExists when the email is taken
	Create(ctx context.Context, user *User) error

	// Update updates an existing user
	Update(ctx context.Context, user *User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)

	// FindByIDs finds users by ID; missing ids are skipped
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*User, error)

	// FindByEmail finds a user by case-normalized email
	FindByEmail(ctx context.Context, email string) (*User, error)

	// FindAll returns users matching the filter with the total count
	FindAll(ctx context.Context, filter UserFilter) ([]*User, int64, error)
}

// UserFilter contains filter options for querying users
type UserFilter struct {
	shared.Filter

	// Filter by role
	Role *Role

	// Filter by status
	Status *UserStatus
}
