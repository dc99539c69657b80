package trade

import (
	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// ShippingContact is the recipient block of a checkout submission
type ShippingContact struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   valueobject.Address
}

// Checkout identifies who is placing an order. It is either an
// AuthenticatedCheckout or a GuestCheckout and is decided once, at the edge.
type Checkout interface {
	checkout()
}

// AuthenticatedCheckout is a checkout by a caller holding a valid token
type AuthenticatedCheckout struct {
	UserID uuid.UUID
}

// GuestCheckout is a checkout identified only by the submitted contact email
type GuestCheckout struct {
	Contact ShippingContact
}

func (AuthenticatedCheckout) checkout() {}
func (GuestCheckout) checkout()         {}

// ResolvedIdentity is the account an order is bound to
type ResolvedIdentity struct {
	UserID uuid.UUID
	Email  string
	Name   string
	// Provisioned is set when the account was created by this checkout
	Provisioned bool
	// VerificationToken is the plaintext setup token of a provisioned account
	VerificationToken string
}
