package identity

import (
	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// Aggregate type constant for User
const AggregateTypeUser = "User"

// User domain event types
const (
	EventTypeAccountProvisioned      = "AccountProvisioned"
	EventTypeEmailVerificationIssued = "EmailVerificationIssued"
)

// AccountProvisionedEvent is published when a guest checkout creates an account.
// It carries the plaintext setup token so it can be mailed; it is never persisted.
type AccountProvisionedEvent struct {
	shared.BaseDomainEvent
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Name   string    `json:"name"`
	Token  string    `json:"-"`
}

// NewAccountProvisionedEvent creates a new AccountProvisionedEvent
func NewAccountProvisionedEvent(user *User, token string) *AccountProvisionedEvent {
	return &AccountProvisionedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAccountProvisioned, AggregateTypeUser, user.ID),
		UserID:          user.ID,
		Email:           user.Email,
		Name:            user.Name,
		Token:           token,
	}
}

// EmailVerificationIssuedEvent is published when a registered user needs to confirm their email
type EmailVerificationIssuedEvent struct {
	shared.BaseDomainEvent
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Name   string    `json:"name"`
	Token  string    `json:"-"`
}

// NewEmailVerificationIssuedEvent creates a new EmailVerificationIssuedEvent
func NewEmailVerificationIssuedEvent(user *User, token string) *EmailVerificationIssuedEvent {
	return &EmailVerificationIssuedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeEmailVerificationIssued, AggregateTypeUser, user.ID),
		UserID:          user.ID,
		Email:           user.Email,
		Name:            user.Name,
		Token:           token,
	}
}
