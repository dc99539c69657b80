// Package testutil provides fixtures and helpers shared by the storefront
// integration tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// DefaultPassword is the password of every user built by NewUser
const DefaultPassword = "secret1"

// JWTConfig returns signing settings for test tokens
func JWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:     "integration-secret-key-long-enough",
		Expiration: time.Hour,
		Issuer:     "storefront-test",
	}
}

// NewJWTService creates a JWT service with JWTConfig
func NewJWTService() *auth.JWTService {
	return auth.NewJWTService(JWTConfig())
}

// NewUser builds an unsaved user with DefaultPassword and the given role
func NewUser(t *testing.T, email string, role identity.Role) *identity.User {
	t.Helper()
	u, err := identity.NewUser("Test User", email, DefaultPassword)
	require.NoError(t, err)
	require.NoError(t, u.ChangeRole(role))
	return u
}

// Token issues a bearer token for the user
func Token(t *testing.T, jwt *auth.JWTService, u *identity.User) string {
	t.Helper()
	issued, err := jwt.GenerateToken(u.ID, string(u.Role))
	require.NoError(t, err)
	return issued.Token
}

// NewProduct builds an unsaved product priced at 50 with the given stock
func NewProduct(t *testing.T, name string, stock int) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(catalog.ProductInput{
		Name:        name,
		Description: name + " eau de parfum",
		Price:       decimal.NewFromInt(50),
		Category:    catalog.CategoryUnisex,
		Brand:       "Fantasy",
		Volume:      "100ml",
		Stock:       stock,
	})
	require.NoError(t, err)
	return p
}

// CheckoutBody returns a POST /api/orders payload for one line item at 50.
// Totals are the client-computed values the API persists as sent.
func CheckoutBody(productID uuid.UUID, quantity int, email string) map[string]any {
	subtotal := 50 * quantity
	return map[string]any{
		"items": []map[string]any{
			{"product": productID, "quantity": quantity, "price": 50},
		},
		"shipping": map[string]any{
			"firstName": "Ann",
			"lastName":  "Lee",
			"email":     email,
			"phone":     "555-0100",
			"address": map[string]any{
				"street":  "1 Main St",
				"city":    "Springfield",
				"state":   "IL",
				"zipCode": "62701",
				"country": "US",
			},
		},
		"payment":      map[string]any{"method": "card", "details": map[string]any{"transactionId": "tx_1"}},
		"subtotal":     subtotal,
		"tax":          8,
		"shippingCost": 5,
		"total":        subtotal + 13,
	}
}

// Context returns a context cancelled when the test ends or timeout elapses
func Context(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}
