package persistence

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/storefront/backend/internal/domain/trade"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a fresh in-memory sqlite database with the full schema
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared&_foreign_keys=on"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

// newMockDB returns a postgres-dialect GORM handle backed by sqlmock
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

func seedProduct(t *testing.T, repo *GormProductRepository, name string, stock int) *catalog.Product {
	t.Helper()
	p := seedProductValue(t, name)
	p.Stock = stock
	require.NoError(t, repo.Create(t.Context(), p))
	return p
}

// seedProductValue builds a valid product without persisting it
func seedProductValue(t *testing.T, name string) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(catalog.ProductInput{
		Name:        name,
		Description: name + " description",
		Price:       decimal.NewFromInt(50),
		Category:    catalog.CategoryUnisex,
		Brand:       "Fantasy",
		Volume:      "100ml",
		Stock:       1,
	})
	require.NoError(t, err)
	return p
}

func seedUser(t *testing.T, repo *GormUserRepository, email string) *identity.User {
	t.Helper()
	u, err := identity.NewUser("Jane Doe", email, "secret1")
	require.NoError(t, err)
	require.NoError(t, repo.Create(t.Context(), u))
	return u
}

func newTestOrder(t *testing.T, userID uuid.UUID, number string, items ...trade.OrderItem) *trade.Order {
	t.Helper()
	o, err := trade.NewOrder(
		userID,
		number,
		items,
		valueobject.MustNewAddress("1 Main St", "Springfield", "IL", "62701", "US"),
		trade.PaymentInfo{ID: "manual", Status: "completed", Method: "card"},
		trade.Totals{
			Subtotal:     decimal.NewFromInt(100),
			Tax:          decimal.NewFromInt(8),
			ShippingCost: decimal.NewFromInt(5),
			Total:        decimal.NewFromInt(113),
		},
	)
	require.NoError(t, err)
	return o
}
