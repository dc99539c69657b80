package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	apptrade "github.com/storefront/backend/internal/application/trade"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/trade"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormTransactionScope_RollsBackOrderWhenStockFails(t *testing.T) {
	db := newTestDB(t)
	products := NewGormProductRepository(db)
	orders := NewGormOrderRepository(db)
	scope := NewGormTransactionScope(db)
	ctx := context.Background()

	plenty := seedProduct(t, products, "Rose Oud", 10)
	scarce := seedProduct(t, products, "Amber Night", 1)

	order := newTestOrder(t, uuid.New(), "ORD-1-1",
		trade.OrderItem{ProductID: plenty.ID, Quantity: 3, Price: decimal.NewFromInt(50)},
		trade.OrderItem{ProductID: scarce.ID, Quantity: 2, Price: decimal.NewFromInt(50)},
	)

	err := scope.Execute(ctx, func(repos apptrade.TransactionalRepositories) error {
		if err := repos.OrderRepo().Create(ctx, order); err != nil {
			return err
		}
		for _, item := range order.Items {
			if err := repos.ProductRepo().DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	require.ErrorIs(t, err, shared.ErrInsufficientStock)

	_, err = orders.FindByID(ctx, order.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	reloaded, err := products.FindByID(ctx, plenty.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, reloaded.Stock)
}

func TestGormTransactionScope_Commits(t *testing.T) {
	db := newTestDB(t)
	products := NewGormProductRepository(db)
	scope := NewGormTransactionScope(db)
	ctx := context.Background()
	p := seedProduct(t, products, "Rose Oud", 2)

	require.NoError(t, scope.Execute(ctx, func(repos apptrade.TransactionalRepositories) error {
		return repos.ProductRepo().DecrementStock(ctx, p.ID, 2)
	}))

	reloaded, err := products.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, reloaded.Stock)
}
