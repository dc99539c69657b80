package integration

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/storefront/backend/internal/domain/trade"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"github.com/storefront/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedProduct(t *testing.T, repo *persistence.GormProductRepository, in catalog.ProductInput) *catalog.Product {
	t.Helper()
	if in.Description == "" {
		in.Description = in.Name
	}
	if in.Volume == "" {
		in.Volume = "50ml"
	}
	p, err := catalog.NewProduct(in)
	require.NoError(t, err)
	require.NoError(t, repo.Create(t.Context(), p))
	return p
}

func TestProductRepository_FindAllFilters(t *testing.T) {
	tdb := NewTestDB(t)
	repo := persistence.NewGormProductRepository(tdb.DB)
	ctx := testutil.Context(t, defaultTimeout)

	seedProduct(t, repo, catalog.ProductInput{
		Name: "Velvet Rose", Price: decimal.NewFromInt(80), Category: catalog.CategoryWomen,
		Brand: "Maison", Stock: 3, Featured: true,
		Images: []catalog.Image{{PublicID: "p/rose", URL: "https://cdn.example.com/rose.jpg"}},
	})
	seedProduct(t, repo, catalog.ProductInput{
		Name: "Cedar Night", Price: decimal.NewFromInt(40), Category: catalog.CategoryMen,
		Brand: "Atelier", Stock: 9, BestSeller: true,
	})
	seedProduct(t, repo, catalog.ProductInput{
		Name: "Rose Water", Price: decimal.NewFromInt(20), Category: catalog.CategoryUnisex,
		Brand: "Maison", Stock: 0,
	})

	t.Run("search is case-insensitive across name and brand", func(t *testing.T) {
		filter := catalog.ProductFilter{}
		filter.Search = "ROSE"
		found, total, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, found, 2)

		filter.Search = "atelier"
		_, total, err = repo.FindAll(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
	})

	t.Run("price range and brand", func(t *testing.T) {
		lo, hi := decimal.NewFromInt(30), decimal.NewFromInt(90)
		found, total, err := repo.FindAll(ctx, catalog.ProductFilter{Brand: "Maison", MinPrice: &lo, MaxPrice: &hi})
		require.NoError(t, err)
		require.Equal(t, int64(1), total)
		assert.Equal(t, "Velvet Rose", found[0].Name)
		require.Len(t, found[0].Images, 1)
		assert.Equal(t, "p/rose", found[0].Images[0].PublicID)
	})

	t.Run("flags and category", func(t *testing.T) {
		yes := true
		found, _, err := repo.FindAll(ctx, catalog.ProductFilter{Featured: &yes})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "Velvet Rose", found[0].Name)

		found, _, err = repo.FindAll(ctx, catalog.ProductFilter{BestSeller: &yes, Category: catalog.CategoryMen})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "Cedar Night", found[0].Name)
	})

	t.Run("sort and paginate", func(t *testing.T) {
		filter := catalog.ProductFilter{}
		filter.ApplySort(catalog.SortPriceLow)
		filter.Page, filter.PageSize = 2, 2
		found, total, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, found, 1)
		assert.Equal(t, "Velvet Rose", found[0].Name)
	})

	t.Run("distinct values", func(t *testing.T) {
		categories, err := repo.DistinctCategories(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"Men", "Unisex", "Women"}, categories)

		brands, err := repo.DistinctBrands(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"Atelier", "Maison"}, brands)
	})
}

func TestProductRepository_ReviewsRoundTrip(t *testing.T) {
	tdb := NewTestDB(t)
	repo := persistence.NewGormProductRepository(tdb.DB)
	ctx := testutil.Context(t, defaultTimeout)

	product := testutil.NewProduct(t, "Amber Trail", 2)
	require.NoError(t, repo.Create(ctx, product))

	reviewer := uuid.New()
	_, err := product.AddReview(reviewer, "Kim", 4, "Warm and long lasting")
	require.NoError(t, err)
	require.NoError(t, repo.Update(ctx, product))

	stored, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	require.Len(t, stored.Reviews, 1)
	assert.Equal(t, reviewer, stored.Reviews[0].UserID)
	assert.Equal(t, 1, stored.NumOfReviews)
	assert.InDelta(t, 4.0, stored.Ratings, 0.001)
}

func TestProductRepository_StaleUpdateConflicts(t *testing.T) {
	tdb := NewTestDB(t)
	repo := persistence.NewGormProductRepository(tdb.DB)
	ctx := testutil.Context(t, defaultTimeout)

	product := testutil.NewProduct(t, "Iris Veil", 5)
	require.NoError(t, repo.Create(ctx, product))

	first, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)

	name := "Iris Veil Intense"
	require.NoError(t, first.Apply(catalog.ProductUpdate{Name: &name}))
	require.NoError(t, repo.Update(ctx, first))

	stock := 50
	require.NoError(t, second.Apply(catalog.ProductUpdate{Stock: &stock}))
	assert.ErrorIs(t, repo.Update(ctx, second), shared.ErrConcurrentModification)

	stored, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, name, stored.Name)
	assert.Equal(t, 5, stored.Stock)
}

func TestProductRepository_StockGuards(t *testing.T) {
	tdb := NewTestDB(t)
	repo := persistence.NewGormProductRepository(tdb.DB)
	ctx := testutil.Context(t, defaultTimeout)

	product := testutil.NewProduct(t, "Sea Salt", 2)
	require.NoError(t, repo.Create(ctx, product))

	assert.ErrorIs(t, repo.DecrementStock(ctx, product.ID, 3), shared.ErrInsufficientStock)
	require.NoError(t, repo.DecrementStock(ctx, product.ID, 2))
	assert.ErrorIs(t, repo.DecrementStock(ctx, product.ID, 1), shared.ErrInsufficientStock)
	assert.ErrorIs(t, repo.DecrementStock(ctx, uuid.New(), 1), shared.ErrNotFound)

	require.NoError(t, repo.IncrementStock(ctx, product.ID, 4))
	stored, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stored.Stock)
	assert.Greater(t, stored.Version, product.Version)
}

func TestUserRepository_EmailUniqueAndFilters(t *testing.T) {
	tdb := NewTestDB(t)
	repo := persistence.NewGormUserRepository(tdb.DB)
	ctx := testutil.Context(t, defaultTimeout)

	require.NoError(t, repo.Create(ctx, testutil.NewUser(t, "owner@example.com", identity.RoleAdmin)))
	for i := range 3 {
		require.NoError(t, repo.Create(ctx, testutil.NewUser(t, fmt.Sprintf("user%d@example.com", i), identity.RoleUser)))
	}

	err := repo.Create(ctx, testutil.NewUser(t, "OWNER@example.com", identity.RoleUser))
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)

	found, err := repo.FindByEmail(ctx, " Owner@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, identity.RoleAdmin, found.Role)

	role := identity.RoleUser
	filter := identity.UserFilter{Role: &role}
	filter.PageSize = 2
	users, total, err := repo.FindAll(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, users, 2)
}

func TestOrderRepository_PersistenceRules(t *testing.T) {
	tdb := NewTestDB(t)
	users := persistence.NewGormUserRepository(tdb.DB)
	products := persistence.NewGormProductRepository(tdb.DB)
	orders := persistence.NewGormOrderRepository(tdb.DB)
	ctx := testutil.Context(t, defaultTimeout)

	owner := testutil.NewUser(t, "orders@example.com", identity.RoleUser)
	require.NoError(t, users.Create(ctx, owner))
	first := testutil.NewProduct(t, "First", 10)
	second := testutil.NewProduct(t, "Second", 10)
	require.NoError(t, products.Create(ctx, first))
	require.NoError(t, products.Create(ctx, second))

	address, err := valueobject.NewAddress("1 Main St", "Springfield", "IL", "62701", "US")
	require.NoError(t, err)

	newOrder := func(number string) *trade.Order {
		a, err := trade.NewOrderItem(first.ID, 1, decimal.NewFromInt(50))
		require.NoError(t, err)
		b, err := trade.NewOrderItem(second.ID, 2, decimal.NewFromInt(50))
		require.NoError(t, err)
		o, err := trade.NewOrder(owner.ID, number, []trade.OrderItem{a, b},
			address,
			trade.PaymentInfo{ID: "tx_1", Status: "succeeded", Method: "card"},
			trade.Totals{Subtotal: decimal.NewFromInt(150), Total: decimal.NewFromInt(150)})
		require.NoError(t, err)
		return o
	}

	placed := newOrder("ORD-1-1")
	require.NoError(t, orders.Create(ctx, placed))
	assert.ErrorIs(t, orders.Create(ctx, newOrder("ORD-1-1")), trade.ErrDuplicateOrderNumber)

	stored, err := orders.FindByID(ctx, placed.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 2)
	assert.Equal(t, first.ID, stored.Items[0].ProductID)
	assert.Equal(t, 2, stored.Items[1].Quantity)
	assert.True(t, decimal.NewFromInt(150).Equal(stored.TotalAmount))

	stale, err := orders.FindByID(ctx, placed.ID)
	require.NoError(t, err)
	require.NoError(t, stored.SetStatus(trade.OrderStatusShipped))
	require.NoError(t, orders.Update(ctx, stored))
	require.NoError(t, stale.Cancel())
	assert.ErrorIs(t, orders.Update(ctx, stale), shared.ErrConcurrentModification)

	require.NoError(t, orders.Create(ctx, newOrder("ORD-1-2")))
	shipped := trade.OrderStatusShipped
	filtered, total, err := orders.FindAll(ctx, trade.OrderFilter{Status: &shipped})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, filtered, 1)
	assert.Equal(t, placed.ID, filtered[0].ID)
	assert.Len(t, filtered[0].StatusHistory, 2)

	mine, err := orders.FindByUser(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}
