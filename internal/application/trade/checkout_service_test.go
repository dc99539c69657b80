package trade

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/storefront/backend/internal/domain/trade"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type checkoutFixture struct {
	users     *MockUserRepository
	products  *MockProductRepository
	orders    *MockOrderRepository
	publisher *MockEventPublisher
	service   *CheckoutService
}

func newCheckoutFixture(echo bool, numbers ...string) *checkoutFixture {
	if len(numbers) == 0 {
		numbers = []string{"ORD-1700000000000-1"}
	}
	f := &checkoutFixture{
		users:     new(MockUserRepository),
		products:  new(MockProductRepository),
		orders:    new(MockOrderRepository),
		publisher: new(MockEventPublisher),
	}
	f.service = NewCheckoutService(
		f.users,
		f.products,
		NewNoOpTransactionScope(f.orders, f.products),
		&fixedNumbers{numbers: numbers},
		CheckoutConfig{EchoVerificationToken: echo},
		zap.NewNop(),
	)
	f.service.SetEventPublisher(f.publisher)
	return f
}

func newStockedProduct(t *testing.T, stock int) catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(catalog.ProductInput{
		Name:        "Rose Oud",
		Description: "Warm rose over smoky oud",
		Price:       decimal.NewFromInt(50),
		Category:    catalog.CategoryUnisex,
		Brand:       "Fantasy",
		Volume:      "100ml",
		Stock:       stock,
	})
	require.NoError(t, err)
	return *p
}

func checkoutRequest(productID uuid.UUID, qty int, email string) PlaceOrderRequest {
	return PlaceOrderRequest{
		Items: []OrderItemInput{{Product: productID, Quantity: qty, Price: decimal.NewFromInt(50)}},
		Shipping: ShippingInput{
			FirstName: "Sam",
			LastName:  "Guest",
			Email:     email,
			Phone:     "555-0100",
			Address: valueobject.AddressDTO{
				Street: "1 Main St", City: "Springfield", State: "IL", ZipCode: "62701", Country: "US",
			},
		},
		Payment:      PaymentInput{Method: "card", Details: map[string]any{"transactionId": "tx_123"}},
		Subtotal:     decimal.NewFromInt(100),
		Tax:          decimal.NewFromInt(8),
		ShippingCost: decimal.Zero,
		Total:        decimal.NewFromInt(108),
		Guest:        true,
	}
}

func TestCheckoutService_PlaceOrder_Authenticated(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(false)

	user, err := identity.NewUser("Jane", "jane@example.com", "secret1")
	require.NoError(t, err)
	product := newStockedProduct(t, 5)

	f.products.On("FindByIDs", mock.Anything, []uuid.UUID{product.ID}).Return([]catalog.Product{product}, nil)
	f.users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	f.orders.On("Create", mock.Anything, mock.AnythingOfType("*trade.Order")).Return(nil)
	f.products.On("DecrementStock", mock.Anything, product.ID, 2).Return(nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	result, err := f.service.PlaceOrder(ctx, trade.AuthenticatedCheckout{UserID: user.ID}, checkoutRequest(product.ID, 2, ""))
	require.NoError(t, err)

	assert.Equal(t, user.ID, result.Order.User)
	assert.Equal(t, "processing", result.Order.Status)
	assert.Equal(t, 108.0, result.Order.TotalAmount)
	assert.Equal(t, "tx_123", result.Order.PaymentInfo.ID)
	assert.Equal(t, "completed", result.Order.PaymentInfo.Status)
	require.Len(t, result.Order.StatusHistory, 1)
	assert.Empty(t, result.Verification)

	f.products.AssertCalled(t, "DecrementStock", mock.Anything, product.ID, 2)
	f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)

	published := f.publisher.Calls[0].Arguments.Get(1).([]shared.DomainEvent)
	require.Len(t, published, 1)
	placed, ok := published[0].(*trade.OrderPlacedEvent)
	require.True(t, ok)
	assert.Equal(t, "jane@example.com", placed.CustomerEmail)
	assert.Equal(t, "Jane", placed.CustomerName)
}

func TestCheckoutService_PlaceOrder_ReturningGuestBindsExistingAccount(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(true)

	existing, err := identity.NewUser("Known", "known@example.com", "secret1")
	require.NoError(t, err)
	product := newStockedProduct(t, 5)
	req := checkoutRequest(product.ID, 1, "Known@Example.com")

	f.products.On("FindByIDs", mock.Anything, mock.Anything).Return([]catalog.Product{product}, nil)
	f.users.On("FindByEmail", mock.Anything, "known@example.com").Return(existing, nil)
	f.orders.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.products.On("DecrementStock", mock.Anything, product.ID, 1).Return(nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	contact, err := req.Shipping.Contact()
	require.NoError(t, err)
	result, err := f.service.PlaceOrder(ctx, trade.GuestCheckout{Contact: contact}, req)
	require.NoError(t, err)

	// No credential is required to attach an order to a known email
	assert.Equal(t, existing.ID, result.Order.User)
	assert.Empty(t, result.Verification)
	f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCheckoutService_PlaceOrder_NewGuestIsProvisioned(t *testing.T) {
	ctx := context.Background()

	for _, echo := range []bool{true, false} {
		t.Run("echo="+map[bool]string{true: "on", false: "off"}[echo], func(t *testing.T) {
			f := newCheckoutFixture(echo)
			product := newStockedProduct(t, 5)
			req := checkoutRequest(product.ID, 1, "new@example.com")

			var created *identity.User
			f.products.On("FindByIDs", mock.Anything, mock.Anything).Return([]catalog.Product{product}, nil)
			f.users.On("FindByEmail", mock.Anything, "new@example.com").Return(nil, shared.ErrNotFound)
			f.users.On("Create", mock.Anything, mock.AnythingOfType("*identity.User")).
				Run(func(args mock.Arguments) { created = args.Get(1).(*identity.User) }).
				Return(nil)
			f.orders.On("Create", mock.Anything, mock.Anything).Return(nil)
			f.products.On("DecrementStock", mock.Anything, product.ID, 1).Return(nil)
			f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

			contact, err := req.Shipping.Contact()
			require.NoError(t, err)
			result, err := f.service.PlaceOrder(ctx, trade.GuestCheckout{Contact: contact}, req)
			require.NoError(t, err)

			require.NotNil(t, created)
			assert.Equal(t, created.ID, result.Order.User)
			assert.True(t, created.TemporaryPassword)
			assert.False(t, created.EmailVerified)
			assert.Equal(t, "Sam Guest", created.Name)
			require.NotNil(t, created.EmailVerificationExpires)

			if echo {
				require.NotEmpty(t, result.Verification)
				assert.Equal(t, identity.HashToken(result.Verification), created.EmailVerificationHash)
			} else {
				assert.Empty(t, result.Verification)
			}

			require.Len(t, f.publisher.Calls, 2)
			provisioned := f.publisher.Calls[0].Arguments.Get(1).([]shared.DomainEvent)
			require.Len(t, provisioned, 1)
			assert.Equal(t, identity.EventTypeAccountProvisioned, provisioned[0].EventType())
			placed := f.publisher.Calls[1].Arguments.Get(1).([]shared.DomainEvent)
			require.Len(t, placed, 1)
			assert.Equal(t, trade.EventTypeOrderPlaced, placed[0].EventType())
		})
	}
}

func TestCheckoutService_PlaceOrder_IncompleteAddressProvisionsNothing(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(true)
	product := newStockedProduct(t, 5)
	req := checkoutRequest(product.ID, 1, "new@example.com")
	req.Shipping.Address.ZipCode = "  "

	contact, err := req.Shipping.Contact()
	require.NoError(t, err)
	_, err = f.service.PlaceOrder(ctx, trade.GuestCheckout{Contact: contact}, req)
	require.Error(t, err)
	var de *shared.DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "INVALID_ADDRESS", de.Code)

	f.users.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything)
	f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestCheckoutService_PlaceOrder_ProvisionedAccountAnnouncedWhenOrderFails(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(false)
	product := newStockedProduct(t, 5)
	req := checkoutRequest(product.ID, 2, "late@example.com")

	f.products.On("FindByIDs", mock.Anything, mock.Anything).Return([]catalog.Product{product}, nil)
	f.users.On("FindByEmail", mock.Anything, "late@example.com").Return(nil, shared.ErrNotFound)
	f.users.On("Create", mock.Anything, mock.AnythingOfType("*identity.User")).Return(nil)
	f.orders.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.products.On("DecrementStock", mock.Anything, product.ID, 2).Return(shared.ErrInsufficientStock)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	contact, err := req.Shipping.Contact()
	require.NoError(t, err)
	_, err = f.service.PlaceOrder(ctx, trade.GuestCheckout{Contact: contact}, req)
	assert.ErrorIs(t, err, shared.ErrInsufficientStock)

	f.publisher.AssertNumberOfCalls(t, "Publish", 1)
	published := f.publisher.Calls[0].Arguments.Get(1).([]shared.DomainEvent)
	require.Len(t, published, 1)
	assert.Equal(t, identity.EventTypeAccountProvisioned, published[0].EventType())
}

func TestCheckoutService_PlaceOrder_NoIdentity(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(false)
	product := newStockedProduct(t, 5)

	_, err := f.service.PlaceOrder(ctx, nil, checkoutRequest(product.ID, 1, ""))
	assert.ErrorIs(t, err, shared.ErrUnauthorized)

	f.products.AssertNotCalled(t, "DecrementStock", mock.Anything, mock.Anything, mock.Anything)
	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCheckoutService_PlaceOrder_InsufficientStockMutatesNothing(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(false)
	userID := uuid.New()
	product := newStockedProduct(t, 1)

	f.products.On("FindByIDs", mock.Anything, mock.Anything).Return([]catalog.Product{product}, nil)

	_, err := f.service.PlaceOrder(ctx, trade.AuthenticatedCheckout{UserID: userID}, checkoutRequest(product.ID, 2, ""))
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrInsufficientStock)
	assert.Contains(t, err.Error(), "Rose Oud")

	f.users.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.products.AssertNotCalled(t, "DecrementStock", mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckoutService_PlaceOrder_DuplicateItemsAreSummed(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(false)
	product := newStockedProduct(t, 3)

	req := checkoutRequest(product.ID, 2, "")
	req.Items = append(req.Items, OrderItemInput{Product: product.ID, Quantity: 2, Price: decimal.NewFromInt(50)})
	f.products.On("FindByIDs", mock.Anything, []uuid.UUID{product.ID}).Return([]catalog.Product{product}, nil)

	_, err := f.service.PlaceOrder(ctx, trade.AuthenticatedCheckout{UserID: uuid.New()}, req)
	assert.ErrorIs(t, err, shared.ErrInsufficientStock)
}

func TestCheckoutService_PlaceOrder_UnknownProduct(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(false)
	missing := uuid.New()

	f.products.On("FindByIDs", mock.Anything, []uuid.UUID{missing}).Return([]catalog.Product{}, nil)

	_, err := f.service.PlaceOrder(ctx, trade.AuthenticatedCheckout{UserID: uuid.New()}, checkoutRequest(missing, 1, ""))
	require.Error(t, err)
	var de *shared.DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "PRODUCT_NOT_FOUND", de.Code)
}

func TestCheckoutService_PlaceOrder_EmptyItems(t *testing.T) {
	f := newCheckoutFixture(false)
	req := checkoutRequest(uuid.New(), 1, "")
	req.Items = nil

	_, err := f.service.PlaceOrder(context.Background(), trade.AuthenticatedCheckout{UserID: uuid.New()}, req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No order items")
}

func TestCheckoutService_PlaceOrder_LostRaceOnDecrement(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(false)
	user, _ := identity.NewUser("Jane", "jane@example.com", "secret1")
	product := newStockedProduct(t, 5)

	f.products.On("FindByIDs", mock.Anything, mock.Anything).Return([]catalog.Product{product}, nil)
	f.users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	f.orders.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.products.On("DecrementStock", mock.Anything, product.ID, 2).Return(shared.ErrInsufficientStock)

	_, err := f.service.PlaceOrder(ctx, trade.AuthenticatedCheckout{UserID: user.ID}, checkoutRequest(product.ID, 2, ""))
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrInsufficientStock)
	assert.Contains(t, err.Error(), "Rose Oud")
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestCheckoutService_PlaceOrder_RetriesOnOrderNumberCollision(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(false, "ORD-1-1", "ORD-1-2")
	user, _ := identity.NewUser("Jane", "jane@example.com", "secret1")
	product := newStockedProduct(t, 5)

	f.products.On("FindByIDs", mock.Anything, mock.Anything).Return([]catalog.Product{product}, nil)
	f.users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	f.orders.On("Create", mock.Anything, mock.MatchedBy(func(o *trade.Order) bool { return o.OrderNumber == "ORD-1-1" })).
		Return(trade.ErrDuplicateOrderNumber).Once()
	f.orders.On("Create", mock.Anything, mock.MatchedBy(func(o *trade.Order) bool { return o.OrderNumber == "ORD-1-2" })).
		Return(nil).Once()
	f.products.On("DecrementStock", mock.Anything, product.ID, 1).Return(nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	result, err := f.service.PlaceOrder(ctx, trade.AuthenticatedCheckout{UserID: user.ID}, checkoutRequest(product.ID, 1, ""))
	require.NoError(t, err)
	assert.Equal(t, "ORD-1-2", result.Order.OrderNumber)
	f.orders.AssertNumberOfCalls(t, "Create", 2)
}

func TestCheckoutService_PlaceOrder_PublishFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(false)
	user, _ := identity.NewUser("Jane", "jane@example.com", "secret1")
	product := newStockedProduct(t, 5)

	f.products.On("FindByIDs", mock.Anything, mock.Anything).Return([]catalog.Product{product}, nil)
	f.users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	f.orders.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.products.On("DecrementStock", mock.Anything, product.ID, 1).Return(nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("bus down"))

	_, err := f.service.PlaceOrder(ctx, trade.AuthenticatedCheckout{UserID: user.ID}, checkoutRequest(product.ID, 1, ""))
	assert.NoError(t, err)
}

func TestPaymentInput_TransactionID(t *testing.T) {
	assert.Equal(t, "manual", PaymentInput{}.TransactionID())
	assert.Equal(t, "manual", PaymentInput{Details: map[string]any{"transactionId": 42}}.TransactionID())
	assert.Equal(t, "pi_1", PaymentInput{Details: map[string]any{"transactionId": "pi_1"}}.TransactionID())
}
