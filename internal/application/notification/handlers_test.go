package notification

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/storefront/backend/internal/domain/trade"
	"github.com/storefront/backend/internal/infrastructure/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingQueue struct {
	mu   sync.Mutex
	msgs []mail.Message
	err  error
}

func (q *recordingQueue) Enqueue(msg mail.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.msgs = append(q.msgs, msg)
	return nil
}

type mockUserRepository struct {
	mock.Mock
	identity.UserRepository
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func TestAccountHandler_ProvisionedGuest(t *testing.T) {
	queue := &recordingQueue{}
	h := NewAccountHandler(queue, Config{SiteURL: "https://shop.example.com/"}, zap.NewNop())

	user, token, err := identity.NewGuestUser(identity.GuestContact{FirstName: "Sam", Email: "sam+1@example.com"})
	require.NoError(t, err)
	events := user.GetDomainEvents()
	require.Len(t, events, 1)

	require.NoError(t, h.Handle(context.Background(), events[0]))
	require.Len(t, queue.msgs, 1)

	msg := queue.msgs[0]
	assert.Equal(t, "sam+1@example.com", msg.To)
	query := url.Values{"token": {token}, "email": {"sam+1@example.com"}}.Encode()
	assert.Contains(t, msg.HTML, "https://shop.example.com/complete-setup?"+strings.ReplaceAll(query, "&", "&amp;"))
	assert.Contains(t, msg.HTML, "1 hour")
}

func TestAccountHandler_VerificationOnlyHasNoSetupLink(t *testing.T) {
	queue := &recordingQueue{}
	h := NewAccountHandler(queue, Config{SiteURL: "https://shop.example.com"}, zap.NewNop())

	user, err := identity.NewUser("Jane", "jane@example.com", "secret1")
	require.NoError(t, err)
	_, err = user.RequestEmailVerification()
	require.NoError(t, err)

	require.NoError(t, h.Handle(context.Background(), user.GetDomainEvents()[0]))
	require.Len(t, queue.msgs, 1)
	assert.Contains(t, queue.msgs[0].HTML, "/verify-email?")
	assert.NotContains(t, queue.msgs[0].HTML, "/complete-setup")
}

func TestAccountHandler_QueueFailureIsLoggedAndSwallowed(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	h := NewAccountHandler(&recordingQueue{err: mail.ErrQueueFull}, Config{}, zap.New(core))

	user, _, err := identity.NewGuestUser(identity.GuestContact{FirstName: "Sam", Email: "sam@example.com"})
	require.NoError(t, err)

	assert.NoError(t, h.Handle(context.Background(), user.GetDomainEvents()[0]))
	require.Equal(t, 1, logs.FilterMessage("verification email not queued").Len())
}

func newOrder(t *testing.T, userID uuid.UUID) *trade.Order {
	t.Helper()
	order, err := trade.NewOrder(userID, "ORD-1700000000000-42",
		[]trade.OrderItem{{ProductID: uuid.New(), Quantity: 1, Price: decimal.NewFromInt(50)}},
		valueobject.MustNewAddress("1 Main St", "Springfield", "IL", "62701", "US"),
		trade.PaymentInfo{ID: "manual", Status: "completed"},
		trade.Totals{Subtotal: decimal.NewFromInt(50), Total: decimal.RequireFromString("54.5")},
	)
	require.NoError(t, err)
	return order
}

func TestOrderHandler_OrderPlaced(t *testing.T) {
	ctx := context.Background()
	users := new(mockUserRepository)
	queue := &recordingQueue{}
	h := NewOrderHandler(users, queue, Config{SiteURL: "https://shop.example.com"}, zap.NewNop())

	order := newOrder(t, uuid.New())
	order.SetCustomerContact("jane@example.com", "Jane")
	events := order.GetDomainEvents()
	require.Len(t, events, 1)
	require.NoError(t, h.Handle(ctx, events[0]))

	require.Len(t, queue.msgs, 1)
	assert.Equal(t, "jane@example.com", queue.msgs[0].To)
	assert.Equal(t, "Order Confirmation - ORD-1700000000000-42", queue.msgs[0].Subject)
	assert.Contains(t, queue.msgs[0].HTML, "Jane")
	assert.Contains(t, queue.msgs[0].HTML, "$54.50")
	users.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestOrderHandler_OrderPlacedWithoutContactLoadsOwner(t *testing.T) {
	ctx := context.Background()
	owner, err := identity.NewUser("Jane", "jane@example.com", "secret1")
	require.NoError(t, err)

	users := new(mockUserRepository)
	users.On("FindByID", ctx, owner.ID).Return(owner, nil)
	queue := &recordingQueue{}
	h := NewOrderHandler(users, queue, Config{}, zap.NewNop())

	require.NoError(t, h.Handle(ctx, trade.NewOrderPlacedEvent(newOrder(t, owner.ID))))
	require.Len(t, queue.msgs, 1)
	assert.Equal(t, "jane@example.com", queue.msgs[0].To)
}

func TestOrderHandler_Cancelled(t *testing.T) {
	ctx := context.Background()
	owner, err := identity.NewUser("Jane", "jane@example.com", "secret1")
	require.NoError(t, err)

	users := new(mockUserRepository)
	users.On("FindByID", ctx, owner.ID).Return(owner, nil)
	queue := &recordingQueue{}
	h := NewOrderHandler(users, queue, Config{}, zap.NewNop())
	assert.Contains(t, h.EventTypes(), trade.EventTypeOrderCancelled)

	order := newOrder(t, owner.ID)
	order.ClearDomainEvents()
	require.NoError(t, order.Cancel())
	events := order.GetDomainEvents()
	require.Len(t, events, 1)
	require.NoError(t, h.Handle(ctx, events[0]))

	require.Len(t, queue.msgs, 1)
	assert.Equal(t, "jane@example.com", queue.msgs[0].To)
	assert.Equal(t, "Order ORD-1700000000000-42 - cancelled", queue.msgs[0].Subject)
	assert.Contains(t, queue.msgs[0].HTML, "has been cancelled")
}

func TestOrderHandler_StatusChanged(t *testing.T) {
	ctx := context.Background()
	owner, err := identity.NewUser("Jane", "jane@example.com", "secret1")
	require.NoError(t, err)

	users := new(mockUserRepository)
	users.On("FindByID", ctx, owner.ID).Return(owner, nil)
	queue := &recordingQueue{}
	h := NewOrderHandler(users, queue, Config{}, zap.NewNop())

	order := newOrder(t, owner.ID)
	require.NoError(t, order.SetStatus(trade.OrderStatusShipped))
	require.NoError(t, h.Handle(ctx, trade.NewOrderStatusChangedEvent(order, trade.OrderStatusProcessing)))

	require.Len(t, queue.msgs, 1)
	assert.Contains(t, queue.msgs[0].Subject, "shipped")
}

func TestOrderHandler_MissingOwnerIsSkipped(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.WarnLevel)
	users := new(mockUserRepository)
	ownerID := uuid.New()
	users.On("FindByID", ctx, ownerID).Return(nil, shared.ErrNotFound)
	queue := &recordingQueue{}
	h := NewOrderHandler(users, queue, Config{}, zap.New(core))

	require.NoError(t, h.Handle(ctx, trade.NewOrderPlacedEvent(newOrder(t, ownerID))))
	assert.Empty(t, queue.msgs)
	assert.Equal(t, 1, logs.FilterMessage("order email skipped, owner not loaded").Len())
}

func TestOrderHandler_UnexpectedEvent(t *testing.T) {
	h := NewOrderHandler(new(mockUserRepository), &recordingQueue{}, Config{}, zap.NewNop())
	user, _, err := identity.NewGuestUser(identity.GuestContact{FirstName: "Sam", Email: "sam@example.com"})
	require.NoError(t, err)
	err = h.Handle(context.Background(), user.GetDomainEvents()[0])
	assert.Error(t, err)
	assert.False(t, errors.Is(err, shared.ErrNotFound))
}
