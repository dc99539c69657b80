package trade

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/trade"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// maxOrderNumberAttempts bounds regeneration after an order number collision
const maxOrderNumberAttempts = 3

// CheckoutConfig controls optional checkout behaviour
type CheckoutConfig struct {
	// EchoVerificationToken returns the setup token of a provisioned guest
	// account in the response. Enabled when outbound mail is not configured.
	EchoVerificationToken bool
}

// CheckoutService places orders
type CheckoutService struct {
	userRepo       identity.UserRepository
	productRepo    catalog.ProductRepository
	txScope        TransactionScope
	numbers        trade.OrderNumberGenerator
	eventPublisher shared.EventPublisher
	config         CheckoutConfig
	logger         *zap.Logger
}

// NewCheckoutService creates a new CheckoutService
func NewCheckoutService(
	userRepo identity.UserRepository,
	productRepo catalog.ProductRepository,
	txScope TransactionScope,
	numbers trade.OrderNumberGenerator,
	config CheckoutConfig,
	logger *zap.Logger,
) *CheckoutService {
	return &CheckoutService{
		userRepo:    userRepo,
		productRepo: productRepo,
		txScope:     txScope,
		numbers:     numbers,
		config:      config,
		logger:      logger,
	}
}

// SetEventPublisher sets the event publisher used after commit
func (s *CheckoutService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// PlaceOrder runs the checkout workflow: resolve the purchasing account,
// validate stock, then persist the order and decrement stock atomically.
func (s *CheckoutService) PlaceOrder(ctx context.Context, checkout trade.Checkout, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "checkout", "place_order")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrItemCount, len(req.Items))

	result, err := s.placeOrder(ctx, checkout, req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderID, result.Order.ID,
		telemetry.SpanAttrOrderNumber, result.Order.OrderNumber,
		telemetry.SpanAttrUserID, result.Order.User,
		telemetry.SpanAttrAmount, result.Order.TotalAmount,
	)
	return result, nil
}

func (s *CheckoutService) placeOrder(ctx context.Context, checkout trade.Checkout, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	if checkout == nil {
		return nil, shared.ErrUnauthorized
	}
	if len(req.Items) == 0 {
		return nil, shared.NewDomainError("NO_ITEMS", "No order items")
	}

	items := make([]trade.OrderItem, 0, len(req.Items))
	for _, in := range req.Items {
		item, err := trade.NewOrderItem(in.Product, in.Quantity, in.Price)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	contact, err := req.Shipping.Contact()
	if err != nil {
		return nil, shared.NewDomainError("INVALID_ADDRESS", err.Error())
	}
	if err := contact.Address.Validate(); err != nil {
		return nil, shared.NewDomainError("INVALID_ADDRESS", fmt.Sprintf("Invalid shipping address: %s", err.Error()))
	}

	products, err := s.validateStock(ctx, items)
	if err != nil {
		return nil, err
	}

	resolved, account, err := s.resolveIdentity(ctx, checkout)
	if err != nil {
		return nil, err
	}
	// The provisioned account is committed on its own, so its events go out
	// even if the order below fails.
	if account != nil {
		s.publish(ctx, account.GetDomainEvents())
		account.ClearDomainEvents()
	}

	order, err := trade.NewOrder(resolved.UserID, s.numbers.Next(), items, contact.Address,
		trade.PaymentInfo{ID: req.Payment.TransactionID(), Status: "completed", Method: req.Payment.Method},
		trade.Totals{Subtotal: req.Subtotal, Tax: req.Tax, ShippingCost: req.ShippingCost, Total: req.Total},
	)
	if err != nil {
		return nil, err
	}
	order.SetCustomerContact(resolved.Email, resolved.Name)

	if err := s.persist(ctx, order, products); err != nil {
		return nil, err
	}

	s.logger.Info("order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("user_id", resolved.UserID.String()),
		zap.Bool("provisioned", resolved.Provisioned),
		zap.Int("items", len(items)),
	)

	s.publish(ctx, order.GetDomainEvents())
	order.ClearDomainEvents()

	result := &PlaceOrderResult{Order: ToOrderResponse(order)}
	if resolved.Provisioned && s.config.EchoVerificationToken {
		result.Verification = resolved.VerificationToken
	}
	return result, nil
}

// validateStock checks every line item against current stock before anything
// is mutated. The authoritative guard is the conditional decrement in persist.
func (s *CheckoutService) validateStock(ctx context.Context, items []trade.OrderItem) (map[uuid.UUID]catalog.Product, error) {
	ids := make([]uuid.UUID, 0, len(items))
	required := make(map[uuid.UUID]int, len(items))
	for _, item := range items {
		if _, ok := required[item.ProductID]; !ok {
			ids = append(ids, item.ProductID)
		}
		required[item.ProductID] += item.Quantity
	}

	found, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	products := make(map[uuid.UUID]catalog.Product, len(found))
	for _, p := range found {
		products[p.ID] = p
	}

	for _, id := range ids {
		product, ok := products[id]
		if !ok {
			return nil, productNotFound(id)
		}
		if !product.HasStock(required[id]) {
			return nil, insufficientStock(product.Name)
		}
	}
	return products, nil
}

// resolveIdentity binds the checkout to an account. A guest email matching an
// existing account is bound without proof of ownership.
func (s *CheckoutService) resolveIdentity(ctx context.Context, checkout trade.Checkout) (trade.ResolvedIdentity, *identity.User, error) {
	switch c := checkout.(type) {
	case trade.AuthenticatedCheckout:
		user, err := s.userRepo.FindByID(ctx, c.UserID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return trade.ResolvedIdentity{}, nil, shared.ErrUnauthorized
			}
			return trade.ResolvedIdentity{}, nil, err
		}
		return trade.ResolvedIdentity{UserID: user.ID, Email: user.Email, Name: user.Name}, nil, nil

	case trade.GuestCheckout:
		if c.Contact.Email == "" {
			return trade.ResolvedIdentity{}, nil, shared.ErrUnauthorized
		}
		existing, err := s.userRepo.FindByEmail(ctx, identity.NormalizeEmail(c.Contact.Email))
		if err == nil {
			return trade.ResolvedIdentity{UserID: existing.ID, Email: existing.Email, Name: existing.Name}, nil, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return trade.ResolvedIdentity{}, nil, err
		}
		return s.provisionGuest(ctx, c.Contact)
	}

	return trade.ResolvedIdentity{}, nil, shared.ErrUnauthorized
}

func (s *CheckoutService) provisionGuest(ctx context.Context, contact trade.ShippingContact) (trade.ResolvedIdentity, *identity.User, error) {
	user, token, err := identity.NewGuestUser(identity.GuestContact{
		FirstName: contact.FirstName,
		LastName:  contact.LastName,
		Email:     contact.Email,
		Phone:     contact.Phone,
		Address:   contact.Address,
	})
	if err != nil {
		return trade.ResolvedIdentity{}, nil, err
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if !errors.Is(err, shared.ErrAlreadyExists) {
			return trade.ResolvedIdentity{}, nil, err
		}
		// A concurrent checkout created the account first
		existing, findErr := s.userRepo.FindByEmail(ctx, user.Email)
		if findErr != nil {
			return trade.ResolvedIdentity{}, nil, findErr
		}
		return trade.ResolvedIdentity{UserID: existing.ID, Email: existing.Email, Name: existing.Name}, nil, nil
	}

	s.logger.Info("guest account provisioned",
		zap.String("user_id", user.ID.String()),
	)

	return trade.ResolvedIdentity{
		UserID:            user.ID,
		Email:             user.Email,
		Name:              user.Name,
		Provisioned:       true,
		VerificationToken: token,
	}, user, nil
}

// persist inserts the order and decrements stock in one transaction,
// regenerating the order number on collision.
func (s *CheckoutService) persist(ctx context.Context, order *trade.Order, products map[uuid.UUID]catalog.Product) error {
	var err error
	for attempt := 1; attempt <= maxOrderNumberAttempts; attempt++ {
		err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			if err := repos.OrderRepo().Create(ctx, order); err != nil {
				return err
			}
			for _, item := range order.Items {
				if err := repos.ProductRepo().DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
					switch {
					case errors.Is(err, shared.ErrInsufficientStock):
						return insufficientStock(products[item.ProductID].Name)
					case errors.Is(err, shared.ErrNotFound):
						return productNotFound(item.ProductID)
					}
					return fmt.Errorf("decrement stock for %s: %w", item.ProductID, err)
				}
			}
			return nil
		})
		if !errors.Is(err, trade.ErrDuplicateOrderNumber) {
			return err
		}

		s.logger.Warn("order number collision, regenerating",
			zap.String("order_number", order.OrderNumber),
			zap.Int("attempt", attempt),
		)
		order.Renumber(s.numbers.Next())
	}
	return err
}

func (s *CheckoutService) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Error("failed to publish checkout events", zap.Error(err))
	}
}

func insufficientStock(name string) error {
	return shared.NewDomainError("INSUFFICIENT_STOCK", fmt.Sprintf("Insufficient stock for %s", name))
}

func productNotFound(id uuid.UUID) error {
	return shared.NewDomainError("PRODUCT_NOT_FOUND", fmt.Sprintf("Product not found: %s", id))
}
