package trade

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/trade"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Requester identifies the caller of an order query
type Requester struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// OrderService handles order queries, cancellation and admin status updates
type OrderService struct {
	orderRepo      trade.OrderRepository
	userRepo       identity.UserRepository
	txScope        TransactionScope
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewOrderService creates a new OrderService
func NewOrderService(
	orderRepo trade.OrderRepository,
	userRepo identity.UserRepository,
	txScope TransactionScope,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		userRepo:  userRepo,
		txScope:   txScope,
		logger:    logger,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *OrderService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// ListMine returns the caller's orders, newest first
func (s *OrderService) ListMine(ctx context.Context, userID uuid.UUID) ([]OrderResponse, error) {
	orders, err := s.orderRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	responses := make([]OrderResponse, len(orders))
	for i, o := range orders {
		responses[i] = ToOrderResponse(o)
	}
	return responses, nil
}

// Get returns a single order. Callers other than the owner or an admin are rejected.
func (s *OrderService) Get(ctx context.Context, requester Requester, orderID uuid.UUID) (*OrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsOwnedBy(requester.UserID) && !requester.IsAdmin {
		return nil, shared.NewDomainError("UNAUTHORIZED", "Not authorized to view this order")
	}

	user, err := s.userRepo.FindByID(ctx, order.UserID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	resp := ToOrderResponseWithCustomer(order, user)
	return &resp, nil
}

// Cancel cancels a processing order owned by the caller and restores stock.
// A product that no longer exists is logged and skipped.
func (s *OrderService) Cancel(ctx context.Context, userID, orderID uuid.UUID) (*OrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", "cancel")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderID, orderID,
		telemetry.SpanAttrUserID, userID,
	)

	var order *trade.Order
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		order, err = repos.OrderRepo().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if !order.IsOwnedBy(userID) {
			return shared.NewDomainError("UNAUTHORIZED", "Not authorized to cancel this order")
		}
		if err := order.Cancel(); err != nil {
			return err
		}
		if err := repos.OrderRepo().Update(ctx, order); err != nil {
			return err
		}

		for _, item := range order.Items {
			err := repos.ProductRepo().IncrementStock(ctx, item.ProductID, item.Quantity)
			if errors.Is(err, shared.ErrNotFound) {
				s.logger.Warn("product missing during restock, skipping",
					zap.String("order_id", order.ID.String()),
					zap.String("product_id", item.ProductID.String()),
					zap.Int("quantity", item.Quantity),
				)
				continue
			}
			if err != nil {
				return fmt.Errorf("restock %s: %w", item.ProductID, err)
			}
			telemetry.AddEvent(span, "restocked",
				"product_id", item.ProductID,
				"quantity", item.Quantity,
			)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("order cancelled",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
	)
	s.publish(ctx, order)

	resp := ToOrderResponse(order)
	return &resp, nil
}

// AdminList returns all orders, newest first, with owner summaries
func (s *OrderService) AdminList(ctx context.Context, filter OrderListFilter) ([]OrderResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.PageSize > 100 {
		filter.PageSize = 100
	}

	domainFilter := trade.OrderFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			OrderBy:  "created_at",
			OrderDir: "desc",
		},
	}
	if filter.Status != "" {
		status, err := trade.ParseOrderStatus(filter.Status)
		if err != nil {
			return nil, 0, err
		}
		domainFilter.Status = &status
	}

	orders, total, err := s.orderRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	owners, err := s.owners(ctx, orders)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]OrderResponse, len(orders))
	for i, o := range orders {
		responses[i] = ToOrderResponseWithCustomer(o, owners[o.UserID])
	}
	return responses, total, nil
}

// AdminUpdateStatus sets any valid status on an order
func (s *OrderService) AdminUpdateStatus(ctx context.Context, orderID uuid.UUID, rawStatus string) (*OrderResponse, error) {
	status, err := trade.ParseOrderStatus(rawStatus)
	if err != nil {
		return nil, err
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := order.SetStatus(status); err != nil {
		return nil, err
	}
	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}

	s.logger.Info("order status updated",
		zap.String("order_id", order.ID.String()),
		zap.String("status", string(status)),
	)
	s.publish(ctx, order)

	resp := ToOrderResponse(order)
	return &resp, nil
}

func (s *OrderService) owners(ctx context.Context, orders []*trade.Order) (map[uuid.UUID]*identity.User, error) {
	seen := make(map[uuid.UUID]struct{}, len(orders))
	ids := make([]uuid.UUID, 0, len(orders))
	for _, o := range orders {
		if _, ok := seen[o.UserID]; ok {
			continue
		}
		seen[o.UserID] = struct{}{}
		ids = append(ids, o.UserID)
	}
	if len(ids) == 0 {
		return map[uuid.UUID]*identity.User{}, nil
	}

	users, err := s.userRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*identity.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	return byID, nil
}

func (s *OrderService) publish(ctx context.Context, order *trade.Order) {
	events := order.GetDomainEvents()
	order.ClearDomainEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Error("failed to publish order events", zap.Error(err))
	}
}
