package trade

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// OrderStatus represents the status of an order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is possible
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled || s == OrderStatusRefunded
}

// CanTransitionTo checks if the status can transition to the target status.
// Refunds are possible from any non-terminal status.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	if target == OrderStatusRefunded {
		return !s.IsTerminal()
	}
	switch s {
	case OrderStatusPending:
		return target == OrderStatusProcessing || target == OrderStatusCancelled
	case OrderStatusProcessing:
		return target == OrderStatusShipped || target == OrderStatusCancelled
	case OrderStatusShipped:
		return target == OrderStatusDelivered
	}
	return false
}

// ParseOrderStatus validates a raw status string
func ParseOrderStatus(raw string) (OrderStatus, error) {
	s := OrderStatus(raw)
	if !s.IsValid() {
		return "", shared.NewDomainError("INVALID_STATUS", "Invalid order status")
	}
	return s, nil
}

// OrderItem is a line item. Price is the unit price captured at checkout.
type OrderItem struct {
	ProductID uuid.UUID
	Quantity  int
	Price     decimal.Decimal
}

// NewOrderItem creates a validated line item
func NewOrderItem(productID uuid.UUID, quantity int, price decimal.Decimal) (OrderItem, error) {
	if productID == uuid.Nil {
		return OrderItem{}, shared.NewDomainError("INVALID_PRODUCT", "Product is required")
	}
	if quantity < 1 {
		return OrderItem{}, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be at least 1")
	}
	if price.IsNegative() {
		return OrderItem{}, shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}
	return OrderItem{ProductID: productID, Quantity: quantity, Price: price}, nil
}

// StatusChange is one entry of the append-only status history
type StatusChange struct {
	Status OrderStatus
	Date   time.Time
}

// PaymentInfo is the opaque payment descriptor recorded with an order.
// It is stored as given and never verified against a gateway.
type PaymentInfo struct {
	ID     string
	Status string
	Method string
}

// Totals are the client-computed amounts persisted with the order
type Totals struct {
	Subtotal     decimal.Decimal
	Tax          decimal.Decimal
	ShippingCost decimal.Decimal
	Total        decimal.Decimal
}

// Order is the aggregate root for a placed order
type Order struct {
	shared.BaseAggregateRoot
	UserID          uuid.UUID
	OrderNumber     string
	Items           []OrderItem
	ShippingAddress valueobject.Address
	Payment         PaymentInfo
	PaidAt          time.Time
	Subtotal        decimal.Decimal
	Tax             decimal.Decimal
	ShippingCost    decimal.Decimal
	TotalAmount     decimal.Decimal
	Status          OrderStatus
	StatusHistory   []StatusChange
	DeliveredAt     *time.Time
}

// NewOrder creates an order in processing status with a seeded status history
func NewOrder(userID uuid.UUID, orderNumber string, items []OrderItem, shipping valueobject.Address, payment PaymentInfo, totals Totals) (*Order, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "Order owner is required")
	}
	if orderNumber == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number is required")
	}
	if len(items) == 0 {
		return nil, shared.NewDomainError("NO_ITEMS", "No order items")
	}
	if err := shipping.Validate(); err != nil {
		return nil, shared.NewDomainError("INVALID_ADDRESS", fmt.Sprintf("Invalid shipping address: %s", err.Error()))
	}

	now := time.Now()
	order := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		UserID:            userID,
		OrderNumber:       orderNumber,
		Items:             append([]OrderItem(nil), items...),
		ShippingAddress:   shipping,
		Payment:           payment,
		PaidAt:            now,
		Subtotal:          totals.Subtotal,
		Tax:               totals.Tax,
		ShippingCost:      totals.ShippingCost,
		TotalAmount:       totals.Total,
		Status:            OrderStatusProcessing,
		StatusHistory:     []StatusChange{{Status: OrderStatusProcessing, Date: now}},
	}

	order.AddDomainEvent(NewOrderPlacedEvent(order))

	return order, nil
}

// Renumber replaces the order number before the order is first persisted
func (o *Order) Renumber(orderNumber string) {
	o.OrderNumber = orderNumber
	for _, e := range o.GetDomainEvents() {
		if placed, ok := e.(*OrderPlacedEvent); ok {
			placed.OrderNumber = orderNumber
		}
	}
}

// SetCustomerContact records who receives the confirmation for the pending
// OrderPlaced event
func (o *Order) SetCustomerContact(email, name string) {
	for _, e := range o.GetDomainEvents() {
		if placed, ok := e.(*OrderPlacedEvent); ok {
			placed.CustomerEmail = email
			placed.CustomerName = name
		}
	}
}

// Cancel is the customer-initiated cancellation; it is only allowed while processing
func (o *Order) Cancel() error {
	if o.Status != OrderStatusProcessing {
		return shared.NewDomainError("INVALID_STATE", "Order cannot be cancelled at this stage")
	}

	o.recordStatus(OrderStatusCancelled)
	o.AddDomainEvent(NewOrderCancelledEvent(o))

	return nil
}

// SetStatus is the administrative status change. Only enum membership is
// enforced; any transition is accepted and recorded in the history.
func (o *Order) SetStatus(status OrderStatus) error {
	if !status.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", "Invalid order status")
	}

	previous := o.Status
	o.recordStatus(status)
	if status == OrderStatusDelivered {
		delivered := o.UpdatedAt
		o.DeliveredAt = &delivered
	}
	o.AddDomainEvent(NewOrderStatusChangedEvent(o, previous))

	return nil
}

// IsOwnedBy reports whether the order belongs to the given account
func (o *Order) IsOwnedBy(userID uuid.UUID) bool {
	return o.UserID == userID
}

// IsCancelled checks if the order is cancelled
func (o *Order) IsCancelled() bool {
	return o.Status == OrderStatusCancelled
}

// ItemCount returns the number of line items
func (o *Order) ItemCount() int {
	return len(o.Items)
}

// ProductIDs returns the distinct products referenced by the order
func (o *Order) ProductIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(o.Items))
	ids := make([]uuid.UUID, 0, len(o.Items))
	for _, item := range o.Items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}

func (o *Order) recordStatus(status OrderStatus) {
	o.Status = status
	o.IncrementVersion()
	o.StatusHistory = append(o.StatusHistory, StatusChange{Status: status, Date: o.UpdatedAt})
}
