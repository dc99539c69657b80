package trade

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/storefront/backend/internal/domain/trade"
)

// ==================== Checkout DTOs ====================

// PlaceOrderRequest is the checkout submission
type PlaceOrderRequest struct {
	Items        []OrderItemInput `json:"items" binding:"dive"`
	Shipping     ShippingInput    `json:"shipping"`
	Payment      PaymentInput     `json:"payment"`
	Subtotal     decimal.Decimal  `json:"subtotal"`
	Tax          decimal.Decimal  `json:"tax"`
	ShippingCost decimal.Decimal  `json:"shippingCost"`
	Total        decimal.Decimal  `json:"total"`
	Guest        bool             `json:"guest"`
}

// OrderItemInput is a line item in the checkout submission
type OrderItemInput struct {
	Product  uuid.UUID       `json:"product" binding:"required"`
	Quantity int             `json:"quantity" binding:"required,min=1"`
	Price    decimal.Decimal `json:"price"`
}

// ShippingInput is the shipping contact block
type ShippingInput struct {
	FirstName string                 `json:"firstName"`
	LastName  string                 `json:"lastName"`
	Email     string                 `json:"email"`
	Phone     string                 `json:"phone"`
	Address   valueobject.AddressDTO `json:"address"`
}

// PaymentInput is the opaque payment descriptor
type PaymentInput struct {
	Method  string         `json:"method"`
	Details map[string]any `json:"details"`
}

// TransactionID returns details.transactionId, or "manual" when absent
func (p PaymentInput) TransactionID() string {
	if id, ok := p.Details["transactionId"].(string); ok && strings.TrimSpace(id) != "" {
		return id
	}
	return "manual"
}

// Contact converts the shipping block into a domain contact
func (s ShippingInput) Contact() (trade.ShippingContact, error) {
	addr, err := s.Address.ToAddress()
	if err != nil {
		return trade.ShippingContact{}, err
	}
	return trade.ShippingContact{
		FirstName: strings.TrimSpace(s.FirstName),
		LastName:  strings.TrimSpace(s.LastName),
		Email:     strings.TrimSpace(s.Email),
		Phone:     strings.TrimSpace(s.Phone),
		Address:   addr,
	}, nil
}

// PlaceOrderResult is the outcome of a successful checkout
type PlaceOrderResult struct {
	Order OrderResponse
	// Verification is the setup token of an account provisioned by this checkout.
	// Only populated when outbound mail is disabled.
	Verification string
}

// ==================== Order DTOs ====================

// OrderListFilter represents filter options for the admin order list
type OrderListFilter struct {
	Status   string `form:"status"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// CustomerSummary identifies the owner of an order
type CustomerSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// OrderItemResponse represents a line item in API responses
type OrderItemResponse struct {
	Product  uuid.UUID `json:"product"`
	Quantity int       `json:"quantity"`
	Price    float64   `json:"price"`
}

// PaymentInfoResponse represents the payment descriptor in API responses
type PaymentInfoResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Method string `json:"method,omitempty"`
}

// StatusChangeResponse is one status history entry
type StatusChangeResponse struct {
	Status string    `json:"status"`
	Date   time.Time `json:"date"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID              uuid.UUID              `json:"id"`
	OrderNumber     string                 `json:"orderNumber"`
	User            uuid.UUID              `json:"user"`
	Customer        *CustomerSummary       `json:"customer,omitempty"`
	Items           []OrderItemResponse    `json:"items"`
	ShippingAddress valueobject.AddressDTO `json:"shippingAddress"`
	PaymentInfo     PaymentInfoResponse    `json:"paymentInfo"`
	PaidAt          time.Time              `json:"paidAt"`
	Subtotal        float64                `json:"subtotal"`
	Tax             float64                `json:"tax"`
	ShippingCost    float64                `json:"shippingCost"`
	TotalAmount     float64                `json:"totalAmount"`
	Status          string                 `json:"status"`
	StatusHistory   []StatusChangeResponse `json:"statusHistory"`
	DeliveredAt     *time.Time             `json:"deliveredAt,omitempty"`
	CreatedAt       time.Time              `json:"createdAt"`
	UpdatedAt       time.Time              `json:"updatedAt"`
}

// ToOrderResponse converts a domain Order to OrderResponse
func ToOrderResponse(order *trade.Order) OrderResponse {
	items := make([]OrderItemResponse, len(order.Items))
	for i, item := range order.Items {
		items[i] = OrderItemResponse{
			Product:  item.ProductID,
			Quantity: item.Quantity,
			Price:    item.Price.InexactFloat64(),
		}
	}

	history := make([]StatusChangeResponse, len(order.StatusHistory))
	for i, h := range order.StatusHistory {
		history[i] = StatusChangeResponse{Status: string(h.Status), Date: h.Date}
	}

	return OrderResponse{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		User:            order.UserID,
		Items:           items,
		ShippingAddress: order.ShippingAddress.ToDTO(),
		PaymentInfo: PaymentInfoResponse{
			ID:     order.Payment.ID,
			Status: order.Payment.Status,
			Method: order.Payment.Method,
		},
		PaidAt:        order.PaidAt,
		Subtotal:      order.Subtotal.InexactFloat64(),
		Tax:           order.Tax.InexactFloat64(),
		ShippingCost:  order.ShippingCost.InexactFloat64(),
		TotalAmount:   order.TotalAmount.InexactFloat64(),
		Status:        string(order.Status),
		StatusHistory: history,
		DeliveredAt:   order.DeliveredAt,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
	}
}

// ToOrderResponseWithCustomer converts an order and attaches its owner summary
func ToOrderResponseWithCustomer(order *trade.Order, user *identity.User) OrderResponse {
	resp := ToOrderResponse(order)
	if user != nil {
		resp.Customer = &CustomerSummary{ID: user.ID, Name: user.Name, Email: user.Email}
	}
	return resp
}
