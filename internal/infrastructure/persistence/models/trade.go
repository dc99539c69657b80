package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/storefront/backend/internal/domain/trade"
)

// StatusChangeDoc is the stored form of a status history entry
type StatusChangeDoc struct {
	Status trade.OrderStatus `json:"status"`
	Date   time.Time         `json:"date"`
}

// OrderModel is the persistence model for the Order aggregate root.
type OrderModel struct {
	AggregateModel
	UserID          uuid.UUID           `gorm:"type:uuid;not null;index"`
	OrderNumber     string              `gorm:"type:varchar(40);not null;uniqueIndex"`
	Items           []OrderItemModel    `gorm:"foreignKey:OrderID;references:ID"`
	ShippingAddress valueobject.Address `gorm:"type:jsonb;not null"`
	PaymentID       string              `gorm:"type:varchar(100)"`
	PaymentStatus   string              `gorm:"type:varchar(40)"`
	PaymentMethod   string              `gorm:"type:varchar(40)"`
	PaidAt          time.Time           `gorm:"not null"`
	Subtotal        decimal.Decimal     `gorm:"type:decimal(12,2);not null;default:0"`
	Tax             decimal.Decimal     `gorm:"type:decimal(12,2);not null;default:0"`
	ShippingCost    decimal.Decimal     `gorm:"type:decimal(12,2);not null;default:0"`
	TotalAmount     decimal.Decimal     `gorm:"type:decimal(12,2);not null;default:0"`
	Status          trade.OrderStatus   `gorm:"type:varchar(20);not null;default:'processing';index"`
	StatusHistory   []StatusChangeDoc   `gorm:"type:jsonb;serializer:json"`
	DeliveredAt     *time.Time
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order.
func (m *OrderModel) ToDomain() *trade.Order {
	o := &trade.Order{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		UserID:            m.UserID,
		OrderNumber:       m.OrderNumber,
		ShippingAddress:   m.ShippingAddress,
		Payment: trade.PaymentInfo{
			ID:     m.PaymentID,
			Status: m.PaymentStatus,
			Method: m.PaymentMethod,
		},
		PaidAt:        m.PaidAt,
		Subtotal:      m.Subtotal,
		Tax:           m.Tax,
		ShippingCost:  m.ShippingCost,
		TotalAmount:   m.TotalAmount,
		Status:        m.Status,
		DeliveredAt:   m.DeliveredAt,
		Items:         make([]trade.OrderItem, len(m.Items)),
		StatusHistory: make([]trade.StatusChange, len(m.StatusHistory)),
	}
	for i, item := range m.Items {
		o.Items[i] = item.ToDomain()
	}
	for i, h := range m.StatusHistory {
		o.StatusHistory[i] = trade.StatusChange{Status: h.Status, Date: h.Date}
	}
	return o
}

// FromDomain populates the persistence model from a domain Order.
func (m *OrderModel) FromDomain(o *trade.Order) {
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	m.UserID = o.UserID
	m.OrderNumber = o.OrderNumber
	m.ShippingAddress = o.ShippingAddress
	m.PaymentID = o.Payment.ID
	m.PaymentStatus = o.Payment.Status
	m.PaymentMethod = o.Payment.Method
	m.PaidAt = o.PaidAt
	m.Subtotal = o.Subtotal
	m.Tax = o.Tax
	m.ShippingCost = o.ShippingCost
	m.TotalAmount = o.TotalAmount
	m.Status = o.Status
	m.DeliveredAt = o.DeliveredAt
	m.StatusHistory = make([]StatusChangeDoc, len(o.StatusHistory))
	for i, h := range o.StatusHistory {
		m.StatusHistory[i] = StatusChangeDoc{Status: h.Status, Date: h.Date}
	}
	m.Items = make([]OrderItemModel, len(o.Items))
	for i, item := range o.Items {
		m.Items[i] = OrderItemModel{
			ID:        uuid.New(),
			OrderID:   o.ID,
			Position:  i,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		}
	}
}

// OrderModelFromDomain creates a new persistence model from a domain Order.
func OrderModelFromDomain(o *trade.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}

// OrderItemModel is the persistence model for an order line item.
type OrderItemModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position  int             `gorm:"not null;default:0"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantity  int             `gorm:"not null"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the item model to a domain OrderItem
func (m OrderItemModel) ToDomain() trade.OrderItem {
	return trade.OrderItem{
		ProductID: m.ProductID,
		Quantity:  m.Quantity,
		Price:     m.Price,
	}
}
