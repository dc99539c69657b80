package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/catalog"
)

// ImageDoc is the stored form of a product image
type ImageDoc struct {
	PublicID string `json:"publicId"`
	URL      string `json:"url"`
}

// ReviewDoc is the stored form of a product review
type ReviewDoc struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user"`
	Name      string    `json:"name"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

// ProductModel is the persistence model for the Product aggregate root.
type ProductModel struct {
	AggregateModel
	Name         string           `gorm:"type:varchar(100);not null;index"`
	Description  string           `gorm:"type:text;not null"`
	Price        decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0;index"`
	OldPrice     *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Discount     int              `gorm:"not null;default:0"`
	Images       []ImageDoc       `gorm:"type:jsonb;serializer:json"`
	Category     catalog.Category `gorm:"type:varchar(40);not null;index"`
	Brand        string           `gorm:"type:varchar(100);not null;index"`
	Volume       string           `gorm:"type:varchar(40)"`
	Color        string           `gorm:"type:varchar(7);not null;default:'#2c3e50'"`
	Stock        int              `gorm:"not null;default:0;check:stock >= 0"`
	Ratings      float64          `gorm:"not null;default:0"`
	NumOfReviews int              `gorm:"not null;default:0"`
	Reviews      []ReviewDoc      `gorm:"type:jsonb;serializer:json"`
	Featured     bool             `gorm:"not null;default:false;index"`
	BestSeller   bool             `gorm:"not null;default:false;index"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product.
func (m *ProductModel) ToDomain() *catalog.Product {
	p := &catalog.Product{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Name:              m.Name,
		Description:       m.Description,
		Price:             m.Price,
		OldPrice:          m.OldPrice,
		Discount:          m.Discount,
		Category:          m.Category,
		Brand:             m.Brand,
		Volume:            m.Volume,
		Color:             m.Color,
		Stock:             m.Stock,
		Ratings:           m.Ratings,
		NumOfReviews:      m.NumOfReviews,
		Featured:          m.Featured,
		BestSeller:        m.BestSeller,
		Images:            make([]catalog.Image, len(m.Images)),
		Reviews:           make([]catalog.Review, len(m.Reviews)),
	}
	for i, img := range m.Images {
		p.Images[i] = catalog.Image{PublicID: img.PublicID, URL: img.URL}
	}
	for i, r := range m.Reviews {
		p.Reviews[i] = catalog.Review{
			ID:        r.ID,
			UserID:    r.UserID,
			Name:      r.Name,
			Rating:    r.Rating,
			Comment:   r.Comment,
			CreatedAt: r.CreatedAt,
		}
	}
	return p
}

// FromDomain populates the persistence model from a domain Product.
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.Name = p.Name
	m.Description = p.Description
	m.Price = p.Price
	m.OldPrice = p.OldPrice
	m.Discount = p.Discount
	m.Category = p.Category
	m.Brand = p.Brand
	m.Volume = p.Volume
	m.Color = p.Color
	m.Stock = p.Stock
	m.Ratings = p.Ratings
	m.NumOfReviews = p.NumOfReviews
	m.Featured = p.Featured
	m.BestSeller = p.BestSeller
	m.Images = make([]ImageDoc, len(p.Images))
	for i, img := range p.Images {
		m.Images[i] = ImageDoc{PublicID: img.PublicID, URL: img.URL}
	}
	m.Reviews = make([]ReviewDoc, len(p.Reviews))
	for i, r := range p.Reviews {
		m.Reviews[i] = ReviewDoc{
			ID:        r.ID,
			UserID:    r.UserID,
			Name:      r.Name,
			Rating:    r.Rating,
			Comment:   r.Comment,
			CreatedAt: r.CreatedAt,
		}
	}
}

// ProductModelFromDomain creates a new persistence model from a domain Product.
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}
