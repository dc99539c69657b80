package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/catalog"
)

// ProductListQuery represents the storefront listing query string
type ProductListQuery struct {
	Page     int      `form:"page"`
	Limit    int      `form:"limit"`
	Category string   `form:"category"`
	Brand    string   `form:"brand"`
	MinPrice *float64 `form:"minPrice" binding:"omitempty,min=0"`
	MaxPrice *float64 `form:"maxPrice" binding:"omitempty,min=0"`
	Sort     string   `form:"sort"`
}

// AdminProductQuery represents the admin product listing query string
type AdminProductQuery struct {
	Page  int    `form:"page"`
	Limit int    `form:"limit"`
	Q     string `form:"q"`
}

// ImageInput is an already-uploaded image reference
type ImageInput struct {
	PublicID string `json:"publicId" binding:"required"`
	URL      string `json:"url" binding:"required,url"`
}

// CreateProductRequest represents a request to create a new product
type CreateProductRequest struct {
	Name        string           `json:"name" binding:"required,max=100"`
	Description string           `json:"description" binding:"required,max=2000"`
	Price       decimal.Decimal  `json:"price"`
	OldPrice    *decimal.Decimal `json:"oldPrice"`
	Discount    int              `json:"discount" binding:"min=0,max=100"`
	Category    string           `json:"category" binding:"required"`
	Brand       string           `json:"brand" binding:"required"`
	Volume      string           `json:"volume"`
	Color       string           `json:"color"`
	Stock       int              `json:"stock" binding:"min=0"`
	Images      []ImageInput     `json:"images" binding:"omitempty,max=5,dive"`
	Featured    bool             `json:"featured"`
	BestSeller  bool             `json:"bestSeller"`
}

// UpdateProductRequest represents a partial product update. Images are
// appended to the existing ones.
type UpdateProductRequest struct {
	Name        *string          `json:"name" binding:"omitempty,max=100"`
	Description *string          `json:"description" binding:"omitempty,max=2000"`
	Price       *decimal.Decimal `json:"price"`
	OldPrice    *decimal.Decimal `json:"oldPrice"`
	Discount    *int             `json:"discount" binding:"omitempty,min=0,max=100"`
	Category    *string          `json:"category"`
	Brand       *string          `json:"brand"`
	Volume      *string          `json:"volume"`
	Color       *string          `json:"color"`
	Stock       *int             `json:"stock" binding:"omitempty,min=0"`
	Images      []ImageInput     `json:"images" binding:"omitempty,max=5,dive"`
	Featured    *bool            `json:"featured"`
	BestSeller  *bool            `json:"bestSeller"`
}

// ReviewRequest is a customer review submission
type ReviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"required,max=1000"`
}

// Reviewer identifies the author of a review
type Reviewer struct {
	UserID uuid.UUID
	Name   string
}

// ImageResponse represents a product image
type ImageResponse struct {
	PublicID string `json:"publicId"`
	URL      string `json:"url"`
}

// ReviewResponse represents a review in API responses
type ReviewResponse struct {
	ID        uuid.UUID `json:"id"`
	User      uuid.UUID `json:"user"`
	Name      string    `json:"name"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

// ProductResponse represents a product in API responses
type ProductResponse struct {
	ID                 uuid.UUID        `json:"id"`
	Name               string           `json:"name"`
	Description        string           `json:"description"`
	Price              float64          `json:"price"`
	OldPrice           *float64         `json:"oldPrice,omitempty"`
	Discount           int              `json:"discount"`
	DiscountPercentage int              `json:"discountPercentage"`
	Images             []ImageResponse  `json:"images"`
	Category           string           `json:"category"`
	Brand              string           `json:"brand"`
	Volume             string           `json:"volume"`
	Color              string           `json:"color"`
	Stock              int              `json:"stock"`
	Ratings            float64          `json:"ratings"`
	NumOfReviews       int              `json:"numOfReviews"`
	Reviews            []ReviewResponse `json:"reviews"`
	Featured           bool             `json:"featured"`
	BestSeller         bool             `json:"bestSeller"`
	CreatedAt          time.Time        `json:"createdAt"`
	UpdatedAt          time.Time        `json:"updatedAt"`
}

// Pagination describes a page of a product listing
type Pagination struct {
	CurrentPage   int   `json:"currentPage"`
	TotalPages    int   `json:"totalPages"`
	TotalProducts int64 `json:"totalProducts"`
	HasNext       bool  `json:"hasNext"`
	HasPrev       bool  `json:"hasPrev"`
}

// ProductListResult is a page of products with its pagination block
type ProductListResult struct {
	Products   []ProductResponse
	Pagination Pagination
}

// ToProductResponse converts a domain Product to ProductResponse.
// Reviews are ordered newest first.
func ToProductResponse(p *catalog.Product) ProductResponse {
	images := make([]ImageResponse, len(p.Images))
	for i, img := range p.Images {
		images[i] = ImageResponse{PublicID: img.PublicID, URL: img.URL}
	}

	sorted := p.ReviewsNewestFirst()
	reviews := make([]ReviewResponse, len(sorted))
	for i, r := range sorted {
		reviews[i] = ReviewResponse{
			ID:        r.ID,
			User:      r.UserID,
			Name:      r.Name,
			Rating:    r.Rating,
			Comment:   r.Comment,
			CreatedAt: r.CreatedAt,
		}
	}

	resp := ProductResponse{
		ID:                 p.ID,
		Name:               p.Name,
		Description:        p.Description,
		Price:              p.Price.InexactFloat64(),
		Discount:           p.Discount,
		DiscountPercentage: p.DiscountPercentage(),
		Images:             images,
		Category:           p.Category.String(),
		Brand:              p.Brand,
		Volume:             p.Volume,
		Color:              p.Color,
		Stock:              p.Stock,
		Ratings:            p.Ratings,
		NumOfReviews:       p.NumOfReviews,
		Reviews:            reviews,
		Featured:           p.Featured,
		BestSeller:         p.BestSeller,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
	if p.OldPrice != nil {
		old := p.OldPrice.InexactFloat64()
		resp.OldPrice = &old
	}
	return resp
}

// ToProductResponses converts a slice of products
func ToProductResponses(products []catalog.Product) []ProductResponse {
	out := make([]ProductResponse, len(products))
	for i := range products {
		out[i] = ToProductResponse(&products[i])
	}
	return out
}

func toImages(in []ImageInput) []catalog.Image {
	if len(in) == 0 {
		return nil
	}
	out := make([]catalog.Image, len(in))
	for i, img := range in {
		out[i] = catalog.Image{PublicID: img.PublicID, URL: img.URL}
	}
	return out
}

func newPagination(page, limit int, total int64) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{
		CurrentPage:   page,
		TotalPages:    totalPages,
		TotalProducts: total,
		HasNext:       page < totalPages,
		HasPrev:       page > 1,
	}
}
