package catalog

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
)

// Category is the closed set of product categories
type Category string

const (
	CategoryMen            Category = "Men"
	CategoryWomen          Category = "Women"
	CategoryUnisex         Category = "Unisex"
	CategoryLimitedEdition Category = "Limited Edition"
	CategorySeasonal       Category = "Seasonal"
)

// DefaultColor is used when a product is created without a color
const DefaultColor = "#2c3e50"

const (
	maxNameLength        = 100
	maxDescriptionLength = 2000
	maxRating            = 5
	minRating            = 1
)

var hexColorPattern = regexp.MustCompile(`^#([0-9A-Fa-f]{3}){1,2}$`)

// AllCategories returns every valid category in display order
func AllCategories() []Category {
	return []Category{CategoryMen, CategoryWomen, CategoryUnisex, CategoryLimitedEdition, CategorySeasonal}
}

// DefaultBrands is shown by the storefront until the catalog carries at least two brands.
var DefaultBrands = []string{"Vampire Blood", "Fantasy", "Good Girl", "Creed aventus", "Gucci flora"}

// IsValid checks if the category is one of the known values
func (c Category) IsValid() bool {
	for _, known := range AllCategories() {
		if c == known {
			return true
		}
	}
	return false
}

// String returns the string representation
func (c Category) String() string {
	return string(c)
}

// Image references a stored product image
type Image struct {
	PublicID string
	URL      string
}

// Review is a customer review embedded in a product
type Review struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Name      string
	Rating    int
	Comment   string
	CreatedAt time.Time
}

// Product is the catalog aggregate root
type Product struct {
	shared.BaseAggregateRoot
	Name         string
	Description  string
	Price        decimal.Decimal
	OldPrice     *decimal.Decimal
	Discount     int
	Images       []Image
	Category     Category
	Brand        string
	Volume       string
	Color        string
	Stock        int
	Ratings      float64
	NumOfReviews int
	Reviews      []Review
	Featured     bool
	BestSeller   bool
}

// ProductInput carries the fields needed to create a product
type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	OldPrice    *decimal.Decimal
	Discount    int
	Category    Category
	Brand       string
	Volume      string
	Color       string
	Stock       int
	Images      []Image
	Featured    bool
	BestSeller  bool
}

// NewProduct creates a new product after validating the input
func NewProduct(in ProductInput) (*Product, error) {
	p := &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              strings.TrimSpace(in.Name),
		Description:       in.Description,
		Price:             in.Price,
		OldPrice:          in.OldPrice,
		Discount:          in.Discount,
		Category:          in.Category,
		Brand:             strings.TrimSpace(in.Brand),
		Volume:            strings.TrimSpace(in.Volume),
		Color:             strings.TrimSpace(in.Color),
		Stock:             in.Stock,
		Images:            append([]Image(nil), in.Images...),
		Featured:          in.Featured,
		BestSeller:        in.BestSeller,
	}
	if p.Color == "" {
		p.Color = DefaultColor
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// ProductUpdate is a partial update; nil fields are left untouched
type ProductUpdate struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	OldPrice    *decimal.Decimal
	Discount    *int
	Category    *Category
	Brand       *string
	Volume      *string
	Color       *string
	Stock       *int
	Featured    *bool
	BestSeller  *bool
	// NewImages are appended to the existing images
	NewImages   []Image
}

// Apply updates the product with the non-nil fields and re-validates it.
// On failure the product is left unchanged.
func (p *Product) Apply(u ProductUpdate) error {
	next := *p
	if u.Name != nil {
		next.Name = strings.TrimSpace(*u.Name)
	}
	if u.Description != nil {
		next.Description = *u.Description
	}
	if u.Price != nil {
		next.Price = *u.Price
	}
	if u.OldPrice != nil {
		old := *u.OldPrice
		next.OldPrice = &old
	}
	if u.Discount != nil {
		next.Discount = *u.Discount
	}
	if u.Category != nil {
		next.Category = *u.Category
	}
	if u.Brand != nil {
		next.Brand = strings.TrimSpace(*u.Brand)
	}
	if u.Volume != nil {
		next.Volume = strings.TrimSpace(*u.Volume)
	}
	if u.Color != nil {
		next.Color = strings.TrimSpace(*u.Color)
	}
	if u.Stock != nil {
		next.Stock = *u.Stock
	}
	if u.Featured != nil {
		next.Featured = *u.Featured
	}
	if u.BestSeller != nil {
		next.BestSeller = *u.BestSeller
	}
	if len(u.NewImages) > 0 {
		next.Images = append(append([]Image(nil), p.Images...), u.NewImages...)
	}
	if err := next.validate(); err != nil {
		return err
	}
	*p = next
	p.IncrementVersion()
	return nil
}

// AddReview appends a review and recomputes the aggregate rating.
// Any authenticated user may review; purchases are not checked.
func (p *Product) AddReview(userID uuid.UUID, name string, rating int, comment string) (*Review, error) {
	if rating < minRating || rating > maxRating {
		return nil, shared.NewDomainError("INVALID_RATING", fmt.Sprintf("Rating must be between %d and %d", minRating, maxRating))
	}
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil, shared.NewDomainError("INVALID_COMMENT", "Review comment is required")
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Reviewer name is required")
	}

	review := Review{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      strings.TrimSpace(name),
		Rating:    rating,
		Comment:   comment,
		CreatedAt: time.Now(),
	}
	p.Reviews = append(p.Reviews, review)
	p.recalculateRatings()
	p.IncrementVersion()
	return &review, nil
}

// ReviewsNewestFirst returns a copy of the reviews sorted by creation time, newest first
func (p *Product) ReviewsNewestFirst() []Review {
	out := append([]Review(nil), p.Reviews...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// DiscountPercentage derives the markdown from OldPrice, rounded to a whole percent
func (p *Product) DiscountPercentage() int {
	if p.OldPrice == nil || !p.OldPrice.GreaterThan(p.Price) {
		return 0
	}
	pct := p.OldPrice.Sub(p.Price).Div(*p.OldPrice).Mul(decimal.NewFromInt(100)).Round(0)
	return int(pct.IntPart())
}

// HasStock reports whether qty units can be taken from current stock
func (p *Product) HasStock(qty int) bool {
	return qty > 0 && p.Stock >= qty
}

// DecreaseStock removes qty units from stock
func (p *Product) DecreaseStock(qty int) error {
	if qty <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if p.Stock < qty {
		return shared.NewDomainError("INSUFFICIENT_STOCK", fmt.Sprintf("Insufficient stock for %s", p.Name))
	}
	p.Stock -= qty
	p.IncrementVersion()
	return nil
}

// IncreaseStock returns qty units to stock
func (p *Product) IncreaseStock(qty int) error {
	if qty <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	p.Stock += qty
	p.IncrementVersion()
	return nil
}

func (p *Product) recalculateRatings() {
	p.NumOfReviews = len(p.Reviews)
	if p.NumOfReviews == 0 {
		p.Ratings = 0
		return
	}
	total := 0
	for _, r := range p.Reviews {
		total += r.Rating
	}
	avg := decimal.NewFromInt(int64(total)).Div(decimal.NewFromInt(int64(p.NumOfReviews))).Round(1)
	p.Ratings = avg.InexactFloat64()
}

func (p *Product) validate() error {
	if p.Name == "" {
		return shared.NewDomainError("INVALID_NAME", "Product name is required")
	}
	if len(p.Name) > maxNameLength {
		return shared.NewDomainError("INVALID_NAME", fmt.Sprintf("Product name cannot exceed %d characters", maxNameLength))
	}
	if strings.TrimSpace(p.Description) == "" {
		return shared.NewDomainError("INVALID_DESCRIPTION", "Product description is required")
	}
	if len(p.Description) > maxDescriptionLength {
		return shared.NewDomainError("INVALID_DESCRIPTION", fmt.Sprintf("Description cannot exceed %d characters", maxDescriptionLength))
	}
	if p.Price.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}
	if p.OldPrice != nil && p.OldPrice.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Old price cannot be negative")
	}
	if p.Discount < 0 || p.Discount > 100 {
		return shared.NewDomainError("INVALID_DISCOUNT", "Discount must be between 0 and 100")
	}
	if !p.Category.IsValid() {
		return shared.NewDomainError("INVALID_CATEGORY", fmt.Sprintf("Invalid category: %s", p.Category))
	}
	if p.Brand == "" {
		return shared.NewDomainError("INVALID_BRAND", "Product brand is required")
	}
	if p.Volume == "" {
		return shared.NewDomainError("INVALID_VOLUME", "Product volume is required")
	}
	if !hexColorPattern.MatchString(p.Color) {
		return shared.NewDomainError("INVALID_COLOR", fmt.Sprintf("%s is not a valid hex color code", p.Color))
	}
	if p.Stock < 0 {
		return shared.NewDomainError("INVALID_STOCK", "Stock cannot be negative")
	}
	return nil
}
