package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Listing sizes
const (
	DefaultListLimit      = 10
	DefaultAdminListLimit = 20
	MaxListLimit          = 100
	FeaturedLimit         = 30
	BestSellerLimit       = 8
	SearchLimit           = 20

	// minDistinctValues is the number of distinct categories or brands
	// below which the built-in defaults are returned instead
	minDistinctValues = 2

	maxUpdateAttempts = 3
)

// ProductService handles catalog queries and admin product management
type ProductService struct {
	productRepo catalog.ProductRepository
	logger      *zap.Logger
}

// NewProductService creates a new ProductService
func NewProductService(productRepo catalog.ProductRepository, logger *zap.Logger) *ProductService {
	return &ProductService{
		productRepo: productRepo,
		logger:      logger,
	}
}

// List returns a page of the storefront listing
func (s *ProductService) List(ctx context.Context, q ProductListQuery) (*ProductListResult, error) {
	page, limit := normalizePage(q.Page, q.Limit, DefaultListLimit)

	filter := catalog.ProductFilter{
		Filter: shared.Filter{Page: page, PageSize: limit},
		Brand:  strings.TrimSpace(q.Brand),
	}
	filter.ApplySort(q.Sort)
	if q.Category != "" {
		category := catalog.Category(q.Category)
		if !category.IsValid() {
			return nil, shared.NewDomainError("INVALID_CATEGORY", "Unknown category")
		}
		filter.Category = category
	}
	if q.MinPrice != nil {
		v := decimal.NewFromFloat(*q.MinPrice)
		filter.MinPrice = &v
	}
	if q.MaxPrice != nil {
		v := decimal.NewFromFloat(*q.MaxPrice)
		filter.MaxPrice = &v
	}

	products, total, err := s.productRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &ProductListResult{
		Products:   ToProductResponses(products),
		Pagination: newPagination(page, limit, total),
	}, nil
}

// Featured returns featured products, newest first
func (s *ProductService) Featured(ctx context.Context) ([]ProductResponse, error) {
	featured := true
	return s.top(ctx, catalog.ProductFilter{Featured: &featured}, FeaturedLimit)
}

// BestSellers returns best-selling products, newest first
func (s *ProductService) BestSellers(ctx context.Context) ([]ProductResponse, error) {
	best := true
	return s.top(ctx, catalog.ProductFilter{BestSeller: &best}, BestSellerLimit)
}

// Search matches the query against name, description and brand
func (s *ProductService) Search(ctx context.Context, query string) ([]ProductResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, shared.NewDomainError("INVALID_QUERY", "Search query is required")
	}
	filter := catalog.ProductFilter{}
	filter.Search = query
	return s.top(ctx, filter, SearchLimit)
}

func (s *ProductService) top(ctx context.Context, filter catalog.ProductFilter, limit int) ([]ProductResponse, error) {
	filter.Page = 1
	filter.PageSize = limit
	filter.OrderBy, filter.OrderDir = "created_at", "desc"

	products, _, err := s.productRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	return ToProductResponses(products), nil
}

// Categories returns the categories in use, or every known category when
// fewer than two are in use
func (s *ProductService) Categories(ctx context.Context) ([]string, error) {
	used, err := s.productRepo.DistinctCategories(ctx)
	if err != nil {
		return nil, err
	}
	if len(used) >= minDistinctValues {
		return used, nil
	}
	all := catalog.AllCategories()
	out := make([]string, len(all))
	for i, c := range all {
		out[i] = c.String()
	}
	return out, nil
}

// Brands returns the brands in use, or the default brand list when fewer
// than two are in use
func (s *ProductService) Brands(ctx context.Context) ([]string, error) {
	used, err := s.productRepo.DistinctBrands(ctx)
	if err != nil {
		return nil, err
	}
	if len(used) >= minDistinctValues {
		return used, nil
	}
	return append([]string(nil), catalog.DefaultBrands...), nil
}

// Get returns a single product with reviews newest first
func (s *ProductService) Get(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToProductResponse(product)
	return &resp, nil
}

// AddReview appends a review to the product
func (s *ProductService) AddReview(ctx context.Context, productID uuid.UUID, reviewer Reviewer, req ReviewRequest) (*ProductResponse, error) {
	product, err := s.modify(ctx, productID, func(p *catalog.Product) error {
		_, err := p.AddReview(reviewer.UserID, reviewer.Name, req.Rating, req.Comment)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("review added",
		zap.String("product_id", productID.String()),
		zap.String("user_id", reviewer.UserID.String()),
		zap.Int("rating", req.Rating),
	)
	resp := ToProductResponse(product)
	return &resp, nil
}

// AdminList returns every product, newest first
func (s *ProductService) AdminList(ctx context.Context, q AdminProductQuery) (*ProductListResult, error) {
	page, limit := normalizePage(q.Page, q.Limit, DefaultAdminListLimit)
	filter := catalog.ProductFilter{
		Filter: shared.Filter{
			Page:     page,
			PageSize: limit,
			OrderBy:  "created_at",
			OrderDir: "desc",
			Search:   strings.TrimSpace(q.Q),
		},
	}

	products, total, err := s.productRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &ProductListResult{
		Products:   ToProductResponses(products),
		Pagination: newPagination(page, limit, total),
	}, nil
}

// Create adds a product to the catalog
func (s *ProductService) Create(ctx context.Context, req CreateProductRequest) (*ProductResponse, error) {
	product, err := catalog.NewProduct(catalog.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		OldPrice:    req.OldPrice,
		Discount:    req.Discount,
		Category:    catalog.Category(req.Category),
		Brand:       req.Brand,
		Volume:      req.Volume,
		Color:       req.Color,
		Stock:       req.Stock,
		Images:      toImages(req.Images),
		Featured:    req.Featured,
		BestSeller:  req.BestSeller,
	})
	if err != nil {
		return nil, err
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info("product created",
		zap.String("product_id", product.ID.String()),
		zap.String("name", product.Name),
	)
	resp := ToProductResponse(product)
	return &resp, nil
}

// Update applies a partial update. New images are appended.
func (s *ProductService) Update(ctx context.Context, id uuid.UUID, req UpdateProductRequest) (*ProductResponse, error) {
	update := catalog.ProductUpdate{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		OldPrice:    req.OldPrice,
		Discount:    req.Discount,
		Brand:       req.Brand,
		Volume:      req.Volume,
		Color:       req.Color,
		Stock:       req.Stock,
		Featured:    req.Featured,
		BestSeller:  req.BestSeller,
		NewImages:   toImages(req.Images),
	}
	if req.Category != nil {
		category := catalog.Category(*req.Category)
		update.Category = &category
	}

	product, err := s.modify(ctx, id, func(p *catalog.Product) error {
		return p.Apply(update)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("product updated", zap.String("product_id", id.String()))
	resp := ToProductResponse(product)
	return &resp, nil
}

// Delete removes a product
func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.productRepo.FindByID(ctx, id); err != nil {
		return err
	}
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("product deleted", zap.String("product_id", id.String()))
	return nil
}

// modify loads the product, applies fn and writes it back, reloading and
// reapplying when a concurrent write (such as a checkout decrementing stock)
// bumped the version in between.
func (s *ProductService) modify(ctx context.Context, id uuid.UUID, fn func(*catalog.Product) error) (*catalog.Product, error) {
	var lastErr error
	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		product, err := s.productRepo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := fn(product); err != nil {
			return nil, err
		}
		err = s.productRepo.Update(ctx, product)
		if err == nil {
			return product, nil
		}
		if !errors.Is(err, shared.ErrConcurrentModification) {
			return nil, err
		}
		lastErr = err
		s.logger.Debug("product changed concurrently, retrying",
			zap.String("product_id", id.String()),
			zap.Int("attempt", attempt),
		)
	}
	return nil, lastErr
}

func normalizePage(page, limit, defaultLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return page, limit
}
