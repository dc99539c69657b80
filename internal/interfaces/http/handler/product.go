package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	catalogapp "github.com/storefront/backend/internal/application/catalog"
	identityapp "github.com/storefront/backend/internal/application/identity"
	"github.com/storefront/backend/internal/interfaces/http/dto"
)

// multipart field carrying product images
const imagesFormField = "images"

// ProfileReader loads the caller's profile; reviews are signed with the account name
type ProfileReader interface {
	GetCurrentUser(ctx context.Context, userID uuid.UUID) (*identityapp.UserResponse, error)
}

// ProductHandler handles storefront catalog and admin product endpoints
type ProductHandler struct {
	BaseHandler
	productService *catalogapp.ProductService
	imageService   *catalogapp.ImageService
	profiles       ProfileReader
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(
	base BaseHandler,
	productService *catalogapp.ProductService,
	imageService *catalogapp.ImageService,
	profiles ProfileReader,
) *ProductHandler {
	return &ProductHandler{
		BaseHandler:    base,
		productService: productService,
		imageService:   imageService,
		profiles:       profiles,
	}
}

// List handles GET /api/products
func (h *ProductHandler) List(c *gin.Context) {
	var q catalogapp.ProductListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.productService.List(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.Fields{"products": result.Products, "pagination": result.Pagination})
}

// Featured handles GET /api/products/featured
func (h *ProductHandler) Featured(c *gin.Context) {
	products, err := h.productService.Featured(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.Fields{"products": products})
}

// BestSellers handles GET /api/products/bestsellers
func (h *ProductHandler) BestSellers(c *gin.Context) {
	products, err := h.productService.BestSellers(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.Fields{"products": products})
}

// Search handles GET /api/products/search?q=
func (h *ProductHandler) Search(c *gin.Context) {
	products, err := h.productService.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.Fields{"products": products, "count": len(products)})
}

// Categories handles GET /api/products/categories
func (h *ProductHandler) Categories(c *gin.Context) {
	categories, err := h.productService.Categories(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.Fields{"categories": categories})
}

// Brands handles GET /api/products/brands
func (h *ProductHandler) Brands(c *gin.Context) {
	brands, err := h.productService.Brands(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.Fields{"brands": brands})
}

// Get handles GET /api/products/:id
func (h *ProductHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c, "Product not found")
	if !ok {
		return
	}

	product, err := h.productService.Get(c.Request.Context(), id)
	if err != nil {
		h.handleProductError(c, err)
		return
	}
	h.Success(c, dto.Fields{"product": product})
}

// AddReview handles POST /api/products/:id/reviews
func (h *ProductHandler) AddReview(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "Product not found")
	if !ok {
		return
	}
	var req catalogapp.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	profile, err := h.profiles.GetCurrentUser(c.Request.Context(), userID)
	if err != nil {
		if isNotFound(err) {
			h.Unauthorized(c, "Not authorized, user not found")
			return
		}
		h.HandleError(c, err)
		return
	}

	product, err := h.productService.AddReview(c.Request.Context(), id,
		catalogapp.Reviewer{UserID: userID, Name: profile.Name}, req)
	if err != nil {
		h.handleProductError(c, err)
		return
	}
	h.Created(c, dto.Fields{"message": "Review added", "product": product})
}

// AdminList handles GET /api/admin/products
func (h *ProductHandler) AdminList(c *gin.Context) {
	var q catalogapp.AdminProductQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.productService.AdminList(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.Fields{"products": result.Products, "pagination": result.Pagination})
}

// Create handles POST /api/admin/products
func (h *ProductHandler) Create(c *gin.Context) {
	var req catalogapp.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	product, err := h.productService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.Fields{"product": product})
}

// Update handles PUT /api/admin/products/:id
func (h *ProductHandler) Update(c *gin.Context) {
	id, ok := h.parseID(c, "Product not found")
	if !ok {
		return
	}
	var req catalogapp.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	product, err := h.productService.Update(c.Request.Context(), id, req)
	if err != nil {
		h.handleProductError(c, err)
		return
	}
	h.Success(c, dto.Fields{"product": product})
}

// Delete handles DELETE /api/admin/products/:id
func (h *ProductHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c, "Product not found")
	if !ok {
		return
	}

	if err := h.productService.Delete(c.Request.Context(), id); err != nil {
		h.handleProductError(c, err)
		return
	}
	h.Message(c, "Product deleted")
}

// Upload handles POST /api/admin/upload (multipart field "images")
func (h *ProductHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		if isBodyTooLarge(err) {
			h.BindError(c, err)
			return
		}
		h.HandleError(c, catalogapp.ErrNoImages)
		return
	}

	headers := form.File[imagesFormField]
	if len(headers) > h.imageService.MaxFiles() {
		h.Error(c, http.StatusBadRequest, catalogapp.ErrTooManyImages.Code,
			fmt.Sprintf("At most %d images can be uploaded at once", h.imageService.MaxFiles()))
		return
	}

	files := make([]catalogapp.ImageFile, 0, len(headers))
	for _, fh := range headers {
		if fh.Size > h.imageService.MaxSize() {
			h.HandleError(c, catalogapp.ErrImageTooLarge)
			return
		}
		data, err := readFormFile(fh)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		files = append(files, catalogapp.ImageFile{Filename: fh.Filename, Data: data})
	}

	images, err := h.imageService.Upload(c.Request.Context(), files)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.Fields{"urls": images})
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	return data, nil
}

func (h *ProductHandler) handleProductError(c *gin.Context, err error) {
	if isNotFound(err) {
		h.NotFound(c, "Product not found")
		return
	}
	h.HandleError(c, err)
}

func isBodyTooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	return errors.As(err, &maxBytesErr)
}
