package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	tradeapp "github.com/storefront/backend/internal/application/trade"
	"github.com/storefront/backend/internal/domain/trade"
	"github.com/storefront/backend/internal/interfaces/http/dto"
)

const maxAdminPageSize = 100

// OrderHandler handles checkout and order endpoints
type OrderHandler struct {
	BaseHandler
	checkoutService *tradeapp.CheckoutService
	orderService    *tradeapp.OrderService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(base BaseHandler, checkoutService *tradeapp.CheckoutService, orderService *tradeapp.OrderService) *OrderHandler {
	return &OrderHandler{
		BaseHandler:     base,
		checkoutService: checkoutService,
		orderService:    orderService,
	}
}

// Create handles POST /api/orders. It runs behind OptionalJWTAuth: a valid
// token places the order for that account, otherwise the body must be a
// guest checkout carrying a contact email and first name.
func (h *OrderHandler) Create(c *gin.Context) {
	var req tradeapp.PlaceOrderRequest
	// Validation waits until the caller is known so that anonymous,
	// non-guest submissions are rejected with 401 first.
	if err := c.ShouldBindJSON(&req); err != nil && !isValidationError(err) {
		h.BindError(c, err)
		return
	}

	checkout := checkoutFor(c, req)
	if checkout == nil {
		h.Unauthorized(c, "Not authorized, no token")
		return
	}

	if err := binding.Validator.ValidateStruct(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.checkoutService.PlaceOrder(c.Request.Context(), checkout, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	fields := dto.Fields{"order": result.Order}
	if result.Verification != "" {
		fields["verification"] = result.Verification
	}
	h.Created(c, fields)
}

// checkoutFor decides who is placing the order. Nil means nobody is.
func checkoutFor(c *gin.Context, req tradeapp.PlaceOrderRequest) trade.Checkout {
	if userID, err := getUserID(c); err == nil {
		return trade.AuthenticatedCheckout{UserID: userID}
	}
	if !req.Guest {
		return nil
	}
	if strings.TrimSpace(req.Shipping.Email) == "" || strings.TrimSpace(req.Shipping.FirstName) == "" {
		return nil
	}
	contact, err := req.Shipping.Contact()
	if err != nil {
		// invalid address: let the service report it
		contact = trade.ShippingContact{
			FirstName: strings.TrimSpace(req.Shipping.FirstName),
			LastName:  strings.TrimSpace(req.Shipping.LastName),
			Email:     strings.TrimSpace(req.Shipping.Email),
			Phone:     strings.TrimSpace(req.Shipping.Phone),
		}
	}
	return trade.GuestCheckout{Contact: contact}
}

// ListMine handles GET /api/orders/me
func (h *OrderHandler) ListMine(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	orders, err := h.orderService.ListMine(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.Fields{"orders": orders})
}

// Get handles GET /api/orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}
	orderID, ok := h.parseID(c, "Order not found")
	if !ok {
		return
	}

	order, err := h.orderService.Get(c.Request.Context(), tradeapp.Requester{UserID: userID, IsAdmin: isAdmin(c)}, orderID)
	if err != nil {
		h.handleOrderError(c, err)
		return
	}
	h.Success(c, dto.Fields{"order": order})
}

// Cancel handles PUT /api/orders/:id/cancel
func (h *OrderHandler) Cancel(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}
	orderID, ok := h.parseID(c, "Order not found")
	if !ok {
		return
	}

	order, err := h.orderService.Cancel(c.Request.Context(), userID, orderID)
	if err != nil {
		h.handleOrderError(c, err)
		return
	}
	h.Success(c, dto.Fields{"order": order})
}

// AdminList handles GET /api/admin/orders
func (h *OrderHandler) AdminList(c *gin.Context) {
	var filter tradeapp.OrderListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}

	orders, total, err := h.orderService.AdminList(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.Fields{
		"orders": orders,
		"meta":   dto.NewMeta(total, filter.Page, min(filter.PageSize, maxAdminPageSize)),
	})
}

// UpdateStatusRequest is the admin status update body
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// AdminUpdateStatus handles PUT /api/admin/orders/:id/status
func (h *OrderHandler) AdminUpdateStatus(c *gin.Context) {
	orderID, ok := h.parseID(c, "Order not found")
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	order, err := h.orderService.AdminUpdateStatus(c.Request.Context(), orderID, req.Status)
	if err != nil {
		h.handleOrderError(c, err)
		return
	}
	h.Success(c, dto.Fields{"order": order})
}

// handleOrderError words a missing order the way clients expect
func (h *OrderHandler) handleOrderError(c *gin.Context, err error) {
	if isNotFound(err) {
		h.NotFound(c, "Order not found")
		return
	}
	h.HandleError(c, err)
}
