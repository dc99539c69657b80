package handler

import (
	"github.com/gin-gonic/gin"
	identityapp "github.com/storefront/backend/internal/application/identity"
	"github.com/storefront/backend/internal/interfaces/http/dto"
)

// UserHandler handles admin user management under /api/admin/users
type UserHandler struct {
	BaseHandler
	userService *identityapp.UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(base BaseHandler, userService *identityapp.UserService) *UserHandler {
	return &UserHandler{
		BaseHandler: base,
		userService: userService,
	}
}

// List handles GET /api/admin/users
func (h *UserHandler) List(c *gin.Context) {
	var q identityapp.AdminUserQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.userService.List(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.Fields{
		"users": result.Users,
		"meta": &dto.Meta{
			Total:      result.Total,
			Page:       result.Page,
			PageSize:   result.PageSize,
			TotalPages: result.TotalPages,
		},
	})
}

// ChangeRole handles PUT /api/admin/users/:id/role
func (h *UserHandler) ChangeRole(c *gin.Context) {
	id, ok := h.parseID(c, "User not found")
	if !ok {
		return
	}
	var req identityapp.ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	user, err := h.userService.ChangeRole(c.Request.Context(), id, req)
	if err != nil {
		h.handleUserError(c, err)
		return
	}
	h.Success(c, dto.Fields{"user": user})
}

// ChangeStatus handles PUT /api/admin/users/:id/status
func (h *UserHandler) ChangeStatus(c *gin.Context) {
	id, ok := h.parseID(c, "User not found")
	if !ok {
		return
	}
	var req identityapp.ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	user, err := h.userService.ChangeStatus(c.Request.Context(), id, req)
	if err != nil {
		h.handleUserError(c, err)
		return
	}
	h.Success(c, dto.Fields{"user": user})
}

// Update handles PUT /api/admin/users/:id
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := h.parseID(c, "User not found")
	if !ok {
		return
	}
	var req identityapp.AdminUpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	user, err := h.userService.Update(c.Request.Context(), id, req)
	if err != nil {
		h.handleUserError(c, err)
		return
	}
	h.Success(c, dto.Fields{"user": user})
}

func (h *UserHandler) handleUserError(c *gin.Context, err error) {
	if isNotFound(err) {
		h.NotFound(c, "User not found")
		return
	}
	h.HandleError(c, err)
}
