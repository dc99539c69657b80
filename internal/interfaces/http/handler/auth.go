package handler

import (
	"github.com/gin-gonic/gin"
	identityapp "github.com/storefront/backend/internal/application/identity"
	"github.com/storefront/backend/internal/interfaces/http/dto"
)

// AuthHandler handles account endpoints under /api/auth
type AuthHandler struct {
	BaseHandler
	authService *identityapp.AuthService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(base BaseHandler, authService *identityapp.AuthService) *AuthHandler {
	return &AuthHandler{
		BaseHandler: base,
		authService: authService,
	}
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req identityapp.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	fields := authFields(result)
	if result.Verification != nil {
		fields["verification"] = result.Verification
	}
	h.Created(c, fields)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req identityapp.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, authFields(result))
}

func authFields(result *identityapp.AuthResult) dto.Fields {
	return dto.Fields{
		"token":     result.Token,
		"expiresAt": result.ExpiresAt,
		"user":      result.User,
	}
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	user, err := h.authService.GetCurrentUser(c.Request.Context(), userID)
	if err != nil {
		h.handleAccountError(c, err)
		return
	}
	h.Success(c, dto.Fields{"user": user})
}

// UpdateProfile handles PUT /api/auth/update-profile
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}
	var req identityapp.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	user, err := h.authService.UpdateProfile(c.Request.Context(), userID, req)
	if err != nil {
		h.handleAccountError(c, err)
		return
	}
	h.Success(c, dto.Fields{"user": user})
}

// VerifyEmail handles POST /api/auth/verify-email
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req identityapp.VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	if err := h.authService.VerifyEmail(c.Request.Context(), req); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Message(c, "Email verified")
}

// VerifyPhone handles POST /api/auth/verify-phone
func (h *AuthHandler) VerifyPhone(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}
	var req identityapp.VerifyPhoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	if err := h.authService.VerifyPhone(c.Request.Context(), userID, req); err != nil {
		h.handleAccountError(c, err)
		return
	}
	h.Message(c, "Phone verified")
}

// RequestVerification handles POST /api/auth/request-verification
func (h *AuthHandler) RequestVerification(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	verification, err := h.authService.RequestVerification(c.Request.Context(), userID)
	if err != nil {
		h.handleAccountError(c, err)
		return
	}

	fields := dto.Fields{"message": "Verification sent"}
	if verification.EmailToken != "" || verification.PhoneCode != "" {
		fields["verification"] = verification
	}
	h.Success(c, fields)
}

// SetPassword handles POST /api/auth/set-password
func (h *AuthHandler) SetPassword(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}
	var req identityapp.SetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	if err := h.authService.SetPassword(c.Request.Context(), userID, req); err != nil {
		h.handleAccountError(c, err)
		return
	}
	h.Message(c, "Password updated")
}

// CompleteSetup handles POST /api/auth/complete-setup
func (h *AuthHandler) CompleteSetup(c *gin.Context) {
	var req identityapp.CompleteSetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	if err := h.authService.CompleteSetup(c.Request.Context(), req); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Message(c, "Account setup complete")
}

// handleAccountError treats a token whose account no longer exists as unauthenticated
func (h *AuthHandler) handleAccountError(c *gin.Context, err error) {
	if isNotFound(err) {
		h.Unauthorized(c, "Not authorized, user not found")
		return
	}
	h.HandleError(c, err)
}
