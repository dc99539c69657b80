package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

const genericErrorMessage = "An unexpected error occurred"

// BaseHandler provides common handler utilities
type BaseHandler struct {
	// ExposeErrors includes the underlying message in 500 responses.
	// It is off in production.
	ExposeErrors bool
}

// NewBaseHandler creates a BaseHandler; internal error messages are hidden in production
func NewBaseHandler(production bool) BaseHandler {
	return BaseHandler{ExposeErrors: !production}
}

func getRequestID(c *gin.Context) string {
	return c.GetString(middleware.RequestIDKey)
}

// getUserID extracts the caller's id from JWT claims
func getUserID(c *gin.Context) (uuid.UUID, error) {
	userID := middleware.GetJWTUserID(c)
	if userID == "" {
		return uuid.Nil, errors.New("user ID not found in context")
	}
	return uuid.Parse(userID)
}

func isAdmin(c *gin.Context) bool {
	return middleware.GetJWTRole(c) == "admin"
}

// Success sends a 200 response with the given top-level fields
func (h *BaseHandler) Success(c *gin.Context, fields dto.Fields) {
	c.JSON(http.StatusOK, dto.NewSuccessBody(fields))
}

// Created sends a 201 response with the given top-level fields
func (h *BaseHandler) Created(c *gin.Context, fields dto.Fields) {
	c.JSON(http.StatusCreated, dto.NewSuccessBody(fields))
}

// Message sends a 200 response carrying only a message
func (h *BaseHandler) Message(c *gin.Context, message string) {
	h.Success(c, dto.Fields{"message": message})
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// BindError answers a failed ShouldBind call: field details for validator
// failures, INVALID_JSON for undecodable bodies.
func (h *BaseHandler) BindError(c *gin.Context, err error) {
	if details := middleware.ValidationDetails(err); details != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
			"Request validation failed", getRequestID(c), details))
		return
	}
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeBodyTooLarge, "Request body exceeds maximum allowed size")
		return
	}
	h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Malformed request body")
}

// HandleError converts an error returned by the application layer into a response.
// Domain errors keep their code and message; anything else is a logged 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		status := dto.GetHTTPStatus(domainErr.Code)
		message := domainErr.Message
		if status >= http.StatusInternalServerError {
			h.logInternal(c, err)
			message = h.internalMessage(err)
		}
		c.JSON(status, dto.NewErrorResponseWithRequestID(domainErr.Code, message, getRequestID(c)))
		return
	}

	h.logInternal(c, err)
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, h.internalMessage(err))
}

func (h *BaseHandler) internalMessage(err error) string {
	if h.ExposeErrors {
		return err.Error()
	}
	return genericErrorMessage
}

func (h *BaseHandler) logInternal(c *gin.Context, err error) {
	logger.GetGinLogger(c).Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
}

// parseID reads the :id path parameter. Malformed ids answer 404 with the
// given message, matching a lookup that found nothing.
func (h *BaseHandler) parseID(c *gin.Context, notFoundMessage string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.NotFound(c, notFoundMessage)
		return uuid.Nil, false
	}
	return id, true
}

// requireUserID reads the authenticated caller or answers 401
func (h *BaseHandler) requireUserID(c *gin.Context) (uuid.UUID, bool) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Not authorized, no token")
		return uuid.Nil, false
	}
	return userID, true
}

func isValidationError(err error) bool {
	return middleware.ValidationDetails(err) != nil
}

func isNotFound(err error) bool {
	var domainErr *shared.DomainError
	return errors.As(err, &domainErr) && domainErr.Code == shared.ErrNotFound.Code
}
