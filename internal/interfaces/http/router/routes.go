package router

import (
	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// RoleAdmin is the role allowed through /api/admin
const RoleAdmin = "admin"

// Handlers bundles the HTTP handlers served by the API
type Handlers struct {
	Health  *handler.HealthHandler
	Auth    *handler.AuthHandler
	Product *handler.ProductHandler
	Order   *handler.OrderHandler
	User    *handler.UserHandler
}

// Authenticators are the JWT middlewares: Required rejects anonymous callers,
// Optional only attaches claims when a valid token is presented.
type Authenticators struct {
	Required gin.HandlerFunc
	Optional gin.HandlerFunc
}

// StorefrontRoutes returns the route groups of the storefront API
func StorefrontRoutes(h Handlers, authn Authenticators) []RouteRegistrar {
	system := NewDomainGroup("system", "")
	system.GET("/health", h.Health.Check)

	account := NewDomainGroup("auth", "/auth")
	account.POST("/register", h.Auth.Register)
	account.POST("/login", h.Auth.Login)
	account.POST("/verify-email", h.Auth.VerifyEmail)
	account.POST("/complete-setup", h.Auth.CompleteSetup)
	account.GET("/me", authn.Required, h.Auth.Me)
	account.PUT("/update-profile", authn.Required, h.Auth.UpdateProfile)
	account.POST("/verify-phone", authn.Required, h.Auth.VerifyPhone)
	account.POST("/request-verification", authn.Required, h.Auth.RequestVerification)
	account.POST("/set-password", authn.Required, h.Auth.SetPassword)

	catalog := NewDomainGroup("catalog", "/products")
	catalog.GET("", h.Product.List)
	catalog.GET("/featured", h.Product.Featured)
	catalog.GET("/bestsellers", h.Product.BestSellers)
	catalog.GET("/search", h.Product.Search)
	catalog.GET("/categories", h.Product.Categories)
	catalog.GET("/brands", h.Product.Brands)
	catalog.GET("/:id", h.Product.Get)
	catalog.POST("/:id/reviews", authn.Required, h.Product.AddReview)

	orders := NewDomainGroup("trade", "/orders")
	orders.POST("", authn.Optional, h.Order.Create)
	orders.GET("/me", authn.Required, h.Order.ListMine)
	orders.GET("/:id", authn.Required, h.Order.Get)
	orders.PUT("/:id/cancel", authn.Required, h.Order.Cancel)

	admin := NewDomainGroup("admin", "/admin").Use(authn.Required, middleware.RequireRole(RoleAdmin))
	admin.POST("/upload", h.Product.Upload)
	admin.Group("products", "/products").
		GET("", h.Product.AdminList).
		POST("", h.Product.Create).
		PUT("/:id", h.Product.Update).
		DELETE("/:id", h.Product.Delete)
	admin.Group("orders", "/orders").
		GET("", h.Order.AdminList).
		PUT("/:id/status", h.Order.AdminUpdateStatus)
	admin.Group("users", "/users").
		GET("", h.User.List).
		PUT("/:id", h.User.Update).
		PUT("/:id/role", h.User.ChangeRole).
		PUT("/:id/status", h.User.ChangeStatus)

	return []RouteRegistrar{system, account, catalog, orders, admin}
}
