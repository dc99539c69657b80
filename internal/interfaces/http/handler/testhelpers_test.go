package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	catalogapp "github.com/storefront/backend/internal/application/catalog"
	identityapp "github.com/storefront/backend/internal/application/identity"
	tradeapp "github.com/storefront/backend/internal/application/trade"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/trade"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// memoryImageStorage keeps uploads in memory and serves them from a fake CDN
type memoryImageStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemoryImageStorage() *memoryImageStorage {
	return &memoryImageStorage{objects: make(map[string][]byte)}
}

func (s *memoryImageStorage) Upload(_ context.Context, key string, data []byte, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return "https://cdn.test/" + key, nil
}

func (s *memoryImageStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// testApp is the HTTP surface backed by real services over in-memory sqlite
type testApp struct {
	engine   *gin.Engine
	jwt      *auth.JWTService
	users    *persistence.GormUserRepository
	products *persistence.GormProductRepository
	orders   *persistence.GormOrderRepository
	images   *memoryImageStorage
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared&_foreign_keys=on"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.AllModels()...))

	log := zap.NewNop()
	app := &testApp{
		jwt: auth.NewJWTService(config.JWTConfig{
			Secret:     "test-secret-key-that-is-long-enough",
			Expiration: time.Hour,
			Issuer:     "storefront-test",
		}),
		users:    persistence.NewGormUserRepository(db),
		products: persistence.NewGormProductRepository(db),
		orders:   persistence.NewGormOrderRepository(db),
		images:   newMemoryImageStorage(),
	}
	txScope := persistence.NewGormTransactionScope(db)

	authService := identityapp.NewAuthService(app.users, app.jwt,
		identityapp.AuthServiceConfig{EchoEmailToken: true, EchoPhoneCode: true}, log)
	userService := identityapp.NewUserService(app.users, log)
	productService := catalogapp.NewProductService(app.products, log)
	imageService := catalogapp.NewImageService(app.images, catalogapp.ImageUploadConfig{MaxSize: 1 << 10}, log)
	checkoutService := tradeapp.NewCheckoutService(app.users, app.products, txScope,
		trade.NewTimestampOrderNumberGenerator(), tradeapp.CheckoutConfig{EchoVerificationToken: true}, log)
	orderService := tradeapp.NewOrderService(app.orders, app.users, txScope, log)

	base := NewBaseHandler(false)
	authHandler := NewAuthHandler(base, authService)
	userHandler := NewUserHandler(base, userService)
	productHandler := NewProductHandler(base, productService, imageService, authService)
	orderHandler := NewOrderHandler(base, checkoutService, orderService)

	required := middleware.JWTAuthMiddleware(app.jwt)
	optional := middleware.OptionalJWTAuthMiddleware(app.jwt)
	adminOnly := middleware.RequireRole("admin")

	engine := gin.New()
	engine.Use(middleware.RequestID())
	api := engine.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/verify-email", authHandler.VerifyEmail)
	authGroup.POST("/complete-setup", authHandler.CompleteSetup)
	authGroup.GET("/me", required, authHandler.Me)
	authGroup.PUT("/update-profile", required, authHandler.UpdateProfile)
	authGroup.POST("/verify-phone", required, authHandler.VerifyPhone)
	authGroup.POST("/request-verification", required, authHandler.RequestVerification)
	authGroup.POST("/set-password", required, authHandler.SetPassword)

	productGroup := api.Group("/products")
	productGroup.GET("", productHandler.List)
	productGroup.GET("/search", productHandler.Search)
	productGroup.GET("/categories", productHandler.Categories)
	productGroup.GET("/:id", productHandler.Get)
	productGroup.POST("/:id/reviews", required, productHandler.AddReview)

	orderGroup := api.Group("/orders")
	orderGroup.POST("", optional, orderHandler.Create)
	orderGroup.GET("/me", required, orderHandler.ListMine)
	orderGroup.GET("/:id", required, orderHandler.Get)
	orderGroup.PUT("/:id/cancel", required, orderHandler.Cancel)

	admin := api.Group("/admin", required, adminOnly)
	admin.POST("/upload", productHandler.Upload)
	admin.GET("/products", productHandler.AdminList)
	admin.POST("/products", productHandler.Create)
	admin.PUT("/products/:id", productHandler.Update)
	admin.DELETE("/products/:id", productHandler.Delete)
	admin.GET("/orders", orderHandler.AdminList)
	admin.PUT("/orders/:id/status", orderHandler.AdminUpdateStatus)
	admin.GET("/users", userHandler.List)
	admin.PUT("/users/:id", userHandler.Update)
	admin.PUT("/users/:id/role", userHandler.ChangeRole)
	admin.PUT("/users/:id/status", userHandler.ChangeStatus)

	app.engine = engine
	return app
}

// do sends a JSON request, authenticated when token is non-empty
func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func (a *testApp) seedUser(t *testing.T, email string, role identity.Role) (*identity.User, string) {
	t.Helper()
	u, err := identity.NewUser("Jane Doe", email, "secret1")
	require.NoError(t, err)
	u.Role = role
	require.NoError(t, a.users.Create(t.Context(), u))

	issued, err := a.jwt.GenerateToken(u.ID, string(role))
	require.NoError(t, err)
	return u, issued.Token
}

func (a *testApp) seedProduct(t *testing.T, name string, stock int) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(catalog.ProductInput{
		Name:        name,
		Description: name + " description",
		Price:       decimal.NewFromInt(50),
		Category:    catalog.CategoryUnisex,
		Brand:       "Fantasy",
		Volume:      "100ml",
		Stock:       stock,
	})
	require.NoError(t, err)
	require.NoError(t, a.products.Create(t.Context(), p))
	return p
}

func (a *testApp) stockOf(t *testing.T, id uuid.UUID) int {
	t.Helper()
	p, err := a.products.FindByID(t.Context(), id)
	require.NoError(t, err)
	return p.Stock
}

// body decodes a flat success body
func body(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// errorOf decodes the error envelope
func errorOf(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorInfo {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	require.NotNil(t, resp.Error, w.Body.String())
	return *resp.Error
}

func checkoutBody(productID uuid.UUID, quantity int) map[string]any {
	return map[string]any{
		"items": []map[string]any{
			{"product": productID, "quantity": quantity, "price": 50},
		},
		"shipping": map[string]any{
			"firstName": "Ann",
			"lastName":  "Lee",
			"email":     "ann@example.com",
			"phone":     "555-0100",
			"address": map[string]any{
				"street":  "1 Main St",
				"city":    "Springfield",
				"state":   "IL",
				"zipCode": "62701",
				"country": "US",
			},
		},
		"payment":      map[string]any{"method": "card", "details": map[string]any{"id": "pay_1"}},
		"subtotal":     100,
		"tax":          8,
		"shippingCost": 5,
		"total":        113,
	}
}
