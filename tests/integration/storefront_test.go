package integration

import (
	"net/http"
	"net/http/httptest"
	"testing"

	catalogapp "github.com/storefront/backend/internal/application/catalog"
	identityapp "github.com/storefront/backend/internal/application/identity"
	tradeapp "github.com/storefront/backend/internal/application/trade"
	"github.com/storefront/backend/internal/domain/trade"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/event"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"github.com/storefront/backend/internal/infrastructure/storage"
	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/storefront/backend/internal/interfaces/http/router"
	"github.com/storefront/backend/tests/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// storefront is the full HTTP stack over the test database, wired the way
// cmd/server wires it with mail and object storage disabled
type storefront struct {
	handler  http.Handler
	db       *TestDB
	jwt      *auth.JWTService
	users    *persistence.GormUserRepository
	products *persistence.GormProductRepository
	orders   *persistence.GormOrderRepository
	checkout *tradeapp.CheckoutService
	events   *testutil.RecordingEventHandler
}

func newStorefront(t *testing.T) *storefront {
	t.Helper()
	tdb := NewTestDB(t)
	log := zap.NewNop()

	s := &storefront{
		db:       tdb,
		jwt:      testutil.NewJWTService(),
		users:    persistence.NewGormUserRepository(tdb.DB),
		products: persistence.NewGormProductRepository(tdb.DB),
		orders:   persistence.NewGormOrderRepository(tdb.DB),
		events:   testutil.NewRecordingEventHandler(),
	}
	txScope := persistence.NewGormTransactionScope(tdb.DB)

	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(s.events,
		trade.EventTypeOrderPlaced, trade.EventTypeOrderCancelled, trade.EventTypeOrderStatusChanged)
	require.NoError(t, bus.Start(t.Context()))

	authService := identityapp.NewAuthService(s.users, s.jwt,
		identityapp.AuthServiceConfig{EchoEmailToken: true, EchoPhoneCode: true}, log)
	authService.SetEventPublisher(bus)
	s.checkout = tradeapp.NewCheckoutService(s.users, s.products, txScope,
		trade.NewTimestampOrderNumberGenerator(), tradeapp.CheckoutConfig{EchoVerificationToken: true}, log)
	s.checkout.SetEventPublisher(bus)
	orderService := tradeapp.NewOrderService(s.orders, s.users, txScope, log)
	orderService.SetEventPublisher(bus)
	imageService := catalogapp.NewImageService(storage.UnavailableImageStorage{}, catalogapp.ImageUploadConfig{}, log)

	middleware.SetupValidator()
	engine := router.NewEngine(router.EngineConfig{
		ServiceName: "storefront-integration",
		CORS:        middleware.DefaultCORSConfig(),
	}, log)

	base := handler.NewBaseHandler(false)
	r := router.NewRouter(engine)
	for _, g := range router.StorefrontRoutes(router.Handlers{
		Health:  handler.NewHealthHandler(handler.PingerFunc(tdb.SqlDB.PingContext)),
		Auth:    handler.NewAuthHandler(base, authService),
		Product: handler.NewProductHandler(base, catalogapp.NewProductService(s.products, log), imageService, authService),
		Order:   handler.NewOrderHandler(base, s.checkout, orderService),
		User:    handler.NewUserHandler(base, identityapp.NewUserService(s.users, log)),
	}, router.Authenticators{
		Required: middleware.JWTAuthMiddleware(s.jwt),
		Optional: middleware.OptionalJWTAuthMiddleware(s.jwt),
	}) {
		r.Register(g)
	}
	r.Setup()

	s.handler = engine
	return s
}

func (s *storefront) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return testutil.DoJSON(t, s.handler, method, path, token, body)
}
