package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	catalogapp "github.com/storefront/backend/internal/application/catalog"
	identityapp "github.com/storefront/backend/internal/application/identity"
	"github.com/storefront/backend/internal/application/notification"
	tradeapp "github.com/storefront/backend/internal/application/trade"
	"github.com/storefront/backend/internal/domain/trade"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/cache"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/event"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/mail"
	"github.com/storefront/backend/internal/infrastructure/storage"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/storefront/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	if err := run(cfg, log); err != nil {
		log.Error("Server exited with error", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
	log.Info("Server exited gracefully")
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Starting storefront backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("driver", cfg.Database.Driver),
	)

	tracer, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}

	// Mail is queued and delivered by background workers
	dispatcher := mail.NewDispatcher(mail.NewMailer(cfg.Mail, log), mail.DispatcherConfigFrom(cfg.Mail), log)

	notifyCfg := notification.Config{SiteURL: cfg.App.SiteURL}
	bus := event.NewInMemoryEventBus(log)
	accountMail := notification.NewAccountHandler(dispatcher, notifyCfg, log)
	orderMail := notification.NewOrderHandler(st.users, dispatcher, notifyCfg, log)
	bus.Subscribe(accountMail, accountMail.EventTypes()...)
	bus.Subscribe(orderMail, orderMail.EventTypes()...)

	engine, err := buildEngine(ctx, cfg, log, st, bus)
	if err != nil {
		_ = st.close(context.Background())
		return err
	}

	dispatcher.Start()
	if err := bus.Start(ctx); err != nil {
		_ = st.close(context.Background())
		return fmt.Errorf("failed to start event bus: %w", err)
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// Stop accepting requests first, then drain mail, then release the stores
		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
		if err := bus.Stop(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("event bus stop: %w", err))
		}
		if err := dispatcher.Stop(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("mail dispatcher stop: %w", err))
		}
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
		if err := st.close(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

// buildEngine wires services and handlers onto a configured gin engine
func buildEngine(ctx context.Context, cfg *config.Config, log *zap.Logger, st *stores, bus *event.InMemoryEventBus) (http.Handler, error) {
	production := cfg.App.IsProduction()
	mailEnabled := cfg.Mail.Enabled

	jwtService := auth.NewJWTService(cfg.JWT)

	authService := identityapp.NewAuthService(st.users, jwtService, identityapp.AuthServiceConfig{
		EchoEmailToken: !mailEnabled,
		EchoPhoneCode:  !production,
	}, log)
	authService.SetEventPublisher(bus)
	userService := identityapp.NewUserService(st.users, log)

	imageStorage, err := newImageStorage(cfg, log)
	if err != nil {
		return nil, err
	}
	productService := catalogapp.NewProductService(st.products, log)
	imageService := catalogapp.NewImageService(imageStorage, catalogapp.ImageUploadConfig{
		MaxFiles:  cfg.Storage.MaxFiles,
		MaxSize:   cfg.Storage.MaxFileSize,
		KeyPrefix: cfg.Storage.KeyPrefix,
	}, log)

	checkoutService := tradeapp.NewCheckoutService(st.users, st.products, st.txScope,
		trade.NewTimestampOrderNumberGenerator(),
		tradeapp.CheckoutConfig{EchoVerificationToken: !mailEnabled}, log)
	checkoutService.SetEventPublisher(bus)
	orderService := tradeapp.NewOrderService(st.orders, st.users, st.txScope, log)
	orderService.SetEventPublisher(bus)

	middleware.SetupValidator()

	cors := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	engineCfg := router.EngineConfig{
		Production:     production,
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: cfg.Telemetry.Enabled,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		CORS:           cors,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
	}
	if cfg.HTTP.RateLimitEnabled {
		factory := cache.NewRateLimitStoreFactory(cfg.Redis,
			cache.WithLogger(log),
			cache.WithInMemoryFallback(!production),
		)
		engineCfg.RateLimitStore, err = factory.Create(ctx, cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		if err != nil {
			return nil, fmt.Errorf("failed to create rate limit store: %w", err)
		}
	}
	engine := router.NewEngine(engineCfg, log)

	base := handler.NewBaseHandler(production)
	handlers := router.Handlers{
		Health:  handler.NewHealthHandler(st.pinger),
		Auth:    handler.NewAuthHandler(base, authService),
		Product: handler.NewProductHandler(base, productService, imageService, authService),
		Order:   handler.NewOrderHandler(base, checkoutService, orderService),
		User:    handler.NewUserHandler(base, userService),
	}
	authn := router.Authenticators{
		Required: middleware.JWTAuthMiddleware(jwtService),
		Optional: middleware.OptionalJWTAuthMiddleware(jwtService),
	}

	r := router.NewRouter(engine)
	for _, group := range router.StorefrontRoutes(handlers, authn) {
		r.Register(group)
	}
	r.Setup()

	return engine, nil
}

func newImageStorage(cfg *config.Config, log *zap.Logger) (catalogapp.ImageStorage, error) {
	if !cfg.Storage.Enabled {
		log.Info("Object storage disabled, image uploads will be rejected")
		return storage.UnavailableImageStorage{}, nil
	}
	s3, err := storage.NewS3ImageStorage(&cfg.Storage, storage.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize object storage: %w", err)
	}
	return s3, nil
}
