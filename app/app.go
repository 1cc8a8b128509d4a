package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopprrapp/shopprr/internal/auth"
	"github.com/shopprrapp/shopprr/internal/cache"
	"github.com/shopprrapp/shopprr/internal/catalog"
	"github.com/shopprrapp/shopprr/internal/config"
	"github.com/shopprrapp/shopprr/internal/db"
	"github.com/shopprrapp/shopprr/internal/email"
	"github.com/shopprrapp/shopprr/internal/handlers"
	"github.com/shopprrapp/shopprr/internal/services"
	"github.com/shopprrapp/shopprr/internal/stripe"
)

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	DB            *pgxpool.Pool
	CacheProvider cache.Provider
	Handlers      *handlers.Handlers
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg)

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	database, err := db.Connect(startupCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	cacheProvider, err := cache.NewProvider(cache.Config{
		Provider:              cfg.CacheProvider,
		RedisConnectionString: cfg.RedisConnectionString,
	})
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize cache provider: %w", err)
	}

	emailProvider, err := email.NewProvider(email.Config{
		Provider: cfg.EmailProvider,
		APIKey:   cfg.ResendAPIKey,
		From:     cfg.EmailFrom,
	})
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize email provider: %w", err)
	}

	orderStore := db.NewOrderStore(database)
	cartStore := db.NewCartStore(database)
	productStore := db.NewProductStore(database)

	pricer := catalog.NewPricer(productStore)
	checkoutClient := stripe.NewCheckoutClient(cfg.StripeSecretKey, cfg.Currency, cfg.FrontendURL)

	var orderEmailer services.OrderEmailSender
	if emailProvider != nil {
		orderEmailer = services.NewOrderEmailSender(emailProvider)
	}

	orderService := services.NewOrderService(
		orderStore,
		cartStore,
		pricer,
		checkoutClient,
		services.Pricing{TaxRate: cfg.TaxRate, DeliveryCents: cfg.DeliveryChargeCents},
		cfg.CheckoutTimeout,
		logger.With("component", "order_service"),
	)
	cartService := services.NewCartService(cartStore, productStore, logger.With("component", "cart_service"))
	stripeService := services.NewStripeService(orderStore, cartStore, orderEmailer, logger.With("component", "stripe_service"))
	stripeRouter := handlers.NewStripeEventRouter(stripeService, logger.With("component", "stripe_router"))
	tokens := auth.NewTokenManager(cfg.JWTSecret)

	h, err := handlers.New(handlers.Dependencies{
		Config:        cfg,
		DB:            database,
		CacheProvider: cacheProvider,
		StripeRouter:  stripeRouter,
		OrderService:  orderService,
		CartService:   cartService,
		Tokens:        tokens,
		Logger:        logger,
	})
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	return &App{
		Config:        cfg,
		Logger:        logger,
		DB:            database,
		CacheProvider: cacheProvider,
		Handlers:      h,
	}, nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.CacheProvider != nil {
		closeCacheProvider(a.Logger, a.CacheProvider)
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	format := strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	switch format {
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	case "text", "":
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
			Level: cfg.LogLevel,
		}))
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: cfg.LogLevel}))
}

func closeCacheProvider(logger *slog.Logger, provider cache.Provider) {
	if provider == nil {
		return
	}
	if err := provider.Close(); err != nil && logger != nil {
		logger.Warn("failed to close cache provider", "error", err)
	}
}
