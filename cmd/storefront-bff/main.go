package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/attempts"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/clients"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/events"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/gateway"
	httpapi "github.com/andreasstove999/ecommerce-system/storefront-go/internal/http"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/logging"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/payment"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/review"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/session"
)

func main() {
	cfg := config.Load()

	logger := logging.New(cfg.LogLevel, cfg.LogFormat).WithField("service", "storefront-bff")

	// The backend reads amounts as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Base HTTP client (shared)
	sharedHTTP := &http.Client{
		Timeout: cfg.UpstreamTimeout,
	}

	backendBase := clients.NewClient("backend", cfg.BackendURL, sharedHTTP)

	// Typed clients
	cartClient := clients.NewCartClient(backendBase)
	orderClient := clients.NewOrderClient(backendBase)
	paymentClient := clients.NewPaymentClient(backendBase)
	reviewClient := clients.NewReviewClient(backendBase)

	healthProbes := []clients.HealthProbe{
		{Name: "backend", Client: backendBase, Path: "actuator/health"},
	}

	ledger, closeLedger := openLedger(ctx, cfg, logger)
	defer closeLedger()

	publisher, closePublisher := openPublisher(ctx, cfg, logger)
	defer closePublisher()

	var gw payment.Gateway
	switch cfg.Gateway {
	case config.GatewayStripe:
		if cfg.StripeSecretKey == "" {
			logger.Fatal("STRIPE_SECRET_KEY is required for the stripe gateway")
		}
		gw = gateway.NewStripe(cfg.StripeSecretKey, cfg.StripeAPIURL, sharedHTTP, logger)
	default:
		gw = gateway.Fake{Delay: 300 * time.Millisecond}
		logger.Warn("using fake payment gateway")
	}

	orders := order.NewService(orderClient, logger)
	carts := cart.NewStore(cartClient, logger)

	pipeline := payment.NewPipeline(
		payment.NewInitiator(orderClient, paymentClient, ledger, logger),
		payment.NewConfirmer(gw, ledger, logger),
		payment.NewReporter(paymentClient, ledger, publisher, logger),
		ledger,
	)

	router := httpapi.NewRouter(httpapi.Deps{
		Logger:       logger,
		Cfg:          cfg,
		Parser:       session.NewParser(cfg.JWTSecret),
		Cart:         carts,
		Checkout:     checkout.NewOrchestrator(carts, orderClient, logger),
		Orders:       orders,
		Payments:     pipeline,
		Ledger:       payment.NewDirectory(paymentClient, ledger),
		Reviews:      review.NewService(orderClient, reviewClient, logger),
		HealthProbes: healthProbes,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Infof("listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server error")
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("shutdown error")
	}
	logger.Info("shutdown complete")
}

// openLedger keeps payment attempts in Postgres when DATABASE_URL is set and
// in memory otherwise.
func openLedger(ctx context.Context, cfg config.Config, logger logrus.FieldLogger) (payment.AttemptStore, func()) {
	if cfg.DatabaseDSN == "" {
		logger.Warn("DATABASE_URL not set; payment attempts are kept in memory")
		return attempts.NewMemoryStore(), func() {}
	}

	if cfg.RunMigrations {
		if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
			logger.WithError(err).Fatal("run migrations")
		}
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.WithError(err).Fatal("open ledger database")
	}
	return attempts.NewPostgresRepository(pool), pool.Close
}

// openPublisher publishes payment events to RabbitMQ when RABBITMQ_URL is set
// and logs them otherwise.
func openPublisher(ctx context.Context, cfg config.Config, logger logrus.FieldLogger) (payment.EventPublisher, func()) {
	if cfg.RabbitMQURL == "" {
		return events.LogPublisher{Logger: logger}, func() {}
	}

	conn, err := events.Dial(cfg.RabbitMQURL)
	if err != nil {
		logger.WithError(err).Fatal("dial rabbitmq")
	}

	var (
		seq     events.SequenceRepository = events.NewMemorySequence()
		closeDB                           = func() {}
	)
	if cfg.DatabaseDSN != "" {
		sqlDB, err := db.Open(ctx, cfg.DatabaseDSN)
		if err != nil {
			logger.WithError(err).Fatal("open sequence database")
		}
		seq = events.NewSequenceRepository(sqlDB)
		closeDB = func() { _ = sqlDB.Close() }
	}

	publisher, err := events.NewPublisher(conn, seq, logger)
	if err != nil {
		logger.WithError(err).Fatal("create event publisher")
	}
	return publisher, func() {
		_ = publisher.Close()
		_ = conn.Close()
		closeDB()
	}
}
