package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/helioscommerce/payment-service/internal/config"
	"github.com/helioscommerce/payment-service/internal/domain/model"
	"github.com/helioscommerce/payment-service/internal/infrastructure/database"
	httpServer "github.com/helioscommerce/payment-service/internal/infrastructure/http"
	infralock "github.com/helioscommerce/payment-service/internal/infrastructure/lock"
	"github.com/helioscommerce/payment-service/internal/infrastructure/provider/adyen"
	"github.com/helioscommerce/payment-service/internal/infrastructure/queue"
	"github.com/helioscommerce/payment-service/internal/usecase"
	"github.com/helioscommerce/payment-service/internal/webhook"
	"github.com/helioscommerce/payment-service/internal/worker"
	pkglogger "github.com/helioscommerce/payment-service/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := pkglogger.NewZapLogger(pkglogger.Config{
		Level:       cfg.Log.Level,
		Format:      "json",
		Output:      "stdout",
		Development: cfg.Service.Environment == "development",
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database connection
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, logger); err != nil {
			logger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	// Run database migrations
	if err := database.Migrate(db, logger); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Initialize repositories
	repos := database.NewRepositories(db, logger)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Seed the configured gateway payment method
	if cfg.Adyen.MerchantAccount != "" {
		method := &model.PaymentMethod{
			Name:            cfg.Adyen.MethodName,
			MerchantAccount: cfg.Adyen.MerchantAccount,
			APIKey:          cfg.Adyen.APIKey,
			ClientKey:       cfg.Adyen.ClientKey,
			HMACKey:         cfg.Adyen.HMACKey,
			TestMode:        cfg.Adyen.TestMode,
			AutoCapture:     cfg.Adyen.AutoCapture,
		}
		if cfg.Adyen.PreviousHMACKey != "" {
			method.PreviousHMACKey = &cfg.Adyen.PreviousHMACKey
		}
		if method.Name == "" {
			method.Name = "Adyen"
		}
		if err := repos.PaymentMethod.Upsert(ctx, method); err != nil {
			logger.Fatal("Failed to seed payment method", zap.Error(err))
		}
	}

	// Initialize Redis (event queue + order locks)
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer rdb.Close()

	eventQueue := queue.NewRedisEventQueue(rdb, logger)
	locker := infralock.NewRedisOrderLocker(rdb, logger)

	// Gateway client
	gateway := adyen.NewClient(adyen.Config{
		APIKey:   cfg.Adyen.APIKey,
		TestMode: cfg.Adyen.TestMode,
		BaseURL:  cfg.Adyen.BaseURL,
	}, logger)

	// Webhook pipeline
	processors := map[string]webhook.Processor{
		webhook.EventCodeAuthorisation: usecase.NewAuthorisationEventProcessor(repos.Order, repos.Payment, repos.PaymentMethod, repos.PaymentSession, locker, logger),
		webhook.EventCodeCapture:       usecase.NewCaptureEventProcessor(repos.Order, repos.Payment, repos.PaymentMethod, locker, logger),
		webhook.EventCodeCancellation:  usecase.NewCancellationEventProcessor(repos.Order, repos.Payment, repos.PaymentMethod, locker, logger),
	}

	codes := make([]string, 0, len(processors))
	for code := range processors {
		codes = append(codes, code)
	}
	router := webhook.NewRouter(
		eventQueue,
		repos.WebhookDelivery,
		time.Duration(cfg.Webhook.DelaySeconds)*time.Second,
		logger,
		codes...,
	)

	webhookWorker := worker.NewWebhookWorker(eventQueue, processors, repos.WebhookDelivery, cfg.Webhook.Workers, logger)
	webhookWorker.Start(ctx)

	// Session service
	sessions := usecase.NewPaymentSessionService(
		repos.PaymentSession,
		repos.Payment,
		repos.Order,
		repos.PaymentMethod,
		gateway,
		locker,
		time.Duration(cfg.Session.ExpirationMinutes)*time.Minute,
		cfg.Service.StorefrontURL,
		logger,
	)

	// Capture/void/refund façade for the commerce backend
	payments := usecase.NewPaymentService(
		repos.Payment,
		repos.Order,
		repos.PaymentMethod,
		gateway,
		locker,
		logger,
	)

	// HTTP server
	httpSrv := httpServer.NewServer(cfg, logger, repos, sessions, payments, router)
	go func() {
		if err := httpSrv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown HTTP server", zap.Error(err))
	}

	cancel()
	webhookWorker.Wait()

	logger.Info("Shutdown complete")
}
