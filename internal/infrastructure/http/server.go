package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	handlers "github.com/helioscommerce/payment-service/internal/adapter/handler/http"
	"github.com/helioscommerce/payment-service/internal/config"
	"github.com/helioscommerce/payment-service/internal/infrastructure/database"
	"github.com/helioscommerce/payment-service/internal/middleware/auth"
	"github.com/helioscommerce/payment-service/internal/usecase"
	"github.com/helioscommerce/payment-service/internal/webhook"
	"github.com/helioscommerce/payment-service/pkg/logger"
)

// CustomValidator adapts go-playground/validator to echo's Validator hook.
type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

type Server struct {
	config   *config.Config
	logger   *zap.Logger
	echo     *echo.Echo
	repos    *database.Repositories
	sessions *usecase.PaymentSessionService
	payments *usecase.PaymentService
	router   *webhook.Router
}

func NewServer(
	cfg *config.Config,
	log *zap.Logger,
	repos *database.Repositories,
	sessions *usecase.PaymentSessionService,
	payments *usecase.PaymentService,
	router *webhook.Router,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}

	// Middleware
	e.Use(logger.NewEchoRequestLogger(log))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.Service.StorefrontURL},
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE},
	}))
	logger.WithEchoErrorHandler(e, log)

	return &Server{
		config:   cfg,
		logger:   log,
		echo:     e,
		repos:    repos,
		sessions: sessions,
		payments: payments,
		router:   router,
	}
}

func (s *Server) Start() error {
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.HTTP.Host, s.config.Server.HTTP.Port)
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	// Health check
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": s.config.Service.Name,
		})
	})

	// Initialize handlers
	webhookHandler := handlers.NewWebhookHandler(s.logger, s.repos.PaymentMethod, webhook.NewHMACValidator(), s.router)
	sessionHandler := handlers.NewPaymentSessionHandler(s.sessions, s.logger)
	paymentHandler := handlers.NewPaymentHandler(s.repos.Payment, s.payments, s.logger)

	jwtConfig := auth.JWTConfig{
		Secret: s.config.JWT.Secret,
		Logger: s.logger,
	}

	// Storefront routes (require JWT authentication)
	storefront := s.echo.Group("/api/v2/storefront", auth.JWTMiddleware(jwtConfig))
	storefront.POST("/payment_sessions", sessionHandler.FindOrCreate)
	storefront.POST("/payment_sessions/:id/complete", sessionHandler.Complete)
	storefront.GET("/payment_sessions/:id", sessionHandler.Get)

	// Commerce-backend routes (require JWT authentication)
	v1 := s.echo.Group("/api/v1", auth.JWTMiddleware(jwtConfig))
	v1.GET("/payments/:id", paymentHandler.GetPayment)
	v1.POST("/payments/:id/capture", paymentHandler.Capture)
	v1.POST("/payments/:id/void", paymentHandler.Void)
	v1.POST("/payments/:id/refund", paymentHandler.Refund)
	v1.DELETE("/orders/:order_id/payment_sessions", sessionHandler.OutdateSessions)

	// Webhook route (outside API versioning; authenticated by HMAC, not JWT)
	s.echo.POST("/webhooks/adyen", webhookHandler.Handle)
}
