package http

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	handlers "github.com/b2aeddine/backend-collabmarket-sub000/internal/adapter/handler/http"
	"github.com/b2aeddine/backend-collabmarket-sub000/internal/config"
	"github.com/b2aeddine/backend-collabmarket-sub000/internal/middleware/auth"
	"github.com/b2aeddine/backend-collabmarket-sub000/pkg/logger"
)

// Handlers groups the endpoint handlers mounted by the server.
type Handlers struct {
	Webhook     *handlers.WebhookHandler
	Jobs        *handlers.JobHandler
	Withdrawals *handlers.WithdrawalHandler
	Orders      *handlers.OrderHandler
	// Health reports whether backing stores are reachable.
	Health func(ctx context.Context) error
}

type Server struct {
	config   *config.Config
	logger   *zap.Logger
	echo     *echo.Echo
	handlers Handlers
}

func NewServer(cfg *config.Config, log *zap.Logger, h Handlers) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handlers.NewRequestValidator()
	logger.WithEchoLogger(e, log)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(logger.NewEchoRequestLogger(log))
	e.Use(middleware.BodyLimit("2M"))

	s := &Server{
		config:   cfg,
		logger:   log,
		echo:     e,
		handlers: h,
	}
	s.setupRoutes()
	return s
}

// Echo exposes the router, mainly for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) Start() error {
	addr := s.config.Server.HTTP.Addr()
	s.logger.Info("Starting HTTP server", zap.String("address", addr))
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) health(c echo.Context) error {
	status := http.StatusOK
	body := map[string]string{
		"status":  "healthy",
		"service": s.config.Service.Name,
	}
	if s.handlers.Health != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := s.handlers.Health(ctx); err != nil {
			s.logger.Warn("Health check failed", zap.Error(err))
			status = http.StatusServiceUnavailable
			body["status"] = "unhealthy"
		}
	}
	return c.JSON(status, body)
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.health)

	// Processor deliveries authenticate by signature.
	s.echo.POST("/webhooks/payment-events", s.handlers.Webhook.HandleWebhook)

	// Scheduler invocations
	worker := s.echo.Group("", auth.SharedSecretMiddleware(s.config.Worker.SharedSecret, s.logger))
	worker.POST("/jobs/run", s.handlers.Jobs.RunJobs)
	worker.POST("/jobs/sweep", s.handlers.Jobs.SweepJobs)
	worker.POST("/withdrawals/process", s.handlers.Withdrawals.ProcessWithdrawals)

	jwtConfig := auth.JWTConfig{
		Secret: s.config.JWT.Secret,
		Issuer: s.config.JWT.Issuer,
		Logger: s.logger,
	}
	protected := s.echo.Group("/api/v1", auth.JWTMiddleware(jwtConfig))

	orders := protected.Group("/orders/:id")
	orders.POST("/accept", s.handlers.Orders.Accept)
	orders.POST("/start", s.handlers.Orders.Start)
	orders.POST("/deliver", s.handlers.Orders.Deliver)
	orders.POST("/request-revision", s.handlers.Orders.RequestRevision)
	orders.POST("/complete", s.handlers.Orders.Complete)
	orders.POST("/cancel", s.handlers.Orders.Cancel)

	withdrawals := protected.Group("/withdrawals")
	withdrawals.POST("", s.handlers.Withdrawals.RequestWithdrawal)
	withdrawals.GET("/balance", s.handlers.Withdrawals.GetBalance)
}
