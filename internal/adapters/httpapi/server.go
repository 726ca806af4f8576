// Package httpapi exposes the trading desk over a JSON REST API.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"paperdesk/internal/domain"
	"paperdesk/internal/execution"
	"paperdesk/internal/ports"

	"github.com/gin-gonic/gin"
)

const (
	defaultAddr            = ":8080"
	defaultShutdownTimeout = 10 * time.Second
)

// OrderService is the slice of the executor the API uses.
type OrderService interface {
	SubmitPaper(ctx context.Context, accountID int64, req domain.OrderRequest) (domain.ExecutionResult, error)
	OverrideStatus(ctx context.Context, orderID int64, status domain.OrderStatus, brokerRef, reason *string) (*domain.Order, error)
}

// ExecutionService is the mode-aware gateway.
type ExecutionService interface {
	ExecuteOrder(ctx context.Context, accountID int64, req domain.OrderRequest) (domain.ExecutionResult, error)
	GetConfig(ctx context.Context) (domain.ExecutionConfig, error)
	SetConfig(ctx context.Context, u execution.ConfigUpdate) (domain.ExecutionConfig, error)
}

// ServerConfig describes the dependencies of the HTTP server.
type ServerConfig struct {
	Addr             string
	DefaultAccountID int64
	GinMode          string // gin.ReleaseMode, gin.DebugMode or gin.TestMode
	ShutdownTimeout  time.Duration
	Store            ports.Store
	Orders           OrderService
	Gateway          ExecutionService
	Health           func(ctx context.Context) error // optional readiness probe for /healthz
	Logger           ports.Logger
}

// Server serves the REST API.
type Server struct {
	addr            string
	shutdownTimeout time.Duration
	router          *gin.Engine
	logger          ports.Logger
}

// NewServer builds the router and registers every route.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Store == nil || cfg.Orders == nil || cfg.Gateway == nil {
		return nil, errors.New("http server requires store, orders and gateway")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger is required for http server")
	}
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	if cfg.DefaultAccountID <= 0 {
		cfg.DefaultAccountID = 1
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.GinMode == "" {
		cfg.GinMode = gin.ReleaseMode
	}
	gin.SetMode(cfg.GinMode)

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(cfg.Logger))

	router.GET("/healthz", func(c *gin.Context) {
		if cfg.Health != nil {
			if err := cfg.Health(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := &handlers{
		store:   cfg.Store,
		orders:  cfg.Orders,
		gateway: cfg.Gateway,
		logger:  cfg.Logger,
	}
	api := router.Group("/api", accountFromHeader(cfg.DefaultAccountID))
	h.register(api)

	return &Server{addr: cfg.Addr, shutdownTimeout: cfg.ShutdownTimeout, router: router, logger: cfg.Logger}, nil
}

// Handler returns the underlying http.Handler.
func (s *Server) Handler() http.Handler { return s.router }

// Addr returns the listen address.
func (s *Server) Addr() string { return s.addr }

// Start serves until ctx is canceled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "HTTP server listening", map[string]interface{}{"addr": s.addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		s.logger.Info(ctx, "Shutting down HTTP server", map[string]interface{}{"timeout": s.shutdownTimeout.String()})
		if err := srv.Shutdown(shCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		return err
	}
}

// requestLogger logs every request through the application logger.
func requestLogger(logger ports.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if q := c.Request.URL.RawQuery; q != "" {
			path += "?" + q
		}
		c.Next()

		fields := map[string]interface{}{
			"method":   c.Request.Method,
			"path":     path,
			"status":   c.Writer.Status(),
			"ip":       c.ClientIP(),
			"duration": time.Since(start).String(),
		}
		ctx := c.Request.Context()
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			logger.Warn(ctx, "HTTP request failed", fields)
		case c.Request.URL.Path == "/healthz":
		default:
			logger.Debug(ctx, "HTTP request", fields)
		}
	}
}
