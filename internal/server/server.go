// Package server exposes the lead pipeline and the lead store over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadintel/internal/config"
	"github.com/sells-group/leadintel/internal/model"
)

// LeadAnalyzer runs the pipeline. *pipeline.Pipeline satisfies it.
type LeadAnalyzer interface {
	Analyze(ctx context.Context, rawURL, ownerID string) (*model.Lead, error)
	Bulk(ctx context.Context, urls []string, ownerID string) (*model.BulkReport, error)
}

// LeadReader reads and deletes stored leads. store.Store satisfies it.
type LeadReader interface {
	ListLeads(ctx context.Context, filter model.LeadFilter) (*model.LeadPage, error)
	GetLead(ctx context.Context, id, ownerID string) (*model.Lead, error)
	DeleteLead(ctx context.Context, id, ownerID string) error
	Stats(ctx context.Context, ownerID string) (*model.LeadStats, error)
}

const shutdownTimeout = 10 * time.Second

// Server is the HTTP API.
type Server struct {
	echo *echo.Echo
	port int
}

// New builds the API and registers its routes.
func New(cfg config.ServerConfig, analyzer LeadAnalyzer, leads LeadReader, tokens *TokenManager) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = httpErrorHandler
	e.Validator = &requestValidator{validate: validator.New()}
	e.Server.ReadHeaderTimeout = 10 * time.Second

	e.Use(requestLogger())
	e.Use(echomw.Recover())
	if len(cfg.AllowedOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType},
			AllowCredentials: true,
		}))
	}

	h := &handlers{analyzer: analyzer, leads: leads}
	limit := newOwnerLimiter(cfg.RatePerMinute).middleware()

	e.GET("/health", h.health)

	api := e.Group("/api/leads", requireOwner(tokens))
	api.POST("/analyze", h.analyze, limit)
	api.POST("/bulk", h.bulk, limit)
	api.GET("", h.list)
	api.GET("/stats/overview", h.stats)
	api.GET("/:id", h.get)
	api.DELETE("/:id", h.delete)

	return &Server{echo: e, port: cfg.Port}
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.echo }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("server: listening", zap.String("addr", addr))
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server: listen")
		}
		return nil
	case <-ctx.Done():
	}

	zap.L().Info("server: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server: shutdown")
	}
	return nil
}

type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i any) error {
	return v.validate.Struct(i)
}

func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			req := c.Request()
			zap.L().Info("server: request",
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.Int("status", c.Response().Status),
				zap.String("owner", ownerFrom(c)),
				zap.Duration("latency", time.Since(start)),
			)
			return nil
		}
	}
}
