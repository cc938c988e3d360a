// Package server wires the HTTP surface: health, metrics and the v1 API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/hrygo/askbox/ai/catalog"
	"github.com/hrygo/askbox/ai/chat"
	"github.com/hrygo/askbox/ai/core/llm"
	"github.com/hrygo/askbox/ai/metrics"
	"github.com/hrygo/askbox/ai/prompt"
	"github.com/hrygo/askbox/internal/profile"
	apiv1 "github.com/hrygo/askbox/server/router/api/v1"
	"github.com/hrygo/askbox/store"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	Profile *profile.Profile
	Store   *store.Store
	Metrics *metrics.PrometheusExporter

	echoServer *echo.Echo
}

// NewServer builds the completion stack from profile and mounts the routes.
func NewServer(_ context.Context, profile *profile.Profile, store *store.Store) (*Server, error) {
	if !prompt.IsSupportedLocale(profile.Locale) {
		return nil, errors.Errorf("unsupported locale %q", profile.Locale)
	}
	if !profile.IsLLMConfigured() {
		slog.Warn("LLM API key is not set; completions will fail upstream")
	}
	exporter := metrics.NewPrometheusExporter(metrics.Config{WithRuntime: true})

	models := catalog.New(llm.NewRestyClient(profile.LLMBaseURL, profile.LLMAPIKey, profile.LLMReferer, profile.LLMAppTitle), exporter)
	completer := llm.NewClient(llm.Config{
		APIKey:            profile.LLMAPIKey,
		BaseURL:           profile.LLMBaseURL,
		DefaultModel:      profile.LLMDefaultModel,
		MaxAttempts:       profile.LLMMaxAttempts,
		BaseDelay:         time.Duration(profile.LLMBaseDelaySeconds) * time.Second,
		AttemptTimeout:    time.Duration(profile.LLMTimeoutSeconds) * time.Second,
		RequestsPerSecond: profile.LLMRequestsPerSecond,
		Referer:           profile.LLMReferer,
		AppTitle:          profile.LLMAppTitle,
	},
		llm.WithValidator(models),
		llm.WithObserver(exporter),
	)
	chatService := chat.NewService(store, completer, models,
		prompt.NewBuilder(profile.Locale, profile.Location()),
		chat.WithObserver(exporter),
		chat.WithTemperature(float32(profile.LLMTemperature)),
	)

	s := &Server{
		Profile: profile,
		Store:   store,
		Metrics: exporter,
	}
	s.echoServer = newEcho(exporter)
	s.echoServer.GET("/healthz", s.healthz)
	s.echoServer.GET("/metrics", echo.WrapHandler(exporter.Handler()))
	apiv1.NewAPIV1Service(profile.JWTSecret, chatService).RegisterRoutes(s.echoServer.Group("/api/v1"))
	return s, nil
}

func newEcho(exporter *metrics.PrometheusExporter) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: newRequestID}))
	e.Use(requestLogger())
	e.Use(metricsMiddleware(exporter))
	return e
}

func (s *Server) healthz(c echo.Context) error {
	if err := s.Store.GetDriver().GetDB().PingContext(c.Request().Context()); err != nil {
		slog.Error("health check failed", "error", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": s.Profile.Version})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echoServer
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start(_ context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrap(err, "failed to listen")
	}
	s.echoServer.Listener = listener

	go func() {
		if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start echo server", "error", err)
		}
	}()
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones and closes
// the store.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	slog.Info("server shutting down")
	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close database", "error", err)
	}
	slog.Info("server stopped properly")
}
