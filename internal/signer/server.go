package signer

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"voxlate/internal/domain"
	"voxlate/internal/observability"
	"voxlate/internal/ports"
)

// Server hands out signed streaming URLs so that the desktop client never
// holds the service credentials.
type Server struct {
	echo      *echo.Echo
	urls      ports.URLProvider
	languages func() []domain.Language
	logger    zerolog.Logger
}

type streamURLResponse struct {
	URL   string `json:"url,omitempty"`
	Error string `json:"error,omitempty"`
}

func NewServer(urls ports.URLProvider, languages func() []domain.Language, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:      e,
		urls:      urls,
		languages: languages,
		logger:    observability.Component(logger, "signer"),
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURIPath: true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.Debug().
				Str("method", v.Method).
				Str("path", v.URIPath).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))

	e.GET("/api/stream-url", s.handleStreamURL)
	e.GET("/api/languages", s.handleLanguages)
	e.GET("/health", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	return s
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("signer service listening")
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleStreamURL(c echo.Context) error {
	pair := domain.LanguagePair{
		Source: strings.TrimSpace(c.QueryParam("source")),
		Target: strings.TrimSpace(c.QueryParam("target")),
	}
	if pair.Source == "" {
		pair.Source = domain.DefaultSourceLanguage
	}
	if pair.Target == "" {
		pair.Target = domain.DefaultTargetLanguage
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	url, err := s.urls.StreamingURL(ctx, pair)
	observability.RecordURLRequest(err == nil)
	if err != nil {
		s.logger.Error().Err(err).Str("source", pair.Source).Str("target", pair.Target).Msg("failed to sign streaming url")
		return c.JSON(http.StatusInternalServerError, streamURLResponse{
			Error: "Failed to create WebSocket URL: " + err.Error(),
		})
	}
	return c.JSON(http.StatusOK, streamURLResponse{URL: url})
}

func (s *Server) handleLanguages(c echo.Context) error {
	return c.JSON(http.StatusOK, s.languages())
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
