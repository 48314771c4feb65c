package observability

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// MetricsServer exposes the Prometheus registry on /metrics.
type MetricsServer struct {
	echo   *echo.Echo
	logger zerolog.Logger
}

func NewMetricsServer(logger zerolog.Logger) *MetricsServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	return &MetricsServer{echo: e, logger: Component(logger, "metrics")}
}

func (m *MetricsServer) Handler() http.Handler {
	return m.echo
}

// Serve listens on addr in the background. Listener errors are logged.
func (m *MetricsServer) Serve(addr string) {
	go func() {
		m.logger.Info().Str("addr", addr).Msg("metrics endpoint listening")
		if err := m.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error().Err(err).Msg("metrics endpoint stopped")
		}
	}()
}

func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.echo.Shutdown(ctx)
}
