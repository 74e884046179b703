// Command sample runs a miniapi server with a small user API, a chat
// WebSocket and a Prometheus metrics endpoint.
//
// Run:
//
//	go run ./cmd/sample -config sample.yaml
//
// Then explore:
//
//	GET    http://localhost:8080/health
//	GET    http://localhost:8080/v1/users?role=admin&limit=10
//	POST   http://localhost:8080/v1/users
//	GET    http://localhost:8080/v1/users/:id
//	PUT    http://localhost:8080/v1/users/:id
//	DELETE http://localhost:8080/v1/users/:id
//	WS     ws://localhost:8080/chat/:room
//	WS     ws://localhost:8080/ping
//	GET    http://localhost:9090/metrics
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"

	"github.com/bjaus/miniapi"
	"github.com/bjaus/miniapi/internal/config"
)

const instrumentationName = "github.com/bjaus/miniapi/cmd/sample"

func main() {
	configFlag := flag.String("config", "", "Path to a YAML config file")
	flag.Parse()

	if err := run(*configFlag); err != nil {
		slog.Error("sample server failed", "err", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Logging, os.Stdout)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exporter, err := prometheus.New()
	if err != nil {
		return fmt.Errorf("create prometheus exporter: %w", err)
	}
	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))

	tracerProvider, err := newTracerProvider(cfg.Telemetry)
	if err != nil {
		return err
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := errors.Join(meterProvider.Shutdown(shutdownCtx), tracerProvider.Shutdown(shutdownCtx)); err != nil {
			logger.Error("telemetry shutdown failed", "err", err)
		}
	}()

	app, err := newApp(cfg, logger, meterProvider, tracerProvider)
	if err != nil {
		return err
	}

	metricsSrv := &http.Server{
		Addr:              cfg.Telemetry.MetricsAddr,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server", "addr", cfg.Server.Addr)
		return app.ListenAndServe(gctx, cfg.Server.Addr)
	})
	g.Go(func() error {
		logger.Info("starting metrics server", "addr", cfg.Telemetry.MetricsAddr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return metricsSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	logger.Info("server stopped")
	return nil
}

func newLogger(cfg config.LoggingConfig, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func newTracerProvider(cfg config.TelemetryConfig) (*sdktrace.TracerProvider, error) {
	if cfg.TraceExporter != "stdout" {
		return sdktrace.NewTracerProvider(), nil
	}
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter)), nil
}

func newApp(cfg *config.Config, logger *slog.Logger, mp *sdkmetric.MeterProvider, tp *sdktrace.TracerProvider) (*miniapi.App, error) {
	app := miniapi.New(
		miniapi.WithLogger(logger),
		miniapi.WithDebug(cfg.Server.Debug),
		miniapi.WithMaxBodySize(cfg.Server.MaxBodySize),
		miniapi.WithTracer(miniapi.OTelTracer(tp.Tracer(instrumentationName))),
	)

	metrics, err := miniapi.Metrics(mp.Meter(instrumentationName))
	if err != nil {
		return nil, err
	}

	app.Use(miniapi.RequestID())
	if cfg.RateLimit.Enabled {
		app.Use(miniapi.RateLimit(miniapi.RateLimitConfig{
			Rate:  cfg.RateLimit.RPS,
			Burst: cfg.RateLimit.Burst,
		}))
	}
	app.Use(miniapi.CORS(), miniapi.Secure(), metrics, miniapi.Logger(logger))

	registerRoutes(app, newUserStore())
	return app, nil
}
