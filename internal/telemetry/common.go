package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	api "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Exporter names accepted by InitMetrics
const (
	ExporterScraper = "scraper"
	ExporterGRPC    = "grpc"
	ExporterNone    = "none"
)

// Telemetry owns the OpenTelemetry meter provider and, for the scraper
// exporter, the HTTP server exposing /metrics.
type Telemetry struct {
	server   *http.Server          // If type of metrics collection == "scraper".
	Provider *metric.MeterProvider // Nil when metrics are disabled.
	meter    api.Meter
	once     sync.Once
}

// MetricsOptions selects how metrics leave the process
type MetricsOptions struct {
	Exporter string // scraper, grpc or none
	Port     string // scrape port, scraper only
}

// InitMetrics initializes the meter provider for the configured exporter
func (t *Telemetry) InitMetrics(ctx context.Context, meterName string, opts MetricsOptions) error {
	var err error
	t.once.Do(func() {
		switch opts.Exporter {
		case ExporterScraper:
			slog.Info("Starting metrics with scraper exporter", "port", opts.Port)
			err = t.initScrapeMetrics(meterName, opts.Port)
		case ExporterGRPC:
			slog.Info("Starting metrics with grpc exporter")
			err = t.initGRPCMetrics(ctx, meterName) // Sends data to localhost:4317 or whatever OTEL_EXPORTER_OTLP_METRICS_ENDPOINT is set to.
		default:
			slog.Info("Metrics export disabled", "exporter", opts.Exporter)
		}
	})
	return err
}

// Initialize GRPC metrics exporter. https://opentelemetry.io/docs/languages/go/exporters/#otlp-metrics-over-grpc.
func (t *Telemetry) initGRPCMetrics(ctx context.Context, meterName string) error {
	exporter, err := otlpmetricgrpc.New(ctx)
	if err != nil {
		slog.Error("Creating GRPC exporter", "error", err)
		return err
	}

	t.Provider = metric.NewMeterProvider(metric.WithReader(metric.NewPeriodicReader(exporter)))
	otel.SetMeterProvider(t.Provider)
	t.meter = t.Provider.Meter(meterName)
	return nil
}

// Initialize scrape metrics exporter. https://github.com/open-telemetry/opentelemetry-go/blob/main/example/prometheus/main.go.
func (t *Telemetry) initScrapeMetrics(meterName, port string) error {
	// The exporter embeds a default OpenTelemetry Reader and
	// implements prometheus.Collector.
	exporter, err := prometheus.New()
	if err != nil {
		slog.Error("Creating HTML scrape exporter", "error", err)
		return err
	}

	t.Provider = metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(t.Provider)
	t.meter = t.Provider.Meter(meterName)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	t.server = &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return nil
}

// MetricsServer returns the scrape server, or nil when the exporter does not need one
func (t *Telemetry) MetricsServer() *http.Server {
	return t.server
}

// ServeMetrics blocks serving /metrics until the server is shut down
func (t *Telemetry) ServeMetrics() error {
	if t.server == nil {
		return nil
	}
	slog.Info("Serving metrics", "address", t.server.Addr+"/metrics")
	if err := t.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("ListenAndServe exited with", "error", err)
		return err
	}
	return nil
}

// Close stops the scrape server and flushes pending metrics
func (t *Telemetry) Close(ctx context.Context) {
	if t.server != nil {
		_ = t.server.Shutdown(ctx)
		slog.Info("Shutting down metrics server")
	}
	if t.Provider != nil {
		if err := t.Provider.Shutdown(ctx); err != nil {
			slog.Warn("Meter provider shutdown failed", "error", err)
		}
	}
}
