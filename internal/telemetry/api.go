package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope of the storefront API
const MeterName = "storefront-api"

// StorefrontApiTelemetry holds the instruments recorded for every API request
type StorefrontApiTelemetry struct {
	meter metric.Meter

	requestCounter    metric.Int64Counter
	errorCounter      metric.Int64Counter
	durationHistogram metric.Float64Histogram

	// Business metrics
	ordersCreatedCounter  metric.Int64Counter
	favoriteToggleCounter metric.Int64Counter
	productQueryCounter   metric.Int64Counter
	eventRetrievalCounter metric.Int64Counter
}

// StorefrontApiMetrics contains the telemetry data for one request
type StorefrontApiMetrics struct {
	Method       string
	Endpoint     string // route template, never the raw path
	StatusCode   int
	Duration     time.Duration
	ErrorMessage string
	ClientIP     string // logged only
	ClientIPType string // internal, external, localhost, unknown
	ResultCount  int
}

// NewStorefrontApiTelemetry creates a new instance of StorefrontApiTelemetry
func NewStorefrontApiTelemetry() *StorefrontApiTelemetry {
	return &StorefrontApiTelemetry{}
}

// InitializeTelemetry creates all instruments from the global meter provider
func (t *StorefrontApiTelemetry) InitializeTelemetry(ctx context.Context) error {
	slog.Info("Initializing storefront API telemetry")

	t.meter = otel.Meter(MeterName)

	counters := []struct {
		target *metric.Int64Counter
		name   string
		desc   string
	}{
		{&t.requestCounter, "storefront_api_requests_total", "Total number of successful API requests"},
		{&t.errorCounter, "storefront_api_errors_total", "Total number of API requests answered with an error status"},
		{&t.ordersCreatedCounter, "storefront_orders_created_total", "Total number of orders created"},
		{&t.favoriteToggleCounter, "storefront_favorite_toggles_total", "Total number of favorite add/remove requests"},
		{&t.productQueryCounter, "storefront_products_queried_total", "Total number of product read requests"},
		{&t.eventRetrievalCounter, "storefront_events_retrieved_total", "Total number of domain events returned to pollers"},
	}
	for _, c := range counters {
		counter, err := t.meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit("1"))
		if err != nil {
			slog.Error("Failed to create counter", "name", c.name, "error", err)
			return fmt.Errorf("failed to create counter %s: %w", c.name, err)
		}
		*c.target = counter
	}

	var err error
	t.durationHistogram, err = t.meter.Float64Histogram(
		"storefront_api_request_duration_seconds",
		metric.WithDescription("Duration of API requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		slog.Error("Failed to create duration histogram", "error", err)
		return fmt.Errorf("failed to create duration histogram: %w", err)
	}

	slog.Info("Storefront API telemetry initialized successfully")
	return nil
}

func baseAttributes(m StorefrontApiMetrics) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("method", m.Method),
		attribute.String("endpoint", m.Endpoint),
		attribute.Int("status_code", m.StatusCode),
	}
	if m.ClientIPType != "" {
		attrs = append(attrs, attribute.String("client_ip_type", m.ClientIPType))
	}
	return attrs
}

// RegisterRequestReceived records a successful API request
func (t *StorefrontApiTelemetry) RegisterRequestReceived(ctx context.Context, m StorefrontApiMetrics) {
	if t.requestCounter == nil {
		slog.Warn("Request counter not initialized")
		return
	}

	t.requestCounter.Add(ctx, 1, metric.WithAttributes(baseAttributes(m)...))
	t.recordEndpointSpecificMetrics(ctx, m)

	slog.Debug("Recorded successful API request",
		"method", m.Method,
		"endpoint", m.Endpoint,
		"status_code", m.StatusCode,
		"client_ip", m.ClientIP,
		"duration_ms", m.Duration.Milliseconds(),
	)
}

// RegisterRequestError records a failed API request
func (t *StorefrontApiTelemetry) RegisterRequestError(ctx context.Context, m StorefrontApiMetrics) {
	if t.errorCounter == nil {
		slog.Warn("Error counter not initialized")
		return
	}

	attrs := append(baseAttributes(m), attribute.String("error_type", categorizeError(m.ErrorMessage)))
	t.errorCounter.Add(ctx, 1, metric.WithAttributes(attrs...))

	slog.Debug("Recorded API request error",
		"method", m.Method,
		"endpoint", m.Endpoint,
		"status_code", m.StatusCode,
		"client_ip", m.ClientIP,
		"error", m.ErrorMessage,
	)
}

// RegisterRequestDuration records the duration of an API request
func (t *StorefrontApiTelemetry) RegisterRequestDuration(ctx context.Context, m StorefrontApiMetrics) {
	if t.durationHistogram == nil {
		slog.Warn("Duration histogram not initialized")
		return
	}
	t.durationHistogram.Record(ctx, m.Duration.Seconds(), metric.WithAttributes(baseAttributes(m)...))
}

// recordEndpointSpecificMetrics maps successful requests onto business counters
func (t *StorefrontApiTelemetry) recordEndpointSpecificMetrics(ctx context.Context, m StorefrontApiMetrics) {
	switch {
	case m.Endpoint == "/api/orders" && m.Method == "POST":
		t.ordersCreatedCounter.Add(ctx, 1)

	case m.Endpoint == "/api/products/{id}/favorite":
		op := "add"
		if m.Method == "DELETE" {
			op = "remove"
		}
		t.favoriteToggleCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op)))

	case strings.HasPrefix(m.Endpoint, "/api/products") && m.Method == "GET":
		t.productQueryCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("endpoint", m.Endpoint)))

	case m.Endpoint == "/api/events":
		t.eventRetrievalCounter.Add(ctx, int64(m.ResultCount))
	}
}

// categorizeError groups similar errors to prevent high cardinality
func categorizeError(errorMessage string) string {
	msg := strings.ToLower(errorMessage)
	switch {
	case msg == "":
		return "unknown"
	case strings.Contains(msg, "not found"):
		return "not_found"
	case strings.Contains(msg, "unauthorized"):
		return "unauthorized"
	case strings.Contains(msg, "forbidden"):
		return "forbidden"
	case strings.Contains(msg, "bad request"), strings.Contains(msg, "invalid"):
		return "bad_request"
	case strings.Contains(msg, "method not allowed"):
		return "method_not_allowed"
	case strings.Contains(msg, "timeout"):
		return "timeout"
	case strings.Contains(msg, "internal"):
		return "internal_error"
	default:
		return "other"
	}
}

// NormalizeClientIP categorizes client IPs to control cardinality
func NormalizeClientIP(clientIP string) string {
	if clientIP == "" {
		return "unknown"
	}

	ip := net.ParseIP(clientIP)
	if ip == nil {
		return "invalid"
	}
	if ip.IsLoopback() {
		return "localhost"
	}
	if ip.IsPrivate() || ip.IsLinkLocalUnicast() {
		return "internal"
	}
	return "external"
}
