package telemetry

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
)

type annotationsKey struct{}

// annotations is a per-request slot handlers fill in for the middleware
type annotations struct {
	resultCount int
}

// SetResultCount records how many items a handler returned
func SetResultCount(ctx context.Context, count int) {
	if a, ok := ctx.Value(annotationsKey{}).(*annotations); ok {
		a.resultCount = count
	}
}

// TelemetryMiddleware wraps HTTP handlers to automatically collect telemetry
type TelemetryMiddleware struct {
	telemetry *StorefrontApiTelemetry
}

// NewTelemetryMiddleware creates a new telemetry middleware
func NewTelemetryMiddleware(telemetry *StorefrontApiTelemetry) *TelemetryMiddleware {
	return &TelemetryMiddleware{telemetry: telemetry}
}

// Middleware returns the HTTP middleware function. It must run inside a gorilla/mux
// router so the matched route template can be used as the endpoint label.
func (tm *TelemetryMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		notes := &annotations{}
		r = r.WithContext(context.WithValue(r.Context(), annotationsKey{}, notes))

		clientIP := getClientIP(r)
		m := StorefrontApiMetrics{
			Method:       r.Method,
			Endpoint:     endpointTemplate(r),
			ClientIP:     clientIP,
			ClientIPType: NormalizeClientIP(clientIP),
		}

		next.ServeHTTP(wrapper, r)

		m.StatusCode = wrapper.statusCode
		m.Duration = time.Since(start)
		m.ResultCount = notes.resultCount

		ctx := r.Context()
		if wrapper.statusCode >= 400 {
			m.ErrorMessage = statusMessage(wrapper.statusCode)
			tm.telemetry.RegisterRequestError(ctx, m)
		} else {
			tm.telemetry.RegisterRequestReceived(ctx, m)
		}
		tm.telemetry.RegisterRequestDuration(ctx, m)
	})
}

// endpointTemplate returns the matched route template, e.g. /api/orders/{id}
func endpointTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	if !w.wroteHeader {
		w.statusCode = statusCode
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *responseWriterWrapper) Write(data []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(data)
}

// getClientIP returns the client address. RealIP middleware has already
// folded X-Forwarded-For into RemoteAddr when it runs first.
func getClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func statusMessage(statusCode int) string {
	switch statusCode {
	case http.StatusBadRequest:
		return "Bad Request"
	case http.StatusUnauthorized:
		return "Unauthorized"
	case http.StatusForbidden:
		return "Forbidden"
	case http.StatusNotFound:
		return "Not Found"
	case http.StatusMethodNotAllowed:
		return "Method Not Allowed"
	case http.StatusInternalServerError:
		return "Internal Server Error"
	case http.StatusGatewayTimeout:
		return "Gateway Timeout"
	default:
		return "HTTP Error " + strconv.Itoa(statusCode)
	}
}
