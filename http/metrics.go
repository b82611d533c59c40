package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fraud_http_requests_total",
		Help: "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "code"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fraud_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	predictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fraud_predictions_total",
		Help: "Predictions served by label.",
	}, []string{"label"})

	validationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fraud_validation_failures_total",
		Help: "Prediction requests rejected before reaching the classifier.",
	})
)

// knownRoutes keeps the route label bounded.
var knownRoutes = map[string]bool{
	"/":        true,
	"/predict": true,
	"/metrics": true,
	"/sample":  true,
	"/ws":      true,
}

func RegisterMetrics(mux *http.ServeMux) {
	mux.Handle("GET /metrics", promhttp.Handler())
}

// MetricsMiddleware 请求计数与耗时
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := wrapResponseWriter(w)

		next.ServeHTTP(wrapped, r)

		route := routeLabel(r.URL.Path)
		requestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(wrapped.statusCode)).Inc()
		requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func routeLabel(path string) string {
	if knownRoutes[path] {
		return path
	}
	return "other"
}
