// Package metrics provides Prometheus instrumentation for the bot.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CommandsTotal counts handled chat commands, partitioned by command.
	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "neurobet_commands_total",
		Help: "Total chat commands handled",
	}, []string{"command"})

	// CommandErrors counts commands that failed, partitioned by command.
	CommandErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "neurobet_command_errors_total",
		Help: "Chat commands that ended in an error reply",
	}, []string{"command"})

	// BetsRegistered counts recorded bets, partitioned by initial outcome.
	BetsRegistered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "neurobet_bets_registered_total",
		Help: "Total bets recorded in the ledger",
	}, []string{"outcome"})

	// BetsSettled counts settlements, partitioned by final outcome.
	BetsSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "neurobet_bets_settled_total",
		Help: "Total bet settlements",
	}, []string{"outcome"})

	// PredictionsTotal counts generated predictions, partitioned by source.
	PredictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "neurobet_predictions_total",
		Help: "Total predictions generated",
	}, []string{"source"})

	// ModelPrecision tracks the latest measured prediction precision.
	ModelPrecision = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "neurobet_model_precision_percent",
		Help: "Latest measured prediction precision",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "neurobet_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "neurobet_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "neurobet_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the route pattern for path label to avoid high cardinality.
		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
