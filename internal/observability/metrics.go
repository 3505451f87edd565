package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pitabwire/irrbot/model"
)

// Histogram bucket definitions.
var (
	httpDurationBuckets        = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
	interactionDurationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
)

// Interaction outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeUserError = "user_error"
	OutcomeFailure   = "failure"
)

// Metrics holds all Prometheus metric instruments of the bot.
type Metrics struct {
	// Interaction metrics
	InteractionsTotal   *prometheus.CounterVec
	InteractionDuration *prometheus.HistogramVec

	// Questionnaire metrics
	ActiveSessions   prometheus.Gauge
	SubmissionsTotal prometheus.Counter

	// Review metrics
	ReviewsTotal       *prometheus.CounterVec
	PendingSubmissions prometheus.Gauge

	// Store metrics
	StoreOpsTotal *prometheus.CounterVec

	// HTTP metrics (ops server)
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// InitMetrics creates and registers all Prometheus metric instruments.
func InitMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		InteractionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "irrbot_interactions_total",
			Help: "Total number of handled component interactions.",
		}, []string{"namespace", "verb", "outcome"}),
		InteractionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "irrbot_interaction_duration_seconds",
			Help:    "Interaction handling duration in seconds.",
			Buckets: interactionDurationBuckets,
		}, []string{"namespace"}),

		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "irrbot_active_sessions",
			Help: "Number of questionnaires in progress.",
		}),
		SubmissionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "irrbot_submissions_total",
			Help: "Total number of completed questionnaires.",
		}),

		ReviewsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "irrbot_reviews_total",
			Help: "Total number of moderator decisions.",
		}, []string{"result"}),
		PendingSubmissions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "irrbot_pending_submissions",
			Help: "Number of stored submissions awaiting review.",
		}),

		StoreOpsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "irrbot_store_ops_total",
			Help: "Total number of record store operations.",
		}, []string{"table", "op", "status"}),

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "irrbot_http_requests_total",
			Help: "Total number of HTTP requests to the ops server.",
		}, []string{"method", "path_pattern", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "irrbot_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: httpDurationBuckets,
		}, []string{"method", "path_pattern"}),
	}

	reg.MustRegister(
		m.InteractionsTotal,
		m.InteractionDuration,
		m.ActiveSessions,
		m.SubmissionsTotal,
		m.ReviewsTotal,
		m.PendingSubmissions,
		m.StoreOpsTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)

	return m
}

// --- Recording helpers ---

// RecordInteraction records one handled interaction. The outcome is derived
// from err: user-facing errors are counted apart from failures.
func (m *Metrics) RecordInteraction(namespace, verb string, err error, duration time.Duration) {
	m.InteractionsTotal.WithLabelValues(namespace, verb, Outcome(err)).Inc()
	m.InteractionDuration.WithLabelValues(namespace).Observe(duration.Seconds())
}

// SetActiveSessions sets the number of questionnaires in progress.
func (m *Metrics) SetActiveSessions(n int) {
	m.ActiveSessions.Set(float64(n))
}

// RecordSubmission counts a completed questionnaire.
func (m *Metrics) RecordSubmission() {
	m.SubmissionsTotal.Inc()
}

// RecordReview counts a moderator decision.
func (m *Metrics) RecordReview(result model.ReviewResult) {
	m.ReviewsTotal.WithLabelValues(result.String()).Inc()
}

// SetPendingSubmissions sets the number of stored submissions.
func (m *Metrics) SetPendingSubmissions(n int) {
	m.PendingSubmissions.Set(float64(n))
}

// ObserveStoreOp counts a store operation. A NOT_FOUND result is an expected
// outcome and is labelled apart from errors.
func (m *Metrics) ObserveStoreOp(table, op string, err error) {
	status := "ok"
	switch {
	case err == nil:
	case model.IsNotFound(err):
		status = "not_found"
	default:
		status = "error"
	}
	m.StoreOpsTotal.WithLabelValues(table, op, status).Inc()
}

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(method, pathPattern string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, pathPattern, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, pathPattern).Observe(duration.Seconds())
}

// Outcome classifies an interaction result.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case model.IsUserFacing(err):
		return OutcomeUserError
	default:
		return OutcomeFailure
	}
}

// --- HTTP Middleware ---

// MetricsMiddleware returns HTTP middleware that records request metrics using
// chi's route pattern (not the actual URL path) to avoid label cardinality
// explosion.
func (m *Metrics) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		m.RecordHTTPRequest(r.Method, routePattern(r), sw.status, time.Since(start))
	})
}

// Handler returns the Prometheus HTTP handler for the given gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// routePattern extracts chi's route pattern from the request context.
// Falls back to the raw URL path if no pattern is found.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return r.URL.Path
	}
	pattern := strings.Join(rctx.RoutePatterns, "")
	pattern = strings.TrimSuffix(pattern, "/*")
	if pattern == "" {
		return r.URL.Path
	}
	return pattern
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.written {
		w.status = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.written = true
	return w.ResponseWriter.Write(b)
}
