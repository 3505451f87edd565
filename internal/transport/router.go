package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/pitabwire/irrbot/internal/observability"
	"github.com/pitabwire/irrbot/model"
)

// Dependencies holds all injected dependencies for the ops server. Metrics,
// Gatherer and Pending are optional.
type Dependencies struct {
	Logger      *zap.Logger
	Metrics     *observability.Metrics
	Gatherer    prometheus.Gatherer
	MetricsPath string
	Readiness   observability.ReadinessChecks
	Pending     func(ctx context.Context) ([]model.Submission, error)
}

// PendingSubmission is one entry of the /pending listing.
type PendingSubmission struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	Answers   int       `json:"answers"`
}

// NewRouter creates the ops router.
func NewRouter(deps Dependencies) chi.Router {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(Recovery(logger))
	r.Use(RequestID)
	r.Use(RequestLogging(logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.MetricsMiddleware)
	}

	r.Get("/health", observability.HandleHealth())
	r.Get("/ready", observability.HandleReady(deps.Readiness))

	if deps.Gatherer != nil {
		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, observability.Handler(deps.Gatherer))
	}
	if deps.Pending != nil {
		r.Get("/pending", handlePending(deps.Pending))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, model.NewNotFoundError("no such endpoint"))
	})
	return r
}

func handlePending(list func(ctx context.Context) ([]model.Submission, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subs, err := list(r.Context())
		if err != nil {
			observability.LoggerFrom(r.Context(), zap.NewNop()).Error("list pending submissions", zap.Error(err))
			WriteError(w, err)
			return
		}
		out := make([]PendingSubmission, len(subs))
		for i, sub := range subs {
			out[i] = PendingSubmission{
				ID:        sub.ID,
				UserID:    sub.UserID,
				CreatedAt: time.Unix(sub.CreatedAt, 0).UTC(),
				Answers:   len(sub.Questions),
			}
		}
		WriteJSON(w, http.StatusOK, map[string]any{"submissions": out})
	}
}
