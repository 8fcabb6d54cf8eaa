// Package webhookhttp is the HTTP boundary: it receives webhook form posts,
// runs the receive firewall and enqueues accepted submissions. It never
// processes submissions inline.
package webhookhttp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"hookbridge/internal/faults"
	"hookbridge/internal/firewall"
	"hookbridge/internal/health"
	"hookbridge/internal/platform/metrics"
	"hookbridge/internal/platform/middleware"
	"hookbridge/internal/queue"
	"hookbridge/internal/submission"
)

// Enqueuer is the slice of the queue the handler needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, name string, sub submission.Submission) (uuid.UUID, error)
}

// Reporter produces diagnostics for the operator endpoint.
type Reporter interface {
	Report(ctx context.Context) ([]health.Condition, error)
}

// Handler handles the webhook receive and diagnostics endpoints.
type Handler struct {
	logger       *slog.Logger
	firewall     *firewall.Firewall
	queue        Enqueuer
	reporter     Reporter
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

func New(
	fw *firewall.Firewall,
	q Enqueuer,
	reporter Reporter,
	logger *slog.Logger,
	m *metrics.Metrics,
	jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		firewall:     fw,
		queue:        q,
		reporter:     reporter,
		metrics:      m,
		jwtValidator: jwtValidator,
	}
}

// Register registers all routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Use(middleware.Recovery(h.logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(h.logger))

	r.Post("/webhook", h.handleReceive)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Get("/diagnostics", h.handleDiagnostics)
	})
}

// handleReceive validates and enqueues one webhook delivery. The work itself
// happens later, in the queue runner, so the sender gets a fast answer no
// matter how slow the downstream stores are.
func (h *Handler) handleReceive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		h.logger.WarnContext(ctx, "webhook dropped, unparsable form body",
			"error", err.Error(),
			"request_id", middleware.GetRequestID(ctx),
		)
		h.metrics.IncRejected(string(faults.CategoryValidation))
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	sub := submission.Submission{}
	for key := range r.PostForm {
		sub[key] = r.PostForm.Get(key)
	}

	if err := h.firewall.Apply(sub); err != nil {
		category := faults.CategoryOf(err)
		// The rejected payload is the forensic record; the secret never
		// survives the firewall so it is safe to log here only because
		// rejection happens before or at the secret check.
		h.logger.WarnContext(ctx, "webhook dropped",
			"error", err.Error(),
			"category", string(category),
			"payload", sub.JSON(),
			"request_id", middleware.GetRequestID(ctx),
		)
		h.metrics.IncRejected(string(category))
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if _, err := h.queue.Enqueue(ctx, queue.Primary, sub); err != nil {
		h.logger.ErrorContext(ctx, "failed to enqueue webhook",
			"error", err.Error(),
			"request_id", middleware.GetRequestID(ctx),
		)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if h.metrics != nil {
		h.metrics.WebhooksReceived.Inc()
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type diagnosticsResponse struct {
	Healthy    bool               `json:"healthy"`
	Conditions []health.Condition `json:"conditions"`
}

func (h *Handler) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	h.logger.InfoContext(ctx, "diagnostics requested",
		"operator", middleware.GetOperator(ctx),
		"request_id", middleware.GetRequestID(ctx),
	)

	conditions, err := h.reporter.Report(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "diagnostics report failed",
			"error", err.Error(),
			"request_id", middleware.GetRequestID(ctx),
		)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(diagnosticsResponse{
		Healthy:    len(conditions) == 0,
		Conditions: conditions,
	})
}
