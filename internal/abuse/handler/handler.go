// Package handler exposes operator endpoints for inspecting and
// forgiving rate limit state. The parent router must mount these
// behind the admin token middleware.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"otpgate/internal/abuse/models"
	"otpgate/internal/audit"
	"otpgate/internal/platform/privacy"
	"otpgate/internal/transport/http/shared"
	dErrors "otpgate/pkg/domain-errors"
	admintoken "otpgate/pkg/platform/middleware/admin"
	"otpgate/pkg/requestcontext"
)

// Service is the rate limit surface the admin endpoints consume.
type Service interface {
	ListForIdentity(ctx context.Context, identity string) ([]models.WindowStatus, error)
	ClearForIdentity(ctx context.Context, identity string) error
}

type Option func(*Handler)

func WithAuditPublisher(p audit.Publisher) Option {
	return func(h *Handler) {
		h.audit = p
	}
}

type Handler struct {
	service Service
	logger  *slog.Logger
	audit   audit.Publisher
}

func New(service Service, logger *slog.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{service: service, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterAdmin registers the admin routes with the chi router.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/rate-limits/{identity}", h.HandleListWindows)
	r.Delete("/admin/rate-limits/{identity}", h.HandleClearIdentity)
}

// HandleListWindows implements GET /admin/rate-limits/{identity}.
// Returns every live window for the identity across all routes.
func (h *Handler) HandleListWindows(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, err := pathIdentity(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	windows, err := h.service.ListForIdentity(ctx, identity)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list rate limit windows",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteSuccess(w, map[string]any{"windows": windows}, "")
}

// HandleClearIdentity implements DELETE /admin/rate-limits/{identity}.
// Forgives all throttling for the identity; the actor is audited.
func (h *Handler) HandleClearIdentity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, err := pathIdentity(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.service.ClearForIdentity(ctx, identity); err != nil {
		h.logger.ErrorContext(ctx, "failed to clear rate limits",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "rate limits cleared by operator",
		"identity", privacy.MaskEmail(identity),
		"actor", admintoken.GetAdminActor(ctx),
		"request_id", requestcontext.RequestID(ctx),
	)
	if h.audit != nil {
		event := audit.Event{
			Action:     "rate_limits_cleared",
			Subject:    privacy.MaskEmail(identity),
			Decision:   audit.DecisionAllowed,
			Reason:     "operator reset",
			RequestID:  requestcontext.RequestID(ctx),
			OccurredAt: requestcontext.Now(ctx),
		}
		if emitErr := h.audit.Emit(ctx, event); emitErr != nil {
			h.logger.WarnContext(ctx, "failed to emit audit event", "error", emitErr)
		}
	}

	shared.WriteSuccess(w, nil, "rate limits cleared")
}

func pathIdentity(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "identity")
	identity, err := url.PathUnescape(raw)
	if err != nil {
		identity = raw
	}
	identity = strings.ToLower(strings.TrimSpace(identity))
	if identity == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "identity is required").WithField("identity")
	}
	return identity, nil
}
