package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"otpgate/internal/otp/guard"
	"otpgate/internal/transport/http/shared"
	dErrors "otpgate/pkg/domain-errors"
	"otpgate/pkg/requestcontext"
)

// GuardService is one flow's guard engine.
type GuardService interface {
	SendCode(ctx context.Context, email string) (*guard.SendResult, error)
	VerifyCode(ctx context.Context, email, code string) error
}

type flowEntry struct {
	service GuardService
	// verifiedKey names the boolean set in a successful verify body;
	// sign-in reports "signedIn", the others "verified".
	verifiedKey string
}

// OtpHandler serves the send-otp and verify-otp endpoints for every
// registered flow. Unknown flow segments fall through to 404.
type OtpHandler struct {
	flows  map[string]flowEntry
	logger *slog.Logger
}

func NewOtpHandler(logger *slog.Logger) *OtpHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OtpHandler{
		flows:  make(map[string]flowEntry),
		logger: logger,
	}
}

// AddFlow mounts a guard engine under /auth/<name>/.
func (h *OtpHandler) AddFlow(name string, service GuardService, verifiedKey string) {
	if verifiedKey == "" {
		verifiedKey = "verified"
	}
	h.flows[name] = flowEntry{service: service, verifiedKey: verifiedKey}
}

// Register registers the OTP routes with the chi router.
func (h *OtpHandler) Register(r chi.Router) {
	r.Post("/auth/{flow}/send-otp", h.HandleSendOtp)
	r.Post("/auth/{flow}/verify-otp", h.HandleVerifyOtp)
}

type sendOtpRequest struct {
	Email  string `json:"email"`
	Resend bool   `json:"resend,omitempty"`
}

type verifyOtpRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// HandleSendOtp implements POST /auth/{flow}/send-otp.
//
// Input: { "email": "user@example.com", "resend": true }
// Output: 200 { cooldownSeconds } | 404 | 429 with Retry-After.
func (h *OtpHandler) HandleSendOtp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	entry, ok := h.flows[chi.URLParam(r, "flow")]
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, "unknown flow"))
		return
	}

	var req sendOtpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid JSON in request body"))
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "email is required").WithField("email"))
		return
	}

	res, err := entry.service.SendCode(ctx, req.Email)
	if err != nil {
		h.logDenied(ctx, "send-otp denied", err)
		shared.WriteError(w, err)
		return
	}

	message := "verification code sent"
	if req.Resend {
		message = "verification code resent"
	}
	shared.WriteSuccess(w, map[string]int{"cooldownSeconds": res.CooldownSeconds}, message)
}

// HandleVerifyOtp implements POST /auth/{flow}/verify-otp.
//
// Input: { "email": "user@example.com", "code": "042917" }
// Output: 200 | 400 | 404 | 429 with Retry-After (and resetFlow for
// the sign-in variant).
func (h *OtpHandler) HandleVerifyOtp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	entry, ok := h.flows[chi.URLParam(r, "flow")]
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, "unknown flow"))
		return
	}

	var req verifyOtpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid JSON in request body"))
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "email is required").WithField("email"))
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "code is required").WithField("code"))
		return
	}

	if err := entry.service.VerifyCode(ctx, req.Email, req.Code); err != nil {
		h.logDenied(ctx, "verify-otp denied", err)
		shared.WriteError(w, err)
		return
	}

	shared.WriteSuccess(w, map[string]bool{entry.verifiedKey: true}, "")
}

func (h *OtpHandler) logDenied(ctx context.Context, msg string, err error) {
	h.logger.InfoContext(ctx, msg,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
}
