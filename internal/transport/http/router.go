// Package httptransport assembles the HTTP surface: the per-flow OTP
// guard endpoints, operator endpoints, health and metrics.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	abusehandler "otpgate/internal/abuse/handler"
	"otpgate/internal/platform/config"
	"otpgate/internal/platform/health"
	"otpgate/internal/platform/metrics"
	"otpgate/internal/platform/middleware"
	admintoken "otpgate/pkg/platform/middleware/admin"
	"otpgate/pkg/platform/middleware/metadata"
)

// RouterDeps carries everything the router mounts.
type RouterDeps struct {
	Config  *config.Server
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Health  *health.Handler
	Otp     *OtpHandler
	Admin   *abusehandler.Handler
}

// NewRouter builds the chi router with the full middleware chain.
func NewRouter(deps RouterDeps) chi.Router {
	r := chi.NewRouter()

	clientMeta := metadata.NewMiddleware(&metadata.Config{
		TrustedProxies: metadata.ParsePrefixes(deps.Config.TrustedProxies),
	})

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(clientMeta.Handler)
	r.Use(middleware.Logger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}
	r.Use(middleware.Timeout(30 * time.Second))

	if deps.Health != nil {
		deps.Health.Register(r)
	}
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		deps.Otp.Register(r)
	})

	if deps.Admin != nil {
		r.Group(func(r chi.Router) {
			r.Use(admintoken.RequireAdminToken(deps.Config.AdminJWTKey, deps.Logger))
			deps.Admin.RegisterAdmin(r)
		})
	}

	return r
}
