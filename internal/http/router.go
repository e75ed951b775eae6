package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/atendo/booking-core/internal/config"
	"github.com/atendo/booking-core/internal/http/features/confirm"
	"github.com/atendo/booking-core/internal/http/features/email"
	"github.com/atendo/booking-core/internal/http/features/schedules"
	"github.com/atendo/booking-core/internal/http/middleware"
	"github.com/atendo/booking-core/internal/httputil"
	"github.com/atendo/booking-core/internal/notification"
	"github.com/atendo/booking-core/pkg/flow"
	"github.com/atendo/booking-core/pkg/repository"
	"github.com/atendo/booking-core/pkg/schedule"
	"github.com/atendo/booking-core/pkg/token"
	"github.com/go-chi/chi/v5"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger               *slog.Logger
	Flow                 *flow.Controller
	ScheduleService      *schedule.Service
	TokenService         *token.Service
	UsersRepo            *repository.UsersRepository
	TenantsRepo          *repository.TenantsRepository
	EmailService         *notification.EmailService
	Links                notification.LinkBuilder
	JWTSecret            []byte
	JWTIssuer            string
	EmailVerificationTTL time.Duration
	AppointmentTokenTTL  time.Duration
	RateLimitConfig      config.RateLimitConfig
	SecurityHeaders      config.SecurityHeadersConfig
	MaxRequestBodySize   int64
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders(cfg.SecurityHeaders))
	r.Use(middleware.RequestSizeLimit(cfg.MaxRequestBodySize))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Create rate limiters for different endpoint types
	rateLimiters := middleware.CreateRateLimiters(cfg.RateLimitConfig, cfg.Logger)

	authMiddleware := middleware.Auth(cfg.JWTSecret, cfg.JWTIssuer)

	// Public confirmation endpoints. The tenant is resolved from the
	// request host (or X-Tenant header) before any token is touched.
	confirmHandler := confirm.NewHandler(cfg.Logger, cfg.Flow)
	r.Group(func(r chi.Router) {
		r.Use(rateLimiters["public"])
		r.Use(middleware.ResolveTenant(cfg.TenantsRepo))
		confirmHandler.RegisterRoutes(r)
	})

	// Authenticated scheduling API. The mailer stays a nil interface
	// when SMTP is not configured, so the handler can test for it.
	var mailer schedules.Mailer
	if cfg.EmailService != nil {
		mailer = cfg.EmailService
	}
	schedulesHandler := schedules.NewHandler(
		cfg.Logger,
		cfg.ScheduleService,
		cfg.TokenService,
		mailer,
		cfg.Links,
		cfg.AppointmentTokenTTL,
	)
	r.Group(func(r chi.Router) {
		r.Use(rateLimiters["api"])
		schedulesHandler.RegisterRoutes(r, authMiddleware)
	})

	// Email verification management (if email service is configured)
	if cfg.EmailService != nil {
		emailHandler := email.NewHandler(
			cfg.Logger,
			cfg.UsersRepo,
			cfg.TokenService,
			cfg.EmailService,
			cfg.Links,
			cfg.EmailVerificationTTL,
		)
		r.Group(func(r chi.Router) {
			r.Use(rateLimiters["api"])
			r.Use(authMiddleware)
			emailHandler.RegisterRoutes(r)
		})
	}

	return r
}
