package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atendo/booking-core/internal/config"
	"github.com/atendo/booking-core/internal/notification"
	"github.com/atendo/booking-core/pkg/audit"
	"github.com/atendo/booking-core/pkg/domain"
	"github.com/atendo/booking-core/pkg/flow"
	"github.com/atendo/booking-core/pkg/repository"
	"github.com/atendo/booking-core/pkg/schedule"
	"github.com/atendo/booking-core/pkg/token"
	"github.com/joho/godotenv"
	httpserver "github.com/atendo/booking-core/internal/http"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Connect to database
	db, err := repository.NewDB(repository.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	logger.Info("connected to database")

	// Initialize repositories
	tenantsRepo := repository.NewTenantsRepository(db)
	usersRepo := repository.NewUsersRepository(db)
	appointmentsRepo := repository.NewAppointmentsRepository(db)
	tokensRepo := repository.NewConfirmationTokensRepository(db)

	// Initialize services
	clock := domain.SystemClock()
	tokenService := token.NewService(tokensRepo, clock, audit.NewLogger(logger))
	scheduleService := schedule.NewService(appointmentsRepo, schedule.NewStatusMachine(clock), clock, logger)
	flowController := flow.NewController(tokenService, scheduleService, usersRepo, logger)

	// Initialize email service if configured
	var emailService *notification.EmailService
	if cfg.HasSMTP() {
		emailService = notification.NewEmailService(notification.EmailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
		})
		logger.Info("email service enabled")
	}

	// Create router
	router := httpserver.NewRouter(httpserver.RouterConfig{
		Logger:               logger,
		Flow:                 flowController,
		ScheduleService:      scheduleService,
		TokenService:         tokenService,
		UsersRepo:            usersRepo,
		TenantsRepo:          tenantsRepo,
		EmailService:         emailService,
		Links:                notification.NewLinkBuilder(cfg.AppBaseURL),
		JWTSecret:            []byte(cfg.JWTSecret),
		JWTIssuer:            cfg.JWTIssuer,
		EmailVerificationTTL: cfg.EmailVerificationTTL,
		AppointmentTokenTTL:  cfg.AppointmentTokenTTL,
		RateLimitConfig:      cfg.RateLimit,
		SecurityHeaders:      cfg.SecurityHeaders,
		MaxRequestBodySize:   cfg.MaxRequestBodySize,
	})

	// Background sweeper for expired tokens
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go sweepTokens(sweepCtx, logger, tokenService, cfg.TokenSweepInterval)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.ServerAddr, cfg.ServerPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	stopSweep()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}

// sweepTokens periodically deletes expired, unconsumed tokens.
// Expired rows are already rejected on lookup, so the sweep only keeps
// the table from growing without bound.
func sweepTokens(ctx context.Context, logger *slog.Logger, tokens *token.Service, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := tokens.Sweep(ctx, time.Now())
			if err != nil {
				logger.Error("token sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				logger.Info("swept expired tokens", "count", removed)
			}
		}
	}
}
