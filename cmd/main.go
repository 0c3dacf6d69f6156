package main

import (
	"context"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/duynhne/account-service/config"
	"github.com/duynhne/account-service/internal/auth"
	database "github.com/duynhne/account-service/internal/core"
	"github.com/duynhne/account-service/internal/core/domain"
	"github.com/duynhne/account-service/internal/core/repository/memory"
	"github.com/duynhne/account-service/internal/core/repository/psql"
	"github.com/duynhne/account-service/internal/core/repository/redisstore"
	logicv1 "github.com/duynhne/account-service/internal/logic/v1"
	v1 "github.com/duynhne/account-service/internal/web/v1"
	"github.com/duynhne/account-service/middleware"
)

// stores are the persistence backends selected by configuration.
type stores struct {
	accounts domain.AccountRepository
	userData domain.StorageService
	recovery domain.RecoveryTokenStore
	closers  []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func main() {
	// Load configuration from environment variables (with .env file support for local dev)
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		panic("Configuration validation failed: " + err.Error())
	}

	// Initialize structured logger
	logger, err := middleware.NewLogger(cfg.Logging)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	logger.Info("Service starting",
		zap.String("service", cfg.Service.Name),
		zap.String("version", cfg.Service.Version),
		zap.String("env", cfg.Service.Env),
		zap.String("port", cfg.Service.Port),
	)

	// Initialize OpenTelemetry tracing with centralized config
	var tp *sdktrace.TracerProvider
	if cfg.Tracing.Enabled {
		tp, err = middleware.InitTracing(cfg)
		if err != nil {
			logger.Warn("Failed to initialize tracing", zap.Error(err))
		} else {
			logger.Info("Tracing initialized",
				zap.String("endpoint", cfg.Tracing.Endpoint),
				zap.Float64("sample_rate", cfg.Tracing.SampleRate),
			)
		}
	} else {
		logger.Info("Tracing disabled (TRACING_ENABLED=false)")
	}

	// Initialize Pyroscope profiling
	if cfg.Profiling.Enabled {
		if err := middleware.InitProfiling(cfg, logger); err != nil {
			logger.Warn("Failed to initialize profiling", zap.Error(err))
		} else {
			logger.Info("Profiling initialized",
				zap.String("endpoint", cfg.Profiling.Endpoint),
			)
			defer middleware.StopProfiling()
		}
	} else {
		logger.Info("Profiling disabled (PROFILING_ENABLED=false)")
	}

	st, err := openStores(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open stores", zap.Error(err))
	}
	defer st.close()

	// Identity and screens
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)
	accounts := logicv1.NewAccountService(logicv1.AccountDeps{
		Accounts:       st.accounts,
		Recovery:       st.recovery,
		Hasher:         auth.NewPasswordHasher(cfg.Auth.Argon2Memory, cfg.Auth.Argon2Time, cfg.Auth.Argon2Parallelism),
		Tokens:         tokens,
		Mailer:         newMailer(cfg.Mail, logger),
		GoogleClientID: cfg.Google.ClientID,
		RecoveryTTL:    cfg.Auth.RecoveryTTL,
		Logger:         logger,
	})

	var provider domain.CredentialProvider
	if cfg.Google.Enabled() {
		provider = auth.NewGoogleProvider(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL)
		logger.Info("Federated sign-in enabled", zap.String("provider", domain.AuthMethodGoogle))
	} else {
		logger.Info("Federated sign-in disabled (GOOGLE_CLIENT_ID not set)")
	}

	screens := logicv1.NewScreens(cfg.Screens.TTL, logicv1.ScreenDeps{
		Identity: accounts,
		Storage:  st.userData,
		Provider: provider,
		Profile:  logicv1.ProfileOptions{OptimisticNotice: cfg.Profile.OptimisticNotice},
		Logger:   logger,
	})

	r := gin.Default()

	var isShuttingDown atomic.Bool

	// Tracing middleware (must be first for context propagation)
	r.Use(middleware.TracingMiddleware())

	// Logging middleware (must be before Prometheus middleware)
	r.Use(middleware.LoggingMiddleware(logger))

	// Prometheus middleware
	r.Use(middleware.PrometheusMiddleware())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Readiness check
	// Returns 503 once shutdown has started, to drain traffic before HTTP shutdown.
	r.GET("/ready", func(c *gin.Context) {
		if isShuttingDown.Load() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "shutting_down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Metrics endpoint
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	v1.RegisterRoutes(r,
		v1.NewAccountHandler(accounts),
		v1.NewScreenHandler(screens),
		middleware.AuthMiddleware(tokens, logger),
	)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Service.Port,
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting account service", zap.String("port", cfg.Service.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown - modern signal handling with context
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Wait for shutdown signal
	<-ctx.Done()
	logger.Info("Shutdown signal received")

	isShuttingDown.Store(true)
	drainDelay := cfg.GetReadinessDrainDelayDuration()
	if drainDelay > 0 {
		logger.Info("Readiness drain delay started", zap.Duration("delay", drainDelay))
		time.Sleep(drainDelay)
		logger.Info("Readiness drain delay completed", zap.Duration("delay", drainDelay))
	}

	// Shutdown context with configurable timeout
	shutdownTimeout := cfg.GetShutdownTimeoutDuration()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("Shutting down server...", zap.Duration("timeout", shutdownTimeout))

	// Cleanup order: HTTP Server → Screens → Stores → Tracer

	// 1. Shutdown HTTP server (stop accepting new connections, wait for in-flight requests)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		logger.Info("HTTP server shutdown complete")
	}

	// 2. End live screens so their subscriptions release database connections
	screens.Close()
	logger.Info("Screens closed")

	// 3. Close database and redis connections
	st.close()
	st.closers = nil
	logger.Info("Stores closed")

	// 4. Shutdown tracer (flush pending spans)
	if tp != nil {
		if err := middleware.ShutdownTracing(shutdownCtx, tp); err != nil {
			logger.Error("Tracer shutdown error", zap.Error(err))
		} else {
			logger.Info("Tracer shutdown complete")
		}
	}

	logger.Info("Graceful shutdown complete")
}

// openStores connects to postgres when DB_HOST is set and to redis when
// REDIS_ADDR is set. Anything not configured falls back to process memory.
func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, error) {
	mem := memory.NewStore()
	st := &stores{accounts: mem, userData: mem, recovery: mem}

	if cfg.Database.Host != "" {
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, pool.Close)
		st.accounts = psql.NewAccountRepository(pool)
		userData := psql.NewUserDataRepository(pool, logger)
		st.closers = append(st.closers, userData.Close)
		st.userData = userData
		logger.Info("Database connection pool established")
	} else {
		logger.Warn("DB_HOST not set, using in-memory storage")
	}

	if cfg.Redis.Addr != "" {
		client, err := database.ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			st.close()
			return nil, err
		}
		st.closers = append(st.closers, func() { _ = client.Close() })
		st.recovery = redisstore.NewRecoveryStore(client)
		logger.Info("Redis connected", zap.String("addr", cfg.Redis.Addr))
	} else {
		logger.Warn("REDIS_ADDR not set, recovery tokens kept in memory")
	}

	return st, nil
}

func newMailer(cfg config.MailConfig, logger *zap.Logger) domain.Mailer {
	if cfg.SMTPHost == "" {
		return logicv1.NewLogMailer(logger, cfg.ResetURL)
	}
	return logicv1.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.From, cfg.ResetURL)
}
