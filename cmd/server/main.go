package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	config "github.com/avatarctic/email-verification-service/configs"
	"github.com/avatarctic/email-verification-service/internal/application/services"
	"github.com/avatarctic/email-verification-service/internal/core/ports"
	"github.com/avatarctic/email-verification-service/internal/infrastructure/db"
	"github.com/avatarctic/email-verification-service/internal/infrastructure/email"
	"github.com/avatarctic/email-verification-service/internal/infrastructure/health"
	"github.com/avatarctic/email-verification-service/internal/infrastructure/httpserver"
	"github.com/avatarctic/email-verification-service/internal/infrastructure/metrics"
	"github.com/avatarctic/email-verification-service/internal/infrastructure/notifier"
	"github.com/avatarctic/email-verification-service/internal/infrastructure/redis"
	"github.com/avatarctic/email-verification-service/internal/infrastructure/repositories"
	"github.com/avatarctic/email-verification-service/migrations"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logger := newLogger(cfg.Log)
	logger.Info("Starting email verification service...")

	// Initialize database (apply pool settings from config)
	database, err := db.NewDatabaseWithConfig(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database:", err)
	}
	defer database.Close()
	database.Logger = logger

	logger.Info("Connected to database successfully")

	if cfg.Database.MigrationsPath != "" {
		err = database.Migrate(cfg.Database.MigrationsPath)
	} else {
		err = database.MigrateFS(migrations.FS)
	}
	if err != nil {
		logger.Fatal("Failed to run migrations:", err)
	}

	hcSlice := []ports.HealthChecker{health.NewDBHealthChecker(database)}

	// Redis backs the token store and the optional user cache.
	var redisClient goredis.UniversalClient
	if cfg.Verification.TokenStore == config.TokenStoreRedis || cfg.Verification.UserCacheTTL > 0 {
		redisClient, err = redis.NewClient(&cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to Redis:", err)
		}
		defer redisClient.Close()
		hcSlice = append(hcSlice, health.NewRedisHealthChecker(redisClient))
		logger.Info("Connected to Redis successfully")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	verificationMetrics := metrics.NewVerificationMetrics(registry)

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	var tokenRepo ports.TokenRepository
	switch cfg.Verification.TokenStore {
	case config.TokenStorePostgres:
		dbTokenRepo := repositories.NewTokenDBRepository(database, cfg.Verification.TokensTable, logger)
		janitor := services.NewTokenJanitor(dbTokenRepo, cfg.Verification.PurgeInterval, cfg.Verification.TokenRetention, logger)
		go janitor.Run(rootCtx)
		tokenRepo = dbTokenRepo
	default:
		tokenRepo = repositories.NewTokenRedisRepository(redisClient, cfg.Verification.TokensTable, cfg.Verification.TokenRetention, logger)
	}

	userRepo := repositories.NewUserRepository(database, cfg.Verification.UsersTable, logger)
	if cfg.Verification.UserCacheTTL > 0 {
		userRepo = repositories.NewCachingUserRepository(userRepo, redis.NewRedisCache(redisClient, "verification"), cfg.Verification.UserCacheTTL, logger)
	}

	emailService, err := email.NewEmailService(&cfg.Email, logger)
	if err != nil {
		logger.Fatal("Failed to initialize email service:", err)
	}

	dispatcher := notifier.NewDispatcher(email.WelcomeNotifier{Email: emailService}, notifier.Config{
		Workers:   cfg.Notifier.Workers,
		QueueSize: cfg.Notifier.QueueSize,
		Timeout:   cfg.Notifier.Timeout,
	}, verificationMetrics, logger)
	hcSlice = append(hcSlice, dispatcher)

	issuer := services.NewTokenIssuer(tokenRepo, &services.IssuerConfig{
		AllowedOrigins: cfg.Verification.AllowedOrigins,
		DefaultOrigin:  cfg.Verification.FrontendURL,
		VerifyPath:     cfg.Verification.VerifyPath,
	}, verificationMetrics, logger)
	verifier := services.NewTokenVerifier(tokenRepo, userRepo, dispatcher, time.Now, verificationMetrics, logger)
	verificationService := services.NewVerificationService(issuer, verifier, emailService, logger)

	var serviceAuth ports.ServiceAuthenticator
	if cfg.Auth.InternalJWTSecret != "" {
		serviceAuth = services.NewServiceAuthService(cfg.Auth.InternalJWTSecret)
	} else {
		logger.Warn("INTERNAL_JWT_SECRET not set - token issuance routes are unauthenticated")
	}

	// Create server configuration
	serverConfig := &httpserver.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		TLSCertFile:    cfg.Server.TLSCertFile,
		TLSKeyFile:     cfg.Server.TLSKeyFile,
		AllowedOrigins: cfg.Verification.AllowedOrigins,
	}

	server := httpserver.NewServer(serverConfig, logger, httpserver.ServerDeps{
		VerificationService: verificationService,
		ServiceAuth:         serviceAuth,
		HealthCheckers:      hcSlice,
		Registry:            registry,
	})

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("HTTP server failed: ", err)
		}
	}()

	logger.WithFields(logrus.Fields{
		"token_store": cfg.Verification.TokenStore,
		"provider":    cfg.Email.Provider,
	}).Infof("Server started on %s:%s", cfg.Server.Host, cfg.Server.Port)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown: ", err)
	}
	// Drain pending welcome notifications after the last request finished.
	if err := dispatcher.Close(ctx); err != nil {
		logger.Warn("Welcome notifications still pending at shutdown: ", err)
	}

	logger.Info("Server exited")
}

func newLogger(cfg config.LogConfig) *logrus.Logger {
	logger := logrus.New()
	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}
	return logger
}
