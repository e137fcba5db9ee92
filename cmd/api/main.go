package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"notes-console/internal/config"
	"notes-console/internal/db"
	"notes-console/internal/email"
	apihttp "notes-console/internal/http"
	"notes-console/internal/metrics"
	"notes-console/internal/repository"
	"notes-console/internal/service"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if cfg.RunMigrations {
		if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
			logger.Fatal("db migrate", zap.Error(err))
		}
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal("analytics location", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewCollector(registry)

	userRepo := repository.NewPgUserRepository(pool)
	profileRepo := repository.NewPgProfileRepository(pool)
	noteRepo := repository.NewPgNoteRepository(pool)

	emailSender := email.NewDisabledSender("email sender not configured")
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(email.SMTPConfig{
			Host:        cfg.SMTPHost,
			Port:        cfg.SMTPPort,
			Username:    cfg.SMTPUser,
			Password:    cfg.SMTPPass,
			From:        cfg.SMTPFrom,
			FromName:    cfg.SMTPFromName,
			ImplicitTLS: cfg.SMTPUseTLS,
		})
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}

	loginWindow := time.Duration(cfg.LoginWindowMinutes) * time.Minute
	var (
		loginLimiter = service.NewLoginRateLimiter(loginWindow, cfg.LoginMaxAttempts)
		tokenStore   service.RefreshTokenStore
		identityFeed = service.NewMemoryIdentityFeed()
		redisClient  *redis.Client
	)
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-memory session plumbing", zap.Error(err))
		} else {
			loginLimiter = service.NewRedisLoginRateLimiter(redisClient, loginWindow, cfg.LoginMaxAttempts)
			tokenStore = service.NewRedisRefreshTokenStore(redisClient)
			identityFeed = service.NewRedisIdentityFeed(redisClient, logger)
		}
		cancel()
	}

	refreshTTL := time.Duration(cfg.JWTRefreshTTLMinutes) * time.Minute
	jwtSvc := service.NewJWTServiceWithStore(
		cfg.JWTSecret,
		time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute,
		refreshTTL,
		tokenStore,
	)
	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}

	authSvc := service.NewAuthService(logger, userRepo)
	sessions := service.NewSessionContext(logger, authSvc, identityFeed, profileRepo, jwtSvc, loginLimiter, recorder, emailSender,
		service.SessionContextConfig{
			AdminEmail:     cfg.AdminEmail,
			EnforceStatus:  cfg.EnforceProfileStatus,
			EndedRetention: refreshTTL,
		})
	if err := sessions.Init(ctx); err != nil {
		logger.Fatal("session context init", zap.Error(err))
	}
	defer sessions.Teardown()

	deletion := service.NewAccountDeletion(logger, profileRepo, noteRepo, sessions, emailSender, recorder, cfg.AccountOrphanPolicy)
	adminSvc := service.NewAdminService(logger, profileRepo, noteRepo, recorder)
	analyticsSvc := service.NewAnalyticsService(noteRepo, loc, cfg.AnalyticsDateLayout, cfg.StorageQuotaMB)
	settingsSvc := service.NewSettingsService(logger, profileRepo, deletion, recorder)

	rateLimiter := apihttp.NewClientRateLimiter(logger, cfg.RateLimitRPS, cfg.RateLimitBurst, 5*time.Minute)
	defer rateLimiter.Stop()

	router := apihttp.NewRouter(apihttp.RouterDeps{
		Logger:      logger,
		Metrics:     recorder,
		MetricsHTTP: metrics.Handler(registry),
		RateLimiter: rateLimiter,
		JWT:         jwtSvc,
		Sessions:    sessions,
		Ready: func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return db.Ping(pingCtx, pool)
		},
		Auth:      apihttp.NewAuthHandler(logger, sessions),
		Admin:     apihttp.NewAdminHandler(logger, adminSvc),
		Analytics: apihttp.NewAnalyticsHandler(logger, analyticsSvc),
		Settings:  apihttp.NewSettingsHandler(logger, settingsSvc),
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
}
