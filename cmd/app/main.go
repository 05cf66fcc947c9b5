// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"viraliza-billing/internal/config"
	pg "viraliza-billing/internal/infra/db/postgres"
	"viraliza-billing/internal/infra/logging"
	"viraliza-billing/internal/infra/metrics"
	"viraliza-billing/internal/infra/payment"
	red "viraliza-billing/internal/infra/redis"
	"viraliza-billing/internal/infra/sched"
	"viraliza-billing/internal/infra/web"
	"viraliza-billing/internal/infra/worker"
	"viraliza-billing/internal/usecase"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logging, relaxed cookies)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection failed")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	txManager := pg.NewTxManager(pool)
	eventRepo := pg.NewWebhookEventRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	affiliateRepo := pg.NewAffiliateRepo(pool)
	referralRepo := pg.NewReferralRepo(pool)
	commissionRepo := pg.NewCommissionRepo(pool)
	settingsRepo := pg.NewSettingsRepoCacheDecorator(pg.NewSettingsRepo(pool), redisClient, cfg.Redis.TTL)
	planRepo := pg.NewPlanRepo(pool)
	toolAccessRepo := pg.NewToolAccessRepo(pool)
	activityRepo := pg.NewActivityRepo(pool)

	// ---- Payment gateway ----
	gateway, err := payment.NewStripeGateway(cfg.Stripe.SecretKey, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("stripe gateway init failed")
	}

	// ---- Use cases ----
	subUC := usecase.NewSubscriptionUseCase(subRepo, logger)
	commissionUC := usecase.NewCommissionUseCase(referralRepo, affiliateRepo, settingsRepo, commissionRepo, logger)
	webhookUC := usecase.NewWebhookUseCase(txManager, eventRepo, subUC, subRepo, commissionUC, toolAccessRepo, activityRepo, logger)
	checkoutUC := usecase.NewCheckoutUseCase(planRepo, gateway, cfg.Stripe.SuccessURL, cfg.Stripe.CancelURL, logger)
	affiliateUC := usecase.NewAffiliateUseCase(txManager, affiliateRepo, commissionRepo, logger)

	// ---- HTTP ----
	auth := web.NewAuthManager(cfg.Admin.JWTSecret, !cfg.Runtime.Dev, cfg.Admin.SessionTTL)
	srv := web.NewServer(
		webhookUC, checkoutUC, affiliateUC,
		eventRepo, subRepo, settingsRepo,
		cfg.Stripe.WebhookSecret, cfg.Admin.Password,
		auth, rateLimiter, logger,
	)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
			cancel()
		}
	}()

	// ---- Metrics ----
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", metricsServer.Addr).Msg("metrics listening")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}()

	// ---- Background workers ----
	workerPool := worker.NewPool(cfg.Scheduler.Workers, logger)
	workerPool.Start(ctx)
	expiry := sched.NewExpiryWorker(cfg.Scheduler.ExpiryInterval, subUC, logger)
	payout := sched.NewPayoutWorker(cfg.Scheduler.PayoutInterval, affiliateUC, locker, logger)
	_ = workerPool.Submit(expiry.Run)
	_ = workerPool.Submit(payout.Run)

	<-ctx.Done()
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}
	_ = metricsServer.Shutdown(shutdownCtx)
	workerPool.Stop()
	logger.Info().Msg("bye")
}
