package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"moveo/config"
	"moveo/cron"
	"moveo/handlers"
	"moveo/middleware"
	"moveo/routes"
	"moveo/services/attribution"
	"moveo/services/blacklist"
	"moveo/services/booking"
	"moveo/services/geo"
	"moveo/services/notification"
	"moveo/services/provider"
	"moveo/services/tasks"
	"moveo/tracing"
	"moveo/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const sweepBatchSize = 100

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: failed to load config: %v", err)
	}
	logger, err := utils.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("main: failed to build logger: %v", err)
	}
	utils.SetLogger(logger)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.TracingEnabled {
		shutdownTracer, err := tracing.InitTracer("moveo", os.Stdout, logger)
		if err != nil {
			logger.Sugar().Fatalf("main: failed to initialize tracing: %v", err)
		}
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = shutdownTracer(shutdownCtx)
		}()
	}

	// storage.
	stores, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to open %s store: %v", cfg.StoreBackend, err)
	}
	defer stores.Close()
	checks := stores.HealthChecks()

	// redis: sweep lock, deadline tasks and the notification queue.
	infra, err := openQueueInfra(ctx, cfg, logger)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to connect to redis: %v", err)
	}
	defer infra.Close()
	if infra.Enabled() {
		checks["redis"] = func(ctx context.Context) error { return infra.LockClient.Ping(ctx).Err() }
	}

	// notification transport.
	var pushSender notification.Sender = notification.NewLogSender(logger)
	if cfg.FirebaseCredentialsFile != "" {
		messagingClient, err := notification.NewFirebaseMessaging(ctx, cfg.FirebaseCredentialsFile)
		if err != nil {
			logger.Sugar().Fatalf("main: failed to initialize firebase messaging: %v", err)
		}
		pushSender = notification.NewFCMSender(messagingClient, stores.Providers, logger)
	}
	engineSender := pushSender
	if cfg.NotifyTransport == config.TransportAsynq {
		engineSender = notification.NewAsynqSender(infra.Client)
	}
	dispatcher := notification.NewAsyncDispatcher(engineSender, cfg.NotifyQueueSize, cfg.NotifyWorkers, logger)
	defer dispatcher.Close()

	// services.
	guard := blacklist.NewGuard(stores.Blacklist, cfg.BlacklistThreshold, logger)
	matcher := geo.NewMatcher(stores.Providers, guard, logger)
	deps := attribution.Dependencies{
		Attributions: stores.Attributions,
		Responses:    stores.Eligibility,
		Requests:     stores.ServiceRequests,
		Matcher:      matcher,
		Blacklist:    guard,
		Notifier:     dispatcher,
	}
	if infra.Enabled() {
		deps.Deadlines = tasks.NewDeadlineScheduler(infra.Client)
	}
	coordinator := attribution.NewCoordinator(deps, attribution.Config{
		TTL:                  cfg.AttributionTTL,
		DefaultMaxDistanceKm: cfg.DefaultMaxDistanceKm,
	}, logger)

	// background jobs.
	var locker utils.Locker
	if infra.Enabled() {
		locker = utils.NewRedisLocker(infra.LockClient)
		worker := cron.NewWorker(infra.QueueOpt, pushSender, coordinator, logger)
		go func() {
			if err := worker.Run(ctx); err != nil {
				logger.Error("main: worker exited", zap.Error(err))
			}
		}()
	}
	sweeper, err := cron.NewSweeper(coordinator, locker, cfg.ExpirySweepSchedule, sweepBatchSize, logger)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to schedule expiry sweep: %v", err)
	}
	go sweeper.Start(ctx)

	monitor := utils.NewHealthMonitor(checks, 30*time.Second)
	go monitor.Run(ctx)

	// Create the Gin router.
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(utils.ErrorHandler())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.RateLimitMiddleware(cfg.MaxRequestsPerMin))

	handlerBundle := handlers.NewHandlerBundle(handlers.BundleDeps{
		Service:             coordinator,
		Matcher:             matcher,
		Blacklist:           guard,
		Providers:           stores.Providers,
		ProviderService:     provider.NewDefaultProviderService(stores.Providers, logger),
		RequestService:      booking.NewDefaultServiceRequestService(stores.ServiceRequests, logger),
		Tokens:              utils.NewTokenIssuer(cfg.JWTSecret),
		Health:              monitor,
		StripeWebhookSecret: cfg.StripeWebhookSecret,
	})
	routes.RegisterRoutes(router, handlerBundle)

	// Start the HTTP server.
	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("main: server forced to shutdown", zap.Error(err))
	}
	cancel()

	logger.Sugar().Info("main: server stopped gracefully")
}
