package cmd

import (
	"context"
	"fmt"
	"time"

	"wingman/archive"
	"wingman/auth"
	"wingman/cache"
	"wingman/chain"
	"wingman/config"
	"wingman/database"
	"wingman/events"
	"wingman/notify"
	"wingman/observability"
	"wingman/repository"
	"wingman/scheduler"
	"wingman/server"
	"wingman/service"

	log "github.com/sirupsen/logrus"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	cfg := config.Get()
	cfg.ConfigureLogging()

	log.WithField("environment", cfg.Environment).Info("Starting wingman...")

	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.RunMigrationsWithURL(cfg.GetDatabaseURL()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	eventBus := events.NewBus()

	// Metrics are registered first so they count every event
	metrics := observability.NewMetricsProvider(cfg)
	if err := metrics.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	metrics.Register(eventBus)

	var (
		locker   service.Locker
		verifier service.DepositVerifier
		limiter  server.RateLimiter
	)

	if cfg.RedisAddr != "" {
		redisClient, err := cache.NewClient(ctx, cache.ClientConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer redisClient.Close()

		locker = cache.NewLocker(redisClient)
		limiter = cache.NewRateLimiter(redisClient)
	} else {
		log.Warn("REDIS_ADDR not set, settlement locks and rate limiting disabled")
	}

	if cfg.NATSServers != "" {
		natsClient := events.NewNATSClient(cfg.NATSServers)
		if err := natsClient.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer func() {
			if err := natsClient.Close(); err != nil {
				log.WithError(err).Error("Error closing NATS connection")
			}
		}()
		events.NewNATSForwarder(natsClient).Register(eventBus)
	}

	if cfg.ChainRPCURL != "" {
		escrow, err := chain.Dial(ctx, chain.Config{
			RPCURL:        cfg.ChainRPCURL,
			EscrowAddress: cfg.ChainEscrowAddress,
			PrivateKey:    cfg.ChainPrivateKey,
			TokenDecimals: cfg.TokenDecimals,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to escrow contract: %w", err)
		}
		verifier = escrow
		escrow.Register(eventBus)
	} else {
		log.Warn("CHAIN_RPC_URL not set, bet deposits are not verified on chain")
	}

	if cfg.S3Bucket != "" {
		settlementArchive, err := archive.New(ctx, archive.Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			return fmt.Errorf("failed to create settlement archive: %w", err)
		}
		settlementArchive.Register(eventBus)
	}

	if cfg.DiscordWebhookURL != "" {
		announcer, err := notify.NewAnnouncer(cfg.DiscordWebhookURL)
		if err != nil {
			return fmt.Errorf("failed to create discord announcer: %w", err)
		}
		announcer.Register(eventBus)
	}

	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)
	service.NewNotificationWriter(uowFactory).Register(eventBus)

	userService := service.NewUserService(uowFactory, cfg)
	friendService := service.NewFriendService(uowFactory, cfg)
	matchService := service.NewMatchService(uowFactory, cfg)
	marketService := service.NewMarketService(uowFactory, cfg, locker, verifier)
	vouchService := service.NewVouchService(uowFactory, cfg)
	notificationService := service.NewNotificationService(uowFactory)

	deps := server.Deps{
		Config:        cfg,
		Users:         userService,
		Friends:       friendService,
		Matches:       matchService,
		Markets:       marketService,
		Vouches:       vouchService,
		Notifications: notificationService,
		Limiter:       limiter,
		Metrics:       metrics,
	}
	if cfg.AuthJWTSecret != "" {
		deps.Verifier = auth.NewJWT(cfg.AuthJWTSecret, cfg.AuthJWTIssuer)
	} else {
		log.Warn("AUTH_JWT_SECRET not set, trusting the X-User-ID header")
	}

	runner := scheduler.New(ctx)
	if _, err := runner.Add(cfg.ExpirySchedule, scheduler.MarketExpiryJob(marketService)); err != nil {
		return fmt.Errorf("failed to schedule market expiry: %w", err)
	}
	runner.Start()

	httpServer := server.New(cfg.HTTPAddr, server.NewRouter(deps))
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- httpServer.Start()
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			runner.Stop()
			return err
		}
	}

	log.Info("Shutting down...")

	// Give in-flight requests and jobs time to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down HTTP server")
	}
	runner.Stop()
	if err := metrics.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down metrics")
	}

	log.Info("Shutdown completed")
	return nil
}
