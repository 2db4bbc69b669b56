package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/goaltracker/internal/api"
	"example.com/goaltracker/internal/auth"
	"example.com/goaltracker/internal/config"
	"example.com/goaltracker/internal/domain"
	"example.com/goaltracker/internal/outbox"
	"example.com/goaltracker/internal/persistence/memory"
	persistence "example.com/goaltracker/internal/persistence/postgres"
	httptransport "example.com/goaltracker/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := log.New(os.Stdout, "[api] ", log.LstdFlags)

	var (
		repo       domain.Repository
		opts       []api.Option
		dispatcher *outbox.Dispatcher
	)
	switch cfg.StoreDriver {
	case config.StoreMemory:
		logger.Printf("using in-memory store; records are lost on restart")
		repo = memory.NewRepository()
	default:
		pool := connectPostgres(ctx, cfg)
		defer pool.Close()

		pgRepo := persistence.NewRepository(pool)
		repo = pgRepo
		opts = append(opts, api.WithHealthCheck(pgRepo.Ping))

		if cfg.OutboxEnabled {
			producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
			defer producer.Close()

			registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL, cfg.SchemaRegistryUser, cfg.SchemaRegistryPassword)
			dispatcher = outbox.NewDispatcher(pool, producer, registry, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
			go dispatcher.Start(ctx)
		}
	}

	service := domain.NewService(repo,
		domain.WithLocation(cfg.Location()),
		domain.WithLogger(log.New(os.Stdout, "[activity] ", log.LstdFlags)),
	)

	handler := api.NewHandler(service, opts...)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	trusted, err := cfg.TrustedProxyPrefixes()
	if err != nil {
		logger.Fatalf("trusted proxies: %v", err)
	}
	ipLimiter := httptransport.NewRateLimiter(cfg.RateLimitIPRPS, cfg.RateLimitIPBurst, httptransport.WithTrustedProxies(trusted))
	go ipLimiter.Run(ctx)
	limiter := httptransport.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, httptransport.WithTrustedProxies(trusted))
	go limiter.Run(ctx)

	authMiddleware := auth.NewMiddleware(auth.Config{
		Secret: cfg.JWTSecret,
		Issuer: cfg.JWTIssuer,
		Leeway: cfg.JWTLeeway,
	})

	root := httptransport.Chain(mux,
		httptransport.CORS(cfg.CORSAllowedOrigins),
		httptransport.Instrument,
		httptransport.RequestLogger(logger),
		ipLimiter.WrapByIP,
		authMiddleware.Wrap,
		limiter.Wrap,
	)

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}, root)

	go func() {
		logger.Printf("goal tracker api listening on %s (store=%s, tz=%s)", cfg.HTTPAddress, cfg.StoreDriver, cfg.Location())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	}

	if dispatcher != nil {
		dispatcher.Wait()
	}
}

func connectPostgres(ctx context.Context, cfg config.Config) *pgxpool.Pool {
	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresURL)
	if err != nil {
		log.Fatalf("parse postgres url: %v", err)
	}
	if cfg.PostgresMaxConns > 0 {
		poolCfg.MaxConns = cfg.PostgresMaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	return pool
}
