package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	c "github.com/fjod/medmarket/internal/cache"
	"github.com/fjod/medmarket/internal/catalog"
	"github.com/fjod/medmarket/internal/config"
	"github.com/fjod/medmarket/internal/events"
	"github.com/fjod/medmarket/internal/format"
	"github.com/fjod/medmarket/internal/metrics"
	h "github.com/fjod/medmarket/internal/http"
	"github.com/fjod/medmarket/internal/poller"
	"github.com/fjod/medmarket/internal/repository"
	s "github.com/fjod/medmarket/internal/service"
	"github.com/fjod/medmarket/pkg/circuitbreaker"
	"github.com/fjod/medmarket/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.Console("info")
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}
	log := logger.New(cfg.LogLevel, os.Stdout).With().Str("service", "medmarket").Logger()

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	ctx := context.Background()

	// MongoDB
	mongoDB, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	repo := repository.NewMongoRepository(mongoDB)
	if err := repository.EnsureIndexes(ctx, repo); err != nil {
		log.Fatal().Err(err).Msg("failed to create cart indexes")
	}
	log.Info().Str("db", cfg.MongoDBName).Msg("connected to MongoDB")

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	log.Info().Str("addr", cfg.RedisAddr).Msg("redis ping succeeded")
	cache := c.NewRedisCache(redisClient, cfg.CacheTTL)

	// Catalog
	catalogRepo, err := catalog.NewRepository(cfg.CatalogDBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open catalog")
	}
	defer catalogRepo.Close()
	if err := catalogRepo.RunMigrations(cfg.CatalogMigrations); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate catalog")
	}
	breaker := circuitbreaker.DefaultSettings("catalog")
	breaker.Timeout = cfg.BreakerTimeout
	breaker.ConsecutiveFailures = cfg.BreakerFailures
	products := catalog.NewGuarded(catalogRepo, breaker, log)

	// Kafka
	var publisher s.EventPublisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.CartChangedTopic, cfg.KafkaBrokers...)
		defer kp.Close()
		publisher = kp
	} else {
		log.Warn().Msg("KAFKA_BROKERS not set, cart events are not published")
	}

	service := s.NewCartService(repo, cache, products, publisher, log)

	// HTTP
	m := metrics.New(nil)
	f := format.New()
	router := h.NewRouter(
		h.NewCartHandler(service, f, cfg.RequestTimeout, log),
		h.NewProductHandler(products, f, cfg.RequestTimeout, log),
		cfg.RequestTimeout,
		log,
		m,
	)
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type", h.UserIDHeader, h.RequestIDHeader},
		ExposedHeaders: []string{h.RequestIDHeader},
	}).Handler(router)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(corsHandler, "medmarket.http"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// gRPC health
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to listen")
	}
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	// Enable reflection for grpcurl/grpcui
	reflection.Register(grpcServer)

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()
	go func() {
		log.Info().Str("port", cfg.GRPCPort).Msg("grpc health server listening")
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatal().Err(err).Msg("failed to serve grpc")
		}
	}()

	// Pollers
	pollCtx, stopPollers := context.WithCancel(ctx)
	var wg sync.WaitGroup
	if len(cfg.KafkaBrokers) > 0 {
		pollers := []*poller.Poller{
			poller.NewCheckoutPoller(service, log, cfg.ConsumerGroup, cfg.KafkaBrokers...).WithMetrics(m),
			poller.NewStockPoller(catalogRepo, service, log, cfg.ConsumerGroup, cfg.KafkaBrokers...).WithMetrics(m),
		}
		for _, p := range pollers {
			p := p
			wg.Add(1)
			go func() {
				defer wg.Done()
				p.Run(pollCtx)
			}()
		}
		defer func() {
			for _, p := range pollers {
				p.Close()
			}
		}()
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdown(log, cfg.ShutdownTimeout, srv, grpcServer, healthServer, stopPollers, &wg)
	if err := mongoDB.Client().Disconnect(context.Background()); err != nil {
		log.Warn().Err(err).Msg("mongo disconnect failed")
	}
	log.Info().Msg("medmarket stopped")
}

func shutdown(
	log zerolog.Logger,
	timeout time.Duration,
	srv *http.Server,
	grpcServer *grpc.Server,
	healthServer *health.Server,
	stopPollers context.CancelFunc,
	wg *sync.WaitGroup,
) {
	log.Info().Msg("shutting down...")
	healthServer.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("http server forced to shutdown")
	}
	grpcServer.GracefulStop()

	stopPollers()
	wg.Wait()
}
