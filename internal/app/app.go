package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/utafrali/discovery/pkg/database"
	"github.com/utafrali/discovery/pkg/health"
	pkgkafka "github.com/utafrali/discovery/pkg/kafka"
	"github.com/utafrali/discovery/pkg/middleware"
	"github.com/utafrali/discovery/pkg/tracing"

	"github.com/utafrali/discovery/internal/analytics"
	"github.com/utafrali/discovery/internal/cache"
	"github.com/utafrali/discovery/internal/catalog"
	"github.com/utafrali/discovery/internal/config"
	"github.com/utafrali/discovery/internal/engine"
	esengine "github.com/utafrali/discovery/internal/engine/elasticsearch"
	"github.com/utafrali/discovery/internal/engine/memory"
	"github.com/utafrali/discovery/internal/event"
	handler "github.com/utafrali/discovery/internal/handler/http"
	"github.com/utafrali/discovery/internal/indexer"
	"github.com/utafrali/discovery/internal/recommend"
	"github.com/utafrali/discovery/internal/repository/postgres"
	"github.com/utafrali/discovery/internal/search"
)

// App wires together all dependencies and runs the discovery service.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	consumers  []*pkgkafka.Consumer
	producer   *pkgkafka.Producer
	httpServer *http.Server
	shutdowns  []func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{cfg: cfg, logger: logger}

	// Tracing first so every later component picks up the global provider.
	tracingShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:  "discovery",
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.OTELEndpoint,
		SampleRate:   cfg.OTELSampleRate,
		Enabled:      cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	app.shutdowns = append(app.shutdowns, tracingShutdown)

	// PostgreSQL catalog, stats, and analytics store.
	pgCfg := cfg.PostgresConfig()
	pool, err := database.NewPostgresPoolWithLogger(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init postgres pool: %w", err)
	}
	database.RegisterPoolMetrics(pool, "discovery")
	app.shutdowns = append(app.shutdowns, func(context.Context) error {
		pool.Close()
		return nil
	})

	catalogRepo := postgres.NewCatalogRepository(pool)
	statsRepo := postgres.NewStatsRepository(pool)
	analyticsRepo := postgres.NewAnalyticsRepository(pool)

	// Result cache. When disabled every read recomputes.
	var resultCache cache.Cache = cache.NewNoop()
	var redisCache *cache.Redis
	if cfg.CacheEnabled {
		client, err := database.NewRedisClient(ctx, cfg.RedisConfig())
		if err != nil {
			return nil, fmt.Errorf("init redis client: %w", err)
		}
		redisCache = cache.NewRedis(client)
		resultCache = redisCache
		app.shutdowns = append(app.shutdowns, func(context.Context) error {
			return client.Close()
		})
	}

	// Search engine.
	var eng engine.SearchEngine
	var esEng *esengine.Engine
	switch cfg.SearchEngine {
	case "elasticsearch":
		esEng, err = esengine.New(cfg.ElasticsearchURL, cfg.ElasticsearchIndex, logger)
		if err != nil {
			return nil, fmt.Errorf("init elasticsearch engine: %w", err)
		}
		eng = esEng
		logger.Info("elasticsearch search engine initialized",
			slog.String("url", cfg.ElasticsearchURL),
			slog.String("index", cfg.ElasticsearchIndex),
		)
	default:
		eng = memory.New()
		logger.Info("in-memory search engine initialized")
	}

	// Kafka producer for analytics events, unless the bus is disabled.
	var publisher analytics.Publisher
	if !cfg.KafkaDisabled {
		producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		app.producer = producer
		publisher = producer
		app.shutdowns = append(app.shutdowns, func(context.Context) error {
			return producer.Close()
		})
	}

	// Service layer.
	recorder := analytics.NewRecorder(analyticsRepo, publisher, logger)
	searchService := search.NewService(eng, catalogRepo, resultCache, recorder, logger)
	composer := recommend.NewComposer(catalogRepo, statsRepo, resultCache, logger)
	catalogService := catalog.NewService(catalogRepo, resultCache, logger)
	ix := indexer.New(eng, catalogRepo, statsRepo, resultCache, logger)

	// Kafka consumers for catalog change events.
	if !cfg.KafkaDisabled {
		eventConsumer := event.NewConsumer(ix, logger)
		topics := []string{
			event.TopicProductCreated,
			event.TopicProductUpdated,
			event.TopicProductStockChanged,
			event.TopicProductDeleted,
		}
		for _, topic := range topics {
			consumerCfg := pkgkafka.ConsumerConfig{
				Brokers:  cfg.KafkaBrokers,
				GroupID:  cfg.KafkaGroupID,
				Topic:    topic,
				MinBytes: 1,
				MaxBytes: 10e6, // 10 MB
			}
			app.consumers = append(app.consumers, pkgkafka.NewConsumer(consumerCfg, eventConsumer.Handle, logger))
		}
		logger.Info("kafka consumers initialized",
			slog.Any("brokers", cfg.KafkaBrokers),
			slog.Int("topic_count", len(topics)),
		)
	}

	// Health checks. Postgres gates readiness; the index, cache, and bus
	// only degrade it, because search falls back to the catalog without them.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	if esEng != nil {
		healthHandler.RegisterNonCritical("elasticsearch", esEng.Ping)
	}
	if redisCache != nil {
		healthHandler.RegisterNonCritical("redis", redisCache.Ping)
	}
	if !cfg.KafkaDisabled {
		healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
			return pkgkafka.PingBrokers(ctx, cfg.KafkaBrokers)
		})
	}

	// HTTP router.
	router := handler.NewRouter(handler.Deps{
		Search:   searchService,
		Composer: composer,
		Catalog:  catalogService,
		Indexer:  ix,
		Recorder: recorder,
		CORS: middleware.CORSConfig{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			Environment:    cfg.Environment,
		},
		Logger: logger,
	}, healthHandler)

	app.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return app, nil
}

// Run starts the HTTP server and Kafka consumers, blocking until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1+len(a.consumers))

	for _, c := range a.consumers {
		go func() {
			if err := c.Start(ctx); err != nil {
				errCh <- fmt.Errorf("kafka consumer: %w", err)
			}
		}()
	}

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in reverse initialization order.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	for _, c := range a.consumers {
		if err := c.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		if err := a.shutdowns[i](shutdownCtx); err != nil {
			a.logger.Error("component shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
