// Command sage runs the WhatsApp auto-responder: webhook ingress, the
// template → knowledge → generative response pipeline, and the admin API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectologger"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/sage/config"
	"github.com/Ramsey-B/sage/internal/handlers"
	channelrepo "github.com/Ramsey-B/sage/internal/repositories/channel"
	historyrepo "github.com/Ramsey-B/sage/internal/repositories/history"
	knowledgerepo "github.com/Ramsey-B/sage/internal/repositories/knowledge"
	templaterepo "github.com/Ramsey-B/sage/internal/repositories/replytemplate"
	leadrepo "github.com/Ramsey-B/sage/internal/repositories/saleslead"
	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/delivery"
	"github.com/Ramsey-B/sage/pkg/events"
	"github.com/Ramsey-B/sage/pkg/generative"
	"github.com/Ramsey-B/sage/pkg/health"
	"github.com/Ramsey-B/sage/pkg/httpclient"
	"github.com/Ramsey-B/sage/pkg/kafka"
	"github.com/Ramsey-B/sage/pkg/logging"
	"github.com/Ramsey-B/sage/pkg/middleware"
	"github.com/Ramsey-B/sage/pkg/redis"
	"github.com/Ramsey-B/sage/pkg/responder"
	"github.com/Ramsey-B/sage/pkg/startup"
	"github.com/Ramsey-B/sage/pkg/tenants"
	"github.com/Ramsey-B/sage/pkg/tracing"
	"github.com/Ramsey-B/sage/pkg/webhook"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, Pretty: cfg.PrettyLogs})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("Service exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger ectologger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		flush, err := tracing.Init(ctx, tracing.Config{
			ServiceName: cfg.AppName,
			Version:     cfg.Version,
			Endpoint:    cfg.OTLPEndpoint,
			Protocol:    cfg.OTLPProtocol,
			Insecure:    cfg.OTLPInsecure,
		})
		if err != nil {
			return err
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := flush(flushCtx); err != nil {
				logger.WithError(err).Warn("Failed to flush traces")
			}
		}()
	}

	// Built up front so route wiring cannot fail once dependencies are up.
	parserRegistry, err := webhook.NewDefaultRegistry(logger, webhook.GenericConfig{
		FromPath:      cfg.WebhookGenericFromPath,
		ToPath:        cfg.WebhookGenericToPath,
		BodyPath:      cfg.WebhookGenericBodyPath,
		GroupPath:     cfg.WebhookGenericGroupPath,
		MessageIDPath: cfg.WebhookGenericMessageIDPath,
	})
	if err != nil {
		return err
	}

	var authn echo.MiddlewareFunc
	if cfg.AuthEnabled {
		authn, err = middleware.Authentication(ctx, logger, cfg.AuthIssuerURL, cfg.AuthClientID)
		if err != nil {
			return err
		}
	}

	// Populated by the dependency graph below.
	var (
		db          database.DB
		redisClient *redis.Client
		producer    *kafka.Producer
		checker     *health.Checker
	)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		ReadTimeout:       time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
	serverErrors := make(chan error, 1)

	boot := startup.NewStartup(logger, cfg.StartupMaxAttempts)

	boot.AddDependency(&startup.Func{
		Name: "database",
		OnStart: func(ctx context.Context) error {
			sqlxDB, err := database.Connect(database.Config{
				Driver:          cfg.DatabaseDriver,
				Host:            cfg.DatabaseHost,
				Port:            cfg.DatabasePort,
				UserName:        cfg.DatabaseUserName,
				Password:        cfg.DatabasePassword,
				Name:            cfg.DatabaseName,
				SSLMode:         cfg.DatabaseSSLMode,
				MaxOpenConns:    cfg.DatabaseMaxOpenConns,
				MaxIdleConns:    cfg.DatabaseMaxIdleConns,
				ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
			})
			if err != nil {
				return err
			}

			driver, err := migratepg.WithInstance(sqlxDB.DB, &migratepg.Config{})
			if err != nil {
				return err
			}
			migrations := database.NewMigrationService(logger, &database.MigrationConfig{
				MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
				Version:             uint(cfg.DatabaseMigrationVersion),
				Force:               cfg.DatabaseMigrationForce,
				AutoRollback:        cfg.DatabaseMigrationAutoRollback,
			})
			if err := migrations.Migrate(cfg.DatabaseName, driver); err != nil {
				return err
			}

			db = database.NewDatabaseInstance(sqlxDB, logger)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if db == nil {
				return nil
			}
			return db.Close()
		},
	})

	boot.AddDependency(&startup.Func{
		Name: "redis",
		OnStart: func(ctx context.Context) error {
			client, err := redis.NewClient(redis.Config{
				Host:     cfg.RedisHost,
				Port:     cfg.RedisPort,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			}, logger)
			if err != nil {
				return err
			}
			redisClient = client
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if redisClient == nil {
				return nil
			}
			return redisClient.Close()
		},
	})

	serverNeeds := []string{"database", "redis"}
	if cfg.EventsEnabled {
		boot.AddDependency(&startup.Func{
			Name: "kafka",
			OnStart: func(ctx context.Context) error {
				producer = kafka.NewProducer(kafka.ProducerConfig{
					Brokers:      cfg.KafkaBrokers,
					Topic:        cfg.KafkaConversationTopic,
					BatchSize:    cfg.KafkaProducerBatchSize,
					BatchTimeout: cfg.KafkaProducerBatchTimeout,
					RequiredAcks: cfg.KafkaProducerRequiredAcks,
					Compression:  cfg.KafkaProducerCompression,
				}, logger)
				return nil
			},
			OnStop: func(ctx context.Context) error {
				if producer == nil {
					return nil
				}
				return producer.Close()
			},
		})
		serverNeeds = append(serverNeeds, "kafka")
	}

	boot.AddDependency(&startup.Func{
		Name:  "server",
		Needs: serverNeeds,
		OnStart: func(ctx context.Context) error {
			checker = wireRoutes(cfg, logger, e, db, redisClient, producer, parserRegistry, authn)

			go func() {
				serverErrors <- e.StartServer(server)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return e.Shutdown(ctx)
		},
	})

	if err := boot.Start(ctx); err != nil {
		return err
	}

	checker.SetReady(true)
	logger.Infof("%s listening on port %d", cfg.AppName, cfg.Port)

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("Server stopped unexpectedly")
		}
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return boot.Stop(stopCtx)
}

// wireRoutes builds the domain graph and registers every route. Called once
// the backing services are up.
func wireRoutes(
	cfg *config.Config,
	logger ectologger.Logger,
	e *echo.Echo,
	db database.DB,
	redisClient *redis.Client,
	producer *kafka.Producer,
	parserRegistry *webhook.Registry,
	authn echo.MiddlewareFunc,
) *health.Checker {
	// Recover first, then tracing, then request context so every log line
	// carries request and trace ids.
	e.Use(echomiddleware.Recover())
	if cfg.TracingEnabled {
		e.Use(otelecho.Middleware(cfg.AppName))
	}
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.HTTPErrorHandler = middleware.Error(logger)

	channels := channelrepo.NewRepository(db, logger)
	templates := templaterepo.NewRepository(db, logger)
	knowledge := knowledgerepo.NewRepository(db, logger)
	history := historyrepo.NewRepository(db, logger)
	leads := leadrepo.NewRepository(db, logger)

	cache := tenants.NewConfigCache(channels, tenants.ConfigCacheConfig{
		TTL:     cfg.ConfigCacheTTL,
		MaxSize: cfg.ConfigCacheMaxSize,
	})
	resolver := tenants.NewResolver(cache, logger)

	// Both outbound clients share one pooled transport.
	httpClient := httpclient.NewClient(httpclient.DefaultConfig(), logger)
	generator := generative.NewClient(httpClient, generative.Config{
		BaseURL:      cfg.GenerativeBaseURL,
		APIKey:       cfg.GenerativeAPIKey,
		DefaultModel: cfg.GenerativeDefaultModel,
		Timeout:      time.Duration(cfg.GenerativeTimeoutSeconds) * time.Second,
		MaxRetries:   cfg.GenerativeMaxRetries,
		Temperature:  cfg.GenerativeTemperature,
	}, logger)
	sender := delivery.NewClient(httpClient, delivery.Config{
		BaseURL:    cfg.DeliveryBaseURL,
		APIKey:     cfg.DeliveryAPIKey,
		Timeout:    time.Duration(cfg.DeliveryTimeoutSeconds) * time.Second,
		MaxRetries: cfg.DeliveryMaxRetries,
	}, logger)

	emitter := events.NewEmitter(producer, logger)

	registry := responder.NewRegistry(
		responder.NewGenerativeHandler(generator, history, cfg.HistoryPromptTurns, logger),
		responder.NewTemplateHandler(templates, logger),
		responder.NewKnowledgeHandler(knowledge, logger),
	)
	pipeline := responder.NewResponder(
		db,
		resolver,
		registry,
		sender,
		history,
		leads,
		emitter,
		cfg.BookingKeywords,
		logger,
	)

	deduper := redis.NewDeduper(redisClient, cfg.WebhookDedupeTTL)
	locker := redis.NewLocker(redisClient, "")
	handlers.NewWebhookHandler(parserRegistry, deduper, locker, pipeline, handlers.WebhookConfig{
		LockTTL:  cfg.CustomerLockTTL,
		LockWait: cfg.CustomerLockWait,
	}, logger).RegisterRoutes(e)

	api := e.Group("/api/v1")
	if authn != nil {
		api.Use(authn)
	}
	handlers.NewChannelHandler(channels, cache).RegisterRoutes(api)
	handlers.NewTemplateHandler(templates).RegisterRoutes(api)
	handlers.NewKnowledgeHandler(knowledge).RegisterRoutes(api)
	handlers.NewHistoryHandler(history).RegisterRoutes(api)
	handlers.NewLeadHandler(leads).RegisterRoutes(api)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	checker := health.NewChecker(db, redisClient, cfg.Version)
	checker.RegisterRoutes(e)

	return checker
}
