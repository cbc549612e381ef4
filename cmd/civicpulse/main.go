package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/civicpulse/civicpulse/config"
	"github.com/civicpulse/civicpulse/internal/handlers"
	analyticsrepo "github.com/civicpulse/civicpulse/internal/repositories/analytics"
	"github.com/civicpulse/civicpulse/internal/repositories/assignment"
	"github.com/civicpulse/civicpulse/internal/repositories/depthistory"
	"github.com/civicpulse/civicpulse/internal/repositories/directory"
	"github.com/civicpulse/civicpulse/internal/repositories/report"
	analyticssvc "github.com/civicpulse/civicpulse/internal/services/analytics"
	lifecyclesvc "github.com/civicpulse/civicpulse/internal/services/lifecycle"
	querysvc "github.com/civicpulse/civicpulse/internal/services/query"
	"github.com/civicpulse/civicpulse/pkg/database"
	"github.com/civicpulse/civicpulse/pkg/events"
	"github.com/civicpulse/civicpulse/pkg/health"
	"github.com/civicpulse/civicpulse/pkg/kafka"
	"github.com/civicpulse/civicpulse/pkg/middleware"
	"github.com/civicpulse/civicpulse/pkg/models"
	"github.com/civicpulse/civicpulse/pkg/notify"
	"github.com/civicpulse/civicpulse/pkg/redis"
	"github.com/civicpulse/civicpulse/pkg/tracing"
	"github.com/civicpulse/civicpulse/pkg/tracing/exporters"
)

var rootCmd = &cobra.Command{
	Use:   "civicpulse",
	Short: "Civic issue reporting and analytics service",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run database migrations and start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := connectDatabase(cfg, logger)
		if err != nil {
			return err
		}
		defer db.Close()
		return runMigrations(cfg, logger, db)
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh-analytics",
	Short: "Rebuild the report facts table and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := connectDatabase(cfg, logger)
		if err != nil {
			return err
		}
		defer db.Close()

		redisClient, err := redis.NewClient(redis.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, logger)
		if err != nil {
			return err
		}
		defer redisClient.Close()

		reportRepo := report.NewRepository(db, logger)
		assignmentRepo := assignment.NewRepository(db, logger)
		factsRepo := analyticsrepo.NewRepository(db, logger)
		locker := redis.NewLocker(redisClient, "")

		refresher := analyticssvc.NewRefresher(logger, reportRepo, assignmentRepo, factsRepo, locker)

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
		defer cancel()

		rows, err := refresher.Refresh(ctx)
		if err != nil {
			return err
		}
		logger.Infof("Refreshed %d report facts", rows)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(refreshCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, ectologger.Logger, error) {
	_ = godotenv.Load()

	var cfg config.Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to read config: %w", err)
	}

	logger, err := newLogger(&cfg)
	if err != nil {
		return nil, nil, err
	}

	return &cfg, logger, nil
}

func newLogger(cfg *config.Config) (ectologger.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	if cfg.PrettyLogs {
		zapConfig = zap.NewDevelopmentConfig()
	}
	if level, err := zap.ParseAtomicLevel(cfg.LogLevel); err == nil {
		zapConfig.Level = level
	}

	zapLogger, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	logger := zapadapter.NewZapEctoLogger(zapLogger, nil)
	return logger.WithFields(map[string]any{
		"app":     cfg.AppName,
		"version": cfg.Version,
	}), nil
}

func connectDatabase(cfg *config.Config, logger ectologger.Logger) (database.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName, cfg.DatabasePassword,
		cfg.DatabaseName, cfg.DatabaseSSLMode)

	sqlxDB, err := sqlx.Connect(cfg.DatabaseDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlxDB.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
	sqlxDB.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
	sqlxDB.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)

	return database.NewDatabaseInstance(sqlxDB, logger), nil
}

func runMigrations(cfg *config.Config, logger ectologger.Logger, db database.DB) error {
	instance, ok := db.(*database.DatabaseInstance)
	if !ok {
		return fmt.Errorf("unexpected database instance type")
	}

	driver, err := migratepg.WithInstance(instance.DB.DB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	migrationService := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
	})

	return migrationService.Migrate(cfg.DatabaseName, driver)
}

func initTracing(ctx context.Context, cfg *config.Config, logger ectologger.Logger) (func(context.Context) error, error) {
	var exporter sdktrace.SpanExporter
	if cfg.TracingExporter == "otlp" {
		otlpExporter, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
			Endpoint: cfg.TracingEndpoint,
			Protocol: "grpc",
			Insecure: true,
			Timeout:  10 * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		exporter = otlpExporter
	} else {
		exporter = &exporters.ConsoleExporter{}
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.TracingSampleRatio)),
	)
	otel.SetTracerProvider(provider)
	tracing.SetTracer(provider.Tracer(cfg.AppName))

	logger.Infof("Tracing enabled with %s exporter", cfg.TracingExporter)
	return provider.Shutdown, nil
}

type pinger struct {
	ping func(ctx context.Context) error
}

func (p pinger) Ping(ctx context.Context) error {
	return p.ping(ctx)
}

func serve() error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdown, err := initTracing(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(shutdownCtx)
		}()
	}

	db, err := connectDatabase(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := runMigrations(cfg, logger, db); err != nil {
		return err
	}

	redisClient, err := redis.NewClient(redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, logger)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	var producer *kafka.Producer
	if cfg.KafkaEnabled {
		producer = kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaOutputTopic,
			BatchSize:    cfg.KafkaBatchSize,
			BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
			RequiredAcks: cfg.KafkaRequiredAcks,
			Compression:  cfg.KafkaCompression,
		}, logger)
		defer producer.Close()
	}

	reportRepo := report.NewRepository(db, logger)
	assignmentRepo := assignment.NewRepository(db, logger)
	historyRepo := depthistory.NewRepository(db, logger)
	directoryRepo := directory.NewRepository(db, logger)
	factsRepo := analyticsrepo.NewRepository(db, logger)

	emitter := events.NewEmitter(producer, logger)
	notifier := notify.NewNotifier(time.Duration(cfg.WebhookTimeoutSecs)*time.Second, logger)
	locker := redis.NewLocker(redisClient, "")

	lifecycleService := lifecyclesvc.NewService(
		db, logger, reportRepo, assignmentRepo, historyRepo, directoryRepo,
		emitter, notifier, models.ReportStatus(cfg.InfoReturnStatus),
	)
	refresher := analyticssvc.NewRefresher(logger, reportRepo, assignmentRepo, factsRepo, locker)
	queryService := querysvc.NewService(logger, factsRepo, reportRepo, redisClient, cfg.OverdueAfter)

	scheduler := analyticssvc.NewScheduler(refresher, cfg.RefreshInterval, logger)
	go scheduler.Run(ctx)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second

	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	if cfg.AuthEnabled {
		e.Use(middleware.Authentication(logger, cfg.AuthIssuerURL, cfg.AuthClientID))
	}

	checker := health.NewChecker(cfg.Version, map[string]health.Pinger{
		"postgres": pinger{ping: db.PingContext},
		"redis":    pinger{ping: redisClient.Ping},
	})
	checker.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")
	api.Use(middleware.Timeout(time.Duration(cfg.RequestTimeoutSeconds) * time.Second))
	handlers.NewReportHandler(lifecycleService, reportRepo, assignmentRepo, historyRepo, logger).RegisterRoutes(api)
	handlers.NewAnalyticsHandler(queryService, refresher, logger).RegisterRoutes(api)
	handlers.NewDirectoryHandler(directoryRepo, logger).RegisterRoutes(api)

	checker.SetReady(true)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Infof("Starting %s on %s", cfg.AppName, addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("server stopped unexpectedly")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	checker.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
		return err
	}

	logger.Info("Shutdown complete")
	return nil
}
