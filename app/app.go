package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"tender-marketplace-api/internal/ai"
	"tender-marketplace-api/internal/config"
	"tender-marketplace-api/internal/controller"
	"tender-marketplace-api/internal/logger"
	"tender-marketplace-api/internal/metrics"
	"tender-marketplace-api/internal/notify"
	"tender-marketplace-api/internal/queue"
	"tender-marketplace-api/internal/repo"
	"tender-marketplace-api/internal/service"
	"tender-marketplace-api/internal/storage"
	"tender-marketplace-api/internal/worker"
	"tender-marketplace-api/pkg/http_server"
	"tender-marketplace-api/pkg/postgres"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/labstack/echo"
	"github.com/labstack/echo/middleware"
	"github.com/rs/zerolog"
)

// slack for multipart headers on top of the upload limit
const uploadEnvelope = 1 << 20

func runMigrations(pg *postgres.Postgres, cfg config.DatabaseConfig) error {
	driver, err := pgmigrate.WithInstance(pg.Database.DB, &pgmigrate.Config{DatabaseName: cfg.Name})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	migrations, err := migrate.NewWithDatabaseInstance(cfg.MigrationsPath, cfg.Name, driver)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	if err := migrations.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

func newStorage(cfg config.StorageConfig) (storage.Storage, error) {
	if cfg.Driver == "s3" {
		return storage.NewS3Storage(storage.S3Options{
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			UseSSL:    cfg.S3.UseSSL,
		})
	}

	return storage.NewLocalStorage(cfg.Local.Root, cfg.Local.PublicBaseURL)
}

// infrastructure shared by the API and the worker
type runtime struct {
	cfg      *config.Config
	log      zerolog.Logger
	pg       *postgres.Postgres
	repos    *repo.Repositories
	storage  storage.Storage
	provider ai.Provider
	redis    *queue.RedisClient
	metrics  *metrics.Metrics
}

func setup(requireRedis bool) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.Get()

	log.Info().Msg("Connecting database...")
	pg, err := postgres.NewDB(cfg.Database.Conn, postgres.Options{
		MaxOpenConns:    cfg.Database.MaxConnections,
		MaxIdleConns:    cfg.Database.MaxIdleConnections,
		ConnMaxLifetime: cfg.Database.ConnectionLifetime,
	})
	if err != nil {
		return nil, err
	}

	log.Info().Msg("Running migrations...")
	if err := runMigrations(pg, cfg.Database); err != nil {
		_ = pg.Close()
		return nil, err
	}

	st, err := newStorage(cfg.Storage)
	if err != nil {
		_ = pg.Close()
		return nil, fmt.Errorf("storage: %w", err)
	}

	provider, err := ai.NewProvider(cfg.AI)
	if err != nil {
		_ = pg.Close()
		return nil, err
	}
	if !provider.IsConfigured() {
		log.Warn().Str("provider", provider.Name()).Msg("AI provider has no credentials, extractions will fail")
	}

	rt := &runtime{
		cfg:      cfg,
		log:      log,
		pg:       pg,
		repos:    repo.NewRepositories(pg),
		storage:  st,
		provider: provider,
		metrics:  metrics.New(),
	}

	rc, err := queue.NewRedisClient(cfg.Redis.URL)
	switch {
	case err == nil:
		rt.redis = rc
	case requireRedis:
		_ = pg.Close()
		return nil, fmt.Errorf("redis: %w", err)
	default:
		log.Warn().Err(err).Msg("Redis unavailable, extracting inline and skipping notification publish")
	}

	return rt, nil
}

func (rt *runtime) close() {
	if rt.redis != nil {
		_ = rt.redis.Close()
	}
	if err := rt.pg.Close(); err != nil {
		rt.log.Error().Err(err).Msg("Failed to close database")
	}
}

func (rt *runtime) dependencies(notifier service.Notifier) service.Dependencies {
	deps := service.Dependencies{
		Repos:         rt.repos,
		Storage:       rt.storage,
		Provider:      rt.provider,
		Notifier:      notifier,
		Metrics:       rt.metrics,
		Billing:       rt.cfg.Billing,
		Workers:       rt.cfg.Workers.Extraction,
		MaxUploadSize: rt.cfg.Storage.MaxUploadSize,
	}
	if rt.redis != nil {
		deps.Queue = rt.extractionQueue()
	}

	return deps
}

func (rt *runtime) extractionQueue() *queue.ExtractionQueue {
	return queue.NewExtractionQueue(rt.redis.Client(), rt.cfg.Redis.ExtractionQueue, rt.cfg.Redis.DLQSuffix)
}

func Run() {
	rt, err := setup(false)
	if err != nil {
		log := logger.Get()
		log.Fatal().Err(err).Msg("Startup failed")
	}
	defer rt.close()
	log := rt.log

	var publisher notify.Publisher
	if rt.redis != nil {
		publisher = rt.redis.Client()
	}
	dispatcher := notify.NewDispatcher(rt.repos.Notification, publisher, rt.cfg.Redis.NotificationChannel)

	services := service.NewServices(rt.dependencies(dispatcher))

	handler := echo.New()
	handler.HideBanner = true
	handler.Use(middleware.Recover())
	handler.Use(middleware.Logger())
	handler.Use(rt.metrics.Middleware())
	if limit := rt.cfg.Storage.MaxUploadSize; limit > 0 {
		handler.Use(middleware.BodyLimit(fmt.Sprintf("%dK", (limit+uploadEnvelope)>>10)))
	}
	handler.GET("/metrics", echo.WrapHandler(rt.metrics.Handler()))
	if rt.cfg.Storage.Driver == "local" {
		handler.Static(rt.cfg.Storage.Local.PublicBaseURL, rt.cfg.Storage.Local.Root)
	}

	log.Info().Msg("Setup routes...")
	controller.SetupRoutesHandlers(handler, services, service.NewValidator())

	log.Info().Str("address", rt.cfg.Server.Address).Msg("Starting server...")
	httpServer := http_server.New(handler, rt.cfg.Server.Address, http_server.Options{ShutdownTimeout: rt.cfg.Server.ShutdownTimeout})

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case s := <-interrupt:
		log.Info().Str("signal", s.String()).Msg("Got signal")
	case err = <-httpServer.Notify():
		log.Error().Err(err).Msg("Server stopped")
	}

	log.Info().Msg("Shutting down...")
	if err := httpServer.Shutdown(); err != nil {
		log.Error().Err(err).Msg("Shutdown error")
	}
	dispatcher.Wait()
	log.Info().Msg("Successful shutdown")
}

// RunWorker consumes extraction jobs until SIGINT or SIGTERM.
func RunWorker() {
	rt, err := setup(true)
	if err != nil {
		log := logger.Get()
		log.Fatal().Err(err).Msg("Startup failed")
	}
	defer rt.close()
	log := rt.log

	deps := rt.dependencies(nil)
	deps.Workers.Inline = false
	services := service.NewServices(deps)

	jobs := rt.extractionQueue()
	extractionWorker := worker.NewExtractionWorker(rt.cfg.Workers.Extraction, services.Extraction, jobs, jobs, rt.metrics)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("queue", rt.cfg.Redis.ExtractionQueue).Int("workers", rt.cfg.Workers.Extraction.Count).Msg("Worker ready")
	if err := extractionWorker.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("Consumer stopped")
	}

	extractionWorker.Stop()
	log.Info().Msg("Worker stopped")
}
