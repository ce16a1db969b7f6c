// Package app initializes and holds long-lived application services, acting
// as the dependency injection container for the CLI and the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/seo-opportunity-scanner/internal/api"
	"github.com/JakeFAU/seo-opportunity-scanner/internal/clock/system"
	"github.com/JakeFAU/seo-opportunity-scanner/internal/config"
	"github.com/JakeFAU/seo-opportunity-scanner/internal/discovery"
	"github.com/JakeFAU/seo-opportunity-scanner/internal/dispatcher"
	"github.com/JakeFAU/seo-opportunity-scanner/internal/export"
	"github.com/JakeFAU/seo-opportunity-scanner/internal/export/sink"
	collyfetcher "github.com/JakeFAU/seo-opportunity-scanner/internal/fetcher/colly"
	"github.com/JakeFAU/seo-opportunity-scanner/internal/hash/sha256"
	"github.com/JakeFAU/seo-opportunity-scanner/internal/id/uuid"
	queueMemory "github.com/JakeFAU/seo-opportunity-scanner/internal/queue/memory"
	"github.com/JakeFAU/seo-opportunity-scanner/internal/registry/brreg"
	"github.com/JakeFAU/seo-opportunity-scanner/internal/scanner"
	"github.com/JakeFAU/seo-opportunity-scanner/internal/seo"
	"github.com/JakeFAU/seo-opportunity-scanner/internal/session"
	"github.com/JakeFAU/seo-opportunity-scanner/internal/telemetry"
	"github.com/JakeFAU/seo-opportunity-scanner/internal/worker"
)

// App holds the shared, long-lived services. It is built once at startup and
// handed to the commands that need it.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	clock    scanner.Clock
	ids      scanner.IDGenerator
	service  *scanner.Service
	store    scanner.SessionStore
	exporter *export.Exporter
	pipeline *export.Pipeline
	queue    *queueMemory.Queue
	dispatch *dispatcher.Dispatcher
	checks   []api.ReadinessCheck
	closers  []func() error
}

// GetConfig returns the loaded configuration.
func (a *App) GetConfig() config.Config {
	return a.cfg
}

// GetLogger returns the shared zap logger.
func (a *App) GetLogger() *zap.Logger {
	return a.logger
}

// GetService returns the scan service.
func (a *App) GetService() *scanner.Service {
	return a.service
}

// GetStore returns the session store.
func (a *App) GetStore() scanner.SessionStore {
	return a.store
}

// GetExporter returns the exporter bound to the configured blob store.
func (a *App) GetExporter() *export.Exporter {
	return a.exporter
}

// GetDispatcher returns the dispatcher feeding queued scans to the workers.
func (a *App) GetDispatcher() *dispatcher.Dispatcher {
	return a.dispatch
}

// NewServer builds the HTTP API over the app's services.
func (a *App) NewServer() *api.Server {
	return api.NewServer(
		a.store,
		a.dispatch,
		a.service,
		a.ids,
		a.clock,
		a.cfg,
		a.logger.Named("api"),
		a.checks...,
	)
}

// New creates and initializes an App from cfg. It fails fast when a
// configured backing service cannot be reached.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{
		cfg:    cfg,
		logger: logger,
		clock:  system.New(),
		ids:    uuid.New(),
	}
	logger.Info("initializing application services")

	tp, err := telemetry.InitTracerProvider(ctx, "seoscan")
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.closers = append(a.closers, func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return tp.Shutdown(shutdownCtx)
	})

	a.service = newService(cfg, logger)

	if err := a.initSessionStore(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initExport(ctx); err != nil {
		a.Close()
		return nil, err
	}

	runner := scanner.NewRunner(a.service, a.store, logger.Named("runner"), a.pipeline)
	a.queue = queueMemory.NewQueue(cfg.Server.QueueDepth)
	workers := make([]*worker.Worker, 0, max(cfg.Server.ScanRunners, 1))
	for i := 0; i < max(cfg.Server.ScanRunners, 1); i++ {
		workers = append(workers, worker.New(
			i,
			a.queue,
			runner,
			a.store,
			worker.Config{ScanTimeout: cfg.Server.ScanTimeout},
			logger.Named("worker"),
		))
	}
	a.dispatch = dispatcher.New(a.queue, workers)

	logger.Info("application services initialized",
		zap.String("session_store", cfg.Session.Store),
		zap.String("export_format", string(a.exporter.Format())),
	)
	return a, nil
}

func newService(cfg config.Config, logger *zap.Logger) *scanner.Service {
	registry := brreg.New(brreg.Config{
		BaseURL:     cfg.Registry.BaseURL,
		PageSize:    cfg.Registry.PageSize,
		MaxPages:    cfg.Registry.MaxPages,
		PageDelay:   cfg.Registry.PageDelay,
		Timeout:     cfg.Registry.Timeout,
		MaxAttempts: cfg.Registry.MaxAttempts,
		RetryDelay:  cfg.Registry.RetryDelay,
		UserAgent:   cfg.Fetcher.UserAgent,
	}, nil, logger.Named("registry"))

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:    cfg.Fetcher.UserAgent,
		Timeout:      cfg.Fetcher.Timeout,
		ProbeTimeout: cfg.Fetcher.ProbeTimeout,
		MaxBodyBytes: cfg.Fetcher.MaxBodyBytes,
	})

	return scanner.NewService(
		registry,
		discovery.New(fetcher, cfg.Fetcher.TLD, logger.Named("discovery")),
		fetcher,
		seo.NewEvaluator(seo.DefaultChecks(cfg.Rubric)),
		seo.NewRanker(cfg.Ranking),
		scanner.Config{
			Concurrency:     cfg.Scan.Concurrency,
			SequentialDelay: cfg.Scan.SequentialDelay,
			FetchTimeout:    cfg.Fetcher.Timeout,
			IndustryCode:    cfg.Registry.IndustryCode,
		},
		logger.Named("scanner"),
	)
}

func (a *App) initSessionStore(_ context.Context) error {
	switch a.cfg.Session.Store {
	case "", config.SessionStoreMemory:
		a.logger.Info("using in-memory session store")
		a.store = session.NewMemoryStore(a.clock)
	case config.SessionStoreRedis:
		redisCfg := session.RedisConfig{
			Addr:     a.cfg.Session.RedisAddr,
			Password: a.cfg.Session.RedisPassword,
			DB:       a.cfg.Session.RedisDB,
			TTL:      a.cfg.Session.TTL,
		}
		store, err := session.NewRedisStore(session.NewRedisClient(redisCfg), redisCfg, a.clock)
		if err != nil {
			return fmt.Errorf("init redis session store: %w", err)
		}
		a.logger.Info("using redis session store", zap.String("addr", redisCfg.Addr))
		a.store = store
		a.checks = append(a.checks, store.Ping)
		a.closers = append(a.closers, store.Close)
	default:
		return fmt.Errorf("unknown session store: %s", a.cfg.Session.Store)
	}
	return nil
}

func (a *App) initExport(ctx context.Context) error {
	format, err := export.ParseFormat(a.cfg.Export.Format)
	if err != nil {
		return fmt.Errorf("export format: %w", err)
	}

	var blobs scanner.BlobStore
	if bucket := a.cfg.Export.GCSBucket; bucket != "" {
		client, err := storage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("create gcs client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		gcs, err := sink.NewGCSBlobStore(client, bucket)
		if err != nil {
			return fmt.Errorf("init gcs blob store: %w", err)
		}
		a.logger.Info("exporting to GCS", zap.String("bucket", bucket))
		blobs = gcs
	} else {
		local, err := sink.NewLocalBlobStore(a.cfg.Export.Dir)
		if err != nil {
			return fmt.Errorf("init local blob store: %w", err)
		}
		a.logger.Info("exporting to local directory", zap.String("dir", local.BaseDir()))
		blobs = local
	}
	a.exporter = export.NewExporter(blobs, format, sha256.New())

	var recorder scanner.ResultRecorder
	if dsn := a.cfg.Export.PostgresDSN; dsn != "" {
		pg, err := sink.NewPostgresRecorder(ctx, sink.PostgresConfig{DSN: dsn, Table: a.cfg.Export.PostgresTable})
		if err != nil {
			return fmt.Errorf("init postgres recorder: %w", err)
		}
		a.closers = append(a.closers, func() error { pg.Close(); return nil })
		schemaCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := pg.EnsureSchema(schemaCtx); err != nil {
			return fmt.Errorf("ensure results schema: %w", err)
		}
		a.checks = append(a.checks, pg.Ping)
		a.logger.Info("recording results in postgres", zap.String("table", pg.Table()))
		recorder = pg
	}

	var publisher scanner.Publisher
	if project := a.cfg.Export.PubSubProject; project != "" {
		client, err := sink.NewPubSubClient(ctx, project)
		if err != nil {
			return fmt.Errorf("init pubsub client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		ps, err := sink.NewPubSubPublisher(client)
		if err != nil {
			return fmt.Errorf("init pubsub publisher: %w", err)
		}
		a.closers = append(a.closers, ps.Close)
		a.logger.Info("publishing completion notices", zap.String("topic", a.cfg.Export.PubSubTopic))
		publisher = ps
	}

	a.pipeline = export.NewPipeline(
		a.exporter,
		recorder,
		publisher,
		a.clock,
		export.PipelineConfig{Prefix: a.cfg.Export.Prefix, Topic: a.cfg.Export.PubSubTopic},
		a.logger.Named("export"),
	)
	return nil
}

// Close shuts down the services in reverse order of creation and flushes the
// logger.
func (a *App) Close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("error closing application services", zap.Error(err))
	}
	a.closers = nil
	_ = a.logger.Sync()
}
