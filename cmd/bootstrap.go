package cmd

import (
	"fmt"

	"repo-sync/core/config"
	"repo-sync/core/database"
	"repo-sync/core/logger"
	"repo-sync/core/notify"
	"repo-sync/core/provider"
	"repo-sync/core/reconcile"
	"repo-sync/core/storage"
	"repo-sync/core/validation"
	"repo-sync/feature/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// runtime holds the components shared by the commands.
type runtime struct {
	cfg      *config.Config
	logger   *zap.Logger
	db       *gorm.DB
	objects  storage.Client
	registry *provider.Registry
	store    *repository.GormStore
	events   *notify.Recorder
	dispatch *notify.Dispatcher
	service  *repository.Service
}

// bootstrap loads the configuration and wires the store, the providers and
// the repository service. With async set, logged lifecycle events are
// delivered from a background dispatcher; close must then be called.
func bootstrap(async bool) (*runtime, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := repository.Migrate(db); err != nil {
		return nil, err
	}
	logg.Info("Connected to database", zap.String("driver", db.Dialector.Name()))

	// Left as a nil interface when disabled so s3:// URLs are rejected
	var objects storage.Client
	if cfg.Storage.Enabled {
		client, err := storage.NewClient(cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		objects = client
	}

	reg := provider.NewRegistry()
	repository.RegisterProviders(reg, cfg.Providers, objects)

	events := notify.NewRecorder(cfg.Server.EventLimit)
	var (
		logSink  notify.Sink = notify.NewLogSink(logg)
		dispatch *notify.Dispatcher
	)
	if async {
		dispatch = notify.NewDispatcher(logSink, cfg.Server.EventLimit, logg)
		logSink = dispatch
	}
	sinks := notify.Multi{events, logSink}

	store := repository.NewGormStore(db)
	engine := reconcile.New(reg, store, sinks, logg, reconcile.Options{
		Enabled: cfg.Providers.Enabled,
		DryRun:  cfg.Reconcile.DryRun,
		Workers: cfg.Reconcile.Workers,
	})
	validator := validation.New(reg, cfg.Providers.Enabled, store, logg)

	logg.Info("Providers configured",
		zap.Strings("enabled", cfg.Providers.Enabled),
		zap.Strings("registered", reg.Kinds()),
		zap.Bool("storage", objects != nil),
		zap.Bool("dry_run", cfg.Reconcile.DryRun),
	)

	return &runtime{
		cfg:      cfg,
		logger:   logg,
		db:       db,
		objects:  objects,
		registry: reg,
		store:    store,
		events:   events,
		dispatch: dispatch,
		service:  repository.NewService(store, engine, validator, events, logg),
	}, nil
}

// close stops running passes, drains pending notifications and flushes the
// logger.
func (r *runtime) close() {
	r.service.Close()
	if r.dispatch != nil {
		r.dispatch.Close()
	}
	_ = r.logger.Sync()
}
