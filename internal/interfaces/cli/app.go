package cli

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/dirsync/james-connector/internal/application/connector"
	"github.com/dirsync/james-connector/internal/domain/directory"
	"github.com/dirsync/james-connector/internal/infrastructure/cache"
	"github.com/dirsync/james-connector/internal/infrastructure/config"
	"github.com/dirsync/james-connector/internal/infrastructure/james"
	"github.com/dirsync/james-connector/internal/infrastructure/logger"
	"github.com/dirsync/james-connector/internal/infrastructure/persistence"
	"github.com/dirsync/james-connector/internal/infrastructure/telemetry"
)

// app holds the components one command invocation needs
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	client  *james.Client
	task    connector.TaskConfig
	service directory.WritableService

	db        *persistence.Database
	snapshots directory.SnapshotStore
	closers   []func(context.Context) error
}

func newApp(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level, logCfg.Format, logCfg.Output = cfg.Log.Level, cfg.Log.Format, cfg.Log.Output
	if opts.debug {
		logCfg.Level = "debug"
	}
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", directory.ErrConfiguration, err)
	}

	a := &app{cfg: cfg, logger: log.With(zap.String("app", cfg.App.Name))}
	if err := a.initTelemetry(ctx); err != nil {
		a.close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *app) initTelemetry(ctx context.Context) error {
	tel := a.cfg.Telemetry
	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           tel.Enabled,
		CollectorEndpoint: tel.CollectorEndpoint,
		SamplingRatio:     tel.SamplingRatio,
		ServiceName:       tel.ServiceName,
		Insecure:          tel.Insecure,
	}, a.logger)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, tp.Shutdown)

	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           tel.Enabled,
		CollectorEndpoint: tel.CollectorEndpoint,
		ExportInterval:    tel.ExportInterval,
		ServiceName:       tel.ServiceName,
		Insecure:          tel.Insecure,
	}, a.logger)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, mp.Shutdown)

	metrics, err := telemetry.NewConnectorMetrics(mp.Meter(telemetry.TracerName), a.logger)
	if err != nil {
		return err
	}

	a.client, err = james.NewClient(&james.Config{
		URL:      a.cfg.James.URL,
		Username: a.cfg.James.Username,
		Password: a.cfg.James.Password,
		Timeout:  a.cfg.James.Timeout,
	}, james.WithLogger(a.logger), james.WithObserver(metrics))
	if err != nil {
		return err
	}

	a.task = taskFromConfig(a.cfg.Task)
	if err := a.task.Validate(); err != nil {
		return err
	}
	a.service, err = connector.NewRegistry().Build(a.task, connector.Dependencies{
		Aliases:  james.NewAliasGateway(a.client),
		Contacts: james.NewContactGateway(a.client),
		Logger:   a.logger,
		Metrics:  metrics,
	})
	return err
}

func taskFromConfig(c config.TaskConfig) connector.TaskConfig {
	return connector.TaskConfig{
		Name:               c.Name,
		Service:            connector.ServiceType(c.Service),
		Bean:               c.Bean,
		WritableAttributes: c.WritableAttributes,
		UpdateMode:         connector.UpdateMode(c.UpdateMode),
		AliasAttribute:     c.AliasAttribute,
	}
}

// journal opens the run journal. It returns nil when the journal is disabled
// and required is false.
func (a *app) journal(required bool) (directory.RunJournal, error) {
	if !a.cfg.Journal.Enabled && !required {
		return nil, nil
	}
	if a.db == nil {
		db, err := persistence.NewDatabase(&a.cfg.Journal, a.logger)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(); err != nil {
			_ = db.Close()
			return nil, err
		}
		a.db = db
		a.closers = append(a.closers, func(context.Context) error { return db.Close() })
	}
	return persistence.NewGormRunJournal(a.db.DB), nil
}

func (a *app) snapshotStore(ctx context.Context) (directory.SnapshotStore, error) {
	if a.snapshots == nil {
		store, err := cache.NewSnapshotStoreFactory(a.cfg.Redis, cache.WithLogger(a.logger)).CreateStore(ctx)
		if err != nil {
			return nil, err
		}
		a.snapshots = store
		a.closers = append(a.closers, func(context.Context) error { return store.Close() })
	}
	return a.snapshots, nil
}

func (a *app) close(ctx context.Context) {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](ctx))
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("Shutdown incomplete", zap.Error(err))
	}
	logger.Sync(a.logger)
}
