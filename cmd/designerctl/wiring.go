package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/goliatone/go-dashboard-designer/components/dashboard"
	"github.com/goliatone/go-dashboard-designer/pkg/config"
	"github.com/goliatone/go-dashboard-designer/pkg/logging"
	"github.com/goliatone/go-dashboard-designer/pkg/storage/postgres"
	"github.com/goliatone/go-dashboard-designer/pkg/telemetry"
)

// app holds the collaborators shared by every subcommand.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	registry *dashboard.Registry
	store    dashboard.DashboardStore
	closers  []func()
}

func newApp(ctx context.Context, globals *globals) (*app, error) {
	cfg, err := config.Load(config.LoadOptions{Path: globals.Config})
	if err != nil {
		return nil, err
	}
	if globals.Storage != "" {
		cfg.Storage.Driver = globals.Storage
	}
	if globals.DataDir != "" {
		cfg.Storage.Dir = globals.DataDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("designerctl: %w", err)
	}

	logger, err := logging.New(logging.Config{Environment: cfg.Logging.Environment, Level: cfg.Logging.Level})
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, registry: dashboard.NewRegistry()}
	a.closers = append(a.closers, func() { _ = logger.Sync() })

	if globals.Manifest != "" {
		if _, err := a.registry.LoadManifestFile(globals.Manifest); err != nil {
			a.Close()
			return nil, err
		}
	}
	if err := a.registry.ApplyHooks(); err != nil {
		a.Close()
		return nil, err
	}

	blobs, err := a.blobStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = dashboard.NewCollectionStore(blobs,
		dashboard.WithStoreLogger(logging.Named(logger, "store")),
		dashboard.WithStoreValidator(dashboard.NewJSONSchemaValidator(a.registry)),
	)
	return a, nil
}

func (a *app) blobStore(ctx context.Context) (dashboard.BlobStore, error) {
	switch a.cfg.Storage.Driver {
	case "memory":
		return dashboard.NewMemoryBlobStore(), nil
	case "postgres":
		db, err := postgres.Open(ctx, a.cfg.Storage.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		store, err := postgres.NewBlobStore(db, postgres.Options{Table: a.cfg.Storage.Table})
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			return nil, err
		}
		return store, nil
	}
	return dashboard.NewFileBlobStore(a.cfg.Storage.Dir)
}

func (a *app) telemetrySource() (dashboard.TelemetrySource, error) {
	if a.cfg.Telemetry.Mode == "http" {
		return telemetry.NewHTTPClient(telemetry.HTTPConfig{
			BaseURL: a.cfg.Telemetry.BaseURL,
			APIKey:  a.cfg.Telemetry.APIKey,
		})
	}
	return telemetry.NewMockClient(telemetry.MockOptions{
		CatalogDelay: a.cfg.Telemetry.CatalogDelay,
		SeriesDelay:  a.cfg.Telemetry.SeriesDelay,
	}), nil
}

// service builds the full designer service with live data and chart markup.
func (a *app) service(hook dashboard.RefreshHook) (*dashboard.Service, error) {
	source, err := a.telemetrySource()
	if err != nil {
		return nil, err
	}
	live := telemetry.NewSynthetic(telemetry.SyntheticOptions{
		Interval: a.cfg.Telemetry.StreamInterval,
		Logger:   logging.Named(a.logger, "synthetic"),
	})
	a.closers = append(a.closers, live.Close)

	charts := dashboard.NewChartRenderer(
		dashboard.WithChartCache(dashboard.NewChartCache(a.cfg.Charts.CacheTTL)),
		dashboard.WithChartTheme(a.cfg.Charts.Theme),
		dashboard.WithChartAssetsHost(a.cfg.Charts.AssetsHost),
	)
	svc := dashboard.NewService(dashboard.Options{
		Store:       a.store,
		Registry:    a.registry,
		Source:      source,
		Live:        live,
		Charts:      charts,
		RefreshHook: hook,
		Telemetry:   dashboard.NewZapTelemetry(logging.Named(a.logger, "telemetry")),
		EditorMode:  dashboard.EditorMode(a.cfg.Designer.EditorMode),
		Logger:      logging.Named(a.logger, "designer"),
	})
	a.closers = append(a.closers, svc.Close)
	return svc, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
