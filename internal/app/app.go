package app

import (
	"context"
	"fmt"
	"log/slog"

	goi18n "github.com/nicksnyder/go-i18n/i18n"
	cfg "github.com/webitel/bot-report-exporter/config"
	"github.com/webitel/bot-report-exporter/internal/archive"
	cache "github.com/webitel/bot-report-exporter/internal/cache/redis"
	"github.com/webitel/bot-report-exporter/internal/delivery"
	"github.com/webitel/bot-report-exporter/internal/errors"
	"github.com/webitel/bot-report-exporter/internal/export"
	"github.com/webitel/bot-report-exporter/internal/server"
	"github.com/webitel/bot-report-exporter/internal/server/interceptor"
	"github.com/webitel/bot-report-exporter/internal/service"
	"github.com/webitel/bot-report-exporter/internal/store"
	"github.com/webitel/bot-report-exporter/internal/store/postgres"
	"github.com/webitel/bot-report-exporter/internal/store/sample"
	"github.com/webitel/bot-report-exporter/registry"
	"github.com/webitel/bot-report-exporter/registry/consul"
)

type App struct {
	Config    *cfg.AppConfig
	log       *slog.Logger
	exitCh    chan error
	shutdown  func(ctx context.Context) error
	Store     store.Store
	Cache     *cache.RedisCache
	Delivery  delivery.Store
	Service   service.ReportService
	translate goi18n.TranslateFunc
	server    *server.Server
}

// New creates a fully initialized App.
func New(ctx context.Context, config *cfg.AppConfig, shutdown func(ctx context.Context) error) (*App, error) {
	app := &App{
		Config:   config,
		log:      slog.Default(),
		shutdown: shutdown,
		exitCh:   make(chan error, 1),
	}

	if err := app.initStore(); err != nil {
		return nil, err
	}
	if err := app.initRedis(); err != nil {
		return nil, err
	}
	if err := app.initDelivery(ctx); err != nil {
		return nil, err
	}
	if err := app.initService(); err != nil {
		return nil, err
	}
	if err := app.initServer(); err != nil {
		return nil, err
	}

	// --------- Route Registration (HTTP) ---------
	if err := RegisterRoutes(app.server.Router, app); err != nil {
		return nil, err
	}

	return app, nil
}

// --------- Private init methods ---------

func (app *App) initStore() error {
	if app.Config.Database == nil {
		return errors.New("database config is nil")
	}
	app.Store = postgres.New(app.Config.Database)
	return nil
}

func (app *App) initRedis() error {
	redisCache, err := cache.NewRedisCache(app.Config.Redis.Addr, app.Config.Redis.Password, app.Config.Redis.DB)
	if err != nil {
		return errors.New("unable to initialize Redis", errors.WithCause(err))
	}
	app.Cache = redisCache
	return nil
}

func (app *App) initDelivery(ctx context.Context) error {
	d, err := delivery.New(ctx, app.Config.Delivery)
	if err != nil {
		return errors.New("unable to initialize delivery", errors.WithCause(err))
	}
	app.Delivery = d
	return nil
}

func (app *App) initService() error {
	T, err := errors.Translator(app.Config.Export.Language)
	if err != nil {
		return errors.New("unable to load translations", errors.WithCause(err))
	}
	app.translate = T

	source, err := app.documentSource()
	if err != nil {
		return err
	}
	archiveCfg := app.Config.Archive
	packager := archive.NewPackager(
		archive.WithSource(source),
		archive.WithConcurrency(archiveCfg.Concurrency),
		archive.WithRetries(archiveCfg.FetchRetries, archiveCfg.FetchBackoff),
		archive.WithLogger(app.log),
	)
	encoder := export.NewEncoder(
		export.WithQuoting(app.Config.Export.Quoting),
		export.WithLogger(app.log),
	)

	svc, err := service.NewReportService(app.uploads(), app.Store.History(), app.Cache, app.Delivery, app.log,
		service.WithEncoder(encoder),
		service.WithPackager(packager),
		service.WithTranslator(T),
	)
	if err != nil {
		return errors.New("failed to init report service", errors.WithCause(err))
	}
	app.Service = svc
	return nil
}

func (app *App) uploads() store.UploadStore {
	if app.Config.Records.Source == cfg.RecordsPostgres {
		return app.Store.Uploads()
	}
	return sample.New()
}

func (app *App) documentSource() (archive.DocumentSource, error) {
	switch kind := archive.SourceKind(app.Config.Archive.Source); kind {
	case archive.SourcePlaceholder:
		return archive.PlaceholderSource{}, nil
	case archive.SourceRendered:
		return archive.RenderedSource{}, nil
	case archive.SourceStorage:
		return &archive.StorageSource{Reader: app.Delivery, Prefix: app.Config.Archive.Prefix}, nil
	default:
		return nil, errors.InvalidArgument(
			fmt.Sprintf("unknown archive source %q", kind),
			errors.WithID("app.archive.source"),
		)
	}
}

func (app *App) initServer() error {
	var reg registry.ServiceRegistrator = registry.Noop{}
	if app.Config.Consul.Enabled() {
		consulReg, err := consul.NewConsulRegistry(app.Config.Consul, app.log)
		if err != nil {
			return errors.New("failed to init consul registry", errors.WithCause(err))
		}
		reg = consulReg
	}

	responder := interceptor.NewErrorResponder(app.translate, app.log)
	srv, err := server.BuildServer(app.Config.HTTP.Addr, reg, app.exitCh, app.log, responder.Recover)
	if err != nil {
		return errors.New("failed to build server", errors.WithCause(err))
	}
	app.server = srv
	return nil
}

// Start opens the database, then runs the HTTP server and export workers until
// the server fails or ctx ends.
func (app *App) Start(ctx context.Context) error {
	if err := app.Store.Open(); err != nil {
		return errors.New("failed to open store", errors.WithCause(err))
	}

	go app.server.Start()
	app.StartExportWorker(ctx)

	select {
	case err := <-app.exitCh:
		return err
	case <-ctx.Done():
		return nil
	}
}

// Stop gracefully shuts down all services
func (app *App) Stop() error {
	app.log.Info("report_exporter.main.stop_starting")

	if app.server != nil {
		app.server.Stop()
		app.log.Info("server stopped")
	}

	if app.Cache != nil {
		if err := app.Cache.Close(); err != nil {
			app.log.Error("redis close error", "err", err)
		} else {
			app.log.Info("redis closed")
		}
	}

	if app.Store != nil {
		if err := app.Store.Close(); err != nil {
			app.log.Error("store close error", "err", err)
		}
	}

	if app.shutdown != nil {
		if err := app.shutdown(context.Background()); err != nil {
			app.log.Error("shutdown hook error", "err", err)
		} else {
			app.log.Info("shutdown hook executed")
		}
	}

	app.log.Info("report_exporter.main.stop_complete")
	return nil
}
