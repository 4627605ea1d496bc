package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"content_import/internal/config"
	"content_import/internal/driver"
	"content_import/internal/driver/feed"
	"content_import/internal/driver/rss"
	"content_import/internal/filestore"
	"content_import/internal/httpfetch"
	"content_import/internal/publisher"
	"content_import/internal/service"
	"content_import/internal/storage/cache"
	"content_import/internal/storage/postgres"
)

// app holds the wired components shared by the commands.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *sqlx.DB

	txManager *postgres.TransactionManager
	contents  *postgres.ContentStore
	sections  *postgres.SectionStore
	tags      *postgres.TagStore
	importers *postgres.ImporterStore
	files     *filestore.Store

	stores   driver.Stores
	registry *driver.Registry

	closers []func() error
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := setupLogger(cfg.Log)

	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	logger.Debug("connected to database")

	a := &app{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		closers: []func() error{db.Close},
	}

	a.txManager = postgres.NewTransactionManager(db)
	a.contents = postgres.NewContentStore(db, a.txManager)
	a.sections = postgres.NewSectionStore(db)
	a.tags = postgres.NewTagStore(db)
	a.importers = postgres.NewImporterStore(db)

	fetcher := httpfetch.New(httpfetch.Config{
		Timeout:        cfg.HTTP.Timeout,
		UserAgent:      cfg.HTTP.UserAgent,
		RateLimit:      cfg.HTTP.RateLimit,
		Burst:          cfg.HTTP.Burst,
		MaxAttempts:    cfg.HTTP.Retry.MaxAttempts,
		InitialBackoff: cfg.HTTP.Retry.InitialBackoff,
		MaxBackoff:     cfg.HTTP.Retry.MaxBackoff,
	}, logger)

	backend, err := filestore.NewBackend(ctx, cfg.FileStore)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("init file store: %w", err)
	}
	a.files = filestore.New(backend, postgres.NewFileStore(db), fetcher, logger)

	a.stores = driver.Stores{
		Contents: a.contents,
		Sections: a.sections,
		Tags:     cache.NewTagCache(a.tags, cfg.TagCache.Size, cfg.TagCache.TTL),
		Files:    a.files,
	}
	a.registry = driver.NewRegistry(
		rss.New(fetcher, a.stores, logger),
		feed.New(fetcher, a.stores, logger),
	)

	return a, nil
}

// newRunner connects the event publisher and builds the import runner.
func (a *app) newRunner() (*service.Runner, error) {
	var pub service.Publisher
	if a.cfg.RabbitMQ.URL == "" {
		a.logger.Info("rabbitmq not configured, import events go to the log")
		pub = publisher.NewLog(a.logger)
	} else {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        a.cfg.RabbitMQ.URL,
			Exchange:   a.cfg.RabbitMQ.Exchange,
			RoutingKey: a.cfg.RabbitMQ.RoutingKey,
			QueueName:  a.cfg.RabbitMQ.QueueName,
		}, a.logger)
		if err != nil {
			return nil, err
		}
		pub = rabbitMQ
	}
	a.closers = append(a.closers, pub.Close)

	// add_tags are dispensed inside the persist transaction, so they bypass
	// the tag cache.
	return service.NewRunner(
		a.importers,
		a.contents,
		a.tags,
		a.files,
		a.registry,
		a.txManager,
		pub,
		a.logger,
		a.cfg.Import,
	), nil
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
