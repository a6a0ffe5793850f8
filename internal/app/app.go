// Package app wires the configured components shared by the daemon and CLI.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/mind-engage/lawcards/internal/assets"
	"github.com/mind-engage/lawcards/internal/cache"
	"github.com/mind-engage/lawcards/internal/catalog"
	"github.com/mind-engage/lawcards/internal/config"
	"github.com/mind-engage/lawcards/internal/content"
	"github.com/mind-engage/lawcards/internal/db"
	"github.com/mind-engage/lawcards/internal/highscore"
	"github.com/mind-engage/lawcards/internal/logger"
	"github.com/mind-engage/lawcards/internal/remote"
	"github.com/mind-engage/lawcards/internal/sections"
	"github.com/mind-engage/lawcards/internal/syncx"
)

type App struct {
	Config     config.Config
	DB         *sql.DB
	Catalog    *catalog.Catalog
	Remote     *remote.Client
	Store      *cache.Store
	Assets     *assets.Downloader
	Events     *syncx.EventRepo
	Sync       *syncx.Orchestrator
	Sections   *sections.Service
	HighScores *highscore.Book
	Markers    content.Markers
	Log        *logger.Logger
}

// New opens storage and builds every component. The SQL database always
// backs the sync event log; cache entries go to SQL or Redis per config.
func New(ctx context.Context, cfg config.Config, log *logger.Logger) (*App, error) {
	log = logger.OrNop(log)

	driver, err := db.ParseDriver(cfg.DBDriver)
	if err != nil {
		return nil, err
	}
	dbh, err := db.Open(ctx, driver, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}

	backend, err := newBackend(ctx, cfg, dbh)
	if err != nil {
		dbh.Close()
		return nil, err
	}

	cat, err := catalog.Load(log.With("component", "catalog"))
	if err != nil {
		dbh.Close()
		return nil, fmt.Errorf("catalog: %w", err)
	}

	markers := content.DefaultMarkers
	client := remote.New(remote.Config{
		BaseURL:            cfg.APIBaseURL,
		DescriptionBaseURL: cfg.DescriptionBaseURL,
		Timeout:            cfg.HTTPTimeout,
		Markers:            markers,
		Categories:         cat,
		HTTPClient:         &http.Client{},
	}, log.With("component", "remote"))

	store := cache.New(backend,
		cache.WithLocation(cfg.Location()),
		cache.WithLogger(log.With("component", "cache")))

	downloader := assets.NewDownloader(client, store, cat.Assets(), cfg.AssetBaseURL, log.With("component", "assets"))
	events := syncx.NewEventRepo(dbh)

	orch := syncx.New(syncx.Config{
		Catalog:    cat,
		Remote:     client,
		Store:      store,
		Assets:     downloader,
		Events:     events,
		MaxAgeDays: cfg.CacheMaxAgeDays,
	}, log.With("component", "sync"))

	return &App{
		Config:     cfg,
		DB:         dbh,
		Catalog:    cat,
		Remote:     client,
		Store:      store,
		Assets:     downloader,
		Events:     events,
		Sync:       orch,
		Sections:   sections.New(cat, store, markers),
		HighScores: highscore.New(store, nil),
		Markers:    markers,
		Log:        log,
	}, nil
}

func newBackend(ctx context.Context, cfg config.Config, dbh *sql.DB) (cache.Backend, error) {
	switch cfg.CacheBackend {
	case config.CacheBackendSQL, "":
		return cache.NewSQLBackend(dbh), nil
	case config.CacheBackendRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		return cache.NewRedisBackend(rdb), nil
	}
	return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
}

// Close releases the cache backend and the database.
func (a *App) Close() error {
	var errs []error
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	// The SQL backend closes the shared handle itself.
	if a.Config.CacheBackend == config.CacheBackendRedis && a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}
