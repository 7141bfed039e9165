package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/atinyakov/journalon/internal/client/cache"
	"github.com/atinyakov/journalon/internal/client/hashkeep"
	"github.com/atinyakov/journalon/internal/client/storage"
	"github.com/atinyakov/journalon/internal/common"
	"github.com/atinyakov/journalon/internal/config"
	"github.com/atinyakov/journalon/internal/service"
	"go.uber.org/zap"
)

// App is the wired client: local index, cache, store client and the journal
// service on top of them.
type App struct {
	Config   *config.Client
	Log      *zap.Logger
	Journals *service.JournalService

	index *storage.Index
	cache *cache.Cache
	db    *sql.DB
}

// NewApp opens the local index selected by cfg and connects the journal
// service to the configured store.
func NewApp(cfg *config.Client, log *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &App{Config: cfg, Log: log, cache: cache.New()}

	var kv storage.KV
	switch cfg.Index {
	case config.IndexSQLite:
		db, err := storage.OpenSQLite(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrStorage, err)
		}
		app.db = db
		kv = storage.NewSQLiteKV(db)
	default:
		kv = storage.NewFileKV(cfg.DataDir)
	}
	app.index = storage.NewIndex(kv, log)

	httpClient, err := hashkeep.NewHTTPClient(cfg.CAFile, cfg.Timeout)
	if err != nil {
		app.Close()
		return nil, common.WrapError(err, "configure store client")
	}
	store := hashkeep.New(cfg.BaseURL, httpClient, log)

	app.Journals = service.NewJournalService(store, app.index, app.cache, service.WithLogger(log))
	log.Debug("client ready",
		zap.String("url", cfg.BaseURL),
		zap.String("data_dir", cfg.DataDir),
		zap.String("index", cfg.Index),
	)
	return app, nil
}

// ForgetAll drops every locally held id and private key along with the cache.
// Published blobs are untouched.
func (a *App) ForgetAll(ctx context.Context) error {
	if err := a.index.Reset(ctx); err != nil {
		return common.WrapError(err, "forget local journals")
	}
	a.cache.Reset()
	return nil
}

// Close releases the local index.
func (a *App) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
