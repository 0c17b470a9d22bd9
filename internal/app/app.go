package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/jpticker/config"
	"github.com/guttosm/jpticker/internal/analysis"
	"github.com/guttosm/jpticker/internal/api"
	"github.com/guttosm/jpticker/internal/dictionary"
	"github.com/guttosm/jpticker/internal/fuzzy"
	"github.com/guttosm/jpticker/internal/resolver"
	"github.com/guttosm/jpticker/internal/service"
	"github.com/guttosm/jpticker/internal/session"
	"github.com/guttosm/jpticker/internal/storage"
)

// requestTimeoutSlack keeps the HTTP request deadline just above the analysis
// client timeout.
const requestTimeoutSlack = 5 * time.Second

// Core holds the components shared by the HTTP API and the CLI modes.
type Core struct {
	Store    *dictionary.Store
	Resolver *resolver.Resolver
	Analysis *analysis.Client
	DB       *sql.DB // nil unless the postgres dictionary source is used
}

// NewSession returns a standalone session over the core components.
func (c *Core) NewSession(id string) *session.Session {
	return session.New(id, c.Resolver, c.Store, c.Analysis)
}

// dictionarySource picks the dictionary source from configuration. db is
// only used by the postgres source.
func dictionarySource(cfg config.Config, db *sql.DB) (dictionary.Source, error) {
	switch cfg.Dictionary.Source {
	case config.DictSourceFile, "":
		return dictionary.FileSource{Path: cfg.Dictionary.Path}, nil
	case config.DictSourceHTTP:
		src := dictionary.HTTPSource{URL: cfg.Dictionary.Path}
		if cfg.Dictionary.Timeout > 0 {
			src.Client = &http.Client{Timeout: cfg.Dictionary.Timeout}
		}
		return src, nil
	case config.DictSourcePostgres:
		return dictionary.PostgresSource{Repo: storage.NewTickerRepository(db)}, nil
	default:
		return nil, fmt.Errorf("unknown dictionary source %q", cfg.Dictionary.Source)
	}
}

func fuzzyOptions(cfg config.FuzzyConfig) fuzzy.Options {
	return fuzzy.Options{
		Threshold: cfg.Threshold,
		Weights: fuzzy.Weights{
			Code:    cfg.WeightCode,
			Name:    cfg.WeightName,
			Kana:    cfg.WeightKana,
			Aliases: cfg.WeightAliases,
		},
	}
}

// BuildCore loads the dictionary and wires the resolver and analysis client.
//
// A dictionary load failure is returned as *dictionary.LoadError; callers
// treat it as fatal.
func BuildCore(ctx context.Context, cfg config.Config) (*Core, func(), error) {
	var db *sql.DB
	cleanup := func() {}

	if cfg.Dictionary.Source == config.DictSourcePostgres {
		var err error
		// indirection for unit testing
		db, err = postgresOpener(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize postgres: %w", err)
		}
		cleanup = func() { _ = db.Close() }
	}

	src, err := dictionarySource(cfg, db)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	store, err := dictionary.Open(ctx, src)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	searcher := fuzzy.NewEditSearcher(fuzzyOptions(cfg.Fuzzy))
	core := &Core{
		Store:    store,
		Resolver: resolver.New(store, searcher, cfg.Fuzzy.MaxCandidates),
		Analysis: analysis.NewClient(cfg.Analysis.BaseURL, cfg.Analysis.Timeout),
		DB:       db,
	}
	return core, cleanup, nil
}

// InitializeApp sets up all application dependencies and returns
// a fully configured Gin router, a cleanup function for graceful shutdown,
// and any error encountered during initialization.
//
// Responsibilities:
//   - Loads the ticker dictionary (file, http or postgres) via BuildCore.
//   - Creates the session registry and the ticker service.
//   - Configures the Gin router with all API routes.
//   - Registers health and readiness probes.
//   - Provides a cleanup function to close resources (e.g., DB connection).
func InitializeApp() (*gin.Engine, func(), error) {
	cfg := config.AppConfig

	core, cleanup, err := BuildCore(context.Background(), cfg)
	if err != nil {
		return nil, nil, err
	}

	registry := session.NewRegistry(core.Resolver, core.Store, core.Analysis, cfg.Server.SessionIdleTTL)
	svc := service.NewTickerService(core.Resolver, core.Store, registry)
	handler := api.NewHandler(svc)

	opts := api.DefaultRouterOptions()
	opts.RateLimitPerMinute = cfg.Server.RateLimitPerMinute
	if cfg.Analysis.Timeout > 0 {
		opts.RequestTimeout = cfg.Analysis.Timeout + requestTimeoutSlack
	}
	router := api.NewRouter(handler, opts)

	checks := map[string]api.ReadinessCheck{
		"dictionary": func() error {
			if core.Store.Len() == 0 {
				return errors.New("ticker dictionary is empty")
			}
			return nil
		},
	}
	if core.DB != nil {
		checks["postgres"] = core.DB.Ping
	}
	api.NewHealthHandler(checks).Register(router)

	return router, cleanup, nil
}
