package commands

import (
	"database/sql"
	"strings"
	"time"

	"github.com/basharArif/prompt-architect-demo/ai/anthropic"
	"github.com/basharArif/prompt-architect-demo/ai/tracker"
	"github.com/basharArif/prompt-architect-demo/config"
	"github.com/basharArif/prompt-architect-demo/db"
	"github.com/basharArif/prompt-architect-demo/embeddings"
	"github.com/basharArif/prompt-architect-demo/errors"
	"github.com/basharArif/prompt-architect-demo/logger"
	"github.com/basharArif/prompt-architect-demo/pipeline"
	"github.com/basharArif/prompt-architect-demo/prompts"
	"github.com/basharArif/prompt-architect-demo/rank"
	"github.com/basharArif/prompt-architect-demo/ratelimit"
	"github.com/basharArif/prompt-architect-demo/retry"
	"github.com/basharArif/prompt-architect-demo/router"
)

// app bundles the wired components every command operates on. It is
// constructed per command invocation and closed when the command returns.
type app struct {
	cfg      *config.Config
	db       *sql.DB
	store    *prompts.Store
	runner   *pipeline.Runner
	searcher *rank.Searcher
	embedder embeddings.Embedder // nil when embeddings are disabled
}

// newApp loads configuration and wires the full component graph: database,
// template store, rate limit registry, router, API client, and runner.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}

	database, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}

	store := prompts.NewStore(database, logger.Logger)

	registry := ratelimit.NewRegistry(
		ratelimit.NewSQLStore(database, logger.Logger),
		ratelimit.Limits{
			Capacity:       cfg.RateLimits.Fast.Capacity,
			CallsPerMinute: cfg.RateLimits.Fast.CallsPerMinute,
		},
		ratelimit.Limits{
			Capacity:       cfg.RateLimits.Heavy.Capacity,
			CallsPerMinute: cfg.RateLimits.Heavy.CallsPerMinute,
		},
		logger.Logger,
	)

	rt := router.New(registry, router.Models{
		Fast:                 cfg.Anthropic.FastModel,
		Smart:                cfg.Anthropic.SmartModel,
		ThinkingBudgetTokens: cfg.Anthropic.ThinkingBudgetTokens,
	})

	client := anthropic.NewClient(anthropic.Config{
		APIKey:      cfg.Anthropic.APIKey,
		Temperature: cfg.Anthropic.Temperature,
		MaxTokens:   cfg.Anthropic.MaxTokens,
		Logger:      logger.Logger,
	})

	policy := retry.Policy{
		MaxRetries:   cfg.Retry.MaxRetries,
		InitialDelay: time.Duration(cfg.Retry.InitialDelayMS) * time.Millisecond,
		Multiplier:   2,
		MaxDelay:     time.Duration(cfg.Retry.MaxDelayMS) * time.Millisecond,
	}

	runner := pipeline.NewRunner(rt, client, policy, tracker.New(database), logger.Logger)

	var embedder embeddings.Embedder
	if cfg.Embeddings.Enabled {
		embedder = embeddings.NewClient(embeddings.ClientConfig{
			BaseURL:           cfg.Embeddings.BaseURL,
			Model:             cfg.Embeddings.Model,
			TimeoutSeconds:    cfg.Embeddings.TimeoutSeconds,
			RequestsPerMinute: cfg.Embeddings.RequestsPerMinute,
			Logger:            logger.Logger,
		})
	}

	engine := rank.NewEngine(store, logger.Logger)
	searcher := rank.NewSearcher(engine, embedder,
		time.Duration(cfg.Search.DebounceMS)*time.Millisecond, logger.Logger)

	return &app{
		cfg:      cfg,
		db:       database,
		store:    store,
		runner:   runner,
		searcher: searcher,
		embedder: embedder,
	}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		logger.Logger.Warnw("Failed to close database", "error", err)
	}
}

// openDatabase opens and migrates the configured database.
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	path := cfg.Database.Path
	if path == "" {
		path = "architect.db"
	}

	database, err := db.Open(path, logger.Logger)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database at %s", path)
	}

	if err := db.Migrate(database, logger.Logger); err != nil {
		database.Close()
		return nil, errors.Wrapf(err, "failed to run migrations on %s", path)
	}

	return database, nil
}

// resolveTemplate looks a template up by ID first, then by case-insensitive
// exact name.
func resolveTemplate(store *prompts.Store, ref string) (*prompts.Template, error) {
	template, err := store.GetByID(ref)
	if err != nil {
		return nil, err
	}
	if template != nil {
		return template, nil
	}

	all, err := store.GetAll()
	if err != nil {
		return nil, err
	}
	for _, t := range all {
		if strings.EqualFold(t.Name, ref) {
			return t, nil
		}
	}

	return nil, errors.Newf("no template with ID or name %q", ref)
}
