package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/meridiancode/meridian/internal/broadcast"
	"github.com/meridiancode/meridian/internal/config"
	"github.com/meridiancode/meridian/internal/enrich"
	"github.com/meridiancode/meridian/internal/graph"
	"github.com/meridiancode/meridian/internal/httpapi"
	"github.com/meridiancode/meridian/internal/parserpool"
	"github.com/meridiancode/meridian/internal/symbols"
	"github.com/meridiancode/meridian/internal/updater"
	"github.com/meridiancode/meridian/internal/watcher"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Watch a repository and serve its live code graph",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		return runServe(cmd.Context(), cfg)
	},
}

func runServe(ctx context.Context, cfg *config.Config) error {
	store := graph.NewStore()
	table := symbols.NewTable()
	pool := parserpool.New()

	hub := broadcast.NewHub(func() graph.Snapshot {
		return graph.Snapshot{Nodes: store.AllNodes(), Edges: store.AllEdges()}
	})

	up := updater.New(store, table, pool, hub, nil)

	var enricher *enrich.Enricher
	if cfg.AIEnabled {
		provider := selectProvider(cfg)
		enricher = enrich.New(store, provider, hub, enrich.Config{
			TotalTokens: cfg.AITotalTokens,
			Model:       cfg.AIModel,
			BatchSize:   cfg.AIBatchSize,
			APIDelay:    cfg.AIDelay,
			CacheTTL:    cfg.AICacheTTL,
			AutoAccept:  cfg.AutoAcceptThreshold,
		})
		up.SetEnricher(enricher)
		go enricher.Run(ctx)
		defer enricher.Close()
	}

	slog.Info("meridian: performing initial scan", "root", cfg.WatchRoot)
	count, err := up.Scan(ctx, cfg.WatchRoot)
	if err != nil {
		return err
	}
	slog.Info("meridian: initial scan complete", "files", count)

	opts := watcher.DefaultOptions()
	if cfg.DebounceWindow > 0 {
		opts.DebounceWindow = cfg.DebounceWindow
	}
	if len(cfg.IgnorePatterns) > 0 {
		opts.IgnorePatterns = append(opts.IgnorePatterns, cfg.IgnorePatterns...)
	}
	w, err := watcher.New(cfg.WatchRoot, opts)
	if err != nil {
		return err
	}
	w.Start(ctx)

	go func() {
		for ev := range w.Events() {
			if ev.Flushed {
				continue
			}
			if err := up.Apply(ctx, ev.Path, ev.Kind); err != nil {
				slog.Warn("meridian: update failed", "path", ev.Path, "error", err)
			}
		}
	}()

	srv := httpapi.NewServer(store, hub, cfg.HTTPPort)
	if err := httpapi.Run(srv); err != nil {
		return err
	}

	w.Stop()
	pool.Close()
	hub.Close()
	return nil
}

// selectProvider constructs the AI provider named by cfg.AIProvider
// ("openai", "anthropic", or "local"), falling back to OpenAI for an empty
// or unrecognized value so existing config files keep working.
func selectProvider(cfg *config.Config) enrich.Provider {
	switch cfg.AIProvider {
	case "anthropic":
		return enrich.NewAnthropicProvider(cfg.AIAPIKey, cfg.AIModel)
	case "local":
		return enrich.NewLocalProvider()
	case "", "openai":
		return enrich.NewOpenAIProvider(cfg.AIAPIKey, cfg.AIModel)
	default:
		slog.Warn("meridian: unknown ai_provider, falling back to openai", "provider", cfg.AIProvider)
		return enrich.NewOpenAIProvider(cfg.AIAPIKey, cfg.AIModel)
	}
}
