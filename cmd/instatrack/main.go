package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/collector"
	corecfg "github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/core/config"
	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/core/rollup"
	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/graph"
	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/migrations"
	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/observability"
	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/projection"
	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/scheduler"
	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/server"
	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/store"
	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/store/postgres"
)

func main() {
	configPath := flag.String("config", "instatrack.yaml", "Path to configuration file")
	flag.Parse()

	// 0. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, warnings, err := corecfg.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	for _, w := range warnings {
		slog.Warn("Account entry skipped", "warning", w)
	}
	slog.Info("Loaded config", "accounts", len(cfg.AccountList), "store", cfg.Store.Type)

	metrics := observability.NewMetrics("instatrack")

	// 2. Initialize Snapshot Store
	repo, cleanup, err := buildStore(cfg)
	if err != nil {
		slog.Error("Failed to initialize snapshot store", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	// 3. Initialize Graph Client + Collectors
	opts := []graph.Option{
		graph.WithMaxAttempts(cfg.Graph.MaxAttempts),
		graph.WithDebugPayloads(cfg.Graph.DebugPayloads || os.Getenv("DEBUG_INSIGHTS") == "1"),
	}
	if cfg.Graph.BaseURL != "" {
		opts = append(opts, graph.WithBaseURL(cfg.Graph.BaseURL))
	}
	client := graph.NewClient(opts...)

	runner := collector.NewRunner(cfg.AccountList, cfg.Collector.ThrottleDuration(), metrics)
	followersJob := collector.NewFollowersCollector(client, repo)
	storiesJob := collector.NewStoriesCollector(client, repo)
	dailyJobs := []collector.Job{
		collector.NewInsightsCollector(client, repo, cfg.Collector.Metrics, cfg.Collector.Period),
		collector.NewMediaCollector(client, repo),
	}

	// 4. Initialize Scheduler (collection cadences + roll-up rebuilds)
	handles := make([]string, 0, len(cfg.AccountList))
	for _, a := range cfg.AccountList {
		handles = append(handles, a.Handle)
	}
	followersEvery, storiesEvery, dailyEvery := cfg.Collector.IntervalDurations()
	sched := scheduler.New(
		runner,
		followersJob,
		storiesJob,
		dailyJobs,
		rollup.NewBuilder(repo),
		handles,
		scheduler.Intervals{Followers: followersEvery, Stories: storiesEvery, Daily: dailyEvery},
		metrics,
	)

	// 5. Initialize Projection (query API) + Server
	projectionSvc := projection.NewService(repo, cfg.AccountList, metrics)
	srv := server.New(cfg.Server.Addr(), repo, metrics, cfg.Server.Mode)
	projectionSvc.RegisterRoutes(srv.Engine)

	// 6. Start Services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := sched.Start(ctx); err != nil {
			slog.Error("Scheduler stopped with error", "error", err)
		}
	}()

	// Signal handler triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	// HTTP server blocks until ctx is cancelled.
	if err := srv.Run(ctx); err != nil {
		slog.Error("Server stopped with error", "error", err)
	}

	slog.Info("Shutdown complete")
}

// buildStore constructs the configured snapshot store backend. The returned
// cleanup is a no-op for the filesystem and memory backends.
func buildStore(cfg *corecfg.Config) (store.Repository, func(), error) {
	switch cfg.Store.Type {
	case "memory":
		return store.NewMemoryRepository(), func() {}, nil
	case "postgres":
		adapter, err := postgres.NewAdapter(cfg.Store.DSN, cfg.Store.MaxOpenConns, cfg.Store.MaxIdleConns)
		if err != nil {
			return nil, nil, err
		}
		if err := migrations.RunMigrations(adapter.DB(), cfg.Store.AutoMigrate); err != nil {
			adapter.Close()
			return nil, nil, err
		}
		return adapter, func() { adapter.Close() }, nil
	default:
		return store.NewFileSystemRepository(cfg.Store.Path), func() {}, nil
	}
}
