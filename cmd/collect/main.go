// Command collect runs one collection job and exits. It is the cron-friendly
// entry point: exit 0 on success (including partial success across accounts),
// 1 when the job failed outright, 2 on usage errors.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/account"
	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/collector"
	corecfg "github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/core/config"
	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/core/rollup"
	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/graph"
	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/migrations"
	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/store"
	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/store/postgres"
)

const usage = `usage: collect -job insights|followers|stories|media|rollup [flags]

Flags:
  -config path   configuration file (default "instatrack.yaml")
  -job name      which job to run (required)
  -handle name   run against a single account instead of the accounts file
  -token value   access token for single-account mode (or FB_PAGE_TOKEN)
  -ig-id value   IG user id for single-account mode (or IG_ID)
`

func main() {
	configPath := flag.String("config", "instatrack.yaml", "Path to configuration file")
	jobName := flag.String("job", "", "Job to run: insights|followers|stories|media|rollup")
	handle := flag.String("handle", "", "Single-account handle override")
	token := flag.String("token", "", "Single-account access token override")
	igID := flag.String("ig-id", "", "Single-account IG user id override")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if *jobName == "" {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	single, singleMode := singleAccount(*handle, *igID, *token)
	if singleMode && (single.IGID == "" || single.Token == "") {
		slog.Error("FB_PAGE_TOKEN or IG_ID is missing (you can also pass -token and -ig-id)")
		os.Exit(1)
	}

	cfg, warnings, err := corecfg.Load(*configPath)
	if err != nil {
		// Single-account mode works without a config or accounts file.
		if !singleMode {
			slog.Error("Failed to load config", "error", err)
			os.Exit(1)
		}
		slog.Warn("Config unavailable, using built-in defaults", "error", err)
		cfg = corecfg.Default()
	}
	for _, w := range warnings {
		slog.Warn("Account entry skipped", "warning", w)
	}

	accounts := cfg.AccountList
	if singleMode {
		accounts = []account.Record{single}
	}

	repo, cleanup, err := buildStore(cfg)
	if err != nil {
		slog.Error("Failed to initialize snapshot store", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		cancel()
	}()

	os.Exit(run(ctx, cfg, repo, accounts, *jobName))
}

func run(ctx context.Context, cfg *corecfg.Config, repo store.Repository, accounts []account.Record, jobName string) int {
	if jobName == "rollup" {
		handles := make([]string, 0, len(accounts))
		for _, a := range accounts {
			handles = append(handles, a.Handle)
		}
		changed, err := rollup.NewBuilder(repo).Rebuild(ctx, handles)
		if err != nil {
			slog.Error("Roll-up rebuild failed", "error", err)
			return 1
		}
		slog.Info("Roll-up rebuild complete", "stores", len(handles), "documents_changed", changed)
		return 0
	}

	opts := []graph.Option{
		graph.WithMaxAttempts(cfg.Graph.MaxAttempts),
		graph.WithDebugPayloads(cfg.Graph.DebugPayloads || os.Getenv("DEBUG_INSIGHTS") == "1"),
	}
	if cfg.Graph.BaseURL != "" {
		opts = append(opts, graph.WithBaseURL(cfg.Graph.BaseURL))
	}
	client := graph.NewClient(opts...)

	var job collector.Job
	switch jobName {
	case "insights":
		job = collector.NewInsightsCollector(client, repo, cfg.Collector.Metrics, cfg.Collector.Period)
	case "followers":
		job = collector.NewFollowersCollector(client, repo)
	case "stories":
		job = collector.NewStoriesCollector(client, repo)
	case "media":
		job = collector.NewMediaCollector(client, repo)
	default:
		fmt.Fprint(os.Stderr, usage)
		return 2
	}

	// A handle-less single-account record only works for the followers probe,
	// which resolves the handle from the profile's username.
	if len(accounts) == 1 && accounts[0].Handle == "" {
		if jobName != "followers" {
			fmt.Fprint(os.Stderr, usage)
			return 2
		}
		if err := job.Run(ctx, accounts[0]); err != nil {
			slog.Error("Followers probe failed", "error", err)
			return 1
		}
		return 0
	}

	runner := collector.NewRunner(accounts, cfg.Collector.ThrottleDuration(), nil)
	summary := runner.Run(ctx, job)
	if summary.AllFailed() {
		return 1
	}
	return 0
}

// singleAccount builds an ad-hoc record from flags with env fallback. The
// followers job resolves a missing handle from the profile's username.
func singleAccount(handle, igID, token string) (account.Record, bool) {
	if igID == "" {
		igID = os.Getenv("IG_ID")
	}
	if token == "" {
		token = os.Getenv("FB_PAGE_TOKEN")
	}
	if handle == "" {
		handle = os.Getenv("STORE")
	}
	if igID == "" && token == "" && handle == "" {
		return account.Record{}, false
	}
	return account.Record{Handle: handle, IGID: igID, Token: token}, true
}

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
