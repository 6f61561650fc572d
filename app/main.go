package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/memo-comb/app/api"
	"github.com/lysyi3m/memo-comb/app/cfg"
	"github.com/lysyi3m/memo-comb/app/database"
	"github.com/lysyi3m/memo-comb/app/embed"
	"github.com/lysyi3m/memo-comb/app/feed"
	"github.com/lysyi3m/memo-comb/app/fetcher"
	"github.com/lysyi3m/memo-comb/app/memo"
	"github.com/lysyi3m/memo-comb/app/relay"
	"github.com/lysyi3m/memo-comb/app/rss"
	"github.com/lysyi3m/memo-comb/app/source"
	"github.com/lysyi3m/memo-comb/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		return
	}

	level := slog.LevelInfo
	if appCfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	slog.Info("Starting Memo Comb server", "version", appCfg.Version)

	registry, err := source.Load(source.LoadOptions{
		MemosPath:  appCfg.MemosConfig,
		FeedsPath:  appCfg.FeedsConfig,
		NoDefaults: appCfg.NoDefaults,
	})
	if err != nil {
		slog.Error("Failed to load sources", "error", err)
		os.Exit(1)
	}
	slog.Info("Sources loaded", "memos", len(registry.Memos()), "feeds", len(registry.Feeds()))

	db, err := database.Open(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	store := database.NewSourceRepository(db)

	client := fetcher.NewClient(
		fetcher.WithUserAgent(appCfg.UserAgent),
		fetcher.WithTimeout(appCfg.GetFetchTimeout()),
	)
	relayClient := fetcher.NewClient(
		fetcher.WithUserAgent(relay.DefaultUserAgent),
		fetcher.WithTimeout(appCfg.GetFetchTimeout()),
	)

	memoRunner := memo.NewRunner(client, memo.NewNormalizer(), appCfg.PageSize, store)
	feedRunner := feed.NewRunner(client, feed.NewParser(appCfg.FaviconService), store)

	var allowed []string
	if appCfg.RelayRestrict {
		allowed = registry.Hosts()
		slog.Info("Feed relay restricted to configured hosts", "hosts", len(allowed))
	}

	if appCfg.MemosAPIURL == "" {
		slog.Warn("MEMOS_API_URL not set, memo writes are disabled")
	}

	scheduler := tasks.NewScheduler(registry.All(), store, map[source.Kind]tasks.ProbeFunc{
		source.KindMemo: tasks.RunnerProbe(memoRunner),
		source.KindFeed: tasks.RunnerProbe(feedRunner),
	}, appCfg.WorkerCount, appCfg.GetProbeInterval())
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(api.Deps{
		Registry:  registry,
		Memos:     memoRunner,
		Feeds:     feedRunner,
		Relay:     relay.New(relayClient, allowed),
		Writer:    relay.NewPassthrough(appCfg.MemosAPIURL, nil, appCfg.GetFetchTimeout()),
		Embeds:    embed.NewResolver(client, embed.NewCache()),
		Generator: rss.NewGenerator(),
		Store:     store,
		Scheduler: scheduler,
	})
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig)
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	slog.Info("Memo Comb server shutdown complete")
}
