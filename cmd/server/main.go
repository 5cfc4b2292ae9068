package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/daybrew/pulse/internal/api"
	"github.com/daybrew/pulse/internal/classify"
	"github.com/daybrew/pulse/internal/config"
	"github.com/daybrew/pulse/internal/database"
	"github.com/daybrew/pulse/internal/fetch"
	"github.com/daybrew/pulse/internal/logging"
	"github.com/daybrew/pulse/internal/metrics"
	"github.com/daybrew/pulse/internal/pipeline"
	"github.com/daybrew/pulse/internal/scheduler"
	"github.com/daybrew/pulse/internal/server"
	"github.com/daybrew/pulse/internal/summarize"
	"log/slog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to init logger", "error", err)
		os.Exit(1)
	}

	logger.Info("starting pulse")

	ctx := context.Background()

	logger.Info("connecting to database")
	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("database connected")

	if err := database.RunMigrations(db, logger); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	store := database.NewStore(db)

	// LLM collaborator. Without an API key the pipeline still runs: items
	// stay unclassified and summaries fall back.
	var completer classify.Completer
	if cfg.LLM.APIKey != "" {
		completer = classify.NewOpenAICompleter(
			cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.RequestTimeout, cfg.LLM.RequestsPerMinute)
		logger.Info("llm classification enabled", "model", cfg.LLM.Model)
	} else {
		completer = classify.Disabled()
		logger.Warn("OPENAI_API_KEY not set, items will not be classified")
	}

	classifier := classify.NewClassifier(completer, logger)
	changelogClassifier := classify.NewChangelogClassifier(completer, logger)
	summarizer := summarize.NewSummarizer(completer, logger)

	github := fetch.NewGitHub(cfg.Sources.GitHub)
	fetchers := []fetch.Fetcher{
		fetch.NewHackerNews(cfg.Sources.Query),
		fetch.NewReddit(cfg.Sources.Subreddits),
		fetch.NewRSS(cfg.Sources.Feeds),
		fetch.NewVendorNews(cfg.Sources.NewsIndexURL),
		github,
	}
	if len(cfg.Sources.YouTubeChannels) > 0 {
		fetchers = append(fetchers, fetch.NewYouTube(cfg.Sources.YouTubeChannels))
	}

	collector, err := metrics.NewCollector()
	if err != nil {
		logger.Error("failed to init metrics", "error", err)
		os.Exit(1)
	}

	aggregator := pipeline.NewAggregator(pipeline.Deps{
		Fetchers:              fetchers,
		Classifier:            classifier,
		Summarizer:            summarizer,
		Changelog:             changelogClassifier,
		Releases:              github,
		Ecosystem:             github,
		Store:                 store,
		Logger:                logger,
		Metrics:               collector,
		ItemRetentionDays:     cfg.Pipeline.ItemRetentionDays,
		SnapshotRetentionDays: cfg.Pipeline.SnapshotRetentionDays,
	})

	mux := http.NewServeMux()
	handler := api.NewHandler(aggregator, store, logger)
	api.SetupRoutes(mux, handler, cfg.Auth.CronSecret, collector.Handler(), logger)

	if cfg.Scheduler.Enabled {
		logger.Info("starting scheduler", "interval", cfg.Scheduler.CheckInterval)
		sched := scheduler.New(aggregator, cfg.Scheduler.CheckInterval, logger)
		go sched.Start(ctx)
		defer sched.Stop()
	}

	srv := server.New(cfg.Server, logger, collector.InstrumentHandler(mux))

	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("pulse started successfully")
	logger.Info("API available", "url", fmt.Sprintf("http://localhost:%s", cfg.Server.Port))

	waitForSignal(logger)

	logger.Info("shutting down")
	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
}

func waitForSignal(logger *slog.Logger) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	sig := <-c
	logger.Info("received signal", "signal", sig.String())
	signal.Stop(c)
	close(c)
}
