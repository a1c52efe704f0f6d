package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/olamda/curator/app/ai"
	"github.com/olamda/curator/app/api"
	"github.com/olamda/curator/app/bot"
	"github.com/olamda/curator/app/cfg"
	"github.com/olamda/curator/app/content"
	"github.com/olamda/curator/app/database"
	"github.com/olamda/curator/app/pipeline"
	"github.com/olamda/curator/app/sources"
	"github.com/olamda/curator/app/tasks"
)

func main() {
	config, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if config == nil {
		// Help was requested.
		return
	}

	logLevel := slog.LevelInfo
	if config.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting curator", "version", config.Version)

	db, err := database.NewConnection(config.DatabasePath)
	if err != nil {
		slog.Error("Failed to open database", "path", config.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", db.Path(), "schema_version", version, "dirty", dirty)

	itemRepo := database.NewItemRepository(db)

	sourceConfigs, err := sources.NewLoader(config.SourcesDir).LoadAll()
	if err != nil {
		slog.Error("Failed to load source configurations", "dir", config.SourcesDir, "error", err)
		os.Exit(1)
	}
	if len(sourceConfigs) == 0 {
		slog.Warn("No source configurations found, fetch cycles will be empty", "dir", config.SourcesDir)
	}

	httpClient := sources.NewHTTPClient()
	connectors := sources.BuildConnectors(sourceConfigs, httpClient, config.UserAgent)
	slog.Info("Sources configured", "total", len(sourceConfigs), "enabled", len(connectors))

	extractor := content.NewExtractor(httpClient, config.UserAgent)
	aiClient := ai.NewClient(config.GeminiAPIKey, config.GeminiModel,
		config.TargetLanguage, config.TelegramChannelID,
		ai.WithHTTPClient(httpClient))

	botClient := bot.NewClient(config.TelegramBotToken)
	transport := bot.NewTransport(botClient, config.TelegramChannelID, config.TelegramAdminID)

	fingerprinter := pipeline.NewFingerprinter(config.DedupStrategy)
	ingestor := pipeline.NewIngestor(itemRepo, fingerprinter, config.MaxNewItemsPerFetch)
	fetcher := pipeline.NewFetcher(connectors, extractor, ingestor)
	classify := pipeline.NewClassifyStage(itemRepo, aiClient, config.ClassificationThreshold, config.MaxConsecutiveFailures)
	translate := pipeline.NewTranslateStage(itemRepo, aiClient, config.MaxConsecutiveFailures)
	approver := pipeline.NewApprover(itemRepo, transport, config.MaxConsecutiveFailures)
	publisher := pipeline.NewPublisher(itemRepo, transport, config.PublishGap(), config.MaxPublishPerCycle)

	scheduler := tasks.NewScheduler(itemRepo, fetcher, classify, translate,
		approver, publisher, transport, aiClient.ResetUsage,
		config.FetchInterval(), config.CycleDeadline())
	scheduler.Start()
	defer scheduler.Stop()

	pollerCtx, stopPoller := context.WithCancel(context.Background())
	defer stopPoller()

	handler := bot.NewHandler(botClient, config.TelegramAdminID, approver, itemRepo, scheduler.TriggerFetch)
	poller := bot.NewPoller(botClient, handler, config.TelegramAdminID)
	go poller.Run(pollerCtx)

	apiHandler := api.NewHandler(itemRepo, scheduler, config.Version)
	server := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      api.NewServer(apiHandler, config.APIAccessKey),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", config.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig)
	case err := <-serverErrChan:
		slog.Error("HTTP server failed", "error", err)
	}

	stopPoller()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown failed", "error", err)
	}

	slog.Info("Shutdown complete")
}
