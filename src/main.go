package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofrs/flock"

	"medio/src/features/config"
	"medio/src/features/history"
	"medio/src/features/hosting"
	"medio/src/features/jobs"
	"medio/src/features/logging"
	"medio/src/features/metrics"
	"medio/src/features/pipeline"
	"medio/src/features/renaming"
	"medio/src/infra/database"
	"medio/src/infra/exiftool"
	"medio/src/infra/notify"
	"medio/src/infra/thumbs"
)

func main() {
	// Load configuration
	cfgManager, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Setup default logger with slog
	logger := logging.SetupLogger(cfgManager)
	slog.SetDefault(logger)

	cfg := cfgManager.Get()

	// Refuse to run twice against the same source tree.
	lock := flock.New(os.TempDir() + "/medio.lock")
	locked, err := lock.TryLock()
	if err != nil {
		log.Fatalf("failed to acquire instance lock: %v", err)
	}
	if !locked {
		log.Fatal("another medio instance is already running")
	}
	defer lock.Unlock()

	slog.Info("Watching for new media",
		"source", cfg.SourcePath,
		"destination", cfg.DestinationPath,
		"format", cfg.Rename.Format,
		"locale", cfg.Rename.Locale,
		"delete_duplicates", cfg.Rename.DeleteDuplicates,
	)

	metricSet := metrics.NewSet()

	// History store is an optional audit trail.
	var historyService *history.Service
	var recorder renaming.Recorder = renaming.NopRecorder{}
	if cfg.History.Enabled {
		store, err := database.NewSqliteHistory(cfg.History.Path)
		if err != nil {
			log.Fatalf("failed to open history store: %v", err)
		}
		defer store.Close()
		recorder = store
		historyService = history.NewService(store)
	}

	var notifier renaming.Notifier = renaming.NopNotifier{}
	if cfg.Telegram.Enabled {
		telegramNotifier, err := notify.NewTelegramNotifier(cfgManager)
		if err != nil {
			slog.Error("Failed to initialize Telegram notifier", "error", err)
		} else {
			notifier = telegramNotifier
		}
	}

	var thumbnailer renaming.Thumbnailer
	thumbsDir := ""
	if cfg.Thumbnails.Enabled {
		generator, err := thumbs.NewGenerator(cfgManager)
		if err != nil {
			log.Fatalf("failed to set up thumbnails: %v", err)
		}
		thumbnailer = generator
		thumbsDir = generator.Dir()
	}

	// Assemble and start the pipeline.
	renamer := exiftool.NewRunner(cfgManager)
	supervisor, err := pipeline.NewSupervisor(cfgManager, renamer, recorder, notifier, thumbnailer, metricSet)
	if err != nil {
		log.Fatalf("failed to build pipeline: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := supervisor.Start(ctx); err != nil {
		log.Fatalf("failed to start pipeline: %v", err)
	}

	// Create the job service and register the rescan task.
	jobService := jobs.NewService(&cfg.Jobs)
	jobService.RegisterTask("rescan", jobs.TaskFunc(func(ctx context.Context, job *jobs.Job) error {
		job.Logger.Info("Rescanning source directory", "path", cfgManager.Get().SourcePath)
		return supervisor.Rescan(ctx)
	}))

	// Create and start the HTTP server
	server := hosting.NewServer(cfgManager, supervisor, jobService, historyService, metricSet, thumbsDir)
	if cfg.Server.Enabled {
		go func() {
			if err := server.Start(); err != nil {
				slog.Error("server stopped", "error", err)
			}
		}()
		slog.Info("Server started. Press Ctrl+C to shut down.", "port", cfg.Server.Port)
	}

	// Wait for a shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down...")

	cancel()
	supervisor.Stop()

	if cfg.Server.Enabled {
		if err := server.Shutdown(); err != nil {
			log.Fatalf("failed to shutdown server: %v", err)
		}
	}
	slog.Info("Gracefully shut down.")
}
