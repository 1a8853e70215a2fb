package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"solarscout/internal/bot"
	"solarscout/internal/config"
	"solarscout/internal/database"
	"solarscout/internal/logging"
	"solarscout/internal/models"
	"solarscout/internal/platform"
	"solarscout/internal/publish"
	"solarscout/internal/spaceweather"
	"solarscout/internal/web"
)

func main() {
	os.Exit(run())
}

func run() int {
	once := flag.Bool("once", false, "run a single posting cycle and exit")
	force := flag.Bool("force", false, "with -once: bypass the minimum run spacing check")
	envFile := flag.String("env", "", "path to an env file to load before reading configuration")
	flag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			logging.Fatal("Failed to load env file %s: %v", *envFile, err)
		}
	}

	cfg := config.LoadConfig()
	logging.SetLevel(cfg.LogLevel)

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		logging.Fatal("Failed to initialize database: %v", err)
	}
	defer db.Close()

	weather := spaceweather.NewClient(spaceweather.DefaultBaseURL)
	defer weather.Close()

	publisher := publish.New(platform.NewRegistry(), cfg.RetryBackoff, cfg.PublishTimeout)
	b := bot.New(cfg, db, weather, publisher)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *once {
		return runOnce(ctx, b, *force)
	}

	srv := web.NewServer(cfg, db)
	srv.Start()

	if err := b.Run(ctx); err != nil {
		logging.Error("Scheduler stopped with error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logging.Error("Status server shutdown failed: %v", err)
	}
	return 0
}

// runOnce executes a single posting cycle and maps the aggregate
// outcome to an exit code. Only a run where every enabled branch failed
// entirely, or where we could not run at all, is a failure.
func runOnce(ctx context.Context, b *bot.Bot, force bool) int {
	report, err := b.RunOnce(ctx, force)
	if err != nil {
		if errors.Is(err, bot.ErrTooSoon) {
			logging.Info("Skipping run: %v", err)
			return 0
		}
		logging.Error("Run failed: %v", err)
		return 1
	}
	switch report.Status() {
	case models.RunFailed, models.RunEmpty:
		return 1
	default:
		return 0
	}
}
