package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"mealtrack/internal/config"
	"mealtrack/internal/logging"
	"mealtrack/internal/netx"
	"mealtrack/internal/remote"
	"mealtrack/internal/repositories/configs"
	"mealtrack/internal/repositories/foods"
	"mealtrack/internal/repositories/profiles"
	"mealtrack/internal/repositories/records"
	"mealtrack/internal/repositories/templates"
	"mealtrack/internal/store"
	"mealtrack/internal/syncer"

	_ "modernc.org/sqlite"
)

func main() {
	cfg := config.LoadConfig()
	if cfg.UserID == "" {
		log.Fatal("user id is required (-u or user_id in the config file)")
	}
	if cfg.FirestoreProjectID == "" {
		log.Fatal("Firestore project id is required (-p or firestore_project_id in the config file)")
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("error opening local store: %v", err)
	}
	defer db.Close()

	rs, err := remote.NewFirestoreStore(ctx, cfg.FirestoreProjectID, cfg.FirestoreCredentialsFile)
	if err != nil {
		log.Fatalf("error connecting to remote store: %v", err)
	}
	defer rs.Close()

	repos := syncer.Repositories{
		Records:   records.NewSQLiteRepository(db),
		Configs:   configs.NewSQLiteRepository(db),
		Templates: templates.NewSQLiteRepository(db),
		Profiles:  profiles.NewSQLiteRepository(db),
		Foods:     foods.NewSQLiteRepository(db),
	}

	engine := syncer.New(repos, rs, logger, cfg.RemoteCallTimeout)

	events, unsubscribe := engine.Subscribe()
	defer unsubscribe()
	go func() {
		for busy := range events {
			logger.Info(ctx, "sync status changed", "busy", busy)
		}
	}()

	// Best-effort refresh of the remote-authoritative documents on startup.
	if err := engine.PullRemote(ctx, cfg.UserID); err != nil {
		logger.Warn(ctx, "initial pull incomplete", "error", err)
	}

	monitor := netx.NewMonitor(netx.NewHTTPProber(cfg.ProbeURL, cfg.RemoteCallTimeout), cfg.OnlineCheckInterval)

	logger.Info(ctx, "mealtrack sync daemon started", "user", cfg.UserID, "db", cfg.DatabaseDSN)
	engine.Run(ctx, monitor.Watch(ctx), cfg.UserID)
}
