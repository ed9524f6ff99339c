package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/luki/co2dash/internal/api"
	"github.com/luki/co2dash/internal/cache"
	"github.com/luki/co2dash/internal/config"
	"github.com/luki/co2dash/internal/ingest"
	"github.com/luki/co2dash/internal/logger"
	"github.com/luki/co2dash/internal/notify"
	"github.com/luki/co2dash/internal/service"
	"github.com/luki/co2dash/internal/storage"
	"github.com/luki/co2dash/internal/store"
)

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	envFile := fs.String("env", ".env", "dotenv file to load")
	port := fs.Int("port", 0, "HTTP port (overrides CO2_HTTP_PORT)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		return err
	}
	if *port > 0 {
		cfg.HTTP.Port = *port
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "co2dash")
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	sqlStorage := storage.New(db, log)
	if err := sqlStorage.InitDB(ctx); err != nil {
		return fmt.Errorf("init db: %w", err)
	}

	deps := service.Deps{Notifier: notify.NewDiscord(log)}

	var archive storage.ArchivePruner
	if cfg.Archive.Dir != "" {
		disk, err := store.New(cfg.Archive.Dir)
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		defer disk.Close()
		deps.Archive = disk
		archive = disk
		log.Info("csv archive enabled", zap.String("dir", disk.Dir()))
	}

	retention := storage.NewRetentionJob(sqlStorage, archive, cfg.Retention.MaxAge, log)

	if cfg.Redis.Addr != "" {
		rc := cache.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer rc.Close()
		summaries := cache.New(rc, cfg.Redis.TTL)
		if err := summaries.Ping(ctx); err != nil {
			log.Warn("redis unavailable, running without cache", zap.Error(err))
		} else {
			deps.Cache = summaries
			retention.WithSummaries(summaries)
			log.Info("redis cache enabled", zap.String("addr", cfg.Redis.Addr))
		}
	}

	svc := service.New(sqlStorage, deps, log)

	if cfg.MQTT.Broker != "" {
		mc, err := ingest.Connect(cfg.MQTT)
		if err != nil {
			return err
		}
		if err := ingest.New(mc, cfg.MQTT, svc, log).Start(ctx); err != nil {
			return err
		}
	}

	retention.Start(ctx, cfg.Retention.Interval)

	return api.Serve(ctx, cfg.HTTP.Port, api.NewHandler(svc, log).Routes(), log)
}
