package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"steam_reviews/internal/adapters/observability"
	redisad "steam_reviews/internal/adapters/redis"
	"steam_reviews/internal/adapters/steam"
	"steam_reviews/internal/app"
	"steam_reviews/internal/shared"
	mysqlrepo "steam_reviews/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLoggerWith(cfg.AppEnv, observability.LogOptions{Level: cfg.LogLevel, File: cfg.LogFile})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	targets, err := cfg.LoadArchiveTargets()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load archive targets")
	}
	if len(targets) == 0 {
		log.Fatal().Msg("nothing to archive; set ARCHIVE_APPS_FILE or ARCHIVE_APP_IDS")
	}

	log.Info().
		Str("base", cfg.SteamBase).
		Int("workers", cfg.Workers).
		Int("max_pages", cfg.MaxPages).
		Int("apps", len(targets)).
		Msg("archiver starting")

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	db, err := mysqlrepo.Open(ctx, cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("database unavailable")
	}
	defer db.Close()
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)

	client, err := steam.New(cfg.SteamBase, cfg.SteamRPS, steam.WithRetries(3))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize storefront client")
	}
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cache.Close()

	arc := app.NewArchiveService(client, repo, cache, cfg.MaxPages)
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup
	var failed atomic.Int32

	for _, t := range targets {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Warn().Err(err).Msg("archiver interrupted")
			break
		}

		wg.Add(1)
		go func(t shared.ArchiveTarget) {
			defer wg.Done()
			defer sem.Release(1)

			stats, err := arc.ArchiveApp(ctx, t.AppID, t.FetchOptions)
			if err != nil {
				failed.Add(1)
				log.Warn().Str("app_id", t.AppID).Str("kind", observability.LabelErr(err)).Err(err).
					Int("pages", stats.Pages).Int("reviews", stats.Reviews).Msg("archive failed")
				return
			}
			log.Info().Str("app_id", t.AppID).Int("pages", stats.Pages).Int("reviews", stats.Reviews).
				Bool("complete", stats.Complete).Msg("archive ok")
		}(t)
	}

	wg.Wait()
	if n := failed.Load(); n > 0 {
		log.Error().Int32("failed", n).Int("apps", len(targets)).Msg("archive run finished with failures")
		os.Exit(1)
	}
	log.Info().Msg("archive run completed")
}
