package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	server "steam_reviews/internal/adapters/http_server"
	"steam_reviews/internal/adapters/observability"
	redisad "steam_reviews/internal/adapters/redis"
	"steam_reviews/internal/adapters/steam"
	"steam_reviews/internal/app"
	"steam_reviews/internal/domain"
	"steam_reviews/internal/shared"
	mysqlrepo "steam_reviews/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLoggerWith(cfg.AppEnv, observability.LogOptions{Level: cfg.LogLevel, File: cfg.LogFile})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	client, err := steam.New(cfg.SteamBase, cfg.SteamRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize storefront client")
	}

	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cache.Close()
	if err := cache.Ping(ctx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable; serving uncached")
	}

	// the archive is optional for browsing
	var repo domain.ReviewRepository
	if db, err := mysqlrepo.Open(ctx, cfg.MySQLDSN); err != nil {
		log.Warn().Err(err).Msg("database unavailable; archive routes disabled")
	} else {
		defer db.Close()
		repo = mysqlrepo.New(db)
		log.Info().Msg("database connection ok")
	}

	sessions := app.NewSessions(client, cfg.SessionTTL)
	go sessions.Run(ctx, time.Minute)

	srv := server.New(15 * time.Second)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		Q:        app.NewQueryService(client, repo, cache, cfg.CacheTTL),
		Sessions: sessions,
		Title:    cfg.Title,
	})

	log.Info().
		Str("env", cfg.AppEnv).
		Str("steam_base", client.Base()).
		Dur("session_ttl", cfg.SessionTTL).
		Msg("API starting")
	if err := srv.ListenAndServe(ctx, cfg.HTTPAddr); err != nil {
		log.Fatal().Err(err).Msg("http server failed")
	}
	sessions.CloseAll()
	log.Info().Msg("API stopped")
}
