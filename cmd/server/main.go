package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kiwiprop/transfer-system/internal/api"
	"github.com/kiwiprop/transfer-system/internal/core/ports"
	"github.com/kiwiprop/transfer-system/internal/core/service"
	"github.com/kiwiprop/transfer-system/internal/infrastructure/cache"
	"github.com/kiwiprop/transfer-system/internal/infrastructure/config"
	mongodb "github.com/kiwiprop/transfer-system/internal/infrastructure/db/mongo"
	redisdb "github.com/kiwiprop/transfer-system/internal/infrastructure/db/redis"
	"github.com/kiwiprop/transfer-system/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(cfg *config.Config) error {
	log := logger.Get()
	ctx := context.Background()

	client, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		return err
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	repo := mongodb.NewTransferRepository(db)
	if err := repo.EnsureIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("ensure indexes failed, continuing")
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer func() { _ = rdb.Close() }()

	var respCache ports.ResponseCache
	switch cfg.Cache.Backend {
	case "redis":
		respCache = cache.NewRedisCache(rdb, cfg.Cache.Bypass, log)
	default:
		respCache, err = cache.NewDiskCache(cfg.Cache.Dir, cfg.Cache.Bypass, log)
		if err != nil {
			return err
		}
	}

	query := service.NewQueryService(repo, respCache, log)
	e := api.NewRouter(query, db, rdb, log)

	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	log.Info().Str("port", cfg.Port).Str("cache_backend", cfg.Cache.Backend).Msg("server started")

	stop, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	select {
	case err := <-errCh:
		return err
	case <-stop.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	log.Info().Msg("shutting down")
	return e.Shutdown(shutdownCtx)
}
