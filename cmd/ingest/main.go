// Command ingest performs one full resync run against the external changeset
// feed: it discards the committed tail from the configured anchor forward,
// then fetches, classifies, and commits week by week up to now. A Redis lock
// keeps concurrent runs from interleaving.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/kiwiprop/transfer-system/internal/core/ports"
	"github.com/kiwiprop/transfer-system/internal/core/service"
	"github.com/kiwiprop/transfer-system/internal/infrastructure/cache"
	"github.com/kiwiprop/transfer-system/internal/infrastructure/config"
	mongodb "github.com/kiwiprop/transfer-system/internal/infrastructure/db/mongo"
	redisdb "github.com/kiwiprop/transfer-system/internal/infrastructure/db/redis"
	"github.com/kiwiprop/transfer-system/internal/infrastructure/feed"
	"github.com/kiwiprop/transfer-system/pkg/logger"
)

var errLockHeld = errors.New("another ingestion run is already in progress")

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

	if err := cfg.ValidateIngest(); err != nil {
		log.Fatal().Err(err).Msg("ingest configuration invalid")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		if errors.Is(err, errLockHeld) {
			log.Warn().Msg("run lock held, nothing to do")
			os.Exit(0)
		}
		log.Error().Err(err).Msg("ingestion run failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

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
		return err
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer func() { _ = rdb.Close() }()

	lock := redisdb.NewRunLock(rdb, cfg.Ingest.LockTTL)
	held, err := lock.Acquire(ctx)
	if err != nil {
		return err
	}
	if !held {
		return errLockHeld
	}
	defer func() {
		if err := lock.Release(context.Background()); err != nil {
			log.Warn().Err(err).Msg("run lock release failed")
		}
	}()

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

	fetcher := feed.NewClient(cfg.Feed.URL, cfg.Feed.APIKey, log)
	coordinator := service.NewIngestionCoordinator(fetcher, repo, respCache, cfg.Feed.Timeout, log)

	return coordinator.Run(ctx, cfg.StartInstant())
}
