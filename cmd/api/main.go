package main

import (
	"context"

	"github.com/mufasadev/transfers/internal/app"
	"github.com/mufasadev/transfers/internal/config"
	"github.com/mufasadev/transfers/internal/di"
	"github.com/mufasadev/transfers/internal/errors"
	"github.com/mufasadev/transfers/internal/infrastructure/api/routers"
	"github.com/mufasadev/transfers/internal/infrastructure/database/db_client"
	"github.com/mufasadev/transfers/pkg/log"
	"github.com/mufasadev/transfers/pkg/redisclient"
	"github.com/redis/go-redis/v9"
)

const (
	appName = "transfers"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()

	opts := []log.LoggerOption{log.WithConsoleLogger(), log.WithLogLevel(log.ParseLevel(cfg.Log.Level))}
	if cfg.Log.File != "" {
		opts = append(opts, log.WithFileLogger(cfg.Log.File))
	}
	log.Init(appName, opts...)
	logger := log.GetLogger()

	pgClient := db_client.NewPGClient(cfg.PostgreSQL)
	db, err := pgClient.Connect(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg(errors.ErrorFailedToConnectToTheDatabase)
	}
	defer db.Close()

	rdb, err := redisclient.NewClient(ctx, &redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.Index(),
	}, cfg.Redis.Attempts())
	if err != nil {
		logger.Fatal().Err(err).Msg(errors.ErrorFailedToConnectToRedis)
	}
	defer rdb.Close()

	container := di.NewContainer(db, rdb, cfg)
	if err = container.TransactionRepository.EnsureSchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg(errors.ErrorFailedToPrepareSchema)
	}

	stalePending := app.NewStalePendingProcess(container.StalePendingInteractor, cfg.Process)
	go stalePending.Run(ctx)

	router := routers.NewRouter(container)
	service := app.NewService(cfg)
	service.Run(ctx, router)
}
