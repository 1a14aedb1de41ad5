package di

import (
	"github.com/mufasadev/transfers/internal/config"
	domainrepos "github.com/mufasadev/transfers/internal/domain/repositories"
	"github.com/mufasadev/transfers/internal/infrastructure/api/handlers"
	"github.com/mufasadev/transfers/internal/infrastructure/cache"
	"github.com/mufasadev/transfers/internal/infrastructure/clients/ledger"
	"github.com/mufasadev/transfers/internal/infrastructure/database/repositories"
	"github.com/mufasadev/transfers/internal/usecases/interactor"
	"github.com/mufasadev/transfers/pkg/breaker"
	"github.com/mufasadev/transfers/pkg/postgresql"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	TransactionRepository  *repositories.TransactionRepositoryImpl
	TransactionHandler     *handlers.TransactionHandler
	RateLimitInteractor    *interactor.RateLimitInteractor
	StalePendingInteractor *interactor.StalePendingInteractor
}

// NewContainer creates a new Container instance.
func NewContainer(db postgresql.Client, rdb redis.UniversalClient, cfg *config.Config) *Container {
	redisStore := cache.NewRedisStore(rdb)

	transactionRepository := repositories.NewTransactionRepositoryImpl(db)
	var store domainrepos.TransactionRepository = transactionRepository
	if cfg.Cache.IsEnabled() {
		store = repositories.NewCachedTransactionRepository(transactionRepository, redisStore, cfg.Cache.TTL())
	}

	ledgerClient := ledger.NewClient(ledger.Options{
		BaseURL:     cfg.Ledger.URL(),
		Timeout:     cfg.Ledger.Timeout(),
		TimeURL:     cfg.Ledger.TimeAPIURL,
		TimeTimeout: cfg.Ledger.TimeTimeout(),
		Breaker: breaker.New(breaker.Settings{
			Name:      "accounts-service",
			Threshold: cfg.Breaker.Threshold(),
			Cooldown:  cfg.Breaker.Cooldown(),
		}),
		TimeBreaker: breaker.New(breaker.Settings{
			Name:      "time-api",
			Threshold: cfg.Breaker.Threshold(),
			Cooldown:  cfg.Breaker.Cooldown(),
		}),
	})

	transactionInteractor := interactor.NewTransactionInteractor(store, ledgerClient)
	transactionHandler := handlers.NewTransactionHandler(transactionInteractor)

	rateLimitInteractor := interactor.NewRateLimitInteractor(redisStore, cfg.RateLimit.Requests(), cfg.RateLimit.Window())

	stalePendingInteractor := interactor.NewStalePendingInteractor(store, cfg.Process.StaleAfter())

	return &Container{
		TransactionRepository:  transactionRepository,
		TransactionHandler:     transactionHandler,
		RateLimitInteractor:    rateLimitInteractor,
		StalePendingInteractor: stalePendingInteractor,
	}
}
