package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mufasadev/transfers/internal/domain/models"
	"github.com/mufasadev/transfers/internal/domain/repositories"
	"github.com/mufasadev/transfers/pkg/log"
	"github.com/rs/zerolog"
)

// cacheLookup is the result of reading one cache key.
type cacheLookup int

const (
	lookupHit cacheLookup = iota
	lookupMiss
	// lookupDegraded means the cache could not be read; callers fall back to
	// the backing store exactly as on a miss.
	lookupDegraded
)

// CachedTransactionRepository is a cache-aside decorator over a
// TransactionRepository. The backing repository stays authoritative: cache
// failures are logged and never surface to callers.
//
// Two concurrent misses on one key may both hit the backing store and both
// populate the cache. Either value is a valid snapshot.
type CachedTransactionRepository struct {
	next   repositories.TransactionRepository
	cache  repositories.CacheStore
	ttl    time.Duration
	logger *zerolog.Logger
}

// NewCachedTransactionRepository wraps next with a cache whose entries live for ttl.
func NewCachedTransactionRepository(next repositories.TransactionRepository, cache repositories.CacheStore, ttl time.Duration) *CachedTransactionRepository {
	l := log.GetLogger()
	return &CachedTransactionRepository{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		logger: &l,
	}
}

func transactionKey(id string) string {
	return fmt.Sprintf("tx:%s", id)
}

func userTransactionsKey(userID string, role models.Role) string {
	if role == models.RoleSent || role == models.RoleReceived {
		return fmt.Sprintf("user-tx:%s:%s", userID, role)
	}
	return fmt.Sprintf("user-tx:%s", userID)
}

func (r *CachedTransactionRepository) FindByID(ctx context.Context, id string) (*models.Transaction, error) {
	key := transactionKey(id)

	var cached models.Transaction
	if r.readCache(ctx, key, &cached) == lookupHit {
		return &cached, nil
	}

	tx, err := r.next.FindByID(ctx, id)
	if err != nil || tx == nil {
		return tx, err
	}

	r.writeCache(ctx, key, tx)
	return tx, nil
}

func (r *CachedTransactionRepository) FindByParticipant(ctx context.Context, userID string, role models.Role) ([]*models.Transaction, error) {
	key := userTransactionsKey(userID, role)

	var cached []*models.Transaction
	if r.readCache(ctx, key, &cached) == lookupHit {
		return cached, nil
	}

	list, err := r.next.FindByParticipant(ctx, userID, role)
	if err != nil || len(list) == 0 {
		return list, err
	}

	r.writeCache(ctx, key, list)
	return list, nil
}

// FindByStatusBefore is not cached; it serves the stale pending report only.
func (r *CachedTransactionRepository) FindByStatusBefore(ctx context.Context, status models.Status, before time.Time) ([]*models.Transaction, error) {
	return r.next.FindByStatusBefore(ctx, status, before)
}

func (r *CachedTransactionRepository) Insert(ctx context.Context, transaction *models.Transaction) (*models.Transaction, error) {
	tx, err := r.next.Insert(ctx, transaction)
	if err != nil {
		return nil, err
	}

	r.invalidate(ctx, tx)
	return tx, nil
}

func (r *CachedTransactionRepository) UpdateStatus(ctx context.Context, id string, status models.Status) (*models.Transaction, error) {
	tx, err := r.next.UpdateStatus(ctx, id, status)
	if err != nil || tx == nil {
		return tx, err
	}

	r.invalidate(ctx, tx)
	return tx, nil
}

func (r *CachedTransactionRepository) Delete(ctx context.Context, id string) (*models.Transaction, error) {
	tx, err := r.next.Delete(ctx, id)
	if err != nil || tx == nil {
		return tx, err
	}

	r.invalidate(ctx, tx)
	return tx, nil
}

// invalidate drops the entry of tx and every list view of both parties.
func (r *CachedTransactionRepository) invalidate(ctx context.Context, tx *models.Transaction) {
	keys := []string{transactionKey(tx.ID)}
	for _, userID := range []string{tx.Sender, tx.Receiver} {
		if userID == "" {
			continue
		}
		for _, role := range []models.Role{models.RoleAny, models.RoleSent, models.RoleReceived} {
			keys = append(keys, userTransactionsKey(userID, role))
		}
	}

	if err := r.cache.Delete(ctx, keys...); err != nil {
		r.logger.Error().Err(err).Strs("keys", keys).Msg("cache invalidation failed")
		return
	}
	r.logger.Debug().Strs("keys", keys).Msg("cache keys deleted")
}

func (r *CachedTransactionRepository) readCache(ctx context.Context, key string, dst interface{}) cacheLookup {
	data, err := r.cache.Get(ctx, key)
	if err != nil {
		r.logger.Error().Err(err).Str("key", key).Msg("cache read failed")
		return lookupDegraded
	}
	if data == nil {
		return lookupMiss
	}

	if err = json.Unmarshal(data, dst); err != nil {
		r.logger.Error().Err(err).Str("key", key).Msg("cache entry could not be decoded")
		return lookupMiss
	}

	r.logger.Debug().Str("key", key).Msg("cache hit")
	return lookupHit
}

func (r *CachedTransactionRepository) writeCache(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		r.logger.Error().Err(err).Str("key", key).Msg("cache entry could not be encoded")
		return
	}

	if err = r.cache.Set(ctx, key, data, r.ttl); err != nil {
		r.logger.Error().Err(err).Str("key", key).Msg("cache write failed")
		return
	}
	r.logger.Debug().Str("key", key).Msg("cache miss, entry stored")
}
