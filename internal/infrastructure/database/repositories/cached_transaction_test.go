package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/mufasadev/transfers/internal/domain/models"
	"github.com/mufasadev/transfers/internal/infrastructure/cache"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryRepository is a TransactionRepository that counts backing store calls.
type memoryRepository struct {
	mu     sync.Mutex
	rows   map[string]*models.Transaction
	seq    int
	calls  map[string]int
	failOn string
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{rows: map[string]*models.Transaction{}, calls: map[string]int{}}
}

func (m *memoryRepository) count(op string) error {
	m.calls[op]++
	if m.failOn == op {
		return errors.New("backing store down")
	}
	return nil
}

func (m *memoryRepository) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *memoryRepository) Insert(_ context.Context, tx *models.Transaction) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.count("Insert"); err != nil {
		return nil, err
	}
	m.seq++
	row := *tx
	row.ID = fmt.Sprintf("%024d", m.seq)
	row.CreatedAt = time.Date(2025, 11, 23, 10, 0, m.seq, 0, time.UTC)
	m.rows[row.ID] = &row
	out := row
	return &out, nil
}

func (m *memoryRepository) FindByID(_ context.Context, id string) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.count("FindByID"); err != nil {
		return nil, err
	}
	row, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	out := *row
	return &out, nil
}

func (m *memoryRepository) FindByParticipant(_ context.Context, userID string, role models.Role) ([]*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.count("FindByParticipant"); err != nil {
		return nil, err
	}
	list := make([]*models.Transaction, 0)
	for i := 1; i <= m.seq; i++ {
		row, ok := m.rows[fmt.Sprintf("%024d", i)]
		if ok && row.Involves(userID, role) {
			out := *row
			list = append(list, &out)
		}
	}
	return list, nil
}

func (m *memoryRepository) FindByStatusBefore(_ context.Context, status models.Status, before time.Time) ([]*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.count("FindByStatusBefore"); err != nil {
		return nil, err
	}
	list := make([]*models.Transaction, 0)
	for _, row := range m.rows {
		if row.Status == status && row.CreatedAt.Before(before) {
			out := *row
			list = append(list, &out)
		}
	}
	return list, nil
}

func (m *memoryRepository) UpdateStatus(_ context.Context, id string, status models.Status) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.count("UpdateStatus"); err != nil {
		return nil, err
	}
	row, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	row.Status = status
	out := *row
	return &out, nil
}

func (m *memoryRepository) Delete(_ context.Context, id string) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.count("Delete"); err != nil {
		return nil, err
	}
	row, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	delete(m.rows, id)
	return row, nil
}

// brokenCache fails every operation.
type brokenCache struct{}

func (brokenCache) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func (brokenCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}

func (brokenCache) Delete(context.Context, ...string) error {
	return errors.New("connection refused")
}

func newCachedRepository(t *testing.T) (*CachedTransactionRepository, *memoryRepository, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	backing := newMemoryRepository()
	return NewCachedTransactionRepository(backing, cache.NewRedisStore(client), time.Minute), backing, mr
}

func insert(t *testing.T, repo *CachedTransactionRepository, sender, receiver string) *models.Transaction {
	tx, err := repo.Insert(context.Background(), &models.Transaction{
		Sender:   sender,
		Receiver: receiver,
		Quantity: 100,
		Currency: models.DefaultCurrency,
		Status:   models.StatusPending,
	})
	require.NoError(t, err)
	return tx
}

func TestCachedFindByID(t *testing.T) {
	repo, backing, mr := newCachedRepository(t)
	ctx := context.Background()
	tx := insert(t, repo, "A", "B")

	first, err := repo.FindByID(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, backing.Calls("FindByID"))
	assert.True(t, mr.Exists(transactionKey(tx.ID)))
	assert.Equal(t, time.Minute, mr.TTL(transactionKey(tx.ID)))

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		again, err := repo.FindByID(ctx, tx.ID)
		require.NoError(t, err)

		againJSON, err := json.Marshal(again)
		require.NoError(t, err)
		assert.Equal(t, string(firstJSON), string(againJSON))
	}
	assert.Equal(t, 1, backing.Calls("FindByID"), "hits must not reach the backing store")

	t.Run("absent rows are not cached", func(t *testing.T) {
		missing, err := repo.FindByID(ctx, "unknown")
		require.NoError(t, err)
		assert.Nil(t, missing)
		assert.False(t, mr.Exists(transactionKey("unknown")))
	})

	t.Run("undecodable entry is a miss", func(t *testing.T) {
		require.NoError(t, mr.Set(transactionKey(tx.ID), "{not json"))
		calls := backing.Calls("FindByID")

		found, err := repo.FindByID(ctx, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, tx.ID, found.ID)
		assert.Equal(t, calls+1, backing.Calls("FindByID"))
	})
}

func TestCachedFindByParticipant(t *testing.T) {
	repo, backing, mr := newCachedRepository(t)
	ctx := context.Background()
	insert(t, repo, "A", "B")
	insert(t, repo, "B", "C")

	for _, role := range []models.Role{models.RoleAny, models.RoleSent, models.RoleReceived} {
		list, err := repo.FindByParticipant(ctx, "B", role)
		require.NoError(t, err)
		assert.NotEmpty(t, list)
		assert.True(t, mr.Exists(userTransactionsKey("B", role)))
	}
	assert.Equal(t, 3, backing.Calls("FindByParticipant"))

	list, err := repo.FindByParticipant(ctx, "B", models.RoleAny)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, 3, backing.Calls("FindByParticipant"))

	empty, err := repo.FindByParticipant(ctx, "Z", models.RoleAny)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.False(t, mr.Exists(userTransactionsKey("Z", models.RoleAny)))
}

func TestCachedInvalidation(t *testing.T) {
	ctx := context.Background()

	mutations := map[string]func(t *testing.T, repo *CachedTransactionRepository, tx *models.Transaction){
		"insert": func(t *testing.T, repo *CachedTransactionRepository, tx *models.Transaction) {
			insert(t, repo, tx.Receiver, tx.Sender)
		},
		"update status": func(t *testing.T, repo *CachedTransactionRepository, tx *models.Transaction) {
			_, err := repo.UpdateStatus(ctx, tx.ID, models.StatusCompleted)
			require.NoError(t, err)
		},
		"delete": func(t *testing.T, repo *CachedTransactionRepository, tx *models.Transaction) {
			_, err := repo.Delete(ctx, tx.ID)
			require.NoError(t, err)
		},
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			repo, backing, mr := newCachedRepository(t)
			tx := insert(t, repo, "X", "Y")

			_, err := repo.FindByID(ctx, tx.ID)
			require.NoError(t, err)
			for _, user := range []string{"X", "Y"} {
				for _, role := range []models.Role{models.RoleAny, models.RoleSent, models.RoleReceived} {
					_, err = repo.FindByParticipant(ctx, user, role)
					require.NoError(t, err)
				}
			}
			require.True(t, mr.Exists(userTransactionsKey("X", models.RoleAny)))

			mutate(t, repo, tx)

			for _, user := range []string{"X", "Y"} {
				for _, role := range []models.Role{models.RoleAny, models.RoleSent, models.RoleReceived} {
					assert.False(t, mr.Exists(userTransactionsKey(user, role)), "%s/%s should be evicted", user, role)
				}
			}
			if name != "insert" {
				assert.False(t, mr.Exists(transactionKey(tx.ID)))
			}

			calls := backing.Calls("FindByParticipant")
			_, err = repo.FindByParticipant(ctx, "X", models.RoleAny)
			require.NoError(t, err)
			assert.Equal(t, calls+1, backing.Calls("FindByParticipant"), "next read must miss")
		})
	}

	t.Run("updated status is served after eviction", func(t *testing.T) {
		repo, _, _ := newCachedRepository(t)
		tx := insert(t, repo, "X", "Y")
		_, err := repo.FindByID(ctx, tx.ID)
		require.NoError(t, err)

		_, err = repo.UpdateStatus(ctx, tx.ID, models.StatusFailed)
		require.NoError(t, err)

		found, err := repo.FindByID(ctx, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusFailed, found.Status)
	})
}

func TestCacheFailuresAreSwallowed(t *testing.T) {
	backing := newMemoryRepository()
	repo := NewCachedTransactionRepository(backing, brokenCache{}, time.Minute)
	ctx := context.Background()

	tx, err := repo.Insert(ctx, &models.Transaction{Sender: "A", Receiver: "B", Quantity: 1, Status: models.StatusPending})
	require.NoError(t, err)

	var dst models.Transaction
	assert.Equal(t, lookupDegraded, repo.readCache(ctx, transactionKey(tx.ID), &dst))

	found, err := repo.FindByID(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, tx.ID, found.ID)

	list, err := repo.FindByParticipant(ctx, "A", models.RoleAny)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	updated, err := repo.UpdateStatus(ctx, tx.ID, models.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, updated.Status)

	deleted, err := repo.Delete(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, tx.ID, deleted.ID)
}

func TestBackingStoreErrorsPropagate(t *testing.T) {
	repo, backing, _ := newCachedRepository(t)
	backing.failOn = "FindByID"

	_, err := repo.FindByID(context.Background(), "000000000000000000000001")
	assert.Error(t, err)
}
