package interactor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mufasadev/transfers/internal/domain/gateways"
	"github.com/mufasadev/transfers/internal/domain/models"
	apperrors "github.com/mufasadev/transfers/internal/errors"
	"github.com/shopspring/decimal"
)

type ledgerCall struct {
	op      string
	account string
	amount  int64
}

// fakeLedger keeps balances in memory. Outcomes listed in debitOutcome or
// creditOutcome override the normal behaviour for that account.
type fakeLedger struct {
	mu            sync.Mutex
	balances      map[string]int64
	debitOutcome  map[string]gateways.Outcome
	creditOutcome map[string]gateways.Outcome
	lookupOutcome gateways.Outcome
	timeAvailable bool
	calls         []ledgerCall
}

func newFakeLedger(balances map[string]int64) *fakeLedger {
	return &fakeLedger{
		balances:      balances,
		debitOutcome:  map[string]gateways.Outcome{},
		creditOutcome: map[string]gateways.Outcome{},
		timeAvailable: true,
	}
}

func (f *fakeLedger) Debit(_ context.Context, account string, amount int64) gateways.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ledgerCall{"debit", account, amount})

	if outcome, ok := f.debitOutcome[account]; ok {
		return outcome
	}
	balance, ok := f.balances[account]
	if !ok {
		return gateways.OutcomeNotFound
	}
	if balance < amount {
		return gateways.OutcomeInsufficientFunds
	}
	f.balances[account] = balance - amount
	return gateways.OutcomeOK
}

func (f *fakeLedger) Credit(_ context.Context, account string, amount int64) gateways.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ledgerCall{"credit", account, amount})

	if outcome, ok := f.creditOutcome[account]; ok {
		return outcome
	}
	balance, ok := f.balances[account]
	if !ok {
		return gateways.OutcomeNotFound
	}
	f.balances[account] = balance + amount
	return gateways.OutcomeOK
}

func (f *fakeLedger) GetAccount(_ context.Context, account string) (*models.Account, gateways.Outcome) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.lookupOutcome != gateways.OutcomeOK {
		return nil, f.lookupOutcome
	}
	balance, ok := f.balances[account]
	if !ok {
		return nil, gateways.OutcomeNotFound
	}
	return &models.Account{IBAN: account, Balance: decimal.NewFromInt(balance)}, gateways.OutcomeOK
}

func (f *fakeLedger) GetExternalTime(context.Context) (string, bool) {
	if !f.timeAvailable {
		return "", false
	}
	return "2025-11-23T10:00:00", true
}

func (f *fakeLedger) Balance(account string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[account]
}

func (f *fakeLedger) Mutations() []ledgerCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ledgerCall(nil), f.calls...)
}

// fakeRepository is an in-memory TransactionRepository.
type fakeRepository struct {
	mu        sync.Mutex
	rows      map[string]*models.Transaction
	seq       int
	inserts   int
	failWrite bool
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{rows: map[string]*models.Transaction{}}
}

func (r *fakeRepository) Insert(_ context.Context, tx *models.Transaction) (*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inserts++
	r.seq++
	row := *tx
	row.ID = fmt.Sprintf("tx-%d", r.seq)
	row.CreatedAt = time.Now().UTC()
	r.rows[row.ID] = &row
	out := row
	return &out, nil
}

func (r *fakeRepository) FindByID(_ context.Context, id string) (*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	out := *row
	return &out, nil
}

func (r *fakeRepository) FindByParticipant(_ context.Context, userID string, role models.Role) ([]*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := make([]*models.Transaction, 0)
	for i := 1; i <= r.seq; i++ {
		if row, ok := r.rows[fmt.Sprintf("tx-%d", i)]; ok && row.Involves(userID, role) {
			out := *row
			list = append(list, &out)
		}
	}
	return list, nil
}

func (r *fakeRepository) FindByStatusBefore(_ context.Context, status models.Status, before time.Time) ([]*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := make([]*models.Transaction, 0)
	for i := 1; i <= r.seq; i++ {
		if row, ok := r.rows[fmt.Sprintf("tx-%d", i)]; ok && row.Status == status && row.CreatedAt.Before(before) {
			out := *row
			list = append(list, &out)
		}
	}
	return list, nil
}

func (r *fakeRepository) UpdateStatus(_ context.Context, id string, status models.Status) (*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrite {
		return nil, errors.New("store unavailable")
	}
	row, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	if row.Status.IsTerminal() {
		return nil, apperrors.NewConflictError("transaction is reverted")
	}
	row.Status = status
	out := *row
	return &out, nil
}

func (r *fakeRepository) Delete(_ context.Context, id string) (*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	delete(r.rows, id)
	return row, nil
}

func (r *fakeRepository) Inserts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inserts
}

func (r *fakeRepository) set(id string, status models.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[id].Status = status
}

// fakeCounters is a CounterStore without expiry.
type fakeCounters struct {
	mu     sync.Mutex
	counts map[string]int64
	keys   []string
	err    error
}

func (c *fakeCounters) Incr(_ context.Context, key string, _ time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, c.err
	}
	if c.counts == nil {
		c.counts = map[string]int64{}
	}
	c.counts[key]++
	c.keys = append(c.keys, key)
	return c.counts[key], nil
}
