package gateways

import (
	"context"

	"github.com/mufasadev/transfers/internal/domain/models"
)

// Outcome is the result of a call to the accounts service.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeInsufficientFunds
	OutcomeNotFound
	OutcomeRemoteError
	OutcomeServiceUnavailable
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeInsufficientFunds:
		return "insufficient_funds"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeRemoteError:
		return "remote_error"
	case OutcomeServiceUnavailable:
		return "service_unavailable"
	}
	return "unknown"
}

// Ledger mutates and reads balances owned by the accounts service.
type Ledger interface {
	Debit(ctx context.Context, accountID string, amount int64) Outcome
	Credit(ctx context.Context, accountID string, amount int64) Outcome
	GetAccount(ctx context.Context, accountID string) (*models.Account, Outcome)
	// GetExternalTime is best effort; ok is false when the time source could
	// not be reached.
	GetExternalTime(ctx context.Context) (value string, ok bool)
}
