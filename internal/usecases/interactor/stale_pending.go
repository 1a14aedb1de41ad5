package interactor

import (
	"context"
	"time"

	"github.com/mufasadev/transfers/internal/domain/models"
	"github.com/mufasadev/transfers/internal/domain/repositories"
	"github.com/mufasadev/transfers/internal/errors"
	"github.com/mufasadev/transfers/pkg/log"
	"github.com/rs/zerolog"
)

// StalePendingInteractor reports transfers that stayed pending for too long.
// Such a record means the saga stopped between its steps, so the ledger may
// hold a debit without the matching credit. The records are only reported.
type StalePendingInteractor struct {
	transactionRepository repositories.TransactionRepository
	staleAfter            time.Duration
	now                   func() time.Time
	logger                *zerolog.Logger
}

// NewStalePendingInteractor creates a new StalePendingInteractor
func NewStalePendingInteractor(transactionRepository repositories.TransactionRepository, staleAfter time.Duration) *StalePendingInteractor {
	l := log.GetLogger()
	return &StalePendingInteractor{
		transactionRepository: transactionRepository,
		staleAfter:            staleAfter,
		now:                   time.Now,
		logger:                &l,
	}
}

// Execute logs every pending transfer older than the stale threshold.
func (s *StalePendingInteractor) Execute(ctx context.Context) ([]*models.Transaction, error) {
	cutoff := s.now().Add(-s.staleAfter)
	stale, err := s.transactionRepository.FindByStatusBefore(ctx, models.StatusPending, cutoff)
	if err != nil {
		s.logger.Error().Err(err).Msg(errors.ErrFailedReportStalePending)
		return nil, err
	}

	for _, tx := range stale {
		s.logger.Warn().
			Str("tx_id", tx.ID).
			Str("sender", tx.Sender).
			Str("receiver", tx.Receiver).
			Int64("quantity", tx.Quantity).
			Time("created_at", tx.CreatedAt).
			Msg("transaction stuck in pending, manual reconciliation required")
	}

	if len(stale) > 0 {
		s.logger.Info().Int("count", len(stale)).Msg("stale pending transactions reported")
	}

	return stale, nil
}
