package interactor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mufasadev/transfers/internal/domain/gateways"
	"github.com/mufasadev/transfers/internal/domain/models"
	"github.com/mufasadev/transfers/internal/domain/repositories"
	apperrors "github.com/mufasadev/transfers/internal/errors"
	"github.com/mufasadev/transfers/internal/usecases/dtos"
	"github.com/mufasadev/transfers/pkg/log"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Machine readable reasons attached to unsuccessful outcomes.
const (
	ReasonInsufficientFunds         = "insufficient_funds"
	ReasonSenderNotFound            = "sender_not_found"
	ReasonReceiverNotFound          = "receiver_not_found"
	ReasonDebitError                = "debit_error"
	ReasonCreditError               = "credit_error"
	ReasonServiceUnavailable        = "service_unavailable"
	ReasonTransactionNotCompleted   = "transaction_not_completed"
	ReasonReceiverInsufficientFunds = "receiver_insufficient_funds"
	ReasonDebitReceiverError        = "debit_receiver_error"
	ReasonCreditSenderError         = "credit_sender_error"
	ReasonDeleteFailed              = "delete_failed"
)

// sagaTimeout bounds one saga run, compensation included.
const sagaTimeout = 45 * time.Second

// TransactionInteractor runs the transfer saga: debit the sender, credit the
// receiver, and undo the debit when the credit fails. There is no durable saga
// log; a crash between the two legs leaves the record pending.
type TransactionInteractor struct {
	transactionRepository repositories.TransactionRepository
	ledger                gateways.Ledger
	logger                *zerolog.Logger
}

func NewTransactionInteractor(transactionRepository repositories.TransactionRepository, ledger gateways.Ledger) *TransactionInteractor {
	l := log.GetLogger()
	return &TransactionInteractor{
		transactionRepository: transactionRepository,
		ledger:                ledger,
		logger:                &l,
	}
}

// Create validates the request, stores a pending record and moves the funds.
// Once the record exists every failure is reported in the result, not as an
// error.
func (i *TransactionInteractor) Create(ctx context.Context, dto *dtos.TransferDTO) (*dtos.TransferResult, error) {
	sender := strings.TrimSpace(dto.Sender)
	receiver := strings.TrimSpace(dto.Receiver)
	if sender == "" || receiver == "" {
		return nil, apperrors.NewBadRequestError(apperrors.ErrParticipantsRequired)
	}
	if dto.Quantity <= 0 {
		return nil, apperrors.NewBadRequestError(apperrors.ErrQuantityNotPositive)
	}
	if sender == receiver {
		return nil, apperrors.NewBadRequestError(apperrors.ErrSameParticipants)
	}

	// the saga must not stop half way because the caller went away
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sagaTimeout)
	defer cancel()

	transaction := &models.Transaction{
		Sender:   sender,
		Receiver: receiver,
		Quantity: dto.Quantity,
		Currency: strings.ToUpper(strings.TrimSpace(dto.Currency)),
		Status:   models.StatusPending,
	}
	if transaction.Currency == "" {
		transaction.Currency = models.DefaultCurrency
	}
	i.snapshot(ctx, transaction)

	inserted, err := i.transactionRepository.Insert(ctx, transaction)
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}

	if outcome := i.ledger.Debit(ctx, sender, dto.Quantity); outcome != gateways.OutcomeOK {
		return i.fail(ctx, inserted, debitReason(outcome)), nil
	}

	if outcome := i.ledger.Credit(ctx, receiver, dto.Quantity); outcome != gateways.OutcomeOK {
		i.compensate(ctx, inserted.ID, sender, dto.Quantity)
		return i.fail(ctx, inserted, creditReason(outcome)), nil
	}

	completed, err := i.transactionRepository.UpdateStatus(ctx, inserted.ID, models.StatusCompleted)
	if err != nil || completed == nil {
		i.logger.Error().Err(err).Str("tx_id", inserted.ID).Msg("funds moved but transaction could not be marked completed")
		return nil, fmt.Errorf("complete transaction %s: %w", inserted.ID, orMissing(err))
	}

	i.logger.Info().Str("tx_id", completed.ID).Str("sender", sender).Str("receiver", receiver).Int64("quantity", dto.Quantity).Msg("transfer completed")
	return &dtos.TransferResult{Status: dtos.ResultCompleted, Transaction: completed}, nil
}

// Revert moves the funds of a completed transfer back to the sender.
func (i *TransactionInteractor) Revert(ctx context.Context, id string) (*dtos.TransferResult, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sagaTimeout)
	defer cancel()

	transaction, err := i.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if transaction.Status != models.StatusCompleted {
		return &dtos.TransferResult{
			Status:      dtos.ResultNotReverted,
			Reason:      ReasonTransactionNotCompleted,
			Transaction: transaction,
		}, nil
	}

	if outcome := i.ledger.Debit(ctx, transaction.Receiver, transaction.Quantity); outcome != gateways.OutcomeOK {
		return i.revertFailed(transaction, revertDebitReason(outcome)), nil
	}

	if outcome := i.ledger.Credit(ctx, transaction.Sender, transaction.Quantity); outcome != gateways.OutcomeOK {
		i.compensate(ctx, transaction.ID, transaction.Receiver, transaction.Quantity)
		return i.revertFailed(transaction, revertCreditReason(outcome)), nil
	}

	reverted, err := i.transactionRepository.UpdateStatus(ctx, transaction.ID, models.StatusReverted)
	if err != nil || reverted == nil {
		i.logger.Error().Err(err).Str("tx_id", transaction.ID).Msg("funds returned but transaction could not be marked reverted")
		return nil, fmt.Errorf("revert transaction %s: %w", transaction.ID, orMissing(err))
	}

	i.logger.Info().Str("tx_id", reverted.ID).Msg("transfer reverted")
	return &dtos.TransferResult{Status: dtos.ResultReverted, Transaction: reverted}, nil
}

// Delete removes a transfer, reverting it first when it is completed.
func (i *TransactionInteractor) Delete(ctx context.Context, id string) (*dtos.TransferResult, error) {
	transaction, err := i.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if transaction.Status == models.StatusCompleted {
		res, err := i.Revert(ctx, id)
		if err != nil {
			return nil, err
		}
		if res.Status != dtos.ResultReverted {
			return res, nil
		}
		transaction = res.Transaction
	}

	deleted, err := i.transactionRepository.Delete(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("delete transaction %s: %w", id, err)
	}
	if deleted == nil {
		return &dtos.TransferResult{Status: dtos.ResultFailed, Reason: ReasonDeleteFailed, Transaction: transaction}, nil
	}

	i.logger.Info().Str("tx_id", deleted.ID).Msg("transfer deleted")
	return &dtos.TransferResult{Status: dtos.ResultDeleted, Transaction: deleted}, nil
}

// UpdateStatus applies a manual status change checked against the transition table.
func (i *TransactionInteractor) UpdateStatus(ctx context.Context, id string, status string) (*dtos.TransferResult, error) {
	next, ok := models.ParseStatus(strings.ToLower(strings.TrimSpace(status)))
	if !ok {
		return nil, apperrors.NewBadRequestError(fmt.Sprintf("%s: %q", apperrors.ErrInvalidStatus, status))
	}

	transaction, err := i.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if !transaction.Status.CanTransition(next) {
		return invalidTransition(transaction, transaction.Status, next), nil
	}

	updated, err := i.transactionRepository.UpdateStatus(ctx, id, next)
	if err != nil {
		var conflict *apperrors.ConflictError
		if apperrors.As(err, &conflict) {
			// reverted by a concurrent request since it was loaded
			return invalidTransition(transaction, models.StatusReverted, next), nil
		}
		return nil, fmt.Errorf("update transaction %s: %w", id, err)
	}
	if updated == nil {
		return nil, apperrors.NewNotFoundError(apperrors.ErrTransactionNotFound)
	}

	return &dtos.TransferResult{Status: dtos.ResultUpdated, Transaction: updated}, nil
}

// Get returns one transfer.
func (i *TransactionInteractor) Get(ctx context.Context, id string) (*models.Transaction, error) {
	return i.find(ctx, id)
}

// ListByParticipant returns the transfers a user sent, received or both.
func (i *TransactionInteractor) ListByParticipant(ctx context.Context, userID string, role models.Role) ([]*models.Transaction, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.NewBadRequestError(apperrors.ErrUserIDRequired)
	}

	list, err := i.transactionRepository.FindByParticipant(ctx, userID, role)
	if err != nil {
		return nil, fmt.Errorf("list transactions of %s: %w", userID, err)
	}
	return list, nil
}

func (i *TransactionInteractor) find(ctx context.Context, id string) (*models.Transaction, error) {
	transaction, err := i.transactionRepository.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find transaction %s: %w", id, err)
	}
	if transaction == nil {
		return nil, apperrors.NewNotFoundError(apperrors.ErrTransactionNotFound)
	}
	return transaction, nil
}

// snapshot records balances and the external time for auditing. Failures are
// ignored.
func (i *TransactionInteractor) snapshot(ctx context.Context, transaction *models.Transaction) {
	var senderBalance, receiverBalance *decimal.Decimal
	var gmt *string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if account, outcome := i.ledger.GetAccount(gctx, transaction.Sender); outcome == gateways.OutcomeOK {
			senderBalance = &account.Balance
		}
		return nil
	})
	g.Go(func() error {
		if account, outcome := i.ledger.GetAccount(gctx, transaction.Receiver); outcome == gateways.OutcomeOK {
			receiverBalance = &account.Balance
		}
		return nil
	})
	g.Go(func() error {
		if value, ok := i.ledger.GetExternalTime(gctx); ok {
			gmt = &value
		}
		return nil
	})
	_ = g.Wait()

	transaction.SenderBalance = senderBalance
	transaction.ReceiverBalance = receiverBalance
	transaction.GMTTime = gmt
}

// compensate credits amount back to account once. Its failure is only logged.
func (i *TransactionInteractor) compensate(ctx context.Context, txID, account string, amount int64) {
	outcome := i.ledger.Credit(ctx, account, amount)
	if outcome != gateways.OutcomeOK {
		i.logger.Error().Str("tx_id", txID).Str("account", account).Int64("quantity", amount).Str("outcome", outcome.String()).Msg("compensation failed, manual reconciliation required")
		return
	}
	i.logger.Warn().Str("tx_id", txID).Str("account", account).Int64("quantity", amount).Msg("compensation applied")
}

// fail marks the transaction failed. When that write fails the record stays
// pending and the stale pending report picks it up.
func (i *TransactionInteractor) fail(ctx context.Context, transaction *models.Transaction, reason string) *dtos.TransferResult {
	i.logger.Warn().Str("tx_id", transaction.ID).Str("reason", reason).Msg("transfer failed")

	failed, err := i.transactionRepository.UpdateStatus(ctx, transaction.ID, models.StatusFailed)
	if err != nil || failed == nil {
		i.logger.Error().Err(err).Str("tx_id", transaction.ID).Msg("failed to mark transaction failed")
		failed = transaction
	}

	return &dtos.TransferResult{Status: dtos.ResultFailed, Reason: reason, Transaction: failed}
}

func (i *TransactionInteractor) revertFailed(transaction *models.Transaction, reason string) *dtos.TransferResult {
	i.logger.Warn().Str("tx_id", transaction.ID).Str("reason", reason).Msg("revert failed")
	return &dtos.TransferResult{Status: dtos.ResultFailed, Reason: reason, Transaction: transaction}
}

func invalidTransition(transaction *models.Transaction, from, to models.Status) *dtos.TransferResult {
	return &dtos.TransferResult{
		Status:      dtos.ResultInvalidTransition,
		Reason:      fmt.Sprintf("cannot move from %s to %s", from, to),
		From:        from,
		To:          to,
		Transaction: transaction,
	}
}

func debitReason(outcome gateways.Outcome) string {
	switch outcome {
	case gateways.OutcomeInsufficientFunds:
		return ReasonInsufficientFunds
	case gateways.OutcomeNotFound:
		return ReasonSenderNotFound
	case gateways.OutcomeServiceUnavailable:
		return ReasonServiceUnavailable
	}
	return ReasonDebitError
}

func creditReason(outcome gateways.Outcome) string {
	switch outcome {
	case gateways.OutcomeNotFound:
		return ReasonReceiverNotFound
	case gateways.OutcomeServiceUnavailable:
		return ReasonServiceUnavailable
	}
	return ReasonCreditError
}

func revertDebitReason(outcome gateways.Outcome) string {
	switch outcome {
	case gateways.OutcomeInsufficientFunds:
		return ReasonReceiverInsufficientFunds
	case gateways.OutcomeNotFound:
		return ReasonReceiverNotFound
	case gateways.OutcomeServiceUnavailable:
		return ReasonServiceUnavailable
	}
	return ReasonDebitReceiverError
}

func revertCreditReason(outcome gateways.Outcome) string {
	switch outcome {
	case gateways.OutcomeNotFound:
		return ReasonSenderNotFound
	case gateways.OutcomeServiceUnavailable:
		return ReasonServiceUnavailable
	}
	return ReasonCreditSenderError
}

func orMissing(err error) error {
	if err != nil {
		return err
	}
	return fmt.Errorf("transaction disappeared")
}
