package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mufasadev/transfers/internal/domain/models"
	"github.com/mufasadev/transfers/internal/domain/repositories"
	apperrors "github.com/mufasadev/transfers/internal/errors"
	"github.com/mufasadev/transfers/pkg/log"
	"github.com/mufasadev/transfers/pkg/postgresql"
	"github.com/rs/zerolog"
)

type TransactionRepositoryImpl struct {
	db     postgresql.Client
	logger *zerolog.Logger
}

// NewTransactionRepositoryImpl creates new instance of TransactionRepositoryImpl.
func NewTransactionRepositoryImpl(db postgresql.Client) *TransactionRepositoryImpl {
	l := log.GetLogger()
	return &TransactionRepositoryImpl{
		db:     db,
		logger: &l,
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS transfers (
  id               UUID PRIMARY KEY,
  sender           TEXT NOT NULL,
  receiver         TEXT NOT NULL,
  quantity         BIGINT NOT NULL CHECK (quantity > 0),
  currency         TEXT NOT NULL DEFAULT 'USD',
  status           TEXT NOT NULL,
  sender_balance   NUMERIC(20,2),
  receiver_balance NUMERIC(20,2),
  gmt_time         TEXT,
  created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
  CHECK (sender <> receiver)
);
CREATE INDEX IF NOT EXISTS transfers_sender_idx ON transfers (sender);
CREATE INDEX IF NOT EXISTS transfers_receiver_idx ON transfers (receiver);
CREATE INDEX IF NOT EXISTS transfers_status_created_idx ON transfers (status, created_at);`

// EnsureSchema creates the transfers table and its indexes when missing.
func (r *TransactionRepositoryImpl) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

const columns = `id, sender, receiver, quantity, currency, status, sender_balance, receiver_balance, gmt_time, created_at`

// Insert stores a new transfer under a fresh id and returns the stored row.
func (r *TransactionRepositoryImpl) Insert(ctx context.Context, transaction *models.Transaction) (*models.Transaction, error) {
	currency := transaction.Currency
	if currency == "" {
		currency = models.DefaultCurrency
	}
	status := transaction.Status
	if status == "" {
		status = models.StatusPending
	}

	row := r.db.QueryRow(
		ctx,
		`INSERT INTO transfers (id, sender, receiver, quantity, currency, status, sender_balance, receiver_balance, gmt_time)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+columns,
		uuid.New().String(),
		transaction.Sender,
		transaction.Receiver,
		transaction.Quantity,
		currency,
		string(status),
		transaction.SenderBalance,
		transaction.ReceiverBalance,
		transaction.GMTTime,
	)

	stored, err := scanTransaction(row)
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}

	return stored, nil
}

// FindByID returns the transfer with the given id or nil.
func (r *TransactionRepositoryImpl) FindByID(ctx context.Context, id string) (*models.Transaction, error) {
	if !isValidID(id) {
		return nil, nil
	}

	tx, err := scanTransaction(r.db.QueryRow(ctx, "SELECT "+columns+" FROM transfers WHERE id = $1", id))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find transaction: %w", err)
	}

	return tx, nil
}

// FindByParticipant lists the transfers userID sent, received or both.
func (r *TransactionRepositoryImpl) FindByParticipant(ctx context.Context, userID string, role models.Role) ([]*models.Transaction, error) {
	var where string
	switch role {
	case models.RoleSent:
		where = "sender = $1"
	case models.RoleReceived:
		where = "receiver = $1"
	default:
		where = "sender = $1 OR receiver = $1"
	}

	return r.query(ctx, "SELECT "+columns+" FROM transfers WHERE "+where+" ORDER BY created_at, id", userID)
}

// FindByStatusBefore lists transfers in status created before the given time.
func (r *TransactionRepositoryImpl) FindByStatusBefore(ctx context.Context, status models.Status, before time.Time) ([]*models.Transaction, error) {
	return r.query(ctx, "SELECT "+columns+" FROM transfers WHERE status = $1 AND created_at < $2 ORDER BY created_at, id", string(status), before)
}

// UpdateStatus sets the status of a transfer. A reverted transfer is never
// changed again; trying yields a ConflictError.
func (r *TransactionRepositoryImpl) UpdateStatus(ctx context.Context, id string, status models.Status) (*models.Transaction, error) {
	if !isValidID(id) {
		return nil, nil
	}

	for {
		tx, err := r.updateStatus(ctx, id, status)
		if err == nil || !isSerializationError(err) {
			return tx, err
		}
		// retry transaction if serialization error occurs (SQLSTATE 40001)
		r.logger.Debug().Str("tx_id", id).Msg("serialization conflict on status update, retrying")
	}
}

func (r *TransactionRepositoryImpl) updateStatus(ctx context.Context, id string, status models.Status) (*models.Transaction, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var current string
	err = tx.QueryRow(ctx, "SELECT status FROM transfers WHERE id = $1 FOR UPDATE", id).Scan(&current)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock transaction: %w", err)
	}

	if models.Status(current).IsTerminal() {
		return nil, apperrors.NewConflictError(fmt.Sprintf("transaction is %s", current))
	}

	updated, err := scanTransaction(tx.QueryRow(ctx, "UPDATE transfers SET status = $2 WHERE id = $1 RETURNING "+columns, id, string(status)))
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}

	return updated, nil
}

// Delete removes a transfer and returns the removed row or nil.
func (r *TransactionRepositoryImpl) Delete(ctx context.Context, id string) (*models.Transaction, error) {
	if !isValidID(id) {
		return nil, nil
	}

	deleted, err := scanTransaction(r.db.QueryRow(ctx, "DELETE FROM transfers WHERE id = $1 RETURNING "+columns, id))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("delete transaction: %w", err)
	}

	return deleted, nil
}

func (r *TransactionRepositoryImpl) query(ctx context.Context, sql string, args ...interface{}) ([]*models.Transaction, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		result = append(result, tx)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	return result, nil
}

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	tx := &models.Transaction{}
	var status string
	err := row.Scan(
		&tx.ID,
		&tx.Sender,
		&tx.Receiver,
		&tx.Quantity,
		&tx.Currency,
		&status,
		&tx.SenderBalance,
		&tx.ReceiverBalance,
		&tx.GMTTime,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	tx.Status = models.Status(status)
	tx.CreatedAt = tx.CreatedAt.UTC()
	return tx, nil
}

func isValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func isNotFound(err error) bool {
	if errors.Is(err, pgx.ErrNoRows) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.SQLState() == repositories.InvalidTextError
}

func isSerializationError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.SQLState() == repositories.SerializationError
}
