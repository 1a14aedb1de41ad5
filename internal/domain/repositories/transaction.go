package repositories

import (
	"context"
	"time"

	"github.com/mufasadev/transfers/internal/domain/models"
)

const (
	SerializationError = "40001"
	InvalidTextError   = "22P02"
)

// TransactionRepository persists transfers. Lookups of unknown or malformed
// ids return (nil, nil).
type TransactionRepository interface {
	Insert(ctx context.Context, transaction *models.Transaction) (*models.Transaction, error)
	FindByID(ctx context.Context, id string) (*models.Transaction, error)
	FindByParticipant(ctx context.Context, userID string, role models.Role) ([]*models.Transaction, error)
	FindByStatusBefore(ctx context.Context, status models.Status, before time.Time) ([]*models.Transaction, error)
	UpdateStatus(ctx context.Context, id string, status models.Status) (*models.Transaction, error)
	Delete(ctx context.Context, id string) (*models.Transaction, error)
}
