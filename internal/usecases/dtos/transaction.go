package dtos

import "github.com/mufasadev/transfers/internal/domain/models"

// TransferDTO is the body of a create transfer request.
type TransferDTO struct {
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Quantity int64  `json:"quantity"`
	Currency string `json:"currency,omitempty"`
}

// StatusDTO is the body of a manual status update.
type StatusDTO struct {
	Status string `json:"status"`
}

const (
	ResultCompleted         = "completed"
	ResultFailed            = "failed"
	ResultReverted          = "reverted"
	ResultNotReverted       = "not_reverted"
	ResultDeleted           = "deleted"
	ResultUpdated           = "updated"
	ResultInvalidTransition = "invalid_transition"
)

// TransferResult is the outcome of a saga step. Status is one of the Result
// constants; Reason is set for every unsuccessful outcome.
type TransferResult struct {
	Status      string              `json:"status"`
	Reason      string              `json:"reason,omitempty"`
	From        models.Status       `json:"from,omitempty"`
	To          models.Status       `json:"to,omitempty"`
	Transaction *models.Transaction `json:"transaction,omitempty"`
}
