package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is applied to transfers created without an explicit currency.
const DefaultCurrency = "USD"

// Transaction moves Quantity minor units from Sender to Receiver. Only Status
// changes after insert.
type Transaction struct {
	ID              string           `json:"id" db:"id"`
	Sender          string           `json:"sender" db:"sender"`
	Receiver        string           `json:"receiver" db:"receiver"`
	Quantity        int64            `json:"quantity" db:"quantity"`
	Currency        string           `json:"currency" db:"currency"`
	Status          Status           `json:"status" db:"status"`
	SenderBalance   *decimal.Decimal `json:"sender_balance,omitempty" db:"sender_balance"`
	ReceiverBalance *decimal.Decimal `json:"receiver_balance,omitempty" db:"receiver_balance"`
	GMTTime         *string          `json:"gmt_time,omitempty" db:"gmt_time"`
	CreatedAt       time.Time        `json:"date" db:"created_at"`
}

// Involves reports whether userID takes part in the transfer in the given role.
func (t *Transaction) Involves(userID string, role Role) bool {
	switch role {
	case RoleSent:
		return t.Sender == userID
	case RoleReceived:
		return t.Receiver == userID
	default:
		return t.Sender == userID || t.Receiver == userID
	}
}

// Role selects which side of a transfer a participant query matches.
type Role string

const (
	RoleAny      Role = "any"
	RoleSent     Role = "sent"
	RoleReceived Role = "received"
)
