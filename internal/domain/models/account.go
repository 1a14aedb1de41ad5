package models

import "github.com/shopspring/decimal"

// Account is the view of a ledger account returned by the accounts service.
// It is never authoritative locally.
type Account struct {
	IBAN      string          `json:"iban"`
	Name      string          `json:"name"`
	Balance   decimal.Decimal `json:"balance"`
	IsBlocked bool            `json:"isBlocked"`
}
