package errors

import (
	"errors"
	"fmt"
)

const (
	ErrorFailedToConnectToTheDatabase = "Failed to connect to the database"
	ErrorFailedToConnectToRedis       = "Failed to connect to redis"
	ErrorFailedToPrepareSchema        = "Failed to prepare the database schema"
	ErrorFailedToRunTheServer         = "Failed to run the server"
	ErrorFailedToShutdownTheServer    = "Failed to shutdown the server"
	ErrFailedDecodeRequestBody        = "Failed to decode request body"
	ErrInvalidRequestBody             = "Invalid request body"
	ErrFailedProcessTransaction       = "Failed to process transaction"
	ErrFailedReportStalePending       = "Failed to report stale pending transactions"
	ErrTransactionIDRequired          = "Transaction ID is required"
	ErrUserIDRequired                 = "User ID is required"
	ErrStatusRequired                 = "Missing 'status' in request body"
	ErrQuantityNotPositive            = "Quantity must be positive"
	ErrSameParticipants               = "Sender and receiver must be different"
	ErrParticipantsRequired           = "Sender and receiver are required"
	ErrInvalidStatus                  = "Invalid status"
	ErrTransactionNotFound            = "Transaction not found"
	ErrNoTransactionsForUser          = "No transactions found for user"
	ErrTooManyRequests                = "Too Many Requests"
)

type BadRequestError struct {
	Message string
}

func NewBadRequestError(message string) *BadRequestError {
	return &BadRequestError{Message: message}
}

func (e *BadRequestError) Error() string {
	return fmt.Sprintf("Bad request: %s", e.Message)
}

type NotFoundError struct {
	Message string
}

func NewNotFoundError(message string) *NotFoundError {
	return &NotFoundError{Message: message}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Not found: %s", e.Message)
}

// ConflictError reports a request that is valid but clashes with the current
// state of a transaction.
type ConflictError struct {
	Reason string
}

func NewConflictError(reason string) *ConflictError {
	return &ConflictError{Reason: reason}
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: %s", e.Reason)
}

type TooManyRequestsError struct{}

func NewTooManyRequestsError() *TooManyRequestsError {
	return &TooManyRequestsError{}
}

func (e *TooManyRequestsError) Error() string {
	return ErrTooManyRequests
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
