package ledger

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tally/internal/model"
)

// Sentinels returned by the stores. The service translates them into the
// typed errors below, which carry enough context for logs and API responses.
var (
	ErrBalanceNotFound     = errors.New("balance not found")
	ErrTransactionNotFound = errors.New("transaction not found")
)

// InsufficientBalanceError rejects a booking that would drive a balance
// negative. It is returned only after the compensating reversal has been
// applied, so callers can rely on the balance being unchanged from before
// the attempt.
type InsufficientBalanceError struct {
	TenantID   uuid.UUID
	CustomerID uuid.UUID
	Amount     decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("Unable to book [%s] for tenant: [%s], customer: [%s]",
		e.Amount, e.TenantID, e.CustomerID)
}

// TransactionNotFoundError reports a rollback request for an unknown id.
type TransactionNotFoundError struct {
	TransactionID uuid.UUID
}

func (e *TransactionNotFoundError) Error() string {
	return fmt.Sprintf("Transaction not found, id: [%s]", e.TransactionID)
}

// AccountNotFoundError reports a balance lookup on a key that has never
// transacted.
type AccountNotFoundError struct {
	TenantID   uuid.UUID
	CustomerID uuid.UUID
}

func (e *AccountNotFoundError) Error() string {
	return fmt.Sprintf("Account not found, tenantId: [%s], customerId: [%s]",
		e.TenantID, e.CustomerID)
}

// ReversalError is the one unrecoverable storage fault: an increment was
// applied but the counter-increment undoing it failed. The stored total is
// off by Amount until reconciled. Increments are not idempotent, so the
// fault is surfaced instead of retried blindly.
type ReversalError struct {
	Key    model.AccountKey
	Amount decimal.Decimal
	Err    error
}

func (e *ReversalError) Error() string {
	return fmt.Sprintf("failed to reverse increment of [%s] for tenant: [%s], customer: [%s]: %v",
		e.Amount, e.Key.TenantID, e.Key.CustomerID, e.Err)
}

func (e *ReversalError) Unwrap() error { return e.Err }
