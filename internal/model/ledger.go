package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountKey identifies exactly one balance: a customer within a tenant.
type AccountKey struct {
	TenantID   uuid.UUID `json:"tenant_id"`
	CustomerID uuid.UUID `json:"customer_id"`
}

// Balance is the running total for one account key. A key without a balance
// row has never transacted, which is observably distinct from a zero total.
type Balance struct {
	Key   AccountKey      `json:"key"`
	Total decimal.Decimal `json:"total"`
}

// Transaction is one immutable line of the ledger. A rollback appends a new
// transaction with the negated amount; nothing is ever updated or deleted.
type Transaction struct {
	ID         uuid.UUID       `json:"id"`
	TenantID   uuid.UUID       `json:"tenant_id"`
	CustomerID uuid.UUID       `json:"customer_id"`
	Amount     decimal.Decimal `json:"amount"`
	Agent      string          `json:"agent"`
	CreatedOn  time.Time       `json:"created_on"`
}

// BookRequest is the input for booking a signed amount against an account.
// Positive amounts credit the balance, negative amounts debit it.
type BookRequest struct {
	TenantID   uuid.UUID       `json:"tenant_id"`
	CustomerID uuid.UUID       `json:"customer_id"`
	Amount     decimal.Decimal `json:"amount"`
	Agent      string          `json:"agent"`
}

// BookedEvent is published on the bus after a successful booking. Total is
// the post-booking balance, so subscribers can sync their caches without an
// extra database read.
type BookedEvent struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	TenantID      uuid.UUID       `json:"tenant_id"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	Amount        decimal.Decimal `json:"amount"`
	Agent         string          `json:"agent"`
	Total         decimal.Decimal `json:"total"`
	CreatedOn     time.Time       `json:"created_on"`
}
