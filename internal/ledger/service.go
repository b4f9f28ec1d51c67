package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tally/internal/model"
)

// SubjectBooked is the bus subject successful bookings are announced on.
const SubjectBooked = "ledger.transactions.booked"

// BalanceStore owns the running total per account key. Increment is the only
// way a total changes: an atomic read-or-create-and-add scoped to one key,
// serialized per key by the store. It never rejects on the sign of the
// result; that check belongs to the service.
type BalanceStore interface {
	Increment(ctx context.Context, key model.AccountKey, delta decimal.Decimal) (model.Balance, error)
	Find(ctx context.Context, key model.AccountKey) (model.Balance, error)
}

// TransactionStore is the append-only transaction log.
type TransactionStore interface {
	Insert(ctx context.Context, tx model.Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (model.Transaction, error)
	List(ctx context.Context, key model.AccountKey, skip, limit int) ([]model.Transaction, error)
}

// MessageBus publishes ledger events. Transport layers provide
// implementations; NopBus is used when no bus is configured.
type MessageBus interface {
	Publish(subject string, data []byte) error
}

// LedgerService defines the business operations of the ledger. Transport
// layers and workers depend on this interface, not on the concrete service.
type LedgerService interface {
	Book(ctx context.Context, req model.BookRequest) (uuid.UUID, error)
	FetchTransactions(ctx context.Context, tenantID, customerID uuid.UUID, skip, limit int) ([]model.Transaction, error)
	Rollback(ctx context.Context, transactionID uuid.UUID) (uuid.UUID, error)
	FindBalance(ctx context.Context, tenantID, customerID uuid.UUID) (model.Balance, error)
}

// Service enforces the non-negative balance rule and keeps the transaction
// log as the source of truth. It is the only writer of transaction records
// and the only caller of BalanceStore.Increment.
type Service struct {
	balances     BalanceStore
	transactions TransactionStore
	bus          MessageBus
	log          *zap.Logger
}

var _ LedgerService = (*Service)(nil)

func NewService(balances BalanceStore, transactions TransactionStore, bus MessageBus, log *zap.Logger) *Service {
	if bus == nil {
		bus = NopBus{}
	}
	return &Service{
		balances:     balances,
		transactions: transactions,
		bus:          bus,
		log:          log,
	}
}

// Book applies a signed amount to the account's balance and appends the
// transaction record. If the increment leaves the total negative, it is
// undone with a second increment of the negated amount before the rejection
// is returned: a rejected booking has no net effect on the balance and
// writes no record. The reversal participates in the same per-key
// serialization as every other increment, so it cannot race a concurrent
// booking into a lost update.
func (s *Service) Book(ctx context.Context, req model.BookRequest) (uuid.UUID, error) {
	key := model.AccountKey{TenantID: req.TenantID, CustomerID: req.CustomerID}

	balance, err := s.balances.Increment(ctx, key, req.Amount)
	if err != nil {
		return uuid.Nil, fmt.Errorf("increment balance: %w", err)
	}

	if balance.Total.IsNegative() {
		if err := s.reverse(ctx, key, req.Amount); err != nil {
			return uuid.Nil, err
		}
		return uuid.Nil, &InsufficientBalanceError{
			TenantID:   req.TenantID,
			CustomerID: req.CustomerID,
			Amount:     req.Amount,
		}
	}

	tx := model.Transaction{
		ID:         uuid.New(),
		TenantID:   req.TenantID,
		CustomerID: req.CustomerID,
		Amount:     req.Amount,
		Agent:      req.Agent,
		CreatedOn:  time.Now().UTC(),
	}
	if err := s.transactions.Insert(ctx, tx); err != nil {
		// The increment already stands; undo it so the balance stays equal
		// to the sum of recorded transactions.
		if rerr := s.reverse(ctx, key, req.Amount); rerr != nil {
			return uuid.Nil, rerr
		}
		return uuid.Nil, fmt.Errorf("insert transaction: %w", err)
	}

	s.publishBooked(tx, balance.Total)
	return tx.ID, nil
}

// reverse undoes a just-applied increment with a counter-increment. Failure
// here leaves the stored total wrong, so it is wrapped in a ReversalError
// and logged at error level rather than retried: an increment is not
// idempotent and a blind retry could double-apply.
func (s *Service) reverse(ctx context.Context, key model.AccountKey, amount decimal.Decimal) error {
	if _, err := s.balances.Increment(ctx, key, amount.Neg()); err != nil {
		s.log.Error("balance reversal failed, stored total is off by the booked amount",
			zap.String("tenant_id", key.TenantID.String()),
			zap.String("customer_id", key.CustomerID.String()),
			zap.String("amount", amount.String()),
			zap.Error(err),
		)
		return &ReversalError{Key: key, Amount: amount, Err: err}
	}
	return nil
}

// FetchTransactions returns the account's transactions ordered most recent
// first, skipping skip records and returning at most limit. Pure read.
func (s *Service) FetchTransactions(ctx context.Context, tenantID, customerID uuid.UUID, skip, limit int) ([]model.Transaction, error) {
	key := model.AccountKey{TenantID: tenantID, CustomerID: customerID}
	txs, err := s.transactions.List(ctx, key, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// Rollback books a compensating transaction with the negated amount of the
// original and returns the new transaction's id. The original record is
// untouched. The rollback can legitimately fail with
// InsufficientBalanceError when intervening transactions have left the
// account unable to absorb the reversal.
func (s *Service) Rollback(ctx context.Context, transactionID uuid.UUID) (uuid.UUID, error) {
	original, err := s.transactions.FindByID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, ErrTransactionNotFound) {
			return uuid.Nil, &TransactionNotFoundError{TransactionID: transactionID}
		}
		return uuid.Nil, fmt.Errorf("find transaction: %w", err)
	}

	return s.Book(ctx, model.BookRequest{
		TenantID:   original.TenantID,
		CustomerID: original.CustomerID,
		Amount:     original.Amount.Neg(),
		Agent:      original.Agent,
	})
}

// FindBalance returns the current total for the account key. A key with no
// transaction history yields an AccountNotFoundError, not a zero balance.
func (s *Service) FindBalance(ctx context.Context, tenantID, customerID uuid.UUID) (model.Balance, error) {
	key := model.AccountKey{TenantID: tenantID, CustomerID: customerID}
	balance, err := s.balances.Find(ctx, key)
	if err != nil {
		if errors.Is(err, ErrBalanceNotFound) {
			return model.Balance{}, &AccountNotFoundError{TenantID: tenantID, CustomerID: customerID}
		}
		return model.Balance{}, fmt.Errorf("find balance: %w", err)
	}
	return balance, nil
}

// publishBooked emits the booked event. Publishing is best effort: the
// booking already committed, so a bus failure is logged and swallowed.
func (s *Service) publishBooked(tx model.Transaction, total decimal.Decimal) {
	event := model.BookedEvent{
		TransactionID: tx.ID,
		TenantID:      tx.TenantID,
		CustomerID:    tx.CustomerID,
		Amount:        tx.Amount,
		Agent:         tx.Agent,
		Total:         total,
		CreatedOn:     tx.CreatedOn,
	}
	data, err := json.Marshal(event)
	if err != nil {
		s.log.Warn("failed to marshal booked event", zap.Error(err))
		return
	}
	if err := s.bus.Publish(SubjectBooked, data); err != nil {
		s.log.Warn("failed to publish booked event",
			zap.String("transaction_id", tx.ID.String()),
			zap.Error(err),
		)
	}
}
