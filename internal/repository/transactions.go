package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"tally/internal/ledger"
	"tally/internal/model"
)

// Transactions implements ledger.TransactionStore on Postgres. The table is
// append-only; there is no update or delete path.
type Transactions struct {
	pool *pgxpool.Pool
}

var _ ledger.TransactionStore = (*Transactions)(nil)

func NewTransactions(pool *pgxpool.Pool) *Transactions {
	return &Transactions{pool: pool}
}

func (t *Transactions) Insert(ctx context.Context, tx model.Transaction) error {
	_, err := t.pool.Exec(ctx, `
		INSERT INTO transactions (id, tenant_id, customer_id, amount, agent, created_on)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		tx.ID, tx.TenantID, tx.CustomerID, tx.Amount, tx.Agent, tx.CreatedOn,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (t *Transactions) FindByID(ctx context.Context, id uuid.UUID) (model.Transaction, error) {
	row := t.pool.QueryRow(ctx, `
		SELECT id, tenant_id, customer_id, amount::text, agent, created_on
		FROM transactions
		WHERE id = $1`, id,
	)
	tx, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Transaction{}, ledger.ErrTransactionNotFound
	}
	if err != nil {
		return model.Transaction{}, fmt.Errorf("select transaction: %w", err)
	}
	return tx, nil
}

// List returns the key's transactions ordered most recent first, with id as
// a tie breaker so pagination stays stable across equal timestamps.
func (t *Transactions) List(ctx context.Context, key model.AccountKey, skip, limit int) ([]model.Transaction, error) {
	rows, err := t.pool.Query(ctx, `
		SELECT id, tenant_id, customer_id, amount::text, agent, created_on
		FROM transactions
		WHERE tenant_id = $1 AND customer_id = $2
		ORDER BY created_on DESC, id DESC
		OFFSET $3 LIMIT $4`,
		key.TenantID, key.CustomerID, skip, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txs := make([]model.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (model.Transaction, error) {
	var (
		tx        model.Transaction
		amountStr string
	)
	if err := row.Scan(&tx.ID, &tx.TenantID, &tx.CustomerID, &amountStr, &tx.Agent, &tx.CreatedOn); err != nil {
		return model.Transaction{}, err
	}
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parse amount %q: %w", amountStr, err)
	}
	tx.Amount = amount
	return tx, nil
}
