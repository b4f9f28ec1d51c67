package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tally/internal/ledger"
	"tally/internal/model"
)

// Balances implements ledger.BalanceStore on Postgres with a write-through
// Redis cache. The increment is a single upsert statement: concurrent
// increments on one key serialize on the row lock, different keys proceed
// independently, and the row is created at zero on first use.
type Balances struct {
	pool  *pgxpool.Pool
	cache *Cache
	log   *zap.Logger
}

var _ ledger.BalanceStore = (*Balances)(nil)

func NewBalances(pool *pgxpool.Pool, cache *Cache, log *zap.Logger) *Balances {
	return &Balances{pool: pool, cache: cache, log: log}
}

const incrementSQL = `
	INSERT INTO balances (tenant_id, customer_id, total)
	VALUES ($1, $2, $3)
	ON CONFLICT (tenant_id, customer_id)
	DO UPDATE SET total = balances.total + EXCLUDED.total
	RETURNING total::text`

// Increment atomically adds delta to the key's total, creating the row at
// zero if absent, and returns the post-update balance. It never rejects on
// the sign of the result.
func (b *Balances) Increment(ctx context.Context, key model.AccountKey, delta decimal.Decimal) (model.Balance, error) {
	var totalStr string
	if err := b.pool.QueryRow(ctx, incrementSQL, key.TenantID, key.CustomerID, delta).Scan(&totalStr); err != nil {
		return model.Balance{}, fmt.Errorf("increment balance: %w", err)
	}
	total, err := decimal.NewFromString(totalStr)
	if err != nil {
		return model.Balance{}, fmt.Errorf("parse balance total %q: %w", totalStr, err)
	}

	// Best effort: a failed cache write only costs a warm-up on the next
	// read, Postgres already holds the authoritative value.
	if err := b.cache.Set(ctx, key, total); err != nil {
		b.log.Warn("failed to write balance through to cache",
			zap.String("tenant_id", key.TenantID.String()),
			zap.String("customer_id", key.CustomerID.String()),
			zap.Error(err),
		)
	}

	return model.Balance{Key: key, Total: total}, nil
}

// Find is a point read served from the cache, warming it from Postgres on a
// miss. It is not atomic with respect to concurrent increments; it may
// return any total the store actually held.
func (b *Balances) Find(ctx context.Context, key model.AccountKey) (model.Balance, error) {
	total, err := b.cache.Get(ctx, key)
	if err == nil {
		return model.Balance{Key: key, Total: total}, nil
	}
	if !errors.Is(err, redis.Nil) {
		b.log.Warn("balance cache read failed, falling back to postgres", zap.Error(err))
	}

	var totalStr string
	err = b.pool.QueryRow(ctx,
		`SELECT total::text FROM balances WHERE tenant_id = $1 AND customer_id = $2`,
		key.TenantID, key.CustomerID,
	).Scan(&totalStr)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Balance{}, ledger.ErrBalanceNotFound
	}
	if err != nil {
		return model.Balance{}, fmt.Errorf("select balance: %w", err)
	}

	total, err = decimal.NewFromString(totalStr)
	if err != nil {
		return model.Balance{}, fmt.Errorf("parse balance total %q: %w", totalStr, err)
	}

	if err := b.cache.Set(ctx, key, total); err != nil {
		b.log.Warn("failed to warm balance cache", zap.Error(err))
	}

	return model.Balance{Key: key, Total: total}, nil
}
