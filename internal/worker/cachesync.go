package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tally/internal/ledger"
	"tally/internal/model"
)

// BalanceCache is the slice of the cache the worker writes to.
type BalanceCache interface {
	Set(ctx context.Context, key model.AccountKey, total decimal.Decimal) error
}

// CacheSyncWorker subscribes to booked-transaction events and writes each
// event's post-booking total into the balance cache. The inline
// write-through during booking is best effort; this is the repair path that
// makes the cache converge when that write fails. Events racing on one key
// can briefly regress the cached total, which balance reads tolerate.
type CacheSyncWorker struct {
	cache    BalanceCache
	natsConn *nats.Conn
	log      *zap.Logger
}

func NewCacheSyncWorker(cache BalanceCache, nc *nats.Conn, log *zap.Logger) *CacheSyncWorker {
	return &CacheSyncWorker{
		cache:    cache,
		natsConn: nc,
		log:      log,
	}
}

// Start subscribes in a queue group, so with several instances running each
// event is applied exactly once, and blocks until ctx is cancelled.
func (w *CacheSyncWorker) Start(ctx context.Context) error {
	sub, err := w.natsConn.QueueSubscribe(ledger.SubjectBooked, "cache_sync", func(m *nats.Msg) {
		w.handle(ctx, m.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", ledger.SubjectBooked, err)
	}

	w.log.Info("cache sync worker running", zap.String("subject", ledger.SubjectBooked))

	<-ctx.Done()

	w.log.Info("cache sync worker draining subscription")
	return sub.Drain()
}

// Stop is a no-op, shutdown happens via ctx in Start.
func (w *CacheSyncWorker) Stop(ctx context.Context) error {
	return nil
}

func (w *CacheSyncWorker) handle(ctx context.Context, data []byte) {
	var event model.BookedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		w.log.Error("worker: failed to unmarshal booked event", zap.Error(err))
		return
	}

	key := model.AccountKey{TenantID: event.TenantID, CustomerID: event.CustomerID}
	if err := w.cache.Set(ctx, key, event.Total); err != nil {
		w.log.Error("worker: failed to sync balance cache",
			zap.String("transaction_id", event.TransactionID.String()),
			zap.String("tenant_id", event.TenantID.String()),
			zap.String("customer_id", event.CustomerID.String()),
			zap.Error(err),
		)
		return
	}

	w.log.Debug("worker: balance cache synced",
		zap.String("transaction_id", event.TransactionID.String()),
		zap.String("total", event.Total.String()),
	)
}
