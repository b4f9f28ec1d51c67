package infrastructure

import (
	"context"

	"tally/internal/config"
	"tally/internal/ledger"
	"tally/internal/repository"
	transportHTTP "tally/internal/transport/http"
	transportNATS "tally/internal/transport/nats"
	"tally/internal/worker"
	"tally/pkg/logger"
)

// Bootstrap initialises all dependencies from config and wires up the
// application. Returns the App, a cleanup function, or an error.
func Bootstrap(ctx context.Context) (*App, func(), error) {
	cfg, err := config.New()
	if err != nil {
		return nil, nil, err
	}

	log := logger.New(cfg.LogLevel)

	var cleanupFns []func()
	cleanupFns = append(cleanupFns, func() { _ = log.Sync() })

	pool, err := connectPostgres(ctx, cfg.DSN())
	if err != nil {
		return nil, runCleanup(cleanupFns), err
	}
	cleanupFns = append(cleanupFns, pool.Close)

	rdb, err := connectRedis(ctx, cfg.RedisAddr())
	if err != nil {
		return nil, runCleanup(cleanupFns), err
	}
	cleanupFns = append(cleanupFns, func() { _ = rdb.Close() })

	cache := repository.NewCache(rdb)
	balances := repository.NewBalances(pool, cache, log)
	transactions := repository.NewTransactions(pool)

	var bus ledger.MessageBus
	var servers []Server

	if addr, ok := cfg.NatsAddr(); ok {
		nc, err := connectNats(ctx, addr)
		if err != nil {
			return nil, runCleanup(cleanupFns), err
		}
		cleanupFns = append(cleanupFns, nc.Close)

		bus = transportNATS.NewBus(nc)
		servers = append(servers, worker.NewCacheSyncWorker(cache, nc, log))
	}

	svc := ledger.NewService(balances, transactions, bus, log)
	servers = append(servers, transportHTTP.NewServer(cfg.APIAddr(), svc, log))

	return NewApp(log, servers...), runCleanup(cleanupFns), nil
}

// runCleanup returns a single function that calls all cleanup functions in
// reverse order.
func runCleanup(fns []func()) func() {
	return func() {
		for i := len(fns) - 1; i >= 0; i-- {
			fns[i]()
		}
	}
}
