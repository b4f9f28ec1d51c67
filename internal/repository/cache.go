package repository

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"tally/internal/model"
)

// Cache holds the current total per account key in Redis. It is the fast
// read path for balance lookups; entries carry no TTL because Postgres is
// the source of truth and repopulates the cache on a miss.
type Cache struct {
	rdb *redis.Client
}

func NewCache(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

func balanceCacheKey(key model.AccountKey) string {
	return fmt.Sprintf("balance:%s:%s", key.TenantID, key.CustomerID)
}

// Get returns the cached total. A miss surfaces as redis.Nil.
func (c *Cache) Get(ctx context.Context, key model.AccountKey) (decimal.Decimal, error) {
	val, err := c.rdb.Get(ctx, balanceCacheKey(key)).Result()
	if err != nil {
		return decimal.Zero, err
	}
	total, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, fmt.Errorf("corrupt cached balance %q: %w", val, err)
	}
	return total, nil
}

func (c *Cache) Set(ctx context.Context, key model.AccountKey, total decimal.Decimal) error {
	return c.rdb.Set(ctx, balanceCacheKey(key), total.String(), 0).Err()
}
