package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// Locker сериализует прогоны импорта одного поставщика между процессами.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)
}

type RedisLocker struct {
	client *redislock.Client
}

func NewRedisLocker(rdb redis.UniversalClient) *RedisLocker {
	return &RedisLocker{client: redislock.New(rdb)}
}

func (l *RedisLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	lock, err := l.client.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrImportInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain import lock: %w", err)
	}
	return lock.Release, nil
}

func lockKey(companyID, supplierID int64) string {
	return fmt.Sprintf("catalog:import:%d:%d", companyID, supplierID)
}
