package cache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/biblestudybuddy/studybuddy/internal/pkg/config"
)

// ErrLockHeld is returned by AcquireLock when another holder owns the key.
var ErrLockHeld = errors.New("cache: lock held")

// SetupCache initializes the connection to the Redis/Dragonfly cache server.
func SetupCache(cfg config.CacheConfig) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       0,
	})

	pong, err := client.Ping(context.Background()).Result()
	if err != nil {
		log.Printf("Warning: Could not connect to cache: %v", err)
	} else {
		log.Printf("Successfully connected to cache: %s", pong)
	}
	return client
}

// Lock is a single-holder lease on a Redis key.
type Lock struct {
	rdb   *redis.Client
	key   string
	token string
}

// AcquireLock takes key for ttl via SETNX. The token guards release so a
// lease that expired and was taken by someone else is not deleted.
func AcquireLock(ctx context.Context, rdb *redis.Client, key, token string, ttl time.Duration) (*Lock, error) {
	ok, err := rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return &Lock{rdb: rdb, key: key, token: token}, nil
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

func (l *Lock) Release(ctx context.Context) error {
	return releaseScript.Run(ctx, l.rdb, []string{l.key}, l.token).Err()
}

// WaitForUnlock polls until key disappears or ctx ends.
func WaitForUnlock(ctx context.Context, rdb *redis.Client, key string, every time.Duration) error {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		n, err := rdb.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}
