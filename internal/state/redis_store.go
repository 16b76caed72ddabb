package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

const defaultKeyPrefix = "flipside:snapshot:"

// RedisOptions configures the Redis backend.
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisStore keeps snapshots as plain string values.
type RedisStore struct {
	rdb    *goredis.Client
	prefix string
}

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	if opts.Addr == "" {
		opts.Addr = "localhost:6379"
	}
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = defaultKeyPrefix
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return &RedisStore{rdb: rdb, prefix: opts.KeyPrefix}, nil
}

func (r *RedisStore) key(symbol string) string {
	return r.prefix + strings.ToUpper(symbol)
}

func (r *RedisStore) Save(ctx context.Context, symbol string, blob []byte) error {
	if err := r.rdb.Set(ctx, r.key(symbol), blob, 0).Err(); err != nil {
		return fmt.Errorf("redis save %s: %w", symbol, err)
	}
	return nil
}

func (r *RedisStore) Load(ctx context.Context, symbol string) ([]byte, bool, error) {
	data, err := r.rdb.Get(ctx, r.key(symbol)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis load %s: %w", symbol, err)
	}
	return data, true, nil
}

func (r *RedisStore) Close() error { return r.rdb.Close() }
