package state

import (
	"context"
	"fmt"
	"strings"

	"github.com/ducminhle1904/flipside-bot/internal/position"
)

// Supported backends
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// SnapshotStore keeps one opaque tracker snapshot per trading pair.
type SnapshotStore interface {
	Save(ctx context.Context, symbol string, blob []byte) error
	// Load reports false when nothing was saved for symbol.
	Load(ctx context.Context, symbol string) ([]byte, bool, error)
	Close() error
}

// OrderJournal is implemented by stores that also keep an append-only order log.
type OrderJournal interface {
	RecordOrder(ctx context.Context, symbol string, order position.Order) error
}

// Config selects and configures a backend.
type Config struct {
	Backend       string `json:"backend" yaml:"backend" validate:"omitempty,oneof=file sqlite redis"`
	Dir           string `json:"dir,omitempty" yaml:"dir,omitempty"`
	Path          string `json:"path,omitempty" yaml:"path,omitempty"`
	RedisAddr     string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`
	RedisPassword string `json:"-" yaml:"-"`
	RedisDB       int    `json:"redis_db,omitempty" yaml:"redis_db,omitempty"`
	KeyPrefix     string `json:"key_prefix,omitempty" yaml:"key_prefix,omitempty"`
}

// Open creates the configured store. An empty backend means file storage.
func Open(ctx context.Context, cfg Config) (SnapshotStore, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", BackendFile:
		return NewFileStore(cfg.Dir)
	case BackendSQLite:
		return NewSQLiteStore(cfg.Path)
	case BackendRedis:
		return NewRedisStore(ctx, RedisOptions{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.KeyPrefix,
		})
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.Backend)
	}
}
