package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/ducminhle1904/flipside-bot/internal/position"
)

// SQLiteStore keeps snapshots and an order journal in one database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database in WAL mode.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		path = "state/flipside.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			symbol     TEXT    PRIMARY KEY,
			data       BLOB    NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS orders (
			id       TEXT    PRIMARY KEY,
			symbol   TEXT    NOT NULL,
			action   TEXT    NOT NULL,
			bar_time INTEGER NOT NULL,
			price    TEXT    NOT NULL,
			base     TEXT    NOT NULL,
			quote    TEXT    NOT NULL,
			profit   TEXT    NOT NULL,
			forced   INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_orders_symbol ON orders(symbol, bar_time);
	`)
	return err
}

// DB returns the underlying sql.DB for health checks.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

func (s *SQLiteStore) Save(ctx context.Context, symbol string, blob []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (symbol, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(symbol) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		strings.ToUpper(symbol), blob, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", symbol, err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, symbol string) ([]byte, bool, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM snapshots WHERE symbol = ?`, strings.ToUpper(symbol)).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load snapshot %s: %w", symbol, err)
	}
	return blob, true, nil
}

// RecordOrder appends an order to the journal. Recording the same order twice
// is a no-op.
func (s *SQLiteStore) RecordOrder(ctx context.Context, symbol string, o position.Order) error {
	forced := 0
	if o.Forced {
		forced = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO orders (id, symbol, action, bar_time, price, base, quote, profit, forced)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, strings.ToUpper(symbol), o.Action.String(), o.Time.UnixMilli(),
		o.Price.String(), o.Base.String(), o.Quote.String(), o.Profit.String(), forced)
	if err != nil {
		return fmt.Errorf("record order %s: %w", o.ID, err)
	}
	return nil
}

// Orders returns the journaled orders of symbol, oldest first.
func (s *SQLiteStore) Orders(ctx context.Context, symbol string) ([]position.Order, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, action, bar_time, price, base, quote, profit, forced
		 FROM orders WHERE symbol = ? ORDER BY bar_time, rowid`, strings.ToUpper(symbol))
	if err != nil {
		return nil, fmt.Errorf("query orders %s: %w", symbol, err)
	}
	defer rows.Close()

	var out []position.Order
	for rows.Next() {
		var (
			o                          position.Order
			action                     string
			barTime                    int64
			price, base, quote, profit string
			forced                     int
		)
		if err := rows.Scan(&o.ID, &action, &barTime, &price, &base, &quote, &profit, &forced); err != nil {
			return nil, err
		}
		if err := o.Action.UnmarshalText([]byte(action)); err != nil {
			return nil, err
		}
		o.Time = time.UnixMilli(barTime).UTC()
		o.Forced = forced == 1
		for _, field := range []struct {
			raw string
			dst *decimal.Decimal
		}{{price, &o.Price}, {base, &o.Base}, {quote, &o.Quote}, {profit, &o.Profit}} {
			if *field.dst, err = decimal.NewFromString(field.raw); err != nil {
				return nil, fmt.Errorf("order %s: %w", o.ID, err)
			}
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
