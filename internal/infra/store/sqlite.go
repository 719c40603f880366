package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"stockwatch/internal/domain/stock"

	_ "modernc.org/sqlite"
)

var _ stock.StateStore = (*SQLiteStore)(nil)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS product_states (
	namespace       TEXT    NOT NULL,
	pincode         TEXT    NOT NULL,
	store_id        TEXT    NOT NULL,
	product_id      TEXT    NOT NULL,
	available       INTEGER NOT NULL,
	last_checked_at TEXT    NOT NULL,
	PRIMARY KEY (namespace, pincode, store_id, product_id)
);`

// SQLiteStore implements StateStore on a local SQLite file.
type SQLiteStore struct {
	db        *sql.DB
	namespace string
}

// NewSQLiteStore opens (and migrates) the database at path.
func NewSQLiteStore(path, namespace string, busyTimeout time.Duration) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating sqlite directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if busyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating sqlite: %w", err)
	}

	return &SQLiteStore{db: db, namespace: namespace}, nil
}

// Get returns the stored state of a product.
func (s *SQLiteStore) Get(ctx context.Context, sc stock.StoreContext, productID string) (stock.StoredState, bool, error) {
	var (
		available int
		checkedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT available, last_checked_at FROM product_states
		 WHERE namespace = ? AND pincode = ? AND store_id = ? AND product_id = ?`,
		s.namespace, sc.Pincode, sc.StoreID, productID,
	).Scan(&available, &checkedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return stock.StoredState{}, false, nil
	}
	if err != nil {
		return stock.StoredState{}, false, fmt.Errorf("reading state: %w", err)
	}

	t, err := time.Parse(time.RFC3339Nano, checkedAt)
	if err != nil {
		return stock.StoredState{}, false, fmt.Errorf("parsing last_checked_at for %s: %w", productID, err)
	}
	return stock.StoredState{Available: available != 0, LastCheckedAt: t}, true, nil
}

// Put upserts every update inside one transaction.
func (s *SQLiteStore) Put(ctx context.Context, sc stock.StoreContext, updates ...stock.StateUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO product_states(namespace, pincode, store_id, product_id, available, last_checked_at)
		 VALUES(?,?,?,?,?,?)
		 ON CONFLICT(namespace, pincode, store_id, product_id)
		 DO UPDATE SET available = excluded.available, last_checked_at = excluded.last_checked_at`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, u := range updates {
		available := 0
		if u.State.Available {
			available = 1
		}
		if _, err := stmt.ExecContext(ctx,
			s.namespace, sc.Pincode, sc.StoreID, u.ProductID,
			available, u.State.LastCheckedAt.UTC().Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("writing state for %s: %w", u.ProductID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing state: %w", err)
	}
	return nil
}

// Ping checks the database handle.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
