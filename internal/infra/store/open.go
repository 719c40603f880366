package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"stockwatch/internal/domain/stock"
)

// Backend is a StateStore that can be health-checked and closed.
type Backend interface {
	stock.StateStore
	Ping(ctx context.Context) error
	Close() error
}

// Config selects and configures a state backend.
type Config struct {
	// Driver is one of redis, sqlite, supabase, postgrest or memory.
	Driver string

	// Namespace prefixes keys (redis) or scopes rows (sqlite, supabase).
	Namespace string

	Redis RedisOptions

	SQLitePath        string
	SQLiteBusyTimeout time.Duration

	SupabaseURL        string
	SupabaseServiceKey string
}

// Open initializes the configured backend.
func Open(cfg Config) (Backend, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "redis":
		opts := cfg.Redis
		opts.KeyPrefix = cfg.Namespace
		return NewRedisStore(opts), nil
	case "sqlite", "sqlite3":
		return NewSQLiteStore(cfg.SQLitePath, cfg.Namespace, cfg.SQLiteBusyTimeout)
	case "supabase":
		return NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.Namespace)
	case "postgrest":
		headers := map[string]string{}
		if cfg.SupabaseServiceKey != "" {
			headers["Authorization"] = "Bearer " + cfg.SupabaseServiceKey
		}
		return NewPostgRESTStore(cfg.SupabaseURL, "public", headers, cfg.Namespace)
	case "memory":
		return NewMemoryStore(cfg.Namespace), nil
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}

var keyEscaper = strings.NewReplacer("%", "%25", ":", "%3A")

// contextKey builds "<prefix><pincode>:<store>". A ':' inside a pincode or
// store ID is percent-encoded so distinct contexts never share a key.
func contextKey(prefix string, sc stock.StoreContext) string {
	return prefix + keyEscaper.Replace(sc.Pincode) + ":" + keyEscaper.Replace(sc.StoreID)
}
