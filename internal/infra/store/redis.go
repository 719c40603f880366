package store

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"stockwatch/internal/domain/stock"

	"github.com/redis/go-redis/v9"
)

var _ stock.StateStore = (*RedisStore)(nil)

// RedisOptions holds connection settings for the Redis state backend.
type RedisOptions struct {
	Host     string
	Port     int
	DB       int
	Password string
	SSL      bool

	// KeyPrefix namespaces every key so several deployments can share one Redis.
	KeyPrefix string

	// StateTTL expires a store context's state when it stops being refreshed.
	// Zero keeps state forever.
	StateTTL time.Duration

	// Timeout bounds dialing, reads and writes.
	Timeout time.Duration
}

// RedisStore implements StateStore with one Redis hash per store context:
//
//	<prefix><pincode>:<store>:state  →  { <product_id>: {"available":..,"last_checked_at":..} }
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a new Redis-backed state store. It does not dial;
// call Ping to verify connectivity.
func NewRedisStore(opts RedisOptions) *RedisStore {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	ro := &redis.Options{
		Addr:         net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port)),
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		MaxRetries:   1,
	}
	if opts.SSL {
		ro.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
			ServerName: opts.Host,
		}
	}

	return &RedisStore{
		client: redis.NewClient(ro),
		prefix: opts.KeyPrefix,
		ttl:    opts.StateTTL,
	}
}

// Get returns the stored state of a product.
func (s *RedisStore) Get(ctx context.Context, sc stock.StoreContext, productID string) (stock.StoredState, bool, error) {
	raw, err := s.client.HGet(ctx, s.hashKey(sc), productID).Bytes()
	if errors.Is(err, redis.Nil) {
		return stock.StoredState{}, false, nil
	}
	if err != nil {
		return stock.StoredState{}, false, fmt.Errorf("reading state: %w", err)
	}

	var st stock.StoredState
	if err := json.Unmarshal(raw, &st); err != nil {
		return stock.StoredState{}, false, fmt.Errorf("parsing state for %s: %w", productID, err)
	}
	return st, true, nil
}

// Put writes every update in one MULTI/EXEC transaction.
func (s *RedisStore) Put(ctx context.Context, sc stock.StoreContext, updates ...stock.StateUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	fields := make(map[string]any, len(updates))
	for _, u := range updates {
		data, err := json.Marshal(u.State)
		if err != nil {
			return fmt.Errorf("marshaling state for %s: %w", u.ProductID, err)
		}
		fields[u.ProductID] = data
	}

	key := s.hashKey(sc)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fields)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing state: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) hashKey(sc stock.StoreContext) string {
	return contextKey(s.prefix, sc) + ":state"
}
