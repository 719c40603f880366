package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stockwatch/internal/domain/stock"

	"github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"
)

const stateTable = "product_states"

var _ stock.StateStore = (*SupabaseStore)(nil)

// restClient is satisfied by both *supa.Client and *postgrest.Client.
type restClient interface {
	From(table string) *postgrest.QueryBuilder
}

// SupabaseStore implements StateStore on a Supabase (PostgREST) table with a
// unique key on (namespace, pincode, store_id, product_id).
type SupabaseStore struct {
	client    restClient
	namespace string
}

// NewSupabaseStore creates a new Supabase-backed state store.
func NewSupabaseStore(supabaseURL, serviceKey, namespace string) (*SupabaseStore, error) {
	client, err := supa.NewClient(supabaseURL, serviceKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating supabase client: %w", err)
	}
	return &SupabaseStore{client: client, namespace: namespace}, nil
}

// NewPostgRESTStore creates a state store talking to a bare PostgREST server
// (self-hosted, without the Supabase gateway).
func NewPostgRESTStore(restURL, schema string, headers map[string]string, namespace string) (*SupabaseStore, error) {
	client := postgrest.NewClient(restURL, schema, headers)
	if client.ClientError != nil {
		return nil, fmt.Errorf("creating postgrest client: %w", client.ClientError)
	}
	return &SupabaseStore{client: client, namespace: namespace}, nil
}

// stateRow is the PostgREST representation of one product state.
type stateRow struct {
	Namespace     string `json:"namespace"`
	Pincode       string `json:"pincode"`
	StoreID       string `json:"store_id"`
	ProductID     string `json:"product_id"`
	Available     bool   `json:"available"`
	LastCheckedAt string `json:"last_checked_at"`
}

// Get returns the stored state of a product.
func (s *SupabaseStore) Get(ctx context.Context, sc stock.StoreContext, productID string) (stock.StoredState, bool, error) {
	var rows []stateRow
	err := withContext(ctx, func() error {
		data, _, err := s.client.From(stateTable).
			Select("available,last_checked_at", "", false).
			Eq("namespace", s.namespace).
			Eq("pincode", sc.Pincode).
			Eq("store_id", sc.StoreID).
			Eq("product_id", productID).
			Execute()
		if err != nil {
			return fmt.Errorf("fetching product state: %w", err)
		}
		if err := json.Unmarshal(data, &rows); err != nil {
			return fmt.Errorf("parsing product state: %w", err)
		}
		return nil
	})
	if err != nil {
		return stock.StoredState{}, false, err
	}
	if len(rows) == 0 {
		return stock.StoredState{}, false, nil
	}

	st := stock.StoredState{Available: rows[0].Available}
	if t, err := time.Parse(time.RFC3339Nano, rows[0].LastCheckedAt); err == nil {
		st.LastCheckedAt = t
	}
	return st, true, nil
}

// Put upserts every update in a single bulk request, which PostgREST runs
// as one statement. When ctx expires first the error is returned but the
// request is not aborted, so the upsert may still be applied afterwards.
func (s *SupabaseStore) Put(ctx context.Context, sc stock.StoreContext, updates ...stock.StateUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	rows := make([]stateRow, 0, len(updates))
	for _, u := range updates {
		rows = append(rows, stateRow{
			Namespace:     s.namespace,
			Pincode:       sc.Pincode,
			StoreID:       sc.StoreID,
			ProductID:     u.ProductID,
			Available:     u.State.Available,
			LastCheckedAt: u.State.LastCheckedAt.UTC().Format(time.RFC3339Nano),
		})
	}

	return withContext(ctx, func() error {
		_, _, err := s.client.From(stateTable).
			Upsert(rows, "namespace,pincode,store_id,product_id", "minimal", "").
			Execute()
		if err != nil {
			return fmt.Errorf("upserting product states: %w", err)
		}
		return nil
	})
}

// Ping issues a cheap HEAD count against the state table.
func (s *SupabaseStore) Ping(ctx context.Context) error {
	return withContext(ctx, func() error {
		_, _, err := s.client.From(stateTable).Select("product_id", "exact", true).Limit(1, "").Execute()
		return err
	})
}

// Close is a no-op; the client holds no persistent connection.
func (s *SupabaseStore) Close() error { return nil }

// withContext runs fn and gives up when ctx is done. The PostgREST client
// has no context support, so an abandoned call may still finish in the
// background and, for writes, still mutate the table.
func withContext(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
