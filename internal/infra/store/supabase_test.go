package store

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"stockwatch/internal/domain/stock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePostgREST keeps upserted rows in memory and answers filtered selects.
type fakePostgREST struct {
	mu      sync.Mutex
	rows    map[string]stateRow
	paths   []string
	headers []http.Header
	failing bool
}

func newFakePostgREST() *fakePostgREST {
	return &fakePostgREST{rows: make(map[string]stateRow)}
}

func rowKey(r stateRow) string {
	return r.Namespace + "|" + r.Pincode + "|" + r.StoreID + "|" + r.ProductID
}

func (f *fakePostgREST) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, r.URL.Path)
	f.headers = append(f.headers, r.Header.Clone())

	w.Header().Set("Content-Type", "application/json")
	if f.failing {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"code":"PGRST000","message":"database unavailable"}`))
		return
	}

	switch r.Method {
	case http.MethodPost:
		body, _ := io.ReadAll(r.Body)
		var rows []stateRow
		if err := json.Unmarshal(body, &rows); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":"PGRST102","message":"invalid body"}`))
			return
		}
		for _, row := range rows {
			f.rows[rowKey(row)] = row
		}
		w.WriteHeader(http.StatusCreated)
	case http.MethodGet, http.MethodHead:
		q := r.URL.Query()
		var out []stateRow
		for _, row := range f.rows {
			if q.Get("namespace") != "" && q.Get("namespace") != "eq."+row.Namespace {
				continue
			}
			if q.Get("pincode") != "" && q.Get("pincode") != "eq."+row.Pincode {
				continue
			}
			if q.Get("store_id") != "" && q.Get("store_id") != "eq."+row.StoreID {
				continue
			}
			if q.Get("product_id") != "" && q.Get("product_id") != "eq."+row.ProductID {
				continue
			}
			out = append(out, row)
		}
		if out == nil {
			out = []stateRow{}
		}
		_ = json.NewEncoder(w).Encode(out)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestSupabaseStore_PutThenGet(t *testing.T) {
	ctx := context.Background()
	api := newFakePostgREST()
	srv := httptest.NewServer(api)
	defer srv.Close()

	s, err := NewSupabaseStore(srv.URL, "service-key", "amul:")
	require.NoError(t, err)
	require.NoError(t, s.Ping(ctx))

	_, found, err := s.Get(ctx, delhi, "whey")
	require.NoError(t, err)
	assert.False(t, found)

	checked := time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)
	require.NoError(t, s.Put(ctx, delhi,
		stock.StateUpdate{ProductID: "whey", State: stock.StoredState{Available: true, LastCheckedAt: checked}},
		stock.StateUpdate{ProductID: "lassi", State: stock.StoredState{Available: false, LastCheckedAt: checked}},
	))

	st, found, err := s.Get(ctx, delhi, "whey")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, st.Available)
	assert.True(t, checked.Equal(st.LastCheckedAt))

	_, found, err = s.Get(ctx, stock.StoreContext{Pincode: "400001", StoreID: "mumbai"}, "whey")
	require.NoError(t, err)
	assert.False(t, found)

	api.mu.Lock()
	defer api.mu.Unlock()
	for i, path := range api.paths {
		assert.Equal(t, "/rest/v1/product_states", path)
		assert.Equal(t, "service-key", api.headers[i].Get("apikey"))
	}
}

func TestPostgRESTStore_NamespaceIsolation(t *testing.T) {
	ctx := context.Background()
	api := newFakePostgREST()
	srv := httptest.NewServer(api)
	defer srv.Close()

	a, err := NewPostgRESTStore(srv.URL, "public", nil, "amul:")
	require.NoError(t, err)
	b, err := NewPostgRESTStore(srv.URL, "public", nil, "tenant2:")
	require.NoError(t, err)

	require.NoError(t, a.Put(ctx, delhi, stock.StateUpdate{ProductID: "whey", State: stock.StoredState{Available: true}}))

	_, found, err := b.Get(ctx, delhi, "whey")
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = a.Get(ctx, delhi, "whey")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestSupabaseStore_ServerErrors(t *testing.T) {
	ctx := context.Background()
	api := newFakePostgREST()
	api.failing = true
	srv := httptest.NewServer(api)
	defer srv.Close()

	s, err := NewSupabaseStore(srv.URL, "service-key", "amul:")
	require.NoError(t, err)

	assert.Error(t, s.Ping(ctx))
	_, _, err = s.Get(ctx, delhi, "whey")
	assert.Error(t, err)
	assert.Error(t, s.Put(ctx, delhi, stock.StateUpdate{ProductID: "whey"}))
}

func TestSupabaseStore_TimedOutPutMayStillLand(t *testing.T) {
	api := newFakePostgREST()
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			<-release
		}
		api.ServeHTTP(w, r)
	}))
	defer srv.Close()
	var once sync.Once
	unblock := func() { once.Do(func() { close(release) }) }
	defer unblock()

	s, err := NewPostgRESTStore(srv.URL, "public", nil, "amul:")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = s.Put(ctx, delhi, stock.StateUpdate{ProductID: "whey", State: stock.StoredState{Available: true}})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	unblock()
	assert.Eventually(t, func() bool {
		_, found, err := s.Get(context.Background(), delhi, "whey")
		return err == nil && found
	}, time.Second, 10*time.Millisecond, "the abandoned upsert is still applied")
}

func TestSupabaseStore_RespectsContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	s, err := NewPostgRESTStore(srv.URL, "public", nil, "amul:")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err = s.Get(ctx, delhi, "whey")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
