package stock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"stockwatch/internal/common"
)

// Engine compares snapshots against the state store and decides which
// products became available since the previous run.
// It is the only writer of StoredState.
type Engine struct {
	store   StateStore
	timeout time.Duration
	now     func() time.Time
}

// NewEngine creates a diff engine. A non-positive timeout falls back to 3s.
func NewEngine(store StateStore, timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Engine{
		store:   store,
		timeout: timeout,
		now:     time.Now,
	}
}

// Apply classifies the snapshot, persists the new state of every product
// and returns the newly available products in snapshot order.
//
// Either every product of the snapshot is persisted or nothing is: all
// reads happen before the single atomic write, and any store failure aborts
// with a StoreUnavailableError.
func (e *Engine) Apply(ctx context.Context, sc StoreContext, snapshot []ProductStatus, force bool) ([]ProductStatus, error) {
	products, err := normalize(sc, snapshot)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, nil
	}

	priors, err := e.readPriors(ctx, sc, products)
	if err != nil {
		return nil, err
	}

	checkedAt := e.now().UTC()
	updates := make([]StateUpdate, 0, len(products))
	var fresh []ProductStatus

	for i, p := range products {
		if p.Available && (force || !priors[i].found || !priors[i].state.Available) {
			fresh = append(fresh, p)
		}
		updates = append(updates, StateUpdate{
			ProductID: p.ProductID,
			State:     StoredState{Available: p.Available, LastCheckedAt: checkedAt},
		})
	}

	putCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	if err := e.store.Put(putCtx, sc, updates...); err != nil {
		return nil, common.NewStoreUnavailableError("put", err)
	}

	slog.Info("state updated",
		"pincode", sc.Pincode,
		"store", sc.StoreID,
		"products", len(products),
		"newly_available", len(fresh),
		"forced", force,
	)

	return fresh, nil
}

type prior struct {
	state StoredState
	found bool
}

func (e *Engine) readPriors(ctx context.Context, sc StoreContext, products []ProductStatus) ([]prior, error) {
	getCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	priors := make([]prior, len(products))
	for i, p := range products {
		state, found, err := e.store.Get(getCtx, sc, p.ProductID)
		if err != nil {
			return nil, common.NewStoreUnavailableError("get", fmt.Errorf("product %s: %w", p.ProductID, err))
		}
		priors[i] = prior{state: state, found: found}
	}
	return priors, nil
}

// normalize validates the snapshot against the run context and drops
// duplicate product IDs.
func normalize(sc StoreContext, snapshot []ProductStatus) ([]ProductStatus, error) {
	for i, p := range snapshot {
		if p.ProductID == "" {
			return nil, common.NewValidationError(fmt.Sprintf("snapshot entry %d has no product id", i))
		}
		if !p.StoreContext.IsZero() && p.StoreContext != sc {
			return nil, common.NewValidationError(fmt.Sprintf(
				"product %s belongs to store context %s, run is for %s", p.ProductID, p.StoreContext, sc))
		}
	}

	out := dedupe(snapshot)
	for i := range out {
		out[i].StoreContext = sc
	}
	return out, nil
}

// dedupe keeps one entry per product ID. The last occurrence wins, both its
// value and its position.
func dedupe(snapshot []ProductStatus) []ProductStatus {
	last := make(map[string]int, len(snapshot))
	for i, p := range snapshot {
		last[p.ProductID] = i
	}
	out := make([]ProductStatus, 0, len(last))
	for i, p := range snapshot {
		if last[p.ProductID] == i {
			out = append(out, p)
		}
	}
	return out
}
