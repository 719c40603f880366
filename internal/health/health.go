// Package health implements the container health check: the state backend
// must answer a ping and the last successful snapshot fetch must be recent.
package health

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"stockwatch/internal/domain/stock"
)

var _ stock.FetchRecorder = (*Heartbeat)(nil)

// Heartbeat stores the time of the last successful fetch in a file as
// fractional Unix seconds.
type Heartbeat struct {
	path string
	now  func() time.Time
}

// NewHeartbeat creates a heartbeat backed by the file at path.
func NewHeartbeat(path string) *Heartbeat {
	return &Heartbeat{path: path, now: time.Now}
}

// RecordFetch writes the current time.
func (h *Heartbeat) RecordFetch(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dir := filepath.Dir(h.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating heartbeat directory: %w", err)
		}
	}
	ts := float64(h.now().UnixNano()) / float64(time.Second)
	tmp := h.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(strconv.FormatFloat(ts, 'f', 6, 64)), 0o644); err != nil {
		return fmt.Errorf("writing heartbeat: %w", err)
	}
	return os.Rename(tmp, h.path)
}

// Last returns the recorded time. The boolean is false when nothing has
// been recorded yet.
func (h *Heartbeat) Last() (time.Time, bool, error) {
	data, err := os.ReadFile(h.path)
	if errors.Is(err, os.ErrNotExist) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("reading heartbeat: %w", err)
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parsing heartbeat: %w", err)
	}
	return time.Unix(0, int64(secs*float64(time.Second))), true, nil
}

// Pinger is anything that can verify its backend connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Result is the outcome of one named check.
type Result struct {
	Name   string
	OK     bool
	Detail string
}

// Checker runs all health checks.
type Checker struct {
	store     Pinger
	heartbeat *Heartbeat
	maxAge    time.Duration
	timeout   time.Duration
	now       func() time.Time
}

// NewChecker creates a health checker.
func NewChecker(store Pinger, heartbeat *Heartbeat, maxAge, timeout time.Duration) *Checker {
	if maxAge <= 0 {
		maxAge = 15 * time.Minute
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Checker{
		store:     store,
		heartbeat: heartbeat,
		maxAge:    maxAge,
		timeout:   timeout,
		now:       time.Now,
	}
}

// Check runs every check. The boolean is true when all of them passed.
func (c *Checker) Check(ctx context.Context) ([]Result, bool) {
	results := []Result{c.checkStore(ctx), c.checkLastFetch()}
	healthy := true
	for _, r := range results {
		healthy = healthy && r.OK
	}
	return results, healthy
}

func (c *Checker) checkStore(ctx context.Context) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.store.Ping(ctx); err != nil {
		return Result{Name: "state_store", Detail: err.Error()}
	}
	return Result{Name: "state_store", OK: true, Detail: "reachable"}
}

func (c *Checker) checkLastFetch() Result {
	last, ok, err := c.heartbeat.Last()
	if err != nil {
		return Result{Name: "last_fetch_time", Detail: err.Error()}
	}
	// No heartbeat yet means the first run has not finished; treat as healthy.
	if !ok {
		return Result{Name: "last_fetch_time", OK: true, Detail: "no previous fetch recorded"}
	}

	age := c.now().Sub(last).Round(time.Second)
	if age > c.maxAge {
		return Result{Name: "last_fetch_time", Detail: fmt.Sprintf("last fetch was %s ago (> %s)", age, c.maxAge)}
	}
	return Result{Name: "last_fetch_time", OK: true, Detail: fmt.Sprintf("last fetch was %s ago", age)}
}
