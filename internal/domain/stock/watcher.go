package stock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"stockwatch/internal/common"

	"github.com/google/uuid"
)

// WatcherConfig holds run-level settings for the watcher.
type WatcherConfig struct {
	StoreContext StoreContext

	// Recipient is the channel identifier the sink delivers to.
	Recipient string

	SourceTimeout time.Duration
	SinkTimeout   time.Duration
}

// Watcher runs one availability check end to end:
// fetch snapshot → diff against stored state → compose → render → send.
type Watcher struct {
	source   Source
	engine   *Engine
	renderer Renderer
	sink     Sink
	config   WatcherConfig

	recorder FetchRecorder
	observer RunObserver
}

// NewWatcher creates a new watcher.
func NewWatcher(source Source, engine *Engine, renderer Renderer, sink Sink, cfg WatcherConfig) *Watcher {
	if cfg.SourceTimeout <= 0 {
		cfg.SourceTimeout = 30 * time.Second
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = 10 * time.Second
	}
	return &Watcher{
		source:   source,
		engine:   engine,
		renderer: renderer,
		sink:     sink,
		config:   cfg,
	}
}

// WithFetchRecorder registers a hook called after every successful fetch.
func (w *Watcher) WithFetchRecorder(r FetchRecorder) *Watcher {
	w.recorder = r
	return w
}

// WithObserver registers a hook that receives every finished run.
func (w *Watcher) WithObserver(o RunObserver) *Watcher {
	w.observer = o
	return w
}

// Run performs a single check. The returned report is non-nil even on
// failure so callers can log what was done before the error.
func (w *Watcher) Run(ctx context.Context, opts RunOptions) (*RunReport, error) {
	report := &RunReport{
		RunID:        uuid.NewString(),
		StoreContext: w.config.StoreContext,
		Forced:       opts.Force,
		StartedAt:    time.Now(),
	}

	err := w.run(ctx, opts, report)
	report.Duration = time.Since(report.StartedAt)

	if w.observer != nil {
		w.observer.ObserveRun(ctx, report, err)
	}
	return report, err
}

func (w *Watcher) run(ctx context.Context, opts RunOptions, report *RunReport) error {
	sc := w.config.StoreContext
	log := slog.With("run_id", report.RunID, "pincode", sc.Pincode, "store", sc.StoreID)

	snapshot, err := w.fetch(ctx)
	if err != nil {
		return err
	}

	// Counts follow the engine's view of the snapshot, one entry per product.
	distinct := dedupe(snapshot)
	report.Checked = len(distinct)
	for _, p := range distinct {
		if p.Available {
			report.Available++
		} else {
			report.Unavailable++
		}
	}
	log.Info("snapshot fetched",
		"source", w.source.Name(),
		"products", report.Checked,
		"available", report.Available,
		"unavailable", report.Unavailable,
	)

	if w.recorder != nil {
		if err := w.recorder.RecordFetch(ctx); err != nil {
			log.Warn("failed to record fetch heartbeat", "error", err)
		}
	}

	fresh, err := w.engine.Apply(ctx, sc, snapshot, opts.Force)
	if err != nil {
		return fmt.Errorf("applying snapshot: %w", err)
	}
	report.Notified = fresh

	if len(fresh) == 0 {
		log.Info("no newly available products to notify about")
		return nil
	}

	payload, err := Compose(sc, fresh, opts.Force)
	if err != nil {
		return fmt.Errorf("composing notification: %w", err)
	}

	subject, html, text, err := w.renderer.Render(payload)
	if err != nil {
		return fmt.Errorf("rendering notification: %w", err)
	}

	msg := &Message{
		To:      w.config.Recipient,
		Subject: subject,
		HTML:    html,
		Text:    text,
	}

	sendCtx, cancel := context.WithTimeout(ctx, w.config.SinkTimeout)
	defer cancel()

	start := time.Now()
	messageID, err := w.sink.Send(sendCtx, msg)
	if err != nil {
		log.Error("notification delivery failed",
			"sink", w.sink.Name(),
			"products", len(fresh),
			"error", err,
			"duration", time.Since(start),
		)
		return common.NewSinkDeliveryError(w.sink.Name(), err)
	}
	report.MessageID = messageID

	log.Info("notification sent",
		"sink", w.sink.Name(),
		"products", len(fresh),
		"message_id", messageID,
		"duration", time.Since(start),
	)
	return nil
}

func (w *Watcher) fetch(ctx context.Context) ([]ProductStatus, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, w.config.SourceTimeout)
	defer cancel()

	snapshot, err := w.source.Fetch(fetchCtx, w.config.StoreContext)
	if err != nil {
		var srcErr *common.SourceUnavailableError
		if errors.As(err, &srcErr) {
			return nil, err
		}
		return nil, common.NewSourceUnavailableError(w.source.Name(), err)
	}
	if len(snapshot) == 0 {
		return nil, common.NewSourceUnavailableError(w.source.Name(), errors.New("snapshot is empty"))
	}
	return snapshot, nil
}
