package metrics

import (
	"context"
	"errors"
	"log/slog"

	"stockwatch/internal/common"
	"stockwatch/internal/domain/stock"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

var _ stock.RunObserver = (*Pusher)(nil)

// Pusher records run metrics and pushes them to a Prometheus Pushgateway.
// Runs are short-lived, so metrics are pushed rather than scraped.
type Pusher struct {
	url string
	job string

	registry *prometheus.Registry

	lastRun        *prometheus.GaugeVec // labels: result
	runDuration    prometheus.Gauge
	productsTotal  *prometheus.GaugeVec // labels: state
	notifiedTotal  prometheus.Gauge
	lastSuccessUTC prometheus.Gauge
}

// NewPusher registers the run metrics. An empty url disables pushing but the
// metrics are still recorded.
func NewPusher(url, job string) *Pusher {
	if job == "" {
		job = "stockwatch"
	}
	p := &Pusher{
		url:      url,
		job:      job,
		registry: prometheus.NewRegistry(),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stockwatch_last_run_result",
			Help: "1 for the result of the last run (ok, source_unavailable, store_unavailable, sink_failed, error)",
		}, []string{"result"}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stockwatch_last_run_duration_seconds",
			Help: "Wall time of the last run",
		}),
		productsTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stockwatch_products",
			Help: "Products seen in the last snapshot",
		}, []string{"state"}),
		notifiedTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stockwatch_last_run_notified_products",
			Help: "Products included in the last notification",
		}),
		lastSuccessUTC: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stockwatch_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run",
		}),
	}
	p.registry.MustRegister(p.lastRun, p.runDuration, p.productsTotal, p.notifiedTotal, p.lastSuccessUTC)
	return p
}

// Registry exposes the underlying registry.
func (p *Pusher) Registry() *prometheus.Registry { return p.registry }

// ObserveRun records the run and pushes the metrics. Push failures are
// logged and never fail the run.
func (p *Pusher) ObserveRun(ctx context.Context, report *stock.RunReport, err error) {
	result := Result(err)
	for _, r := range []string{"ok", "source_unavailable", "store_unavailable", "sink_failed", "error"} {
		v := 0.0
		if r == result {
			v = 1
		}
		p.lastRun.WithLabelValues(r).Set(v)
	}

	if report != nil {
		p.runDuration.Set(report.Duration.Seconds())
		p.productsTotal.WithLabelValues("available").Set(float64(report.Available))
		p.productsTotal.WithLabelValues("unavailable").Set(float64(report.Unavailable))
		p.notifiedTotal.Set(float64(len(report.Notified)))
		if err == nil {
			p.lastSuccessUTC.Set(float64(report.StartedAt.Add(report.Duration).Unix()))
		}
	}

	if p.url == "" {
		return
	}

	pusher := push.New(p.url, p.job).Gatherer(p.registry)
	if report != nil {
		pusher = pusher.
			Grouping("pincode", report.StoreContext.Pincode).
			Grouping("store", report.StoreContext.StoreID)
	}
	if perr := pusher.PushContext(ctx); perr != nil {
		slog.Warn("failed to push run metrics", "url", p.url, "error", perr)
	}
}

// Result classifies a run error into a short label.
func Result(err error) string {
	var (
		srcErr   *common.SourceUnavailableError
		storeErr *common.StoreUnavailableError
		sinkErr  *common.SinkDeliveryError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &srcErr):
		return "source_unavailable"
	case errors.As(err, &storeErr):
		return "store_unavailable"
	case errors.As(err, &sinkErr):
		return "sink_failed"
	default:
		return "error"
	}
}
