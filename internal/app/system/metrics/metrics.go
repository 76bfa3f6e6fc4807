// Package metrics holds the Prometheus instruments exported on /metrics.
//
// A nil *Metrics is valid and records nothing, so handlers and stores can
// be constructed in tests without a registry.
package metrics

import (
	"context"
	"net/http"
	"time"

	metricsstore "github.com/dalemusser/dormhub/internal/app/store/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"
)

const namespace = "dormhub"

// Metrics bundles the counters and gauges of the service.
type Metrics struct {
	registry *prometheus.Registry

	importRows        *prometheus.CounterVec
	transfers         *prometheus.CounterVec
	notificationsSent *prometheus.CounterVec
	liveDropped       prometheus.Counter
	liveSubscribers   prometheus.Gauge
	conflictsResolved prometheus.Counter
	jobRuns           *prometheus.CounterVec
}

// New creates the instruments on a private registry, together with the
// Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		importRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "import_rows_total",
			Help: "Worker import rows by outcome (committed, skipped).",
		}, []string{"outcome"}),
		transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "transfers_total",
			Help: "Transfer workflow transitions by resulting status.",
		}, []string{"status"}),
		notificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "notifications_sent_total",
			Help: "Notification documents written, by type.",
		}, []string{"type"}),
		liveDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "live_dropped_total",
			Help: "Live notifications dropped because a subscriber was too slow.",
		}),
		liveSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "live_subscribers",
			Help: "Currently connected live notification subscribers.",
		}),
		conflictsResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "conflicts_resolved_total",
			Help: "Duplicate worker records retired by conflict resolution.",
		}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "job_runs_total",
			Help: "Background job runs by job and result.",
		}, []string{"job", "result"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.importRows, m.transfers, m.notificationsSent,
		m.liveDropped, m.liveSubscribers, m.conflictsResolved, m.jobRuns,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry (tests gather from it).
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// WatchStore registers gauges computed from collection counts on each scrape.
func (m *Metrics) WatchStore(db *mongo.Database, timeout time.Duration) {
	if m == nil {
		return
	}
	m.registry.MustRegister(newStoreCollector(db, timeout))
}

func (m *Metrics) ImportRows(outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.importRows.WithLabelValues(outcome).Add(float64(n))
}

func (m *Metrics) Transfer(status string) {
	if m == nil {
		return
	}
	m.transfers.WithLabelValues(status).Inc()
}

func (m *Metrics) NotificationsSent(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.notificationsSent.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) LiveDropped() {
	if m == nil {
		return
	}
	m.liveDropped.Inc()
}

func (m *Metrics) LiveSubscribers(delta int) {
	if m == nil {
		return
	}
	m.liveSubscribers.Add(float64(delta))
}

func (m *Metrics) ConflictsResolved(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.conflictsResolved.Add(float64(n))
}

func (m *Metrics) JobRun(job string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.jobRuns.WithLabelValues(job, result).Inc()
}

/* -------------------------------------------------------------------------- */

type storeCollector struct {
	db      *mongo.Database
	timeout time.Duration

	farms, rooms, workers, transfers, unread *prometheus.Desc
}

func newStoreCollector(db *mongo.Database, timeout time.Duration) *storeCollector {
	d := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, nil, nil)
	}
	return &storeCollector{
		db:        db,
		timeout:   timeout,
		farms:     d("farms", "Active farms."),
		rooms:     d("rooms", "Rooms across all farms."),
		workers:   d("active_workers", "Active workers across all farms."),
		transfers: d("open_transfers", "Transfers pending or with rooms assigned."),
		unread:    d("unread_notifications", "Unread notifications across all recipients."),
	}
}

func (c *storeCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.farms
	ch <- c.rooms
	ch <- c.workers
	ch <- c.transfers
	ch <- c.unread
}

func (c *storeCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	counts := metricsstore.FetchCounts(ctx, c.db)

	ch <- prometheus.MustNewConstMetric(c.farms, prometheus.GaugeValue, float64(counts.Farms))
	ch <- prometheus.MustNewConstMetric(c.rooms, prometheus.GaugeValue, float64(counts.Rooms))
	ch <- prometheus.MustNewConstMetric(c.workers, prometheus.GaugeValue, float64(counts.ActiveWorkers))
	ch <- prometheus.MustNewConstMetric(c.transfers, prometheus.GaugeValue, float64(counts.OpenTransfers))
	ch <- prometheus.MustNewConstMetric(c.unread, prometheus.GaugeValue, float64(counts.Unread))
}
