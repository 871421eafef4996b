package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors shared by the loader and the HTTP layer.
type Metrics struct {
	LoadsTotal      *prometheus.CounterVec
	LoadDuration    prometheus.Histogram
	DatasetRows     prometheus.Gauge
	RejectedRows    prometheus.Gauge
	CacheRequests   *prometheus.CounterVec
	RequestCounter  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
// Pass prometheus.DefaultRegisterer in main and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zepto_dataset_loads_total",
				Help: "Dataset loads from the source table by result",
			},
			[]string{"result"},
		),
		LoadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "zepto_dataset_load_duration_seconds",
				Help:    "Duration of dataset loads including connect and query",
				Buckets: prometheus.DefBuckets,
			},
		),
		DatasetRows: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "zepto_dataset_rows",
				Help: "Records in the cached dataset",
			},
		),
		RejectedRows: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "zepto_dataset_rejected_rows",
				Help: "Source rows rejected while normalizing the cached dataset",
			},
		),
		CacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zepto_dataset_cache_requests_total",
				Help: "Dataset cache lookups by result",
			},
			[]string{"result"},
		),
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zepto_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "zepto_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	reg.MustRegister(
		m.LoadsTotal,
		m.LoadDuration,
		m.DatasetRows,
		m.RejectedRows,
		m.CacheRequests,
		m.RequestCounter,
		m.RequestDuration,
	)
	return m
}

// ObserveLoad records the outcome of one load.
func (m *Metrics) ObserveLoad(result string, took time.Duration) {
	if m == nil {
		return
	}
	m.LoadsTotal.WithLabelValues(result).Inc()
	m.LoadDuration.Observe(took.Seconds())
}

// SetDataset publishes the size of the cached dataset.
func (m *Metrics) SetDataset(rows, rejected int) {
	if m == nil {
		return
	}
	m.DatasetRows.Set(float64(rows))
	m.RejectedRows.Set(float64(rejected))
}

func (m *Metrics) CacheHit() {
	if m != nil {
		m.CacheRequests.WithLabelValues("hit").Inc()
	}
}

func (m *Metrics) CacheMiss() {
	if m != nil {
		m.CacheRequests.WithLabelValues("miss").Inc()
	}
}
