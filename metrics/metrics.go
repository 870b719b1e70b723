// Package metrics defines the Prometheus collectors of the segmentation
// service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teatak/freqseg/dictionary"
)

const namespace = "freqseg"

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	SegmentRequests     *prometheus.CounterVec
	SegmentDuration     *prometheus.HistogramVec
	SegmentTokens       prometheus.Histogram
	DictionaryLoads     *prometheus.CounterVec
	DictionaryLoadTime  prometheus.Histogram
	DictionaryEntries   prometheus.Gauge
	DictionaryTotal     prometheus.Gauge
	CacheHitsTotal      prometheus.Counter
	CacheMissesTotal    prometheus.Counter
	HTTPRequestsTotal   *prometheus.CounterVec
	StreamMessagesTotal *prometheus.CounterVec
}

// New creates all collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SegmentRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "segment_requests_total",
				Help:      "Total segmentation calls by mode.",
			},
			[]string{"mode"},
		),
		SegmentDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "segment_duration_seconds",
				Help:      "Segmentation latency in seconds.",
				Buckets:   []float64{0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"mode"},
		),
		SegmentTokens: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "segment_tokens",
				Help:      "Number of tokens produced per segmentation call.",
				Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 500, 1000},
			},
		),
		DictionaryLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dictionary_loads_total",
				Help:      "Dictionary load attempts by status (ok, error).",
			},
			[]string{"status"},
		),
		DictionaryLoadTime: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "dictionary_load_duration_seconds",
				Help:      "Time spent building the frequency table.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
		),
		DictionaryEntries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "dictionary_entries",
				Help:      "Keys in the loaded frequency table, prefixes included.",
			},
		),
		DictionaryTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "dictionary_total",
				Help:      "Sum of all loaded word frequencies.",
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of token cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of token cache misses.",
			},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests by path and status.",
			},
			[]string{"path", "status"},
		),
		StreamMessagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stream_messages_total",
				Help:      "Kafka messages handled by the worker, by result (ok, invalid, error).",
			},
			[]string{"result"},
		),
	}

	reg.MustRegister(
		m.SegmentRequests,
		m.SegmentDuration,
		m.SegmentTokens,
		m.DictionaryLoads,
		m.DictionaryLoadTime,
		m.DictionaryEntries,
		m.DictionaryTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.HTTPRequestsTotal,
		m.StreamMessagesTotal,
	)
	return m
}

// DictionaryLoaded records a frequency table build.
func (m *Metrics) DictionaryLoaded(elapsed time.Duration, ft *dictionary.FrequencyTable, err error) {
	m.DictionaryLoadTime.Observe(elapsed.Seconds())
	if err != nil {
		m.DictionaryLoads.WithLabelValues("error").Inc()
		return
	}
	m.DictionaryLoads.WithLabelValues("ok").Inc()
	m.DictionaryEntries.Set(float64(ft.Len()))
	m.DictionaryTotal.Set(float64(ft.Total()))
}

// Segmented records one segmentation call.
func (m *Metrics) Segmented(mode string, elapsed time.Duration, tokens int) {
	m.SegmentRequests.WithLabelValues(mode).Inc()
	m.SegmentDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
	m.SegmentTokens.Observe(float64(tokens))
}

func (m *Metrics) CacheHit() {
	m.CacheHitsTotal.Inc()
}

func (m *Metrics) CacheMiss() {
	m.CacheMissesTotal.Inc()
}

// StreamMessage records a worker message outcome.
func (m *Metrics) StreamMessage(result string) {
	m.StreamMessagesTotal.WithLabelValues(result).Inc()
}

// HTTPRequest records a served request.
func (m *Metrics) HTTPRequest(path string, status int) {
	m.HTTPRequestsTotal.WithLabelValues(path, strconv.Itoa(status)).Inc()
}

// Handler returns the scrape handler for g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
