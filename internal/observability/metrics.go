package observability

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/lintx/internal/bus"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once
	busSource    atomic.Pointer[bus.Registry]

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lintx",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lintx",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	sourceFrames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lintx",
			Subsystem: "source",
			Name:      "frames_total",
			Help:      "Frames published by an acquisition module.",
		},
		[]string{"module"},
	)
	decoderDrops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lintx",
			Subsystem: "decoder",
			Name:      "drops_total",
			Help:      "Input discarded while decoding, by reason.",
		},
		[]string{"module", "reason"},
	)
	serialErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lintx",
			Subsystem: "serial",
			Name:      "errors_total",
			Help:      "Serial read outcomes other than data, by kind.",
		},
		[]string{"module", "kind"},
	)
	moduleExits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lintx",
			Subsystem: "module",
			Name:      "exits_total",
			Help:      "Module run completions, by result.",
		},
		[]string{"module", "result"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, sourceFrames, decoderDrops, serialErrors, moduleExits, newBusCollector())
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordFrame(module string) {
	RegisterMetrics()
	sourceFrames.WithLabelValues(module).Inc()
}

// RecordDrops adds n to the drop counter; zero is a no-op.
func RecordDrops(module, reason string, n uint64) {
	if n == 0 {
		return
	}
	RegisterMetrics()
	decoderDrops.WithLabelValues(module, reason).Add(float64(n))
}

func RecordSerialError(module, kind string) {
	RegisterMetrics()
	serialErrors.WithLabelValues(module, kind).Inc()
}

func RecordModuleExit(module string, err error) {
	RegisterMetrics()
	result := "ok"
	if err != nil {
		result = "error"
	}
	moduleExits.WithLabelValues(module, result).Inc()
}

// busCollector exports topic counters straight from the current bus
// registry at scrape time.
type busCollector struct {
	published   *prometheus.Desc
	subscribers *prometheus.Desc
}

func newBusCollector() *busCollector {
	return &busCollector{
		published: prometheus.NewDesc(
			"lintx_bus_published_total",
			"Values published on a topic.",
			[]string{"topic"}, nil,
		),
		subscribers: prometheus.NewDesc(
			"lintx_bus_subscribers",
			"Cursors ever opened on a topic.",
			[]string{"topic"}, nil,
		),
	}
}

func (c *busCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.published
	ch <- c.subscribers
}

func (c *busCollector) Collect(ch chan<- prometheus.Metric) {
	reg := busSource.Load()
	if reg == nil {
		return
	}
	for _, s := range reg.Stats() {
		ch <- prometheus.MustNewConstMetric(c.published, prometheus.CounterValue, float64(s.Published), s.Name)
		ch <- prometheus.MustNewConstMetric(c.subscribers, prometheus.GaugeValue, float64(s.Subscribers), s.Name)
	}
}

// ExportBus makes reg the registry whose topics are scraped.
func ExportBus(reg *bus.Registry) {
	RegisterMetrics()
	busSource.Store(reg)
}
