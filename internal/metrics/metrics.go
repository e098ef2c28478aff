package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "opsconsole"

// Metrics holds the application's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	noticeResolutions *prometheus.CounterVec
	periodsSkipped    prometheus.Counter
	autoDisabled      prometheus.Counter
	gridBuilds        *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		noticeResolutions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notice_resolutions_total",
			Help:      "Notice resolutions by resulting state (active, upcoming, none).",
		}, []string{"state"}),
		periodsSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "day_off_periods_skipped_total",
			Help:      "Malformed day off periods skipped during notice resolution.",
		}),
		autoDisabled: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "day_off_banners_auto_disabled_total",
			Help:      "Banners switched off by the expiry sweep.",
		}),
		gridBuilds: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calendar_grid_builds_total",
			Help:      "Calendar grids built by view.",
		}, []string{"view"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

func (m *Metrics) NoticeResolved(state string) {
	if m == nil {
		return
	}
	m.noticeResolutions.WithLabelValues(state).Inc()
}

func (m *Metrics) PeriodSkipped() {
	if m == nil {
		return
	}
	m.periodsSkipped.Inc()
}

func (m *Metrics) AutoDisabled() {
	if m == nil {
		return
	}
	m.autoDisabled.Inc()
}

func (m *Metrics) GridBuilt(view string) {
	if m == nil {
		return
	}
	m.gridBuilds.WithLabelValues(view).Inc()
}

func (m *Metrics) ObserveHTTP(method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// TrackClients exposes count as the number of connected websocket clients.
func (m *Metrics) TrackClients(count func() int) {
	if m == nil {
		return
	}
	promauto.With(m.registry).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "websocket_clients",
		Help:      "Connected websocket clients.",
	}, func() float64 { return float64(count()) })
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
