package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wabridge/wabridge/internal/bus"
	"github.com/wabridge/wabridge/internal/status"
)

// metrics holds the server's Prometheus collectors on a private registry,
// so each Server instance exposes its own counters.
type metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newMetrics(machine *status.Machine, b *bus.Bus) *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wabridge_http_requests_total",
			Help: "HTTP requests served, by route and status code.",
		}, []string{"route", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wabridge_http_request_duration_seconds",
			Help:    "HTTP request latency, by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	ready := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "wabridge_session_ready",
		Help: "1 when the session is ready to serve data, 0 otherwise.",
	}, func() float64 {
		if machine.Current() == status.Ready {
			return 1
		}
		return 0
	})

	dropped := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "wabridge_bus_dropped_events_total",
		Help: "Events dropped because a subscriber buffer was full.",
	}, func() float64 {
		return float64(b.Dropped())
	})

	m.registry.MustRegister(m.requests, m.duration, ready, dropped)
	return m
}

func (m *metrics) observe(route string, code int, elapsed time.Duration) {
	m.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.duration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (m *metrics) httpHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
