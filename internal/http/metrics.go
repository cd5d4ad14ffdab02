package httpx

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var histogramBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}

type routerMetrics struct {
	requestTotal   *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	rateLimitHits  *prometheus.CounterVec
	streams        *prometheus.GaugeVec
}

func newRouterMetrics(reg prometheus.Registerer) *routerMetrics {
	m := &routerMetrics{
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "neo",
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Count of processed HTTP requests",
		}, []string{"method", "route", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "neo",
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers",
			Buckets:   histogramBuckets,
		}, []string{"method", "route", "status"}),
		rateLimitHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "neo",
			Subsystem: "api",
			Name:      "rate_limit_hits_total",
			Help:      "Number of rate-limited responses",
		}, []string{"bucket", "key"}),
		streams: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "neo",
			Subsystem: "api",
			Name:      "open_streams",
			Help:      "Open inspection streams by transport",
		}, []string{"transport"}),
	}
	if reg == nil {
		return m
	}
	collectors := []prometheus.Collector{m.requestTotal, m.requestLatency, m.rateLimitHits, m.streams}
	for _, collector := range collectors {
		err := reg.Register(collector)
		var are prometheus.AlreadyRegisteredError
		if err == nil || !errors.As(err, &are) {
			continue
		}
		switch v := are.ExistingCollector.(type) {
		case *prometheus.CounterVec:
			if collector == prometheus.Collector(m.requestTotal) {
				m.requestTotal = v
			} else if collector == prometheus.Collector(m.rateLimitHits) {
				m.rateLimitHits = v
			}
		case *prometheus.HistogramVec:
			m.requestLatency = v
		case *prometheus.GaugeVec:
			m.streams = v
		}
	}
	return m
}

func (r *Router) recordRequestMetrics(method, route string, status int, duration time.Duration) {
	if r.metrics == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"route":  route,
		"status": strconv.Itoa(status),
	}
	r.metrics.requestTotal.With(labels).Inc()
	r.metrics.requestLatency.With(labels).Observe(duration.Seconds())
}

func (r *Router) recordRateLimitHit(bucket, key string) {
	if r.metrics == nil {
		return
	}
	r.metrics.rateLimitHits.With(prometheus.Labels{"bucket": bucket, "key": key}).Inc()
}

func (r *Router) trackStream(transport string, delta float64) {
	if r.metrics == nil {
		return
	}
	r.metrics.streams.WithLabelValues(transport).Add(delta)
}
