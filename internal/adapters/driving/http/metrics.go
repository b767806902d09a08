package httpx

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/thomassicaud/teams-portal/internal/core/domain"
)

var (
	histogramBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 180, 300}
)

func (r *Router) initMetrics() {
	r.metricsOnce.Do(func() {
		r.requestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "teams_portal",
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Count of processed HTTP requests",
		}, []string{"method", "route", "status"})

		r.requestLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "teams_portal",
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers",
			Buckets:   histogramBuckets,
		}, []string{"method", "route", "status"})

		r.rateLimitHits = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "teams_portal",
			Subsystem: "api",
			Name:      "rate_limit_hits_total",
			Help:      "Number of rate-limited responses",
		}, []string{"route", "key"})

		r.provisionEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "teams_portal",
			Subsystem: "provisioning",
			Name:      "events_total",
			Help:      "Progress events emitted by provisioning runs",
		}, []string{"type"})

		r.provisionRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "teams_portal",
			Subsystem: "provisioning",
			Name:      "runs_total",
			Help:      "Provisioning runs by outcome",
		}, []string{"operation", "outcome"})

		collectors := []prometheus.Collector{
			r.requestTotal, r.requestLatency, r.rateLimitHits, r.provisionEvents, r.provisionRuns,
		}
		for _, collector := range collectors {
			if err := r.registerer.Register(collector); err != nil {
				if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
					switch v := are.ExistingCollector.(type) {
					case *prometheus.CounterVec:
						switch collector {
						case r.requestTotal:
							r.requestTotal = v
						case r.rateLimitHits:
							r.rateLimitHits = v
						case r.provisionEvents:
							r.provisionEvents = v
						case r.provisionRuns:
							r.provisionRuns = v
						}
					case *prometheus.HistogramVec:
						r.requestLatency = v
					}
				}
			}
		}
		r.metricsInitialized = true
	})
}

func (r *Router) recordRequestMetrics(method, route string, status int, duration time.Duration) {
	if !r.metricsInitialized {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"route":  route,
		"status": strconv.Itoa(status),
	}
	r.requestTotal.With(labels).Inc()
	r.requestLatency.With(labels).Observe(duration.Seconds())
}

func (r *Router) recordRateLimitHit(route, key string) {
	if !r.metricsInitialized {
		return
	}
	r.rateLimitHits.With(prometheus.Labels{"route": route, "key": key}).Inc()
}

func (r *Router) recordEvent(ev domain.Event) {
	if !r.metricsInitialized {
		return
	}
	r.provisionEvents.With(prometheus.Labels{"type": string(ev.Type)}).Inc()
}

func (r *Router) recordRun(operation string, err error) {
	if !r.metricsInitialized {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = string(domain.KindOf(err))
	}
	r.provisionRuns.With(prometheus.Labels{"operation": operation, "outcome": outcome}).Inc()
}
