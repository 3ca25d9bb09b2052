package route

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	requests    *prometheus.CounterVec
	validations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reqdep",
			Name:      "requests_total",
			Help:      "Handled requests by endpoint and status code.",
		}, []string{"endpoint", "code"}),
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reqdep",
			Name:      "validation_failures_total",
			Help:      "Requests rejected by schema validation.",
		}, []string{"endpoint"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "reqdep",
			Name:      "request_duration_seconds",
			Help:      "Time from dependency resolution to response.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
	m.requests = register(reg, m.requests)
	m.validations = register(reg, m.validations)
	m.duration = register(reg, m.duration)
	return m
}

// register registers c, reusing an identical collector that is already
// registered so that several routers can share one registry.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func (m *metrics) observe(endpoint string, code int, elapsed time.Duration, validationFailed bool) {
	m.requests.WithLabelValues(endpoint, strconv.Itoa(code)).Inc()
	m.duration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
	if validationFailed {
		m.validations.WithLabelValues(endpoint).Inc()
	}
}
