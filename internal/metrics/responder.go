package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	responderRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainrelay7000",
		Subsystem: "responder",
		Name:      "requests_total",
		Help:      "Count of inbound bus requests handled.",
	}, []string{"topic", "status"})
	responderRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "chainrelay7000",
		Subsystem: "responder",
		Name:      "request_duration_seconds",
		Help:      "Duration of inbound request handling.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"topic", "status"})
)

// Responder tracks metrics for inbound request handling.
type Responder struct{}

// NewResponder creates a Responder metrics collector.
func NewResponder() *Responder {
	return &Responder{}
}

// Observe records outcome and duration of one request.
func (m Responder) Observe(topic string, err error, started time.Time) {
	status := statusLabel(err)
	responderRequestsTotal.WithLabelValues(topic, status).Inc()
	responderRequestDuration.WithLabelValues(topic, status).Observe(time.Since(started).Seconds())
}
