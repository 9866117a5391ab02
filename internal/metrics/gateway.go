// Package metrics defines the prometheus collectors for the relay.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	gatewayEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainrelay7000",
		Subsystem: "gateway",
		Name:      "events_total",
		Help:      "Count of domain events dispatched to the bus.",
	}, []string{"event", "status"})
	gatewayEventDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "chainrelay7000",
		Subsystem: "gateway",
		Name:      "event_duration_seconds",
		Help:      "Duration of event encode and publish.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"event", "status"})
	gatewayShardRoutesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainrelay7000",
		Subsystem: "gateway",
		Name:      "shard_routes_total",
		Help:      "Count of shard fan-out publishes.",
	}, []string{"kind", "status"})
)

// Gateway tracks metrics for event dispatch and shard routing.
type Gateway struct{}

// NewGateway creates a Gateway metrics collector.
func NewGateway() *Gateway {
	return &Gateway{}
}

// ObserveEvent records outcome and duration of one event dispatch.
func (m Gateway) ObserveEvent(event string, err error, started time.Time) {
	status := statusLabel(err)
	gatewayEventsTotal.WithLabelValues(event, status).Inc()
	gatewayEventDuration.WithLabelValues(event, status).Observe(time.Since(started).Seconds())
}

// ObserveRoute records one shard publish outcome.
func (m Gateway) ObserveRoute(kind string, err error) {
	gatewayShardRoutesTotal.WithLabelValues(kind, statusLabel(err)).Inc()
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
