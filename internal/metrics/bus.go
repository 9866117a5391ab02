package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	busPublishesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainrelay7000",
		Subsystem: "bus",
		Name:      "publishes_total",
		Help:      "Count of outbound bus messages by outcome.",
	}, []string{"topic", "status"})
	busDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainrelay7000",
		Subsystem: "bus",
		Name:      "deliveries_total",
		Help:      "Count of inbound bus messages by outcome.",
	}, []string{"topic", "status"})
)

// Bus tracks transport-level publish and delivery outcomes.
type Bus struct{}

// NewBus creates a Bus metrics collector.
func NewBus() *Bus {
	return &Bus{}
}

// ObservePublish records one outbound message outcome.
func (m Bus) ObservePublish(topic string, dropped bool, err error) {
	status := statusLabel(err)
	if dropped {
		status = "dropped"
	}
	busPublishesTotal.WithLabelValues(shortTopic(topic), status).Inc()
}

// ObserveDeliver records one inbound message outcome.
func (m Bus) ObserveDeliver(topic string, malformed bool) {
	status := "success"
	if malformed {
		status = "malformed"
	}
	busDeliveriesTotal.WithLabelValues(shortTopic(topic), status).Inc()
}

// shortTopic collapses shard and reply topics so label cardinality stays
// bounded.
func shortTopic(topic string) string {
	switch {
	case topic == "":
		return "unknown"
	case len(topic) > 6 && topic[:6] == "filter":
		return "filter"
	case len(topic) > 5 && topic[:5] == "reply":
		return "reply"
	default:
		return topic
	}
}
