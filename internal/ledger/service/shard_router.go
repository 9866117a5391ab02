package service

import (
	"sync"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/chainrelay7000-backend/internal/bus"
)

// FilterRouter fans messages out to shard topics keyed by hash or address
// suffix. Producers are created on first use and cached for the session
// lifetime; the keyspace is small enough that nothing is ever evicted.
type FilterRouter struct {
	session bus.Session
	logger  *zap.Logger
	metrics GatewayMetrics

	mu        sync.Mutex
	producers map[string]bus.Producer
}

// NewFilterRouter builds a router on top of a bus session.
func NewFilterRouter(session bus.Session, logger *zap.Logger, metrics GatewayMetrics) *FilterRouter {
	return &FilterRouter{
		session:   session,
		logger:    logger,
		metrics:   metrics,
		producers: make(map[string]bus.Producer),
	}
}

// RouteByHash publishes the payload on the shard topic of a transaction
// hash. Delivery is best effort: failures are logged and dropped.
func (r *FilterRouter) RouteByHash(hash string, payload []byte) {
	if hash == "" {
		return
	}
	r.route("hash", ShardKeyForHash(hash), payload)
}

// RouteByAddress publishes the payload on the shard topic of an address.
// An empty address is a no-op.
func (r *FilterRouter) RouteByAddress(address string, payload []byte) {
	if address == "" {
		return
	}
	r.route("address", ShardKeyForAddress(address), payload)
}

func (r *FilterRouter) route(kind, key string, payload []byte) {
	p, err := r.producer(key)
	if err != nil {
		r.logger.Error("create shard producer",
			zap.String("kind", kind),
			zap.String("key", key),
			zap.Error(err))
		r.metrics.ObserveRoute(kind, err)
		return
	}

	err = p.Publish(payload)
	if err != nil {
		r.logger.Error("publish to shard",
			zap.String("kind", kind),
			zap.String("key", key),
			zap.Error(err))
	}
	r.metrics.ObserveRoute(kind, err)
}

func (r *FilterRouter) producer(key string) (bus.Producer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.producers[key]; ok {
		return p, nil
	}
	p, err := r.session.Producer(filterTopicPrefix + key)
	if err != nil {
		return nil, err
	}
	r.producers[key] = p
	return p, nil
}
