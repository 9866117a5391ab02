package service

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/chainrelay7000-backend/internal/bus"
	"github.com/goodnatureofminers/chainrelay7000-backend/internal/ledger/model"
	"github.com/goodnatureofminers/chainrelay7000-backend/internal/ledger/wire"
)

// Gateway republishes domain events on the bus: every event goes out on its
// broadcast topic, transactions additionally fan out to address and hash
// shard topics. Dispatch is safe to call concurrently from independent
// engine threads and never propagates a failure back to the caller.
type Gateway struct {
	router  *FilterRouter
	logger  *zap.Logger
	metrics GatewayMetrics

	transactionProducer bus.Producer
	trunkProducer       bus.Producer
	templateProducer    bus.Producer
}

// NewGateway creates the broadcast producers up front so a broken bus
// surfaces at startup instead of on the first event.
func NewGateway(session bus.Session, router *FilterRouter, logger *zap.Logger, metrics GatewayMetrics) (*Gateway, error) {
	g := &Gateway{
		router:  router,
		logger:  logger,
		metrics: metrics,
	}

	var err error
	if g.transactionProducer, err = session.Producer(TopicTransaction); err != nil {
		return nil, fmt.Errorf("create producer %s: %w", TopicTransaction, err)
	}
	if g.trunkProducer, err = session.Producer(TopicTrunk); err != nil {
		return nil, fmt.Errorf("create producer %s: %w", TopicTrunk, err)
	}
	if g.templateProducer, err = session.Producer(TopicTemplate); err != nil {
		return nil, fmt.Errorf("create producer %s: %w", TopicTemplate, err)
	}
	return g, nil
}

// OnTransaction republishes a newly validated transaction.
func (g *Gateway) OnTransaction(tx *model.Transaction) {
	g.Dispatch(Event{Kind: EventTransaction, Tx: tx})
}

// OnTemplate republishes a rebuilt mining template.
func (g *Gateway) OnTemplate(template *model.Block) {
	g.Dispatch(Event{Kind: EventTemplate, Template: template})
}

// OnTrunkUpdate republishes one chain reorganization step.
func (g *Gateway) OnTrunkUpdate(removed, added []*model.Block) {
	g.Dispatch(Event{Kind: EventTrunk, Removed: removed, Added: added})
}

// Dispatch publishes one tagged event. Failures are logged and contained
// here so a broken subscriber bus never destabilizes the engine path that
// raised the event.
func (g *Gateway) Dispatch(ev Event) {
	started := time.Now()
	var err error
	switch ev.Kind {
	case EventTransaction:
		err = g.publishTransaction(ev.Tx)
	case EventTemplate:
		err = g.publishTemplate(ev.Template)
	case EventTrunk:
		err = g.publishTrunkUpdate(ev.Removed, ev.Added)
	default:
		err = fmt.Errorf("unknown event kind %d", ev.Kind)
	}
	g.metrics.ObserveEvent(ev.Kind.String(), err, started)
	if err != nil {
		g.logger.Error("publish event failed",
			zap.Stringer("event", ev.Kind),
			zap.Error(err))
	}
}

// publishTransaction broadcasts first, then fans out to one shard per
// distinct owner-address suffix and one per distinct spent-output hash
// suffix.
func (g *Gateway) publishTransaction(tx *model.Transaction) error {
	payload, err := wire.EncodeTransaction(tx)
	if err != nil {
		return err
	}
	if err := g.transactionProducer.Publish(payload); err != nil {
		return err
	}

	seenAddr := make(map[string]struct{})
	for _, out := range tx.Outputs {
		for _, addr := range out.Addresses {
			if addr == "" {
				continue
			}
			key := ShardKeyForAddress(addr)
			if _, ok := seenAddr[key]; ok {
				continue
			}
			seenAddr[key] = struct{}{}
			g.router.RouteByAddress(addr, payload)
		}
	}

	seenHash := make(map[string]struct{})
	for _, in := range tx.Inputs {
		if in.SourceHash == "" {
			continue
		}
		key := ShardKeyForHash(in.SourceHash)
		if _, ok := seenHash[key]; ok {
			continue
		}
		seenHash[key] = struct{}{}
		g.router.RouteByHash(in.SourceHash, payload)
	}
	return nil
}

func (g *Gateway) publishTemplate(template *model.Block) error {
	payload, err := wire.EncodeBlock(template)
	if err != nil {
		return err
	}
	return g.templateProducer.Publish(payload)
}

func (g *Gateway) publishTrunkUpdate(removed, added []*model.Block) error {
	payload, err := wire.EncodeTrunkUpdate(&model.TrunkUpdate{Removed: removed, Added: added})
	if err != nil {
		return err
	}
	return g.trunkProducer.Publish(payload)
}
