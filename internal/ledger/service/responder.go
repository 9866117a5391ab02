package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/ratelimit"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/chainrelay7000-backend/internal/bus"
	"github.com/goodnatureofminers/chainrelay7000-backend/internal/ledger/chain"
	"github.com/goodnatureofminers/chainrelay7000-backend/internal/ledger/model"
	"github.com/goodnatureofminers/chainrelay7000-backend/internal/ledger/wire"
)

// Responder serves the inbound request topics. Each request is decoded,
// executed against one consistent snapshot and answered on the
// caller-supplied reply topic. A lookup miss gets an explicit empty reply; a
// malformed request gets no reply at all.
type Responder struct {
	store     chain.Store
	engine    chain.Engine
	session   bus.Session
	statement StatementBuilder
	logger    *zap.Logger
	metrics   ResponderMetrics

	// accountRL throttles statement reconstruction, the one scan whose
	// cost is driven by the caller.
	accountRL ratelimit.Limiter
}

// ResponderConfig tunes the responder.
type ResponderConfig struct {
	// AccountRequestRPS bounds statement reconstructions per second.
	// Zero disables the throttle.
	AccountRequestRPS int
}

// NewResponder builds a Responder.
func NewResponder(
	store chain.Store,
	engine chain.Engine,
	session bus.Session,
	statement StatementBuilder,
	cfg ResponderConfig,
	logger *zap.Logger,
	metrics ResponderMetrics,
) *Responder {
	rl := ratelimit.NewUnlimited()
	if cfg.AccountRequestRPS > 0 {
		rl = ratelimit.New(cfg.AccountRequestRPS)
	}
	return &Responder{
		store:     store,
		engine:    engine,
		session:   session,
		statement: statement,
		logger:    logger,
		metrics:   metrics,
		accountRL: rl,
	}
}

// Register subscribes every inbound topic on the session. Handlers run until
// the session closes; ctx bounds the store and engine calls they make.
func (r *Responder) Register(ctx context.Context) error {
	topics := map[string]bus.Handler{
		TopicNewTransaction:     func(d bus.Delivery) { r.handleNewTransaction(ctx, d) },
		TopicNewBlock:           func(d bus.Delivery) { r.handleNewBlock(ctx, d) },
		TopicBlockRequest:       func(d bus.Delivery) { r.handleBlockRequest(ctx, d) },
		TopicTransactionRequest: func(d bus.Delivery) { r.handleTransactionRequest(ctx, d) },
		TopicAccountRequest:     func(d bus.Delivery) { r.handleAccountRequest(ctx, d) },
	}
	for topic, h := range topics {
		if err := r.session.Subscribe(topic, h); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}
	return nil
}

// handleNewTransaction hands a submitted transaction to the engine. The
// submitter gets no rejection notice on this channel; failures are only
// logged.
func (r *Responder) handleNewTransaction(ctx context.Context, d bus.Delivery) {
	started := time.Now()
	tx, err := wire.DecodeTransaction(d.Payload)
	if err != nil {
		r.metrics.Observe(TopicNewTransaction, err, started)
		r.logger.Debug("rejected invalid transaction", zap.Error(err))
		return
	}

	err = r.engine.SubmitTransaction(ctx, tx)
	r.metrics.Observe(TopicNewTransaction, err, started)
	if err != nil {
		r.logger.Debug("engine rejected transaction",
			zap.String("hash", tx.Hash),
			zap.Error(err))
	}
}

// handleNewBlock hands a submitted block to the engine.
func (r *Responder) handleNewBlock(ctx context.Context, d bus.Delivery) {
	started := time.Now()
	b, err := wire.DecodeBlock(d.Payload)
	if err != nil {
		r.metrics.Observe(TopicNewBlock, err, started)
		r.logger.Debug("rejected invalid block", zap.Error(err))
		return
	}

	err = r.engine.SubmitBlock(ctx, b)
	r.metrics.Observe(TopicNewBlock, err, started)
	if err != nil {
		r.logger.Debug("engine rejected block",
			zap.String("hash", b.Hash()),
			zap.Error(err))
	}
}

func (r *Responder) handleBlockRequest(ctx context.Context, d bus.Delivery) {
	started := time.Now()
	hash, err := wire.DecodeHash(d.Payload)
	if err != nil {
		r.metrics.Observe(TopicBlockRequest, err, started)
		r.logger.Debug("rejected invalid block request", zap.Error(err))
		return
	}

	err = r.withSnapshot(ctx, func(snap chain.Snapshot) error {
		b, lookupErr := snap.BlockByHash(ctx, hash)
		if lookupErr != nil {
			return lookupErr
		}
		if b == nil {
			r.reply(d, nil)
			return nil
		}
		payload, encErr := wire.EncodeBlock(b)
		if encErr != nil {
			return encErr
		}
		r.reply(d, payload)
		return nil
	})
	r.metrics.Observe(TopicBlockRequest, err, started)
	if err != nil {
		r.logger.Warn("block request failed", zap.String("hash", hash), zap.Error(err))
		r.reply(d, nil)
	}
}

// handleTransactionRequest checks the engine's pending pool before the
// persisted snapshot so unconfirmed transactions are already queryable.
func (r *Responder) handleTransactionRequest(ctx context.Context, d bus.Delivery) {
	started := time.Now()
	hash, err := wire.DecodeHash(d.Payload)
	if err != nil {
		r.metrics.Observe(TopicTransactionRequest, err, started)
		r.logger.Debug("rejected invalid transaction request", zap.Error(err))
		return
	}

	err = func() error {
		tx, lookupErr := r.engine.PendingTransaction(ctx, hash)
		if lookupErr != nil {
			return lookupErr
		}
		if tx == nil {
			snapErr := r.withSnapshot(ctx, func(snap chain.Snapshot) error {
				var storeErr error
				tx, storeErr = snap.TransactionByHash(ctx, hash)
				return storeErr
			})
			if snapErr != nil {
				return snapErr
			}
		}
		if tx == nil {
			r.reply(d, nil)
			return nil
		}
		payload, encErr := wire.EncodeTransaction(tx)
		if encErr != nil {
			return encErr
		}
		r.reply(d, payload)
		return nil
	}()
	r.metrics.Observe(TopicTransactionRequest, err, started)
	if err != nil {
		r.logger.Warn("transaction request failed", zap.String("hash", hash), zap.Error(err))
		r.reply(d, nil)
	}
}

func (r *Responder) handleAccountRequest(ctx context.Context, d bus.Delivery) {
	started := time.Now()
	req, err := wire.DecodeAccountRequest(d.Payload)
	if err != nil {
		r.metrics.Observe(TopicAccountRequest, err, started)
		r.logger.Debug("rejected invalid account request", zap.Error(err))
		return
	}

	r.accountRL.Take()

	var statement *model.AccountStatement
	err = r.withSnapshot(ctx, func(snap chain.Snapshot) error {
		var stErr error
		statement, stErr = r.statement.Statement(ctx, snap, req.Addresses, req.From)
		return stErr
	})
	if err == nil {
		var payload []byte
		if payload, err = wire.EncodeAccountStatement(statement); err == nil {
			r.reply(d, payload)
		}
	}
	r.metrics.Observe(TopicAccountRequest, err, started)
	if err != nil {
		r.logger.Warn("account request failed",
			zap.Int("addresses", len(req.Addresses)),
			zap.Error(err))
		r.reply(d, nil)
	}
}

// withSnapshot runs fn against one consistent snapshot and releases it.
func (r *Responder) withSnapshot(ctx context.Context, fn func(chain.Snapshot) error) error {
	snap, err := r.store.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer func() {
		if cerr := snap.Close(); cerr != nil {
			r.logger.Warn("close snapshot", zap.Error(cerr))
		}
	}()
	return fn(snap)
}

// reply answers on the caller-supplied reply topic. Requests without a reply
// address get none.
func (r *Responder) reply(d bus.Delivery, payload []byte) {
	if d.ReplyTo == "" {
		return
	}
	if err := r.session.Reply(d.ReplyTo, payload); err != nil {
		r.logger.Debug("can not reply",
			zap.String("topic", d.Topic),
			zap.String("reply_to", d.ReplyTo),
			zap.Error(err))
	}
}
