package bitcoin

import (
	"bytes"
	"context"
	"fmt"
	"syscall"
	"time"

	btcwire "github.com/btcsuite/btcd/wire"
	"github.com/pebbe/zmq4"
	"go.uber.org/zap"
)

const (
	topicRawTx    = "rawtx"
	topicRawBlock = "rawblock"

	defaultListenerRecvTimeout = 500 * time.Millisecond
)

// ListenerConfig configures the engine event subscription.
type ListenerConfig struct {
	// Addr is the engine's ZMQ publisher endpoint.
	Addr string
	// RecvTimeout bounds each blocking receive so shutdown stays prompt.
	RecvTimeout time.Duration
}

// Listener subscribes to the engine's raw transaction and raw block feeds and
// raises the corresponding domain events. Block events pass through a
// TrunkTracker so reorganizations surface as removed/added steps.
type Listener struct {
	sub     *zmq4.Socket
	decoder ScriptDecoder
	tracker *TrunkTracker
	sink    EventSink
	logger  *zap.Logger
}

// NewListener connects the subscriber socket.
func NewListener(cfg ListenerConfig, decoder ScriptDecoder, sink EventSink, logger *zap.Logger) (*Listener, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("listener address is required")
	}
	if cfg.RecvTimeout <= 0 {
		cfg.RecvTimeout = defaultListenerRecvTimeout
	}

	sub, err := zmq4.NewSocket(zmq4.SUB)
	if err != nil {
		return nil, fmt.Errorf("create sub socket: %w", err)
	}
	for _, topic := range []string{topicRawTx, topicRawBlock} {
		if err := sub.SetSubscribe(topic); err != nil {
			_ = sub.Close()
			return nil, fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}
	if err := sub.SetRcvtimeo(cfg.RecvTimeout); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("set receive timeout: %w", err)
	}
	if err := sub.Connect(cfg.Addr); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("connect %s: %w", cfg.Addr, err)
	}

	return &Listener{
		sub:     sub,
		decoder: decoder,
		tracker: NewTrunkTracker(0),
		sink:    sink,
		logger:  logger,
	}, nil
}

// Run receives engine events until the context is canceled.
func (l *Listener) Run(ctx context.Context) error {
	defer func() {
		_ = l.sub.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		parts, err := l.sub.RecvMessageBytes(0)
		if err != nil {
			if zmq4.AsErrno(err) == zmq4.Errno(syscall.EAGAIN) {
				continue
			}
			l.logger.Warn("zmq recv failed", zap.Error(err))
			continue
		}
		if len(parts) < 2 {
			l.logger.Warn("skip malformed zmq message", zap.Int("parts", len(parts)))
			continue
		}

		switch string(parts[0]) {
		case topicRawTx:
			l.handleRawTx(parts[1])
		case topicRawBlock:
			l.handleRawBlock(parts[1])
		}
	}
}

func (l *Listener) handleRawTx(raw []byte) {
	var msg btcwire.MsgTx
	if err := msg.Deserialize(bytes.NewReader(raw)); err != nil {
		l.logger.Warn("skip malformed raw transaction", zap.Error(err))
		return
	}
	tx, err := BuildTransaction(&msg, l.decoder, 0)
	if err != nil {
		l.logger.Warn("skip unconvertible transaction",
			zap.String("hash", msg.TxHash().String()),
			zap.Error(err))
		return
	}
	l.sink.OnTransaction(tx)
}

func (l *Listener) handleRawBlock(raw []byte) {
	var msg btcwire.MsgBlock
	if err := msg.Deserialize(bytes.NewReader(raw)); err != nil {
		l.logger.Warn("skip malformed raw block", zap.Error(err))
		return
	}
	b, err := BuildBlock(&msg, l.decoder)
	if err != nil {
		l.logger.Warn("skip unconvertible block",
			zap.String("hash", msg.BlockHash().String()),
			zap.Error(err))
		return
	}
	removed, added := l.tracker.Advance(b)
	l.sink.OnTrunkUpdate(removed, added)
}
