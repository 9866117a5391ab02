// Package zmq implements the bus over ZeroMQ sockets. One PUB socket carries
// every outbound topic, one SUB socket receives inbound request topics.
// Messages are three frames: topic, reply topic (may be empty), payload.
package zmq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"syscall"
	"time"

	"github.com/pebbe/zmq4"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/chainrelay7000-backend/internal/bus"
	"github.com/goodnatureofminers/chainrelay7000-backend/internal/clock"
	"github.com/goodnatureofminers/chainrelay7000-backend/pkg/batcher"
)

// Metrics observes transport-level outcomes.
type Metrics interface {
	ObservePublish(topic string, dropped bool, err error)
	ObserveDeliver(topic string, malformed bool)
}

// Config holds socket addresses and flusher tuning.
type Config struct {
	// PubAddr is the bind address of the PUB socket (outbound topics and
	// replies).
	PubAddr string
	// SubAddr is the bind address of the SUB socket (inbound requests).
	SubAddr string
	// RecvTimeout bounds one blocking receive so shutdown is prompt.
	RecvTimeout time.Duration
	// FlushSize and FlushInterval tune the outbound flusher.
	FlushSize     int
	FlushInterval time.Duration
	// PublishRPS bounds flushes per second.
	PublishRPS int
}

// DefaultConfig returns flusher settings suitable for a busy chain.
func DefaultConfig() Config {
	return Config{
		RecvTimeout:   time.Second,
		FlushSize:     256,
		FlushInterval: 10 * time.Millisecond,
		PublishRPS:    1000,
	}
}

type outbound struct {
	topic   string
	payload []byte
}

// Session implements bus.Session over a PUB/SUB socket pair. Subscriptions
// must be registered before Start; the session is torn down once with Close.
type Session struct {
	cfg     Config
	logger  *zap.Logger
	metrics Metrics

	pub *zmq4.Socket
	sub *zmq4.Socket
	out *batcher.Batcher[outbound]

	mu       sync.RWMutex
	handlers map[string][]bus.Handler

	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewSession opens both sockets. The caller registers subscriptions and then
// calls Start.
func NewSession(cfg Config, logger *zap.Logger, metrics Metrics) (*Session, error) {
	if cfg.RecvTimeout <= 0 {
		cfg.RecvTimeout = time.Second
	}
	if cfg.FlushSize <= 0 || cfg.FlushInterval <= 0 || cfg.PublishRPS <= 0 {
		def := DefaultConfig()
		cfg.FlushSize = def.FlushSize
		cfg.FlushInterval = def.FlushInterval
		cfg.PublishRPS = def.PublishRPS
	}

	pub, err := zmq4.NewSocket(zmq4.PUB)
	if err != nil {
		return nil, fmt.Errorf("create pub socket: %w", err)
	}
	if err := pub.Bind(cfg.PubAddr); err != nil {
		_ = pub.Close()
		return nil, fmt.Errorf("bind pub socket %s: %w", cfg.PubAddr, err)
	}

	sub, err := zmq4.NewSocket(zmq4.SUB)
	if err != nil {
		_ = pub.Close()
		return nil, fmt.Errorf("create sub socket: %w", err)
	}
	if err := sub.SetRcvtimeo(cfg.RecvTimeout); err != nil {
		_ = pub.Close()
		_ = sub.Close()
		return nil, fmt.Errorf("set recv timeout: %w", err)
	}
	if err := sub.Bind(cfg.SubAddr); err != nil {
		_ = pub.Close()
		_ = sub.Close()
		return nil, fmt.Errorf("bind sub socket %s: %w", cfg.SubAddr, err)
	}

	s := &Session{
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		pub:      pub,
		sub:      sub,
		handlers: make(map[string][]bus.Handler),
	}
	// The PUB socket is not safe for concurrent use; every write funnels
	// through the flusher goroutine.
	s.out = batcher.New(logger, s.flush, cfg.FlushSize, cfg.FlushInterval, cfg.PublishRPS)
	return s, nil
}

type producer struct {
	s     *Session
	topic string
}

func (p producer) Publish(payload []byte) error {
	return p.s.enqueue(p.topic, payload)
}

// Producer returns a publisher for the topic.
func (s *Session) Producer(topic string) (bus.Producer, error) {
	return producer{s: s, topic: topic}, nil
}

// Reply publishes on a caller-supplied reply topic.
func (s *Session) Reply(replyTo string, payload []byte) error {
	return s.enqueue(replyTo, payload)
}

func (s *Session) enqueue(topic string, payload []byte) error {
	if s.out.TryAdd(outbound{topic: topic, payload: payload}) {
		return nil
	}
	if s.metrics != nil {
		s.metrics.ObservePublish(topic, true, nil)
	}
	return fmt.Errorf("publish buffer full, dropped message for topic %s", topic)
}

func (s *Session) flush(_ context.Context, items []outbound) error {
	var firstErr error
	for _, m := range items {
		_, err := s.pub.SendMessage(m.topic, "", m.payload)
		if s.metrics != nil {
			s.metrics.ObservePublish(m.topic, false, err)
		}
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("send on topic %s: %w", m.topic, err)
		}
	}
	return firstErr
}

// Subscribe registers a handler. Valid only before Start.
func (s *Session) Subscribe(topic string, h bus.Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("subscribe after session start")
	}
	if len(s.handlers[topic]) == 0 {
		if err := s.sub.SetSubscribe(topic); err != nil {
			return fmt.Errorf("subscribe topic %s: %w", topic, err)
		}
	}
	s.handlers[topic] = append(s.handlers[topic], h)
	return nil
}

// Start launches the outbound flusher and the receive loop.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	ctx, s.cancel = context.WithCancel(ctx)
	s.out.Start(ctx)
	s.wg.Add(1)
	go s.recvLoop(ctx)
}

func (s *Session) recvLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		parts, err := s.sub.RecvMessageBytes(0)
		if err != nil {
			if zmq4.AsErrno(err) == zmq4.Errno(syscall.EAGAIN) {
				// Receive timed out, poll the context again.
				continue
			}
			s.logger.Warn("zmq recv failed", zap.Error(err))
			if clock.SleepWithContext(ctx, time.Second) != nil {
				return
			}
			continue
		}
		if len(parts) < 3 {
			s.logger.Warn("skip malformed zmq message", zap.Int("parts", len(parts)))
			if s.metrics != nil {
				s.metrics.ObserveDeliver("", true)
			}
			continue
		}

		d := bus.Delivery{
			Topic:   string(parts[0]),
			ReplyTo: string(parts[1]),
			Payload: parts[2],
		}
		if s.metrics != nil {
			s.metrics.ObserveDeliver(d.Topic, false)
		}

		s.mu.RLock()
		handlers := s.handlers[d.Topic]
		s.mu.RUnlock()
		for _, h := range handlers {
			h(d)
		}
	}
}

// Close stops the loops and closes both sockets, flusher first so queued
// messages drain to the socket.
func (s *Session) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	s.out.Stop()
	s.wg.Wait()

	var firstErr error
	if err := s.pub.Close(); err != nil {
		firstErr = err
	}
	if err := s.sub.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
