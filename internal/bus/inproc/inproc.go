// Package inproc is an in-process bus used by tests and embedded setups.
// Delivery is synchronous on the publisher's goroutine.
package inproc

import (
	"errors"
	"sync"

	"github.com/goodnatureofminers/chainrelay7000-backend/internal/bus"
)

// Session implements bus.Session over an in-memory handler registry.
type Session struct {
	mu       sync.RWMutex
	handlers map[string][]bus.Handler
	closed   bool
}

// NewSession creates an empty in-process session.
func NewSession() *Session {
	return &Session{handlers: make(map[string][]bus.Handler)}
}

type producer struct {
	s     *Session
	topic string
}

func (p producer) Publish(payload []byte) error {
	return p.s.publish(p.topic, "", payload)
}

// Producer returns a publisher for the topic.
func (s *Session) Producer(topic string) (bus.Producer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errors.New("session closed")
	}
	return producer{s: s, topic: topic}, nil
}

// Subscribe registers a handler for the topic.
func (s *Session) Subscribe(topic string, h bus.Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("session closed")
	}
	s.handlers[topic] = append(s.handlers[topic], h)
	return nil
}

// Reply publishes on a reply topic.
func (s *Session) Reply(replyTo string, payload []byte) error {
	return s.publish(replyTo, "", payload)
}

// Request publishes on a topic with a reply address attached. Used by tests
// exercising the request/reply paths.
func (s *Session) Request(topic, replyTo string, payload []byte) error {
	return s.publish(topic, replyTo, payload)
}

func (s *Session) publish(topic, replyTo string, payload []byte) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return errors.New("session closed")
	}
	handlers := make([]bus.Handler, len(s.handlers[topic]))
	copy(handlers, s.handlers[topic])
	s.mu.RUnlock()

	for _, h := range handlers {
		h(bus.Delivery{Topic: topic, ReplyTo: replyTo, Payload: payload})
	}
	return nil
}

// Close invalidates the session.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.handlers = make(map[string][]bus.Handler)
	return nil
}
