// Package bus abstracts the publish/subscribe transport the relay speaks to
// its subscribers. Transports deliver opaque payloads on named topics and
// carry an optional reply topic per inbound message.
package bus

// Delivery is one inbound message. ReplyTo names the topic the sender listens
// on for an answer; it is empty for fire-and-forget topics.
type Delivery struct {
	Topic   string
	ReplyTo string
	Payload []byte
}

// Handler consumes one delivery. Handlers run on the transport's receive
// context and must not block it for long.
type Handler func(Delivery)

// Producer publishes payloads on one fixed topic.
type Producer interface {
	Publish(payload []byte) error
}

// Session is the process-wide bus connection. Producers and subscriptions
// are only valid between session creation and Close.
type Session interface {
	// Producer returns a publisher for the topic. Implementations may
	// cache producers per topic.
	Producer(topic string) (Producer, error)
	// Subscribe registers a handler for a topic. Multiple handlers per
	// topic are allowed.
	Subscribe(topic string, h Handler) error
	// Reply publishes a payload on a caller-supplied reply topic. A nil
	// payload is delivered as an explicit empty message.
	Reply(replyTo string, payload []byte) error

	Close() error
}
