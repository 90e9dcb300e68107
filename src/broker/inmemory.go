package broker

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// subscriberBuffer is the channel capacity of each in-memory subscriber.
const subscriberBuffer = 100

// InMemoryBroker fans every published message out to all subscribers of its
// topic. It backs the local pipeline and tests.
type InMemoryBroker struct {
	mu          sync.RWMutex
	subscribers map[string][]*subscriber
	offsets     map[string]int64
	closed      bool
	done        chan struct{}
}

type subscriber struct {
	ch   chan Message
	done bool
}

// NewInMemoryBroker creates a new InMemoryBroker instance.
func NewInMemoryBroker() *InMemoryBroker {
	return &InMemoryBroker{
		subscribers: make(map[string][]*subscriber),
		offsets:     make(map[string]int64),
		done:        make(chan struct{}),
	}
}

// Publish delivers value to every current subscriber of topic. A subscriber
// whose buffer is full misses the message and Publish reports it.
func (b *InMemoryBroker) Publish(ctx context.Context, topic string, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("broker is closed")
	}

	msg := Message{
		Topic:     topic,
		Key:       key,
		Value:     append([]byte(nil), value...),
		Offset:    b.offsets[topic],
		Timestamp: time.Now().UnixMilli(),
	}
	b.offsets[topic]++

	dropped := 0
	for _, sub := range b.subscribers[topic] {
		if sub.done {
			continue
		}
		select {
		case sub.ch <- msg:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		return fmt.Errorf("message on %s dropped by %d slow subscriber(s)", topic, dropped)
	}
	return nil
}

// Subscribe registers a subscriber for topic. The channel is closed when ctx
// ends or the broker closes.
func (b *InMemoryBroker) Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("broker is closed")
	}

	sub := &subscriber{ch: make(chan Message, subscriberBuffer)}
	b.subscribers[topic] = append(b.subscribers[topic], sub)

	go func() {
		select {
		case <-ctx.Done():
		case <-b.done:
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		b.closeSubscriber(sub)
	}()

	return sub.ch, nil
}

func (b *InMemoryBroker) closeSubscriber(sub *subscriber) {
	if sub.done {
		return
	}
	sub.done = true
	close(sub.ch)
}

// Close closes every subscriber channel.
func (b *InMemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	close(b.done)
	for _, subs := range b.subscribers {
		for _, sub := range subs {
			b.closeSubscriber(sub)
		}
	}
	b.subscribers = make(map[string][]*subscriber)
	return nil
}
