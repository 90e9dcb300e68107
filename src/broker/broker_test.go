package broker

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"buildmail-agent/src/contracts"
)

func TestInMemoryBroker_PublishSubscribe(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	ctx := context.Background()
	topic := contracts.TopicBuildsFinished
	key := "app"
	value := []byte("test message")

	// Subscribe before publishing
	msgChan, err := broker.Subscribe(ctx, topic, "test-group")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := broker.Publish(ctx, topic, key, value); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case msg := <-msgChan:
		if msg.Topic != topic {
			t.Errorf("Expected topic %s, got %s", topic, msg.Topic)
		}
		if msg.Key != key {
			t.Errorf("Expected key %s, got %s", key, msg.Key)
		}
		if string(msg.Value) != string(value) {
			t.Errorf("Expected value %s, got %s", string(value), string(msg.Value))
		}
	case <-time.After(1 * time.Second):
		t.Fatal("Timeout waiting for message")
	}
}

func TestInMemoryBroker_MultipleSubscribers(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	ctx := context.Background()
	topic := contracts.TopicNotifications

	sub1, err := broker.Subscribe(ctx, topic, "group1")
	if err != nil {
		t.Fatalf("Subscribe 1 failed: %v", err)
	}
	sub2, err := broker.Subscribe(ctx, topic, "group2")
	if err != nil {
		t.Fatalf("Subscribe 2 failed: %v", err)
	}

	value := []byte("broadcast message")
	if err := broker.Publish(ctx, topic, "key", value); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	// Both subscribers should receive the message
	for i, sub := range []<-chan Message{sub1, sub2} {
		select {
		case msg := <-sub:
			if string(msg.Value) != string(value) {
				t.Errorf("Subscriber %d: expected value %s, got %s", i+1, string(value), string(msg.Value))
			}
		case <-time.After(1 * time.Second):
			t.Fatalf("Subscriber %d: timeout waiting for message", i+1)
		}
	}
}

func TestInMemoryBroker_TopicIsolation(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()
	ctx := context.Background()

	chA, _ := broker.Subscribe(ctx, "topic-a", "g")
	chB, _ := broker.Subscribe(ctx, "topic-b", "g")

	if err := broker.Publish(ctx, "topic-a", "", []byte("for a")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case msg := <-chA:
		if string(msg.Value) != "for a" {
			t.Errorf("Expected %q, got %q", "for a", msg.Value)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("Timeout waiting for message on topic-a")
	}

	select {
	case msg := <-chB:
		t.Errorf("Topic B should not receive message, but got: %q", msg.Value)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestInMemoryBroker_ContextCancelClosesChannel(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := broker.Subscribe(ctx, "topic", "g")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("Expected closed channel")
		}
	case <-time.After(1 * time.Second):
		t.Fatal("Channel not closed after cancel")
	}

	// Publishing after a subscriber left is fine.
	if err := broker.Publish(context.Background(), "topic", "", []byte("x")); err != nil {
		t.Errorf("Publish failed: %v", err)
	}
}

func TestInMemoryBroker_SlowSubscriber(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()
	ctx := context.Background()

	if _, err := broker.Subscribe(ctx, "topic", "g"); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	for i := 0; i < subscriberBuffer; i++ {
		if err := broker.Publish(ctx, "topic", "", []byte("x")); err != nil {
			t.Fatalf("Publish %d failed: %v", i, err)
		}
	}
	if err := broker.Publish(ctx, "topic", "", []byte("x")); err == nil {
		t.Error("Expected error when subscriber buffer is full")
	}
}

func TestInMemoryBroker_ConcurrentPublishSubscribe(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()
	ctx := context.Background()

	const numGoroutines = 50
	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		if i%2 == 0 {
			go func() {
				defer wg.Done()
				for j := 0; j < 10; j++ {
					_ = broker.Publish(ctx, "concurrent-topic", "", []byte("msg"))
				}
			}()
		} else {
			go func() {
				defer wg.Done()
				for j := 0; j < 10; j++ {
					_, _ = broker.Subscribe(ctx, "concurrent-topic", "g")
				}
			}()
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout - possible deadlock in concurrent access")
	}
}

func TestInMemoryBroker_ClosedBroker(t *testing.T) {
	broker := NewInMemoryBroker()
	ch, err := broker.Subscribe(context.Background(), "test", "group")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	broker.Close()

	if _, ok := <-ch; ok {
		t.Error("Expected subscriber channel to be closed")
	}

	ctx := context.Background()
	if err := broker.Publish(ctx, "test", "key", []byte("value")); err == nil {
		t.Error("Expected error when publishing to closed broker")
	}
	if _, err := broker.Subscribe(ctx, "test", "group"); err == nil {
		t.Error("Expected error when subscribing to closed broker")
	}
	if err := broker.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestPublishJSON(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()
	ctx := context.Background()

	ch, _ := broker.Subscribe(ctx, contracts.TopicBuildsFinished, "g")
	event := contracts.BuildFinished{EventID: "e1", Project: "app", Number: 4}
	if err := PublishJSON(ctx, broker, contracts.TopicBuildsFinished, event.Project, event); err != nil {
		t.Fatalf("PublishJSON failed: %v", err)
	}

	msg := <-ch
	var got contracts.BuildFinished
	if err := json.Unmarshal(msg.Value, &got); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if got != event {
		t.Errorf("Expected %+v, got %+v", event, got)
	}
	if msg.Key != "app" {
		t.Errorf("Expected key app, got %s", msg.Key)
	}
}

func TestNewRedpandaBroker_RequiresBrokers(t *testing.T) {
	if _, err := NewRedpandaBroker(nil, nil); err == nil {
		t.Error("Expected error without broker addresses")
	}
}
