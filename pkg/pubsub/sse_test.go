package pubsub

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func receive(t *testing.T, sub Subscription) Event {
	t.Helper()
	select {
	case event := <-sub.Events():
		return event
	case <-time.After(200 * time.Millisecond):
		t.Fatal("Timeout waiting for event")
	}
	return Event{}
}

func expectNothing(t *testing.T, sub Subscription) {
	t.Helper()
	select {
	case event := <-sub.Events():
		t.Errorf("Received unexpected event version %d", event.Version)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestReplayBuffer(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	pub.ConfigureTopic(TopicGraph, TopicConfig{BufferSize: 3, ReplayAll: true})

	for i := 1; i <= 5; i++ {
		if err := pub.Publish(TopicGraph, TypeChanged, GraphChange{Nodes: i}); err != nil {
			t.Fatalf("Failed to publish event %d: %v", i, err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub, err := pub.Subscribe(ctx, TopicGraph)
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}

	// Last three of five
	for want := 3; want <= 5; want++ {
		event := receive(t, sub)
		if event.Version != want {
			t.Errorf("Expected version %d, got %d", want, event.Version)
		}
		var change GraphChange
		if err := json.Unmarshal(event.Data, &change); err != nil || change.Nodes != want {
			t.Errorf("Expected payload with %d nodes, got %s (%v)", want, event.Data, err)
		}
	}
	expectNothing(t, sub)
}

func TestReplayLatestStatusOnly(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	pub.ConfigureTopic(TopicMetadataStatus, TopicConfig{BufferSize: 1})

	for _, source := range []string{"bundled", "file", "url"} {
		if err := pub.Publish(TopicMetadataStatus, TypeStatus, map[string]string{"source": source}); err != nil {
			t.Fatal(err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub, err := pub.Subscribe(ctx, TopicMetadataStatus)
	if err != nil {
		t.Fatal(err)
	}

	event := receive(t, sub)
	if event.Version != 3 || !strings.Contains(string(event.Data), `"url"`) {
		t.Errorf("Expected only the latest status, got %+v", event)
	}
	expectNothing(t, sub)
}

func TestUnbufferedTopic(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	pub.ConfigureTopic("plain", TopicConfig{})
	_ = pub.Publish("plain", "x", 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub, err := pub.Subscribe(ctx, "plain")
	if err != nil {
		t.Fatal(err)
	}
	expectNothing(t, sub)

	_ = pub.Publish("plain", "x", 2)
	if event := receive(t, sub); event.Version != 2 {
		t.Errorf("Expected version 2, got %d", event.Version)
	}
}

func TestContextCancelUnsubscribes(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := pub.Subscribe(ctx, TopicGraph); err != nil {
		t.Fatal(err)
	}
	if n := pub.subscriberCount(TopicGraph); n != 1 {
		t.Fatalf("Expected 1 subscriber, got %d", n)
	}

	cancel()
	deadline := time.Now().Add(time.Second)
	for pub.subscriberCount(TopicGraph) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("Subscription was not removed after cancel")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestClosedPublisher(t *testing.T) {
	pub := NewSSEPublisher()
	_ = pub.Close()

	if err := pub.Publish(TopicGraph, TypeChanged, nil); err != ErrClosed {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
	if _, err := pub.Subscribe(context.Background(), TopicGraph); err != ErrClosed {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}

func TestStream(t *testing.T) {
	pub := NewSSEPublisher()
	pub.ConfigureTopic(TopicMetadataStatus, TopicConfig{BufferSize: 1})
	_ = pub.Publish(TopicMetadataStatus, TypeStatus, map[string]int{"count": 7})

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := pub.Subscribe(ctx, TopicMetadataStatus)
	if err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	done := make(chan error, 1)
	go func() { done <- Stream(ctx, rec, sub, time.Hour) }()

	time.Sleep(50 * time.Millisecond)
	_ = pub.Close() // closes the subscription channel and ends the stream
	if err := <-done; err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	cancel()

	body := rec.Body.String()
	if rec.Header().Get("Content-Type") != "text/event-stream" {
		t.Errorf("Unexpected content type %q", rec.Header().Get("Content-Type"))
	}
	for _, want := range []string{"event: status\n", "id: 1\n", `"count":7`} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected %q in stream %q", want, body)
		}
	}
}
