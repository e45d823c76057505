package pubsub

import (
	"context"
	"encoding/json"
	"time"
)

// Topics published by the catalog service
const (
	TopicMetadataStatus = "metadata_status"
	TopicGraph          = "graph"
)

// Event types
const (
	TypeStatus  = "status"  // metadata source status after a load attempt
	TypeChanged = "changed" // graph diff after a dataset change
)

// Event is one message on a topic
type Event struct {
	Topic   string          `json:"topic"`
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
	Version int             `json:"version"` // per-topic, increasing
}

// Subscription is a client's view of one topic
type Subscription interface {
	Topic() string
	Events() <-chan Event
	Close() error
}

// Publisher fans events out to topic subscribers.
type Publisher interface {
	// Subscribe creates a subscription that closes with ctx.
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// Publish sends data, encoded as JSON, to all subscribers of topic.
	Publish(topic string, eventType string, data any) error

	Close() error
}

// GraphChange is the payload of TopicGraph events.
type GraphChange struct {
	Source        string    `json:"source"` // "metadata" or "catalog"
	Nodes         int       `json:"nodes"`
	Edges         int       `json:"edges"`
	AddedNodes    []string  `json:"addedNodes"`
	RemovedNodes  []string  `json:"removedNodes"`
	ModifiedNodes []string  `json:"modifiedNodes"`
	AddedEdges    []string  `json:"addedEdges"`
	RemovedEdges  []string  `json:"removedEdges"`
	FullGraph     bool      `json:"fullGraph"`
	At            time.Time `json:"at"`
}
