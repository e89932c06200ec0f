// Package pubsub fans analysis progress out to Server-Sent Events clients.
package pubsub

import (
	"context"
	"encoding/json"
)

// Topics published by the analysis server.
const (
	TopicRunStatus = "run_status"
	TopicBondGraph = "bond_graph"
)

// Event represents a pub/sub event
type Event struct {
	Topic   string          `json:"topic"`
	Type    string          `json:"type"` // e.g. "running", "ready", "error"
	Data    json.RawMessage `json:"data"`
	Version int             `json:"version"` // per topic, increasing
}

// Subscription represents a client subscription to a topic
type Subscription interface {
	Topic() string
	Events() <-chan Event
	Close() error
}

// Publisher manages pub/sub subscriptions and event publishing
type Publisher interface {
	// Subscribe creates a new subscription to a topic.
	// Context cancellation closes the subscription.
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// Publish sends an event to all subscribers of a topic
	Publish(topic string, eventType string, data interface{}) error

	// Close shuts down the publisher and all subscriptions
	Close() error
}

// RunStatus reports the state of the analysis runner.
type RunStatus struct {
	State   string `json:"state"` // running, ready, error
	Message string `json:"message"`
	Trigger string `json:"trigger,omitempty"`
	RunID   string `json:"runId,omitempty"`
}

// BondGraphSummary announces a new bond graph; clients fetch the details
// from the REST endpoints.
type BondGraphSummary struct {
	RunID     string `json:"runId"`
	Crystal   string `json:"crystal"`
	Method    string `json:"method"`
	Atoms     int    `json:"atoms"`
	Bonds     int    `json:"bonds"`
	Fragments int    `json:"fragments"`
	Sane      bool   `json:"sane"`
}
