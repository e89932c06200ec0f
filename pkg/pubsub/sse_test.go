package pubsub

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func next(t *testing.T, sub Subscription) Event {
	t.Helper()
	select {
	case event, ok := <-sub.Events():
		require.True(t, ok, "subscription closed")
		return event
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
	return Event{}
}

func assertQuiet(t *testing.T, sub Subscription) {
	t.Helper()
	select {
	case event := <-sub.Events():
		t.Errorf("unexpected event version %d", event.Version)
	case <-time.After(50 * time.Millisecond):
	}
}

func publishN(t *testing.T, pub *SSEPublisher, n int) {
	for i := 1; i <= n; i++ {
		require.NoError(t, pub.Publish(TopicBondGraph, "ready", BondGraphSummary{Bonds: i}))
	}
}

func TestReplayAllKeepsBufferSize(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()
	pub.ConfigureTopic(TopicBondGraph, TopicConfig{BufferSize: 3, ReplayAll: true})
	publishN(t, pub, 5)

	sub, err := pub.Subscribe(context.Background(), TopicBondGraph)
	require.NoError(t, err)
	defer sub.Close()

	for want := 3; want <= 5; want++ {
		assert.Equal(t, want, next(t, sub).Version)
	}
	assertQuiet(t, sub)
}

func TestReplayLastOnly(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()
	pub.ConfigureTopic(TopicBondGraph, TopicConfig{BufferSize: 5})
	publishN(t, pub, 3)

	sub, err := pub.Subscribe(context.Background(), TopicBondGraph)
	require.NoError(t, err)
	defer sub.Close()

	event := next(t, sub)
	assert.Equal(t, 3, event.Version)
	var summary BondGraphSummary
	require.NoError(t, json.Unmarshal(event.Data, &summary))
	assert.Equal(t, 3, summary.Bonds)
	assertQuiet(t, sub)
}

func TestNoBuffer(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()
	publishN(t, pub, 3)

	sub, err := pub.Subscribe(context.Background(), TopicBondGraph)
	require.NoError(t, err)
	defer sub.Close()
	assertQuiet(t, sub)

	require.NoError(t, pub.Publish(TopicBondGraph, "ready", BondGraphSummary{}))
	assert.Equal(t, 4, next(t, sub).Version)
}

func TestContextCancelClosesSubscription(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := pub.Subscribe(ctx, TopicRunStatus)
	require.NoError(t, err)
	assert.Equal(t, 1, pub.SubscriberCount(TopicRunStatus))

	cancel()
	select {
	case _, ok := <-sub.Events():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscription not closed")
	}
	assert.Zero(t, pub.SubscriberCount(TopicRunStatus))
	assert.NoError(t, sub.Close(), "second close is a no-op")
}

func TestClosedPublisher(t *testing.T) {
	pub := NewSSEPublisher()
	sub, err := pub.Subscribe(context.Background(), TopicRunStatus)
	require.NoError(t, err)
	require.NoError(t, pub.Close())

	_, ok := <-sub.Events()
	assert.False(t, ok)
	assert.ErrorIs(t, pub.Publish(TopicRunStatus, "ready", RunStatus{}), ErrClosed)
	_, err = pub.Subscribe(context.Background(), TopicRunStatus)
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, sub.Close())
}

func TestWriteSSE(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSSE(&buf, Event{Topic: TopicRunStatus, Type: "ready", Data: json.RawMessage(`{}`), Version: 7}))
	assert.Equal(t, "id: 7\ndata: {\"topic\":\"run_status\",\"type\":\"ready\",\"data\":{},\"version\":7}\n\n", buf.String())
}
