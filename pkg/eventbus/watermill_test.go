package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuflow/docuflow/pkg/events"
)

func newGoChannelBus() EventBus {
	channel := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})

	return NewWatermillEventBus(channel, channel)
}

func TestWatermillEventBus_PublishAndSubscribe(t *testing.T) {
	bus := newGoChannelBus()

	received := make(chan *events.ExecutionStarted, 1)

	require.NoError(t, bus.Handle(events.ExecutionStartedEvent, func(_ context.Context, event any) error {
		started, ok := event.(*events.ExecutionStarted)
		if !ok {
			t.Errorf("unexpected event payload %T", event)

			return nil
		}

		received <- started

		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	original := events.ExecutionStarted{
		BaseEvent:    events.NewBaseEvent(events.ExecutionStartedEvent, "tpl-1"),
		ExecutionID:  "exec-1",
		TemplateName: "document-intake",
	}
	require.NoError(t, bus.Publish(ctx, "exec-1", original))

	select {
	case event := <-received:
		assert.Equal(t, "exec-1", event.ExecutionID)
		assert.Equal(t, "document-intake", event.TemplateName)
		assert.Equal(t, events.ExecutionStartedEvent, event.Type)
	case <-time.After(5 * time.Second):
		t.Fatal("event never arrived")
	}
}

func TestWatermillEventBus_UnhandledEventsAreAcked(t *testing.T) {
	bus := newGoChannelBus()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	// No handler registered for node events; publishing must not block.
	event := events.NodeStarted{
		BaseEvent:   events.NewBaseEvent(events.NodeStartedEvent, "tpl-1"),
		ExecutionID: "exec-1",
		NodeID:      "begin",
	}
	assert.NoError(t, bus.Publish(ctx, "exec-1", event))
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	bus := newGoChannelBus()

	first := bus.GenerateID()
	second := bus.GenerateID()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
