package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordingEventHandler_Handle(t *testing.T) {
	handler := NewRecordingEventHandler("OrderPlaced", "OrderCancelled")
	placed := NewTestEvent("OrderPlaced")
	cancelled := NewTestEvent("OrderCancelled")

	require.NoError(t, handler.Handle(context.Background(), placed))
	require.NoError(t, handler.Handle(context.Background(), cancelled))

	assert.Equal(t, []string{"OrderPlaced", "OrderCancelled"}, handler.EventTypes())
	assert.Equal(t, 2, handler.HandledCount())
	assert.Len(t, handler.HandledOfType("OrderPlaced"), 1)
	assert.Same(t, placed, handler.Handled()[0])
}

func TestRecordingEventHandler_SetErrorAndReset(t *testing.T) {
	handler := NewRecordingEventHandler()
	handler.SetError(assert.AnError)

	err := handler.Handle(context.Background(), NewTestEvent("OrderPlaced"))
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, handler.HandledCount())

	handler.Reset()
	assert.Zero(t, handler.HandledCount())
	assert.NoError(t, handler.Handle(context.Background(), NewTestEvent("OrderPlaced")))
}

func TestNewTestEvent(t *testing.T) {
	event := NewTestEvent("OrderPlaced")

	assert.NotEqual(t, uuid.Nil, event.EventID())
	assert.NotEqual(t, uuid.Nil, event.AggregateID())
	assert.Equal(t, "OrderPlaced", event.EventType())
	assert.Equal(t, "TestAggregate", event.AggregateType())
	assert.WithinDuration(t, time.Now(), event.OccurredAt(), time.Second)
}

func TestWaitForEventCount(t *testing.T) {
	handler := NewRecordingEventHandler()
	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = handler.Handle(context.Background(), NewTestEvent("OrderPlaced"))
	}()

	assert.True(t, WaitForEventCount(t, handler, 1, time.Second))
	assert.False(t, WaitForEventCount(t, handler, 2, 30*time.Millisecond))
}
