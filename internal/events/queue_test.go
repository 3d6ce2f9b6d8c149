package events

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-api/internal/logging"
	"storefront-api/internal/models"
)

func newTestQueue(maxEvents int) *EventQueue {
	return NewEventQueue(EventQueueConfig{MaxEvents: maxEvents, Logger: logging.Discard()})
}

// TestEventQueue_PublishAndRead tests offsets and pagination
func TestEventQueue_PublishAndRead(t *testing.T) {
	eq := newTestQueue(100)
	for i := 0; i < 5; i++ {
		eq.PublishEvent(models.EventOrderCreated, fmt.Sprintf("order-%d", i), nil)
	}

	events, next, hasMore := eq.GetEvents(0, 3)
	require.Len(t, events, 3)
	assert.Equal(t, int64(0), events[0].Offset)
	assert.Equal(t, "order-2", events[2].ResourceID)
	assert.Equal(t, int64(3), next)
	assert.True(t, hasMore)

	events, next, hasMore = eq.GetEvents(next, 10)
	require.Len(t, events, 2)
	assert.Equal(t, int64(5), next)
	assert.False(t, hasMore)

	events, next, hasMore = eq.GetEvents(next, 10)
	assert.Empty(t, events)
	assert.Equal(t, int64(5), next)
	assert.False(t, hasMore)
}

// TestEventQueue_Rotation tests that the log keeps 75% of its capacity once exceeded
func TestEventQueue_Rotation(t *testing.T) {
	eq := newTestQueue(8)
	for i := 0; i < 9; i++ {
		eq.PublishEvent(models.EventProductUpdated, "p", nil)
	}

	events, _, _ := eq.GetEvents(0, 100)
	require.Len(t, events, 6)
	assert.Equal(t, int64(3), events[0].Offset, "Oldest events should be dropped")
	assert.Equal(t, int64(9), eq.GetCurrentOffset())
}

// TestEventQueue_WaitForEvents tests long-poll wakeup on publish
func TestEventQueue_WaitForEvents(t *testing.T) {
	eq := newTestQueue(100)

	wait := eq.WaitForEvents(0, time.Minute)
	select {
	case <-wait:
		t.Fatal("wait should block while the log is empty")
	default:
	}

	eq.PublishEvent(models.EventOrderDeleted, "order-1", nil)

	select {
	case <-wait:
	case <-time.After(time.Second):
		t.Fatal("waiter was not notified")
	}
}

// TestEventQueue_WaitTimeout tests that waiters are released after the timeout
func TestEventQueue_WaitTimeout(t *testing.T) {
	eq := newTestQueue(100)

	select {
	case <-eq.WaitForEvents(0, 10*time.Millisecond):
	case <-time.After(time.Second):
		t.Fatal("waiter did not time out")
	}

	eq.PublishEvent(models.EventOrderCreated, "late", nil)
}

// TestEventQueue_WaitReturnsImmediately tests that available events skip waiting
func TestEventQueue_WaitReturnsImmediately(t *testing.T) {
	eq := newTestQueue(100)
	eq.PublishEvent(models.EventOrderCreated, "order-1", nil)

	select {
	case <-eq.WaitForEvents(0, time.Minute):
	default:
		t.Fatal("wait should be satisfied immediately")
	}
}
