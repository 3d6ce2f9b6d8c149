package events

import (
	"log/slog"
	"sync"
	"time"

	"storefront-api/internal/models"
)

// EventQueue is an in-memory, offset-addressed log of domain events
type EventQueue struct {
	mu         sync.RWMutex
	events     []models.Event
	nextOffset int64
	maxEvents  int
	logger     *slog.Logger
	now        func() time.Time

	waitersMutex sync.Mutex
	waiters      map[int64][]chan struct{}
}

// EventQueueConfig holds configuration for the event queue
type EventQueueConfig struct {
	MaxEvents int
	Logger    *slog.Logger
}

// NewEventQueue creates a new event queue
func NewEventQueue(config EventQueueConfig) *EventQueue {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxEvents := config.MaxEvents
	if maxEvents <= 0 {
		maxEvents = 10000
	}

	eq := &EventQueue{
		events:    make([]models.Event, 0),
		maxEvents: maxEvents,
		logger:    logger,
		now:       time.Now,
		waiters:   make(map[int64][]chan struct{}),
	}

	eq.logger.Info("Event queue initialized", "max_events", maxEvents)
	return eq
}

// PublishEvent appends an event and wakes long-polling readers
func (eq *EventQueue) PublishEvent(eventType, resourceID string, data any) {
	eq.mu.Lock()
	event := models.Event{
		Offset:     eq.nextOffset,
		Timestamp:  eq.now().UTC().Format(time.RFC3339),
		EventType:  eventType,
		ResourceID: resourceID,
		Data:       data,
	}
	eq.nextOffset++
	eq.events = append(eq.events, event)

	if len(eq.events) > eq.maxEvents {
		// Keep 75% of max events
		keepCount := eq.maxEvents * 3 / 4
		removed := len(eq.events) - keepCount
		eq.events = append([]models.Event(nil), eq.events[removed:]...)

		eq.logger.Info("Event queue rotated",
			"removed_events", removed,
			"remaining_events", len(eq.events),
		)
	}
	eq.mu.Unlock()

	eq.logger.Debug("Event published",
		"offset", event.Offset,
		"event_type", event.EventType,
		"resource_id", event.ResourceID,
	)
	eq.notifyWaiters(event.Offset)
}

// GetEvents retrieves up to limit events starting at fromOffset.
// It returns the events, the offset to poll next and whether more are buffered.
func (eq *EventQueue) GetEvents(fromOffset int64, limit int) ([]models.Event, int64, bool) {
	eq.mu.RLock()
	defer eq.mu.RUnlock()

	startIdx := -1
	for i, event := range eq.events {
		if event.Offset >= fromOffset {
			startIdx = i
			break
		}
	}
	if startIdx == -1 {
		return []models.Event{}, eq.nextOffset, false
	}

	endIdx := startIdx + limit
	hasMore := endIdx < len(eq.events)
	if endIdx > len(eq.events) {
		endIdx = len(eq.events)
	}

	result := make([]models.Event, endIdx-startIdx)
	copy(result, eq.events[startIdx:endIdx])

	return result, result[len(result)-1].Offset + 1, hasMore
}

// WaitForEvents returns a channel closed when an event at or after fromOffset
// exists, or when timeout elapses.
func (eq *EventQueue) WaitForEvents(fromOffset int64, timeout time.Duration) <-chan struct{} {
	eq.waitersMutex.Lock()
	defer eq.waitersMutex.Unlock()

	notifyChan := make(chan struct{})

	eq.mu.RLock()
	available := fromOffset < eq.nextOffset
	eq.mu.RUnlock()
	if available {
		close(notifyChan)
		return notifyChan
	}

	eq.waiters[fromOffset] = append(eq.waiters[fromOffset], notifyChan)

	time.AfterFunc(timeout, func() {
		eq.waitersMutex.Lock()
		defer eq.waitersMutex.Unlock()
		eq.release(fromOffset, notifyChan)
	})

	return notifyChan
}

// release closes and forgets one waiter. Caller holds waitersMutex.
func (eq *EventQueue) release(offset int64, ch chan struct{}) {
	waiters := eq.waiters[offset]
	for i, w := range waiters {
		if w == ch {
			close(w)
			eq.waiters[offset] = append(waiters[:i], waiters[i+1:]...)
			break
		}
	}
	if len(eq.waiters[offset]) == 0 {
		delete(eq.waiters, offset)
	}
}

// GetCurrentOffset returns the next offset to be assigned
func (eq *EventQueue) GetCurrentOffset() int64 {
	eq.mu.RLock()
	defer eq.mu.RUnlock()
	return eq.nextOffset
}

// notifyWaiters wakes everyone waiting for offsets up to offset
func (eq *EventQueue) notifyWaiters(offset int64) {
	eq.waitersMutex.Lock()
	defer eq.waitersMutex.Unlock()

	for waitOffset, waiters := range eq.waiters {
		if waitOffset <= offset {
			for _, waiter := range waiters {
				close(waiter)
			}
			delete(eq.waiters, waitOffset)
		}
	}
}

// Close releases any pending long-poll waiters
func (eq *EventQueue) Close() {
	eq.logger.Info("Shutting down event queue")

	eq.waitersMutex.Lock()
	defer eq.waitersMutex.Unlock()
	for offset, waiters := range eq.waiters {
		for _, waiter := range waiters {
			close(waiter)
		}
		delete(eq.waiters, offset)
	}
}
