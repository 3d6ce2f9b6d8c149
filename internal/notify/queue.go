package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultMaxEntries = 20
	DefaultTTL        = 5 * time.Second
)

// Notification is a transient user-facing event
type Notification struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	ProductName string    `json:"productName"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
}

// QueueConfig holds queue settings. Zero values fall back to the defaults.
type QueueConfig struct {
	MaxEntries int
	TTL        time.Duration
	// OnPush is called outside the lock after each push
	OnPush func(Notification)
	Logger *slog.Logger
}

type entry struct {
	notification Notification
	timer        *time.Timer
}

// Queue holds the newest notifications first. Each entry expires on its own timer.
type Queue struct {
	mu         sync.Mutex
	entries    []entry
	maxEntries int
	ttl        time.Duration
	onPush     func(Notification)
	logger     *slog.Logger
	now        func() time.Time
	closed     bool
}

func NewQueue(config QueueConfig) *Queue {
	q := &Queue{
		maxEntries: config.MaxEntries,
		ttl:        config.TTL,
		onPush:     config.OnPush,
		logger:     config.Logger,
		now:        time.Now,
	}
	if q.maxEntries <= 0 {
		q.maxEntries = DefaultMaxEntries
	}
	if q.ttl <= 0 {
		q.ttl = DefaultTTL
	}
	if q.logger == nil {
		q.logger = slog.Default()
	}
	return q
}

// Push stores n at the front of the queue, evicting the oldest entries past the cap.
// Missing id and timestamp are filled in. Returns the stored notification.
func (q *Queue) Push(n Notification) Notification {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.logger.Debug("Notification dropped, queue closed", "type", n.Type)
		return n
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = q.now()
	}

	id := n.ID
	e := entry{
		notification: n,
		timer:        time.AfterFunc(q.ttl, func() { q.Remove(id) }),
	}
	q.entries = append([]entry{e}, q.entries...)

	evicted := 0
	for len(q.entries) > q.maxEntries {
		last := q.entries[len(q.entries)-1]
		last.timer.Stop()
		q.entries = q.entries[:len(q.entries)-1]
		evicted++
	}
	onPush := q.onPush
	q.mu.Unlock()

	q.logger.Debug("Notification pushed",
		"id", n.ID,
		"type", n.Type,
		"product_name", n.ProductName,
		"evicted", evicted)

	if onPush != nil {
		onPush(n)
	}
	return n
}

// Remove drops the notification with id. Unknown ids are ignored.
func (q *Queue) Remove(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, e := range q.entries {
		if e.notification.ID == id {
			e.timer.Stop()
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return true
		}
	}
	return false
}

// List returns the live notifications, newest first
func (q *Queue) List() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	result := make([]Notification, len(q.entries))
	for i, e := range q.entries {
		result[i] = e.notification
	}
	return result
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Close stops every pending timer and empties the queue
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, e := range q.entries {
		e.timer.Stop()
	}
	q.entries = nil
	q.closed = true
}
