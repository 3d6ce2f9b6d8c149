package notify

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-api/internal/logging"
)

func TestQueue_PushFrontAndCap(t *testing.T) {
	q := NewQueue(QueueConfig{TTL: time.Minute, Logger: logging.Discard()})
	defer q.Close()

	for i := 0; i < 50; i++ {
		q.Push(Notification{Type: "pret", Message: fmt.Sprintf("n%d", i)})
	}

	list := q.List()
	require.Len(t, list, DefaultMaxEntries)
	assert.Equal(t, "n49", list[0].Message)
	assert.Equal(t, "n30", list[len(list)-1].Message)
	assert.NotEmpty(t, list[0].ID)
	assert.False(t, list[0].Timestamp.IsZero())
}

func TestQueue_ConcurrentBurstStaysCapped(t *testing.T) {
	q := NewQueue(QueueConfig{MaxEntries: 5, TTL: time.Minute, Logger: logging.Discard()})
	defer q.Close()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Push(Notification{Type: "livre"})
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, q.Len())
}

func TestQueue_Expiry(t *testing.T) {
	q := NewQueue(QueueConfig{TTL: 20 * time.Millisecond, Logger: logging.Discard()})
	defer q.Close()

	q.Push(Notification{Type: "pret"})
	require.Equal(t, 1, q.Len())

	assert.Eventually(t, func() bool { return q.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestQueue_ExpiryMatchesByID(t *testing.T) {
	q := NewQueue(QueueConfig{TTL: time.Minute, Logger: logging.Discard()})
	defer q.Close()

	first := q.Push(Notification{Type: "pret"})
	second := q.Push(Notification{Type: "livre"})

	assert.True(t, q.Remove(first.ID))
	assert.False(t, q.Remove(first.ID))

	list := q.List()
	require.Len(t, list, 1)
	assert.Equal(t, second.ID, list[0].ID)
}

func TestQueue_OnPushAndClose(t *testing.T) {
	var pushed []Notification
	q := NewQueue(QueueConfig{
		TTL:    time.Minute,
		Logger: logging.Discard(),
		OnPush: func(n Notification) { pushed = append(pushed, n) },
	})

	n := q.Push(Notification{Type: "annule", ProductName: "Polo Bleu"})
	require.Len(t, pushed, 1)
	assert.Equal(t, n, pushed[0])

	q.Close()
	assert.Equal(t, 0, q.Len())

	q.Push(Notification{Type: "pret"})
	assert.Equal(t, 0, q.Len())
	assert.Len(t, pushed, 1)
}
