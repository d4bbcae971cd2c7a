package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/stitchboard/internal/domain"
)

type stubRecorder struct {
	mu     sync.Mutex
	levels []string
}

func (r *stubRecorder) RecordNotification(level string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.levels = append(r.levels, level)
}

func TestHubRecentNewestFirst(t *testing.T) {
	hub := NewHub(10)

	hub.Success("customer added")
	hub.Error("order create failed")

	recent := hub.Recent(0)
	require.Len(t, recent, 2)
	assert.Equal(t, "order create failed", recent[0].Message)
	assert.Equal(t, domain.NotificationError, recent[0].Level)
	assert.NotEmpty(t, recent[0].ID)
	assert.False(t, recent[0].At.IsZero())
	assert.Equal(t, "customer added", recent[1].Message)
}

func TestHubRingOverwritesOldest(t *testing.T) {
	hub := NewHub(3)
	for _, msg := range []string{"1", "2", "3", "4", "5"} {
		hub.Notify(domain.Notification{Message: msg})
	}

	recent := hub.Recent(0)
	require.Len(t, recent, 3)
	assert.Equal(t, "5", recent[0].Message)
	assert.Equal(t, "3", recent[2].Message)
	assert.Equal(t, domain.NotificationInfo, recent[0].Level)

	assert.Len(t, hub.Recent(2), 2)
}

func TestHubSubscribe(t *testing.T) {
	recorder := &stubRecorder{}
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	hub := NewHub(5, WithRecorder(recorder), WithClock(func() time.Time { return fixed }))

	ch, cancel := hub.Subscribe()
	defer cancel()

	hub.Notify(domain.Notification{Level: domain.NotificationWarning, Message: "retrying", Entity: domain.EntityOrder, EntityID: "o1"})

	select {
	case n := <-ch:
		assert.Equal(t, "retrying", n.Message)
		assert.Equal(t, fixed, n.At)
		assert.Equal(t, domain.EntityOrder, n.Entity)
	case <-time.After(time.Second):
		t.Fatal("expected notification on subscriber channel")
	}

	assert.Equal(t, []string{"warning"}, recorder.levels)
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub(5)
	ch, cancel := hub.Subscribe()

	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)

	hub.Success("after unsubscribe")
	assert.Len(t, hub.Recent(0), 1)
}

func TestHubSlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub(100)
	_, cancel := hub.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBacklog*3; i++ {
			hub.Success("tick")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("notify blocked on slow subscriber")
	}
}
