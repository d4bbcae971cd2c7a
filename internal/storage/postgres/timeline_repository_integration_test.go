package postgres

import (
	"testing"
	"time"

	"github.com/vladislavdragonenkov/stitchboard/internal/domain"
)

func TestTimelineRepository_PostgresAppendAndList(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	repo := NewTimelineRepository(store, fixedClock(now))

	if err := repo.Append(domain.TimelineEvent{
		OrderID:  "order-1",
		Type:     domain.TimelineOrderStatusChanged,
		Reason:   "pending -> completed",
		Occurred: now.Add(time.Minute),
	}); err != nil {
		t.Fatalf("append status change: %v", err)
	}
	// Пустое время заполняется часами репозитория.
	if err := repo.Append(domain.TimelineEvent{
		OrderID: "order-1",
		Type:    domain.TimelineOrderCreated,
	}); err != nil {
		t.Fatalf("append created: %v", err)
	}

	events, err := repo.List("order-1")
	if err != nil {
		t.Fatalf("list timeline events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 timeline events, got %d", len(events))
	}
	if events[0].Type != domain.TimelineOrderCreated || !events[0].Occurred.Equal(now) {
		t.Fatalf("expected created event first at %s, got %+v", now, events[0])
	}
	if events[1].Reason != "pending -> completed" {
		t.Fatalf("unexpected second event: %+v", events[1])
	}

	empty, err := repo.List("missing-order")
	if err != nil {
		t.Fatalf("list for missing order should not fail: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no events for missing order, got %d", len(empty))
	}
}
