package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/stitchboard/internal/domain"
)

func TestOutboxRepository_EnqueueAndPull(t *testing.T) {
	repo := NewOutboxRepository()

	first, err := repo.Enqueue(domain.OutboxMessage{AggregateType: "order", AggregateID: "o1", EventType: "order.created"})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)
	second, err := repo.Enqueue(domain.OutboxMessage{AggregateType: "order", AggregateID: "o1", EventType: "order.status_changed"})
	require.NoError(t, err)

	pending, err := repo.PullPending(10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)
	assert.Equal(t, second.ID, pending[1].ID)

	limited, err := repo.PullPending(1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestOutboxRepository_MarkSentAndStats(t *testing.T) {
	repo := NewOutboxRepository()

	saved, err := repo.Enqueue(domain.OutboxMessage{AggregateType: "order"})
	require.NoError(t, err)

	stats, err := repo.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.PendingCount)
	assert.False(t, stats.OldestPendingAt.IsZero())

	require.NoError(t, repo.MarkSent(saved.ID))
	require.NoError(t, repo.MarkFailed(saved.ID))
	assert.ErrorIs(t, repo.MarkFailed("missing"), domain.ErrOutboxPublish)

	stats, err = repo.Stats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.PendingCount)
	assert.True(t, stats.OldestPendingAt.IsZero())
}

func TestOutboxRepository_DeleteProcessedBefore(t *testing.T) {
	repo := NewOutboxRepository()

	sent, err := repo.Enqueue(domain.OutboxMessage{AggregateID: "o-1", EventType: domain.EventOrderCreated})
	require.NoError(t, err)
	failed, err := repo.Enqueue(domain.OutboxMessage{AggregateID: "o-2", EventType: domain.EventOrderCreated})
	require.NoError(t, err)
	pending, err := repo.Enqueue(domain.OutboxMessage{AggregateID: "o-3", EventType: domain.EventOrderCreated})
	require.NoError(t, err)
	require.NoError(t, repo.MarkSent(sent.ID))
	require.NoError(t, repo.MarkFailed(failed.ID))

	deleted, err := repo.DeleteProcessedBefore(time.Now().UTC().Add(-time.Hour), 10)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	deleted, err = repo.DeleteProcessedBefore(time.Now().UTC().Add(time.Minute), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	assert.ErrorIs(t, repo.MarkSent(sent.ID), domain.ErrOutboxPublish, "oldest processed record goes first")

	deleted, err = repo.DeleteProcessedBefore(time.Now().UTC().Add(time.Minute), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	left, err := repo.PullPending(10)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, pending.ID, left[0].ID)
}
