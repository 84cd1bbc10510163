package notifications

import (
	"context"
	"sync"
	"testing"
	"time"

	"unihub/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memorySource is an in-memory SnapshotSource the tests mutate between
// change events.
type memorySource struct {
	mu   sync.Mutex
	msgs map[uint][]*models.Message
}

func newMemorySource() *memorySource {
	return &memorySource{msgs: make(map[uint][]*models.Message)}
}

func (m *memorySource) GetMessages(_ context.Context, chatID uint) ([]*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Message, len(m.msgs[chatID]))
	copy(out, m.msgs[chatID])
	return out, nil
}

func (m *memorySource) append(chatID uint, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs[chatID] = append(m.msgs[chatID], &models.Message{
		ID: uint(len(m.msgs[chatID]) + 1), ChatID: chatID, Text: text,
	})
}

func TestStreams_InitialSnapshot(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	source := newMemorySource()
	source.append(1, "already there")

	sub := NewStreams(rdb, source).Subscribe(context.Background(), 1)
	defer sub.Close()

	select {
	case snap := <-sub.Snapshots():
		require.Len(t, snap, 1)
		assert.Equal(t, "already there", snap[0].Text)
	case <-time.After(5 * time.Second):
		t.Fatal("no initial snapshot")
	}
	assert.Equal(t, StreamSynced, sub.State())
}

func TestStreams_RequeryOnChangeEvent(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	source := newMemorySource()
	notifier := NewNotifier(rdb)
	ctx := context.Background()

	sub := NewStreams(rdb, source).Subscribe(ctx, 7)
	defer sub.Close()

	// Drain the initial empty snapshot.
	select {
	case snap := <-sub.Snapshots():
		assert.Empty(t, snap)
	case <-time.After(5 * time.Second):
		t.Fatal("no initial snapshot")
	}

	source.append(7, "first")
	require.NoError(t, notifier.PublishChatChange(ctx, 7, ChangeMessage))

	select {
	case snap := <-sub.Snapshots():
		require.Len(t, snap, 1)
		assert.Equal(t, "first", snap[0].Text)
	case <-time.After(5 * time.Second):
		t.Fatal("no snapshot after change event")
	}
}

func TestStreams_SnapshotsCoalesce(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	source := newMemorySource()
	notifier := NewNotifier(rdb)
	ctx := context.Background()

	sub := NewStreams(rdb, source).Subscribe(ctx, 2)
	defer sub.Close()

	// Do not read until several events have been processed; the buffer
	// holds only the newest snapshot.
	for i := 0; i < 5; i++ {
		source.append(2, "msg")
		require.NoError(t, notifier.PublishChatChange(ctx, 2, ChangeMessage))
	}

	require.Eventually(t, func() bool {
		select {
		case snap := <-sub.Snapshots():
			// Whatever is delivered is a complete result set.
			return len(snap) == 5
		default:
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
}

func TestStreams_WithoutRedisDeliversOnceThenDegrades(t *testing.T) {
	t.Parallel()

	source := newMemorySource()
	source.append(3, "static")

	sub := NewStreams(nil, source).Subscribe(context.Background(), 3)
	defer sub.Close()

	select {
	case snap := <-sub.Snapshots():
		require.Len(t, snap, 1)
	case <-time.After(5 * time.Second):
		t.Fatal("no snapshot")
	}

	assert.Eventually(t, func() bool {
		return sub.State() == StreamDegraded
	}, 5*time.Second, 10*time.Millisecond)
}

func TestStreams_CloseEndsSubscription(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sub := NewStreams(rdb, newMemorySource()).Subscribe(context.Background(), 4)

	sub.Close()
	sub.Close()

	_, open := <-sub.Snapshots()
	for open {
		_, open = <-sub.Snapshots()
	}
	assert.Equal(t, StreamClosed, sub.State())
}

func TestNotifier_NilRedisIsNoop(t *testing.T) {
	t.Parallel()

	n := NewNotifier(nil)
	assert.NoError(t, n.PublishChatChange(context.Background(), 1, ChangeMessage))
	assert.NoError(t, n.PublishUser(context.Background(), 1, []byte("x")))
}
