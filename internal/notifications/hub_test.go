package notifications

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_RegisterAndUnregister(t *testing.T) {
	t.Parallel()
	h := NewHub()

	client, err := h.Register(1, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint{1}, h.ConnectedUsers())

	h.UnregisterClient(client)
	assert.Empty(t, h.ConnectedUsers())

	// Unregistering twice is harmless.
	h.UnregisterClient(client)
}

func TestHub_PerUserConnectionLimit(t *testing.T) {
	t.Parallel()
	h := NewHub()

	for i := 0; i < maxConnsPerUser; i++ {
		_, err := h.Register(1, nil)
		require.NoError(t, err)
	}
	_, err := h.Register(1, nil)
	assert.Error(t, err)
}

func TestClient_TrySendDropsWhenBufferFull(t *testing.T) {
	t.Parallel()
	h := NewHub()

	client, err := h.Register(1, nil)
	require.NoError(t, err)

	payload := []byte("ping")
	for i := 0; i < cap(client.Send); i++ {
		require.True(t, client.TrySend(payload))
	}
	assert.False(t, client.TrySend(payload))
}

func TestHub_TrySendAfterShutdownDoesNotPanic(t *testing.T) {
	t.Parallel()
	h := NewHub()

	client, err := h.Register(1, nil)
	require.NoError(t, err)
	require.NoError(t, h.Shutdown(context.Background()))

	// A snapshot applier can still hold the client after shutdown closed
	// its channel; the send must degrade to a drop, not crash.
	assert.NotPanics(t, func() {
		assert.False(t, client.TrySend([]byte("late snapshot")))
	})
	h.SendToUser(1, []byte("ignored"))
}
