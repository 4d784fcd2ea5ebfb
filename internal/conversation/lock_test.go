package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTurnLock(t *testing.T, ttl time.Duration) (*TurnLock, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewTurnLock(client, ttl), mr
}

func TestTurnLock_Acquire(t *testing.T) {
	ctx := context.Background()

	t.Run("second acquire on a held lock is rejected", func(t *testing.T) {
		lock, _ := setupTurnLock(t, 30*time.Second)
		convID := uuid.New()

		release, err := lock.Acquire(ctx, "user-1", convID)
		require.NoError(t, err)
		defer release()

		_, err = lock.Acquire(ctx, "user-1", convID)
		assert.ErrorIs(t, err, ErrTurnInProgress)
	})

	t.Run("release frees the conversation", func(t *testing.T) {
		lock, _ := setupTurnLock(t, 30*time.Second)
		convID := uuid.New()

		release, err := lock.Acquire(ctx, "user-1", convID)
		require.NoError(t, err)
		release()

		release2, err := lock.Acquire(ctx, "user-1", convID)
		require.NoError(t, err)
		release2()
	})

	t.Run("different conversations lock independently", func(t *testing.T) {
		lock, _ := setupTurnLock(t, 30*time.Second)

		r1, err := lock.Acquire(ctx, "user-1", uuid.New())
		require.NoError(t, err)
		defer r1()

		r2, err := lock.Acquire(ctx, "user-1", uuid.New())
		require.NoError(t, err)
		defer r2()
	})

	t.Run("same conversation id for different users locks independently", func(t *testing.T) {
		lock, _ := setupTurnLock(t, 30*time.Second)
		convID := uuid.New()

		r1, err := lock.Acquire(ctx, "user-1", convID)
		require.NoError(t, err)
		defer r1()

		r2, err := lock.Acquire(ctx, "user-2", convID)
		require.NoError(t, err)
		defer r2()
	})

	t.Run("expired holder cannot release a successor's lock", func(t *testing.T) {
		lock, mr := setupTurnLock(t, time.Second)
		convID := uuid.New()

		staleRelease, err := lock.Acquire(ctx, "user-1", convID)
		require.NoError(t, err)

		mr.FastForward(2 * time.Second)

		freshRelease, err := lock.Acquire(ctx, "user-1", convID)
		require.NoError(t, err)
		defer freshRelease()

		// The stale holder's release is a no-op against the new token.
		staleRelease()
		_, err = lock.Acquire(ctx, "user-1", convID)
		assert.ErrorIs(t, err, ErrTurnInProgress)
	})
}
