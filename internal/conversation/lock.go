package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrTurnInProgress is returned when a second turn arrives for a conversation
// that is still processing one. Turns for the same conversation are never
// interleaved; concurrent callers are rejected, not queued.
var ErrTurnInProgress = errors.New("a turn is already in progress for this conversation")

// releaseScript deletes the lock only if this holder still owns it, so a
// slow turn that outlives its TTL cannot release a successor's lock.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// TurnLock serializes handle-turn calls per conversation using a Redis
// advisory lock. The TTL bounds how long a crashed holder can block the
// conversation.
type TurnLock struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewTurnLock creates a turn lock with the given holder TTL.
func NewTurnLock(client redis.Cmdable, ttl time.Duration) *TurnLock {
	return &TurnLock{client: client, ttl: ttl}
}

func turnKey(userID string, conversationID uuid.UUID) string {
	return fmt.Sprintf("turn:%s:%s", userID, conversationID)
}

// Acquire takes the lock for one turn and returns a release function.
// A held lock yields ErrTurnInProgress.
func (l *TurnLock) Acquire(ctx context.Context, userID string, conversationID uuid.UUID) (func(), error) {
	key := turnKey(userID, conversationID)
	token := uuid.New().String()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquiring turn lock: %w", err)
	}
	if !ok {
		return nil, ErrTurnInProgress
	}

	release := func() {
		// Release must not be tied to the request context: a canceled turn
		// still has to unlock the conversation.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.client, []string{key}, token).Err()
	}
	return release, nil
}
