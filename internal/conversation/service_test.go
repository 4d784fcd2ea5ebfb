package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchwise-platform/matchwise/internal/catalog"
	"github.com/matchwise-platform/matchwise/internal/matching"
	"github.com/matchwise-platform/matchwise/internal/preferences"
	"github.com/matchwise-platform/matchwise/internal/provider"
)

type memoryTranscripts struct {
	store      map[string]*Transcript
	saveCalls  int
	failOnSave int // 1-based save call that fails; 0 disables
}

func newMemoryTranscripts() *memoryTranscripts {
	return &memoryTranscripts{store: make(map[string]*Transcript)}
}

func transcriptKey(userID string, conversationID uuid.UUID) string {
	return userID + "/" + conversationID.String()
}

func (r *memoryTranscripts) Load(ctx context.Context, userID string, conversationID uuid.UUID) (*Transcript, error) {
	t, ok := r.store[transcriptKey(userID, conversationID)]
	if !ok {
		return nil, nil
	}
	cp := *t
	cp.Messages = append([]Message(nil), t.Messages...)
	return &cp, nil
}

func (r *memoryTranscripts) Save(ctx context.Context, t *Transcript) error {
	r.saveCalls++
	if r.failOnSave != 0 && r.saveCalls == r.failOnSave {
		return errors.New("connection reset")
	}
	cp := *t
	cp.Messages = append([]Message(nil), t.Messages...)
	cp.UpdatedAt = time.Now()
	r.store[transcriptKey(t.UserID, t.ConversationID)] = &cp
	return nil
}

func (r *memoryTranscripts) ListByUser(ctx context.Context, userID string) ([]Transcript, error) {
	var out []Transcript
	for _, t := range r.store {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *memoryTranscripts) Delete(ctx context.Context, userID string, conversationID uuid.UUID) (bool, error) {
	key := transcriptKey(userID, conversationID)
	if _, ok := r.store[key]; !ok {
		return false, nil
	}
	delete(r.store, key)
	return true, nil
}

type scriptedChat struct {
	reply string
	err   error
	calls int
}

func (c *scriptedChat) CompleteChat(ctx context.Context, messages []provider.Message, systemPrompt string) (string, error) {
	c.calls++
	return c.reply, c.err
}

func (c *scriptedChat) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1}, nil
}

func (c *scriptedChat) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1}
	}
	return out, nil
}

type fakeExtractor struct {
	profile *preferences.Profile
	err     error
	calls   int
}

func (e *fakeExtractor) Extract(ctx context.Context, messages []provider.Message) (*preferences.Profile, error) {
	e.calls++
	return e.profile, e.err
}

type fakeRecommender struct {
	recs  []matching.Recommendation
	err   error
	calls int
}

func (r *fakeRecommender) Recommend(ctx context.Context, userID string, profile *preferences.Profile, topK int) ([]matching.Recommendation, error) {
	r.calls++
	return r.recs, r.err
}

type serviceFixture struct {
	svc         *Service
	repo        *memoryTranscripts
	chat        *scriptedChat
	extractor   *fakeExtractor
	recommender *fakeRecommender
	redis       *miniredis.Miniredis
	client      *redis.Client
}

func setupService(t *testing.T, extractAfterTurns int) *serviceFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	f := &serviceFixture{
		repo:        newMemoryTranscripts(),
		chat:        &scriptedChat{reply: "Tell me more about what you are looking for."},
		extractor:   &fakeExtractor{profile: &preferences.Profile{Skills: []string{"Go"}}},
		recommender: &fakeRecommender{recs: []matching.Recommendation{{Job: catalog.Job{ID: uuid.New()}, Score: 72.5, Rank: 1}}},
		redis:       mr,
		client:      client,
	}
	lock := NewTurnLock(client, 30*time.Second)
	f.svc = NewService(f.repo, f.chat, f.extractor, f.recommender, lock, nil, extractAfterTurns)
	return f
}

func TestService_HandleTurn(t *testing.T) {
	ctx := context.Background()

	t.Run("first turn creates a conversation and persists both messages", func(t *testing.T) {
		f := setupService(t, 6)

		result, err := f.svc.HandleTurn(ctx, "user-1", nil, "I'm looking for a backend role.")
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, result.ConversationID)
		assert.Equal(t, f.chat.reply, result.Reply)
		assert.Equal(t, PhaseCollecting, result.Phase)
		assert.Empty(t, result.Recommendations)

		saved, err := f.repo.Load(ctx, "user-1", result.ConversationID)
		require.NoError(t, err)
		require.NotNil(t, saved)
		require.Len(t, saved.Messages, 2)
		assert.Equal(t, RoleUser, saved.Messages[0].Role)
		assert.Equal(t, "I'm looking for a backend role.", saved.Messages[0].Content)
		assert.Equal(t, RoleAssistant, saved.Messages[1].Role)
	})

	t.Run("later turns append to the same transcript", func(t *testing.T) {
		f := setupService(t, 20)

		first, err := f.svc.HandleTurn(ctx, "user-1", nil, "hello")
		require.NoError(t, err)

		second, err := f.svc.HandleTurn(ctx, "user-1", &first.ConversationID, "something remote please")
		require.NoError(t, err)
		assert.Equal(t, first.ConversationID, second.ConversationID)

		saved, _ := f.repo.Load(ctx, "user-1", first.ConversationID)
		require.Len(t, saved.Messages, 4)
	})

	t.Run("extraction fires at the threshold and not before", func(t *testing.T) {
		f := setupService(t, 6)

		var convID *uuid.UUID
		for i := 0; i < 2; i++ {
			result, err := f.svc.HandleTurn(ctx, "user-1", convID, "turn")
			require.NoError(t, err)
			convID = &result.ConversationID
		}
		// Four messages so far.
		assert.Equal(t, 0, f.extractor.calls)

		result, err := f.svc.HandleTurn(ctx, "user-1", convID, "turn")
		require.NoError(t, err)
		assert.Equal(t, 1, f.extractor.calls)
		assert.Equal(t, 1, f.recommender.calls)
		assert.Equal(t, PhaseReady, result.Phase)
		require.Len(t, result.Recommendations, 1)
		assert.Equal(t, 72.5, result.Recommendations[0].Score)
	})

	t.Run("extraction keeps firing on turns past the threshold", func(t *testing.T) {
		f := setupService(t, 2)

		result, err := f.svc.HandleTurn(ctx, "user-1", nil, "turn")
		require.NoError(t, err)
		assert.Equal(t, 1, f.extractor.calls)

		_, err = f.svc.HandleTurn(ctx, "user-1", &result.ConversationID, "turn")
		require.NoError(t, err)
		assert.Equal(t, 2, f.extractor.calls)
	})

	t.Run("extraction failure is swallowed and the reply survives", func(t *testing.T) {
		f := setupService(t, 2)
		f.extractor.err = errors.New("model unavailable")

		result, err := f.svc.HandleTurn(ctx, "user-1", nil, "turn")
		require.NoError(t, err)
		assert.Equal(t, f.chat.reply, result.Reply)
		assert.Equal(t, PhaseExtracting, result.Phase)
		assert.Empty(t, result.Recommendations)
		assert.Equal(t, 0, f.recommender.calls)
	})

	t.Run("ranking failure after extraction is also non-fatal", func(t *testing.T) {
		f := setupService(t, 2)
		f.recommender.err = errors.New("catalog unavailable")

		result, err := f.svc.HandleTurn(ctx, "user-1", nil, "turn")
		require.NoError(t, err)
		assert.Equal(t, f.chat.reply, result.Reply)
		assert.Empty(t, result.Recommendations)
	})

	t.Run("provider failure fails the turn before any assistant write", func(t *testing.T) {
		f := setupService(t, 6)
		f.chat.err = &provider.Error{Kind: provider.KindUnavailable, Op: "chat", Err: errors.New("timeout")}

		_, err := f.svc.HandleTurn(ctx, "user-1", nil, "hello")
		require.Error(t, err)

		// The user turn was persisted before the failure.
		var saved *Transcript
		for _, tr := range f.repo.store {
			saved = tr
		}
		require.NotNil(t, saved)
		require.Len(t, saved.Messages, 1)
		assert.Equal(t, RoleUser, saved.Messages[0].Role)
	})

	t.Run("assistant save failure still returns the reply", func(t *testing.T) {
		f := setupService(t, 6)
		f.repo.failOnSave = 2 // user turn persists, assistant turn does not

		r1, err := f.svc.HandleTurn(ctx, "user-1", nil, "hello")
		require.NoError(t, err)
		assert.Equal(t, f.chat.reply, r1.Reply)

		saved, _ := f.repo.Load(ctx, "user-1", r1.ConversationID)
		require.Len(t, saved.Messages, 1)

		// The next turn rewrites the full array, healing the transcript.
		_, err = f.svc.HandleTurn(ctx, "user-1", &r1.ConversationID, "more")
		require.NoError(t, err)
		saved, _ = f.repo.Load(ctx, "user-1", r1.ConversationID)
		require.Len(t, saved.Messages, 3)
	})

	t.Run("concurrent turn on the same conversation is rejected", func(t *testing.T) {
		f := setupService(t, 6)
		convID := uuid.New()

		lock := NewTurnLock(f.client, 30*time.Second)
		release, err := lock.Acquire(ctx, "user-1", convID)
		require.NoError(t, err)
		defer release()

		_, err = f.svc.HandleTurn(ctx, "user-1", &convID, "hello")
		assert.ErrorIs(t, err, ErrTurnInProgress)
		assert.Equal(t, 0, f.chat.calls)
	})

	t.Run("lock is released after the turn completes", func(t *testing.T) {
		f := setupService(t, 6)

		first, err := f.svc.HandleTurn(ctx, "user-1", nil, "hello")
		require.NoError(t, err)

		_, err = f.svc.HandleTurn(ctx, "user-1", &first.ConversationID, "again")
		require.NoError(t, err)
	})
}

func TestService_ExtractAndRecommend(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown conversation", func(t *testing.T) {
		f := setupService(t, 6)

		_, _, err := f.svc.ExtractAndRecommend(ctx, "user-1", uuid.New())
		assert.ErrorIs(t, err, ErrConversationNotFound)
	})

	t.Run("returns profile and recommendations", func(t *testing.T) {
		f := setupService(t, 20)

		first, err := f.svc.HandleTurn(ctx, "user-1", nil, "I want Go work")
		require.NoError(t, err)

		profile, recs, err := f.svc.ExtractAndRecommend(ctx, "user-1", first.ConversationID)
		require.NoError(t, err)
		assert.Equal(t, []string{"Go"}, profile.Skills)
		require.Len(t, recs, 1)
	})

	t.Run("extraction failure is surfaced here", func(t *testing.T) {
		f := setupService(t, 20)
		first, err := f.svc.HandleTurn(ctx, "user-1", nil, "hello")
		require.NoError(t, err)

		f.extractor.err = errors.New("model unavailable")
		_, _, err = f.svc.ExtractAndRecommend(ctx, "user-1", first.ConversationID)
		assert.Error(t, err)
	})
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	f := setupService(t, 6)

	first, err := f.svc.HandleTurn(ctx, "user-1", nil, "hello")
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, "user-1", first.ConversationID))
	assert.ErrorIs(t, f.svc.Delete(ctx, "user-1", first.ConversationID), ErrConversationNotFound)
}
