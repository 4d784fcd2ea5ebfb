//go:build integration

package integration

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatRoundTrip(t *testing.T) {
	env := SetupTestEnv(t)

	status, body := PostJSON(t, env, "/api/v1/conversations/chat", map[string]any{
		"user_id": "roundtrip-user",
		"message": "I'm looking for a backend position.",
	})
	require.Equal(t, http.StatusOK, status)

	data := body["data"].(map[string]any)
	convID := data["conversation_id"].(string)
	require.NotEmpty(t, convID)
	assert.Equal(t, env.Provider.Reply, data["reply"])
	assert.Equal(t, "collecting", data["phase"])

	// The transcript holds both turns in order.
	saved, err := env.ConvRepo.Load(context.Background(), "roundtrip-user", uuid.MustParse(convID))
	require.NoError(t, err)
	require.NotNil(t, saved)
	require.Len(t, saved.Messages, 2)
	assert.Equal(t, "user", saved.Messages[0].Role)
	assert.Equal(t, "I'm looking for a backend position.", saved.Messages[0].Content)
	assert.Equal(t, "assistant", saved.Messages[1].Role)

	// Follow-up turn appends to the same conversation.
	status, body = PostJSON(t, env, "/api/v1/conversations/chat", map[string]any{
		"user_id":         "roundtrip-user",
		"conversation_id": convID,
		"message":         "Preferably remote.",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, convID, body["data"].(map[string]any)["conversation_id"])

	saved, err = env.ConvRepo.Load(context.Background(), "roundtrip-user", uuid.MustParse(convID))
	require.NoError(t, err)
	require.Len(t, saved.Messages, 4)
}

func TestChatExtractionTail(t *testing.T) {
	env := SetupTestEnv(t)
	SeedJob(t, env, "Go Backend Engineer", "Tokyo", "Engineering", true)

	var convID string
	var lastBody map[string]any
	for i := 0; i < 3; i++ {
		req := map[string]any{"user_id": "tail-user", "message": "I want Go work in Tokyo"}
		if convID != "" {
			req["conversation_id"] = convID
		}
		status, body := PostJSON(t, env, "/api/v1/conversations/chat", req)
		require.Equal(t, http.StatusOK, status)
		lastBody = body
		convID = body["data"].(map[string]any)["conversation_id"].(string)
	}

	// Third exchange crosses the six message threshold.
	data := lastBody["data"].(map[string]any)
	assert.Equal(t, "ready", data["phase"])
	recs, ok := data["recommendations"].([]any)
	require.True(t, ok, "expected recommendations on the threshold turn")
	require.NotEmpty(t, recs)
}

func TestConcurrentTurnRejected(t *testing.T) {
	env := SetupTestEnv(t)
	convID := uuid.New()

	// Hold the turn lock as an in-flight turn would.
	err := env.RedisClient.SetNX(context.Background(),
		"turn:busy-user:"+convID.String(), "other-holder", 30*time.Second).Err()
	require.NoError(t, err)

	status, _ := PostJSON(t, env, "/api/v1/conversations/chat", map[string]any{
		"user_id":         "busy-user",
		"conversation_id": convID.String(),
		"message":         "hello",
	})
	assert.Equal(t, http.StatusConflict, status)
}

func TestListAndDeleteConversations(t *testing.T) {
	env := SetupTestEnv(t)

	status, body := PostJSON(t, env, "/api/v1/conversations/chat", map[string]any{
		"user_id": "listing-user",
		"message": "hello",
	})
	require.Equal(t, http.StatusOK, status)
	convID := body["data"].(map[string]any)["conversation_id"].(string)

	status, body = GetJSON(t, env, "/api/v1/conversations/listing-user")
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body["data"].([]any), 1)

	status, _ = DeleteJSON(t, env, "/api/v1/conversations/listing-user/"+convID)
	require.Equal(t, http.StatusOK, status)

	status, _ = DeleteJSON(t, env, "/api/v1/conversations/listing-user/"+convID)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestExtractPreferencesEndpoint(t *testing.T) {
	env := SetupTestEnv(t)
	SeedJob(t, env, "Platform Engineer", "Tokyo", "Engineering", true)

	status, body := PostJSON(t, env, "/api/v1/conversations/chat", map[string]any{
		"user_id": "extract-user",
		"message": "Remote Go work please",
	})
	require.Equal(t, http.StatusOK, status)
	convID := body["data"].(map[string]any)["conversation_id"].(string)

	status, body = PostJSON(t, env, "/api/v1/conversations/preferences", map[string]any{
		"user_id":         "extract-user",
		"conversation_id": convID,
	})
	require.Equal(t, http.StatusOK, status)

	data := body["data"].(map[string]any)
	profile := data["profile"].(map[string]any)
	assert.Equal(t, []any{"Go"}, profile["skills"])

	status, _ = PostJSON(t, env, "/api/v1/conversations/preferences", map[string]any{
		"user_id":         "extract-user",
		"conversation_id": uuid.NewString(),
	})
	assert.Equal(t, http.StatusNotFound, status)
}
