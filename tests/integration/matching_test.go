//go:build integration

package integration

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchwise-platform/matchwise/internal/embeddings"
)

func TestRecommendEndpoint(t *testing.T) {
	env := SetupTestEnv(t)
	SeedJob(t, env, "Go Engineer Tokyo", "Tokyo", "Engineering", true)
	SeedJob(t, env, "Sales Representative", "Osaka", "Sales", false)

	status, body := PostJSON(t, env, "/api/v1/matching/recommend", map[string]any{
		"user_id": "recommend-user",
		"preferences": map[string]any{
			"location":                []string{"Tokyo"},
			"remote_work":             true,
			"excluded_job_categories": []string{"Sales"},
		},
	})
	require.Equal(t, http.StatusOK, status)

	data := body["data"].(map[string]any)
	recs := data["recommendations"].([]any)
	require.NotEmpty(t, recs)

	for _, raw := range recs {
		rec := raw.(map[string]any)
		job := rec["job"].(map[string]any)
		assert.NotEqual(t, "Sales", job["category"])
		score := rec["score"].(float64)
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 100.0)
	}
}

func TestEmbeddingFirstWriterWins(t *testing.T) {
	env := SetupTestEnv(t)
	jobID := SeedJob(t, env, "Concurrency Target", "Tokyo", "Engineering", false)
	ctx := context.Background()

	const writers = 8
	inserted := make([]bool, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ok, err := env.EmbRepo.Put(ctx, &embeddings.Record{
				JobID:      jobID,
				Embedding:  TestVector(byte(n)),
				SourceText: "race",
			})
			assert.NoError(t, err)
			inserted[n] = ok
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, ok := range inserted {
		if ok {
			wins++
		}
	}
	assert.Equal(t, 1, wins, "exactly one writer should land the row")

	rec, err := env.EmbRepo.Get(ctx, jobID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Len(t, rec.Embedding, 1536)
}
