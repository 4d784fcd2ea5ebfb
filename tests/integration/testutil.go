//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/matchwise-platform/matchwise/internal/api"
	"github.com/matchwise-platform/matchwise/internal/catalog"
	"github.com/matchwise-platform/matchwise/internal/config"
	"github.com/matchwise-platform/matchwise/internal/conversation"
	"github.com/matchwise-platform/matchwise/internal/embeddings"
	"github.com/matchwise-platform/matchwise/internal/matching"
	"github.com/matchwise-platform/matchwise/internal/preferences"
	"github.com/matchwise-platform/matchwise/internal/provider"
)

const embeddingDim = 1536

// stubProvider stands in for the OpenAI provider so integration tests
// exercise the service and storage layers without network calls.
type stubProvider struct {
	Reply          string
	ExtractionJSON string
}

func (p *stubProvider) CompleteChat(ctx context.Context, messages []provider.Message, systemPrompt string) (string, error) {
	return p.Reply, nil
}

func (p *stubProvider) CompleteChatWithOptions(ctx context.Context, messages []provider.Message, systemPrompt string, opts provider.ChatOptions) (string, error) {
	return p.ExtractionJSON, nil
}

func (p *stubProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	return TestVector(byte(len(text))), nil
}

func (p *stubProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = TestVector(byte(len(text)))
	}
	return out, nil
}

// TestVector builds a deterministic vector of the schema's dimensionality.
func TestVector(seed byte) []float32 {
	v := make([]float32, embeddingDim)
	v[0] = 1
	v[1] = float32(seed) / 255
	return v
}

type TestEnv struct {
	Pool        *pgxpool.Pool
	RedisClient *redis.Client
	Server      *httptest.Server
	Provider    *stubProvider
	ConvRepo    conversation.Repository
	EmbRepo     embeddings.Repository
}

var testEnv *TestEnv

func SetupTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	if testEnv != nil {
		return testEnv
	}

	ctx := context.Background()

	// Start PostgreSQL container
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "pgvector/pgvector:0.8.1-pg16",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "matchwise_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}
	t.Cleanup(func() { pgContainer.Terminate(ctx) })

	pgHost, _ := pgContainer.Host(ctx)
	pgPort, _ := pgContainer.MappedPort(ctx, "5432")

	// Start Redis container
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting redis container: %v", err)
	}
	t.Cleanup(func() { redisContainer.Terminate(ctx) })

	redisHost, _ := redisContainer.Host(ctx)
	redisPort, _ := redisContainer.MappedPort(ctx, "6379")

	// Connect to PostgreSQL
	dsn := fmt.Sprintf("postgres://test:test@%s:%s/matchwise_test?sslmode=disable", pgHost, pgPort.Port())
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connecting to postgres: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	// Enable extensions
	_, err = pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS "uuid-ossp"; CREATE EXTENSION IF NOT EXISTS "vector";`)
	if err != nil {
		t.Fatalf("enabling extensions: %v", err)
	}

	// Run migrations
	migrationsPath := getMigrationsPath()
	m, err := migrate.New(
		fmt.Sprintf("file://%s", migrationsPath),
		dsn,
	)
	if err != nil {
		t.Fatalf("creating migrator: %v", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("running migrations: %v", err)
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", redisHost, redisPort.Port()),
	})
	t.Cleanup(func() { redisClient.Close() })

	// Wire services against the stub provider
	prov := &stubProvider{
		Reply:          "Tell me more about the roles you are interested in.",
		ExtractionJSON: `{"skills": ["Go"], "location": ["Tokyo"], "remote_work": true}`,
	}

	matchingCfg := config.MatchingConfig{
		DefaultTopK:       10,
		ExtractAfterTurns: 6,
		LocationBoost:     10,
		EmploymentBoost:   5,
		RemoteBoost:       5,
		SalaryBoost:       8,
	}

	catalogRepo := catalog.NewPostgresRepository(pool)
	embRepo := embeddings.NewPostgresRepository(pool)
	cache := embeddings.NewCache(embRepo, prov)
	ranker := matching.NewRanker(matchingCfg)
	vectorizer := preferences.NewVectorizer(prov)
	matchSvc := matching.NewService(ranker, vectorizer, catalogRepo, cache, nil, matchingCfg.DefaultTopK)
	matchHandler := matching.NewHandler(matchSvc)

	convRepo := conversation.NewPostgresRepository(pool)
	extractor := preferences.NewExtractor(prov)
	turnLock := conversation.NewTurnLock(redisClient, 30*time.Second)
	convSvc := conversation.NewService(convRepo, prov, extractor, matchSvc, turnLock, nil, matchingCfg.ExtractAfterTurns)
	convHandler := conversation.NewHandler(convSvc)

	router := api.NewRouter(pool, nil, api.RouterConfig{}, api.HandlerSet{
		Chat:               convHandler.Chat,
		ListConversations:  convHandler.List,
		DeleteConversation: convHandler.Delete,
		ExtractPreferences: convHandler.ExtractPreferences,

		Recommend: matchHandler.Recommend,
	})

	server := httptest.NewServer(router)
	t.Cleanup(func() { server.Close() })

	testEnv = &TestEnv{
		Pool:        pool,
		RedisClient: redisClient,
		Server:      server,
		Provider:    prov,
		ConvRepo:    convRepo,
		EmbRepo:     embRepo,
	}

	return testEnv
}

func getMigrationsPath() string {
	paths := []string{
		"../../migrations",
		"../../../migrations",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	log.Fatal("migrations directory not found")
	return ""
}

// Helper functions

// SeedJob inserts a published posting and returns its id.
func SeedJob(t *testing.T, env *TestEnv, title, location, category string, remote bool) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := env.Pool.Exec(context.Background(),
		`INSERT INTO jobs (id, title, company, location, category, remote, status)
		 VALUES ($1, $2, 'Acme', $3, $4, $5, 'published')`,
		id, title, location, category, remote,
	)
	if err != nil {
		t.Fatalf("seeding job: %v", err)
	}
	return id
}

func PostJSON(t *testing.T, env *TestEnv, path string, body any) (int, map[string]any) {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshaling request: %v", err)
	}
	resp, err := http.Post(env.Server.URL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("posting %s: %v", path, err)
	}
	defer resp.Body.Close()
	return resp.StatusCode, decodeBody(t, resp.Body)
}

func GetJSON(t *testing.T, env *TestEnv, path string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Get(env.Server.URL + path)
	if err != nil {
		t.Fatalf("getting %s: %v", path, err)
	}
	defer resp.Body.Close()
	return resp.StatusCode, decodeBody(t, resp.Body)
}

func DeleteJSON(t *testing.T, env *TestEnv, path string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodDelete, env.Server.URL+path, nil)
	if err != nil {
		t.Fatalf("building delete request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("deleting %s: %v", path, err)
	}
	defer resp.Body.Close()
	return resp.StatusCode, decodeBody(t, resp.Body)
}

func decodeBody(t *testing.T, r io.Reader) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("reading response body: %v", err)
	}
	var out map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("decoding response %q: %v", raw, err)
		}
	}
	return out
}
