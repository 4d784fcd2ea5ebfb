package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/matchwise-platform/matchwise/internal/api"
	"github.com/matchwise-platform/matchwise/internal/catalog"
	"github.com/matchwise-platform/matchwise/internal/config"
	"github.com/matchwise-platform/matchwise/internal/conversation"
	"github.com/matchwise-platform/matchwise/internal/database"
	"github.com/matchwise-platform/matchwise/internal/embeddings"
	"github.com/matchwise-platform/matchwise/internal/events"
	"github.com/matchwise-platform/matchwise/internal/matching"
	mw "github.com/matchwise-platform/matchwise/internal/middleware"
	"github.com/matchwise-platform/matchwise/internal/preferences"
	"github.com/matchwise-platform/matchwise/internal/provider"
	iredis "github.com/matchwise-platform/matchwise/internal/redis"
	"github.com/matchwise-platform/matchwise/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	ctx := context.Background()

	// PostgreSQL
	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.RunMigrations(cfg.DB.DSN(), "migrations"); err != nil {
		slog.Error("running migrations", "error", err)
		os.Exit(1)
	}

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// NATS JetStream (optional)
	var eventsClient *events.Client
	var publisher *events.Publisher
	if cfg.NATS.Enabled {
		eventsClient, err = events.NewClient(ctx, cfg.NATS)
		if err != nil {
			slog.Error("connecting to nats", "error", err)
			os.Exit(1)
		}
		defer eventsClient.Close()
		publisher = events.NewPublisher(eventsClient.JetStream())
	}

	// OpenAI provider
	prov, err := provider.NewOpenAI(cfg.OpenAI)
	if err != nil {
		slog.Error("creating openai provider", "error", err)
		os.Exit(1)
	}

	// Matching pipeline
	catalogRepo := catalog.NewPostgresRepository(pool)
	embeddingCache := embeddings.NewCache(embeddings.NewPostgresRepository(pool), prov)
	ranker := matching.NewRanker(cfg.Matching)
	vectorizer := preferences.NewVectorizer(prov)
	matchSvc := matching.NewService(ranker, vectorizer, catalogRepo, embeddingCache, publisher, cfg.Matching.DefaultTopK)
	matchHandler := matching.NewHandler(matchSvc)

	// Conversations
	convRepo := conversation.NewPostgresRepository(pool)
	extractor := preferences.NewExtractor(prov)
	turnLock := conversation.NewTurnLock(redisClient, time.Duration(cfg.Matching.TurnLockTTLSec)*time.Second)
	convSvc := conversation.NewService(convRepo, prov, extractor, matchSvc, turnLock, publisher, cfg.Matching.ExtractAfterTurns)
	convHandler := conversation.NewHandler(convSvc)

	// Router
	chatLimiter := mw.NewRateLimiter(redisClient, "chat", cfg.Matching.ChatRateLimit, cfg.Matching.ChatRateWindowSec)
	router := api.NewRouter(pool, eventsClient, api.RouterConfig{
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
		ChatRateLimiter:    chatLimiter.Middleware,
	}, api.HandlerSet{
		Chat:               convHandler.Chat,
		ListConversations:  convHandler.List,
		DeleteConversation: convHandler.Delete,
		ExtractPreferences: convHandler.ExtractPreferences,

		Recommend: matchHandler.Recommend,
	})

	// Start server
	srv := server.New(cfg.Server, router)
	if err := srv.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
