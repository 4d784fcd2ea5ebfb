package matching

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/matchwise-platform/matchwise/internal/catalog"
	"github.com/matchwise-platform/matchwise/internal/embeddings"
	"github.com/matchwise-platform/matchwise/internal/events"
	"github.com/matchwise-platform/matchwise/internal/metrics"
	"github.com/matchwise-platform/matchwise/internal/preferences"
)

// Service runs the profile → query vector → ranked catalog pipeline.
type Service struct {
	ranker      *Ranker
	vectorizer  *preferences.Vectorizer
	catalogRepo catalog.Repository
	cache       *embeddings.Cache
	publisher   *events.Publisher
	defaultTopK int
}

// NewService creates a matching service. The publisher may be nil when event
// publishing is disabled.
func NewService(
	ranker *Ranker,
	vectorizer *preferences.Vectorizer,
	catalogRepo catalog.Repository,
	cache *embeddings.Cache,
	publisher *events.Publisher,
	defaultTopK int,
) *Service {
	return &Service{
		ranker:      ranker,
		vectorizer:  vectorizer,
		catalogRepo: catalogRepo,
		cache:       cache,
		publisher:   publisher,
		defaultTopK: defaultTopK,
	}
}

// Recommend ranks the published catalog against the profile. An empty catalog
// yields an empty result, not an error. topK <= 0 falls back to the
// configured default.
func (s *Service) Recommend(ctx context.Context, userID string, profile *preferences.Profile, topK int) ([]Recommendation, error) {
	if topK <= 0 {
		topK = s.defaultTopK
	}
	metrics.MatchRequestsTotal.Inc()

	jobs, err := s.catalogRepo.ListPublished(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	if len(jobs) == 0 {
		metrics.RecommendationsReturned.Observe(0)
		return nil, nil
	}

	queryVector, err := s.vectorizer.Vectorize(ctx, profile)
	if err != nil {
		return nil, err
	}

	vectors, err := s.cache.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		// Cold start: nothing cached yet, warm the whole catalog in one batch.
		if err := s.cache.EnsureAll(ctx, jobs); err != nil {
			return nil, err
		}
		if vectors, err = s.cache.Snapshot(ctx); err != nil {
			return nil, err
		}
	} else {
		// Fill gaps lazily for items posted after the last warm-up.
		for i := range jobs {
			if _, ok := vectors[jobs[i].ID]; ok {
				continue
			}
			vec, err := s.cache.GetOrCreate(ctx, &jobs[i])
			if err != nil {
				return nil, err
			}
			vectors[jobs[i].ID] = vec
		}
	}

	recs := s.ranker.Rank(queryVector, profile, jobs, vectors, topK)
	metrics.RecommendationsReturned.Observe(float64(len(recs)))

	if s.publisher != nil {
		event := events.MatchCompleted{
			UserID:      userID,
			JobsRanked:  len(jobs),
			Returned:    len(recs),
			CompletedAt: time.Now(),
		}
		if len(recs) > 0 {
			event.TopScore = recs[0].Score
		}
		if err := s.publisher.PublishMatchCompleted(ctx, event); err != nil {
			slog.Warn("publishing match event", "error", err, "user_id", userID)
		}
	}

	return recs, nil
}
