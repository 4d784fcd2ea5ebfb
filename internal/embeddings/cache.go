package embeddings

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/matchwise-platform/matchwise/internal/catalog"
	"github.com/matchwise-platform/matchwise/internal/metrics"
	"github.com/matchwise-platform/matchwise/internal/provider"
)

// Cache serves catalog-item embeddings, computing them lazily on first use.
// A cache hit is returned unconditionally; staleness against the item's
// current attributes is a collaborator concern, not checked here.
type Cache struct {
	repo     Repository
	embedder provider.SemanticProvider
}

// NewCache creates an embedding cache.
func NewCache(repo Repository, embedder provider.SemanticProvider) *Cache {
	return &Cache{repo: repo, embedder: embedder}
}

// GetOrCreate returns the stored vector for the job, computing and persisting
// it on miss. When two cold-start callers race, the repository keeps exactly
// one record; the losing caller still gets a valid vector back.
func (c *Cache) GetOrCreate(ctx context.Context, job *catalog.Job) ([]float32, error) {
	rec, err := c.repo.Get(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		return rec.Embedding, nil
	}

	text := job.EmbeddingText()
	vector, err := c.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding job %s: %w", job.ID, err)
	}

	inserted, err := c.repo.Put(ctx, &Record{JobID: job.ID, Embedding: vector, SourceText: text})
	if err != nil {
		return nil, err
	}
	if inserted {
		metrics.EmbeddingsComputedTotal.Inc()
	}
	return vector, nil
}

// EnsureAll fills missing cache entries for the whole catalog in one batched
// provider call. Used at cold start, when matching cannot proceed without at
// least one embedded item.
func (c *Cache) EnsureAll(ctx context.Context, jobs []catalog.Job) error {
	existing, err := c.repo.GetAll(ctx)
	if err != nil {
		return err
	}
	cached := make(map[uuid.UUID]struct{}, len(existing))
	for _, rec := range existing {
		cached[rec.JobID] = struct{}{}
	}

	var missing []catalog.Job
	for _, j := range jobs {
		if _, ok := cached[j.ID]; !ok {
			missing = append(missing, j)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	texts := make([]string, len(missing))
	for i := range missing {
		texts[i] = missing[i].EmbeddingText()
	}

	vectors, err := c.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("batch embedding %d jobs: %w", len(missing), err)
	}

	for i, j := range missing {
		inserted, err := c.repo.Put(ctx, &Record{JobID: j.ID, Embedding: vectors[i], SourceText: texts[i]})
		if err != nil {
			return err
		}
		if inserted {
			metrics.EmbeddingsComputedTotal.Inc()
		}
	}

	slog.Info("embedding cache warmed", "missing", len(missing), "total", len(jobs))
	return nil
}

// Snapshot returns all cached vectors keyed by job id.
func (c *Cache) Snapshot(ctx context.Context) (map[uuid.UUID][]float32, error) {
	records, err := c.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	vectors := make(map[uuid.UUID][]float32, len(records))
	for _, rec := range records {
		vectors[rec.JobID] = rec.Embedding
	}
	return vectors, nil
}
