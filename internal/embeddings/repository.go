package embeddings

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

// Repository persists catalog-item embeddings.
type Repository interface {
	Get(ctx context.Context, jobID uuid.UUID) (*Record, error)
	// Put inserts the record unless one already exists for the job id.
	// It reports whether this call's record became the stored one.
	Put(ctx context.Context, rec *Record) (bool, error)
	GetAll(ctx context.Context) ([]Record, error)
}

// PostgresRepository implements Repository using pgx + pgvector.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new embedding repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Get(ctx context.Context, jobID uuid.UUID) (*Record, error) {
	var rec Record
	var vec pgvector.Vector
	err := r.pool.QueryRow(ctx,
		`SELECT job_id, embedding, source_text, created_at
		 FROM job_embeddings
		 WHERE job_id = $1`,
		jobID,
	).Scan(&rec.JobID, &vec, &rec.SourceText, &rec.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("getting embedding: %w", err)
	}
	rec.Embedding = vec.Slice()
	return &rec, nil
}

// Put uses ON CONFLICT DO NOTHING so concurrent cold-start writers for the
// same item cannot double-write: the first insert wins, later ones are
// discarded and report false.
func (r *PostgresRepository) Put(ctx context.Context, rec *Record) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO job_embeddings (job_id, embedding, source_text)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (job_id) DO NOTHING`,
		rec.JobID, pgvector.NewVector(rec.Embedding), rec.SourceText,
	)
	if err != nil {
		return false, fmt.Errorf("inserting embedding: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRepository) GetAll(ctx context.Context) ([]Record, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT job_id, embedding, source_text, created_at FROM job_embeddings`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing embeddings: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var vec pgvector.Vector
		if err := rows.Scan(&rec.JobID, &vec, &rec.SourceText, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning embedding: %w", err)
		}
		rec.Embedding = vec.Slice()
		records = append(records, rec)
	}
	return records, rows.Err()
}
