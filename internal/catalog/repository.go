package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads job postings. No write methods: the catalog is owned by
// the posting CRUD surface, not the matching engine.
type Repository interface {
	ListPublished(ctx context.Context) ([]Job, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Job, error)
}

// PostgresRepository implements Repository using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new catalog repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const jobColumns = `id, title, company, description, location, employment_type,
       salary_min, salary_max, remote, category, industry, company_type,
       company_size, skills, tags, status, posted_at, created_at, updated_at`

func (r *PostgresRepository) ListPublished(ctx context.Context) ([]Job, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+jobColumns+`
		 FROM jobs
		 WHERE status = 'published'
		 ORDER BY posted_at DESC, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing published jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning job: %w", err)
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Job, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id,
	)
	j, err := scanJob(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("getting job: %w", err)
	}
	return j, nil
}

func scanJob(row pgx.Row) (*Job, error) {
	var j Job
	err := row.Scan(
		&j.ID, &j.Title, &j.Company, &j.Description, &j.Location, &j.EmploymentType,
		&j.SalaryMin, &j.SalaryMax, &j.Remote, &j.Category, &j.Industry, &j.CompanyType,
		&j.CompanySize, &j.Skills, &j.Tags, &j.Status, &j.PostedAt, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}
