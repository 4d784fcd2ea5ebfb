package conversation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists conversation transcripts.
type Repository interface {
	// Load returns the transcript, or nil when it does not exist.
	Load(ctx context.Context, userID string, conversationID uuid.UUID) (*Transcript, error)
	// Save upserts the full transcript in a single statement.
	Save(ctx context.Context, t *Transcript) error
	// ListByUser returns the user's transcripts, most recently updated first.
	ListByUser(ctx context.Context, userID string) ([]Transcript, error)
	// Delete removes a transcript, reporting whether it existed.
	Delete(ctx context.Context, userID string, conversationID uuid.UUID) (bool, error)
}

// PostgresRepository implements Repository using pgx. Messages are stored as
// a jsonb array; each Save writes the whole array, so a save is atomic and a
// half-appended transcript cannot be observed.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new conversation repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Load(ctx context.Context, userID string, conversationID uuid.UUID) (*Transcript, error) {
	var t Transcript
	var raw []byte
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, conversation_id, messages, created_at, updated_at
		 FROM conversations
		 WHERE user_id = $1 AND conversation_id = $2`,
		userID, conversationID,
	).Scan(&t.UserID, &t.ConversationID, &raw, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("loading conversation: %w", err)
	}
	if err := json.Unmarshal(raw, &t.Messages); err != nil {
		return nil, fmt.Errorf("decoding messages: %w", err)
	}
	return &t, nil
}

func (r *PostgresRepository) Save(ctx context.Context, t *Transcript) error {
	raw, err := json.Marshal(t.Messages)
	if err != nil {
		return fmt.Errorf("encoding messages: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`INSERT INTO conversations (user_id, conversation_id, messages)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, conversation_id)
		 DO UPDATE SET messages = EXCLUDED.messages, updated_at = now()
		 RETURNING created_at, updated_at`,
		t.UserID, t.ConversationID, raw,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving conversation: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]Transcript, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id, conversation_id, messages, created_at, updated_at
		 FROM conversations
		 WHERE user_id = $1
		 ORDER BY updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	defer rows.Close()

	var transcripts []Transcript
	for rows.Next() {
		var t Transcript
		var raw []byte
		if err := rows.Scan(&t.UserID, &t.ConversationID, &raw, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		if err := json.Unmarshal(raw, &t.Messages); err != nil {
			return nil, fmt.Errorf("decoding messages: %w", err)
		}
		transcripts = append(transcripts, t)
	}
	return transcripts, rows.Err()
}

func (r *PostgresRepository) Delete(ctx context.Context, userID string, conversationID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM conversations WHERE user_id = $1 AND conversation_id = $2`,
		userID, conversationID,
	)
	if err != nil {
		return false, fmt.Errorf("deleting conversation: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
