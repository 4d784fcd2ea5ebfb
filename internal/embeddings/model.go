package embeddings

import (
	"time"

	"github.com/google/uuid"
)

// Record is one cached catalog-item embedding. Records are written once and
// never mutated; recomputation happens only through an explicit cache miss.
type Record struct {
	JobID      uuid.UUID `json:"job_id"`
	Embedding  []float32 `json:"embedding"`
	SourceText string    `json:"source_text"`
	CreatedAt  time.Time `json:"created_at"`
}
