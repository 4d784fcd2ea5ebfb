package events

import "time"

// Stream names.
const (
	StreamMatching = "MATCHWISE_MATCHING"
)

// Subject constants.
const (
	SubjectMatchCompleted       = "matchwise.matching.completed"
	SubjectPreferencesExtracted = "matchwise.matching.preferences"
)

// MatchCompleted is published after a ranking request finishes.
type MatchCompleted struct {
	UserID      string    `json:"user_id"`
	JobsRanked  int       `json:"jobs_ranked"`
	Returned    int       `json:"returned"`
	TopScore    float64   `json:"top_score,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// PreferencesExtracted is published when a transcript crosses the extraction
// threshold and a profile is produced.
type PreferencesExtracted struct {
	UserID         string    `json:"user_id"`
	ConversationID string    `json:"conversation_id"`
	TurnCount      int       `json:"turn_count"`
	ExtractedAt    time.Time `json:"extracted_at"`
}
