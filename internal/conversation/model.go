package conversation

import (
	"time"

	"github.com/google/uuid"

	"github.com/matchwise-platform/matchwise/internal/provider"
)

// Message roles, mirroring the provider's chat roles.
const (
	RoleUser      = provider.RoleUser
	RoleAssistant = provider.RoleAssistant
)

// Message is one turn of a transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Transcript is the ordered conversation history for one (user, conversation)
// pair. The engine only ever appends; deletion is an administrative
// operation.
type Transcript struct {
	UserID         string    `json:"user_id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	Messages       []Message `json:"messages"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Append adds one turn to the end of the transcript.
func (t *Transcript) Append(role, content string) {
	t.Messages = append(t.Messages, Message{Role: role, Content: content})
}

// TurnCount returns the total number of turns, user and assistant combined.
func (t *Transcript) TurnCount() int {
	return len(t.Messages)
}

// ProviderMessages converts the transcript for a provider call.
func (t *Transcript) ProviderMessages() []provider.Message {
	msgs := make([]provider.Message, len(t.Messages))
	for i, m := range t.Messages {
		msgs[i] = provider.Message{Role: m.Role, Content: m.Content}
	}
	return msgs
}
