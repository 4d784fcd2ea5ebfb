package provider

import "context"

// Role values for chat messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a chat exchange sent to the provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SemanticProvider is the narrow interface to the external chat/embedding
// backend. Every method may fail and must be treated as such by callers.
type SemanticProvider interface {
	// CompleteChat generates an assistant reply conditioned on the full
	// message history. An optional system prompt is prepended when non-empty.
	CompleteChat(ctx context.Context, messages []Message, systemPrompt string) (string, error)

	// Embed maps a text to a fixed-length vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch maps several texts to vectors in a single upstream call,
	// returned in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// ErrorKind classifies provider failures for callers that recover differently
// per kind.
type ErrorKind string

const (
	KindUnavailable ErrorKind = "unavailable" // network, timeout, 5xx
	KindQuota       ErrorKind = "quota"       // rate limit / quota exceeded
	KindMalformed   ErrorKind = "malformed"   // unparseable or empty response
)

// Error wraps an upstream provider failure with a machine-readable kind.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "provider: " + e.Op + ": " + string(e.Kind)
	}
	return "provider: " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }
