package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
)

// Publisher provides typed methods for publishing matching events to
// JetStream. Publishing is best-effort: callers log failures and move on,
// a lost event never fails the request that produced it.
type Publisher struct {
	js jetstream.JetStream
}

// NewPublisher creates a new Publisher.
func NewPublisher(js jetstream.JetStream) *Publisher {
	return &Publisher{js: js}
}

// PublishMatchCompleted publishes a ranking completion event.
func (p *Publisher) PublishMatchCompleted(ctx context.Context, event MatchCompleted) error {
	return p.publish(ctx, SubjectMatchCompleted, event)
}

// PublishPreferencesExtracted publishes a preference extraction event.
func (p *Publisher) PublishPreferencesExtracted(ctx context.Context, event PreferencesExtracted) error {
	return p.publish(ctx, SubjectPreferencesExtracted, event)
}

func (p *Publisher) publish(ctx context.Context, subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling event for %s: %w", subject, err)
	}
	if _, err := p.js.Publish(ctx, subject, payload); err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	return nil
}
