package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/matchwise-platform/matchwise/internal/events"
	"github.com/matchwise-platform/matchwise/internal/matching"
	"github.com/matchwise-platform/matchwise/internal/preferences"
	"github.com/matchwise-platform/matchwise/internal/provider"
)

// ErrConversationNotFound is returned for operations on an unknown
// conversation id.
var ErrConversationNotFound = errors.New("conversation not found")

// chatSystemPrompt steers the assistant toward collecting the facets the
// extractor will later pull out of the transcript.
const chatSystemPrompt = `You are the AI career advisor of a job matching service.
You help the user with their job search and work toward finding them the best matching openings.

Guidelines:
1. Be friendly and professional.
2. Draw out the user's career goals and preferences through natural conversation.
3. Ask gentle follow-up questions when an answer is vague.
4. Confirm concrete numbers and conditions explicitly.
5. Respond with empathy to worries and concerns.

Over the conversation, collect:
- desired job category and industry
- desired work location
- desired salary range
- remote work preference
- skills and experience
- working style preferences
- career goals`

// Extractor produces a preference profile from a transcript.
type Extractor interface {
	Extract(ctx context.Context, messages []provider.Message) (*preferences.Profile, error)
}

// Recommender ranks the catalog for a profile.
type Recommender interface {
	Recommend(ctx context.Context, userID string, profile *preferences.Profile, topK int) ([]matching.Recommendation, error)
}

// Service is the conversation controller: it owns turn-taking, transcript
// persistence, and the extraction trigger.
type Service struct {
	repo              Repository
	chat              provider.SemanticProvider
	extractor         Extractor
	recommender       Recommender
	lock              *TurnLock
	publisher         *events.Publisher
	extractAfterTurns int
}

// NewService creates the conversation controller. The publisher may be nil.
func NewService(
	repo Repository,
	chat provider.SemanticProvider,
	extractor Extractor,
	recommender Recommender,
	lock *TurnLock,
	publisher *events.Publisher,
	extractAfterTurns int,
) *Service {
	return &Service{
		repo:              repo,
		chat:              chat,
		extractor:         extractor,
		recommender:       recommender,
		lock:              lock,
		publisher:         publisher,
		extractAfterTurns: extractAfterTurns,
	}
}

// TurnResult is what one handled turn produces.
type TurnResult struct {
	ConversationID  uuid.UUID
	Reply           string
	Phase           Phase
	Recommendations []matching.Recommendation
}

// HandleTurn appends the user message, generates a reply, persists the
// transcript, and runs the extraction/matching tail when the transcript is
// long enough.
//
// The user turn and the assistant turn are two independent, individually
// atomic writes. A failure persisting the assistant turn is logged and the
// reply is still returned: the next Save writes the whole message array, so
// the transcript heals on the following turn. Failures in the extraction
// tail never fail the turn; the reply is the turn's primary contract.
func (s *Service) HandleTurn(ctx context.Context, userID string, conversationID *uuid.UUID, message string) (*TurnResult, error) {
	convID := uuid.New()
	if conversationID != nil {
		convID = *conversationID
	}

	release, err := s.lock.Acquire(ctx, userID, convID)
	if err != nil {
		return nil, err
	}
	defer release()

	t, err := s.repo.Load(ctx, userID, convID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		t = &Transcript{UserID: userID, ConversationID: convID}
	}

	t.Append(RoleUser, message)
	if err := s.repo.Save(ctx, t); err != nil {
		return nil, fmt.Errorf("persisting user turn: %w", err)
	}

	reply, err := s.chat.CompleteChat(ctx, t.ProviderMessages(), chatSystemPrompt)
	if err != nil {
		// No safe fallback text exists; the turn fails.
		return nil, fmt.Errorf("generating reply: %w", err)
	}

	t.Append(RoleAssistant, reply)
	if err := s.repo.Save(ctx, t); err != nil {
		slog.Error("persisting assistant turn; reply returned anyway",
			"error", err, "user_id", userID, "conversation_id", convID)
	}

	result := &TurnResult{ConversationID: convID, Reply: reply}
	result.Phase = PhaseFor(t.TurnCount(), s.extractAfterTurns, false)

	if ShouldExtract(t.TurnCount(), s.extractAfterTurns) {
		if recs, ok := s.extractAndRecommend(ctx, t); ok {
			result.Recommendations = recs
			result.Phase = PhaseReady
		}
	}

	return result, nil
}

// extractAndRecommend runs the optional tail of a turn. It reports ok=false
// on any failure; the caller treats that as "no recommendations this turn".
func (s *Service) extractAndRecommend(ctx context.Context, t *Transcript) ([]matching.Recommendation, bool) {
	profile, err := s.extractor.Extract(ctx, t.ProviderMessages())
	if err != nil {
		slog.Warn("preference extraction failed",
			"error", err, "user_id", t.UserID, "conversation_id", t.ConversationID)
		return nil, false
	}

	if s.publisher != nil {
		event := events.PreferencesExtracted{
			UserID:         t.UserID,
			ConversationID: t.ConversationID.String(),
			TurnCount:      t.TurnCount(),
			ExtractedAt:    time.Now(),
		}
		if err := s.publisher.PublishPreferencesExtracted(ctx, event); err != nil {
			slog.Warn("publishing extraction event", "error", err, "user_id", t.UserID)
		}
	}

	recs, err := s.recommender.Recommend(ctx, t.UserID, profile, 0)
	if err != nil {
		slog.Warn("ranking after extraction failed",
			"error", err, "user_id", t.UserID, "conversation_id", t.ConversationID)
		return nil, false
	}
	return recs, true
}

// ExtractAndRecommend serves the direct "recommendations from a saved
// conversation" operation. Unlike the chat tail, failures here are the
// caller's problem: extraction is this operation's primary contract.
func (s *Service) ExtractAndRecommend(ctx context.Context, userID string, conversationID uuid.UUID) (*preferences.Profile, []matching.Recommendation, error) {
	t, err := s.repo.Load(ctx, userID, conversationID)
	if err != nil {
		return nil, nil, err
	}
	if t == nil {
		return nil, nil, ErrConversationNotFound
	}

	profile, err := s.extractor.Extract(ctx, t.ProviderMessages())
	if err != nil {
		return nil, nil, err
	}

	recs, err := s.recommender.Recommend(ctx, userID, profile, 0)
	if err != nil {
		return nil, nil, err
	}
	return profile, recs, nil
}

// List returns the user's transcripts, most recently updated first.
func (s *Service) List(ctx context.Context, userID string) ([]Transcript, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Delete removes a conversation.
func (s *Service) Delete(ctx context.Context, userID string, conversationID uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, userID, conversationID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrConversationNotFound
	}
	return nil
}
