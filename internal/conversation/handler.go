package conversation

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/matchwise-platform/matchwise/internal/api"
	"github.com/matchwise-platform/matchwise/internal/matching"
	"github.com/matchwise-platform/matchwise/internal/preferences"
	"github.com/matchwise-platform/matchwise/internal/provider"
)

type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
	}
}

type ChatRequest struct {
	UserID         string `json:"user_id" validate:"required,max=128"`
	ConversationID string `json:"conversation_id,omitempty" validate:"omitempty,uuid"`
	Message        string `json:"message" validate:"required,max=4000"`
}

type ChatResponse struct {
	ConversationID  string                    `json:"conversation_id"`
	Reply           string                    `json:"reply"`
	Phase           Phase                     `json:"phase"`
	Recommendations []matching.Recommendation `json:"recommendations,omitempty"`
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	var convID *uuid.UUID
	if req.ConversationID != "" {
		id, err := uuid.Parse(req.ConversationID)
		if err != nil {
			api.HandleError(w, api.NewBadRequestError("invalid conversation_id"))
			return
		}
		convID = &id
	}

	result, err := h.svc.HandleTurn(r.Context(), req.UserID, convID, req.Message)
	if err != nil {
		h.handleTurnError(w, err, req.UserID)
		return
	}

	api.JSON(w, http.StatusOK, ChatResponse{
		ConversationID:  result.ConversationID.String(),
		Reply:           result.Reply,
		Phase:           result.Phase,
		Recommendations: result.Recommendations,
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		api.HandleError(w, api.NewBadRequestError("missing user id"))
		return
	}

	transcripts, err := h.svc.List(r.Context(), userID)
	if err != nil {
		slog.Error("listing conversations", "error", err, "user_id", userID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, transcripts)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	convID, err := uuid.Parse(chi.URLParam(r, "conversationID"))
	if userID == "" || err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}

	if err := h.svc.Delete(r.Context(), userID, convID); err != nil {
		if errors.Is(err, ErrConversationNotFound) {
			api.HandleError(w, api.NewNotFoundError("conversation not found"))
			return
		}
		slog.Error("deleting conversation", "error", err, "user_id", userID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONMessage(w, http.StatusOK, "conversation deleted")
}

type ExtractPreferencesRequest struct {
	UserID         string `json:"user_id" validate:"required,max=128"`
	ConversationID string `json:"conversation_id" validate:"required,uuid"`
}

type ExtractPreferencesResponse struct {
	Profile         *preferences.Profile      `json:"profile"`
	Recommendations []matching.Recommendation `json:"recommendations"`
}

// ExtractPreferences runs extraction plus ranking over a saved conversation
// on demand, without adding a turn.
func (h *Handler) ExtractPreferences(w http.ResponseWriter, r *http.Request) {
	var req ExtractPreferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	convID, err := uuid.Parse(req.ConversationID)
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid conversation_id"))
		return
	}

	profile, recs, err := h.svc.ExtractAndRecommend(r.Context(), req.UserID, convID)
	if err != nil {
		if errors.Is(err, ErrConversationNotFound) {
			api.HandleError(w, api.NewNotFoundError("conversation not found"))
			return
		}
		h.handleTurnError(w, err, req.UserID)
		return
	}

	api.JSON(w, http.StatusOK, ExtractPreferencesResponse{
		Profile:         profile,
		Recommendations: recs,
	})
}

// handleTurnError maps service errors onto HTTP statuses. Provider failures
// carry their kind; everything else is internal.
func (h *Handler) handleTurnError(w http.ResponseWriter, err error, userID string) {
	if errors.Is(err, ErrTurnInProgress) {
		api.HandleError(w, api.ErrTurnInProgress)
		return
	}

	var provErr *provider.Error
	if errors.As(err, &provErr) {
		switch provErr.Kind {
		case provider.KindQuota:
			api.HandleError(w, api.ErrProviderQuota)
		case provider.KindMalformed:
			slog.Error("provider returned malformed output", "error", err, "user_id", userID)
			api.HandleError(w, api.ErrProviderUnavailable)
		default:
			api.HandleError(w, api.ErrProviderUnavailable)
		}
		return
	}

	slog.Error("handling turn", "error", err, "user_id", userID)
	api.HandleError(w, api.ErrInternalServer)
}
