package matching

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/matchwise-platform/matchwise/internal/api"
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

type RecommendRequest struct {
	UserID      string               `json:"user_id" validate:"required,max=128"`
	Preferences *preferences.Profile `json:"preferences" validate:"required"`
	TopK        int                  `json:"top_k" validate:"omitempty,min=1,max=100"`
}

type RecommendResponse struct {
	UserID          string           `json:"user_id"`
	Recommendations []Recommendation `json:"recommendations"`
	Total           int              `json:"total"`
}

// Recommend ranks the published catalog against a caller-supplied profile,
// bypassing conversation and extraction entirely.
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	var req RecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	req.Preferences.Normalize()

	recs, err := h.svc.Recommend(r.Context(), req.UserID, req.Preferences, req.TopK)
	if err != nil {
		var provErr *provider.Error
		if errors.As(err, &provErr) && provErr.Kind == provider.KindQuota {
			api.HandleError(w, api.ErrProviderQuota)
			return
		}
		if errors.As(err, &provErr) {
			api.HandleError(w, api.ErrProviderUnavailable)
			return
		}
		slog.Error("ranking recommendations", "error", err, "user_id", req.UserID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	if recs == nil {
		recs = []Recommendation{}
	}

	api.JSON(w, http.StatusOK, RecommendResponse{
		UserID:          req.UserID,
		Recommendations: recs,
		Total:           len(recs),
	})
}
