// internal/facilitator/handlers.go

package facilitator

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/imadgeboyega/kiekky-circles/internal/circles"
	"github.com/imadgeboyega/kiekky-circles/internal/common/utils"
)

type Handler struct {
	prompter *Prompter
}

func NewHandler(prompter *Prompter) *Handler {
	return &Handler{prompter: prompter}
}

// RegisterRoutes registers the prompt route on the authenticated API subrouter
func RegisterRoutes(api *mux.Router, handler *Handler) {
	api.HandleFunc("/circles/{id}/prompt", handler.GetDailyPrompt).Methods("GET")
}

// GetDailyPrompt handles GET /api/v1/circles/{id}/prompt
func (h *Handler) GetDailyPrompt(w http.ResponseWriter, r *http.Request) {
	user, ok := circles.UserFrom(r.Context())
	if !ok {
		utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	circleID := mux.Vars(r)["id"]
	if _, err := h.prompter.repo.GetCircle(r.Context(), circleID); err != nil {
		circles.RespondError(w, err)
		return
	}
	if err := circles.RequireActiveMember(r.Context(), h.prompter.repo, user.ID, circleID); err != nil {
		circles.RespondError(w, err)
		return
	}

	prompt, _, err := h.prompter.EnsureDailyPrompt(r.Context(), circleID)
	if err != nil {
		circles.RespondError(w, err)
		return
	}
	utils.SuccessResponse(w, prompt, http.StatusOK)
}
