// internal/matching/handlers.go

package matching

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/imadgeboyega/kiekky-circles/internal/circles"
	"github.com/imadgeboyega/kiekky-circles/internal/common/utils"
)

type Handler struct {
	recommender *Recommender
}

func NewHandler(recommender *Recommender) *Handler {
	return &Handler{recommender: recommender}
}

// RegisterRoutes registers the recommendation route on the authenticated API
// subrouter
func RegisterRoutes(api *mux.Router, handler *Handler) {
	api.HandleFunc("/recommendations", handler.GetRecommendations).Methods("POST")
}

// GetRecommendations handles POST /api/v1/recommendations?limit=n with the
// caller's MatchPreference as body
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	user, ok := circles.UserFrom(r.Context())
	if !ok {
		utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > 50 {
			utils.ErrorResponse(w, "limit must be between 0 and 50", http.StatusBadRequest)
			return
		}
		limit = n
	}

	var prefs circles.MatchPreference
	if err := utils.DecodeJSON(r, &prefs); err != nil {
		utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	ranked, err := h.recommender.Recommend(r.Context(), user, &prefs, limit)
	if err != nil {
		circles.RespondError(w, err)
		return
	}
	utils.SuccessResponse(w, ranked, http.StatusOK)
}
