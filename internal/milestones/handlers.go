// internal/milestones/handlers.go

package milestones

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/imadgeboyega/kiekky-circles/internal/circles"
	"github.com/imadgeboyega/kiekky-circles/internal/common/utils"
)

// CheckInRequest is the body of a check-in. Date defaults to today.
type CheckInRequest struct {
	IsCompleted bool      `json:"is_completed"`
	Notes       string    `json:"notes" validate:"max=1000"`
	Date        time.Time `json:"date"`
}

type Handler struct {
	tracker *Tracker
}

func NewHandler(tracker *Tracker) *Handler {
	return &Handler{tracker: tracker}
}

// RegisterRoutes registers goal routes on the authenticated API subrouter
func RegisterRoutes(api *mux.Router, handler *Handler) {
	api.HandleFunc("/circles/{id}/goals", handler.CreateGoal).Methods("POST")
	api.HandleFunc("/goals/{id}/check-ins", handler.RecordCheckIn).Methods("POST")
}

// CreateGoal handles POST /api/v1/circles/{id}/goals
func (h *Handler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	user, ok := circles.UserFrom(r.Context())
	if !ok {
		utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req CreateGoalRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	goal, err := h.tracker.CreateGoal(r.Context(), mux.Vars(r)["id"], user, &req)
	if err != nil {
		circles.RespondError(w, err)
		return
	}
	utils.SuccessResponse(w, goal, http.StatusCreated)
}

// RecordCheckIn handles POST /api/v1/goals/{id}/check-ins
func (h *Handler) RecordCheckIn(w http.ResponseWriter, r *http.Request) {
	user, ok := circles.UserFrom(r.Context())
	if !ok {
		utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req CheckInRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	date := req.Date
	if date.IsZero() {
		date = h.tracker.clock.Now()
	}

	res, err := h.tracker.RecordCheckIn(r.Context(), mux.Vars(r)["id"], user.ID, req.IsCompleted, req.Notes, date)
	if err != nil {
		circles.RespondError(w, err)
		return
	}
	utils.SuccessResponse(w, res, http.StatusOK)
}
