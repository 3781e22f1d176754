// internal/circles/handlers.go

package circles

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/imadgeboyega/kiekky-circles/internal/common/utils"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers circle and membership routes on the
// authenticated API subrouter
func RegisterRoutes(api *mux.Router, handler *Handler) {
	api.HandleFunc("/circles", handler.CreateCircle).Methods("POST")
	api.HandleFunc("/circles/{id}", handler.GetCircle).Methods("GET")
	api.HandleFunc("/circles/{id}/join", handler.JoinCircle).Methods("POST")
	api.HandleFunc("/circles/{id}/leave", handler.LeaveCircle).Methods("POST")
}

// CreateCircle handles POST /api/v1/circles
func (h *Handler) CreateCircle(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFrom(r.Context())
	if !ok {
		utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req CreateCircleRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	circle, err := h.service.CreateCircle(r.Context(), user, &req)
	if err != nil {
		RespondError(w, err)
		return
	}

	utils.SuccessResponse(w, circle, http.StatusCreated)
}

// GetCircle handles GET /api/v1/circles/{id}
func (h *Handler) GetCircle(w http.ResponseWriter, r *http.Request) {
	circle, err := h.service.GetCircle(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		RespondError(w, err)
		return
	}
	utils.SuccessResponse(w, circle, http.StatusOK)
}

// JoinCircle handles POST /api/v1/circles/{id}/join
func (h *Handler) JoinCircle(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFrom(r.Context())
	if !ok {
		utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	membership, err := h.service.Join(r.Context(), mux.Vars(r)["id"], user)
	if err != nil {
		RespondError(w, err)
		return
	}
	utils.SuccessResponse(w, membership, http.StatusOK)
}

// LeaveCircle handles POST /api/v1/circles/{id}/leave
func (h *Handler) LeaveCircle(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFrom(r.Context())
	if !ok {
		utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.service.Leave(r.Context(), mux.Vars(r)["id"], user); err != nil {
		RespondError(w, err)
		return
	}
	utils.MessageResponse(w, "Left circle", http.StatusOK)
}

// RespondError writes err with the status HTTPStatus assigns to it.
// Internal errors are not echoed to the client.
func RespondError(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		utils.ErrorResponse(w, "Internal server error", status)
		return
	}
	utils.ErrorResponse(w, err.Error(), status)
}
