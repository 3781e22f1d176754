// internal/messaging/handlers.go

package messaging

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/imadgeboyega/kiekky-circles/internal/circles"
	"github.com/imadgeboyega/kiekky-circles/internal/common/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Configure CORS as needed
		return true
	},
}

type Handler struct {
	pipeline *Pipeline
	hub      *Hub
}

func NewHandler(pipeline *Pipeline, hub *Hub) *Handler {
	return &Handler{
		pipeline: pipeline,
		hub:      hub,
	}
}

// HandleWebSocket joins an authenticated member to a circle's live stream
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	user, ok := circles.UserFrom(r.Context())
	if !ok {
		utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	circleID := r.URL.Query().Get("circle_id")
	if circleID == "" {
		utils.ErrorResponse(w, "circle_id is required", http.StatusBadRequest)
		return
	}
	if _, err := h.pipeline.repo.GetCircle(r.Context(), circleID); err != nil {
		circles.RespondError(w, err)
		return
	}
	if err := circles.RequireActiveMember(r.Context(), h.pipeline.repo, user.ID, circleID); err != nil {
		circles.RespondError(w, err)
		return
	}

	// Upgrade connection
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := NewClient(h.hub, conn, user, circleID, h.pipeline)
	h.hub.Register(client)
	client.Start()
}

// SendMessage handles POST /api/v1/circles/{id}/messages
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	user, ok := circles.UserFrom(r.Context())
	if !ok {
		utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req SendMessageRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	msg, err := h.pipeline.Send(r.Context(), mux.Vars(r)["id"], user, req.Content)
	if err != nil {
		circles.RespondError(w, err)
		return
	}
	utils.SuccessResponse(w, msg, http.StatusCreated)
}

// ListMessages handles GET /api/v1/circles/{id}/messages?since=RFC3339
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	user, ok := circles.UserFrom(r.Context())
	if !ok {
		utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			utils.ErrorResponse(w, "since must be an RFC3339 timestamp", http.StatusBadRequest)
			return
		}
		since = parsed
	}

	msgs, err := h.pipeline.Messages(r.Context(), mux.Vars(r)["id"], user.ID, since)
	if err != nil {
		circles.RespondError(w, err)
		return
	}
	utils.SuccessResponse(w, msgs, http.StatusOK)
}

// SetTyping handles POST /api/v1/circles/{id}/typing
func (h *Handler) SetTyping(w http.ResponseWriter, r *http.Request) {
	user, ok := circles.UserFrom(r.Context())
	if !ok {
		utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req TypingRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.pipeline.SetTyping(r.Context(), mux.Vars(r)["id"], user.ID, req.IsTyping); err != nil {
		circles.RespondError(w, err)
		return
	}
	utils.MessageResponse(w, "Typing status updated", http.StatusOK)
}

// GetTyping handles GET /api/v1/circles/{id}/typing
func (h *Handler) GetTyping(w http.ResponseWriter, r *http.Request) {
	user, ok := circles.UserFrom(r.Context())
	if !ok {
		utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	circleID := mux.Vars(r)["id"]
	ids, err := h.pipeline.Typing(r.Context(), circleID, user.ID)
	if err != nil {
		circles.RespondError(w, err)
		return
	}
	utils.SuccessResponse(w, TypingResponse{CircleID: circleID, UserIDs: ids}, http.StatusOK)
}

// AddReaction handles POST /api/v1/messages/{id}/reactions
func (h *Handler) AddReaction(w http.ResponseWriter, r *http.Request) {
	user, ok := circles.UserFrom(r.Context())
	if !ok {
		utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req ReactionRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	msg, err := h.pipeline.AddReaction(r.Context(), mux.Vars(r)["id"], user.ID, req.Symbol)
	if err != nil {
		circles.RespondError(w, err)
		return
	}
	utils.SuccessResponse(w, msg, http.StatusOK)
}

// RemoveReaction handles DELETE /api/v1/messages/{id}/reactions
func (h *Handler) RemoveReaction(w http.ResponseWriter, r *http.Request) {
	user, ok := circles.UserFrom(r.Context())
	if !ok {
		utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	msg, err := h.pipeline.RemoveReaction(r.Context(), mux.Vars(r)["id"], user.ID)
	if err != nil {
		circles.RespondError(w, err)
		return
	}
	utils.SuccessResponse(w, msg, http.StatusOK)
}

// HealthCheck reports hub liveness
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	utils.SuccessResponse(w, map[string]string{"status": "healthy", "service": "messaging"}, http.StatusOK)
}
