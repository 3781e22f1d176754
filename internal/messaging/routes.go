// internal/messaging/routes.go

package messaging

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes registers the message, typing and reaction routes on the
// authenticated API subrouter
func RegisterRoutes(api *mux.Router, handler *Handler) {
	// Circle message endpoints
	api.HandleFunc("/circles/{id}/messages", handler.SendMessage).Methods("POST")
	api.HandleFunc("/circles/{id}/messages", handler.ListMessages).Methods("GET")

	// Typing indicator endpoints
	api.HandleFunc("/circles/{id}/typing", handler.SetTyping).Methods("POST")
	api.HandleFunc("/circles/{id}/typing", handler.GetTyping).Methods("GET")

	// Reaction endpoints
	api.HandleFunc("/messages/{id}/reactions", handler.AddReaction).Methods("POST")
	api.HandleFunc("/messages/{id}/reactions", handler.RemoveReaction).Methods("DELETE")
}

// RegisterWebSocket registers the live stream endpoint. Browsers cannot set
// headers on upgrade, so authMiddleware must accept a token query parameter.
func RegisterWebSocket(router *mux.Router, handler *Handler, authMiddleware mux.MiddlewareFunc) {
	router.Handle("/ws", authMiddleware(http.HandlerFunc(handler.HandleWebSocket))).Methods("GET")
}

// RegisterHealthCheck registers the messaging health endpoint
func RegisterHealthCheck(router *mux.Router, handler *Handler) {
	router.HandleFunc("/health/messaging", handler.HealthCheck).Methods("GET")
}
