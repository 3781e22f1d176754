// internal/messaging/models.go

package messaging

import (
	"encoding/json"
	"time"
)

// WebSocket message types
type WSMessage struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

type WSMessageType string

// Incoming frame types. Outgoing frames use the event topic as their type.
const (
	WSTypeMessage        WSMessageType = "message"
	WSTypeTyping         WSMessageType = "typing"
	WSTypeStopTyping     WSMessageType = "stop_typing"
	WSTypeReaction       WSMessageType = "reaction"
	WSTypeRemoveReaction WSMessageType = "remove_reaction"
	WSTypeError          WSMessageType = "error"
)

// WSError represents a WebSocket error message
type WSError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Request DTOs
type SendMessageRequest struct {
	Content string `json:"content" validate:"required,max=4000"`
}

type TypingRequest struct {
	IsTyping bool `json:"is_typing"`
}

type ReactionRequest struct {
	MessageID string `json:"message_id,omitempty"`
	Symbol    string `json:"symbol" validate:"required,max=32"`
}

type RemoveReactionRequest struct {
	MessageID string `json:"message_id" validate:"required"`
}

type TypingResponse struct {
	CircleID string   `json:"circle_id"`
	UserIDs  []string `json:"user_ids"`
}

func mustMarshalJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return json.RawMessage(data)
}
