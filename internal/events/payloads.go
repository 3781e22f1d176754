// internal/events/payloads.go

package events

import "github.com/imadgeboyega/kiekky-circles/internal/circles"

// MessageEvent is published on TopicMessage
type MessageEvent struct {
	Message *circles.Message `json:"message"`
}

// PresenceEvent is published on TopicPresence when a user goes on- or offline
type PresenceEvent struct {
	CircleID      string   `json:"circle_id"`
	UserID        string   `json:"user_id"`
	Online        bool     `json:"online"`
	OnlineUserIDs []string `json:"online_user_ids"`
}

// TypingEvent carries the full typing set of a circle after a change
type TypingEvent struct {
	CircleID string   `json:"circle_id"`
	UserIDs  []string `json:"user_ids"`
}

// ReactionEvent is published on TopicReaction
type ReactionEvent struct {
	CircleID  string             `json:"circle_id"`
	MessageID string             `json:"message_id"`
	UserID    string             `json:"user_id"`
	Symbol    string             `json:"symbol,omitempty"`
	Removed   bool               `json:"removed"`
	Reactions []circles.Reaction `json:"reactions"`
}

// CheckInEvent is published on TopicCheckIn
type CheckInEvent struct {
	CircleID string           `json:"circle_id"`
	CheckIn  *circles.CheckIn `json:"check_in"`
}

// GoalUpdateEvent is published after every progress recomputation.
// Milestone is the highest threshold newly crossed, or 0.
type GoalUpdateEvent struct {
	Goal             *circles.Goal `json:"goal"`
	PreviousProgress int           `json:"previous_progress"`
	Progress         int           `json:"progress"`
	Milestone        int           `json:"milestone,omitempty"`
}

// CircleIDOf returns the circle an event payload belongs to
func CircleIDOf(payload any) (string, bool) {
	switch p := payload.(type) {
	case MessageEvent:
		if p.Message != nil {
			return p.Message.CircleID, true
		}
	case PresenceEvent:
		return p.CircleID, true
	case TypingEvent:
		return p.CircleID, true
	case ReactionEvent:
		return p.CircleID, true
	case CheckInEvent:
		return p.CircleID, true
	case GoalUpdateEvent:
		if p.Goal != nil {
			return p.Goal.CircleID, true
		}
	}
	return "", false
}
