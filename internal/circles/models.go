// internal/circles/models.go

package circles

import (
	"strings"
	"time"
)

// CurrentUser identifies the caller of an engine operation
type CurrentUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// Circle is a bounded peer-support group
type Circle struct {
	ID             string    `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Tags           []string  `json:"tags" db:"tags"`
	MaxMembers     int       `json:"max_members" db:"max_members"`
	CurrentMembers int       `json:"current_members" db:"current_members"`
	IsPublic       bool      `json:"is_public" db:"is_public"`
	AIEnabled      bool      `json:"ai_enabled" db:"ai_enabled"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// IsFull reports whether the circle has no free seats left
func (c *Circle) IsFull() bool {
	return c.CurrentMembers >= c.MaxMembers
}

// Membership links a user to a circle. Leaving deactivates it; re-joining
// reactivates the same record.
type Membership struct {
	UserID       string    `json:"user_id" db:"user_id"`
	CircleID     string    `json:"circle_id" db:"circle_id"`
	Role         Role      `json:"role" db:"role"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	JoinedAt     time.Time `json:"joined_at" db:"joined_at"`
	LastActiveAt time.Time `json:"last_active_at" db:"last_active_at"`
}

// Message is a chat message inside a circle
type Message struct {
	ID                string     `json:"id" db:"id"`
	CircleID          string     `json:"circle_id" db:"circle_id"`
	SenderID          string     `json:"sender_id" db:"sender_id"`
	SenderDisplayName string     `json:"sender_display_name" db:"sender_display_name"`
	IsAutomated       bool       `json:"is_automated" db:"is_automated"`
	Content           string     `json:"content" db:"content"`
	SentAt            time.Time  `json:"sent_at" db:"sent_at"`
	Seq               int64      `json:"seq" db:"seq"`
	Reactions         []Reaction `json:"reactions"`
}

// ReactionBy returns the index of userID's reaction, or -1
func (m *Message) ReactionBy(userID string) int {
	for i, r := range m.Reactions {
		if r.UserID == userID {
			return i
		}
	}
	return -1
}

// Clone copies the message including its reaction slice
func (m *Message) Clone() *Message {
	c := *m
	c.Reactions = append([]Reaction(nil), m.Reactions...)
	return &c
}

type Reaction struct {
	UserID    string    `json:"user_id"`
	Symbol    string    `json:"symbol"`
	CreatedAt time.Time `json:"created_at"`
}

// Prompt is the daily reflection prompt of a circle
type Prompt struct {
	ID           string    `json:"id" db:"id"`
	CircleID     string    `json:"circle_id" db:"circle_id"`
	Content      string    `json:"content" db:"content"`
	ScheduledFor time.Time `json:"scheduled_for" db:"scheduled_for"`
	IsConsumed   bool      `json:"is_consumed" db:"is_consumed"`
}

type GoalStatus string

const (
	GoalInProgress GoalStatus = "in-progress"
	GoalCompleted  GoalStatus = "completed"
)

// Goal is a personal goal shared in a circle. Progress is derived from
// check-ins and never set directly.
type Goal struct {
	ID          string     `json:"id" db:"id"`
	CircleID    string     `json:"circle_id" db:"circle_id"`
	OwnerUserID string     `json:"owner_user_id" db:"owner_user_id"`
	Title       string     `json:"title" db:"title"`
	TargetDate  time.Time  `json:"target_date" db:"target_date"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	Status      GoalStatus `json:"status" db:"status"`
	Progress    int        `json:"progress" db:"progress"`
	IsPrivate   bool       `json:"is_private" db:"is_private"`
}

// CheckIn records one user's daily check-in against a goal
type CheckIn struct {
	ID          string    `json:"id" db:"id"`
	GoalID      string    `json:"goal_id" db:"goal_id"`
	UserID      string    `json:"user_id" db:"user_id"`
	Date        time.Time `json:"date" db:"date"`
	IsCompleted bool      `json:"is_completed" db:"is_completed"`
	Notes       string    `json:"notes" db:"notes"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Preference enums
const (
	AlignmentSimilar = "similar"
	AlignmentDiverse = "diverse"
	AlignmentAny     = "any"

	ActivityLight    = "light"
	ActivityModerate = "moderate"
	ActivityActive   = "active"

	PrivacyOpen     = "open"
	PrivacyBalanced = "balanced"
	PrivacyPrivate  = "private"

	SizeSmall  = "small"
	SizeMedium = "medium"
	SizeLarge  = "large"
)

// MatchPreference captures what a user is looking for in a circle
type MatchPreference struct {
	Interests     []string `json:"interests" validate:"dive,required"`
	GoalAlignment string   `json:"goal_alignment" validate:"required,oneof=similar diverse any"`
	ActivityLevel string   `json:"activity_level" validate:"required,oneof=light moderate active"`
	PrivacyLevel  string   `json:"privacy_level" validate:"required,oneof=open balanced private"`
	CircleSize    string   `json:"circle_size" validate:"required,oneof=small medium large"`
}

// NormalizedInterests lowercases, trims and de-duplicates the interests,
// keeping first-seen order.
func (p *MatchPreference) NormalizedInterests() []string {
	seen := make(map[string]bool, len(p.Interests))
	out := make([]string, 0, len(p.Interests))
	for _, interest := range p.Interests {
		key := strings.ToLower(strings.TrimSpace(interest))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	return out
}
