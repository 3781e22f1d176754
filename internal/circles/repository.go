// internal/circles/repository.go

package circles

import (
	"context"
	"time"
)

// CircleRepository stores circles and memberships
type CircleRepository interface {
	GetCircle(ctx context.Context, id string) (*Circle, error)
	ListCircles(ctx context.Context) ([]*Circle, error)
	SaveCircle(ctx context.Context, circle *Circle) error

	GetMembership(ctx context.Context, userID, circleID string) (*Membership, error)
	SaveMembership(ctx context.Context, membership *Membership) error
	ListActiveMemberships(ctx context.Context, userID string) ([]*Membership, error)
}

// MessageRepository stores circle messages. SaveMessage assigns Seq on first
// insert and overwrites on later calls.
type MessageRepository interface {
	SaveMessage(ctx context.Context, message *Message) error
	GetMessage(ctx context.Context, id string) (*Message, error)
	// GetMessagesSince returns messages sent at or after since, ordered by
	// SentAt then Seq.
	GetMessagesSince(ctx context.Context, circleID string, since time.Time) ([]*Message, error)
}

// GoalRepository stores goals and their check-ins
type GoalRepository interface {
	GetGoal(ctx context.Context, id string) (*Goal, error)
	SaveGoal(ctx context.Context, goal *Goal) error
	UpdateGoalProgress(ctx context.Context, goalID string, progress int, status GoalStatus) error

	SaveCheckIn(ctx context.Context, checkIn *CheckIn) error
	ListCheckIns(ctx context.Context, goalID string) ([]*CheckIn, error)
}

// PromptRepository stores daily prompts
type PromptRepository interface {
	GetPromptForDay(ctx context.Context, circleID string, day time.Time) (*Prompt, error)
	SavePrompt(ctx context.Context, prompt *Prompt) error
}

// Repository is the full persistence collaborator consumed by the engine
type Repository interface {
	CircleRepository
	MessageRepository
	GoalRepository
	PromptRepository
}

var (
	_ Repository = (*MemoryRepository)(nil)
	_ Repository = (*PostgresRepository)(nil)
)
