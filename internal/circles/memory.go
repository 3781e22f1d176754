// internal/circles/memory.go

package circles

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/imadgeboyega/kiekky-circles/internal/clock"
)

// MemoryRepository keeps everything in process memory. It is the default
// store when no database is configured and the store used by tests.
type MemoryRepository struct {
	mu          sync.RWMutex
	circles     map[string]*Circle
	memberships map[string]*Membership
	messages    map[string]*Message
	goals       map[string]*Goal
	checkIns    map[string]*CheckIn
	prompts     map[string]*Prompt
	seq         int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		circles:     make(map[string]*Circle),
		memberships: make(map[string]*Membership),
		messages:    make(map[string]*Message),
		goals:       make(map[string]*Goal),
		checkIns:    make(map[string]*CheckIn),
		prompts:     make(map[string]*Prompt),
	}
}

func membershipKey(userID, circleID string) string {
	return userID + "/" + circleID
}

func checkInKey(goalID, userID string, date time.Time) string {
	return goalID + "/" + userID + "/" + clock.Day(date).Format("2006-01-02")
}

func promptKey(circleID string, day time.Time) string {
	return circleID + "/" + clock.Day(day).Format("2006-01-02")
}

func (r *MemoryRepository) GetCircle(ctx context.Context, id string) (*Circle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.circles[id]
	if !ok {
		return nil, ErrCircleNotFound
	}
	cp := *c
	cp.Tags = append([]string(nil), c.Tags...)
	return &cp, nil
}

// ListCircles returns circles ordered by creation time, then ID
func (r *MemoryRepository) ListCircles(ctx context.Context) ([]*Circle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Circle, 0, len(r.circles))
	for _, c := range r.circles {
		cp := *c
		cp.Tags = append([]string(nil), c.Tags...)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepository) SaveCircle(ctx context.Context, circle *Circle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *circle
	cp.Tags = append([]string(nil), circle.Tags...)
	r.circles[circle.ID] = &cp
	return nil
}

func (r *MemoryRepository) GetMembership(ctx context.Context, userID, circleID string) (*Membership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.memberships[membershipKey(userID, circleID)]
	if !ok {
		return nil, ErrMembershipNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *MemoryRepository) SaveMembership(ctx context.Context, membership *Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *membership
	r.memberships[membershipKey(membership.UserID, membership.CircleID)] = &cp
	return nil
}

func (r *MemoryRepository) ListActiveMemberships(ctx context.Context, userID string) ([]*Membership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Membership
	for _, m := range r.memberships {
		if m.UserID == userID && m.IsActive {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CircleID < out[j].CircleID })
	return out, nil
}

func (r *MemoryRepository) SaveMessage(ctx context.Context, message *Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.messages[message.ID]; ok {
		message.Seq = existing.Seq
	} else {
		r.seq++
		message.Seq = r.seq
	}
	r.messages[message.ID] = message.Clone()
	return nil
}

func (r *MemoryRepository) GetMessage(ctx context.Context, id string) (*Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.messages[id]
	if !ok {
		return nil, ErrMessageNotFound
	}
	return m.Clone(), nil
}

func (r *MemoryRepository) GetMessagesSince(ctx context.Context, circleID string, since time.Time) ([]*Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Message
	for _, m := range r.messages {
		if m.CircleID == circleID && !m.SentAt.Before(since) {
			out = append(out, m.Clone())
		}
	}
	SortMessages(out)
	return out, nil
}

func (r *MemoryRepository) GetGoal(ctx context.Context, id string) (*Goal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.goals[id]
	if !ok {
		return nil, ErrGoalNotFound
	}
	cp := *g
	return &cp, nil
}

func (r *MemoryRepository) SaveGoal(ctx context.Context, goal *Goal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *goal
	r.goals[goal.ID] = &cp
	return nil
}

func (r *MemoryRepository) UpdateGoalProgress(ctx context.Context, goalID string, progress int, status GoalStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.goals[goalID]
	if !ok {
		return ErrGoalNotFound
	}
	g.Progress = progress
	g.Status = status
	return nil
}

// SaveCheckIn upserts on (goal, user, calendar day). An existing record keeps
// its ID and CreatedAt.
func (r *MemoryRepository) SaveCheckIn(ctx context.Context, checkIn *CheckIn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	checkIn.Date = clock.Day(checkIn.Date)
	key := checkInKey(checkIn.GoalID, checkIn.UserID, checkIn.Date)
	if existing, ok := r.checkIns[key]; ok {
		checkIn.ID = existing.ID
		checkIn.CreatedAt = existing.CreatedAt
	}
	cp := *checkIn
	r.checkIns[key] = &cp
	return nil
}

// ListCheckIns returns the goal's check-ins ordered by date, then user
func (r *MemoryRepository) ListCheckIns(ctx context.Context, goalID string) ([]*CheckIn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*CheckIn
	for _, c := range r.checkIns {
		if c.GoalID == goalID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].UserID < out[j].UserID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

func (r *MemoryRepository) GetPromptForDay(ctx context.Context, circleID string, day time.Time) (*Prompt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.prompts[promptKey(circleID, day)]
	if !ok {
		return nil, ErrPromptNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MemoryRepository) SavePrompt(ctx context.Context, prompt *Prompt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prompt.ScheduledFor = clock.Day(prompt.ScheduledFor)
	cp := *prompt
	r.prompts[promptKey(prompt.CircleID, prompt.ScheduledFor)] = &cp
	return nil
}

// SortMessages orders messages by SentAt, breaking ties by Seq
func SortMessages(messages []*Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		if messages[i].SentAt.Equal(messages[j].SentAt) {
			return messages[i].Seq < messages[j].Seq
		}
		return messages[i].SentAt.Before(messages[j].SentAt)
	})
}
