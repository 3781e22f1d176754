// internal/milestones/tracker.go

// Package milestones records goal check-ins, derives goal progress from them
// and celebrates when progress crosses a milestone threshold.
package milestones

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/imadgeboyega/kiekky-circles/internal/circles"
	"github.com/imadgeboyega/kiekky-circles/internal/clock"
	"github.com/imadgeboyega/kiekky-circles/internal/events"
	"github.com/imadgeboyega/kiekky-circles/internal/facilitator"
)

// Thresholds are the progress percentages that trigger a celebration
var Thresholds = []int{25, 50, 75, 100}

// Announcer posts automated messages into a circle
type Announcer interface {
	DeliverAutomated(ctx context.Context, circleID, content string) (*circles.Message, error)
}

type Repository interface {
	circles.CircleRepository
	circles.GoalRepository
}

// Result describes the outcome of one check-in
type Result struct {
	CheckIn          *circles.CheckIn `json:"check_in"`
	Goal             *circles.Goal    `json:"goal"`
	PreviousProgress int              `json:"previous_progress"`
	Milestone        int              `json:"milestone,omitempty"`
}

// CreateGoalRequest carries the attributes of a new goal
type CreateGoalRequest struct {
	Title      string    `json:"title" validate:"required,max=200"`
	TargetDate time.Time `json:"target_date" validate:"required"`
	IsPrivate  bool      `json:"is_private"`
}

// Tracker serializes check-ins so each threshold crossing is detected once
// per process.
type Tracker struct {
	repo      Repository
	bus       events.Publisher
	announcer Announcer
	clock     clock.Clock
	logger    zerolog.Logger
	mu        sync.Mutex
}

func NewTracker(repo Repository, bus events.Publisher, announcer Announcer, clk clock.Clock, logger zerolog.Logger) *Tracker {
	return &Tracker{
		repo:      repo,
		bus:       bus,
		announcer: announcer,
		clock:     clk,
		logger:    logger.With().Str("component", "milestones").Logger(),
	}
}

// CreateGoal shares a new goal in a circle the owner belongs to
func (t *Tracker) CreateGoal(ctx context.Context, circleID string, owner circles.CurrentUser, req *CreateGoalRequest) (*circles.Goal, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: goal title is empty", circles.ErrInvalidArgument)
	}
	if _, err := t.repo.GetCircle(ctx, circleID); err != nil {
		return nil, err
	}
	if err := circles.RequireActiveMember(ctx, t.repo, owner.ID, circleID); err != nil {
		return nil, err
	}

	now := t.clock.Now()
	if !req.TargetDate.After(now) {
		return nil, fmt.Errorf("%w: target date must be in the future", circles.ErrInvalidArgument)
	}

	goal := &circles.Goal{
		ID:          uuid.New().String(),
		CircleID:    circleID,
		OwnerUserID: owner.ID,
		Title:       title,
		TargetDate:  req.TargetDate,
		CreatedAt:   now,
		Status:      circles.GoalInProgress,
		IsPrivate:   req.IsPrivate,
	}
	if err := t.repo.SaveGoal(ctx, goal); err != nil {
		return nil, fmt.Errorf("failed to save goal: %w", err)
	}

	t.logger.Info().Str("goal_id", goal.ID).Str("circle_id", circleID).Str("user_id", owner.ID).Msg("goal created")
	return goal, nil
}

// RecordCheckIn upserts userID's check-in for the calendar day of date and
// recomputes the goal's progress. date must fall between the goal's creation
// day and today.
func (t *Tracker) RecordCheckIn(ctx context.Context, goalID, userID string, isCompleted bool, notes string, date time.Time) (*Result, error) {
	if date.IsZero() {
		return nil, fmt.Errorf("%w: check-in date is required", circles.ErrInvalidArgument)
	}
	if clock.Day(date).After(clock.Day(t.clock.Now())) {
		return nil, fmt.Errorf("%w: check-in date is in the future", circles.ErrInvalidArgument)
	}

	t.mu.Lock()
	res, err := t.recordLocked(ctx, goalID, userID, isCompleted, notes, date)
	t.mu.Unlock()
	if err != nil {
		return nil, err
	}

	t.bus.Publish(events.TopicCheckIn, events.CheckInEvent{CircleID: res.Goal.CircleID, CheckIn: res.CheckIn})
	t.bus.Publish(events.TopicGoalUpdate, events.GoalUpdateEvent{
		Goal:             res.Goal,
		PreviousProgress: res.PreviousProgress,
		Progress:         res.Goal.Progress,
		Milestone:        res.Milestone,
	})
	checkInsRecorded.WithLabelValues(fmt.Sprint(isCompleted)).Inc()

	if res.Milestone > 0 {
		milestonesReached.WithLabelValues(fmt.Sprint(res.Milestone)).Inc()
		t.celebrate(ctx, res.Goal, res.Milestone)
	}
	return res, nil
}

func (t *Tracker) recordLocked(ctx context.Context, goalID, userID string, isCompleted bool, notes string, date time.Time) (*Result, error) {
	goal, err := t.repo.GetGoal(ctx, goalID)
	if err != nil {
		return nil, err
	}
	if err := circles.RequireActiveMember(ctx, t.repo, userID, goal.CircleID); err != nil {
		return nil, err
	}
	if clock.Day(date).Before(clock.Day(goal.CreatedAt)) {
		return nil, fmt.Errorf("%w: check-in date is before the goal was created", circles.ErrInvalidArgument)
	}

	now := t.clock.Now()
	checkIn := &circles.CheckIn{
		ID:          uuid.New().String(),
		GoalID:      goalID,
		UserID:      userID,
		Date:        clock.Day(date),
		IsCompleted: isCompleted,
		Notes:       strings.TrimSpace(notes),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := t.repo.SaveCheckIn(ctx, checkIn); err != nil {
		return nil, fmt.Errorf("failed to save check-in: %w", err)
	}

	checkIns, err := t.repo.ListCheckIns(ctx, goalID)
	if err != nil {
		return nil, fmt.Errorf("failed to list check-ins: %w", err)
	}

	previous := goal.Progress
	progress := Progress(goal, checkIns)
	status := circles.GoalInProgress
	if progress >= 100 {
		status = circles.GoalCompleted
	}
	if err := t.repo.UpdateGoalProgress(ctx, goalID, progress, status); err != nil {
		return nil, fmt.Errorf("failed to update goal progress: %w", err)
	}
	goal.Progress = progress
	goal.Status = status

	return &Result{
		CheckIn:          checkIn,
		Goal:             goal,
		PreviousProgress: previous,
		Milestone:        Crossed(previous, progress),
	}, nil
}

func (t *Tracker) celebrate(ctx context.Context, goal *circles.Goal, milestone int) {
	if t.announcer == nil {
		return
	}
	if _, err := t.announcer.DeliverAutomated(ctx, goal.CircleID, facilitator.CelebrationMessage(goal, milestone)); err != nil {
		t.logger.Error().Stack().Err(err).
			Str("goal_id", goal.ID).
			Int("milestone", milestone).
			Msg("failed to deliver milestone celebration")
		return
	}
	t.logger.Info().Str("goal_id", goal.ID).Str("circle_id", goal.CircleID).Int("milestone", milestone).Msg("milestone reached")
}

// Progress returns the goal's completion percentage: distinct days with a
// completed check-in over planned days, rounded and clamped to [0,100].
func Progress(goal *circles.Goal, checkIns []*circles.CheckIn) int {
	days := make(map[time.Time]bool)
	for _, c := range checkIns {
		if c.IsCompleted {
			days[clock.Day(c.Date)] = true
		}
	}

	p := int(math.Round(100 * float64(len(days)) / float64(PlannedDays(goal))))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// PlannedDays is the number of whole days between creation and target, at
// least 1.
func PlannedDays(goal *circles.Goal) int {
	days := int(math.Ceil(goal.TargetDate.Sub(goal.CreatedAt).Hours() / 24))
	if days < 1 {
		return 1
	}
	return days
}

// Crossed returns the highest threshold in (previous, current], or 0
func Crossed(previous, current int) int {
	reached := 0
	for _, th := range Thresholds {
		if previous < th && current >= th {
			reached = th
		}
	}
	return reached
}
