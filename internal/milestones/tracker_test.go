package milestones

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imadgeboyega/kiekky-circles/internal/circles"
	"github.com/imadgeboyega/kiekky-circles/internal/clock"
	"github.com/imadgeboyega/kiekky-circles/internal/common/logger"
	"github.com/imadgeboyega/kiekky-circles/internal/events"
)

var t0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type announcement struct {
	circleID string
	content  string
}

type fakeAnnouncer struct {
	mu   sync.Mutex
	sent []announcement
	err  error
}

func (a *fakeAnnouncer) DeliverAutomated(ctx context.Context, circleID, content string) (*circles.Message, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return nil, a.err
	}
	a.sent = append(a.sent, announcement{circleID: circleID, content: content})
	return &circles.Message{CircleID: circleID, Content: content, IsAutomated: true}, nil
}

type captured struct {
	mu      sync.Mutex
	updates []events.GoalUpdateEvent
	checks  []events.CheckInEvent
}

func (c *captured) goalUpdate(ev events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updates = append(c.updates, ev.Payload.(events.GoalUpdateEvent))
}

func (c *captured) checkIn(ev events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks = append(c.checks, ev.Payload.(events.CheckInEvent))
}

type fixture struct {
	tracker   *Tracker
	repo      *circles.MemoryRepository
	announcer *fakeAnnouncer
	events    *captured
	clock     *clock.Fake
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	repo := circles.NewMemoryRepository()
	require.NoError(t, repo.SaveCircle(ctx, &circles.Circle{ID: "c1", Name: "Move together", MaxMembers: 5, CurrentMembers: 1}))
	require.NoError(t, repo.SaveMembership(ctx, &circles.Membership{UserID: "u1", CircleID: "c1", Role: circles.RoleAdmin, IsActive: true}))

	bus := events.NewBus(zerolog.Nop())
	ev := &captured{}
	bus.Subscribe(events.TopicGoalUpdate, ev.goalUpdate)
	bus.Subscribe(events.TopicCheckIn, ev.checkIn)

	announcer := &fakeAnnouncer{}
	fake := clock.NewFake(t0)
	tracker := NewTracker(repo, bus, announcer, fake, zerolog.Nop())
	return &fixture{tracker: tracker, repo: repo, announcer: announcer, events: ev, clock: fake}
}

func (f *fixture) goal(t *testing.T, days int, progress int) *circles.Goal {
	t.Helper()
	g := &circles.Goal{
		ID:          "g1",
		CircleID:    "c1",
		OwnerUserID: "u1",
		Title:       "Run 5k",
		CreatedAt:   t0,
		TargetDate:  t0.Add(time.Duration(days) * 24 * time.Hour),
		Status:      circles.GoalInProgress,
		Progress:    progress,
	}
	require.NoError(t, f.repo.SaveGoal(context.Background(), g))
	return g
}

func (f *fixture) seedCompleted(t *testing.T, days int) {
	t.Helper()
	for i := 0; i < days; i++ {
		require.NoError(t, f.repo.SaveCheckIn(context.Background(), &circles.CheckIn{
			ID: "seed", GoalID: "g1", UserID: "u1", Date: t0.AddDate(0, 0, i), IsCompleted: true,
		}))
	}
}

func day(i int) time.Time {
	return t0.AddDate(0, 0, i)
}

// today moves the clock forward to day i and returns it
func (f *fixture) today(i int) time.Time {
	f.clock.Advance(day(i).Sub(f.clock.Now()))
	return day(i)
}

func TestRecordCheckIn_CrossingFiresHighestThresholdOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.goal(t, 5, 20)
	f.seedCompleted(t, 2)

	res, err := f.tracker.RecordCheckIn(ctx, "g1", "u1", true, "", f.today(2))
	require.NoError(t, err)
	assert.Equal(t, 20, res.PreviousProgress)
	assert.Equal(t, 60, res.Goal.Progress)
	assert.Equal(t, 50, res.Milestone)

	require.Len(t, f.announcer.sent, 1)
	assert.Equal(t, "c1", f.announcer.sent[0].circleID)
	assert.Contains(t, f.announcer.sent[0].content, "Run 5k")

	require.Len(t, f.events.updates, 1)
	assert.Equal(t, 50, f.events.updates[0].Milestone)
	require.Len(t, f.events.checks, 1)

	// same day again: progress unchanged, no second celebration
	res, err = f.tracker.RecordCheckIn(ctx, "g1", "u1", true, "again", day(2))
	require.NoError(t, err)
	assert.Zero(t, res.Milestone)
	assert.Len(t, f.announcer.sent, 1)
}

func TestRecordCheckIn_NoCrossingNoCelebration(t *testing.T) {
	f := newFixture(t)
	f.goal(t, 20, 60)
	f.seedCompleted(t, 12)

	res, err := f.tracker.RecordCheckIn(context.Background(), "g1", "u1", true, "", f.today(12))
	require.NoError(t, err)
	assert.Equal(t, 65, res.Goal.Progress)
	assert.Zero(t, res.Milestone)

	assert.Empty(t, f.announcer.sent)
	require.Len(t, f.events.updates, 1)
	assert.Zero(t, f.events.updates[0].Milestone)
	assert.Equal(t, 65, f.events.updates[0].Progress)
}

func TestRecordCheckIn_UpsertIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.goal(t, 10, 0)

	first, err := f.tracker.RecordCheckIn(ctx, "g1", "u1", false, "tired", day(0).Add(2*time.Hour))
	require.NoError(t, err)
	second, err := f.tracker.RecordCheckIn(ctx, "g1", "u1", true, "did it", day(0).Add(8*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, first.CheckIn.ID, second.CheckIn.ID)
	assert.Equal(t, 10, second.Goal.Progress)

	checkIns, err := f.repo.ListCheckIns(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, checkIns, 1)
	assert.True(t, checkIns[0].IsCompleted)
	assert.Equal(t, "did it", checkIns[0].Notes)
}

func TestRecordCheckIn_CompletesAndReopens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.goal(t, 2, 50)
	f.seedCompleted(t, 1)

	res, err := f.tracker.RecordCheckIn(ctx, "g1", "u1", true, "", f.today(1))
	require.NoError(t, err)
	assert.Equal(t, 100, res.Goal.Progress)
	assert.Equal(t, 100, res.Milestone)
	assert.Equal(t, circles.GoalCompleted, res.Goal.Status)

	res, err = f.tracker.RecordCheckIn(ctx, "g1", "u1", false, "", day(1))
	require.NoError(t, err)
	assert.Equal(t, 50, res.Goal.Progress)
	assert.Equal(t, circles.GoalInProgress, res.Goal.Status)

	stored, err := f.repo.GetGoal(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, circles.GoalInProgress, stored.Status)
}

func TestRecordCheckIn_PrivateGoalHidesTitle(t *testing.T) {
	f := newFixture(t)
	g := f.goal(t, 4, 0)
	g.IsPrivate = true
	require.NoError(t, f.repo.SaveGoal(context.Background(), g))

	res, err := f.tracker.RecordCheckIn(context.Background(), "g1", "u1", true, "", day(0))
	require.NoError(t, err)
	assert.Equal(t, 25, res.Milestone)

	require.Len(t, f.announcer.sent, 1)
	assert.NotContains(t, f.announcer.sent[0].content, "Run 5k")
}

func TestRecordCheckIn_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.goal(t, 4, 0)

	_, err := f.tracker.RecordCheckIn(ctx, "missing", "u1", true, "", day(0))
	assert.ErrorIs(t, err, circles.ErrInvalidArgument)

	_, err = f.tracker.RecordCheckIn(ctx, "g1", "u1", true, "", time.Time{})
	assert.ErrorIs(t, err, circles.ErrInvalidArgument)

	_, err = f.tracker.RecordCheckIn(ctx, "g1", "stranger", true, "", day(0))
	assert.ErrorIs(t, err, circles.ErrNotMember)

	checkIns, err := f.repo.ListCheckIns(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, checkIns)
	assert.Empty(t, f.events.updates)
}

func TestRecordCheckIn_AnnouncerFailureDoesNotFail(t *testing.T) {
	f := newFixture(t)
	f.goal(t, 4, 0)
	f.announcer.err = errors.New("boom")

	var logs bytes.Buffer
	bus := events.NewBus(zerolog.Nop())
	tracker := NewTracker(f.repo, bus, f.announcer, f.clock, logger.NewWithWriter(&logs, "circles", "info", false))

	res, err := tracker.RecordCheckIn(context.Background(), "g1", "u1", true, "", day(0))
	require.NoError(t, err)
	assert.Equal(t, 25, res.Milestone)

	assert.Contains(t, logs.String(), "failed to deliver milestone celebration")
	assert.Contains(t, logs.String(), `"stack":`)
}

func TestRecordCheckIn_RejectsDatesOutsideGoalWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.goal(t, 4, 0)

	// a member cannot bank future days
	for i := 1; i <= 3; i++ {
		_, err := f.tracker.RecordCheckIn(ctx, "g1", "u1", true, "", day(i))
		assert.ErrorIs(t, err, circles.ErrInvalidArgument)
	}

	_, err := f.tracker.RecordCheckIn(ctx, "g1", "u1", true, "", day(-1))
	assert.ErrorIs(t, err, circles.ErrInvalidArgument)

	checkIns, err := f.repo.ListCheckIns(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, checkIns)

	// later the same day is still today
	res, err := f.tracker.RecordCheckIn(ctx, "g1", "u1", true, "", day(0).Add(10*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 25, res.Goal.Progress)

	stored, err := f.repo.GetGoal(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 25, stored.Progress)
}

func TestCreateGoal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := circles.CurrentUser{ID: "u1", DisplayName: "Uma"}

	goal, err := f.tracker.CreateGoal(ctx, "c1", owner, &CreateGoalRequest{Title: " Read daily ", TargetDate: day(30)})
	require.NoError(t, err)
	assert.Equal(t, "Read daily", goal.Title)
	assert.Equal(t, circles.GoalInProgress, goal.Status)
	assert.Zero(t, goal.Progress)

	_, err = f.tracker.CreateGoal(ctx, "c1", owner, &CreateGoalRequest{Title: "Past", TargetDate: day(-1)})
	assert.ErrorIs(t, err, circles.ErrInvalidArgument)

	_, err = f.tracker.CreateGoal(ctx, "c1", circles.CurrentUser{ID: "stranger"}, &CreateGoalRequest{Title: "x", TargetDate: day(3)})
	assert.ErrorIs(t, err, circles.ErrNotMember)
}

func TestProgressMath(t *testing.T) {
	g := &circles.Goal{CreatedAt: t0, TargetDate: t0.Add(36 * time.Hour)}
	assert.Equal(t, 2, PlannedDays(g))

	g.TargetDate = t0
	assert.Equal(t, 1, PlannedDays(g))

	// more completed days than planned still clamps to 100
	var checkIns []*circles.CheckIn
	for i := 0; i < 3; i++ {
		checkIns = append(checkIns, &circles.CheckIn{Date: day(i), IsCompleted: true})
	}
	assert.Equal(t, 100, Progress(g, checkIns))

	assert.Equal(t, 75, Crossed(10, 80))
	assert.Equal(t, 0, Crossed(60, 65))
	assert.Equal(t, 0, Crossed(50, 50))
	assert.Equal(t, 100, Crossed(99, 100))
}
