package facilitator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imadgeboyega/kiekky-circles/internal/circles"
	"github.com/imadgeboyega/kiekky-circles/internal/clock"
)

var t0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type recordingDeliverer struct {
	mu        sync.Mutex
	delivered []string
	err       error
}

func (d *recordingDeliverer) DeliverAutomated(ctx context.Context, circleID, content string) (*circles.Message, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	d.delivered = append(d.delivered, circleID+": "+content)
	return &circles.Message{CircleID: circleID, Content: content, IsAutomated: true}, nil
}

func human(id, content string) *circles.Message {
	return &circles.Message{ID: id, CircleID: "c1", SenderID: "u-" + id, Content: content}
}

func window(n int) []*circles.Message {
	out := make([]*circles.Message, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, human(fmt.Sprint(i), "hello"))
	}
	return out
}

func TestShouldRespond_NeverToAutomated(t *testing.T) {
	msg := &circles.Message{CircleID: "c1", Content: "@facilitator what do you think?", IsAutomated: true}
	for n := 0; n < 7; n++ {
		assert.False(t, ShouldRespond(msg, window(n)), "window of %d", n)
	}
}

func TestShouldRespond_EveryThirdHumanMessage(t *testing.T) {
	msg := human("x", "hello")

	assert.True(t, ShouldRespond(msg, window(3)))
	assert.False(t, ShouldRespond(msg, window(4)))
	assert.False(t, ShouldRespond(msg, window(5)))
	assert.True(t, ShouldRespond(msg, window(6)))

	recent := append(window(3), &circles.Message{IsAutomated: true})
	assert.True(t, ShouldRespond(msg, recent), "automated messages are not counted")
}

func TestShouldRespond_WhenAddressed(t *testing.T) {
	assert.True(t, ShouldRespond(human("x", "hey @Facilitator"), window(4)))
	assert.True(t, ShouldRespond(human("x", "Is this AI?"), window(4)))
	assert.False(t, ShouldRespond(human("x", "good morning"), window(4)))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		content string
		recent  int
		roll    float64
		want    Category
	}{
		{"how do you cope?", 1, 0.9, CategoryQuestions},
		{"I wonder about that", 1, 0.9, CategoryQuestions},
		{"feeling anxious today", 1, 0.0, CategoryValidation},
		{"so STRESSED", 10, 0.0, CategoryValidation},
		{"great day", 5, 0.1, CategorySummary},
		{"great day", 4, 0.1, CategoryEncouragement},
		{"great day", 5, 0.5, CategoryEncouragement},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.content, tt.recent, tt.roll, DefaultSummaryProbability), tt.content)
	}
}

func TestResponder_DeliversAfterDelay(t *testing.T) {
	fake := clock.NewFake(t0)
	d := &recordingDeliverer{}
	r := NewResponder(fake, zerolog.Nop(), WithSeed(1))
	r.SetDeliverer(d)

	require.True(t, r.MaybeRespond(human("x", "how is everyone?"), window(3)))
	assert.Equal(t, 1, r.Pending("c1"))

	fake.Advance(DefaultMinDelay - time.Millisecond)
	assert.Empty(t, d.delivered)

	fake.Advance(DefaultMaxDelay)
	require.Len(t, d.delivered, 1)
	assert.Contains(t, responseTemplates[CategoryQuestions], d.delivered[0][len("c1: "):])
	assert.Zero(t, r.Pending("c1"))
}

func TestResponder_NoReplyForAutomated(t *testing.T) {
	fake := clock.NewFake(t0)
	r := NewResponder(fake, zerolog.Nop())

	msg := &circles.Message{CircleID: "c1", Content: "ai", IsAutomated: true}
	assert.False(t, r.MaybeRespond(msg, window(3)))
	assert.Zero(t, fake.Pending())
}

func TestResponder_CancelPending(t *testing.T) {
	fake := clock.NewFake(t0)
	d := &recordingDeliverer{}
	r := NewResponder(fake, zerolog.Nop(), WithSeed(2))
	r.SetDeliverer(d)

	require.True(t, r.MaybeRespond(human("a", "@facilitator hi"), window(1)))
	require.True(t, r.MaybeRespond(human("b", "@facilitator hi again"), window(2)))

	assert.Equal(t, 2, r.CancelPending("c1"))
	fake.Advance(time.Minute)
	assert.Empty(t, d.delivered)
}

func TestResponder_ShutdownStopsScheduling(t *testing.T) {
	fake := clock.NewFake(t0)
	d := &recordingDeliverer{}
	r := NewResponder(fake, zerolog.Nop())
	r.SetDeliverer(d)

	require.True(t, r.MaybeRespond(human("a", "@facilitator"), window(1)))
	r.Shutdown()

	assert.False(t, r.MaybeRespond(human("b", "@facilitator"), window(1)))
	fake.Advance(time.Minute)
	assert.Empty(t, d.delivered)
}

func TestResponder_DeliveryErrorIsContained(t *testing.T) {
	fake := clock.NewFake(t0)
	r := NewResponder(fake, zerolog.Nop())
	r.SetDeliverer(&recordingDeliverer{err: errors.New("db down")})

	require.True(t, r.MaybeRespond(human("a", "@facilitator"), window(1)))
	assert.NotPanics(t, func() { fake.Advance(time.Minute) })
	assert.Zero(t, r.Pending("c1"))
}

func TestResponder_DelayWithinRange(t *testing.T) {
	r := NewResponder(clock.NewFake(t0), zerolog.Nop(), WithSeed(7))
	for i := 0; i < 50; i++ {
		reply, err := r.composeLocked(human("a", "hi"), window(3))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, reply.Delay, DefaultMinDelay)
		assert.LessOrEqual(t, reply.Delay, DefaultMaxDelay)
	}
}

func TestResponder_SummaryRendersCounts(t *testing.T) {
	r := NewResponder(clock.NewFake(t0), zerolog.Nop(), WithSeed(3), WithSummaryProbability(1))

	reply, err := r.composeLocked(human("a", "nice"), window(6))
	require.NoError(t, err)
	assert.Equal(t, CategorySummary, reply.Category)
	assert.Contains(t, reply.Content, "6")
	assert.NotContains(t, reply.Content, "{{")
}

func TestCelebrationMessage(t *testing.T) {
	goal := &circles.Goal{Title: "Run a 5k"}
	assert.Contains(t, CelebrationMessage(goal, 50), `"Run a 5k"`)
	assert.Contains(t, CelebrationMessage(goal, 50), "50%")

	goal.IsPrivate = true
	msg := CelebrationMessage(goal, 100)
	assert.NotContains(t, msg, "Run a 5k")
	assert.Contains(t, msg, "A goal in this circle")
}
