// internal/facilitator/responder.go

// Package facilitator implements the automated circle facilitator: deciding
// whether to reply to a message, picking a templated reply, delivering it
// after a human-paced delay, and generating daily prompts.
package facilitator

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/imadgeboyega/kiekky-circles/internal/circles"
	"github.com/imadgeboyega/kiekky-circles/internal/clock"
)

const (
	SenderID          = "facilitator"
	SenderDisplayName = "Facilitator"

	DefaultMinDelay           = 5 * time.Second
	DefaultMaxDelay           = 15 * time.Second
	DefaultSummaryProbability = 0.3

	summaryMinMessages = 5
	deliverTimeout     = 10 * time.Second
)

// Deliverer persists and broadcasts an automated message
type Deliverer interface {
	DeliverAutomated(ctx context.Context, circleID, content string) (*circles.Message, error)
}

// ShouldRespond decides whether a message warrants a facilitator reply.
// Automated messages never do. Otherwise the facilitator replies on every
// third human message in the window, or when addressed.
func ShouldRespond(msg *circles.Message, recent []*circles.Message) bool {
	if msg == nil || msg.IsAutomated {
		return false
	}
	if countHuman(recent)%3 == 0 {
		return true
	}
	content := strings.ToLower(msg.Content)
	return strings.Contains(content, "ai") || strings.Contains(content, "@facilitator")
}

// Classify picks the reply category for content. roll is a uniform sample in
// [0,1) used for the summary branch.
func Classify(content string, recentCount int, roll, summaryProbability float64) Category {
	lower := strings.ToLower(content)
	if containsAny(lower, questionMarkers) {
		return CategoryQuestions
	}
	if containsAny(lower, validationMarkers) {
		return CategoryValidation
	}
	if recentCount >= summaryMinMessages && roll < summaryProbability {
		return CategorySummary
	}
	return CategoryEncouragement
}

// Reply is a scheduled facilitator response
type Reply struct {
	CircleID string
	Category Category
	Content  string
	Delay    time.Duration
}

// Responder schedules facilitator replies. Pending replies can be cancelled
// per circle or all at once on shutdown.
type Responder struct {
	mu        sync.Mutex
	rng       *rand.Rand
	scheduler clock.Scheduler
	deliverer Deliverer
	pending   map[string]map[uint64]clock.Handle
	nextID    uint64
	closed    bool

	minDelay           time.Duration
	maxDelay           time.Duration
	summaryProbability float64
	logger             zerolog.Logger
}

type Option func(*Responder)

// WithSeed makes template and delay selection reproducible
func WithSeed(seed int64) Option {
	return func(r *Responder) { r.rng = rand.New(rand.NewSource(seed)) }
}

// WithDelay sets the reply delay range
func WithDelay(lo, hi time.Duration) Option {
	return func(r *Responder) {
		r.minDelay = lo
		r.maxDelay = hi
	}
}

func WithSummaryProbability(p float64) Option {
	return func(r *Responder) { r.summaryProbability = p }
}

func NewResponder(scheduler clock.Scheduler, logger zerolog.Logger, opts ...Option) *Responder {
	r := &Responder{
		rng:                rand.New(rand.NewSource(time.Now().UnixNano())),
		scheduler:          scheduler,
		pending:            make(map[string]map[uint64]clock.Handle),
		minDelay:           DefaultMinDelay,
		maxDelay:           DefaultMaxDelay,
		summaryProbability: DefaultSummaryProbability,
		logger:             logger.With().Str("component", "facilitator").Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.maxDelay < r.minDelay {
		r.maxDelay = r.minDelay
	}
	return r
}

// SetDeliverer sets where replies are sent once their delay has passed
func (r *Responder) SetDeliverer(d Deliverer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliverer = d
}

// MaybeRespond schedules a reply to msg when ShouldRespond allows it and
// reports whether one was scheduled. It never blocks on delivery.
func (r *Responder) MaybeRespond(msg *circles.Message, recent []*circles.Message) bool {
	if !ShouldRespond(msg, recent) {
		return false
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return false
	}
	reply, err := r.composeLocked(msg, recent)
	if err != nil {
		r.mu.Unlock()
		r.logger.Error().Err(err).Str("circle_id", msg.CircleID).Msg("failed to compose facilitator reply")
		return false
	}
	r.nextID++
	id := r.nextID
	if r.pending[reply.CircleID] == nil {
		r.pending[reply.CircleID] = make(map[uint64]clock.Handle)
	}
	r.pending[reply.CircleID][id] = nil
	r.mu.Unlock()

	h := r.scheduler.After(reply.Delay, func() { r.fire(id, reply) })

	r.mu.Lock()
	if _, ok := r.pending[reply.CircleID][id]; ok {
		r.pending[reply.CircleID][id] = h
	}
	r.mu.Unlock()

	repliesScheduled.WithLabelValues(string(reply.Category)).Inc()
	r.logger.Debug().
		Str("circle_id", reply.CircleID).
		Str("category", string(reply.Category)).
		Dur("delay", reply.Delay).
		Msg("facilitator reply scheduled")
	return true
}

// Pending returns the number of replies waiting for their delay in circleID
func (r *Responder) Pending(circleID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending[circleID])
}

// CancelPending drops every scheduled reply of a circle and returns how many
// were cancelled.
func (r *Responder) CancelPending(circleID string) int {
	r.mu.Lock()
	handles := r.pending[circleID]
	delete(r.pending, circleID)
	r.mu.Unlock()

	n := 0
	for _, h := range handles {
		if h != nil && h.Cancel() {
			n++
		}
	}
	return n
}

// Shutdown cancels all pending replies and stops scheduling new ones
func (r *Responder) Shutdown() {
	r.mu.Lock()
	r.closed = true
	all := r.pending
	r.pending = make(map[string]map[uint64]clock.Handle)
	r.mu.Unlock()

	for _, handles := range all {
		for _, h := range handles {
			if h != nil {
				h.Cancel()
			}
		}
	}
	r.logger.Info().Msg("facilitator stopped")
}

func (r *Responder) composeLocked(msg *circles.Message, recent []*circles.Message) (Reply, error) {
	category := Classify(msg.Content, len(recent), r.rng.Float64(), r.summaryProbability)
	pool := responseTemplates[category]
	idx := r.rng.Intn(len(pool))

	content := pool[idx]
	if category == CategorySummary {
		var err error
		content, err = renderSummary(idx, summaryData{Count: len(recent), Participants: countParticipants(recent)})
		if err != nil {
			return Reply{}, fmt.Errorf("failed to render summary: %w", err)
		}
	}

	delay := r.minDelay
	if span := r.maxDelay - r.minDelay; span > 0 {
		delay += time.Duration(r.rng.Int63n(int64(span) + 1))
	}

	return Reply{CircleID: msg.CircleID, Category: category, Content: content, Delay: delay}, nil
}

func (r *Responder) fire(id uint64, reply Reply) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().Interface("panic", rec).Str("circle_id", reply.CircleID).Msg("facilitator reply panicked")
		}
	}()

	r.mu.Lock()
	handles, ok := r.pending[reply.CircleID]
	if ok {
		_, ok = handles[id]
		delete(handles, id)
		if len(handles) == 0 {
			delete(r.pending, reply.CircleID)
		}
	}
	deliverer := r.deliverer
	r.mu.Unlock()

	if !ok {
		return
	}
	if deliverer == nil {
		r.logger.Warn().Str("circle_id", reply.CircleID).Msg("no deliverer configured, dropping facilitator reply")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()

	if _, err := deliverer.DeliverAutomated(ctx, reply.CircleID, reply.Content); err != nil {
		r.logger.Error().Stack().Err(err).Str("circle_id", reply.CircleID).Msg("failed to deliver facilitator reply")
		return
	}
	repliesDelivered.WithLabelValues(string(reply.Category)).Inc()
}

func countHuman(msgs []*circles.Message) int {
	n := 0
	for _, m := range msgs {
		if !m.IsAutomated {
			n++
		}
	}
	return n
}

func countParticipants(msgs []*circles.Message) int {
	seen := make(map[string]bool)
	for _, m := range msgs {
		if !m.IsAutomated {
			seen[m.SenderID] = true
		}
	}
	return len(seen)
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// CelebrationMessage is the facilitator text for a reached milestone.
// Private goals are celebrated without their title.
func CelebrationMessage(goal *circles.Goal, milestone int) string {
	subject := "A goal in this circle"
	if !goal.IsPrivate && strings.TrimSpace(goal.Title) != "" {
		subject = fmt.Sprintf("%q", goal.Title)
	}
	tmpl, ok := celebrationTemplates[milestone]
	if !ok {
		return fmt.Sprintf("🎉 %s reached %d%%!", subject, milestone)
	}
	return fmt.Sprintf(tmpl, subject)
}
