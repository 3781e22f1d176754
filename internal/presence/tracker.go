// internal/presence/tracker.go

// Package presence tracks who is online and who is typing in each circle.
// State is ephemeral and rebuilt from zero on restart.
package presence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/imadgeboyega/kiekky-circles/internal/clock"
	"github.com/imadgeboyega/kiekky-circles/internal/events"
)

const (
	DefaultTypingTTL     = 5 * time.Second
	DefaultSweepInterval = 5 * time.Second

	mirrorTimeout = 2 * time.Second
)

type typingEntry struct {
	since    time.Time
	lastSeen time.Time
}

// Tracker holds per-circle typing and online maps. Typing entries go stale
// once ttl has passed since the last signal; stale entries are never listed
// and are removed by Sweep.
type Tracker struct {
	mu        sync.Mutex
	typing    map[string]map[string]*typingEntry
	online    map[string]map[string]time.Time
	published map[string][]string

	ttl      time.Duration
	interval time.Duration
	clock    clock.Clock
	bus      events.Publisher
	mirror   Mirror
	logger   zerolog.Logger
}

type Option func(*Tracker)

// WithTTL overrides the typing expiry
func WithTTL(ttl time.Duration) Option {
	return func(t *Tracker) { t.ttl = ttl }
}

// WithSweepInterval overrides how often Start sweeps
func WithSweepInterval(d time.Duration) Option {
	return func(t *Tracker) { t.interval = d }
}

// WithMirror writes presence changes through to m
func WithMirror(m Mirror) Option {
	return func(t *Tracker) { t.mirror = m }
}

func NewTracker(bus events.Publisher, clk clock.Clock, logger zerolog.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		typing:    make(map[string]map[string]*typingEntry),
		online:    make(map[string]map[string]time.Time),
		published: make(map[string][]string),
		ttl:       DefaultTypingTTL,
		interval:  DefaultSweepInterval,
		clock:     clk,
		bus:       bus,
		logger:    logger.With().Str("component", "presence").Logger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SetTyping records or clears a typing signal. isTyping=false removes the
// entry immediately.
func (t *Tracker) SetTyping(circleID, userID string, isTyping bool) {
	now := t.clock.Now()

	t.mu.Lock()
	if isTyping {
		users, ok := t.typing[circleID]
		if !ok {
			users = make(map[string]*typingEntry)
			t.typing[circleID] = users
		}
		if e, ok := users[userID]; ok && !t.stale(e, now) {
			e.lastSeen = now
		} else {
			users[userID] = &typingEntry{since: now, lastSeen: now}
		}
	} else {
		t.removeTyping(circleID, userID)
	}
	changed, visible := t.refreshLocked(circleID, now)
	t.mu.Unlock()

	if isTyping {
		t.mirrorDo(func(ctx context.Context, m Mirror) error { return m.SetTyping(ctx, circleID, userID, t.ttl) })
	} else {
		t.mirrorDo(func(ctx context.Context, m Mirror) error { return m.ClearTyping(ctx, circleID, userID) })
	}

	if changed {
		t.bus.Publish(events.TopicTyping, events.TypingEvent{CircleID: circleID, UserIDs: visible})
	}
}

// ListTyping returns the users currently typing, ordered by when they started,
// then by user ID.
func (t *Tracker) ListTyping(circleID string) []string {
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.visibleLocked(circleID, now)
}

// SetOnline marks a user on- or offline. Going offline also clears typing.
func (t *Tracker) SetOnline(circleID, userID string, isOnline bool) {
	now := t.clock.Now()

	t.mu.Lock()
	users, ok := t.online[circleID]
	if !ok {
		users = make(map[string]time.Time)
		t.online[circleID] = users
	}
	_, wasOnline := users[userID]
	if isOnline {
		users[userID] = now
	} else {
		delete(users, userID)
		if len(users) == 0 {
			delete(t.online, circleID)
		}
		t.removeTyping(circleID, userID)
	}
	onlineChanged := wasOnline != isOnline
	onlineIDs := sortedKeys(t.online[circleID])
	typingChanged, visible := t.refreshLocked(circleID, now)
	t.mu.Unlock()

	t.mirrorDo(func(ctx context.Context, m Mirror) error { return m.SetOnline(ctx, circleID, userID, isOnline) })

	if onlineChanged {
		t.bus.Publish(events.TopicPresence, events.PresenceEvent{
			CircleID:      circleID,
			UserID:        userID,
			Online:        isOnline,
			OnlineUserIDs: onlineIDs,
		})
	}
	if typingChanged {
		t.bus.Publish(events.TopicTyping, events.TypingEvent{CircleID: circleID, UserIDs: visible})
	}
}

// ListOnline returns the online users of a circle ordered by ID
func (t *Tracker) ListOnline(circleID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return sortedKeys(t.online[circleID])
}

// Sweep drops stale typing entries and republishes the typing set of every
// circle whose visible set differs from what was last published.
func (t *Tracker) Sweep() {
	now := t.clock.Now()

	t.mu.Lock()
	circleIDs := make(map[string]struct{}, len(t.typing)+len(t.published))
	for id, users := range t.typing {
		for userID, e := range users {
			if t.stale(e, now) {
				delete(users, userID)
			}
		}
		if len(users) == 0 {
			delete(t.typing, id)
		}
		circleIDs[id] = struct{}{}
	}
	for id := range t.published {
		circleIDs[id] = struct{}{}
	}

	var changes []events.TypingEvent
	for id := range circleIDs {
		if changed, visible := t.refreshLocked(id, now); changed {
			changes = append(changes, events.TypingEvent{CircleID: id, UserIDs: visible})
		}
	}
	t.mu.Unlock()

	sort.Slice(changes, func(i, j int) bool { return changes[i].CircleID < changes[j].CircleID })
	for _, ev := range changes {
		t.bus.Publish(events.TopicTyping, ev)
	}
}

// Start sweeps on a ticker until ctx is cancelled
func (t *Tracker) Start(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.logger.Info().Dur("interval", t.interval).Msg("typing sweep started")
	for {
		select {
		case <-ctx.Done():
			t.logger.Info().Msg("typing sweep stopped")
			return
		case <-ticker.C:
			t.safeSweep()
		}
	}
}

func (t *Tracker) safeSweep() {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error().Interface("panic", r).Msg("typing sweep failed")
		}
	}()
	t.Sweep()
}

func (t *Tracker) stale(e *typingEntry, now time.Time) bool {
	return now.Sub(e.lastSeen) >= t.ttl
}

func (t *Tracker) removeTyping(circleID, userID string) {
	users, ok := t.typing[circleID]
	if !ok {
		return
	}
	delete(users, userID)
	if len(users) == 0 {
		delete(t.typing, circleID)
	}
}

func (t *Tracker) visibleLocked(circleID string, now time.Time) []string {
	users := t.typing[circleID]
	type item struct {
		id    string
		since time.Time
	}
	items := make([]item, 0, len(users))
	for id, e := range users {
		if !t.stale(e, now) {
			items = append(items, item{id: id, since: e.since})
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].since.Equal(items[j].since) {
			return items[i].id < items[j].id
		}
		return items[i].since.Before(items[j].since)
	})

	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.id)
	}
	return out
}

// refreshLocked compares the visible typing set with the last published one
// and records it when it changed.
func (t *Tracker) refreshLocked(circleID string, now time.Time) (bool, []string) {
	visible := t.visibleLocked(circleID, now)
	if equalStrings(visible, t.published[circleID]) {
		return false, visible
	}
	if len(visible) == 0 {
		delete(t.published, circleID)
	} else {
		t.published[circleID] = visible
	}
	return true, visible
}

func (t *Tracker) mirrorDo(fn func(ctx context.Context, m Mirror) error) {
	if t.mirror == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
	defer cancel()

	if err := fn(ctx, t.mirror); err != nil {
		t.logger.Warn().Err(err).Msg("presence mirror write failed")
	}
}

func sortedKeys(m map[string]time.Time) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
