// internal/events/bus.go

// Package events is the in-process publish/subscribe dispatcher every engine
// component talks through.
package events

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Topic is one of the closed set of event kinds
type Topic string

const (
	TopicMessage    Topic = "message"
	TopicPresence   Topic = "presence"
	TopicTyping     Topic = "typing"
	TopicReaction   Topic = "reaction"
	TopicCheckIn    Topic = "checkIn"
	TopicGoalUpdate Topic = "goalUpdate"
)

// Topics lists every valid topic
var Topics = []Topic{TopicMessage, TopicPresence, TopicTyping, TopicReaction, TopicCheckIn, TopicGoalUpdate}

func (t Topic) Valid() bool {
	for _, known := range Topics {
		if t == known {
			return true
		}
	}
	return false
}

// Event is what handlers receive
type Event struct {
	Topic       Topic
	Payload     any
	PublishedAt time.Time
}

type Handler func(Event)

// Publisher is the write side of the bus
type Publisher interface {
	Publish(topic Topic, payload any)
}

type subscription struct {
	id      uint64
	handler Handler
}

type topicQueue struct {
	pending  []Event
	draining bool
}

// Bus delivers events synchronously to the subscribers of a topic. Events of
// one topic are delivered strictly in publish order: a publish that arrives
// while the topic is being drained (from a handler or another goroutine) is
// queued and delivered by the draining goroutine.
type Bus struct {
	mu     sync.Mutex
	subs   map[Topic][]subscription
	queues map[Topic]*topicQueue
	nextID uint64
	now    func() time.Time
	logger zerolog.Logger
}

func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{
		subs:   make(map[Topic][]subscription),
		queues: make(map[Topic]*topicQueue),
		now:    time.Now,
		logger: logger.With().Str("component", "events").Logger(),
	}
}

// Subscribe registers h for topic and returns a function that removes it.
// Calling the returned function more than once is harmless. Subscribing to an
// unknown topic is logged and yields a no-op unsubscribe.
func (b *Bus) Subscribe(topic Topic, h Handler) func() {
	if !topic.Valid() {
		b.logger.Warn().Str("topic", string(topic)).Msg("subscribe to unknown topic ignored")
		return func() {}
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[topic] = append(b.subs[topic], subscription{id: id, handler: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(topic, id) })
	}
}

func (b *Bus) unsubscribe(topic Topic, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	current := b.subs[topic]
	next := make([]subscription, 0, len(current))
	for _, s := range current {
		if s.id != id {
			next = append(next, s)
		}
	}
	b.subs[topic] = next
}

// Publish delivers payload to every current subscriber of topic. It never
// returns an error: unknown topics are logged and dropped, and handler panics
// are recovered per handler.
func (b *Bus) Publish(topic Topic, payload any) {
	if !topic.Valid() {
		b.logger.Warn().Str("topic", string(topic)).Msg("publish to unknown topic dropped")
		return
	}
	eventsPublished.WithLabelValues(string(topic)).Inc()

	b.mu.Lock()
	q, ok := b.queues[topic]
	if !ok {
		q = &topicQueue{}
		b.queues[topic] = q
	}
	q.pending = append(q.pending, Event{Topic: topic, Payload: payload, PublishedAt: b.now()})
	if q.draining {
		b.mu.Unlock()
		return
	}
	q.draining = true

	for len(q.pending) > 0 {
		ev := q.pending[0]
		q.pending[0] = Event{}
		q.pending = q.pending[1:]
		handlers := append([]subscription(nil), b.subs[topic]...)
		b.mu.Unlock()

		for _, s := range handlers {
			b.deliver(s, ev)
		}

		b.mu.Lock()
	}
	q.draining = false
	b.mu.Unlock()
}

// SubscriberCount returns how many handlers listen on topic
func (b *Bus) SubscriberCount(topic Topic) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[topic])
}

func (b *Bus) deliver(s subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			handlerPanics.WithLabelValues(string(ev.Topic)).Inc()
			b.logger.Error().
				Str("topic", string(ev.Topic)).
				Uint64("subscription", s.id).
				Str("panic", fmt.Sprint(r)).
				Msg("event handler panicked")
		}
	}()
	s.handler(ev)
}
