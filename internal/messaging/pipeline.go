// internal/messaging/pipeline.go

package messaging

import (
	"context"
	"fmt"
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

// DefaultRecentLookback bounds the message window handed to the facilitator
const DefaultRecentLookback = 24 * time.Hour

// Presence is the slice of the presence tracker the pipeline drives
type Presence interface {
	SetTyping(circleID, userID string, isTyping bool)
	ListTyping(circleID string) []string
}

// Responder decides on and schedules facilitator replies
type Responder interface {
	MaybeRespond(msg *circles.Message, recent []*circles.Message) bool
}

type Repository interface {
	circles.CircleRepository
	circles.MessageRepository
}

// Pipeline is the single path every circle message takes: validate, persist,
// clear typing, broadcast, then hand it to the facilitator.
type Pipeline struct {
	repo      Repository
	presence  Presence
	responder Responder
	bus       events.Publisher
	clock     clock.Clock
	logger    zerolog.Logger

	recentLookback time.Duration

	// serializes read-modify-write of reaction lists
	reactionMu sync.Mutex
}

func NewPipeline(repo Repository, presence Presence, responder Responder, bus events.Publisher, clk clock.Clock, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		repo:           repo,
		presence:       presence,
		responder:      responder,
		bus:            bus,
		clock:          clk,
		logger:         logger.With().Str("component", "pipeline").Logger(),
		recentLookback: DefaultRecentLookback,
	}
}

// SetRecentLookback changes how far back the facilitator window reaches
func (p *Pipeline) SetRecentLookback(d time.Duration) {
	if d > 0 {
		p.recentLookback = d
	}
}

// Send posts a member's message to a circle. It returns before any
// facilitator reply is delivered.
func (p *Pipeline) Send(ctx context.Context, circleID string, sender circles.CurrentUser, content string) (*circles.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, circles.ErrEmptyContent
	}

	circle, err := p.repo.GetCircle(ctx, circleID)
	if err != nil {
		return nil, err
	}
	if err := circles.RequireActiveMember(ctx, p.repo, sender.ID, circleID); err != nil {
		return nil, err
	}

	msg := &circles.Message{
		ID:                uuid.New().String(),
		CircleID:          circleID,
		SenderID:          sender.ID,
		SenderDisplayName: sender.DisplayName,
		Content:           content,
		SentAt:            p.clock.Now(),
	}
	if err := p.repo.SaveMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	p.presence.SetTyping(circleID, sender.ID, false)
	p.bus.Publish(events.TopicMessage, events.MessageEvent{Message: msg.Clone()})
	messagesSent.WithLabelValues("false").Inc()

	if circle.AIEnabled && p.responder != nil {
		recent, err := p.recent(ctx, circleID)
		if err != nil {
			p.logger.Warn().Err(err).Str("circle_id", circleID).Msg("failed to load recent messages, skipping facilitator")
		} else {
			p.responder.MaybeRespond(msg, recent)
		}
	}

	return msg, nil
}

// DeliverAutomated posts a facilitator message through the same persist and
// broadcast path as Send.
func (p *Pipeline) DeliverAutomated(ctx context.Context, circleID, content string) (*circles.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, circles.ErrEmptyContent
	}
	if _, err := p.repo.GetCircle(ctx, circleID); err != nil {
		return nil, err
	}

	msg := &circles.Message{
		ID:                uuid.New().String(),
		CircleID:          circleID,
		SenderID:          facilitator.SenderID,
		SenderDisplayName: facilitator.SenderDisplayName,
		IsAutomated:       true,
		Content:           content,
		SentAt:            p.clock.Now(),
	}
	if err := p.repo.SaveMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to save automated message: %w", err)
	}

	p.bus.Publish(events.TopicMessage, events.MessageEvent{Message: msg.Clone()})
	messagesSent.WithLabelValues("true").Inc()
	return msg, nil
}

// Messages returns a member's view of the circle history since the given time
func (p *Pipeline) Messages(ctx context.Context, circleID, userID string, since time.Time) ([]*circles.Message, error) {
	if _, err := p.repo.GetCircle(ctx, circleID); err != nil {
		return nil, err
	}
	if err := circles.RequireActiveMember(ctx, p.repo, userID, circleID); err != nil {
		return nil, err
	}
	return p.repo.GetMessagesSince(ctx, circleID, since)
}

// SetTyping records a member's typing signal
func (p *Pipeline) SetTyping(ctx context.Context, circleID, userID string, isTyping bool) error {
	if _, err := p.repo.GetCircle(ctx, circleID); err != nil {
		return err
	}
	if err := circles.RequireActiveMember(ctx, p.repo, userID, circleID); err != nil {
		return err
	}
	p.presence.SetTyping(circleID, userID, isTyping)
	return nil
}

// Typing lists who is typing in a circle
func (p *Pipeline) Typing(ctx context.Context, circleID, userID string) ([]string, error) {
	if err := circles.RequireActiveMember(ctx, p.repo, userID, circleID); err != nil {
		return nil, err
	}
	return p.presence.ListTyping(circleID), nil
}

// AddReaction sets userID's reaction on a message. Repeating the same symbol
// changes nothing; a different symbol replaces the earlier one.
func (p *Pipeline) AddReaction(ctx context.Context, messageID, userID, symbol string) (*circles.Message, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: reaction symbol is empty", circles.ErrInvalidArgument)
	}

	p.reactionMu.Lock()
	msg, err := p.repo.GetMessage(ctx, messageID)
	if err != nil {
		p.reactionMu.Unlock()
		return nil, err
	}
	if err := circles.RequireActiveMember(ctx, p.repo, userID, msg.CircleID); err != nil {
		p.reactionMu.Unlock()
		return nil, err
	}

	if idx := msg.ReactionBy(userID); idx >= 0 {
		if msg.Reactions[idx].Symbol == symbol {
			p.reactionMu.Unlock()
			return msg, nil
		}
		msg.Reactions = append(msg.Reactions[:idx], msg.Reactions[idx+1:]...)
	}
	msg.Reactions = append(msg.Reactions, circles.Reaction{UserID: userID, Symbol: symbol, CreatedAt: p.clock.Now()})

	if err := p.repo.SaveMessage(ctx, msg); err != nil {
		p.reactionMu.Unlock()
		return nil, fmt.Errorf("failed to save reaction: %w", err)
	}
	p.reactionMu.Unlock()

	p.bus.Publish(events.TopicReaction, events.ReactionEvent{
		CircleID:  msg.CircleID,
		MessageID: msg.ID,
		UserID:    userID,
		Symbol:    symbol,
		Reactions: append([]circles.Reaction(nil), msg.Reactions...),
	})
	reactionsTotal.WithLabelValues("added").Inc()
	return msg, nil
}

// RemoveReaction drops userID's reaction from a message, if any
func (p *Pipeline) RemoveReaction(ctx context.Context, messageID, userID string) (*circles.Message, error) {
	p.reactionMu.Lock()
	msg, err := p.repo.GetMessage(ctx, messageID)
	if err != nil {
		p.reactionMu.Unlock()
		return nil, err
	}
	if err := circles.RequireActiveMember(ctx, p.repo, userID, msg.CircleID); err != nil {
		p.reactionMu.Unlock()
		return nil, err
	}

	idx := msg.ReactionBy(userID)
	if idx < 0 {
		p.reactionMu.Unlock()
		return msg, nil
	}
	msg.Reactions = append(msg.Reactions[:idx], msg.Reactions[idx+1:]...)

	if err := p.repo.SaveMessage(ctx, msg); err != nil {
		p.reactionMu.Unlock()
		return nil, fmt.Errorf("failed to save reaction: %w", err)
	}
	p.reactionMu.Unlock()

	p.bus.Publish(events.TopicReaction, events.ReactionEvent{
		CircleID:  msg.CircleID,
		MessageID: msg.ID,
		UserID:    userID,
		Removed:   true,
		Reactions: append([]circles.Reaction(nil), msg.Reactions...),
	})
	reactionsTotal.WithLabelValues("removed").Inc()
	return msg, nil
}

// recent returns the time-bounded window of messages the facilitator decides
// on. It is recomputed from history on every send.
func (p *Pipeline) recent(ctx context.Context, circleID string) ([]*circles.Message, error) {
	return p.repo.GetMessagesSince(ctx, circleID, p.clock.Now().Add(-p.recentLookback))
}
