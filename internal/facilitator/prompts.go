// internal/facilitator/prompts.go

package facilitator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/imadgeboyega/kiekky-circles/internal/circles"
	"github.com/imadgeboyega/kiekky-circles/internal/clock"
)

const defaultTopic = "general"

var promptTemplates = map[string][]string{
	"general": {
		"What's one thing you're grateful for today?",
		"What small win from this week deserves a celebration?",
		"What is one thing you'd like support with right now?",
		"Describe your energy today in three words.",
		"What's something you learned about yourself recently?",
	},
	"mindfulness": {
		"Take three slow breaths. What do you notice in your body right now?",
		"When did you feel most present today?",
		"What thought kept returning to you today, and how did you respond to it?",
		"Name one sound, one sight and one feeling from this moment.",
	},
	"anxiety": {
		"What is one worry you can set down for today?",
		"What helps you feel grounded when things get overwhelming?",
		"Share a moment this week when you handled something better than you expected.",
		"What would you say to a friend who felt the way you feel today?",
	},
	"fitness": {
		"How did you move your body today?",
		"What's one habit that's helping your training right now?",
		"What does rest look like for you this week?",
		"Which goal are you chasing this month, and what's the next step?",
	},
	"career": {
		"What's one professional goal you're working toward this week?",
		"What part of your work gave you energy today?",
		"Who is someone whose career path inspires you, and why?",
		"What boundary would make your workday healthier?",
	},
}

// DefaultTopics maps well-known circles to their prompt topic. Circles that
// are not listed use the general topic.
var DefaultTopics = map[string]string{
	"mindful-mornings": "mindfulness",
	"calm-minds":       "anxiety",
	"move-together":    "fitness",
	"career-growth":    "career",
}

// Prompter produces one prompt per circle per calendar day
type Prompter struct {
	repo   circles.Repository
	clock  clock.Clock
	topics map[string]string
	logger zerolog.Logger
	mu     sync.Mutex
}

func NewPrompter(repo circles.Repository, clk clock.Clock, topics map[string]string, logger zerolog.Logger) *Prompter {
	if topics == nil {
		topics = DefaultTopics
	}
	return &Prompter{
		repo:   repo,
		clock:  clk,
		topics: topics,
		logger: logger.With().Str("component", "prompts").Logger(),
	}
}

// Topic returns the prompt topic of a circle
func (p *Prompter) Topic(circleID string) string {
	if topic, ok := p.topics[circleID]; ok {
		if _, known := promptTemplates[topic]; known {
			return topic
		}
	}
	return defaultTopic
}

// GenerateDailyPrompt returns the prompt text for circleID on day. The same
// circle and day always produce the same prompt.
func (p *Prompter) GenerateDailyPrompt(circleID string, day time.Time) string {
	pool := promptTemplates[p.Topic(circleID)]
	return pool[clock.Day(day).YearDay()%len(pool)]
}

// EnsureDailyPrompt returns today's prompt of circleID, storing a new one if
// the circle has none yet. created reports whether a prompt was stored.
func (p *Prompter) EnsureDailyPrompt(ctx context.Context, circleID string) (prompt *circles.Prompt, created bool, err error) {
	if _, err := p.repo.GetCircle(ctx, circleID); err != nil {
		return nil, false, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	today := clock.Day(p.clock.Now())
	existing, err := p.repo.GetPromptForDay(ctx, circleID, today)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, circles.ErrPromptNotFound) {
		return nil, false, fmt.Errorf("failed to load prompt: %w", err)
	}

	prompt = &circles.Prompt{
		ID:           uuid.New().String(),
		CircleID:     circleID,
		Content:      p.GenerateDailyPrompt(circleID, today),
		ScheduledFor: today,
	}
	if err := p.repo.SavePrompt(ctx, prompt); err != nil {
		return nil, false, fmt.Errorf("failed to save prompt: %w", err)
	}

	promptsGenerated.Inc()
	p.logger.Info().Str("circle_id", circleID).Time("day", today).Msg("daily prompt generated")
	return prompt, true, nil
}

// Sweep ensures every circle has a prompt for today. A failure for one circle
// is logged and does not stop the others.
func (p *Prompter) Sweep(ctx context.Context) (created int, err error) {
	all, err := p.repo.ListCircles(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list circles: %w", err)
	}

	for _, c := range all {
		_, ok, err := p.EnsureDailyPrompt(ctx, c.ID)
		if err != nil {
			p.logger.Error().Stack().Err(err).Str("circle_id", c.ID).Msg("failed to ensure daily prompt")
			continue
		}
		if ok {
			created++
		}
	}
	return created, nil
}
