// internal/matching/recommender.go

package matching

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/imadgeboyega/kiekky-circles/internal/circles"
)

// Recommender ranks the stored circles for a user
type Recommender struct {
	repo   circles.CircleRepository
	logger zerolog.Logger
}

func NewRecommender(repo circles.CircleRepository, logger zerolog.Logger) *Recommender {
	return &Recommender{
		repo:   repo,
		logger: logger.With().Str("component", "matching").Logger(),
	}
}

// Recommend returns up to limit circles the user has not joined yet
func (r *Recommender) Recommend(ctx context.Context, user circles.CurrentUser, prefs *circles.MatchPreference, limit int) ([]*ScoredCircle, error) {
	candidates, err := r.repo.ListCircles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list circles: %w", err)
	}

	memberships, err := r.repo.ListActiveMemberships(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	joined := make([]string, 0, len(memberships))
	for _, m := range memberships {
		joined = append(joined, m.CircleID)
	}

	ranked, err := Rank(prefs, candidates, limit, joined...)
	if err != nil {
		return nil, err
	}
	recommendationsServed.Add(float64(len(ranked)))

	r.logger.Debug().
		Str("user_id", user.ID).
		Int("candidates", len(candidates)).
		Int("returned", len(ranked)).
		Msg("circle recommendations generated")
	return ranked, nil
}
