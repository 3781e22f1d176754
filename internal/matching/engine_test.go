package matching

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imadgeboyega/kiekky-circles/internal/circles"
)

func mindfulPrefs() *circles.MatchPreference {
	return &circles.MatchPreference{
		Interests:     []string{"mindfulness"},
		GoalAlignment: circles.AlignmentSimilar,
		ActivityLevel: circles.ActivityModerate,
		PrivacyLevel:  circles.PrivacyBalanced,
		CircleSize:    circles.SizeMedium,
	}
}

func circleA() *circles.Circle {
	return &circles.Circle{ID: "A", Tags: []string{"mindfulness", "beginners"}, IsPublic: true, MaxMembers: 8, CurrentMembers: 5}
}

func circleB() *circles.Circle {
	return &circles.Circle{ID: "B", Tags: []string{"finance"}, IsPublic: false, MaxMembers: 20, CurrentMembers: 15}
}

func TestRank_Deterministic(t *testing.T) {
	ranked, err := Rank(mindfulPrefs(), []*circles.Circle{circleB(), circleA()}, 3)
	require.NoError(t, err)
	require.Len(t, ranked, 2)

	assert.Equal(t, "A", ranked[0].Circle.ID)
	assert.Equal(t, "B", ranked[1].Circle.ID)
	assert.InDelta(t, 8.2, ranked[0].Score, 1e-9)
	assert.InDelta(t, 4.2, ranked[1].Score, 1e-9)
	assert.Greater(t, ranked[0].Score, ranked[1].Score)
}

func TestRank_ExcludesFullCircles(t *testing.T) {
	full := circleA()
	full.ID = "full"
	full.CurrentMembers = full.MaxMembers

	ranked, err := Rank(mindfulPrefs(), []*circles.Circle{full, circleB()}, 3)
	require.NoError(t, err)
	for _, sc := range ranked {
		assert.NotEqual(t, "full", sc.Circle.ID)
	}
	assert.Len(t, ranked, 1)
}

func TestRank_ExcludesJoinedCircles(t *testing.T) {
	ranked, err := Rank(mindfulPrefs(), []*circles.Circle{circleA(), circleB()}, 3, "A")
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, "B", ranked[0].Circle.ID)
}

func TestRank_TiesKeepInputOrderAndLimit(t *testing.T) {
	var candidates []*circles.Circle
	for _, id := range []string{"c1", "c2", "c3", "c4", "c5"} {
		c := circleB()
		c.ID = id
		candidates = append(candidates, c)
	}

	ranked, err := Rank(mindfulPrefs(), candidates, 0)
	require.NoError(t, err)
	require.Len(t, ranked, DefaultLimit)
	assert.Equal(t, "c1", ranked[0].Circle.ID)
	assert.Equal(t, "c2", ranked[1].Circle.ID)
	assert.Equal(t, "c3", ranked[2].Circle.ID)
}

func TestRank_InvalidPreferences(t *testing.T) {
	prefs := mindfulPrefs()
	prefs.CircleSize = "huge"

	_, err := Rank(prefs, []*circles.Circle{circleA()}, 3)
	assert.ErrorIs(t, err, circles.ErrInvalidArgument)

	_, err = Rank(nil, nil, 3)
	assert.ErrorIs(t, err, circles.ErrInvalidArgument)
}

func TestSubScores(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *circles.MatchPreference, c *circles.Circle)
		check  func(t *testing.T, f Factors)
	}{
		{
			name: "interest is case insensitive and divided by interest count",
			mutate: func(p *circles.MatchPreference, c *circles.Circle) {
				p.Interests = []string{"Mindfulness", "sleep"}
			},
			check: func(t *testing.T, f Factors) { assert.InDelta(t, 0.5, f.Interest, 1e-9) },
		},
		{
			name: "no interests scores zero",
			mutate: func(p *circles.MatchPreference, c *circles.Circle) {
				p.Interests = nil
			},
			check: func(t *testing.T, f Factors) { assert.Zero(t, f.Interest) },
		},
		{
			name: "three tags make a circle diverse",
			mutate: func(p *circles.MatchPreference, c *circles.Circle) {
				c.Tags = []string{"a", "b", "c"}
			},
			check: func(t *testing.T, f Factors) { assert.Equal(t, 0.3, f.GoalAlignment) },
		},
		{
			name: "any alignment",
			mutate: func(p *circles.MatchPreference, c *circles.Circle) {
				p.GoalAlignment = circles.AlignmentAny
			},
			check: func(t *testing.T, f Factors) { assert.Equal(t, 0.7, f.GoalAlignment) },
		},
		{
			name: "opposite activity extremes",
			mutate: func(p *circles.MatchPreference, c *circles.Circle) {
				p.ActivityLevel = circles.ActivityLight
				c.CurrentMembers = 8
				c.MaxMembers = 12
			},
			check: func(t *testing.T, f Factors) { assert.Equal(t, 0.2, f.Activity) },
		},
		{
			name: "opposite size extremes",
			mutate: func(p *circles.MatchPreference, c *circles.Circle) {
				p.CircleSize = circles.SizeSmall
				c.MaxMembers = 30
			},
			check: func(t *testing.T, f Factors) { assert.Equal(t, 0.3, f.Size) },
		},
		{
			name: "open preference on private circle",
			mutate: func(p *circles.MatchPreference, c *circles.Circle) {
				p.PrivacyLevel = circles.PrivacyOpen
				c.IsPublic = false
			},
			check: func(t *testing.T, f Factors) { assert.Equal(t, 0.2, f.Privacy) },
		},
		{
			name: "private preference on private circle",
			mutate: func(p *circles.MatchPreference, c *circles.Circle) {
				p.PrivacyLevel = circles.PrivacyPrivate
				c.IsPublic = false
			},
			check: func(t *testing.T, f Factors) { assert.Equal(t, 1.0, f.Privacy) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, c := mindfulPrefs(), circleA()
			tt.mutate(p, c)
			f, err := Score(p, c)
			require.NoError(t, err)
			tt.check(t, f)
		})
	}
}

func TestExplain(t *testing.T) {
	reasons, err := Explain(mindfulPrefs(), circleA())
	require.NoError(t, err)

	// interest 3.0, goal 2.0, activity 1.5, size 1.0; privacy 0.7 is not notable
	require.Len(t, reasons, 3)
	assert.Equal(t, "Shares your interests: mindfulness", reasons[0])
	assert.Equal(t, "Members work toward similar goals", reasons[1])
	assert.Equal(t, "Moderate activity level, like you asked for", reasons[2])

	reasons, err = Explain(mindfulPrefs(), circleB())
	require.NoError(t, err)
	assert.Equal(t, []string{"Members work toward similar goals"}, reasons)
}

func TestRecommender_SkipsJoinedCircles(t *testing.T) {
	ctx := context.Background()
	repo := circles.NewMemoryRepository()
	require.NoError(t, repo.SaveCircle(ctx, circleA()))
	require.NoError(t, repo.SaveCircle(ctx, circleB()))
	require.NoError(t, repo.SaveMembership(ctx, &circles.Membership{UserID: "u1", CircleID: "A", IsActive: true}))

	rec := NewRecommender(repo, zerolog.Nop())
	ranked, err := rec.Recommend(ctx, circles.CurrentUser{ID: "u1"}, mindfulPrefs(), 5)
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, "B", ranked[0].Circle.ID)
	assert.NotEmpty(t, ranked[0].Reasons)
}
