// internal/matching/engine.go

// Package matching scores candidate circles against a user's stated
// preferences.
package matching

import (
	"fmt"
	"sort"
	"strings"

	"github.com/imadgeboyega/kiekky-circles/internal/circles"
	"github.com/imadgeboyega/kiekky-circles/internal/common/utils"
)

const (
	DefaultLimit = 3

	// a sub-score above this is worth explaining to the user
	notableThreshold = 0.7
	maxReasons       = 3
)

// Weights of the five sub-scores
const (
	WeightInterest      = 3.0
	WeightGoalAlignment = 2.0
	WeightActivity      = 1.5
	WeightPrivacy       = 1.0
	WeightSize          = 1.0
)

// Factors holds the [0,1] sub-scores of one circle
type Factors struct {
	Interest      float64 `json:"interest"`
	GoalAlignment float64 `json:"goal_alignment"`
	Activity      float64 `json:"activity"`
	Privacy       float64 `json:"privacy"`
	Size          float64 `json:"size"`
}

// Total is the weighted sum of the sub-scores
func (f Factors) Total() float64 {
	return f.Interest*WeightInterest +
		f.GoalAlignment*WeightGoalAlignment +
		f.Activity*WeightActivity +
		f.Privacy*WeightPrivacy +
		f.Size*WeightSize
}

type ScoredCircle struct {
	Circle  *circles.Circle `json:"circle"`
	Score   float64         `json:"score"`
	Factors Factors         `json:"factors"`
	Reasons []string        `json:"reasons,omitempty"`
}

// Rank scores candidates and returns the best limit of them. Circles listed in
// excludeIDs (the user's active circles) and full circles are skipped. Equal
// scores keep their input order.
func Rank(prefs *circles.MatchPreference, candidates []*circles.Circle, limit int, excludeIDs ...string) ([]*ScoredCircle, error) {
	if err := validatePreference(prefs); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	excluded := make(map[string]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = true
	}

	interests := prefs.NormalizedInterests()
	scored := make([]*ScoredCircle, 0, len(candidates))
	for _, c := range candidates {
		if c == nil || excluded[c.ID] || c.IsFull() {
			continue
		}
		factors := score(prefs, interests, c)
		total := factors.Total()
		matchScores.Observe(total)
		scored = append(scored, &ScoredCircle{Circle: c, Score: total, Factors: factors})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}
	for _, sc := range scored {
		sc.Reasons = explain(prefs, interests, sc.Circle, sc.Factors)
	}
	return scored, nil
}

// Score returns the sub-scores of a single circle
func Score(prefs *circles.MatchPreference, circle *circles.Circle) (Factors, error) {
	if err := validatePreference(prefs); err != nil {
		return Factors{}, err
	}
	return score(prefs, prefs.NormalizedInterests(), circle), nil
}

// Explain returns human readable reasons for the notable sub-scores of
// circle, strongest contribution first.
func Explain(prefs *circles.MatchPreference, circle *circles.Circle) ([]string, error) {
	if err := validatePreference(prefs); err != nil {
		return nil, err
	}
	interests := prefs.NormalizedInterests()
	return explain(prefs, interests, circle, score(prefs, interests, circle)), nil
}

func validatePreference(prefs *circles.MatchPreference) error {
	if prefs == nil {
		return fmt.Errorf("%w: preferences are required", circles.ErrInvalidArgument)
	}
	if err := utils.ValidateStruct(prefs); err != nil {
		return fmt.Errorf("%w: %v", circles.ErrInvalidArgument, err)
	}
	return nil
}

func score(prefs *circles.MatchPreference, interests []string, c *circles.Circle) Factors {
	return Factors{
		Interest:      interestScore(interests, c.Tags),
		GoalAlignment: goalAlignmentScore(prefs.GoalAlignment, c),
		Activity:      bucketScore(activityLevels, prefs.ActivityLevel, activityBucket(c), 0.2),
		Privacy:       privacyScore(prefs.PrivacyLevel, c),
		Size:          bucketScore(sizeLevels, prefs.CircleSize, sizeBucket(c), 0.3),
	}
}

func interestScore(interests, tags []string) float64 {
	tagSet := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tagSet[strings.ToLower(strings.TrimSpace(tag))] = true
	}

	matches := 0
	for _, interest := range interests {
		if tagSet[interest] {
			matches++
		}
	}
	return float64(matches) / float64(max(len(interests), 1))
}

// circles with three or more tags count as diverse
func goalAlignmentProxy(c *circles.Circle) string {
	if len(c.Tags) >= 3 {
		return circles.AlignmentDiverse
	}
	return circles.AlignmentSimilar
}

func goalAlignmentScore(pref string, c *circles.Circle) float64 {
	switch {
	case pref == circles.AlignmentAny:
		return 0.7
	case pref == goalAlignmentProxy(c):
		return 1.0
	default:
		return 0.3
	}
}

var (
	activityLevels = []string{circles.ActivityLight, circles.ActivityModerate, circles.ActivityActive}
	sizeLevels     = []string{circles.SizeSmall, circles.SizeMedium, circles.SizeLarge}
)

func activityBucket(c *circles.Circle) string {
	switch {
	case c.CurrentMembers <= 3:
		return circles.ActivityLight
	case c.CurrentMembers <= 7:
		return circles.ActivityModerate
	default:
		return circles.ActivityActive
	}
}

func sizeBucket(c *circles.Circle) string {
	switch {
	case c.MaxMembers <= 5:
		return circles.SizeSmall
	case c.MaxMembers <= 10:
		return circles.SizeMedium
	default:
		return circles.SizeLarge
	}
}

// bucketScore is 1.0 for an exact match, 0.6 for adjacent buckets and far
// for opposite extremes.
func bucketScore(levels []string, want, got string, far float64) float64 {
	wi, gi := indexOf(levels, want), indexOf(levels, got)
	switch d := wi - gi; {
	case d == 0:
		return 1.0
	case d == 1 || d == -1:
		return 0.6
	default:
		return far
	}
}

func privacyScore(pref string, c *circles.Circle) float64 {
	switch {
	case pref == circles.PrivacyBalanced:
		return 0.7
	case pref == circles.PrivacyOpen && c.IsPublic:
		return 1.0
	case pref == circles.PrivacyPrivate && !c.IsPublic:
		return 1.0
	default:
		return 0.2
	}
}

func indexOf(levels []string, v string) int {
	for i, l := range levels {
		if l == v {
			return i
		}
	}
	return -1
}

type contribution struct {
	weighted float64
	reason   string
}

func explain(prefs *circles.MatchPreference, interests []string, c *circles.Circle, f Factors) []string {
	var notable []contribution

	if f.Interest > notableThreshold {
		notable = append(notable, contribution{
			weighted: f.Interest * WeightInterest,
			reason:   "Shares your interests: " + strings.Join(sharedInterests(interests, c.Tags), ", "),
		})
	}
	if f.GoalAlignment > notableThreshold {
		reason := "Members work toward similar goals"
		if goalAlignmentProxy(c) == circles.AlignmentDiverse {
			reason = "Brings together a diverse mix of goals"
		}
		notable = append(notable, contribution{weighted: f.GoalAlignment * WeightGoalAlignment, reason: reason})
	}
	if f.Activity > notableThreshold {
		notable = append(notable, contribution{
			weighted: f.Activity * WeightActivity,
			reason:   fmt.Sprintf("%s activity level, like you asked for", titleCase(activityBucket(c))),
		})
	}
	if f.Privacy > notableThreshold {
		reason := "Private circle, matching your privacy preference"
		if c.IsPublic {
			reason = "Open circle, matching your privacy preference"
		}
		notable = append(notable, contribution{weighted: f.Privacy * WeightPrivacy, reason: reason})
	}
	if f.Size > notableThreshold {
		notable = append(notable, contribution{
			weighted: f.Size * WeightSize,
			reason:   fmt.Sprintf("%s group size (%d seats)", titleCase(sizeBucket(c)), c.MaxMembers),
		})
	}

	sort.SliceStable(notable, func(i, j int) bool {
		return notable[i].weighted > notable[j].weighted
	})
	if len(notable) > maxReasons {
		notable = notable[:maxReasons]
	}

	reasons := make([]string, 0, len(notable))
	for _, n := range notable {
		reasons = append(reasons, n.reason)
	}
	return reasons
}

func sharedInterests(interests, tags []string) []string {
	tagSet := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tagSet[strings.ToLower(strings.TrimSpace(tag))] = true
	}
	var shared []string
	for _, interest := range interests {
		if tagSet[interest] {
			shared = append(shared, interest)
		}
	}
	return shared
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
