// internal/facilitator/templates.go

package facilitator

import (
	"strings"
	"text/template"
)

// Category is the kind of reply the facilitator sends
type Category string

const (
	CategoryQuestions     Category = "questions"
	CategoryValidation    Category = "validation"
	CategorySummary       Category = "summary"
	CategoryEncouragement Category = "encouragement"
)

var responseTemplates = map[Category][]string{
	CategoryQuestions: {
		"That's a great question. What has helped others here when they felt the same way?",
		"I'm curious too. Has anyone in the circle been through something similar?",
		"Let's sit with that for a moment. What do you think is underneath the question?",
		"What would a small first step toward an answer look like for you?",
	},
	CategoryValidation: {
		"It sounds like you're carrying a lot right now. Thank you for sharing it with the circle.",
		"What you're feeling makes sense. You don't have to work through it alone.",
		"That sounds really hard. Be gentle with yourself today.",
		"Thank you for trusting us with this. Would it help to hear how others have coped?",
	},
	CategorySummary: {
		"Quick check-in: {{.Count}} messages from {{.Participants}} of you so far. What's one thing that stood out?",
		"This has been a rich conversation with {{.Participants}} voices. Does anyone want to reflect on what they're taking away?",
	},
	CategoryEncouragement: {
		"Love the energy in here today. Keep supporting each other!",
		"Every step counts, even the small ones. Proud of this circle.",
		"Thanks for showing up for each other. That matters more than you know.",
		"You're building something good here. Keep going!",
	},
}

var summaryTemplates = compileSummaryTemplates()

func compileSummaryTemplates() []*template.Template {
	out := make([]*template.Template, 0, len(responseTemplates[CategorySummary]))
	for i, text := range responseTemplates[CategorySummary] {
		out = append(out, template.Must(template.New(string(CategorySummary)+string(rune('a'+i))).Parse(text)))
	}
	return out
}

type summaryData struct {
	Count        int
	Participants int
}

func renderSummary(idx int, data summaryData) (string, error) {
	var b strings.Builder
	if err := summaryTemplates[idx].Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

var (
	questionMarkers   = []string{"?", "wonder", "curious"}
	validationMarkers = []string{"sad", "anxious", "worried", "stressed"}
)

// milestone celebration lines; %s is the goal title or a neutral noun
var celebrationTemplates = map[int]string{
	25:  "🎉 %s just hit 25%%! A great start, keep it up!",
	50:  "🎉 Halfway there! %s reached 50%%.",
	75:  "🎉 %s is at 75%%. The finish line is in sight!",
	100: "🏆 %s is complete! Congratulations, this circle is proud of you.",
}
