package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/maheshrc27/autopost/internal/content"
	"golang.org/x/net/html"
)

const DefaultPassScore = 70

// Analyzer scores drafts on on-page signals without calling out to a model.
type Analyzer struct {
	passScore int
	minWords  int
}

func NewAnalyzer(passScore, minWords int) *Analyzer {
	if passScore <= 0 {
		passScore = DefaultPassScore
	}
	return &Analyzer{passScore: passScore, minWords: minWords}
}

type check struct {
	points   int
	ok       bool
	feedback string
}

func (a *Analyzer) Analyze(_ context.Context, draft content.Draft, topic, platform string) (content.QualityReport, error) {
	text := PlainText(draft.Body)
	words := len(strings.Fields(text))
	lowerTopic := strings.ToLower(strings.TrimSpace(topic))
	lowerText := strings.ToLower(text)

	checks := []check{
		{20, lowerTopic == "" || strings.Contains(strings.ToLower(draft.Title), lowerTopic),
			"put the main keyword in the title"},
		{20, lowerTopic == "" || strings.Count(lowerText, lowerTopic) >= 2,
			"mention the main keyword at least twice in the body"},
		{20, words >= a.minWords,
			fmt.Sprintf("expand the body to at least %d words", a.minWords)},
		{15, hasHeadings(draft.Body),
			"structure the body with <h2> or <h3> headings"},
		{15, len([]rune(draft.MetaDescription)) >= 50 && len([]rune(draft.MetaDescription)) <= 160,
			"write a meta description between 50 and 160 characters"},
		{10, len(draft.MetaKeywords) > 0,
			"add meta keywords"},
	}

	score := 0
	var feedback []string
	for _, c := range checks {
		if c.ok {
			score += c.points
			continue
		}
		feedback = append(feedback, c.feedback)
	}

	report := content.QualityReport{
		Score:    score,
		Pass:     score >= a.passScore,
		Feedback: strings.Join(feedback, "; "),
	}
	if report.Feedback == "" {
		report.Feedback = "good keyword coverage for " + platform
	}
	return report, nil
}

// PlainText returns the visible text of an HTML fragment.
func PlainText(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(b.String())
		case html.StartTagToken:
			name, _ := z.TagName()
			if tag := string(name); tag == "script" || tag == "style" {
				skip++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if tag := string(name); (tag == "script" || tag == "style") && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
				b.WriteByte(' ')
			}
		}
	}
}

func hasHeadings(fragment string) bool {
	lower := strings.ToLower(fragment)
	return strings.Contains(lower, "<h2") || strings.Contains(lower, "<h3")
}
