// Package review cleans generated drafts before they are stored or
// published. Every function here is pure and accepts malformed input.
package review

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultSystemPhrases are model-side annotations that must never reach a
// published post.
var DefaultSystemPhrases = []string{
	"SEO를 위한 한마디",
	"메타 설명 아이디어",
	"A note for SEO",
	"Meta description idea",
}

// DefaultBannedImageTerms pull image prompts toward generic marketing art.
var DefaultBannedImageTerms = []string{
	"marketing",
	"dashboard",
	"automation",
	"saas",
	"landing page",
	"ui",
	"ux",
}

const GenericImageDescriptor = "photo, natural light, high resolution, realistic"

var (
	tokenPattern  = regexp.MustCompile(`[\p{L}\p{N}]+`)
	scriptPattern = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)
	adsPattern    = regexp.MustCompile(`(?is)<div[^>]*class="adsense"[^>]*>.*?</div>`)
)

// FilterSystemPhrases drops every line that contains a banned phrase and
// reports each matched phrase once.
func FilterSystemPhrases(text string, banned []string) (string, []string) {
	if banned == nil {
		banned = DefaultSystemPhrases
	}

	var (
		kept    []string
		matched []string
		seen    = map[string]bool{}
	)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		hit := false
		for _, phrase := range banned {
			if phrase == "" || !strings.Contains(line, phrase) {
				continue
			}
			hit = true
			if !seen[phrase] {
				seen[phrase] = true
				matched = append(matched, phrase)
			}
		}
		if !hit {
			kept = append(kept, line)
		}
	}

	return strings.TrimSpace(strings.Join(kept, "\n")), matched
}

// ValidateAndFixImagePrompts makes every prompt depict the topic. Empty
// prompts are synthesized; prompts unrelated to the topic lose banned terms
// and get the topic prepended. An empty topic disables the relatedness check.
func ValidateAndFixImagePrompts(topic string, prompts []string, banned []string) ([]string, []string) {
	if banned == nil {
		banned = DefaultBannedImageTerms
	}
	topic = strings.Trim(topic, " ,\t\r\n")
	tokens := topicTokens(topic)

	fixed := make([]string, 0, len(prompts))
	var issues []string
	for i, raw := range prompts {
		prompt := strings.TrimSpace(raw)

		if prompt == "" {
			fixed = append(fixed, joinPrompt(topic, GenericImageDescriptor))
			issues = append(issues, fmt.Sprintf("image_prompts[%d] empty -> default topic prompt", i))
			continue
		}

		if topic == "" || mentionsTopic(prompt, topic, tokens) {
			fixed = append(fixed, prompt)
			continue
		}

		cleaned := prompt
		if containsAny(cleaned, banned) {
			cleaned = stripTerms(cleaned, banned)
			issues = append(issues, fmt.Sprintf("image_prompts[%d] contains banned marketing terms -> sanitized", i))
		}
		fixed = append(fixed, joinPrompt(topic, cleaned))
		issues = append(issues, fmt.Sprintf("image_prompts[%d] topic mismatch -> forced topic prefix", i))
	}

	return fixed, issues
}

// SanitizeFinalHTML strips script blocks, system phrases and ad containers.
// The passes repeat until nothing changes, so a second call is a no-op.
func SanitizeFinalHTML(html string) (string, []string) {
	var issues []string
	note := func(issue string) {
		for _, existing := range issues {
			if existing == issue {
				return
			}
		}
		issues = append(issues, issue)
	}

	cleaned := html
	for {
		before := cleaned

		if scriptPattern.MatchString(cleaned) {
			cleaned = scriptPattern.ReplaceAllString(cleaned, "")
			note("removed <script> blocks")
		}
		for _, phrase := range DefaultSystemPhrases {
			if strings.Contains(cleaned, phrase) {
				cleaned = strings.ReplaceAll(cleaned, phrase, "")
				note("removed banned phrase: " + phrase)
			}
		}
		if adsPattern.MatchString(cleaned) {
			cleaned = adsPattern.ReplaceAllString(cleaned, "")
			note("removed adsense blocks")
		}
		cleaned = strings.TrimSpace(cleaned)

		if cleaned == before {
			break
		}
	}

	return cleaned, issues
}

func topicTokens(topic string) []string {
	var tokens []string
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(topic), -1) {
		if utf8.RuneCountInString(tok) >= 2 {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

func mentionsTopic(prompt, topic string, tokens []string) bool {
	lower := strings.ToLower(prompt)
	if strings.Contains(lower, strings.ToLower(topic)) {
		return true
	}
	for _, tok := range tokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

func containsAny(text string, terms []string) bool {
	lower := strings.ToLower(text)
	for _, term := range terms {
		if term != "" && strings.Contains(lower, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

func stripTerms(text string, terms []string) string {
	for _, term := range terms {
		if term == "" {
			continue
		}
		re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(term))
		text = re.ReplaceAllString(text, "")
	}
	return strings.Join(strings.Fields(text), " ")
}

func joinPrompt(topic, rest string) string {
	return strings.Trim(topic+", "+rest, " ,")
}
