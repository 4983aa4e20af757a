package generator

import (
	"encoding/json"
	"strings"

	"github.com/maheshrc27/autopost/internal/content"
)

// ParseDraft reads a model reply into a draft. Replies that are not JSON, or
// that wrap the object in prose or code fences, still yield a usable draft
// with the raw text as body.
func ParseDraft(raw, fallbackTitle string) content.Draft {
	var d struct {
		Title           string   `json:"title"`
		Body            string   `json:"body"`
		HTML            string   `json:"html"`
		ImagePrompts    []string `json:"image_prompts"`
		MetaDescription string   `json:"meta_description"`
		Summary         string   `json:"summary"`
		MetaKeywords    []string `json:"meta_keywords"`
	}

	obj := extractObject(raw)
	if obj == "" || json.Unmarshal([]byte(obj), &d) != nil {
		return content.Draft{Title: fallbackTitle, Body: strings.TrimSpace(raw)}
	}

	draft := content.Draft{
		Title:           strings.TrimSpace(d.Title),
		Body:            d.Body,
		ImagePrompts:    compact(d.ImagePrompts),
		MetaDescription: strings.TrimSpace(d.MetaDescription),
		MetaKeywords:    compact(d.MetaKeywords),
	}
	if draft.Body == "" {
		draft.Body = d.HTML
	}
	if draft.MetaDescription == "" {
		draft.MetaDescription = strings.TrimSpace(d.Summary)
	}
	if draft.Title == "" {
		draft.Title = fallbackTitle
	}
	return draft
}

func ParseTopic(raw string) content.TopicCandidate {
	var t content.TopicCandidate
	obj := extractObject(raw)
	if obj == "" || json.Unmarshal([]byte(obj), &t) != nil {
		return content.TopicCandidate{Title: strings.Trim(strings.TrimSpace(raw), `"`)}
	}
	t.Title = strings.TrimSpace(t.Title)
	t.Keywords = compact(t.Keywords)
	return t
}

// extractObject returns the outermost {...} span of s, or "".
func extractObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
