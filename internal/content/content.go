// Package content holds the values exchanged between the pipeline and its
// external collaborators.
package content

import "time"

type TopicCandidate struct {
	Title    string   `json:"title"`
	Keywords []string `json:"keywords"`
}

type DraftRequest struct {
	Topic        string
	Persona      string
	Instructions string
	MinWords     int
	MaxWords     int
	ImageCount   int
}

type Draft struct {
	Title           string   `json:"title"`
	Body            string   `json:"body"`
	ImagePrompts    []string `json:"image_prompts"`
	MetaDescription string   `json:"meta_description"`
	MetaKeywords    []string `json:"meta_keywords"`
}

type QualityReport struct {
	Score    int    `json:"score"`
	Pass     bool   `json:"pass"`
	Feedback string `json:"feedback"`
}

// Rendered is the final, sanitized form handed to a publisher.
type Rendered struct {
	Title           string
	HTML            string
	ImageURLs       []string
	MetaDescription string
	Keywords        []string
}

const (
	PublishStatusPublished  = "published"
	PublishStatusManualCopy = "manual_copy_ready"
)

type PublishResult struct {
	Status string `json:"status"`
	URL    string `json:"url"`
}

const (
	RankNotFound = 100
	RankError    = -1
)

type RankResult struct {
	Rank   int    `json:"rank"`
	Status string `json:"status"`
}

type RunEvent struct {
	RunID      string    `json:"run_id"`
	PostID     int64     `json:"post_id"`
	OwnerID    int64     `json:"owner_id"`
	RunState   string    `json:"run_state"`
	Status     string    `json:"status"`
	URL        string    `json:"url,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}
