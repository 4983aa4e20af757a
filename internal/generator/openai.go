// Package generator produces drafts, rewrites and topic suggestions with an
// OpenAI chat model, and scores drafts with a local heuristic.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/maheshrc27/autopost/internal/content"
	"github.com/maheshrc27/autopost/internal/pipeline"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const (
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 90 * time.Second

	maxRetries  = 3
	baseBackoff = 2 * time.Second
	maxBackoff  = 16 * time.Second
)

var (
	ErrAPIKeyNotSet = errors.New("openai api key not set")
	ErrNoChoices    = errors.New("no completion choices returned")
)

type Options struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	// BaseURL overrides the API endpoint, used for compatible gateways.
	BaseURL string
}

type Client struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int
	timeout     time.Duration
}

func NewClient(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey), option.WithMaxRetries(0)}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	c := &Client{
		client:      openai.NewClient(reqOpts...),
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		timeout:     opts.Timeout,
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	return c, nil
}

const draftSystemPrompt = `You are a professional blog editor. Respond only with a JSON object:
{"title": string, "body": string (HTML), "image_prompts": [string], "meta_description": string, "meta_keywords": [string]}.
Use HTML tags for structure. Never mention that you are an AI.`

func (c *Client) Draft(ctx context.Context, req content.DraftRequest) (content.Draft, error) {
	var user strings.Builder
	fmt.Fprintf(&user, "Write a blog post about: %s.\n", req.Topic)
	if req.Persona != "" {
		fmt.Fprintf(&user, "Write as this persona: %s.\n", req.Persona)
	}
	if req.Instructions != "" {
		fmt.Fprintf(&user, "Follow these instructions: %s.\n", req.Instructions)
	}
	fmt.Fprintf(&user, "Aim for between %d and %d words.\n", req.MinWords, req.MaxWords)
	fmt.Fprintf(&user, "Provide exactly %d image prompts describing photos for the post.", req.ImageCount)

	raw, err := c.complete(ctx, draftSystemPrompt, user.String())
	if err != nil {
		return content.Draft{}, err
	}
	return ParseDraft(raw, req.Topic), nil
}

func (c *Client) Rewrite(ctx context.Context, draft content.Draft, feedback string) (content.Draft, error) {
	user := fmt.Sprintf("Revise this blog post.\nFeedback: %s\nTitle: %s\nBody:\n%s\nKeep %d image prompts: %s",
		feedback, draft.Title, draft.Body, len(draft.ImagePrompts), strings.Join(draft.ImagePrompts, " | "))

	raw, err := c.complete(ctx, draftSystemPrompt, user)
	if err != nil {
		return content.Draft{}, err
	}

	revised := ParseDraft(raw, draft.Title)
	if len(revised.ImagePrompts) == 0 {
		revised.ImagePrompts = draft.ImagePrompts
	}
	if revised.MetaDescription == "" {
		revised.MetaDescription = draft.MetaDescription
	}
	if len(revised.MetaKeywords) == 0 {
		revised.MetaKeywords = draft.MetaKeywords
	}
	return revised, nil
}

const topicSystemPrompt = `You plan blog content. Respond only with a JSON object: {"title": string, "keywords": [string]}.`

// GetTopic suggests the next topic for a blog from its persona and niche.
func (c *Client) GetTopic(ctx context.Context, profile pipeline.AccountProfile) (content.TopicCandidate, error) {
	user := fmt.Sprintf("Suggest one fresh, searchable blog topic. Blog: %s. Niche: %s. Persona: %s.",
		profile.BlogURL, profile.DefaultTopic, profile.Persona)

	raw, err := c.complete(ctx, topicSystemPrompt, user)
	if err != nil {
		return content.TopicCandidate{}, err
	}
	return ParseTopic(raw), nil
}

func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(c.temperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{Type: "json_object"},
		},
	}
	if c.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(c.maxTokens))
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * baseBackoff
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		completion, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			lastErr = err
			if isRateLimit(err) {
				slog.Warn("openai rate limited, backing off", "attempt", attempt+1)
				continue
			}
			return "", fmt.Errorf("openai completion: %w", err)
		}
		if len(completion.Choices) == 0 {
			return "", ErrNoChoices
		}
		return completion.Choices[0].Message.Content, nil
	}
	return "", fmt.Errorf("openai completion: retries exhausted: %w", lastErr)
}

func isRateLimit(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

var (
	_ pipeline.ContentGenerator  = (*Client)(nil)
	_ pipeline.KnowledgeProvider = (*Client)(nil)
)
