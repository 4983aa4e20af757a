package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/maheshrc27/autopost/internal/content"
	"github.com/maheshrc27/autopost/internal/models"
	"github.com/maheshrc27/autopost/internal/repository"
	"github.com/maheshrc27/autopost/internal/review"
	"github.com/maheshrc27/autopost/internal/service"
	"gorm.io/datatypes"
)

var ErrNoTopic = errors.New("no topic available")

type Deps struct {
	Posts     repository.PostRepository
	Channels  repository.ChannelRepository
	Keywords  service.KeywordService
	Assets    service.AssetService
	Credits   service.CreditService
	Generator ContentGenerator
	Analyzer  QualityAnalyzer
	Publisher Publisher
	Ranks     RankLookup

	// optional
	Knowledge KnowledgeProvider
	Notifier  Notifier
}

// Pipeline turns a started run into a post: topic, draft, review, quality
// gate, assets, publish and tracking. Outcomes are recorded on the post and
// never returned as errors.
type Pipeline struct {
	deps         Deps
	policy       Policy
	defaultTopic string
	now          func() time.Time
}

// maxRewriteBound caps quality-gate rewrites regardless of configuration.
const maxRewriteBound = 2

func New(deps Deps, policy Policy, defaultTopic string) *Pipeline {
	policy.MaxRewrites = min(max(policy.MaxRewrites, 0), maxRewriteBound)
	return &Pipeline{
		deps:         deps,
		policy:       policy,
		defaultTopic: defaultTopic,
		now:          time.Now,
	}
}

func (p *Pipeline) Policy() Policy {
	return p.policy
}

type run struct {
	p       *Pipeline
	post    *models.Post
	channel *models.Channel
	topic   string
	log     *slog.Logger
}

// Run drives one post, created at run start, to a terminal state and
// returns it as stored.
func (p *Pipeline) Run(ctx context.Context, post *models.Post) (result *models.Post) {
	r := &run{
		p:    p,
		post: post,
		log:  slog.With("post_id", post.ID, "owner_id", post.OwnerID, "run_id", post.RunID),
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.fail(ctx, fmt.Errorf("panic: %v", rec))
			result = r.reload(ctx)
		}
	}()

	r.execute(ctx)
	return r.reload(ctx)
}

func (r *run) execute(ctx context.Context) {
	p := r.p

	channel, err := p.deps.Channels.GetByID(ctx, r.post.ChannelID)
	if err != nil || channel == nil {
		if err == nil {
			err = service.ErrChannelNotFound
		}
		r.fail(ctx, err)
		return
	}
	r.channel = channel

	r.enter(ctx, models.RunStateTopicSelect, nil)
	topic := p.selectTopic(ctx, r.post.OwnerID, channel)
	if topic == "" {
		r.fail(ctx, ErrNoTopic)
		return
	}
	r.topic = topic

	r.enter(ctx, models.RunStateDrafting, map[string]any{"topic": topic})
	minWords, maxWords := models.LengthRange(channel.PostLength)
	draft, err := p.deps.Generator.Draft(ctx, content.DraftRequest{
		Topic:        topic,
		Persona:      channel.Persona,
		Instructions: channel.CustomPrompt,
		MinWords:     minWords,
		MaxWords:     maxWords,
		ImageCount:   channel.ImageCount,
	})
	if err != nil {
		r.fail(ctx, fmt.Errorf("draft: %w", err))
		return
	}

	r.enter(ctx, models.RunStateReview, nil)
	draft = r.review(draft)
	r.save(ctx, draftFields(draft))

	r.enter(ctx, models.RunStateSeoGate, nil)
	draft, passed := r.qualityGate(ctx, draft)
	r.save(ctx, draftFields(draft))
	if !passed && !p.policy.PublishOnFailedGate {
		r.finish(ctx, models.PostStatusPublishFailed, models.RunStateDone, "quality gate failed", nil)
		return
	}

	r.enter(ctx, models.RunStateAssetWait, nil)
	ready, err := r.awaitAssets(ctx, draft.ImagePrompts)
	if err != nil || !ready {
		reason := "asset generation timed out"
		if err != nil {
			reason = fmt.Sprintf("asset wait: %v", err)
		}
		r.finish(ctx, models.PostStatusPublishFailed, models.RunStateDone, reason, map[string]any{
			"image_gen_status": models.ImageGenTimeout,
		})
		return
	}

	current := r.reload(ctx)
	if current.ImageGenStatus != models.ImageGenCompleted && !p.policy.PublishOnPartialAssets {
		r.finish(ctx, models.PostStatusPublishFailed, models.RunStateDone, "asset generation incomplete", nil)
		return
	}

	r.enter(ctx, models.RunStatePublish, nil)
	html, _ := review.SanitizeFinalHTML(draft.Body)
	result, err := p.deps.Publisher.Publish(ctx, channel, content.Rendered{
		Title:           draft.Title,
		HTML:            html,
		ImageURLs:       current.ImagePaths,
		MetaDescription: draft.MetaDescription,
		Keywords:        draft.MetaKeywords,
	})
	if err != nil {
		r.finish(ctx, models.PostStatusPublishFailed, models.RunStateDone, fmt.Sprintf("publish: %v", err), nil)
		return
	}
	r.save(ctx, map[string]any{
		"status":        models.PostStatusPublished,
		"published_url": result.URL,
	})
	r.log.Info("post published", "status", result.Status, "url", result.URL)

	r.enter(ctx, models.RunStateTrack, nil)
	if result.URL != "" {
		if err := p.Track(ctx, r.reload(ctx)); err != nil {
			r.log.Warn("rank tracking failed, left pending", "error", err)
		}
	}

	r.finish(ctx, models.PostStatusPublished, models.RunStateDone, "", nil)
}

func (p *Pipeline) selectTopic(ctx context.Context, ownerID int64, channel *models.Channel) string {
	keyword, err := p.deps.Keywords.Next(ctx, ownerID)
	if err != nil {
		slog.Warn("keyword queue unavailable, falling back", "owner_id", ownerID, "error", err)
	}
	if keyword != nil {
		return keyword.Text
	}

	if p.deps.Knowledge != nil {
		candidate, err := p.deps.Knowledge.GetTopic(ctx, AccountProfile{
			OwnerID:      ownerID,
			Persona:      channel.Persona,
			DefaultTopic: channel.DefaultTopic,
			BlogURL:      channel.BlogURL,
		})
		if err != nil {
			slog.Warn("knowledge provider failed, falling back", "owner_id", ownerID, "error", err)
		} else if title := strings.TrimSpace(candidate.Title); title != "" {
			return title
		}
	}

	if topic := strings.TrimSpace(channel.DefaultTopic); topic != "" {
		return topic
	}
	return strings.TrimSpace(p.defaultTopic)
}

func (r *run) review(draft content.Draft) content.Draft {
	body, matched := review.FilterSystemPhrases(draft.Body, nil)
	if len(matched) > 0 {
		r.log.Info("system phrases removed", "phrases", matched)
	}
	draft.Body = body

	prompts, issues := review.ValidateAndFixImagePrompts(r.topic, fitPrompts(draft.ImagePrompts, r.channel.ImageCount), nil)
	if len(issues) > 0 {
		r.log.Info("image prompts corrected", "issues", issues)
	}
	draft.ImagePrompts = prompts

	if strings.TrimSpace(draft.Title) == "" {
		draft.Title = r.topic
	}
	return draft
}

// qualityGate scores the draft and asks for at most MaxRewrites rewrites.
// It reports whether the final draft passed.
func (r *run) qualityGate(ctx context.Context, draft content.Draft) (content.Draft, bool) {
	p := r.p
	retries := 0
	defer func() { r.post.SeoRetries = retries }()

	for {
		report, err := p.deps.Analyzer.Analyze(ctx, draft, r.topic, r.channel.PlatformType)
		if err != nil {
			r.log.Warn("quality analyzer unavailable, gate skipped", "error", err)
			r.save(ctx, map[string]any{"seo_retries": retries})
			return draft, true
		}
		r.save(ctx, map[string]any{"seo_score": report.Score, "seo_retries": retries})

		if report.Pass {
			return draft, true
		}
		if retries >= p.policy.MaxRewrites {
			r.log.Warn("quality gate still failing after rewrites", "score", report.Score, "rewrites", retries)
			return draft, false
		}

		retries++
		rewritten, err := p.deps.Generator.Rewrite(ctx, draft, report.Feedback)
		if err != nil {
			r.log.Warn("rewrite failed, keeping current draft", "error", err)
			r.save(ctx, map[string]any{"seo_retries": retries})
			return draft, false
		}
		draft = r.review(rewritten)
	}
}

func (r *run) awaitAssets(ctx context.Context, prompts []string) (bool, error) {
	p := r.p
	status := models.ImageGenProcessing
	if len(prompts) == 0 {
		status = models.ImageGenCompleted
	}
	r.save(ctx, map[string]any{
		"expected_image_count": len(prompts),
		"image_gen_status":     status,
		"image_paths":          datatypes.JSONSlice[string]{},
	})
	if len(prompts) == 0 {
		return true, nil
	}

	if _, err := p.deps.Assets.Enqueue(ctx, r.post.ID, prompts); err != nil {
		return false, err
	}
	return p.deps.Assets.AwaitCompletion(ctx, r.post.ID, p.policy.AssetPollInterval, p.policy.AssetMaxAttempts)
}

func (r *run) enter(ctx context.Context, state string, fields map[string]any) {
	if fields == nil {
		fields = map[string]any{}
	}
	fields["run_state"] = state
	r.post.RunState = state
	r.save(ctx, fields)
	r.log.Info("pipeline state", "state", state)
}

func (r *run) save(ctx context.Context, fields map[string]any) {
	if err := r.p.deps.Posts.UpdateFields(ctx, nil, r.post.ID, fields); err != nil {
		r.log.Error("persist post failed", "error", err)
	}
}

func (r *run) reload(ctx context.Context) *models.Post {
	post, err := r.p.deps.Posts.GetByID(context.WithoutCancel(ctx), r.post.ID)
	if err != nil || post == nil {
		return r.post
	}
	r.post = post
	return post
}

func (r *run) fail(ctx context.Context, err error) {
	r.log.Error("pipeline run failed", "state", r.post.RunState, "error", err)
	r.finish(ctx, models.PostStatusDraft, models.RunStateFailed, err.Error(), nil)
}

// finish sanitizes the stored content, records the outcome, settles the
// keyword and applies the refund policy.
func (r *run) finish(ctx context.Context, status, state, reason string, fields map[string]any) {
	p := r.p
	ctx = context.WithoutCancel(ctx)

	current := r.reload(ctx)
	html, issues := review.SanitizeFinalHTML(current.Content)
	if len(issues) > 0 {
		r.log.Info("final content sanitized", "issues", issues)
	}

	if fields == nil {
		fields = map[string]any{}
	}
	if _, set := fields["image_gen_status"]; !set && current.ImagesComplete() && current.ImageGenStatus != models.ImageGenCompleted {
		fields["image_gen_status"] = models.ImageGenCompleted
	}
	fields["content"] = html
	fields["status"] = status
	fields["run_state"] = state
	fields["failure_reason"] = reason
	r.save(ctx, fields)
	final := r.reload(ctx)

	if r.topic != "" && (status == models.PostStatusPublished || status == models.PostStatusPublishFailed) {
		if err := p.deps.Keywords.MarkUsed(ctx, final.OwnerID, r.topic); err != nil {
			r.log.Warn("keyword settle failed", "error", err)
		}
	}

	failed := state == models.RunStateFailed || status == models.PostStatusPublishFailed
	if failed && p.policy.RefundOnFailure && final.Cost > 0 {
		details := map[string]any{"post_id": final.ID, "run_id": final.RunID}
		if _, err := p.deps.Credits.Grant(ctx, nil, final.OwnerID, final.Cost, models.ActionRefund, details); err != nil {
			r.log.Error("refund failed", "error", err)
		}
	}

	if p.deps.Notifier != nil {
		event := content.RunEvent{
			RunID:      final.RunID,
			PostID:     final.ID,
			OwnerID:    final.OwnerID,
			RunState:   state,
			Status:     status,
			URL:        final.PublishedURL,
			Reason:     reason,
			FinishedAt: p.now().UTC(),
		}
		if err := p.deps.Notifier.RunFinished(ctx, event); err != nil {
			r.log.Warn("run event not delivered", "error", err)
		}
	}

	r.log.Info("pipeline finished", "status", status, "state", state, "reason", reason)
}

func draftFields(d content.Draft) map[string]any {
	return map[string]any{
		"title":            d.Title,
		"content":          d.Body,
		"meta_description": d.MetaDescription,
		"meta_keywords":    datatypes.JSONSlice[string](d.MetaKeywords),
	}
}

// fitPrompts pads with empty prompts or trims to the wanted count.
func fitPrompts(prompts []string, want int) []string {
	if want < 0 {
		want = 0
	}
	out := make([]string, want)
	copy(out, prompts)
	return out
}
