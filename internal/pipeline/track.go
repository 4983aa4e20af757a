package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maheshrc27/autopost/internal/content"
	"github.com/maheshrc27/autopost/internal/models"
	"gorm.io/datatypes"
)

var ErrNotPublished = errors.New("post has no published url")

// TrackedKeywords returns the keywords already present in the rank map, or
// the topic when nothing has been tracked yet.
func TrackedKeywords(post *models.Post) []string {
	ranks := post.Ranks()
	if len(ranks) > 0 {
		keywords := make([]string, 0, len(ranks))
		for k := range ranks {
			keywords = append(keywords, k)
		}
		return keywords
	}
	if topic := strings.TrimSpace(post.Topic); topic != "" {
		return []string{topic}
	}
	return nil
}

// Track looks up the search rank of every tracked keyword and stores the
// results together. The post is TRACKING while lookups run; a lookup error
// puts it back to PENDING for a later retry.
func (p *Pipeline) Track(ctx context.Context, post *models.Post) (err error) {
	if post.PublishedURL == "" {
		return ErrNotPublished
	}
	keywords := TrackedKeywords(post)
	if len(keywords) == 0 {
		return p.deps.Posts.UpdateFields(ctx, nil, post.ID, map[string]any{"tracking_status": models.TrackingCompleted})
	}

	if err := p.deps.Posts.UpdateFields(ctx, nil, post.ID, map[string]any{"tracking_status": models.TrackingRunning}); err != nil {
		return err
	}
	defer func() {
		if err == nil {
			return
		}
		if rerr := p.deps.Posts.UpdateFields(context.WithoutCancel(ctx), nil, post.ID, map[string]any{"tracking_status": models.TrackingPending}); rerr != nil {
			slog.Info(rerr.Error())
		}
	}()

	results := make(map[string]content.RankResult, len(keywords))
	for _, keyword := range keywords {
		res, err := p.deps.Ranks.Rank(ctx, keyword, post.PublishedURL)
		if err != nil {
			return fmt.Errorf("rank %q: %w", keyword, err)
		}
		if res.Rank == content.RankError {
			return fmt.Errorf("rank %q: lookup error", keyword)
		}
		results[keyword] = res
	}

	now := p.now().UTC()
	_, err = p.deps.Posts.MutateLocked(ctx, nil, post.ID, func(current *models.Post) (map[string]any, error) {
		ranks := current.Ranks()
		for keyword, res := range results {
			change := 0
			if prev, ok := ranks[keyword]; ok && prev.Rank > 0 {
				change = prev.Rank - res.Rank
			}
			ranks[keyword] = models.KeywordRank{Rank: res.Rank, Change: change, UpdatedAt: now}
		}
		return map[string]any{
			"keyword_ranks":   datatypes.NewJSONType(ranks),
			"tracking_status": models.TrackingCompleted,
		}, nil
	})
	return err
}
