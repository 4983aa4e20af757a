package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/maheshrc27/autopost/internal/database"
	"github.com/maheshrc27/autopost/internal/repository"
	"github.com/maheshrc27/autopost/internal/service"
	"gorm.io/gorm"
)

// RetentionJob deletes posts older than the retention window together with
// their asset jobs and stored images.
type RetentionJob struct {
	db    *gorm.DB
	posts repository.PostRepository
	jobs  repository.AssetJobRepository
	store service.AssetStore
	keep  time.Duration
}

func NewRetentionJob(db *gorm.DB, posts repository.PostRepository, jobs repository.AssetJobRepository, store service.AssetStore, days int) *RetentionJob {
	if days <= 0 {
		days = 7
	}
	return &RetentionJob{
		db:    db,
		posts: posts,
		jobs:  jobs,
		store: store,
		keep:  time.Duration(days) * 24 * time.Hour,
	}
}

func (j *RetentionJob) Cleanup(ctx context.Context, now time.Time) (int, error) {
	posts, err := j.posts.ListCreatedBefore(ctx, now.Add(-j.keep))
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, post := range posts {
		if j.store != nil {
			for _, url := range post.ImagePaths {
				if err := j.store.Delete(ctx, url); err != nil {
					slog.Warn("delete stored image failed", "post_id", post.ID, "url", url, "error", err)
				}
			}
		}

		_, err := database.Transact(ctx, j.db, func(tx *gorm.DB) (struct{}, error) {
			if err := j.jobs.RemoveByPost(ctx, tx, post.ID); err != nil {
				return struct{}{}, err
			}
			return struct{}{}, j.posts.Remove(ctx, tx, post.ID)
		})
		if err != nil {
			slog.Error("remove expired post failed", "post_id", post.ID, "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		slog.Info("expired posts removed", "count", removed)
	}
	return removed, nil
}
