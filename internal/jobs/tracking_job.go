package job

import (
	"context"
	"log/slog"
	"sync"

	"github.com/maheshrc27/autopost/internal/models"
	"github.com/maheshrc27/autopost/internal/repository"
)

// Tracker refreshes the search ranks of one published post.
type Tracker interface {
	Track(ctx context.Context, post *models.Post) error
}

// TrackingJob retries rank lookups for published posts still PENDING.
type TrackingJob struct {
	posts       repository.PostRepository
	tracker     Tracker
	batchSize   int
	concurrency int
}

func NewTrackingJob(posts repository.PostRepository, tracker Tracker, batchSize int) *TrackingJob {
	return &TrackingJob{
		posts:       posts,
		tracker:     tracker,
		batchSize:   batchSize,
		concurrency: 3,
	}
}

// RetryPending returns how many posts were tracked successfully.
func (j *TrackingJob) RetryPending(ctx context.Context) int {
	posts, err := j.posts.ListPendingTracking(ctx, j.batchSize)
	if err != nil {
		slog.Info(err.Error())
		return 0
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	semaphore := make(chan struct{}, j.concurrency)

	for _, post := range posts {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(post *models.Post) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if err := j.tracker.Track(ctx, post); err != nil {
				slog.Info("rank tracking retry failed", "post_id", post.ID, "error", err)
				return
			}
			mu.Lock()
			ok++
			mu.Unlock()
		}(post)
	}
	wg.Wait()

	if len(posts) > 0 {
		slog.Info("rank tracking retry finished", "pending", len(posts), "tracked", ok)
	}
	return ok
}
