package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/maheshrc27/autopost/internal/database"
	"github.com/maheshrc27/autopost/internal/models"
	"github.com/maheshrc27/autopost/internal/render"
	"github.com/maheshrc27/autopost/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrJobNotFound  = errors.New("asset job not found")
	ErrPostNotFound = errors.New("post not found")
)

type ImageRenderer interface {
	Render(ctx context.Context, prompt string) ([]byte, error)
}

// AssetDispatcher hands freshly enqueued jobs to workers. Jobs it fails to
// dispatch stay PENDING for the batch path.
type AssetDispatcher interface {
	Dispatch(ctx context.Context, jobIDs []int64) error
}

type QueueStatus struct {
	PostID     int64              `json:"post_id"`
	Total      int                `json:"total"`
	Pending    int                `json:"pending"`
	Processing int                `json:"processing"`
	Completed  int                `json:"completed"`
	Failed     int                `json:"failed"`
	Timeout    int                `json:"timeout"`
	Jobs       []*models.AssetJob `json:"jobs"`
}

type BatchReport struct {
	Picked    int
	Succeeded int
	Failed    int
	Errors    []error
}

type AssetService interface {
	Enqueue(ctx context.Context, postID int64, prompts []string) ([]int64, error)
	RunWorker(ctx context.Context, jobID int64) error
	ProcessPendingBatch(ctx context.Context, maxConcurrent int) BatchReport
	AwaitCompletion(ctx context.Context, postID int64, pollInterval time.Duration, maxAttempts int) (bool, error)
	Status(ctx context.Context, postID int64) (*QueueStatus, error)
	SetDispatcher(d AssetDispatcher)
}

type assetService struct {
	db         *gorm.DB
	jobs       repository.AssetJobRepository
	posts      repository.PostRepository
	renderer   ImageRenderer
	store      AssetStore
	dispatcher AssetDispatcher
	hub        *completionHub
	now        func() time.Time
}

func NewAssetService(
	db *gorm.DB,
	jobs repository.AssetJobRepository,
	posts repository.PostRepository,
	renderer ImageRenderer,
	store AssetStore) AssetService {
	return &assetService{
		db:       db,
		jobs:     jobs,
		posts:    posts,
		renderer: renderer,
		store:    store,
		hub:      newCompletionHub(),
		now:      time.Now,
	}
}

func (s *assetService) SetDispatcher(d AssetDispatcher) {
	s.dispatcher = d
}

func (s *assetService) Enqueue(ctx context.Context, postID int64, prompts []string) ([]int64, error) {
	if len(prompts) == 0 {
		return nil, nil
	}

	jobs := make([]*models.AssetJob, 0, len(prompts))
	for _, prompt := range prompts {
		jobs = append(jobs, &models.AssetJob{
			PostID: postID,
			Prompt: prompt,
			Status: models.AssetStatusPending,
		})
	}
	if err := s.jobs.CreateBatch(ctx, nil, jobs); err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(jobs))
	for _, job := range jobs {
		ids = append(ids, job.ID)
	}

	if s.dispatcher != nil {
		if err := s.dispatcher.Dispatch(ctx, ids); err != nil {
			slog.Warn("dispatch asset jobs failed, left for batch processing", "post_id", postID, "error", err)
		}
	}

	slog.Info("asset jobs enqueued", "post_id", postID, "jobs", len(ids))
	return ids, nil
}

// RunWorker drives one job from PENDING to a terminal state. A job that was
// already claimed elsewhere is skipped.
func (s *assetService) RunWorker(ctx context.Context, jobID int64) error {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job == nil {
		return ErrJobNotFound
	}

	claimed, err := s.jobs.Claim(ctx, jobID)
	if err != nil {
		return err
	}
	if !claimed {
		slog.Debug("asset job not pending, skipped", "job_id", jobID, "status", job.Status)
		return nil
	}

	url, err := s.produce(ctx, job)
	if err != nil {
		return s.fail(ctx, job, err)
	}
	return s.complete(ctx, job, url)
}

// produce renders and stores one image. A renderer panic comes back as an
// error so the job still reaches a terminal state.
func (s *assetService) produce(ctx context.Context, job *models.AssetJob) (url string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render panicked: %v", r)
		}
	}()

	data, err := s.renderer.Render(ctx, job.Prompt)
	if err != nil {
		return "", err
	}
	return s.store.Save(ctx, data)
}

func (s *assetService) complete(ctx context.Context, job *models.AssetJob, url string) error {
	_, err := database.Transact(ctx, s.db, func(tx *gorm.DB) (bool, error) {
		ok, err := s.jobs.Complete(ctx, tx, job.ID, url, s.now())
		if err != nil || !ok {
			return ok, err
		}
		_, err = s.posts.MutateLocked(ctx, tx, job.PostID, func(post *models.Post) (map[string]any, error) {
			post.AppendImage(url)
			post.RefreshImageStatus()
			return map[string]any{
				"image_paths":      post.ImagePaths,
				"image_gen_status": post.ImageGenStatus,
			}, nil
		})
		return true, err
	})
	if err != nil {
		return fmt.Errorf("complete asset job %d: %w", job.ID, err)
	}

	s.hub.notify(job.PostID)
	slog.Info("asset job completed", "job_id", job.ID, "post_id", job.PostID)
	return nil
}

func (s *assetService) fail(ctx context.Context, job *models.AssetJob, cause error) error {
	status := models.AssetStatusFailed
	postStatus := models.ImageGenFailed
	if render.IsTimeout(cause) {
		status = models.AssetStatusTimeout
		postStatus = models.ImageGenTimeout
	}

	// the job is marked even if the caller's context is already done
	dbCtx := context.WithoutCancel(ctx)

	ok, err := s.jobs.Fail(dbCtx, job.ID, status, cause.Error(), s.now())
	if err != nil {
		return err
	}
	if ok {
		_, err = s.posts.MutateLocked(dbCtx, nil, job.PostID, func(post *models.Post) (map[string]any, error) {
			if post.ImagesComplete() {
				return nil, nil
			}
			post.ImageGenStatus = postStatus
			return map[string]any{"image_gen_status": postStatus}, nil
		})
		if err != nil {
			return err
		}
		s.hub.notify(job.PostID)
	}

	slog.Warn("asset job failed", "job_id", job.ID, "post_id", job.PostID, "status", status, "error", cause)
	return fmt.Errorf("asset job %d %s: %w", job.ID, strings.ToLower(status), cause)
}

// ProcessPendingBatch runs up to maxConcurrent pending jobs at once. One
// job's failure or panic never affects the others.
func (s *assetService) ProcessPendingBatch(ctx context.Context, maxConcurrent int) BatchReport {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	var report BatchReport
	jobs, err := s.jobs.ListPending(ctx, maxConcurrent)
	if err != nil {
		report.Errors = append(report.Errors, err)
		return report
	}
	report.Picked = len(jobs)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	semaphore := make(chan struct{}, maxConcurrent)

	runJob := func(job *models.AssetJob) {
		defer wg.Done()
		defer func() { <-semaphore }()

		var err error
		defer func() {
			if r := recover(); r != nil {
				err = s.fail(ctx, job, fmt.Errorf("panicked: %v", r))
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				report.Errors = append(report.Errors, err)
				return
			}
			report.Succeeded++
		}()

		err = s.RunWorker(ctx, job.ID)
	}

	for _, job := range jobs {
		wg.Add(1)
		semaphore <- struct{}{}
		go runJob(job)
	}

	wg.Wait()
	if report.Picked > 0 {
		slog.Info("asset batch processed", "picked", report.Picked, "succeeded", report.Succeeded, "failed", report.Failed)
	}
	return report
}

// AwaitCompletion waits until the post's image set is settled. COMPLETED,
// FAILED and TIMEOUT all report ready so publishing can go on with the
// images that exist; false means the wait bound of pollInterval*maxAttempts
// ran out first.
func (s *assetService) AwaitCompletion(ctx context.Context, postID int64, pollInterval time.Duration, maxAttempts int) (bool, error) {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}

	signal, cancel := s.hub.subscribe(postID)
	defer cancel()

	deadline := time.NewTimer(pollInterval * time.Duration(maxAttempts))
	defer deadline.Stop()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		settled, err := s.settled(ctx, postID)
		if err != nil || settled {
			return settled, err
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-signal:
		case <-ticker.C:
		case <-deadline.C:
			return s.settled(ctx, postID)
		}
	}
}

func (s *assetService) settled(ctx context.Context, postID int64) (bool, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return false, err
	}
	if post == nil {
		return false, ErrPostNotFound
	}
	switch post.ImageGenStatus {
	case models.ImageGenCompleted, models.ImageGenFailed, models.ImageGenTimeout:
		return true, nil
	}
	return false, nil
}

func (s *assetService) Status(ctx context.Context, postID int64) (*QueueStatus, error) {
	jobs, err := s.jobs.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	status := &QueueStatus{PostID: postID, Total: len(jobs), Jobs: jobs}
	for _, job := range jobs {
		switch job.Status {
		case models.AssetStatusPending:
			status.Pending++
		case models.AssetStatusProcessing:
			status.Processing++
		case models.AssetStatusCompleted:
			status.Completed++
		case models.AssetStatusFailed:
			status.Failed++
		case models.AssetStatusTimeout:
			status.Timeout++
		}
	}
	return status, nil
}
