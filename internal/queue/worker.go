package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/autopost/internal/models"
	"github.com/maheshrc27/autopost/internal/service"
)

// Trigger starts a manual run for an account.
type Trigger interface {
	Trigger(ctx context.Context, ownerID int64, now time.Time) (*models.Post, error)
}

type Worker struct {
	assets  service.AssetService
	trigger Trigger
}

func NewWorker(assets service.AssetService, trigger Trigger) *Worker {
	return &Worker{assets: assets, trigger: trigger}
}

func (w *Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskTypeRenderAsset, w.HandleRenderAssetTask)
	mux.HandleFunc(TaskTypeGenerateContent, w.HandleGenerateContentTask)
}

// HandleRenderAssetTask runs one asset job. Job failures are recorded on the
// job itself, so the task is never retried.
func (w *Worker) HandleRenderAssetTask(ctx context.Context, task *asynq.Task) error {
	var payload RenderAssetPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	if err := w.assets.RunWorker(ctx, payload.JobID); err != nil {
		slog.Info("asset task finished with error", "job_id", payload.JobID, "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return nil
}

func (w *Worker) HandleGenerateContentTask(ctx context.Context, task *asynq.Task) error {
	var payload GenerateContentPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	post, err := w.trigger.Trigger(ctx, payload.OwnerID, time.Now())
	if err != nil {
		if errors.Is(err, service.ErrAccountBusy) {
			slog.Info("manual run skipped, account busy", "owner_id", payload.OwnerID)
		}
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	slog.Info("manual run finished", "owner_id", payload.OwnerID, "post_id", post.ID, "status", post.Status)
	return nil
}
