package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TaskTypeRenderAsset     = "asset:render"
	TaskTypeGenerateContent = "content:generate"

	QueueAssets  = "assets"
	QueueContent = "content"

	generateUniqueTTL = 10 * time.Minute
)

type RenderAssetPayload struct {
	JobID int64 `json:"job_id"`
}

// GenerateContentPayload carries only the owner, so asynq's uniqueness
// lock covers one queued run per owner.
type GenerateContentPayload struct {
	OwnerID int64 `json:"owner_id"`
}

// Enqueuer is the part of *asynq.Client used to submit tasks.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Dispatcher hands asset jobs to asynq workers, one task per job.
type Dispatcher struct {
	client  Enqueuer
	timeout time.Duration
}

func NewDispatcher(client Enqueuer, renderTimeout time.Duration) *Dispatcher {
	return &Dispatcher{client: client, timeout: renderTimeout}
}

func (d *Dispatcher) Dispatch(ctx context.Context, jobIDs []int64) error {
	for _, id := range jobIDs {
		payload, err := json.Marshal(RenderAssetPayload{JobID: id})
		if err != nil {
			return err
		}

		opts := []asynq.Option{asynq.Queue(QueueAssets), asynq.MaxRetry(0)}
		if d.timeout > 0 {
			opts = append(opts, asynq.Timeout(d.timeout))
		}
		if _, err := d.client.EnqueueContext(ctx, asynq.NewTask(TaskTypeRenderAsset, payload), opts...); err != nil {
			return err
		}
	}
	slog.Info("asset tasks dispatched", "count", len(jobIDs))
	return nil
}

// EnqueueGenerate requests a manual content run for ownerID. At most one
// request per owner is queued at a time.
func EnqueueGenerate(ctx context.Context, client Enqueuer, payload GenerateContentPayload) (*asynq.TaskInfo, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	task := asynq.NewTask(TaskTypeGenerateContent, body)
	info, err := client.EnqueueContext(ctx, task,
		asynq.Queue(QueueContent),
		asynq.MaxRetry(0),
		asynq.Unique(generateUniqueTTL),
	)
	if err != nil {
		return nil, err
	}

	slog.Info("content run queued", "owner_id", payload.OwnerID, "task_id", info.ID)
	return info, nil
}
