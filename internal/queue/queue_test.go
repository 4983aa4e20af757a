package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/autopost/internal/models"
	"github.com/maheshrc27/autopost/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingClient struct {
	tasks []*asynq.Task
	opts  [][]asynq.Option
	err   error
}

func (c *capturingClient) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.tasks = append(c.tasks, task)
	c.opts = append(c.opts, opts)
	return &asynq.TaskInfo{ID: "task-1", Type: task.Type()}, nil
}

type stubAssets struct {
	service.AssetService
	ran []int64
	err error
}

func (s *stubAssets) RunWorker(_ context.Context, jobID int64) error {
	s.ran = append(s.ran, jobID)
	return s.err
}

type stubTrigger struct {
	owners []int64
	err    error
}

func (s *stubTrigger) Trigger(_ context.Context, ownerID int64, _ time.Time) (*models.Post, error) {
	s.owners = append(s.owners, ownerID)
	if s.err != nil {
		return nil, s.err
	}
	return &models.Post{ID: 9, OwnerID: ownerID, Status: models.PostStatusPublished}, nil
}

func TestDispatcher_OneTaskPerJob(t *testing.T) {
	client := &capturingClient{}
	d := NewDispatcher(client, time.Minute)

	require.NoError(t, d.Dispatch(context.Background(), []int64{4, 5}))
	require.Len(t, client.tasks, 2)

	var payload RenderAssetPayload
	require.NoError(t, json.Unmarshal(client.tasks[1].Payload(), &payload))
	assert.Equal(t, TaskTypeRenderAsset, client.tasks[1].Type())
	assert.Equal(t, int64(5), payload.JobID)
}

func TestDispatcher_Error(t *testing.T) {
	d := NewDispatcher(&capturingClient{err: errors.New("redis down")}, 0)
	assert.Error(t, d.Dispatch(context.Background(), []int64{1}))
}

func TestEnqueueGenerate(t *testing.T) {
	client := &capturingClient{}
	info, err := EnqueueGenerate(context.Background(), client, GenerateContentPayload{OwnerID: 3})
	require.NoError(t, err)
	assert.Equal(t, "task-1", info.ID)
	assert.Equal(t, TaskTypeGenerateContent, client.tasks[0].Type())
}

func TestEnqueueGenerate_SameOwnerSharesUniqueKey(t *testing.T) {
	client := &capturingClient{}
	ctx := context.Background()

	_, err := EnqueueGenerate(ctx, client, GenerateContentPayload{OwnerID: 3})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = EnqueueGenerate(ctx, client, GenerateContentPayload{OwnerID: 3})
	require.NoError(t, err)
	_, err = EnqueueGenerate(ctx, client, GenerateContentPayload{OwnerID: 4})
	require.NoError(t, err)
	require.Len(t, client.tasks, 3)

	assert.Equal(t, client.tasks[0].Payload(), client.tasks[1].Payload())
	assert.NotEqual(t, client.tasks[0].Payload(), client.tasks[2].Payload())
	assert.JSONEq(t, `{"owner_id":3}`, string(client.tasks[0].Payload()))

	var unique []any
	for _, opt := range client.opts[0] {
		if opt.Type() == asynq.UniqueOpt {
			unique = append(unique, opt.Value())
		}
	}
	assert.Equal(t, []any{10 * time.Minute}, unique)
}

func TestWorker_RenderAsset(t *testing.T) {
	assets := &stubAssets{}
	w := NewWorker(assets, &stubTrigger{})

	require.NoError(t, w.HandleRenderAssetTask(context.Background(), asynq.NewTask(TaskTypeRenderAsset, []byte(`{"job_id":12}`))))
	assert.Equal(t, []int64{12}, assets.ran)

	assets.err = errors.New("render timeout")
	err := w.HandleRenderAssetTask(context.Background(), asynq.NewTask(TaskTypeRenderAsset, []byte(`{"job_id":13}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = w.HandleRenderAssetTask(context.Background(), asynq.NewTask(TaskTypeRenderAsset, []byte(`not json`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestWorker_GenerateContent(t *testing.T) {
	trigger := &stubTrigger{}
	w := NewWorker(&stubAssets{}, trigger)

	require.NoError(t, w.HandleGenerateContentTask(context.Background(), asynq.NewTask(TaskTypeGenerateContent, []byte(`{"owner_id":7}`))))
	assert.Equal(t, []int64{7}, trigger.owners)

	trigger.err = service.ErrAccountBusy
	err := w.HandleGenerateContentTask(context.Background(), asynq.NewTask(TaskTypeGenerateContent, []byte(`{"owner_id":7}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
