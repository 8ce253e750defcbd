package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"

	"postmatch/internal/models"
	"postmatch/internal/tasks"
)

var _ JobClient = (*AsynqJobClient)(nil)

// AsynqJobClient enqueues pipeline runs on asynq and records them in the run
// store as enqueued.
type AsynqJobClient struct {
	client *asynq.Client
	runs   RunStore
}

// NewAsynqJobClient connects to Redis. runs may be nil, in which case enqueued
// runs are not recorded.
func NewAsynqJobClient(opt asynq.RedisClientOpt, runs RunStore) *AsynqJobClient {
	return &AsynqJobClient{client: asynq.NewClient(opt), runs: runs}
}

func (jc *AsynqJobClient) Close() error {
	return jc.client.Close()
}

// EnqueuePipelineJob enqueues a run and returns its run ID. The asynq task ID
// is the run ID so the worker's history record replaces the enqueued one.
func (jc *AsynqJobClient) EnqueuePipelineJob(ctx context.Context, payload PipelineJobPayload) (string, error) {
	if payload.RunID == "" {
		payload.RunID = uuid.NewString()
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode pipeline payload: %w", err)
	}

	task := asynq.NewTask(tasks.TypePipelineRun, body)
	info, err := jc.client.EnqueueContext(ctx, task,
		asynq.TaskID(payload.RunID),
		asynq.Queue(tasks.QueuePipeline),
		asynq.MaxRetry(0),
	)
	if err != nil {
		return "", fmt.Errorf("enqueue pipeline job for %s: %w", payload.InstagramUsername, err)
	}
	log.WithFields(log.Fields{"run_id": info.ID, "queue": info.Queue, "mode": payload.Mode}).Debug("Enqueued pipeline job")

	if jc.runs != nil {
		id, err := uuid.Parse(info.ID)
		if err != nil {
			log.Errorf("Failed to parse task ID '%s' as UUID: %v. Run not recorded.", info.ID, err)
			return info.ID, nil
		}
		run := &models.PipelineRun{
			ID:                id,
			Mode:              payload.Mode,
			InstagramUsername: payload.InstagramUsername,
			FonciiUsername:    payload.FonciiUsername,
			Status:            models.RunStatusEnqueued,
			StartedAt:         time.Now().UTC(),
		}
		if err := jc.runs.RecordRun(ctx, run); err != nil {
			// the job is already queued
			log.Errorf("Failed to record enqueued run %s: %v", info.ID, err)
		}
	}
	return info.ID, nil
}
