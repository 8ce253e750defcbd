// Package worker holds the asynq handlers that run queued pipeline jobs.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"

	"postmatch/internal/models"
	"postmatch/internal/services"
	"postmatch/internal/store"
	"postmatch/internal/tasks"
)

// Pipelines runs the post pipelines for an existing account.
type Pipelines interface {
	ClassifyAndIngest(ctx context.Context, p services.RunParams) (*services.RunResult, error)
	Ingest(ctx context.Context, p services.RunParams) (*services.RunResult, error)
}

// Users creates accounts, optionally followed by a pipeline run.
type Users interface {
	IngestNewUser(ctx context.Context, instagramUsername string) (*models.UserProfile, error)
	NewUserClassifyIngest(ctx context.Context, p services.RunParams) (*services.RunResult, error)
	NewUserIngest(ctx context.Context, p services.RunParams) (*services.RunResult, error)
}

type PipelineDeps struct {
	Pipelines Pipelines
	Users     Users
	// Runs is optional. It closes out user-only jobs, which have no
	// pipeline run of their own.
	Runs store.RunStore
}

func RegisterHandlers(mux *asynq.ServeMux, deps PipelineDeps) {
	log.Printf("Registering PipelineRun handler (%s)", tasks.TypePipelineRun)
	mux.HandleFunc(tasks.TypePipelineRun, HandlePipelineRun(deps))
}

// HandlePipelineRun decodes a pipeline job and runs it. Jobs are never
// retried: a half-finished run may already have uploaded batches.
func HandlePipelineRun(deps PipelineDeps) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload store.PipelineJobPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("decode pipeline payload: %v: %w", err, asynq.SkipRetry)
		}

		logger := log.WithFields(log.Fields{"run_id": payload.RunID, "mode": payload.Mode, "username": payload.InstagramUsername})
		logger.Info("Processing pipeline job")

		if _, err := Run(ctx, deps, payload); err != nil {
			logger.Errorf("Pipeline job failed: %v", err)
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return nil
	}
}

// Run executes one job payload synchronously.
func Run(ctx context.Context, deps PipelineDeps, payload store.PipelineJobPayload) (*services.RunResult, error) {
	var runID uuid.UUID
	if payload.RunID != "" {
		id, err := uuid.Parse(payload.RunID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid run id %q", models.ErrValidation, payload.RunID)
		}
		runID = id
	}
	p := services.RunParams{
		RunID:             runID,
		InstagramUsername: payload.InstagramUsername,
		FonciiUsername:    payload.FonciiUsername,
		PostAmount:        payload.PostAmount,
	}

	switch payload.Mode {
	case models.RunModeClassifyIngest:
		return deps.Pipelines.ClassifyAndIngest(ctx, p)
	case models.RunModeIngest:
		return deps.Pipelines.Ingest(ctx, p)
	case models.RunModeNewUserClassifyIngest:
		return deps.Users.NewUserClassifyIngest(ctx, p)
	case models.RunModeNewUserIngest:
		return deps.Users.NewUserIngest(ctx, p)
	case models.RunModeIngestUser:
		return ingestUser(ctx, deps, p)
	default:
		return nil, fmt.Errorf("%w: unknown run mode %q", models.ErrValidation, payload.Mode)
	}
}

func ingestUser(ctx context.Context, deps PipelineDeps, p services.RunParams) (*services.RunResult, error) {
	if p.RunID == uuid.Nil {
		p.RunID = uuid.New()
	}
	started := time.Now().UTC()
	_, err := deps.Users.IngestNewUser(ctx, p.InstagramUsername)

	if deps.Runs != nil {
		finished := time.Now().UTC()
		run := &models.PipelineRun{
			ID:                p.RunID,
			Mode:              models.RunModeIngestUser,
			InstagramUsername: p.InstagramUsername,
			FonciiUsername:    p.InstagramUsername,
			Status:            models.RunStatusCompleted,
			StartedAt:         started,
			FinishedAt:        &finished,
		}
		if err != nil {
			run.Status = models.RunStatusFailed
			run.Error = err.Error()
		}
		if rerr := deps.Runs.RecordRun(ctx, run); rerr != nil {
			log.Errorf("Failed to record run %s: %v", p.RunID, rerr)
		}
	}
	if err != nil {
		return nil, err
	}
	return &services.RunResult{RunID: p.RunID}, nil
}
