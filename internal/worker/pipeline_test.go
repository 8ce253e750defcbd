package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"postmatch/internal/models"
	"postmatch/internal/services"
	"postmatch/internal/store"
	"postmatch/internal/store/mocks"
	"postmatch/internal/tasks"
)

type mockPipelines struct{ mock.Mock }

func (m *mockPipelines) ClassifyAndIngest(ctx context.Context, p services.RunParams) (*services.RunResult, error) {
	args := m.Called(ctx, p)
	res, _ := args.Get(0).(*services.RunResult)
	return res, args.Error(1)
}

func (m *mockPipelines) Ingest(ctx context.Context, p services.RunParams) (*services.RunResult, error) {
	args := m.Called(ctx, p)
	res, _ := args.Get(0).(*services.RunResult)
	return res, args.Error(1)
}

type mockUsers struct{ mock.Mock }

func (m *mockUsers) IngestNewUser(ctx context.Context, username string) (*models.UserProfile, error) {
	args := m.Called(ctx, username)
	p, _ := args.Get(0).(*models.UserProfile)
	return p, args.Error(1)
}

func (m *mockUsers) NewUserClassifyIngest(ctx context.Context, p services.RunParams) (*services.RunResult, error) {
	args := m.Called(ctx, p)
	res, _ := args.Get(0).(*services.RunResult)
	return res, args.Error(1)
}

func (m *mockUsers) NewUserIngest(ctx context.Context, p services.RunParams) (*services.RunResult, error) {
	args := m.Called(ctx, p)
	res, _ := args.Get(0).(*services.RunResult)
	return res, args.Error(1)
}

func newTask(t *testing.T, payload store.PipelineJobPayload) *asynq.Task {
	t.Helper()
	b, err := json.Marshal(payload)
	require.NoError(t, err)
	return asynq.NewTask(tasks.TypePipelineRun, b)
}

func TestHandlePipelineRun_ClassifyIngest(t *testing.T) {
	runID := uuid.New()
	pipelines := new(mockPipelines)
	want := services.RunParams{RunID: runID, InstagramUsername: "nycfoodie", FonciiUsername: "foodie", PostAmount: 50}
	pipelines.On("ClassifyAndIngest", mock.Anything, want).Return(&services.RunResult{RunID: runID}, nil).Once()

	handler := HandlePipelineRun(PipelineDeps{Pipelines: pipelines, Users: new(mockUsers)})
	err := handler(context.Background(), newTask(t, store.PipelineJobPayload{
		RunID:             runID.String(),
		Mode:              models.RunModeClassifyIngest,
		InstagramUsername: "nycfoodie",
		FonciiUsername:    "foodie",
		PostAmount:        50,
	}))

	require.NoError(t, err)
	pipelines.AssertExpectations(t)
}

func TestHandlePipelineRun_FailureSkipsRetry(t *testing.T) {
	pipelines := new(mockPipelines)
	pipelines.On("Ingest", mock.Anything, mock.Anything).Return(nil, models.ErrUploadFailed).Once()

	handler := HandlePipelineRun(PipelineDeps{Pipelines: pipelines})
	err := handler(context.Background(), newTask(t, store.PipelineJobPayload{
		Mode:              models.RunModeIngest,
		InstagramUsername: "nycfoodie",
		PostAmount:        5,
	}))

	assert.True(t, errors.Is(err, models.ErrUploadFailed))
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestHandlePipelineRun_BadPayload(t *testing.T) {
	handler := HandlePipelineRun(PipelineDeps{})
	err := handler(context.Background(), asynq.NewTask(tasks.TypePipelineRun, []byte("{")))
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestRun_NewUserModes(t *testing.T) {
	users := new(mockUsers)
	users.On("NewUserClassifyIngest", mock.Anything, mock.MatchedBy(func(p services.RunParams) bool {
		return p.InstagramUsername == "chef" && p.PostAmount == 10
	})).Return(&services.RunResult{Fetched: 10}, nil).Once()
	users.On("NewUserIngest", mock.Anything, mock.Anything).Return(&services.RunResult{Fetched: 3}, nil).Once()
	deps := PipelineDeps{Users: users}

	res, err := Run(context.Background(), deps, store.PipelineJobPayload{Mode: models.RunModeNewUserClassifyIngest, InstagramUsername: "chef", PostAmount: 10})
	require.NoError(t, err)
	assert.Equal(t, 10, res.Fetched)

	res, err = Run(context.Background(), deps, store.PipelineJobPayload{Mode: models.RunModeNewUserIngest, InstagramUsername: "chef", PostAmount: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Fetched)
	users.AssertExpectations(t)
}

func TestRun_IngestUserRecordsRun(t *testing.T) {
	runID := uuid.New()
	users := new(mockUsers)
	users.On("IngestNewUser", mock.Anything, "chef").Return(nil, models.ErrUserNotIngested).Once()
	runs := new(mocks.RunStore)
	runs.On("RecordRun", mock.Anything, mock.MatchedBy(func(r *models.PipelineRun) bool {
		return r.ID == runID && r.Status == models.RunStatusFailed && r.FinishedAt != nil
	})).Return(nil).Once()

	_, err := Run(context.Background(), PipelineDeps{Users: users, Runs: runs},
		store.PipelineJobPayload{RunID: runID.String(), Mode: models.RunModeIngestUser, InstagramUsername: "chef"})

	assert.True(t, errors.Is(err, models.ErrUserNotIngested))
	runs.AssertExpectations(t)
}

func TestRun_Validation(t *testing.T) {
	_, err := Run(context.Background(), PipelineDeps{}, store.PipelineJobPayload{Mode: "reindex"})
	assert.True(t, errors.Is(err, models.ErrValidation))

	_, err = Run(context.Background(), PipelineDeps{}, store.PipelineJobPayload{RunID: "not-a-uuid", Mode: models.RunModeIngest})
	assert.True(t, errors.Is(err, models.ErrValidation))
}
