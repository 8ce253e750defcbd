package primary

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postmatch/internal/models"
	"postmatch/internal/store"
)

func newTestStore(t *testing.T) *StoreImpl {
	t.Helper()
	s, err := NewPrimaryStore(context.Background(), DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewPrimaryStore_Validation(t *testing.T) {
	_, err := NewPrimaryStore(context.Background(), DriverSQLite, "")
	assert.Error(t, err)

	_, err = NewPrimaryStore(context.Background(), "oracle", "x")
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestHandleCache_SaveReplacesContents(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	empty, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	first := map[string]models.HandleCacheEntry{
		"joespizza": {Score: 0.91, PlaceID: "gp-joe", Name: "Joe's Pizza", Categories: []string{"restaurant", "food"}},
		"gymrat":    {Score: 0, Categories: []string{"gym"}},
	}
	require.NoError(t, s.Save(ctx, first))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	second := map[string]models.HandleCacheEntry{
		"lilia": {Score: 0.8, PlaceID: "gp-lilia", Name: "Lilia"},
	}
	require.NoError(t, s.Save(ctx, second))

	got, err = s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "gp-lilia", got["lilia"].PlaceID)
	assert.Empty(t, got["lilia"].Categories)
}

func TestRunStore_RecordAndUpdate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	run := &models.PipelineRun{
		ID:                uuid.New(),
		Mode:              models.RunModeClassifyIngest,
		InstagramUsername: "nycfoodie",
		FonciiUsername:    "nycfoodie",
		Status:            models.RunStatusRunning,
		StartedAt:         started,
	}
	require.NoError(t, s.RecordRun(ctx, run))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusRunning, got.Status)
	assert.Nil(t, got.FinishedAt)
	assert.True(t, got.StartedAt.Equal(started))

	finished := started.Add(90 * time.Second)
	run.Status = models.RunStatusCompleted
	run.Fetched = 30
	run.Accepted = 12
	run.BatchesUploaded = 1
	run.FinishedAt = &finished
	require.NoError(t, s.RecordRun(ctx, run))

	got, err = s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, got.Status)
	assert.Equal(t, 30, got.Fetched)
	assert.Equal(t, 12, got.Accepted)
	assert.Equal(t, 1, got.BatchesUploaded)
	require.NotNil(t, got.FinishedAt)
	assert.True(t, got.FinishedAt.Equal(finished))
}

func TestRunStore_GetMissing(t *testing.T) {
	_, err := newTestStore(t).GetRun(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestRunStore_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		run := &models.PipelineRun{
			ID:        uuid.New(),
			Mode:      models.RunModeIngest,
			Status:    models.RunStatusCompleted,
			StartedAt: base.Add(time.Duration(i) * time.Hour),
		}
		ids = append(ids, run.ID)
		require.NoError(t, s.RecordRun(ctx, run))
	}

	runs, err := s.ListRuns(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)

	runs, err = s.ListRuns(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, ids[0], runs[0].ID)
}
