// Package mocks provides testify mocks of the store interfaces.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"postmatch/internal/models"
	"postmatch/internal/store"
)

var (
	_ store.PostSource       = (*PostSource)(nil)
	_ store.PlaceSearcher    = (*PlaceSearcher)(nil)
	_ store.PlaceLookup      = (*PlaceLookup)(nil)
	_ store.HandleCacheStore = (*HandleCacheStore)(nil)
	_ store.IngestionSink    = (*IngestionSink)(nil)
	_ store.RunStore         = (*RunStore)(nil)
	_ store.JobClient        = (*JobClient)(nil)
)

type PostSource struct{ mock.Mock }

func (m *PostSource) FetchPage(ctx context.Context, userHandle string, targetCount int, cursor string) ([]models.Post, string, error) {
	args := m.Called(ctx, userHandle, targetCount, cursor)
	posts, _ := args.Get(0).([]models.Post)
	return posts, args.String(1), args.Error(2)
}

func (m *PostSource) UserProfile(ctx context.Context, username string) (*models.UserProfile, error) {
	args := m.Called(ctx, username)
	p, _ := args.Get(0).(*models.UserProfile)
	return p, args.Error(1)
}

type PlaceSearcher struct{ mock.Mock }

func (m *PlaceSearcher) Search(ctx context.Context, query string) (*models.PlaceCandidate, error) {
	args := m.Called(ctx, query)
	c, _ := args.Get(0).(*models.PlaceCandidate)
	return c, args.Error(1)
}

type PlaceLookup struct{ mock.Mock }

func (m *PlaceLookup) Lookup(ctx context.Context, query string, allowFallback bool) (*models.PlaceLookupResult, error) {
	args := m.Called(ctx, query, allowFallback)
	r, _ := args.Get(0).(*models.PlaceLookupResult)
	return r, args.Error(1)
}

type HandleCacheStore struct{ mock.Mock }

func (m *HandleCacheStore) Load(ctx context.Context) (map[string]models.HandleCacheEntry, error) {
	args := m.Called(ctx)
	e, _ := args.Get(0).(map[string]models.HandleCacheEntry)
	return e, args.Error(1)
}

func (m *HandleCacheStore) Save(ctx context.Context, entries map[string]models.HandleCacheEntry) error {
	return m.Called(ctx, entries).Error(0)
}

type IngestionSink struct{ mock.Mock }

func (m *IngestionSink) UploadClassifiedPosts(ctx context.Context, fonciiUsername string, posts []models.PostPayload) error {
	return m.Called(ctx, fonciiUsername, posts).Error(0)
}

func (m *IngestionSink) UploadPosts(ctx context.Context, fonciiUsername string, posts []models.PostPayload) error {
	return m.Called(ctx, fonciiUsername, posts).Error(0)
}

func (m *IngestionSink) IngestUser(ctx context.Context, profile models.UserProfile) error {
	return m.Called(ctx, profile).Error(0)
}

type RunStore struct{ mock.Mock }

func (m *RunStore) RecordRun(ctx context.Context, run *models.PipelineRun) error {
	return m.Called(ctx, run).Error(0)
}

func (m *RunStore) GetRun(ctx context.Context, id uuid.UUID) (*models.PipelineRun, error) {
	args := m.Called(ctx, id)
	run, _ := args.Get(0).(*models.PipelineRun)
	return run, args.Error(1)
}

func (m *RunStore) ListRuns(ctx context.Context, limit, offset int) ([]*models.PipelineRun, error) {
	args := m.Called(ctx, limit, offset)
	runs, _ := args.Get(0).([]*models.PipelineRun)
	return runs, args.Error(1)
}

type JobClient struct{ mock.Mock }

func (m *JobClient) EnqueuePipelineJob(ctx context.Context, payload store.PipelineJobPayload) (string, error) {
	args := m.Called(ctx, payload)
	return args.String(0), args.Error(1)
}

func (m *JobClient) Close() error {
	return m.Called().Error(0)
}
