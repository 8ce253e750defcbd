package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"postmatch/internal/models"
	"postmatch/internal/store/mocks"
)

// echoSearcher answers every query with a restaurant named like the query,
// unless a specific answer is configured.
type echoSearcher struct {
	answers map[string]*models.PlaceCandidate
	queries []string
}

func (s *echoSearcher) Search(_ context.Context, query string) (*models.PlaceCandidate, error) {
	s.queries = append(s.queries, query)
	if c, ok := s.answers[query]; ok {
		return c, nil
	}
	return &models.PlaceCandidate{PlaceID: "gp-" + query, Name: query, Categories: []string{"restaurant"}}, nil
}

func recent() time.Time { return time.Now().Add(-time.Hour) }

func threeTierPosts() []models.Post {
	many := make([]string, 12)
	for i := range many {
		many[i] = fmt.Sprintf("spot%d", i)
	}
	return []models.Post{
		{Code: "yes", Location: &models.Location{Name: "Joe's Pizza", Address: "123 Main St", City: "NYC"}, TakenAt: recent()},
		{Code: "maybe", Caption: "date night @lilia", TakenAt: recent()},
		{Code: "no", UserTags: many, TakenAt: recent()},
	}
}

func TestPipeline_ClassifyAndIngest_EndToEnd(t *testing.T) {
	ctx := context.Background()
	searcher := &echoSearcher{answers: map[string]*models.PlaceCandidate{
		"Joe's Pizza 123 Main St NYC": {PlaceID: "gp-joe", Name: "Joe's Pizza", Categories: []string{"restaurant"}},
	}}

	source := new(mocks.PostSource)
	source.On("FetchPage", mock.Anything, "chef", 3, "").Return(threeTierPosts(), "", nil).Once()

	cacheStore := new(mocks.HandleCacheStore)
	cacheStore.On("Load", mock.Anything).Return(map[string]models.HandleCacheEntry{}, nil).Once()
	cacheStore.On("Save", mock.Anything, mock.MatchedBy(func(m map[string]models.HandleCacheEntry) bool {
		return len(m) == 13
	})).Return(nil).Once()

	sink := new(mocks.IngestionSink)
	sink.On("UploadClassifiedPosts", mock.Anything, "chef_map", mock.MatchedBy(func(batch []models.PostPayload) bool {
		return len(batch) == 3
	})).Return(nil).Once()

	runs := new(mocks.RunStore)
	runs.On("RecordRun", mock.Anything, mock.AnythingOfType("*models.PipelineRun")).Return(nil).Twice()

	svc := NewPipelineService(PipelineDeps{
		Source:     source,
		Sink:       sink,
		CacheStore: cacheStore,
		Runs:       runs,
		Resolver:   NewResolver(ResolverDeps{Searcher: searcher}),
	})

	res, err := svc.ClassifyAndIngest(ctx, RunParams{InstagramUsername: "chef", FonciiUsername: "chef_map", PostAmount: 3})

	require.NoError(t, err)
	assert.Equal(t, 3, res.Fetched)
	assert.Equal(t, 3, res.Accepted)
	assert.Equal(t, 1, res.BatchesUploaded)
	require.Len(t, res.Rows, 3)

	tiers := []models.Tier{models.TierYes, models.TierMaybe, models.TierNo}
	for i, row := range res.Rows {
		assert.Equal(t, tiers[i], row.Tier)
		assert.NotEmpty(t, row.Accepted)
		for _, m := range row.Accepted {
			assert.GreaterOrEqual(t, m.Score, DefaultAcceptanceFloor)
			assert.LessOrEqual(t, m.Score, 1.0)
		}
	}
	assert.Len(t, res.Rows[2].Accepted, 12)

	last := runs.Calls[1].Arguments.Get(1).(*models.PipelineRun)
	assert.Equal(t, models.RunStatusCompleted, last.Status)
	assert.Equal(t, 3, last.Accepted)
	require.NotNil(t, last.FinishedAt)

	source.AssertExpectations(t)
	sink.AssertExpectations(t)
	cacheStore.AssertExpectations(t)
}

func TestPipeline_OnlyAcceptedRowsAreUploaded(t *testing.T) {
	searcher := &echoSearcher{answers: map[string]*models.PlaceCandidate{
		"gymbro": {PlaceID: "gp-gym", Name: "Gym", Categories: []string{"gym"}},
	}}
	posts := []models.Post{
		{Code: "food", Caption: "@lilia", TakenAt: recent()},
		{Code: "gym", Caption: "@gymbro", TakenAt: recent()},
	}

	source := new(mocks.PostSource)
	source.On("FetchPage", mock.Anything, "chef", 2, "").Return(posts, "", nil).Once()
	cacheStore := new(mocks.HandleCacheStore)
	cacheStore.On("Load", mock.Anything).Return(map[string]models.HandleCacheEntry{}, nil).Once()
	cacheStore.On("Save", mock.Anything, mock.Anything).Return(nil).Once()

	var uploaded []models.PostPayload
	sink := new(mocks.IngestionSink)
	sink.On("UploadClassifiedPosts", mock.Anything, "chef", mock.Anything).Run(func(args mock.Arguments) {
		uploaded = args.Get(2).([]models.PostPayload)
	}).Return(nil).Once()

	svc := NewPipelineService(PipelineDeps{
		Source:     source,
		Sink:       sink,
		CacheStore: cacheStore,
		Resolver:   NewResolver(ResolverDeps{Searcher: searcher}),
	})

	res, err := svc.ClassifyAndIngest(context.Background(), RunParams{InstagramUsername: "chef", PostAmount: 2})

	require.NoError(t, err)
	assert.Equal(t, 1, res.Accepted)
	require.Len(t, uploaded, 1)
	assert.Equal(t, "food", uploaded[0].DataSource.LiveSourceUID)
	assert.Equal(t, []string{"gp-lilia"}, uploaded[0].GooglePlaceIDs)
}

func TestPipeline_CacheNotSavedAfterFailedLoad(t *testing.T) {
	source := new(mocks.PostSource)
	source.On("FetchPage", mock.Anything, "chef", 1, "").Return([]models.Post{{Code: "m", Caption: "@lilia", TakenAt: recent()}}, "", nil).Once()
	cacheStore := new(mocks.HandleCacheStore)
	cacheStore.On("Load", mock.Anything).Return(nil, errors.New("permission denied")).Once()
	sink := new(mocks.IngestionSink)
	sink.On("UploadClassifiedPosts", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	svc := NewPipelineService(PipelineDeps{
		Source:     source,
		Sink:       sink,
		CacheStore: cacheStore,
		Resolver:   NewResolver(ResolverDeps{Searcher: &echoSearcher{}}),
	})

	_, err := svc.ClassifyAndIngest(context.Background(), RunParams{InstagramUsername: "chef", PostAmount: 1})

	require.NoError(t, err)
	cacheStore.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestPipeline_UploadFailureHaltsRemainingBatches(t *testing.T) {
	source := new(mocks.PostSource)
	source.On("FetchPage", mock.Anything, "chef", 5, "").Return(postsFrom("p", 5, time.Hour), "", nil).Once()

	sink := new(mocks.IngestionSink)
	sink.On("UploadPosts", mock.Anything, "chef", mock.Anything).Return(nil).Once()
	sink.On("UploadPosts", mock.Anything, "chef", mock.Anything).Return(errors.New("413")).Once()

	runs := new(mocks.RunStore)
	runs.On("RecordRun", mock.Anything, mock.Anything).Return(nil)

	svc := NewPipelineService(PipelineDeps{Source: source, Sink: sink, Runs: runs, BatchSize: 2})
	svc.aggregator.now = func() time.Time { return aggNow }

	res, err := svc.Ingest(context.Background(), RunParams{InstagramUsername: "chef", PostAmount: 5})

	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrUploadFailed))
	assert.Equal(t, 1, res.BatchesUploaded)
	sink.AssertNumberOfCalls(t, "UploadPosts", 2)

	last := runs.Calls[len(runs.Calls)-1].Arguments.Get(1).(*models.PipelineRun)
	assert.Equal(t, models.RunStatusFailed, last.Status)
	assert.Contains(t, last.Error, "413")
}

func TestPipeline_NoAcceptedRowsUploadsNothing(t *testing.T) {
	source := new(mocks.PostSource)
	source.On("FetchPage", mock.Anything, "chef", 1, "").Return([]models.Post{{Code: "x", TakenAt: recent()}}, "", nil).Once()
	sink := new(mocks.IngestionSink)

	svc := NewPipelineService(PipelineDeps{Source: source, Sink: sink, Resolver: NewResolver(ResolverDeps{Searcher: &echoSearcher{}})})
	res, err := svc.ClassifyAndIngest(context.Background(), RunParams{InstagramUsername: "chef", PostAmount: 1})

	require.NoError(t, err)
	assert.Equal(t, 0, res.Accepted)
	assert.Equal(t, 0, res.BatchesUploaded)
	sink.AssertNotCalled(t, "UploadClassifiedPosts", mock.Anything, mock.Anything, mock.Anything)
}

func TestPipeline_Validation(t *testing.T) {
	source := new(mocks.PostSource)
	svc := NewPipelineService(PipelineDeps{Source: source, Sink: new(mocks.IngestionSink)})

	_, err := svc.ClassifyAndIngest(context.Background(), RunParams{InstagramUsername: "chef", PostAmount: 0})
	assert.True(t, errors.Is(err, models.ErrValidation))

	_, err = svc.Ingest(context.Background(), RunParams{PostAmount: 3})
	assert.True(t, errors.Is(err, models.ErrValidation))

	source.AssertNotCalled(t, "FetchPage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPipeline_Ingest_DefaultsFonciiUsername(t *testing.T) {
	source := new(mocks.PostSource)
	source.On("FetchPage", mock.Anything, "chef", 1, "").Return(postsFrom("p", 1, time.Hour), "", nil).Once()

	sink := new(mocks.IngestionSink)
	sink.On("UploadPosts", mock.Anything, "chef", mock.Anything).Return(nil).Once()

	runs := new(mocks.RunStore)
	runs.On("RecordRun", mock.Anything, mock.Anything).Return(nil)

	svc := NewPipelineService(PipelineDeps{Source: source, Sink: sink, Runs: runs})
	svc.aggregator.now = func() time.Time { return aggNow }

	res, err := svc.Ingest(context.Background(), RunParams{InstagramUsername: "chef", PostAmount: 1})

	require.NoError(t, err)
	assert.Equal(t, 1, res.BatchesUploaded)
	sink.AssertExpectations(t)

	last := runs.Calls[len(runs.Calls)-1].Arguments.Get(1).(*models.PipelineRun)
	assert.Equal(t, "chef", last.FonciiUsername)
	assert.Equal(t, res.RunID, last.ID)
}
