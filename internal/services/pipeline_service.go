package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"postmatch/internal/extract"
	"postmatch/internal/metrics"
	"postmatch/internal/models"
	"postmatch/internal/store"
	"postmatch/pkg/tiering"
)

// DefaultUploadBatchSize keeps upload requests under the sink's payload limit.
const DefaultUploadBatchSize = 40

// RunParams identifies the account a pipeline run works on.
type RunParams struct {
	// RunID is generated when zero.
	RunID             uuid.UUID
	InstagramUsername string
	FonciiUsername    string
	PostAmount        int
	// StopAtCode ends aggregation at an already ingested post.
	StopAtCode string
}

func (p RunParams) validate() error {
	if strings.TrimSpace(p.InstagramUsername) == "" {
		return fmt.Errorf("%w: instagram username is required", models.ErrValidation)
	}
	if p.PostAmount <= 0 {
		return fmt.Errorf("%w: post amount must be positive, got %d", models.ErrValidation, p.PostAmount)
	}
	return nil
}

// RunResult summarises a finished run.
type RunResult struct {
	RunID           uuid.UUID `json:"run_id"`
	Fetched         int       `json:"fetched"`
	Accepted        int       `json:"accepted"`
	BatchesUploaded int       `json:"batches_uploaded"`

	Rows []*models.ClassifiedRow `json:"-"`
}

type PipelineDeps struct {
	Source     store.PostSource
	Sink       store.IngestionSink
	CacheStore store.HandleCacheStore
	// Runs is optional.
	Runs       store.RunStore
	Resolver   *Resolver
	Filter     *MatchFilter
	Extractor  *extract.Extractor
	Aggregator *Aggregator
	BatchSize  int
	Metrics    *metrics.Metrics
}

// PipelineService fetches, classifies and uploads an account's posts.
type PipelineService struct {
	sink       store.IngestionSink
	cacheStore store.HandleCacheStore
	runs       store.RunStore
	resolver   *Resolver
	filter     *MatchFilter
	extractor  *extract.Extractor
	aggregator *Aggregator
	batchSize  int
	metrics    *metrics.Metrics
}

func NewPipelineService(deps PipelineDeps) *PipelineService {
	s := &PipelineService{
		sink:       deps.Sink,
		cacheStore: deps.CacheStore,
		runs:       deps.Runs,
		resolver:   deps.Resolver,
		filter:     deps.Filter,
		extractor:  deps.Extractor,
		aggregator: deps.Aggregator,
		batchSize:  deps.BatchSize,
		metrics:    deps.Metrics,
	}
	if s.resolver == nil {
		s.resolver = NewResolver(ResolverDeps{Metrics: deps.Metrics})
	}
	if s.filter == nil {
		s.filter = NewMatchFilter(DefaultAcceptanceFloor)
	}
	if s.extractor == nil {
		s.extractor = extract.New(extract.DefaultCutoff)
	}
	if s.aggregator == nil {
		s.aggregator = NewAggregator(deps.Source, DefaultMaxPostAge, DefaultMinBatch)
	}
	if s.batchSize <= 0 {
		s.batchSize = DefaultUploadBatchSize
	}
	return s
}

// Classify runs extraction, tiering, resolution and filtering over posts and
// returns the rows with at least one accepted place, in post order.
func (s *PipelineService) Classify(ctx context.Context, posts []models.Post) []*models.ClassifiedRow {
	rows := s.extractor.Rows(posts)
	for _, row := range rows {
		tier := tiering.ClassifyRow(row)
		s.metrics.Row(string(tier))
	}
	parts := tiering.Partition(rows)

	for _, row := range parts[models.TierYes] {
		s.resolver.Resolve(ctx, row, nil)
	}

	handleRows := append(append([]*models.ClassifiedRow{}, parts[models.TierMaybe]...), parts[models.TierNo]...)
	if len(handleRows) > 0 {
		cache := LoadHandleCache(ctx, s.cacheStore)
		for _, row := range handleRows {
			s.resolver.Resolve(ctx, row, cache)
		}
		if err := cache.Flush(ctx, s.cacheStore); err != nil {
			log.Errorf("Failed to save handle cache: %v", err)
		}
	}

	return s.filter.Filter(rows)
}

// ClassifyAndIngest uploads the account's posts that matched at least one place.
func (s *PipelineService) ClassifyAndIngest(ctx context.Context, p RunParams) (*RunResult, error) {
	return s.classifyAndIngest(ctx, models.RunModeClassifyIngest, p)
}

func (s *PipelineService) classifyAndIngest(ctx context.Context, mode string, p RunParams) (*RunResult, error) {
	return s.run(ctx, mode, p, func(ctx context.Context, p RunParams, posts []models.Post, res *RunResult) error {
		res.Rows = s.Classify(ctx, posts)
		res.Accepted = len(res.Rows)

		byID := make(map[string]models.Post, len(posts))
		for _, post := range posts {
			byID[postKey(post)] = post
		}
		payloads := make([]models.PostPayload, 0, len(res.Rows))
		for _, row := range res.Rows {
			payloads = append(payloads, BuildClassifiedPayload(p.InstagramUsername, byID[row.PostID], row))
		}

		n, err := s.uploadBatches(ctx, payloads, func(ctx context.Context, batch []models.PostPayload) error {
			return s.sink.UploadClassifiedPosts(ctx, p.FonciiUsername, batch)
		})
		res.BatchesUploaded = n
		return err
	})
}

// Ingest uploads the account's posts without place matching.
func (s *PipelineService) Ingest(ctx context.Context, p RunParams) (*RunResult, error) {
	return s.ingest(ctx, models.RunModeIngest, p)
}

func (s *PipelineService) ingest(ctx context.Context, mode string, p RunParams) (*RunResult, error) {
	return s.run(ctx, mode, p, func(ctx context.Context, p RunParams, posts []models.Post, res *RunResult) error {
		payloads := make([]models.PostPayload, 0, len(posts))
		for _, post := range posts {
			payloads = append(payloads, BuildPayload(p.InstagramUsername, post))
		}
		n, err := s.uploadBatches(ctx, payloads, func(ctx context.Context, batch []models.PostPayload) error {
			return s.sink.UploadPosts(ctx, p.FonciiUsername, batch)
		})
		res.BatchesUploaded = n
		return err
	})
}

// stageFunc receives the params after defaults are applied.
type stageFunc func(ctx context.Context, p RunParams, posts []models.Post, res *RunResult) error

func (s *PipelineService) run(ctx context.Context, mode string, p RunParams, stage stageFunc) (*RunResult, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if p.FonciiUsername == "" {
		p.FonciiUsername = p.InstagramUsername
	}
	if p.RunID == uuid.Nil {
		p.RunID = uuid.New()
	}

	started := time.Now()
	run := &models.PipelineRun{
		ID:                p.RunID,
		Mode:              mode,
		InstagramUsername: p.InstagramUsername,
		FonciiUsername:    p.FonciiUsername,
		Status:            models.RunStatusRunning,
		StartedAt:         started.UTC(),
	}
	s.recordRun(ctx, run)

	logger := log.WithFields(log.Fields{"run_id": p.RunID, "mode": mode, "username": p.InstagramUsername})
	logger.Infof("Starting pipeline run for %d posts", p.PostAmount)

	res := &RunResult{RunID: p.RunID}
	err := func() error {
		posts, err := s.aggregator.Aggregate(ctx, p.InstagramUsername, p.PostAmount, p.StopAtCode)
		if err != nil {
			return err
		}
		res.Fetched = len(posts)
		return stage(ctx, p, posts, res)
	}()

	finished := time.Now()
	run.Fetched = res.Fetched
	run.Accepted = res.Accepted
	run.BatchesUploaded = res.BatchesUploaded
	finishedAt := finished.UTC()
	run.FinishedAt = &finishedAt
	run.Status = models.RunStatusCompleted
	if err != nil {
		run.Status = models.RunStatusFailed
		run.Error = err.Error()
	}
	s.recordRun(ctx, run)
	s.metrics.Run(mode, run.Status, finished.Sub(started).Seconds())

	if err != nil {
		logger.Errorf("Pipeline run failed: %v", err)
		return res, err
	}
	logger.WithFields(log.Fields{
		"fetched":  res.Fetched,
		"accepted": res.Accepted,
		"batches":  res.BatchesUploaded,
	}).Info("Pipeline run completed")
	return res, nil
}

// uploadBatches sends payloads in fixed-size batches and stops at the first
// failed batch. It returns the number of batches uploaded.
func (s *PipelineService) uploadBatches(ctx context.Context, payloads []models.PostPayload, upload func(context.Context, []models.PostPayload) error) (int, error) {
	total := (len(payloads) + s.batchSize - 1) / s.batchSize
	uploaded := 0
	for i := 0; i < len(payloads); i += s.batchSize {
		end := i + s.batchSize
		if end > len(payloads) {
			end = len(payloads)
		}
		log.Debugf("Uploading batch %d of %d (%d posts)", uploaded+1, total, end-i)
		err := upload(ctx, payloads[i:end])
		s.metrics.Batch(err)
		if err != nil {
			return uploaded, fmt.Errorf("%w: batch %d of %d: %w", models.ErrUploadFailed, uploaded+1, total, err)
		}
		uploaded++
	}
	return uploaded, nil
}

func (s *PipelineService) recordRun(ctx context.Context, run *models.PipelineRun) {
	if s.runs == nil {
		return
	}
	if err := s.runs.RecordRun(ctx, run); err != nil {
		log.Warnf("Failed to record run %s: %v", run.ID, err)
	}
}

// postKey matches the row ID the extractor assigns to post.
func postKey(p models.Post) string {
	if p.Code != "" {
		return p.Code
	}
	return p.ID
}
