package store

import (
	"context"

	"github.com/google/uuid"

	"postmatch/internal/models"
)

// --- Job Client ---

// PipelineJobPayload is the task body for a queued pipeline run.
type PipelineJobPayload struct {
	RunID             string `json:"run_id"`
	Mode              string `json:"mode"`
	InstagramUsername string `json:"instagram_username"`
	FonciiUsername    string `json:"foncii_username"`
	PostAmount        int    `json:"post_amount"`
}

type JobClient interface {
	EnqueuePipelineJob(ctx context.Context, payload PipelineJobPayload) (string, error)
	Close() error
}

// --- Post Source ---

// PostSource pages through an account's posts, newest first.
type PostSource interface {
	// FetchPage returns up to targetCount posts after cursor and the cursor of
	// the next page. An empty next cursor means there are no more pages.
	FetchPage(ctx context.Context, userHandle string, targetCount int, cursor string) ([]models.Post, string, error)
	UserProfile(ctx context.Context, username string) (*models.UserProfile, error)
}

// --- Places ---

type PlaceSearcher interface {
	// Search returns the best candidate for a free-text query, or nil when
	// the query produced nothing.
	Search(ctx context.Context, query string) (*models.PlaceCandidate, error)
}

type PlaceLookup interface {
	// Lookup returns the known place for a query, or nil when there is none.
	Lookup(ctx context.Context, query string, allowFallback bool) (*models.PlaceLookupResult, error)
}

// --- Handle Cache Store ---

// HandleCacheStore persists the handle cache as a single document.
type HandleCacheStore interface {
	Load(ctx context.Context) (map[string]models.HandleCacheEntry, error)
	Save(ctx context.Context, entries map[string]models.HandleCacheEntry) error
}

// --- Ingestion Sink ---

type IngestionSink interface {
	// UploadClassifiedPosts sends one batch of matched posts.
	UploadClassifiedPosts(ctx context.Context, fonciiUsername string, posts []models.PostPayload) error
	// UploadPosts sends one batch of posts without place matches.
	UploadPosts(ctx context.Context, fonciiUsername string, posts []models.PostPayload) error
	IngestUser(ctx context.Context, profile models.UserProfile) error
}

// --- Run Store ---

type RunStore interface {
	// RecordRun inserts the run or replaces the record with the same ID.
	RecordRun(ctx context.Context, run *models.PipelineRun) error
	GetRun(ctx context.Context, id uuid.UUID) (*models.PipelineRun, error)
	ListRuns(ctx context.Context, limit, offset int) ([]*models.PipelineRun, error)
}
