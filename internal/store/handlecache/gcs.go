package handlecache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"

	"postmatch/internal/models"
	"postmatch/internal/store"
)

var _ store.HandleCacheStore = (*GCSStore)(nil)

// GCSStore keeps the cache as a JSON object in a Cloud Storage bucket.
type GCSStore struct {
	svc    *storage.Service
	bucket string
	object string
}

// NewGCSStore builds the storage client. Without options it uses application
// default credentials.
func NewGCSStore(ctx context.Context, bucket, object string, opts ...option.ClientOption) (*GCSStore, error) {
	if bucket == "" || object == "" {
		return nil, errors.New("gcs handle cache needs both a bucket and an object path")
	}
	svc, err := storage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSStore{svc: svc, bucket: bucket, object: object}, nil
}

// Load returns an empty cache when the object does not exist yet.
func (s *GCSStore) Load(ctx context.Context) (map[string]models.HandleCacheEntry, error) {
	resp, err := s.svc.Objects.Get(s.bucket, s.object).Context(ctx).Download()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
			return map[string]models.HandleCacheEntry{}, nil
		}
		return nil, fmt.Errorf("%w: download gs://%s/%s: %v", store.ErrCacheUnavailable, s.bucket, s.object, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read gs://%s/%s: %v", store.ErrCacheUnavailable, s.bucket, s.object, err)
	}
	return decode(data)
}

func (s *GCSStore) Save(ctx context.Context, entries map[string]models.HandleCacheEntry) error {
	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode handle cache: %w", err)
	}
	obj := &storage.Object{Name: s.object, ContentType: "application/json"}
	_, err = s.svc.Objects.Insert(s.bucket, obj).
		Media(bytes.NewReader(b), googleapi.ContentType("application/json")).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("upload gs://%s/%s: %w", s.bucket, s.object, err)
	}
	return nil
}
