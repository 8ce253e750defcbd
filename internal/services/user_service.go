package services

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"postmatch/internal/models"
	"postmatch/internal/store"
)

// UserService creates map owners from public account information.
type UserService struct {
	source   store.PostSource
	sink     store.IngestionSink
	pipeline *PipelineService
}

func NewUserService(source store.PostSource, sink store.IngestionSink, pipeline *PipelineService) *UserService {
	return &UserService{source: source, sink: sink, pipeline: pipeline}
}

// IngestNewUser creates a user from the account's profile. It fails with
// models.ErrUserNotIngested when the sink refuses the user, for example
// because it already exists.
func (u *UserService) IngestNewUser(ctx context.Context, instagramUsername string) (*models.UserProfile, error) {
	if strings.TrimSpace(instagramUsername) == "" {
		return nil, fmt.Errorf("%w: instagram username is required", models.ErrValidation)
	}
	profile, err := u.source.UserProfile(ctx, instagramUsername)
	if err != nil {
		return nil, fmt.Errorf("fetch profile for %s: %w", instagramUsername, err)
	}
	if err := u.sink.IngestUser(ctx, *profile); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", models.ErrUserNotIngested, instagramUsername, err)
	}
	log.WithField("username", instagramUsername).Info("Ingested new user")
	return profile, nil
}

// NewUserClassifyIngest creates the user and then runs the classifying
// pipeline with the same username on both sides. p.FonciiUsername is ignored.
func (u *UserService) NewUserClassifyIngest(ctx context.Context, p RunParams) (*RunResult, error) {
	p.FonciiUsername = p.InstagramUsername
	if err := p.validate(); err != nil {
		return nil, err
	}
	if _, err := u.IngestNewUser(ctx, p.InstagramUsername); err != nil {
		return nil, err
	}
	return u.pipeline.classifyAndIngest(ctx, models.RunModeNewUserClassifyIngest, p)
}

// NewUserIngest creates the user and uploads their posts without matching.
func (u *UserService) NewUserIngest(ctx context.Context, p RunParams) (*RunResult, error) {
	p.FonciiUsername = p.InstagramUsername
	if err := p.validate(); err != nil {
		return nil, err
	}
	if _, err := u.IngestNewUser(ctx, p.InstagramUsername); err != nil {
		return nil, err
	}
	return u.pipeline.ingest(ctx, models.RunModeNewUserIngest, p)
}
