package models

import (
	"errors"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")

	ErrUploadFailed    = errors.New("ingestion upload failed")
	ErrUserNotIngested = errors.New("user not ingested")
)
