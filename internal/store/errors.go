package store

import "errors"

var (
	ErrNotFound         = errors.New("store: resource not found")
	ErrCacheUnavailable = errors.New("store: handle cache unavailable")
)
