package services

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"postmatch/internal/models"
	"postmatch/internal/store"
)

const (
	DefaultMaxPostAge = 2 * 365 * 24 * time.Hour
	// DefaultMinBatch posts must be gathered before an old post ends
	// aggregation. Accounts often pin an old post at the top of their feed.
	DefaultMinBatch = 30
)

// Aggregator pages through an account's posts.
type Aggregator struct {
	source   store.PostSource
	maxAge   time.Duration
	minBatch int
	now      func() time.Time
}

func NewAggregator(source store.PostSource, maxAge time.Duration, minBatch int) *Aggregator {
	if maxAge <= 0 {
		maxAge = DefaultMaxPostAge
	}
	if minBatch < 0 {
		minBatch = DefaultMinBatch
	}
	return &Aggregator{source: source, maxAge: maxAge, minBatch: minBatch, now: time.Now}
}

// Aggregate gathers up to amount posts, newest first. Paging stops at an empty
// page, the last page, the post whose code is stopAtCode (excluded), or a post
// older than the max age once the minimum batch is gathered.
func (a *Aggregator) Aggregate(ctx context.Context, username string, amount int, stopAtCode string) ([]models.Post, error) {
	if amount <= 0 {
		return nil, nil
	}
	oldest := a.now().Add(-a.maxAge)

	var (
		posts  []models.Post
		cursor string
	)
	for len(posts) < amount {
		page, next, err := a.source.FetchPage(ctx, username, amount-len(posts), cursor)
		if err != nil {
			return nil, fmt.Errorf("fetch posts for %s: %w", username, err)
		}

		tooOld := false
		stopFound := false
		for _, p := range page {
			if stopAtCode != "" && p.Code == stopAtCode {
				stopFound = true
				break
			}
			tooOld = p.TakenAt.Before(oldest)
			if tooOld && len(posts) >= a.minBatch {
				break
			}
			posts = append(posts, p)
		}

		if len(page) == 0 || next == "" || stopFound || tooOld {
			log.WithFields(log.Fields{
				"username":   username,
				"gathered":   len(posts),
				"too_old":    tooOld,
				"stop_found": stopFound,
			}).Debug("Ending pagination")
			break
		}
		cursor = next
	}

	if len(posts) > amount {
		posts = posts[:amount]
	}
	return posts, nil
}
