package services

import (
	"context"

	log "github.com/sirupsen/logrus"

	"postmatch/internal/metrics"
	"postmatch/internal/models"
	"postmatch/internal/store"
	"postmatch/internal/util"
	"postmatch/pkg/similarity"
)

// DefaultCategories are the place categories counted as food venues.
var DefaultCategories = []string{"restaurant", "food", "bar", "cafe", "bakery", "meal_delivery", "meal_takeaway"}

// Default cache reuse thresholds for the per-handle tiers.
const (
	DefaultMaybeThreshold = 0.6
	DefaultNoThreshold    = 0.7
)

const (
	pathLookup = "lookup"
	pathSearch = "search"
	pathCache  = "cache"
)

// Strategy is how rows of one tier are resolved.
type Strategy struct {
	Tier models.Tier
	// Direct resolves the declared location as one query. Otherwise every
	// handle of the row is resolved on its own.
	Direct bool
	// CacheThreshold is the minimum cached score reused without a new search.
	CacheThreshold float64
	// SearchOnMiss searches handles that are not cached yet.
	SearchOnMiss bool
	// Truncate compares handles against the space-stripped prefix of the
	// candidate name.
	Truncate bool
}

// DefaultStrategies returns the strategy for every tier.
func DefaultStrategies(maybeThreshold, noThreshold float64) map[models.Tier]Strategy {
	return map[models.Tier]Strategy{
		models.TierYes:   {Tier: models.TierYes, Direct: true},
		models.TierMaybe: {Tier: models.TierMaybe, CacheThreshold: maybeThreshold, SearchOnMiss: true, Truncate: true},
		models.TierNo:    {Tier: models.TierNo, CacheThreshold: noThreshold, SearchOnMiss: true, Truncate: true},
	}
}

type ResolverDeps struct {
	Searcher store.PlaceSearcher
	// Lookup is optional. Without it the direct path only searches.
	Lookup     store.PlaceLookup
	Scorer     similarity.Scorer
	Categories []string
	Strategies map[models.Tier]Strategy
	Metrics    *metrics.Metrics
}

// Resolver turns classified rows into place candidates.
type Resolver struct {
	searcher   store.PlaceSearcher
	lookup     store.PlaceLookup
	scorer     similarity.Scorer
	categories map[string]struct{}
	strategies map[models.Tier]Strategy
	metrics    *metrics.Metrics
}

func NewResolver(deps ResolverDeps) *Resolver {
	r := &Resolver{
		searcher:   deps.Searcher,
		lookup:     deps.Lookup,
		scorer:     deps.Scorer,
		strategies: deps.Strategies,
		metrics:    deps.Metrics,
	}
	if r.scorer == nil {
		r.scorer = similarity.RatcliffObershelp{}
	}
	if r.strategies == nil {
		r.strategies = DefaultStrategies(DefaultMaybeThreshold, DefaultNoThreshold)
	}
	cats := deps.Categories
	if len(cats) == 0 {
		cats = DefaultCategories
	}
	r.categories = make(map[string]struct{}, len(cats))
	for _, c := range cats {
		r.categories[c] = struct{}{}
	}
	return r
}

// Strategy returns the strategy for tier.
func (r *Resolver) Strategy(tier models.Tier) Strategy {
	if s, ok := r.strategies[tier]; ok {
		return s
	}
	return Strategy{Tier: tier}
}

// Resolve fills row.Candidates. cache may only be nil for direct tiers.
func (r *Resolver) Resolve(ctx context.Context, row *models.ClassifiedRow, cache *HandleCache) []models.MatchResult {
	s := r.Strategy(row.Tier)
	if s.Direct {
		row.Candidates = []models.MatchResult{r.resolveDirect(ctx, row, s)}
	} else {
		if cache == nil {
			cache = NewHandleCache(nil)
		}
		row.Candidates = r.resolveHandles(ctx, row, s, cache)
	}
	return row.Candidates
}

func (r *Resolver) resolveDirect(ctx context.Context, row *models.ClassifiedRow, s Strategy) models.MatchResult {
	logger := log.WithFields(log.Fields{"post_id": row.PostID, "tier": row.Tier})
	query := util.CollapseSpaces(row.Name, row.Address, row.City)

	if r.lookup != nil {
		res, err := r.lookup.Lookup(ctx, query, false)
		r.metrics.ExternalCall("foncii", err)
		if err != nil {
			logger.Warnf("Place lookup failed for %q: %v", query, err)
		} else if res != nil && res.PlaceID != "" {
			name := res.Description
			if name == "" {
				name = row.Name
			}
			c := models.ResolutionCandidate{
				Key:           row.PostID,
				PlaceID:       res.PlaceID,
				Name:          name,
				Score:         models.MaxScore,
				Authoritative: true,
			}
			r.metrics.Resolution(string(row.Tier), pathLookup, true, c.Score)
			return models.Matched(c)
		}
	}

	cand, err := r.searcher.Search(ctx, query)
	r.metrics.ExternalCall("places", err)
	if err != nil {
		logger.Warnf("Place search failed for %q: %v", query, err)
		r.metrics.Resolution(string(row.Tier), pathSearch, false, 0)
		return models.Unmatched()
	}
	if cand == nil || !r.isFood(cand.Categories) {
		r.metrics.Resolution(string(row.Tier), pathSearch, false, 0)
		return models.Unmatched()
	}

	res := models.Matched(models.ResolutionCandidate{
		Key:     row.PostID,
		PlaceID: cand.PlaceID,
		Name:    cand.Name,
		Score:   r.scorer.Score(row.Name, cand.Name, s.Truncate),
	})
	r.metrics.Resolution(string(row.Tier), pathSearch, true, res.Score())
	return res
}

func (r *Resolver) resolveHandles(ctx context.Context, row *models.ClassifiedRow, s Strategy, cache *HandleCache) []models.MatchResult {
	results := make([]models.MatchResult, 0, len(row.AllTags))
	for _, handle := range row.AllTags {
		results = append(results, r.resolveHandle(ctx, row, handle, s, cache))
	}
	return results
}

func (r *Resolver) resolveHandle(ctx context.Context, row *models.ClassifiedRow, handle string, s Strategy, cache *HandleCache) models.MatchResult {
	tier := string(row.Tier)

	entry, hit := cache.Get(handle)
	r.metrics.CacheLookup(hit)
	if hit {
		if entry.PlaceID == "" || entry.Score < s.CacheThreshold {
			r.metrics.Resolution(tier, pathCache, false, 0)
			return models.Unmatched()
		}
		res := models.Matched(models.ResolutionCandidate{
			Key:     handle,
			PlaceID: entry.PlaceID,
			Name:    entry.Name,
			Score:   entry.Score,
			Handle:  handle,
		})
		r.metrics.Resolution(tier, pathCache, true, res.Score())
		return res
	}
	if !s.SearchOnMiss {
		return models.Unmatched()
	}

	query := util.CollapseSpaces(handle, row.Name, row.City)
	cand, err := r.searcher.Search(ctx, query)
	r.metrics.ExternalCall("places", err)
	if err != nil {
		log.WithFields(log.Fields{"post_id": row.PostID, "handle": handle}).Warnf("Place search failed: %v", err)
		r.metrics.Resolution(tier, pathSearch, false, 0)
		return models.Unmatched()
	}
	if cand == nil {
		r.metrics.Resolution(tier, pathSearch, false, 0)
		return models.Unmatched()
	}

	if !r.isFood(cand.Categories) {
		cache.Put(handle, models.HandleCacheEntry{Categories: cand.Categories})
		r.metrics.Resolution(tier, pathSearch, false, 0)
		return models.Unmatched()
	}

	res := models.Matched(models.ResolutionCandidate{
		Key:     handle,
		PlaceID: cand.PlaceID,
		Name:    cand.Name,
		Score:   r.scorer.Score(handle, cand.Name, s.Truncate),
		Handle:  handle,
	})
	cache.Put(handle, models.HandleCacheEntry{
		Score:      res.Score(),
		PlaceID:    cand.PlaceID,
		Name:       cand.Name,
		Categories: cand.Categories,
	})
	r.metrics.Resolution(tier, pathSearch, true, res.Score())
	return res
}

func (r *Resolver) isFood(categories []string) bool {
	for _, c := range categories {
		if _, ok := r.categories[c]; ok {
			return true
		}
	}
	return false
}
