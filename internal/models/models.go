package models

import (
	"time"

	"github.com/google/uuid"
)

// Tier is the confidence bucket a post lands in, based on how much direct
// location signal it carries.
type Tier string

const (
	TierYes   Tier = "Yes"
	TierMaybe Tier = "Maybe"
	TierNo    Tier = "No"
)

// Tiers lists every tier in resolution order.
var Tiers = []Tier{TierYes, TierMaybe, TierNo}

// MediaKind is the coarse media type of a post.
type MediaKind string

const (
	MediaKindReel  MediaKind = "Reel"
	MediaKindImage MediaKind = "Image"
)

// Confidence is the label derived from a similarity score.
type Confidence string

const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceLow    Confidence = "Low"
	ConfidenceNone   Confidence = ""
)

// MaxScore marks matches coming from the authoritative place lookup rather
// than fuzzy comparison.
const MaxScore = 1.0

// ConfidenceFor maps a score to its confidence label.
func ConfidenceFor(score float64) Confidence {
	switch {
	case score >= 0.75:
		return ConfidenceHigh
	case score >= 0.65:
		return ConfidenceMedium
	case score >= 0.5:
		return ConfidenceLow
	default:
		return ConfidenceNone
	}
}

// Location is the venue a post author attached to the post.
type Location struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`
}

// MediaResource is one item of a carousel post.
type MediaResource struct {
	VideoURL     string `json:"video_url"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// Post is a raw social-media post as returned by the post source.
type Post struct {
	ID           string          `json:"pk"`
	Code         string          `json:"code"`
	Caption      string          `json:"caption_text"`
	UserTags     []string        `json:"usertags"`
	Location     *Location       `json:"location"`
	VideoURL     string          `json:"video_url"`
	ThumbnailURL string          `json:"thumbnail_url"`
	Resources    []MediaResource `json:"resources"`
	TakenAt      time.Time       `json:"taken_at"`
}

// ClassifiedRow is a post reduced to the features used for matching, plus the
// resolution results attached as the pipeline progresses.
type ClassifiedRow struct {
	PostID    string
	Caption   string
	Mentions  []string
	Tags      []string
	AllTags   []string
	Name      string
	Address   string
	City      string
	MediaKind MediaKind
	TakenAt   time.Time
	Tier      Tier

	Candidates []MatchResult
	Accepted   []AcceptedMatch
}

// ResolutionCandidate is one place a row (or one of its handles) resolved to.
type ResolutionCandidate struct {
	Key           string  `json:"key"`
	PlaceID       string  `json:"place_id"`
	Name          string  `json:"name"`
	Score         float64 `json:"score"`
	Handle        string  `json:"handle,omitempty"`
	Authoritative bool    `json:"authoritative,omitempty"`
}

// Confidence returns the label for the candidate's score.
func (c ResolutionCandidate) Confidence() Confidence {
	return ConfidenceFor(c.Score)
}

// MatchResult is either Matched with a candidate or Unmatched.
type MatchResult struct {
	candidate ResolutionCandidate
	matched   bool
}

// Matched wraps a candidate. Scores outside [0,1] are clamped.
func Matched(c ResolutionCandidate) MatchResult {
	if c.Score < 0 {
		c.Score = 0
	}
	if c.Score > MaxScore {
		c.Score = MaxScore
	}
	return MatchResult{candidate: c, matched: true}
}

// Unmatched is the zero-score placeholder for a lookup that produced nothing usable.
func Unmatched() MatchResult {
	return MatchResult{}
}

func (r MatchResult) IsMatched() bool { return r.matched }

// Candidate returns the wrapped candidate and whether there was one.
func (r MatchResult) Candidate() (ResolutionCandidate, bool) {
	return r.candidate, r.matched
}

// Score is the candidate score, or 0 when unmatched.
func (r MatchResult) Score() float64 {
	if !r.matched {
		return 0
	}
	return r.candidate.Score
}

// AcceptedMatch is a candidate that passed the acceptance floor.
type AcceptedMatch struct {
	PlaceID    string     `json:"place_id"`
	Name       string     `json:"name"`
	Score      float64    `json:"score"`
	Confidence Confidence `json:"confidence"`
	Handle     string     `json:"handle"`
}

// HandleCacheEntry remembers what a handle resolved to in an earlier run.
// JSON keys match the documents written by the legacy ingestion scripts.
type HandleCacheEntry struct {
	Score      float64  `json:"score"`
	PlaceID    string   `json:"place_id"`
	Name       string   `json:"name"`
	Categories []string `json:"type"`
}

// Equal reports whether two entries carry the same information.
func (e HandleCacheEntry) Equal(o HandleCacheEntry) bool {
	if e.Score != o.Score || e.PlaceID != o.PlaceID || e.Name != o.Name {
		return false
	}
	if len(e.Categories) != len(o.Categories) {
		return false
	}
	for i := range e.Categories {
		if e.Categories[i] != o.Categories[i] {
			return false
		}
	}
	return true
}

// PlaceCandidate is the best result of a places search.
type PlaceCandidate struct {
	PlaceID    string   `json:"place_id"`
	Name       string   `json:"name"`
	Categories []string `json:"types"`
}

// PlaceLookupResult is a hit from the authoritative place lookup.
type PlaceLookupResult struct {
	PlaceID     string  `json:"googlePlaceID"`
	Description string  `json:"description"`
	Similarity  float64 `json:"similarityScore"`
}

// UserProfile is the public account information used to create a map owner.
type UserProfile struct {
	Username          string `json:"username"`
	FullName          string `json:"fullName"`
	PhoneNumber       string `json:"phoneNumber"`
	Email             string `json:"email"`
	ProfilePictureURL string `json:"profilePictureURL"`
}

// PostMedia describes one media item in an ingestion payload.
type PostMedia struct {
	MediaURL               string  `json:"mediaURL"`
	VideoMediaThumbnailURL *string `json:"videoMediaThumbnailURL"`
	MediaType              string  `json:"mediaType"`
}

// PostDataSource is the source description of an ingested post.
type PostDataSource struct {
	LiveSourceUID  string      `json:"liveSourceUID"`
	SourceUID      string      `json:"sourceUID"`
	Caption        string      `json:"caption"`
	Permalink      string      `json:"permalink"`
	CreationDate   string      `json:"creationDate"`
	Media          PostMedia   `json:"media"`
	SecondaryMedia []PostMedia `json:"secondaryMedia"`
}

// PlaceHandleMapping links an accepted place to the handle it came from.
type PlaceHandleMapping struct {
	GooglePlaceID   string `json:"googlePlaceID"`
	InstagramHandle string `json:"instagramHandle"`
}

// PostPayload is one post as sent to the ingestion sink.
type PostPayload struct {
	DataSource                    PostDataSource       `json:"dataSource"`
	GooglePlaceIDs                []string             `json:"googlePlaceIDs,omitempty"`
	GPIDToInstagramHandleMappings []PlaceHandleMapping `json:"gpidToInstagramHandleMappings,omitempty"`
}

// PipelineRun is the history record of one pipeline invocation.
type PipelineRun struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	Mode              string     `db:"mode" json:"mode"`
	InstagramUsername string     `db:"instagram_username" json:"instagram_username"`
	FonciiUsername    string     `db:"foncii_username" json:"foncii_username"`
	Fetched           int        `db:"fetched" json:"fetched"`
	Accepted          int        `db:"accepted" json:"accepted"`
	BatchesUploaded   int        `db:"batches_uploaded" json:"batches_uploaded"`
	Status            string     `db:"status" json:"status"`
	Error             string     `db:"error" json:"error,omitempty"`
	StartedAt         time.Time  `db:"started_at" json:"started_at"`
	FinishedAt        *time.Time `db:"finished_at" json:"finished_at,omitempty"`
}
