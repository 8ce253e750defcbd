package extract

import (
	"regexp"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"postmatch/internal/models"
)

var mentionRegex = regexp.MustCompile(`@([A-Za-z0-9_.]{1,30})`)

// DefaultCutoff is the oldest post creation date kept by default.
var DefaultCutoff = time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC)

// Extractor turns raw posts into classification rows.
type Extractor struct {
	// Cutoff drops posts created before it. Zero keeps everything.
	Cutoff time.Time
}

func New(cutoff time.Time) *Extractor {
	return &Extractor{Cutoff: cutoff}
}

// ExtractMentions returns the distinct handles mentioned in a caption, sorted.
func ExtractMentions(caption string) []string {
	matches := mentionRegex.FindAllStringSubmatch(caption, -1)
	mentions := make([]string, 0, len(matches))
	for _, m := range matches {
		mentions = append(mentions, m[1])
	}
	return dedupe(mentions)
}

// Row builds the row for a single post. ok is false when the post predates the cutoff.
func (e *Extractor) Row(post models.Post) (*models.ClassifiedRow, bool) {
	if !e.Cutoff.IsZero() && post.TakenAt.Before(e.Cutoff) {
		return nil, false
	}

	mentions := ExtractMentions(post.Caption)
	tags := dedupe(post.UserTags)

	row := &models.ClassifiedRow{
		PostID:    post.Code,
		Caption:   post.Caption,
		Mentions:  mentions,
		Tags:      tags,
		AllTags:   dedupe(append(append([]string{}, mentions...), tags...)),
		MediaKind: models.MediaKindImage,
		TakenAt:   post.TakenAt,
	}
	if post.VideoURL != "" {
		row.MediaKind = models.MediaKindReel
	}
	if post.Location != nil {
		row.Name = post.Location.Name
		row.Address = post.Location.Address
		row.City = post.Location.City
	}
	if row.PostID == "" {
		log.WithField("post_pk", post.ID).Warn("post has no permalink code, falling back to its id")
		row.PostID = post.ID
	}
	return row, true
}

// Rows extracts every post that passes the cutoff, keeping input order.
func (e *Extractor) Rows(posts []models.Post) []*models.ClassifiedRow {
	rows := make([]*models.ClassifiedRow, 0, len(posts))
	skipped := 0
	for _, p := range posts {
		row, ok := e.Row(p)
		if !ok {
			skipped++
			continue
		}
		rows = append(rows, row)
	}
	if skipped > 0 {
		log.Debugf("Skipped %d posts created before %s", skipped, e.Cutoff.Format("2006-01-02"))
	}
	return rows
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
