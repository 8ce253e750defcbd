package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postmatch/internal/models"
)

func matched(placeID, handle string, score float64) models.MatchResult {
	return models.Matched(models.ResolutionCandidate{Key: handle, PlaceID: placeID, Name: placeID, Score: score, Handle: handle})
}

func TestMatchFilter_Floor(t *testing.T) {
	f := NewMatchFilter(DefaultAcceptanceFloor)
	row := &models.ClassifiedRow{Candidates: []models.MatchResult{
		matched("a", "h1", 0.55),
		matched("b", "h2", 0.549),
		models.Unmatched(),
		matched("c", "h3", 0.9),
	}}

	accepted := f.Accept(row)

	require.Len(t, accepted, 2)
	assert.Equal(t, "a", accepted[0].PlaceID)
	assert.Equal(t, models.ConfidenceLow, accepted[0].Confidence)
	assert.Equal(t, "c", accepted[1].PlaceID)
	assert.Equal(t, models.ConfidenceHigh, accepted[1].Confidence)
	assert.Equal(t, "h3", accepted[1].Handle)
}

func TestMatchFilter_DuplicatePlaceKeepsBest(t *testing.T) {
	f := NewMatchFilter(DefaultAcceptanceFloor)
	row := &models.ClassifiedRow{Candidates: []models.MatchResult{
		matched("joe", "joespizza", 0.6),
		matched("joe", "joes", 0.8),
	}}

	accepted := f.Accept(row)

	require.Len(t, accepted, 1)
	assert.Equal(t, 0.8, accepted[0].Score)
	assert.Equal(t, "joes", accepted[0].Handle)
	assert.Equal(t, models.ConfidenceHigh, accepted[0].Confidence)
}

func TestMatchFilter_DropsEmptyRows(t *testing.T) {
	f := NewMatchFilter(DefaultAcceptanceFloor)
	rows := []*models.ClassifiedRow{
		{PostID: "1", Candidates: []models.MatchResult{matched("a", "", 0.7)}},
		{PostID: "2", Candidates: []models.MatchResult{matched("b", "x", 0.2)}},
		{PostID: "3"},
		{PostID: "4", Candidates: []models.MatchResult{matched("d", "y", 1.0)}},
	}

	out := f.Filter(rows)

	ids := make([]string, 0, len(out))
	for _, r := range out {
		ids = append(ids, r.PostID)
		assert.NotEmpty(t, r.Accepted)
		for _, m := range r.Accepted {
			assert.GreaterOrEqual(t, m.Score, DefaultAcceptanceFloor)
		}
	}
	assert.Equal(t, []string{"1", "4"}, ids)
	assert.Equal(t, models.ConfidenceMedium, out[0].Accepted[0].Confidence)
}
