package tiering

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"postmatch/internal/models"
)

func TestClassify(t *testing.T) {
	testCases := []struct {
		name     string
		venue    string
		address  string
		tags     int
		expected models.Tier
	}{
		{"full location with street number", "Joe's Pizza", "123 Main St", 0, models.TierYes},
		{"yes wins over maybe", "Joe's Pizza", "7 Carmine St", 2, models.TierYes},
		{"address without digit", "Joe's Pizza", "Main St", 2, models.TierMaybe},
		{"no location two tags", "", "", 2, models.TierMaybe},
		{"one tag", "", "", 1, models.TierMaybe},
		{"nine tags", "", "", 9, models.TierMaybe},
		{"ten tags", "", "", 10, models.TierNo},
		{"twelve tags", "", "", 12, models.TierNo},
		{"nothing at all", "", "", 0, models.TierNo},
		{"address only", "", "123 Main St", 0, models.TierNo},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Classify(tc.venue, tc.address, tc.tags))
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	for tags := 0; tags < 15; tags++ {
		first := Classify("", fmt.Sprintf("%d Elm", tags), tags)
		for i := 0; i < 3; i++ {
			assert.Equal(t, first, Classify("", fmt.Sprintf("%d Elm", tags), tags))
		}
	}
}

func TestClassifyRowAndPartition(t *testing.T) {
	rows := []*models.ClassifiedRow{
		{PostID: "a", Name: "Joe's Pizza", Address: "123 Main St", City: "NYC"},
		{PostID: "b", AllTags: []string{"joe", "maria"}},
		{PostID: "c", AllTags: make([]string, 12)},
		{PostID: "d", AllTags: []string{"lilia"}},
	}
	for _, r := range rows {
		ClassifyRow(r)
	}

	parts := Partition(rows)
	assert.Len(t, parts[models.TierYes], 1)
	assert.Len(t, parts[models.TierNo], 1)
	if assert.Len(t, parts[models.TierMaybe], 2) {
		assert.Equal(t, "b", parts[models.TierMaybe][0].PostID)
		assert.Equal(t, "d", parts[models.TierMaybe][1].PostID)
	}
}
