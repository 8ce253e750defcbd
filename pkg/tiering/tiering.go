// Package tiering buckets posts by how much direct location signal they carry.
package tiering

import (
	"unicode"

	"postmatch/internal/models"
)

// Tag-count bounds for the Maybe tier, inclusive.
const (
	MinMaybeTags = 1
	MaxMaybeTags = 9
)

// Classify assigns exactly one tier. Rules are evaluated in order and the
// first match wins:
//
//	Yes   - declared name and address present, address has a street number
//	Maybe - between MinMaybeTags and MaxMaybeTags handles
//	No    - everything else
func Classify(name, address string, tagCount int) models.Tier {
	if name != "" && address != "" && containsDigit(address) {
		return models.TierYes
	}
	if tagCount >= MinMaybeTags && tagCount <= MaxMaybeTags {
		return models.TierMaybe
	}
	return models.TierNo
}

// ClassifyRow sets row.Tier and returns it.
func ClassifyRow(row *models.ClassifiedRow) models.Tier {
	row.Tier = Classify(row.Name, row.Address, len(row.AllTags))
	return row.Tier
}

// Partition splits rows by tier, preserving order within each tier.
func Partition(rows []*models.ClassifiedRow) map[models.Tier][]*models.ClassifiedRow {
	out := make(map[models.Tier][]*models.ClassifiedRow, len(models.Tiers))
	for _, row := range rows {
		out[row.Tier] = append(out[row.Tier], row)
	}
	return out
}

func containsDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
