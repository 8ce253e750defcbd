package services

import "postmatch/internal/models"

// DefaultAcceptanceFloor is the minimum score a candidate needs to be kept.
const DefaultAcceptanceFloor = 0.55

// MatchFilter drops weak candidates and the rows left without any.
type MatchFilter struct {
	Floor float64
}

func NewMatchFilter(floor float64) *MatchFilter {
	return &MatchFilter{Floor: floor}
}

// Accept fills row.Accepted from row.Candidates. A place reached through
// several handles is kept once, with its best score.
func (f *MatchFilter) Accept(row *models.ClassifiedRow) []models.AcceptedMatch {
	accepted := make([]models.AcceptedMatch, 0, len(row.Candidates))
	index := make(map[string]int, len(row.Candidates))

	for _, res := range row.Candidates {
		c, ok := res.Candidate()
		if !ok || c.PlaceID == "" || c.Score < f.Floor {
			continue
		}
		m := models.AcceptedMatch{
			PlaceID:    c.PlaceID,
			Name:       c.Name,
			Score:      c.Score,
			Confidence: c.Confidence(),
			Handle:     c.Handle,
		}
		if i, seen := index[c.PlaceID]; seen {
			if m.Score > accepted[i].Score {
				accepted[i] = m
			}
			continue
		}
		index[c.PlaceID] = len(accepted)
		accepted = append(accepted, m)
	}

	row.Accepted = accepted
	return accepted
}

// Filter accepts every row and returns those with at least one match, in order.
func (f *MatchFilter) Filter(rows []*models.ClassifiedRow) []*models.ClassifiedRow {
	out := make([]*models.ClassifiedRow, 0, len(rows))
	for _, row := range rows {
		if len(f.Accept(row)) > 0 {
			out = append(out, row)
		}
	}
	return out
}
