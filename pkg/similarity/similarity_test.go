package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRatcliffObershelp_Truncation(t *testing.T) {
	s := RatcliffObershelp{}

	// "katz's deli" vs "katz'sdelic": blocks "katz's" + "deli" -> 2*10/22
	score := s.Score("Katz's Deli", "Katz's Delicatessen", true)
	assert.InDelta(t, 20.0/22.0, score, 1e-9)
	assert.GreaterOrEqual(t, score, 0.5)

	full := s.Score("Katz's Deli", "Katz's Delicatessen", false)
	assert.Less(t, full, score, "untruncated comparison penalises the suffix")
}

func TestRatcliffObershelp_CaseAndPunctuation(t *testing.T) {
	s := RatcliffObershelp{}
	assert.Equal(t, 1.0, s.Score("JOE'S PIZZA", "joe's pizza", false))
	assert.Equal(t, 1.0, s.Score("Katz’s", "Katz's", false))
}

func TestRatcliffObershelp_Bounds(t *testing.T) {
	s := RatcliffObershelp{}
	cases := []struct {
		declared, candidate string
		truncate            bool
	}{
		{"", "", false},
		{"abc", "", true},
		{"", "abc", false},
		{"abc", "xyz", false},
		{"joespizza", "Joe's Pizza Broadway", true},
	}
	for _, tc := range cases {
		got := s.Score(tc.declared, tc.candidate, tc.truncate)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 1.0)
	}
	assert.Equal(t, 0.0, s.Score("abc", "xyz", false))
	assert.Equal(t, 0.0, s.Score("", "", false))
}

func TestRatcliffObershelp_HandleAgainstPlaceName(t *testing.T) {
	s := RatcliffObershelp{}
	// handles carry no spaces, so truncation mode strips them from the place name
	score := s.Score("joespizza", "Joe's Pizza", true)
	assert.Greater(t, score, 0.75)
}

func TestJaroWinkler(t *testing.T) {
	s := JaroWinkler{}
	assert.InDelta(t, 1.0, s.Score("Lilia", "lilia", false), 1e-9)
	assert.Equal(t, 0.0, s.Score("", "lilia", false))
	assert.Greater(t, s.Score("Katz's Deli", "Katz's Delicatessen", true), 0.8)
}

func TestNew(t *testing.T) {
	assert.IsType(t, RatcliffObershelp{}, New(""))
	assert.IsType(t, RatcliffObershelp{}, New("ratcliff"))
	assert.IsType(t, JaroWinkler{}, New("JaroWinkler"))
}
