// Package similarity scores how close a declared venue name is to a name
// returned by a places API.
package similarity

import (
	"strings"

	"github.com/antzucaro/matchr"
	"github.com/pmezard/go-difflib/difflib"

	"postmatch/internal/util"
)

const (
	AlgorithmRatcliffObershelp = "ratcliff"
	AlgorithmJaroWinkler       = "jarowinkler"
)

// Scorer compares a declared name against a candidate name. In truncate mode
// the candidate is stripped of spaces and cut to the declared name's length
// first, which tolerates descriptive suffixes like "Delicatessen & Bar".
type Scorer interface {
	Score(declared, candidate string, truncate bool) float64
}

// New returns the scorer for the configured algorithm, defaulting to
// Ratcliff-Obershelp.
func New(algorithm string) Scorer {
	if strings.EqualFold(algorithm, AlgorithmJaroWinkler) {
		return JaroWinkler{}
	}
	return RatcliffObershelp{}
}

// RatcliffObershelp is the longest-matching-block ratio 2*M/T over characters.
type RatcliffObershelp struct{}

func (RatcliffObershelp) Score(declared, candidate string, truncate bool) float64 {
	a, b := prepare(declared, candidate, truncate)
	// difflib rates two empty strings 1.0; nothing is not a match here
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	m := difflib.NewMatcher(chars(a), chars(b))
	return clamp(m.Ratio())
}

// JaroWinkler scores with the Jaro-Winkler distance.
type JaroWinkler struct{}

func (JaroWinkler) Score(declared, candidate string, truncate bool) float64 {
	a, b := prepare(declared, candidate, truncate)
	if a == "" || b == "" {
		return 0
	}
	return clamp(matchr.JaroWinkler(a, b, false))
}

func prepare(declared, candidate string, truncate bool) (string, string) {
	a := strings.ToLower(util.NormalizeText(declared))
	b := strings.ToLower(util.NormalizeText(candidate))
	if truncate {
		b = strings.ReplaceAll(b, " ", "")
		if n := len([]rune(a)); len([]rune(b)) > n {
			b = string([]rune(b)[:n])
		}
	}
	return a, b
}

func chars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
