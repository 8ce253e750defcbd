package util

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var charReplacementMap = map[string]string{
	"\u2018": "'", "\u2019": "'", "\u201C": "\"", "\u201D": "\"",
	"\u2013": "-", "\u2014": "--", "\u2026": "...", "\u00a0": " ",
	"\u0096": "-", "\u0097": "--", "\u0091": "'", "\u0092": "'",
	"\u0093": "\"", "\u0094": "\"",
}

var multiSpaceRegex = regexp.MustCompile(` {2,}`)

// NormalizeText replaces typographic punctuation with its ASCII form and drops
// invalid UTF-8, so names typed on phones compare equal to names from the
// places API.
func NormalizeText(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	for bad, good := range charReplacementMap {
		s = strings.ReplaceAll(s, bad, good)
	}
	return s
}

// CollapseSpaces joins parts with single spaces, squeezing runs of spaces left
// by empty parts.
func CollapseSpaces(parts ...string) string {
	joined := strings.Join(parts, " ")
	joined = multiSpaceRegex.ReplaceAllString(joined, " ")
	return strings.TrimSpace(joined)
}
