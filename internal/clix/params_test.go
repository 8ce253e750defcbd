package clix

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePagination(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("limit", 0, "")
	flags.Int("offset", 0, "")
	require.NoError(t, flags.Parse([]string{"--limit=-3", "--offset=-1"}))

	p, err := ParsePagination(flags)
	require.NoError(t, err)
	assert.Equal(t, PaginationParams{Limit: 20, Offset: 0}, p)

	require.NoError(t, flags.Parse([]string{"--limit", "5", "--offset", "10"}))
	p, err = ParsePagination(flags)
	require.NoError(t, err)
	assert.Equal(t, PaginationParams{Limit: 5, Offset: 10}, p)
}

func TestParseHandles(t *testing.T) {
	got := ParseHandles([]string{"@joespizza,lilia", " @lilia ", "", "via_carota"})
	assert.Equal(t, []string{"joespizza", "lilia", "via_carota"}, got)
	assert.Empty(t, ParseHandles(nil))
}
