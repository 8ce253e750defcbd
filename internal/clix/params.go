package clix

import (
	"strings"

	"github.com/spf13/pflag"
)

type PaginationParams struct {
	Limit  int
	Offset int
}

func ParsePagination(flags *pflag.FlagSet) (PaginationParams, error) {
	limit, _ := flags.GetInt("limit")
	offset, _ := flags.GetInt("offset")
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return PaginationParams{Limit: limit, Offset: offset}, nil
}

// ParseHandles accepts handles as separate arguments or comma separated,
// with or without the leading '@'. Duplicates are dropped, order is kept.
func ParseHandles(args []string) []string {
	seen := map[string]bool{}
	var handles []string
	for _, arg := range args {
		for _, raw := range strings.Split(arg, ",") {
			h := strings.TrimPrefix(strings.TrimSpace(raw), "@")
			if h == "" || seen[h] {
				continue
			}
			seen[h] = true
			handles = append(handles, h)
		}
	}
	return handles
}
