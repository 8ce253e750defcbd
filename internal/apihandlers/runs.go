package apihandlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"postmatch/internal/store"
)

func (h *APIHandler) ListRunsHandler(c *gin.Context) {
	limit, offset, err := parsePagination(c)
	if err != nil {
		BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}
	if h.deps.Runs == nil {
		Unavailable(c, "run history is not configured")
		return
	}

	runs, err := h.deps.Runs.ListRuns(c.Request.Context(), limit, offset)
	if err != nil {
		Internal(c, fmt.Sprintf("ListRunsHandler: failed to list runs: %v", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": runs})
}

func (h *APIHandler) GetRunHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		BadRequest(c, "Invalid run ID")
		return
	}
	if h.deps.Runs == nil {
		Unavailable(c, "run history is not configured")
		return
	}

	run, err := h.deps.Runs.GetRun(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFound(c, "Run not found")
			return
		}
		Internal(c, fmt.Sprintf("GetRunHandler: failed to get run: %v", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": run})
}

func parsePagination(c *gin.Context) (int, int, error) {
	limit, offset := 20, 0
	if l := c.Query("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			return 0, 0, fmt.Errorf("invalid limit: %s", l)
		}
		limit = parsed
	}
	if o := c.Query("offset"); o != "" {
		parsed, err := strconv.Atoi(o)
		if err != nil || parsed < 0 {
			return 0, 0, fmt.Errorf("invalid offset: %s", o)
		}
		offset = parsed
	}
	return limit, offset, nil
}
