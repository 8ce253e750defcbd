package apihandlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"postmatch/internal/models"
	"postmatch/internal/store"
	"postmatch/internal/worker"
)

// Deps are the collaborators of the API handlers.
type Deps struct {
	Pipelines worker.Pipelines
	Users     worker.Users
	Runs      store.RunStore
	// Jobs is set when pipeline requests are queued instead of run inline.
	Jobs store.JobClient
}

type APIHandler struct {
	deps Deps
}

func NewAPIHandler(deps Deps) *APIHandler {
	return &APIHandler{deps: deps}
}

// PipelineRequest is the body shared by the ingestion endpoints.
type PipelineRequest struct {
	InstagramUsername string `json:"instagramUsername"`
	FonciiUsername    string `json:"fonciiUsername"`
	PostAmount        int    `json:"postAmount"`
}

// JobAccepted is returned for queued runs.
type JobAccepted struct {
	JobID string `json:"job_id"`
}

func (h *APIHandler) ClassifyAndIngestHandler(c *gin.Context) {
	h.handlePipeline(c, models.RunModeClassifyIngest, true)
}

func (h *APIHandler) IngestHandler(c *gin.Context) {
	h.handlePipeline(c, models.RunModeIngest, true)
}

func (h *APIHandler) NewUserClassifyIngestHandler(c *gin.Context) {
	h.handlePipeline(c, models.RunModeNewUserClassifyIngest, false)
}

func (h *APIHandler) NewUserIngestHandler(c *gin.Context) {
	h.handlePipeline(c, models.RunModeNewUserIngest, false)
}

func (h *APIHandler) IngestNewUserHandler(c *gin.Context) {
	var req PipelineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	if req.InstagramUsername == "" {
		BadRequest(c, "instagramUsername is required")
		return
	}
	if h.deps.Users == nil {
		Unavailable(c, "user ingestion is not configured")
		return
	}

	profile, err := h.deps.Users.IngestNewUser(c.Request.Context(), req.InstagramUsername)
	if err != nil {
		log.WithField("username", req.InstagramUsername).Errorf("API IngestNewUser failed: %v", err)
		pipelineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": profile})
}

// handlePipeline validates the body and either queues the run or executes it
// inline. withFoncii marks endpoints that target an existing map owner.
func (h *APIHandler) handlePipeline(c *gin.Context, mode string, withFoncii bool) {
	req, err := parsePipelineRequest(c, withFoncii)
	if err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	payload := store.PipelineJobPayload{
		Mode:              mode,
		InstagramUsername: req.InstagramUsername,
		FonciiUsername:    req.FonciiUsername,
		PostAmount:        req.PostAmount,
	}

	if h.deps.Jobs != nil {
		id, err := h.deps.Jobs.EnqueuePipelineJob(c.Request.Context(), payload)
		if err != nil {
			Internal(c, fmt.Sprintf("failed to enqueue pipeline job: %v", err))
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"data": JobAccepted{JobID: id}})
		return
	}

	if !h.canRun(mode) {
		Unavailable(c, "pipeline is not configured")
		return
	}
	res, err := worker.Run(c.Request.Context(), worker.PipelineDeps{
		Pipelines: h.deps.Pipelines,
		Users:     h.deps.Users,
		Runs:      h.deps.Runs,
	}, payload)
	if err != nil {
		log.WithFields(log.Fields{"mode": mode, "username": req.InstagramUsername}).Errorf("API pipeline run failed: %v", err)
		pipelineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": res})
}

// canRun reports whether the dependency mode runs on is configured.
func (h *APIHandler) canRun(mode string) bool {
	switch mode {
	case models.RunModeNewUserClassifyIngest, models.RunModeNewUserIngest:
		return h.deps.Users != nil
	default:
		return h.deps.Pipelines != nil
	}
}

func parsePipelineRequest(c *gin.Context, withFoncii bool) (PipelineRequest, error) {
	var req PipelineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return req, err
	}
	if req.InstagramUsername == "" {
		return req, errors.New("instagramUsername is required")
	}
	if withFoncii && req.FonciiUsername == "" {
		return req, errors.New("fonciiUsername is required")
	}
	if req.PostAmount <= 0 {
		return req, errors.New("postAmount must be a positive integer")
	}
	return req, nil
}

// pipelineError reports a failed run. Like validation failures, failed runs
// are answered with 400.
func pipelineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		BadRequest(c, err.Error())
	case errors.Is(err, models.ErrUserNotIngested):
		JSONError(c, http.StatusBadRequest, "user_not_ingested", err.Error())
	default:
		JSONError(c, http.StatusBadRequest, "pipeline_failed", err.Error())
	}
}
