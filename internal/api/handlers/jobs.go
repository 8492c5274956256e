package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/coffeetech/transactions/internal/access"
	"github.com/coffeetech/transactions/internal/api/middleware"
	"github.com/coffeetech/transactions/internal/domain"
	"github.com/coffeetech/transactions/internal/jobs"
)

// Authorizer checks a user's permission on a farm.
type Authorizer interface {
	Authorize(ctx context.Context, user *domain.UserInfo, farmID int64, permission string) error
}

// JobsHandler exposes archive jobs to users allowed to read the farm's reports.
type JobsHandler struct {
	store jobs.JobStore
	gate  Authorizer
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, gate Authorizer, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		gate:  gate,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}. A job on a farm the caller cannot read answers 404.
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	log := requestLog(r, h.log)

	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "job not found")
			return
		}
		log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusInternalServerError, "failed to get job")
		return
	}

	if err := h.gate.Authorize(r.Context(), user, job.FarmID, access.PermissionReadFinancialReport); err != nil {
		if domain.KindOf(err) != domain.KindForbidden {
			middleware.WriteServiceError(w, log, err)
			return
		}
		log.Warn().Str("job_id", jobID).Int64("farm_id", job.FarmID).Msg("Job requested without access to its farm")
		middleware.WriteError(w, http.StatusNotFound, "job not found")
		return
	}

	middleware.WriteSuccess(w, http.StatusOK, "job retrieved", job)
}

// ListJobs handles GET /api/jobs?farm_id=... Listing is always scoped to one farm.
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	log := requestLog(r, h.log)

	query := r.URL.Query()
	farmStr := query.Get("farm_id")
	if farmStr == "" {
		middleware.WriteError(w, http.StatusBadRequest, "farm_id is required")
		return
	}
	farmID, ok := parseID(farmStr)
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "invalid farm_id")
		return
	}

	if err := h.gate.Authorize(r.Context(), user, farmID, access.PermissionReadFinancialReport); err != nil {
		middleware.WriteServiceError(w, log, err)
		return
	}

	filter := jobs.JobFilter{
		FarmID: farmID,
		Status: jobs.JobStatus(query.Get("status")),
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}

	middleware.WriteSuccess(w, http.StatusOK, "jobs retrieved", map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
