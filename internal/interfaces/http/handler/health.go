package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/esimbridge/backend/internal/infrastructure/scheduler"
)

// SchedulerStatus exposes the state of the catalog sync scheduler
type SchedulerStatus interface {
	IsRunning() bool
	NextRun() time.Time
	GetJobHistory(limit int) []*scheduler.CatalogSyncJob
}

// HealthHandler answers liveness checks
type HealthHandler struct {
	BaseHandler
	version   string
	startTime time.Time
	scheduler SchedulerStatus
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{
		version:   version,
		startTime: time.Now(),
	}
}

// SetScheduler adds the catalog sync scheduler state to the health payload
func (h *HealthHandler) SetScheduler(s SchedulerStatus) {
	h.scheduler = s
}

// HealthResponse is the liveness payload
type HealthResponse struct {
	Status      string             `json:"status" example:"ok"`
	Version     string             `json:"version" example:"1.0.0"`
	Uptime      string             `json:"uptime" example:"1h30m45s"`
	CatalogSync *CatalogSyncStatus `json:"catalog_sync,omitempty"`
}

// CatalogSyncStatus describes the scheduled catalog sync
type CatalogSyncStatus struct {
	Scheduled bool         `json:"scheduled"`
	NextRun   *time.Time   `json:"next_run,omitempty"`
	LastRun   *LastSyncRun `json:"last_run,omitempty"`
}

// LastSyncRun summarizes the most recent catalog sync job. Error text is not
// exposed here; it is in the job log.
type LastSyncRun struct {
	Trigger     string     `json:"trigger" example:"cron"`
	Status      string     `json:"status" example:"SUCCESS"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Created     int        `json:"created"`
	Failed      int        `json:"failed"`
}

// Health godoc
//
//	@Summary	Liveness check
//	@Tags		system
//	@Produce	json
//	@Success	200	{object}	HealthResponse
//	@Router		/health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:      "ok",
		Version:     h.version,
		Uptime:      time.Since(h.startTime).Round(time.Second).String(),
		CatalogSync: h.catalogSyncStatus(),
	})
}

func (h *HealthHandler) catalogSyncStatus() *CatalogSyncStatus {
	if h.scheduler == nil {
		return nil
	}
	status := &CatalogSyncStatus{Scheduled: h.scheduler.IsRunning()}
	if next := h.scheduler.NextRun(); status.Scheduled && !next.IsZero() {
		status.NextRun = &next
	}
	if jobs := h.scheduler.GetJobHistory(1); len(jobs) > 0 {
		job := jobs[0]
		status.LastRun = &LastSyncRun{
			Trigger:     string(job.Trigger),
			Status:      string(job.Status),
			StartedAt:   job.StartedAt,
			CompletedAt: job.CompletedAt,
			Created:     job.CreatedCount,
			Failed:      job.FailedCount,
		}
	}
	return status
}
