package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	appintegration "github.com/esimbridge/backend/internal/application/integration"
	"github.com/esimbridge/backend/internal/domain/integration"
	"github.com/esimbridge/backend/internal/infrastructure/scheduler"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CatalogSyncer runs one catalog sync
type CatalogSyncer interface {
	SyncCatalog(ctx context.Context) (*integration.SyncResult, error)
}

// CatalogSyncHandler exposes the catalog sync as a cron-callable endpoint
type CatalogSyncHandler struct {
	BaseHandler
	syncer     CatalogSyncer
	cronSecret string
	logger     *zap.Logger
}

// NewCatalogSyncHandler creates a new CatalogSyncHandler.
// An empty cronSecret leaves the endpoint unauthenticated.
func NewCatalogSyncHandler(syncer CatalogSyncer, cronSecret string, log *zap.Logger) *CatalogSyncHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &CatalogSyncHandler{
		syncer:     syncer,
		cronSecret: cronSecret,
		logger:     log,
	}
}

// HandleSyncProducts godoc
//
//	@Summary		Sync provider catalog
//	@Description	Create store products for provider products that are not listed yet
//	@Tags			catalog
//	@Produce		plain
//	@Param			Authorization	header		string	false	"Bearer <CRON_SECRET>"
//	@Success		200				{string}	string	"Product sync completed."
//	@Failure		401				{string}	string	"Unauthorized"
//	@Failure		409				{string}	string	"Product sync already in progress."
//	@Failure		500				{string}	string	"Product sync failed."
//	@Router			/api/sync-products [post]
func (h *CatalogSyncHandler) HandleSyncProducts(c *gin.Context) {
	if !allowsMethod(c, http.MethodGet, http.MethodPost) {
		h.MethodNotAllowed(c, http.MethodGet, http.MethodPost)
		return
	}
	log := h.requestLogger(c, h.logger)

	if !h.authorized(c) {
		log.Warn("Catalog sync request rejected")
		h.Unauthorized(c)
		return
	}

	result, err := h.syncer.SyncCatalog(c.Request.Context())
	switch {
	case errors.Is(err, scheduler.ErrSyncAlreadyRunning):
		log.Info("Catalog sync already in progress")
		h.Text(c, http.StatusConflict, MsgSyncAlreadyRunning)
		return
	case err != nil:
		log.Error("Catalog sync failed", zap.Error(err))
		h.Text(c, http.StatusInternalServerError, MsgSyncFailed)
		return
	}

	resp := appintegration.ToSyncResultResponse(result)
	fields := []zap.Field{
		zap.String("status", resp.Status.String()),
		zap.Int("total", resp.TotalCount),
		zap.Int("created", resp.CreatedCount),
		zap.Int("skipped", resp.SkippedCount),
		zap.Int("failed", resp.FailedCount),
	}
	if result.Status != integration.SyncStatusSuccess {
		log.Error("Catalog sync finished with failures", append(fields, zap.Any("failed_items", resp.FailedItems))...)
		h.Text(c, http.StatusInternalServerError, MsgSyncFailed)
		return
	}
	log.Info("Catalog sync completed", fields...)
	h.Text(c, http.StatusOK, MsgSyncCompleted)
}

func (h *CatalogSyncHandler) authorized(c *gin.Context) bool {
	if h.cronSecret == "" {
		return true
	}
	token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.cronSecret)) == 1
}
