package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/esimbridge/backend/internal/domain/integration"
	"github.com/esimbridge/backend/internal/infrastructure/scheduler"
)

// MockCatalogSyncer is a mock implementation of CatalogSyncer
type MockCatalogSyncer struct {
	mock.Mock
}

var _ CatalogSyncer = (*MockCatalogSyncer)(nil)

func (m *MockCatalogSyncer) SyncCatalog(ctx context.Context) (*integration.SyncResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.SyncResult), args.Error(1)
}

func syncResult(total, created, failed int) *integration.SyncResult {
	r := integration.NewSyncResult(total)
	r.CreatedCount = created
	for i := 0; i < failed; i++ {
		r.RecordFailure("P-fail", errors.New("boom"))
	}
	r.SkippedCount = total - created - failed
	r.Finish(time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC))
	return r
}

func setupSyncRouter(h *CatalogSyncHandler) *gin.Engine {
	r := gin.New()
	r.Any("/api/sync-products", h.HandleSyncProducts)
	return r
}

func TestCatalogSyncHandler_Statuses(t *testing.T) {
	tests := []struct {
		name       string
		result     *integration.SyncResult
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "success",
			result:     syncResult(3, 2, 0),
			wantStatus: http.StatusOK,
			wantBody:   MsgSyncCompleted,
		},
		{
			name:       "nothing to create",
			result:     syncResult(3, 0, 0),
			wantStatus: http.StatusOK,
			wantBody:   MsgSyncCompleted,
		},
		{
			name:       "partial",
			result:     syncResult(3, 2, 1),
			wantStatus: http.StatusInternalServerError,
			wantBody:   MsgSyncFailed,
		},
		{
			name:       "read failure",
			err:        integration.ErrPlatformUnavailable,
			wantStatus: http.StatusInternalServerError,
			wantBody:   MsgSyncFailed,
		},
		{
			name:       "already running",
			err:        scheduler.ErrSyncAlreadyRunning,
			wantStatus: http.StatusConflict,
			wantBody:   MsgSyncAlreadyRunning,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			syncer := new(MockCatalogSyncer)
			if tt.result != nil {
				syncer.On("SyncCatalog", mock.Anything).Return(tt.result, nil)
			} else {
				syncer.On("SyncCatalog", mock.Anything).Return(nil, tt.err)
			}

			h := NewCatalogSyncHandler(syncer, "", zap.NewNop())
			w := httptest.NewRecorder()
			setupSyncRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/sync-products", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantBody, w.Body.String())
			syncer.AssertNumberOfCalls(t, "SyncCatalog", 1)
		})
	}
}

func TestCatalogSyncHandler_Methods(t *testing.T) {
	syncer := new(MockCatalogSyncer)
	syncer.On("SyncCatalog", mock.Anything).Return(syncResult(1, 1, 0), nil)
	router := setupSyncRouter(NewCatalogSyncHandler(syncer, "", nil))

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(method, "/api/sync-products", nil))
		assert.Equal(t, http.StatusOK, w.Code, method)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/sync-products", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "GET, POST", w.Header().Get("Allow"))
	syncer.AssertNumberOfCalls(t, "SyncCatalog", 2)
}

func TestCatalogSyncHandler_CronSecret(t *testing.T) {
	tests := []struct {
		name          string
		authorization string
		wantStatus    int
	}{
		{name: "valid bearer", authorization: "Bearer cron-s3cret", wantStatus: http.StatusOK},
		{name: "missing header", authorization: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong secret", authorization: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", authorization: "Basic cron-s3cret", wantStatus: http.StatusUnauthorized},
		{name: "raw secret", authorization: "cron-s3cret", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			syncer := new(MockCatalogSyncer)
			syncer.On("SyncCatalog", mock.Anything).Return(syncResult(1, 1, 0), nil)
			h := NewCatalogSyncHandler(syncer, "cron-s3cret", zap.NewNop())

			req := httptest.NewRequest(http.MethodGet, "/api/sync-products", nil)
			if tt.authorization != "" {
				req.Header.Set("Authorization", tt.authorization)
			}
			w := httptest.NewRecorder()
			setupSyncRouter(h).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Equal(t, MsgUnauthorized, w.Body.String())
				syncer.AssertNotCalled(t, "SyncCatalog", mock.Anything)
			}
		})
	}
}
