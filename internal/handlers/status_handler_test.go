package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/taberna/internal/common"
	"github.com/ternarybob/taberna/internal/locks"
	"github.com/ternarybob/taberna/internal/models"
)

type fakeStatusService struct {
	report *models.SyncStatusReport
	err    error
}

func (f *fakeStatusService) GetSyncStatus(ctx context.Context, storeID string) (*models.SyncStatusReport, error) {
	return f.report, f.err
}

func TestGetSyncStatusHandler(t *testing.T) {
	service := &fakeStatusService{report: &models.SyncStatusReport{
		StoreID:         "store-1",
		SyncStatus:      models.SyncStatusNeverSynced,
		Recommendations: []string{"run a full index to build the knowledge base"},
	}}
	handler := NewStatusHandler(service, locks.NewManager(common.GetLogger()), common.GetLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/stores/store-1/status", nil)
	rec := httptest.NewRecorder()
	handler.GetSyncStatusHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var report models.SyncStatusReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, models.SyncStatusNeverSynced, report.SyncStatus)
	assert.NotEmpty(t, report.Recommendations)
}

func TestGetStoreLockHandler(t *testing.T) {
	lockService := locks.NewManager(common.GetLogger())
	handler := NewStatusHandler(&fakeStatusService{}, lockService, common.GetLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/stores/store-1/lock", nil)
	rec := httptest.NewRecorder()
	handler.GetStoreLockHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["locked"])

	lockService.LockForDeletion("store-1", "store_deletion")

	rec = httptest.NewRecorder()
	handler.GetStoreLockHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["locked"])
}

func TestGetLocksHandlerListsLiveLocks(t *testing.T) {
	lockService := locks.NewManager(common.GetLogger())
	lockService.LockForDeletion("store-1", "store_deletion")
	lockService.LockForDeletion("store-2", "plan_downgrade")
	handler := NewStatusHandler(&fakeStatusService{}, lockService, common.GetLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/locks", nil)
	rec := httptest.NewRecorder()
	handler.GetLocksHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(2), body["count"])
}
