package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/taberna/internal/common"
	"github.com/ternarybob/taberna/internal/models"
)

type fakeJobService struct {
	jobID        string
	job          *models.SyncJob
	err          error
	lastStoreID  string
	lastDataSet  []models.DataType
	submittedOps []string
}

func (f *fakeJobService) SubmitIndexJob(ctx context.Context, storeID string) (string, error) {
	f.lastStoreID = storeID
	f.submittedOps = append(f.submittedOps, "index")
	return f.jobID, f.err
}

func (f *fakeJobService) SubmitCleanupJob(ctx context.Context, storeID string, dataTypes []models.DataType) (string, error) {
	f.lastStoreID = storeID
	f.lastDataSet = dataTypes
	f.submittedOps = append(f.submittedOps, "cleanup")
	return f.jobID, f.err
}

func (f *fakeJobService) SubmitDeleteJob(ctx context.Context, storeID string) (string, error) {
	f.lastStoreID = storeID
	f.submittedOps = append(f.submittedOps, "delete")
	return f.jobID, f.err
}

func (f *fakeJobService) GetJob(ctx context.Context, jobID string) (*models.SyncJob, error) {
	return f.job, f.err
}

func TestSubmitIndexReturnsAccepted(t *testing.T) {
	service := &fakeJobService{jobID: "job_full_index_store-1_aaaa0001"}
	handler := NewJobHandler(service, common.GetLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/stores/store-1/index", nil)
	rec := httptest.NewRecorder()
	handler.SubmitIndexHandler(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "job_full_index_store-1_aaaa0001", body["job_id"])
	assert.Equal(t, "store-1", service.lastStoreID)
}

func TestSubmitCleanupPassesDataTypes(t *testing.T) {
	service := &fakeJobService{jobID: "job_cleanup_sync_store-1_aaaa0001"}
	handler := NewJobHandler(service, common.GetLogger())

	payload, _ := json.Marshal(CleanupRequest{DataTypes: []models.DataType{models.DataTypeProducts}})
	req := httptest.NewRequest(http.MethodPost, "/api/stores/store-1/cleanup", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.SubmitCleanupHandler(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []models.DataType{models.DataTypeProducts}, service.lastDataSet)
}

func TestSubmitCleanupAllowsEmptyBody(t *testing.T) {
	service := &fakeJobService{jobID: "job_cleanup_sync_store-1_aaaa0001"}
	handler := NewJobHandler(service, common.GetLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/stores/store-1/cleanup", nil)
	rec := httptest.NewRecorder()
	handler.SubmitCleanupHandler(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Empty(t, service.lastDataSet)
}

func TestSubmitCleanupRejectsUnknownDataType(t *testing.T) {
	handler := NewJobHandler(&fakeJobService{}, common.GetLogger())

	payload := []byte(`{"data_types":["invoices"]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/stores/store-1/cleanup", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.SubmitCleanupHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitDeleteReturnsAccepted(t *testing.T) {
	service := &fakeJobService{jobID: "job_delete_store-1_aaaa0001"}
	handler := NewJobHandler(service, common.GetLogger())

	req := httptest.NewRequest(http.MethodDelete, "/api/stores/store-1", nil)
	rec := httptest.NewRecorder()
	handler.SubmitDeleteHandler(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"delete"}, service.submittedOps)
}

func TestSubmitIndexFailureReturns500(t *testing.T) {
	service := &fakeJobService{err: errors.New("queue closed")}
	handler := NewJobHandler(service, common.GetLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/stores/store-1/index", nil)
	rec := httptest.NewRecorder()
	handler.SubmitIndexHandler(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetJobReturnsJob(t *testing.T) {
	job := models.NewSyncJob(models.JobTypeFullIndex, "store-1", "aaaa0001", 3)
	handler := NewJobHandler(&fakeJobService{job: job}, common.GetLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/"+job.JobID, nil)
	rec := httptest.NewRecorder()
	handler.GetJobHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got models.SyncJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, job.JobID, got.JobID)
	assert.Equal(t, models.JobStatusPending, got.Status)
}

func TestGetJobUnknownReturns404(t *testing.T) {
	handler := NewJobHandler(&fakeJobService{}, common.GetLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/job_unknown", nil)
	rec := httptest.NewRecorder()
	handler.GetJobHandler(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
