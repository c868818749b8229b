package indexer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/taberna/internal/common"
	"github.com/ternarybob/taberna/internal/interfaces"
	"github.com/ternarybob/taberna/internal/locks"
	"github.com/ternarybob/taberna/internal/models"
	"github.com/ternarybob/taberna/internal/services/embeddings"
	"github.com/ternarybob/taberna/internal/services/llm"
	"github.com/ternarybob/taberna/internal/vectorstore"
)

// fakeConnector returns scripted records for one data type.
type fakeConnector struct {
	dataType models.DataType
	records  []models.SourceRecord
	skipped  int
	err      error
	calls    int
}

func (f *fakeConnector) DataType() models.DataType { return f.dataType }

func (f *fakeConnector) Fetch(ctx context.Context, creds *models.StoreCredentials, sinceCursor string) (*interfaces.FetchResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &interfaces.FetchResult{Records: f.records, Skipped: f.skipped}, nil
}

// memSyncStates is an in-memory SyncStateStorage.
type memSyncStates struct {
	mu     sync.Mutex
	states map[string]*models.SyncState
}

func newMemSyncStates() *memSyncStates {
	return &memSyncStates{states: make(map[string]*models.SyncState)}
}

func (m *memSyncStates) SaveSyncState(ctx context.Context, state *models.SyncState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state.StoreID] = state
	return nil
}

func (m *memSyncStates) GetSyncState(ctx context.Context, storeID string) (*models.SyncState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[storeID], nil
}

func (m *memSyncStates) ListSyncStates(ctx context.Context) ([]*models.SyncState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.SyncState
	for _, state := range m.states {
		out = append(out, state)
	}
	return out, nil
}

func (m *memSyncStates) DeleteSyncState(ctx context.Context, storeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, storeID)
	return nil
}

func sourceRecord(dataType models.DataType, sourceID, text string) models.SourceRecord {
	return models.SourceRecord{
		SourceID:  sourceID,
		DataType:  dataType,
		Text:      text,
		UpdatedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

type fixture struct {
	service     interfaces.IndexerService
	connectors  map[models.DataType]interfaces.SourceConnector
	vectorStore *vectorstore.MemoryStore
	lockService interfaces.LockService
	syncStates  *memSyncStates
}

func newFixture(t *testing.T, overrides map[models.DataType]*fakeConnector) *fixture {
	t.Helper()

	connectors := make(map[models.DataType]interfaces.SourceConnector)
	for _, dataType := range models.AllDataTypes() {
		if fake, ok := overrides[dataType]; ok {
			connectors[dataType] = fake
		} else {
			connectors[dataType] = &fakeConnector{dataType: dataType}
		}
	}

	config := common.DefaultConfig()
	embedder := embeddings.NewService(llm.NewOfflineService(32), config, common.GetLogger())
	store := vectorstore.NewMemoryStore().(*vectorstore.MemoryStore)
	lockService := locks.NewManager(common.GetLogger())
	syncStates := newMemSyncStates()

	return &fixture{
		service:     NewService(connectors, embedder, store, lockService, syncStates, common.GetLogger()),
		connectors:  connectors,
		vectorStore: store,
		lockService: lockService,
		syncStates:  syncStates,
	}
}

func testCreds() *models.StoreCredentials {
	return &models.StoreCredentials{StoreID: "store-1", AccessToken: "t", PrimaryLocale: "en"}
}

func TestIndexStoreDataFailsFastWhenLocked(t *testing.T) {
	f := newFixture(t, nil)
	f.lockService.LockForDeletion("store-1", "store_deletion")

	_, err := f.service.IndexStoreData(context.Background(), testCreds())
	require.Error(t, err)

	var lockedErr *models.StoreLockedError
	require.ErrorAs(t, err, &lockedErr)
	assert.Equal(t, "store-1", lockedErr.StoreID)
	assert.Equal(t, "store_deletion", lockedErr.Reason)
}

func TestIndexStoreDataIndexesEveryType(t *testing.T) {
	f := newFixture(t, map[models.DataType]*fakeConnector{
		models.DataTypeProducts: {
			dataType: models.DataTypeProducts,
			records: []models.SourceRecord{
				sourceRecord(models.DataTypeProducts, "p1", "Blue shirt."),
				sourceRecord(models.DataTypeProducts, "p2", "Red hat."),
			},
			skipped: 1,
		},
		models.DataTypeOrders: {
			dataType: models.DataTypeOrders,
			records: []models.SourceRecord{
				sourceRecord(models.DataTypeOrders, "o1", "Order o1, paid."),
			},
		},
	})

	report, err := f.service.IndexStoreData(context.Background(), testCreds())
	require.NoError(t, err)
	require.Len(t, report.PerDataType, len(models.AllDataTypes()))

	assert.Equal(t, 2, report.PerDataType[models.DataTypeProducts].Indexed)
	assert.Equal(t, 1, report.PerDataType[models.DataTypeProducts].Skipped)
	assert.Equal(t, 1, report.PerDataType[models.DataTypeOrders].Indexed)
	assert.Equal(t, 3, report.TotalIndexed())

	assert.Equal(t, 2, f.vectorStore.Count("store-1", models.DataTypeProducts))
	assert.Equal(t, 1, f.vectorStore.Count("store-1", models.DataTypeOrders))

	state, err := f.syncStates.GetSyncState(context.Background(), "store-1")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.NotNil(t, state.LastIndexedAt)
	assert.Equal(t, 3, state.DocumentCount)
	assert.Empty(t, state.LastError)
}

func TestIndexStoreDataIsolatesDataTypeFailures(t *testing.T) {
	f := newFixture(t, map[models.DataType]*fakeConnector{
		models.DataTypeProducts: {
			dataType: models.DataTypeProducts,
			err:      errors.New("platform timeout"),
		},
		models.DataTypeOrders: {
			dataType: models.DataTypeOrders,
			records: []models.SourceRecord{
				sourceRecord(models.DataTypeOrders, "o1", "Order o1, paid."),
			},
		},
	})

	report, err := f.service.IndexStoreData(context.Background(), testCreds())
	require.NoError(t, err, "one failed data type must not abort the run")
	assert.Equal(t, 1, report.PerDataType[models.DataTypeOrders].Indexed)
	assert.Equal(t, 0, report.PerDataType[models.DataTypeProducts].Indexed)

	state, _ := f.syncStates.GetSyncState(context.Background(), "store-1")
	require.NotNil(t, state)
	assert.Contains(t, state.LastError, "platform timeout")
}

func TestIndexStoreDataAbortsOnRevokedCredentials(t *testing.T) {
	ordersFake := &fakeConnector{dataType: models.DataTypeOrders}
	f := newFixture(t, map[models.DataType]*fakeConnector{
		models.DataTypeStore: {
			dataType: models.DataTypeStore,
			err:      &models.ReconnectRequiredError{StoreID: "store-1"},
		},
		models.DataTypeOrders: ordersFake,
	})

	_, err := f.service.IndexStoreData(context.Background(), testCreds())
	require.Error(t, err)

	var reconnectErr *models.ReconnectRequiredError
	assert.ErrorAs(t, err, &reconnectErr)
	assert.Equal(t, 0, ordersFake.calls, "remaining connectors are not attempted")
}

func TestCleanupSyncRemovesOrphans(t *testing.T) {
	f := newFixture(t, map[models.DataType]*fakeConnector{
		models.DataTypeProducts: {
			dataType: models.DataTypeProducts,
			records: []models.SourceRecord{
				sourceRecord(models.DataTypeProducts, "p1", "Blue shirt."),
			},
		},
	})

	// Seed an orphan that a plain re-index would leave behind.
	_, err := f.vectorStore.Upsert(context.Background(), "store-1", models.DataTypeProducts, []*models.Document{
		{ID: "doc_orphan", StoreID: "store-1", DataType: models.DataTypeProducts, Embedding: []float32{1}},
	})
	require.NoError(t, err)

	report, err := f.service.CleanupSync(context.Background(), testCreds(), []models.DataType{models.DataTypeProducts})
	require.NoError(t, err)
	assert.Equal(t, 1, report.PerDataType[models.DataTypeProducts].Indexed)
	assert.Equal(t, 1, f.vectorStore.Count("store-1", models.DataTypeProducts), "orphan is gone, fresh doc remains")
}

func TestDeleteStoreDataRemovesEverythingAndUnlocks(t *testing.T) {
	f := newFixture(t, map[models.DataType]*fakeConnector{
		models.DataTypeProducts: {
			dataType: models.DataTypeProducts,
			records: []models.SourceRecord{
				sourceRecord(models.DataTypeProducts, "p1", "Blue shirt."),
			},
		},
	})

	_, err := f.service.IndexStoreData(context.Background(), testCreds())
	require.NoError(t, err)
	require.Equal(t, 1, f.vectorStore.Count("store-1", models.DataTypeProducts))

	err = f.service.DeleteStoreData(context.Background(), "store-1")
	require.NoError(t, err)

	assert.Equal(t, 0, f.vectorStore.Count("store-1", models.DataTypeProducts))
	assert.Nil(t, f.lockService.CheckLock("store-1"), "lock released after deletion")

	state, _ := f.syncStates.GetSyncState(context.Background(), "store-1")
	assert.Nil(t, state, "sync bookkeeping removed with the data")
}

// failingVectorStore fails deletes to prove the lock is still released.
type failingVectorStore struct {
	interfaces.VectorStore
}

func (f *failingVectorStore) DeleteAllNamespaces(ctx context.Context, storeID string) error {
	return errors.New("vector store unavailable")
}

func TestDeleteStoreDataUnlocksOnFailure(t *testing.T) {
	lockService := locks.NewManager(common.GetLogger())
	service := NewService(nil, nil, &failingVectorStore{VectorStore: vectorstore.NewMemoryStore()},
		lockService, newMemSyncStates(), common.GetLogger())

	err := service.DeleteStoreData(context.Background(), "store-1")
	require.Error(t, err)
	assert.Nil(t, lockService.CheckLock("store-1"), "lock must not leak on failure")
}
