package iocache

import (
	"time"

	"github.com/huangsam/cistat/internal/contract"
	"github.com/huangsam/cistat/schema"
	"github.com/stretchr/testify/mock"
)

// MockCacheManager is a mock implementation of CacheManager for testing.
type MockCacheManager struct {
	mock.Mock
}

var _ contract.CacheManager = &MockCacheManager{} // Compile-time check

// GetEventStore implements the CacheManager interface.
func (m *MockCacheManager) GetEventStore() contract.CacheStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.CacheStore)
	return store
}

// GetHistoryStore implements the CacheManager interface.
func (m *MockCacheManager) GetHistoryStore() contract.HistoryStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.HistoryStore)
	return store
}

// MockCacheStore is a mock implementation of CacheStore for testing.
type MockCacheStore struct {
	mock.Mock
}

var _ contract.CacheStore = &MockCacheStore{} // Compile-time check

// Get implements the CacheStore interface.
func (m *MockCacheStore) Get(key string) ([]byte, int, int64, error) {
	args := m.Called(key)
	value, _ := args.Get(0).([]byte)
	ts, _ := args.Get(2).(int64)
	return value, args.Int(1), ts, args.Error(3)
}

// Set implements the CacheStore interface.
func (m *MockCacheStore) Set(key string, data []byte, version int, ts int64) error {
	args := m.Called(key, data, version, ts)
	return args.Error(0)
}

// Close implements the CacheStore interface.
func (m *MockCacheStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// GetStatus implements the CacheStore interface.
func (m *MockCacheStore) GetStatus() (schema.CacheStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.CacheStatus), args.Error(1)
}

// MockHistoryStore is a mock implementation of HistoryStore for testing.
type MockHistoryStore struct {
	mock.Mock
}

var _ contract.HistoryStore = &MockHistoryStore{} // Compile-time check

// BeginReport implements the HistoryStore interface.
func (m *MockHistoryStore) BeginReport(startTime time.Time, source, scope string, configParams map[string]any) (string, error) {
	args := m.Called(startTime, source, scope, configParams)
	return args.String(0), args.Error(1)
}

// EndReport implements the HistoryStore interface.
func (m *MockHistoryStore) EndReport(reportID string, endTime time.Time, totalGroups int) error {
	args := m.Called(reportID, endTime, totalGroups)
	return args.Error(0)
}

// RecordGroupSummary implements the HistoryStore interface.
func (m *MockHistoryStore) RecordGroupSummary(reportID, section, groupKey string, summary schema.StatSummary) error {
	args := m.Called(reportID, section, groupKey, summary)
	return args.Error(0)
}

// GetStatus implements the HistoryStore interface.
func (m *MockHistoryStore) GetStatus() (schema.HistoryStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.HistoryStatus), args.Error(1)
}

// GetAllReportRuns implements the HistoryStore interface.
func (m *MockHistoryStore) GetAllReportRuns() ([]schema.ReportRunRecord, error) {
	args := m.Called()
	runs, _ := args.Get(0).([]schema.ReportRunRecord)
	return runs, args.Error(1)
}

// GetAllGroupSummaries implements the HistoryStore interface.
func (m *MockHistoryStore) GetAllGroupSummaries() ([]schema.GroupSummaryRecord, error) {
	args := m.Called()
	summaries, _ := args.Get(0).([]schema.GroupSummaryRecord)
	return summaries, args.Error(1)
}

// Close implements the HistoryStore interface.
func (m *MockHistoryStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
