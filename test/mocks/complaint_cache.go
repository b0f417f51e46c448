// Package mocks holds in-memory test doubles shared across packages.
package mocks

import (
	"context"
	"errors"
	"sync"

	"github.com/campusvoice/campus-voice/internal/models"
)

// ErrMockMiss mirrors the cache miss sentinel without importing the
// real cache package.
var ErrMockMiss = errors.New("mock cache: key not found")

// MockComplaintCache is an in-memory stand-in for the Redis complaint
// cache. It records invalidations so tests can assert on them.
type MockComplaintCache struct {
	mu          sync.RWMutex
	complaints  map[string]*models.Complaint
	lists       map[string][]models.Complaint
	Invalidated []string
}

// NewMockComplaintCache creates an empty mock cache.
func NewMockComplaintCache() *MockComplaintCache {
	return &MockComplaintCache{
		complaints: make(map[string]*models.Complaint),
		lists:      make(map[string][]models.Complaint),
	}
}

// GetComplaint retrieves a cached complaint.
func (m *MockComplaintCache) GetComplaint(ctx context.Context, id string) (*models.Complaint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	complaint, ok := m.complaints[id]
	if !ok {
		return nil, ErrMockMiss
	}
	return complaint, nil
}

// SetComplaint caches a complaint under its ID.
func (m *MockComplaintCache) SetComplaint(ctx context.Context, complaint *models.Complaint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.complaints[complaint.ID] = complaint
	return nil
}

// GetList retrieves a cached listing.
func (m *MockComplaintCache) GetList(ctx context.Context, sortBy string) ([]models.Complaint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list, ok := m.lists[sortBy]
	if !ok {
		return nil, ErrMockMiss
	}
	return list, nil
}

// SetList caches a listing for the given sort order.
func (m *MockComplaintCache) SetList(ctx context.Context, sortBy string, complaints []models.Complaint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lists[sortBy] = complaints
	return nil
}

// Invalidate drops the given complaints and all listings, recording
// the IDs for later assertions.
func (m *MockComplaintCache) Invalidate(ctx context.Context, complaintIDs ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range complaintIDs {
		delete(m.complaints, id)
		m.Invalidated = append(m.Invalidated, id)
	}
	m.lists = make(map[string][]models.Complaint)
	return nil
}

// InvalidatedIDs returns a copy of the recorded invalidations.
func (m *MockComplaintCache) InvalidatedIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, len(m.Invalidated))
	copy(out, m.Invalidated)
	return out
}
