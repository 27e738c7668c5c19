package storage

import (
	"context"
	"fmt"
	"sync"

	"imagebatch/internal/models"
)

// Memory keeps everything in process. It is used when no database is
// configured.
type Memory struct {
	mu       sync.RWMutex
	requests map[string]models.RequestStatus
	images   map[string][]models.ImageResult
}

func NewMemory() *Memory {
	return &Memory{
		requests: make(map[string]models.RequestStatus),
		images:   make(map[string][]models.ImageResult),
	}
}

func (m *Memory) CreateRequest(_ context.Context, id string, status models.RequestStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.requests[id]; ok {
		return fmt.Errorf("storage.CreateRequest: request %s already exists", id)
	}
	m.requests[id] = status
	return nil
}

func (m *Memory) SetRequestStatus(_ context.Context, id string, status models.RequestStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.requests[id]; !ok {
		return fmt.Errorf("storage.SetRequestStatus: %w", models.ErrNotFound)
	}
	m.requests[id] = status
	return nil
}

func (m *Memory) InsertImageResult(_ context.Context, res models.ImageResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.requests[res.RequestID]; !ok {
		return fmt.Errorf("storage.InsertImageResult: %w", models.ErrNotFound)
	}
	m.images[res.RequestID] = append(m.images[res.RequestID], res)
	return nil
}

func (m *Memory) GetRequestStatus(_ context.Context, id string) (models.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status, ok := m.requests[id]
	if !ok {
		return models.Request{}, fmt.Errorf("storage.GetRequestStatus: %w", models.ErrNotFound)
	}
	return models.Request{ID: id, Status: status}, nil
}

func (m *Memory) GetImageResults(_ context.Context, requestID string) ([]models.ImageResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]models.ImageResult(nil), m.images[requestID]...), nil
}

func (m *Memory) Ping(context.Context) error {
	return nil
}

func (m *Memory) Close() {}
