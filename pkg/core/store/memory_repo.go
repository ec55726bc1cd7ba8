package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"dpr_engine/pkg/core/report"
)

// MemoryRepo keeps reports in process memory. Reports are stored as JSON so
// callers never share state with the repository.
type MemoryRepo struct {
	mu      sync.RWMutex
	reports map[string][]byte
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{reports: make(map[string][]byte)}
}

func (m *MemoryRepo) Save(_ context.Context, rep *report.ProjectReport) error {
	data, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[rep.ID] = data
	return nil
}

func (m *MemoryRepo) Load(_ context.Context, id string) (*report.ProjectReport, error) {
	m.mu.RLock()
	data, ok := m.reports[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return decodeReport(data)
}

func (m *MemoryRepo) ListByUser(_ context.Context, userID string) ([]*report.ProjectReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*report.ProjectReport
	for _, data := range m.reports {
		rep, err := decodeReport(data)
		if err != nil {
			return nil, err
		}
		if rep.UserID == userID {
			out = append(out, rep)
		}
	}
	sortNewestFirst(out)
	return out, nil
}
