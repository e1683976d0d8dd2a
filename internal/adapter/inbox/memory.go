package inbox

import (
	"context"
	"sync"
	"time"

	"github.com/dayanaadylkhanova/powgate/internal/entity"
	"github.com/google/uuid"
)

type Memory struct {
	mu    sync.RWMutex
	items []entity.Submission
	now   func() time.Time
	newID func() string
}

func NewMemory() *Memory {
	return NewMemoryWith(time.Now, uuid.NewString)
}

// NewMemoryWith extra constructor for tests/DI
func NewMemoryWith(now func() time.Time, newID func() string) *Memory {
	return &Memory{now: now, newID: newID}
}

func (m *Memory) Submit(_ context.Context, s entity.Submission) (entity.Submission, error) {
	s.ID = m.newID()
	s.CreatedAt = m.now().UTC()

	m.mu.Lock()
	m.items = append(m.items, s)
	m.mu.Unlock()
	return s, nil
}

// List returns up to limit submissions, newest first. limit <= 0 means all.
func (m *Memory) List(_ context.Context, limit int) ([]entity.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := len(m.items)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]entity.Submission, 0, n)
	for i := len(m.items) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, m.items[i])
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }
