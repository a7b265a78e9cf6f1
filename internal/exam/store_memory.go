package exam

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type MemoryStore struct {
	mu    sync.RWMutex
	exams map[string]*Exam
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		exams: map[string]*Exam{},
		now:   time.Now,
	}
}

func (m *MemoryStore) Find(ctx context.Context, id string) (*Exam, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.exams[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e.clone(), nil
}

// FindByCode returns the earliest saved exam carrying code.
func (m *MemoryStore) FindByCode(ctx context.Context, code string) (*Exam, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var found *Exam
	for _, e := range m.exams {
		if e.ExamCode != code {
			continue
		}
		if found == nil || e.CreatedAt.Before(found.CreatedAt) ||
			(e.CreatedAt.Equal(found.CreatedAt) && e.ID < found.ID) {
			found = e
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found.clone(), nil
}

func (m *MemoryStore) Save(ctx context.Context, e *Exam) (*Exam, error) {
	if e == nil {
		return nil, ErrInvalidExam
	}
	stored := e.clone()
	stored.ID = uuid.NewString()
	stored.CreatedAt = m.now()

	m.mu.Lock()
	m.exams[stored.ID] = stored
	m.mu.Unlock()
	return stored.clone(), nil
}

func (m *MemoryStore) List(ctx context.Context) ([]Exam, error) {
	m.mu.RLock()
	out := make([]Exam, 0, len(m.exams))
	for _, e := range m.exams {
		out = append(out, *e.clone())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
