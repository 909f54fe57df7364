package directory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/ehr/patientflow/internal/domain/hospital"
)

type MemoryRepo struct {
	mu    sync.RWMutex
	users map[uuid.UUID]User
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{users: make(map[uuid.UUID]User)}
}

func (m *MemoryRepo) Create(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = *u
	return nil
}

func (m *MemoryRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (m *MemoryRepo) SetDepartment(_ context.Context, id uuid.UUID, dept *hospital.DepartmentName) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrUserNotFound
	}
	if dept != nil {
		d := *dept
		dept = &d
	}
	u.Department = dept
	m.users[id] = u
	return nil
}

func (m *MemoryRepo) Find(_ context.Context, f Filter) ([]*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*User
	for _, u := range m.users {
		u := u
		if f.matches(&u) {
			out = append(out, &u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryRepo) Existing(_ context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []uuid.UUID
	for _, id := range ids {
		if u, ok := m.users[id]; ok && u.Active {
			out = append(out, id)
		}
	}
	return out, nil
}
