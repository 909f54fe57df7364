package department

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/ehr/patientflow/internal/domain/hospital"
)

type MemoryRepo struct {
	mu    sync.RWMutex
	depts map[uuid.UUID]Department
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{depts: make(map[uuid.UUID]Department)}
}

func (m *MemoryRepo) Create(_ context.Context, d *Department) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.depts {
		if existing.HospitalID == d.HospitalID && existing.Name == d.Name {
			return ErrDuplicateDepartment
		}
	}
	m.depts[d.ID] = clone(d)
	return nil
}

func (m *MemoryRepo) GetByID(_ context.Context, id uuid.UUID) (*Department, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.depts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := clone(&d)
	return &cp, nil
}

func (m *MemoryRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*Department, error) {
	return m.GetByID(ctx, id)
}

func (m *MemoryRepo) GetByName(_ context.Context, hospitalID uuid.UUID, name hospital.DepartmentName) (*Department, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.depts {
		if d.HospitalID == hospitalID && d.Name == name {
			cp := clone(&d)
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryRepo) ListByHospital(_ context.Context, hospitalID uuid.UUID) ([]*Department, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Department
	for _, d := range m.depts {
		if d.HospitalID == hospitalID {
			cp := clone(&d)
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryRepo) Update(_ context.Context, d *Department) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.depts[d.ID]; !ok {
		return ErrNotFound
	}
	m.depts[d.ID] = clone(d)
	return nil
}

func clone(d *Department) Department {
	cp := *d
	cp.OperatorRoles = slices.Clone(d.OperatorRoles)
	cp.Operators = slices.Clone(d.Operators)
	if cp.Operators == nil {
		cp.Operators = []uuid.UUID{}
	}
	return cp
}
