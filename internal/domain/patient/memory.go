package patient

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/ehr/patientflow/pkg/pagination"
)

type MemoryRepo struct {
	mu       sync.RWMutex
	patients map[uuid.UUID]Patient
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{patients: make(map[uuid.UUID]Patient)}
}

func (m *MemoryRepo) Create(_ context.Context, p *Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.NationalID != nil {
		for _, existing := range m.patients {
			if existing.HospitalID == p.HospitalID && existing.NationalID != nil && *existing.NationalID == *p.NationalID {
				return ErrAlreadyRegistered
			}
		}
	}
	m.patients[p.ID] = clone(p)
	return nil
}

func (m *MemoryRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := clone(&p)
	return &cp, nil
}

func (m *MemoryRepo) Update(_ context.Context, p *Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.patients[p.ID]; !ok {
		return ErrNotFound
	}
	m.patients[p.ID] = clone(p)
	return nil
}

func (m *MemoryRepo) List(_ context.Context, f ListFilter, limit, offset int) ([]*Patient, int, error) {
	m.mu.RLock()
	var out []*Patient
	for _, p := range m.patients {
		if p.HospitalID != f.HospitalID {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.Department != "" && !p.In(f.Department) {
			continue
		}
		cp := clone(&p)
		out = append(out, &cp)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	start, end := pagination.Params{Limit: limit, Offset: offset}.Window(len(out))
	return out[start:end], len(out), nil
}

func clone(p *Patient) Patient {
	cp := *p
	if p.CurrentDepartment != nil {
		d := *p.CurrentDepartment
		cp.CurrentDepartment = &d
	}
	if p.AssignedDoctor != nil {
		d := *p.AssignedDoctor
		cp.AssignedDoctor = &d
	}
	if p.Address != nil {
		a := *p.Address
		cp.Address = &a
	}
	cp.Allergies = slices.Clone(p.Allergies)
	return cp
}
