package assignment

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/patientflow/internal/domain/hospital"
)

type MemoryRepo struct {
	mu    sync.RWMutex
	items map[uuid.UUID]Assignment
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{items: make(map[uuid.UUID]Assignment)}
}

func (m *MemoryRepo) Create(_ context.Context, a *Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[a.ID] = clone(a)
	return nil
}

func (m *MemoryRepo) GetByID(_ context.Context, id uuid.UUID) (*Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := clone(&a)
	return &cp, nil
}

func (m *MemoryRepo) Update(_ context.Context, a *Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[a.ID]; !ok {
		return ErrNotFound
	}
	m.items[a.ID] = clone(a)
	return nil
}

func (m *MemoryRepo) filter(keep func(*Assignment) bool) []*Assignment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Assignment
	for _, a := range m.items {
		a := a
		if keep(&a) {
			cp := clone(&a)
			out = append(out, &cp)
		}
	}
	return out
}

func newestFirst(out []*Assignment) []*Assignment {
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *MemoryRepo) OpenForPatient(_ context.Context, patientID uuid.UUID) ([]*Assignment, error) {
	return newestFirst(m.filter(func(a *Assignment) bool {
		return a.PatientID == patientID && a.Status.Open()
	})), nil
}

func (m *MemoryRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*Assignment, error) {
	return newestFirst(m.filter(func(a *Assignment) bool { return a.PatientID == patientID })), nil
}

func (m *MemoryRepo) Queue(_ context.Context, hospitalID uuid.UUID, dept hospital.DepartmentName) ([]*Assignment, error) {
	out := m.filter(func(a *Assignment) bool {
		return a.HospitalID == hospitalID && a.Department == dept && slices.Contains(QueueStatuses, a.Status)
	})
	sort.SliceStable(out, func(i, j int) bool { return Less(out[i], out[j]) })
	return out, nil
}

func (m *MemoryRepo) PendingTransfers(_ context.Context, hospitalID uuid.UUID, dept hospital.DepartmentName) ([]*Assignment, error) {
	out := m.filter(func(a *Assignment) bool {
		return a.HospitalID == hospitalID && a.Status == StatusTransferPending &&
			a.ToDepartment != nil && *a.ToDepartment == dept
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryRepo) CloseOpenForPatient(_ context.Context, patientID uuid.UUID, at time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, a := range m.items {
		if a.PatientID != patientID || !a.Status.Open() {
			continue
		}
		a.Complete("", at)
		m.items[id] = a
		n++
	}
	return n, nil
}

func (m *MemoryRepo) CountByStatus(_ context.Context, hospitalID uuid.UUID, dept hospital.DepartmentName) (map[Status]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[Status]int)
	for _, a := range m.items {
		if a.HospitalID == hospitalID && a.Department == dept {
			out[a.Status]++
		}
	}
	return out, nil
}

func clone(a *Assignment) Assignment {
	cp := *a
	cp.TransferHistory = slices.Clone(a.TransferHistory)
	if cp.TransferHistory == nil {
		cp.TransferHistory = []TransferEntry{}
	}
	return cp
}
