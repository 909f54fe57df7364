package billing

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/ehr/patientflow/pkg/pagination"
)

type MemoryRepo struct {
	mu      sync.RWMutex
	records map[uuid.UUID]Record
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{records: make(map[uuid.UUID]Record)}
}

func (m *MemoryRepo) Create(_ context.Context, r *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[r.ID] = clone(r)
	return nil
}

func (m *MemoryRepo) GetByID(_ context.Context, id uuid.UUID) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := clone(&r)
	return &cp, nil
}

func (m *MemoryRepo) Update(_ context.Context, r *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[r.ID]; !ok {
		return ErrNotFound
	}
	m.records[r.ID] = clone(r)
	return nil
}

func (m *MemoryRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Record, int, error) {
	m.mu.RLock()
	var out []*Record
	for _, r := range m.records {
		if r.PatientID == patientID {
			cp := clone(&r)
			out = append(out, &cp)
		}
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].BillingDate.After(out[j].BillingDate) })

	start, end := pagination.Params{Limit: limit, Offset: offset}.Window(len(out))
	return out[start:end], len(out), nil
}

func clone(r *Record) Record {
	cp := *r
	cp.Items = append([]LineItem(nil), r.Items...)
	return cp
}
