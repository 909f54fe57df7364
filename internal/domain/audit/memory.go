package audit

import (
	"context"
	"maps"
	"sync"

	"github.com/google/uuid"
)

type MemoryRepo struct {
	mu     sync.Mutex
	chains map[uuid.UUID][]Entry
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{chains: make(map[uuid.UUID][]Entry)}
}

func (m *MemoryRepo) Append(_ context.Context, e *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	chain := m.chains[e.HospitalID]
	var (
		seq  int64
		hash string
	)
	if n := len(chain); n > 0 {
		seq, hash = chain[n-1].Seq, chain[n-1].Hash
	}
	e.Seal(seq, hash)
	cp := *e
	cp.Detail = maps.Clone(e.Detail)
	m.chains[e.HospitalID] = append(chain, cp)
	return nil
}

func (m *MemoryRepo) ListByPatient(_ context.Context, hospitalID, patientID uuid.UUID) ([]*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Entry
	for _, e := range m.chains[hospitalID] {
		if e.PatientID != nil && *e.PatientID == patientID {
			e := e
			out = append(out, &e)
		}
	}
	return out, nil
}

func (m *MemoryRepo) ListByHospital(_ context.Context, hospitalID uuid.UUID) ([]*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	chain := m.chains[hospitalID]
	out := make([]*Entry, len(chain))
	for i := range chain {
		e := chain[i]
		out[i] = &e
	}
	return out, nil
}

// Tamper overwrites a stored entry in place. Tests use it to break a chain.
func (m *MemoryRepo) Tamper(hospitalID uuid.UUID, seq int64, fn func(*Entry)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	chain := m.chains[hospitalID]
	if seq < 1 || int(seq) > len(chain) {
		return
	}
	fn(&chain[seq-1])
}
