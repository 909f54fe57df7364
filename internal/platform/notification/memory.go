package notification

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/patientflow/pkg/pagination"
)

// MemoryRepo is an in-process Repository.
type MemoryRepo struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*Notification
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{items: make(map[uuid.UUID]*Notification)}
}

func (r *MemoryRepo) CreateBatch(_ context.Context, ns []*Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range ns {
		if _, ok := r.items[n.ID]; ok {
			continue
		}
		cp := *n
		r.items[n.ID] = &cp
	}
	return nil
}

func (r *MemoryRepo) GetByID(_ context.Context, id uuid.UUID) (*Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (r *MemoryRepo) ListForUser(_ context.Context, recipient uuid.UUID, unreadOnly bool, limit, offset int) ([]*Notification, int, error) {
	r.mu.RLock()
	var matched []*Notification
	for _, n := range r.items {
		if n.Recipient != recipient || (unreadOnly && n.Read) {
			continue
		}
		cp := *n
		matched = append(matched, &cp)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	start, end := pagination.Params{Limit: limit, Offset: offset}.Window(len(matched))
	return matched[start:end], len(matched), nil
}

func (r *MemoryRepo) MarkRead(_ context.Context, id, recipient uuid.UUID, at time.Time) (*Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[id]
	if !ok || n.Recipient != recipient {
		return nil, ErrNotFound
	}
	if !n.Read {
		n.Read = true
		n.ReadAt = &at
	}
	cp := *n
	return &cp, nil
}

// All returns every stored notification, oldest first.
func (r *MemoryRepo) All() []*Notification {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Notification, 0, len(r.items))
	for _, n := range r.items {
		cp := *n
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
