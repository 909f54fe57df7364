package flow

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/patientflow/internal/platform/db"
)

// Locker runs fn as the only state-changing command on a patient. Writes made
// through ctx inside fn commit together or not at all.
type Locker interface {
	WithPatient(ctx context.Context, patientID uuid.UUID, fn func(ctx context.Context) error) error
}

// PGLocker holds a transaction-scoped advisory lock keyed on the patient for
// the life of one transaction.
type PGLocker struct {
	pool *pgxpool.Pool
}

func NewPGLocker(pool *pgxpool.Pool) *PGLocker {
	return &PGLocker{pool: pool}
}

func (l *PGLocker) WithPatient(ctx context.Context, patientID uuid.UUID, fn func(ctx context.Context) error) error {
	return db.RunInTx(ctx, l.pool, func(ctx context.Context) error {
		if _, err := db.Conn(ctx, l.pool).Exec(ctx,
			`SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, patientID.String()); err != nil {
			return fmt.Errorf("lock patient %s: %w", patientID, err)
		}
		return fn(ctx)
	})
}

// MemoryLocker is a keyed mutex for in-process stores.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[uuid.UUID]*keyLock)}
}

func (l *MemoryLocker) WithPatient(ctx context.Context, patientID uuid.UUID, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	k, ok := l.locks[patientID]
	if !ok {
		k = &keyLock{}
		l.locks[patientID] = k
	}
	k.refs++
	l.mu.Unlock()

	k.mu.Lock()
	defer func() {
		k.mu.Unlock()
		l.mu.Lock()
		if k.refs--; k.refs == 0 {
			delete(l.locks, patientID)
		}
		l.mu.Unlock()
	}()
	return fn(ctx)
}
