package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Log is the audit collaborator handed to the flow engine.
type Log struct {
	repo   Repository
	logger zerolog.Logger
	now    func() time.Time
}

func NewLog(repo Repository, logger zerolog.Logger) *Log {
	return &Log{repo: repo, logger: logger.With().Str("component", "audit").Logger(), now: time.Now}
}

// Record appends one entry. ctx should carry the command's transaction so the
// entry commits or rolls back with it.
func (l *Log) Record(ctx context.Context, hospitalID uuid.UUID, patientID *uuid.UUID, actor uuid.UUID, action Action, detail map[string]string) (*Entry, error) {
	e := &Entry{
		HospitalID: hospitalID,
		PatientID:  patientID,
		Actor:      actor,
		Action:     action,
		Detail:     detail,
		At:         l.now(),
	}
	if err := l.repo.Append(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (l *Log) ListByPatient(ctx context.Context, hospitalID, patientID uuid.UUID) ([]*Entry, error) {
	return l.repo.ListByPatient(ctx, hospitalID, patientID)
}

// Verify re-computes the hospital's chain.
func (l *Log) Verify(ctx context.Context, hospitalID uuid.UUID) (Verification, error) {
	entries, err := l.repo.ListByHospital(ctx, hospitalID)
	if err != nil {
		return Verification{}, err
	}
	v := VerifyChain(entries)
	if !v.Valid {
		l.logger.Error().
			Str("hospital_id", hospitalID.String()).
			Int64("broken_at", *v.BrokenAt).
			Msg("audit chain verification failed")
	}
	return v, nil
}
