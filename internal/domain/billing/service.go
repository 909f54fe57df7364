package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// CreateInvoice raises a billing record for a patient's stay.
func (s *Service) CreateInvoice(ctx context.Context, patientID, hospitalID, billedBy uuid.UUID, d Details) (*Record, error) {
	rec, err := NewInvoice(patientID, hospitalID, billedBy, d, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Get returns a record, hiding records of other hospitals.
func (s *Service) Get(ctx context.Context, hospitalID, id uuid.UUID) (*Record, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.HospitalID != hospitalID {
		return nil, ErrNotFound
	}
	return rec, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Record, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) RecordPayment(ctx context.Context, hospitalID, id uuid.UUID, amount int64, method PaymentMethod) (*Record, error) {
	rec, err := s.Get(ctx, hospitalID, id)
	if err != nil {
		return nil, err
	}
	if err := rec.ApplyPayment(amount, method, s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}
