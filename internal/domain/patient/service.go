package patient

import (
	"context"

	"github.com/google/uuid"
)

// Service is the read side of patient state. Every change of location or
// status goes through the flow engine.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns the patient only when it belongs to hospitalID.
func (s *Service) Get(ctx context.Context, hospitalID, id uuid.UUID) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.HospitalID != hospitalID {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, f, limit, offset)
}
