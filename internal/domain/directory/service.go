package directory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/patientflow/internal/domain/hospital"
)

// Service answers staff lookups for the flow engine and the notification
// dispatcher.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) Create(ctx context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if err := u.Validate(); err != nil {
		return err
	}
	u.Active = true
	u.CreatedAt = s.now().UTC()
	return s.repo.Create(ctx, u)
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// SetDepartment attaches a user to dept, or detaches them when dept is nil.
func (s *Service) SetDepartment(ctx context.Context, id uuid.UUID, dept *hospital.DepartmentName) error {
	return s.repo.SetDepartment(ctx, id, dept)
}

func (s *Service) ListByDepartment(ctx context.Context, hospitalID uuid.UUID, dept hospital.DepartmentName, roles ...hospital.Role) ([]*User, error) {
	return s.repo.Find(ctx, Filter{HospitalID: hospitalID, Department: &dept, Roles: roles, ActiveOnly: true})
}

func (s *Service) FindUsersByDepartment(ctx context.Context, hospitalID uuid.UUID, dept hospital.DepartmentName, roles ...hospital.Role) ([]uuid.UUID, error) {
	users, err := s.ListByDepartment(ctx, hospitalID, dept, roles...)
	if err != nil {
		return nil, err
	}
	return ids(users), nil
}

func (s *Service) FindUsersByHospital(ctx context.Context, hospitalID uuid.UUID) ([]uuid.UUID, error) {
	users, err := s.repo.Find(ctx, Filter{HospitalID: hospitalID, ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	return ids(users), nil
}

func (s *Service) ExistingUsers(ctx context.Context, userIDs []uuid.UUID) ([]uuid.UUID, error) {
	return s.repo.Existing(ctx, userIDs)
}

func ids(users []*User) []uuid.UUID {
	out := make([]uuid.UUID, len(users))
	for i, u := range users {
		out[i] = u.ID
	}
	return out
}
