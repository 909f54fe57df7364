package directory

import (
	"context"

	"github.com/google/uuid"

	"github.com/ehr/patientflow/internal/domain/hospital"
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	SetDepartment(ctx context.Context, id uuid.UUID, dept *hospital.DepartmentName) error
	Find(ctx context.Context, f Filter) ([]*User, error)
	// Existing returns the subset of ids that belong to active users.
	Existing(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
}
