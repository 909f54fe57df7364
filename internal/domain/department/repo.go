package department

import (
	"context"

	"github.com/google/uuid"

	"github.com/ehr/patientflow/internal/domain/hospital"
)

type Repository interface {
	// Create fails with ErrDuplicateDepartment when the hospital already has
	// a department of that name.
	Create(ctx context.Context, d *Department) error
	GetByID(ctx context.Context, id uuid.UUID) (*Department, error)
	// GetForUpdate is GetByID holding a row lock for the rest of the
	// transaction in ctx.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Department, error)
	GetByName(ctx context.Context, hospitalID uuid.UUID, name hospital.DepartmentName) (*Department, error)
	ListByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*Department, error)
	Update(ctx context.Context, d *Department) error
}
