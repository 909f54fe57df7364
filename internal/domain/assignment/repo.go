package assignment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/patientflow/internal/domain/hospital"
)

type Repository interface {
	Create(ctx context.Context, a *Assignment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Assignment, error)
	Update(ctx context.Context, a *Assignment) error
	// OpenForPatient returns the patient's non-terminal assignments, newest
	// first.
	OpenForPatient(ctx context.Context, patientID uuid.UUID) ([]*Assignment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Assignment, error)
	// Queue returns PENDING and IN_PROGRESS work for a department, most
	// urgent first and oldest first within a priority.
	Queue(ctx context.Context, hospitalID uuid.UUID, dept hospital.DepartmentName) ([]*Assignment, error)
	PendingTransfers(ctx context.Context, hospitalID uuid.UUID, dept hospital.DepartmentName) ([]*Assignment, error)
	// CloseOpenForPatient completes every open assignment of the patient and
	// returns how many were closed.
	CloseOpenForPatient(ctx context.Context, patientID uuid.UUID, at time.Time) (int, error)
	CountByStatus(ctx context.Context, hospitalID uuid.UUID, dept hospital.DepartmentName) (map[Status]int, error)
}
