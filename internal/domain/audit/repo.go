package audit

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Append seals e onto the end of its hospital's chain and stores it.
	Append(ctx context.Context, e *Entry) error
	ListByPatient(ctx context.Context, hospitalID, patientID uuid.UUID) ([]*Entry, error)
	// ListByHospital returns the full chain in sequence order.
	ListByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*Entry, error)
}
