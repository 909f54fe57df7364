package flow

import (
	"context"

	"github.com/ehr/patientflow/internal/domain/assignment"
	"github.com/ehr/patientflow/internal/domain/hospital"
)

// GetQueue returns dept's PENDING and IN_PROGRESS work, most urgent first.
func (e *Engine) GetQueue(ctx context.Context, actor Actor, dept hospital.DepartmentName) ([]*assignment.Assignment, error) {
	var out []*assignment.Assignment
	err := e.read(ctx, "GetQueue", actor, func(ctx context.Context) error {
		if !actor.CanSee(dept) {
			return ErrNotAuthorizedForDepartment.With("not authorized to view the %s queue", dept)
		}
		var err error
		out, err = e.assignments.Queue(ctx, actor.HospitalID, dept)
		return err
	})
	return out, err
}

// Stats is a point-in-time view of a department's load.
type Stats struct {
	Department       hospital.DepartmentName `json:"department"`
	CurrentPatients  int                     `json:"current_patients"`
	WaitingPatients  int                     `json:"waiting_patients"`
	PendingTransfers int                     `json:"pending_transfers"`
	Operators        int                     `json:"operators"`
	Doctors          int                     `json:"doctors"`
	AvailableBeds    int                     `json:"available_beds"`
	// Occupancy is current patients as a percentage of beds, or 0 for
	// departments without beds.
	Occupancy float64 `json:"occupancy"`
}

func (e *Engine) DepartmentStats(ctx context.Context, actor Actor, dept hospital.DepartmentName) (*Stats, error) {
	var s *Stats
	err := e.read(ctx, "DepartmentStats", actor, func(ctx context.Context) error {
		if !actor.CanSee(dept) {
			return ErrNotAuthorizedForDepartment.With("not authorized for %s", dept)
		}
		d, err := e.departments.Lookup(ctx, actor.HospitalID, dept)
		if err != nil {
			return err
		}
		counts, err := e.assignments.CountByStatus(ctx, actor.HospitalID, dept)
		if err != nil {
			return err
		}
		doctors, err := e.users.ListByDepartment(ctx, actor.HospitalID, dept, hospital.RoleDoctor)
		if err != nil {
			return err
		}
		s = &Stats{
			Department:      dept,
			CurrentPatients: counts[assignment.StatusInProgress],
			WaitingPatients: counts[assignment.StatusPending],
			Operators:       len(d.Operators),
			AvailableBeds:   d.AvailableBeds,
		}
		// Pending transfers are filed under the receiving department.
		s.PendingTransfers = counts[assignment.StatusTransferPending]
		for _, u := range doctors {
			if d.IsOperator(u.ID) {
				s.Doctors++
			}
		}
		if d.AvailableBeds > 0 {
			s.Occupancy = float64(s.CurrentPatients) / float64(d.AvailableBeds) * 100
		}
		return nil
	})
	return s, err
}
