package flow

import (
	"github.com/google/uuid"

	"github.com/ehr/patientflow/internal/domain/directory"
	"github.com/ehr/patientflow/internal/domain/hospital"
)

// Actor is the staff member a command runs on behalf of.
type Actor struct {
	ID         uuid.UUID
	HospitalID uuid.UUID
	Role       hospital.Role
	Department *hospital.DepartmentName
}

func ActorFromUser(u *directory.User) Actor {
	return Actor{ID: u.ID, HospitalID: u.HospitalID, Role: u.Role, Department: u.Department}
}

// In reports whether the actor works in dept.
func (a Actor) In(dept hospital.DepartmentName) bool {
	return a.Department != nil && *a.Department == dept
}

// CanSee reports whether the actor may read or act on dept's work.
func (a Actor) CanSee(dept hospital.DepartmentName) bool {
	return a.In(dept) || a.Role.IsAdmin()
}
