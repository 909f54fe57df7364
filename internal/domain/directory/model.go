// Package directory is the read side of staff identity: who a user is, which
// hospital and department they belong to and what role they hold.
package directory

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/patientflow/internal/domain/hospital"
	"github.com/ehr/patientflow/pkg/apperr"
)

var ErrUserNotFound = apperr.NotFound("USER_NOT_FOUND", "user not found")

// User maps to the users table.
type User struct {
	ID         uuid.UUID                `db:"id" json:"id"`
	HospitalID uuid.UUID                `db:"hospital_id" json:"hospital_id"`
	Role       hospital.Role            `db:"role" json:"role"`
	Department *hospital.DepartmentName `db:"department" json:"department,omitempty"`
	FirstName  string                   `db:"first_name" json:"first_name"`
	LastName   string                   `db:"last_name" json:"last_name"`
	Email      string                   `db:"email" json:"email"`
	Active     bool                     `db:"active" json:"active"`
	CreatedAt  time.Time                `db:"created_at" json:"created_at"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// InDepartment reports whether u is currently attached to dept.
func (u *User) InDepartment(dept hospital.DepartmentName) bool {
	return u.Department != nil && *u.Department == dept
}

func (u *User) Validate() error {
	if u.HospitalID == uuid.Nil {
		return apperr.Validation("hospital_id is required")
	}
	if !u.Role.Valid() {
		return apperr.Validation("invalid role " + string(u.Role))
	}
	if u.Department != nil && !u.Department.Valid() {
		return apperr.Validation("invalid department " + string(*u.Department))
	}
	if strings.TrimSpace(u.Email) == "" {
		return apperr.Validation("email is required")
	}
	return nil
}

// Filter narrows a user search. Empty fields match everything.
type Filter struct {
	HospitalID uuid.UUID
	Department *hospital.DepartmentName
	Roles      []hospital.Role
	ActiveOnly bool
}

func (f Filter) matches(u *User) bool {
	if f.HospitalID != uuid.Nil && u.HospitalID != f.HospitalID {
		return false
	}
	if f.Department != nil && !u.InDepartment(*f.Department) {
		return false
	}
	if f.ActiveOnly && !u.Active {
		return false
	}
	if len(f.Roles) == 0 {
		return true
	}
	for _, r := range f.Roles {
		if u.Role == r {
			return true
		}
	}
	return false
}
