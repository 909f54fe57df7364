package hospital

import (
	"fmt"
	"strings"
)

// Role is a user's role in a hospital.
type Role string

const (
	RolePatient            Role = "patient"
	RoleDoctor             Role = "doctor"
	RoleHospitalAdmin      Role = "hospital-admin"
	RoleSuperAdmin         Role = "super-admin"
	RoleLabTechnician      Role = "lab-technician"
	RolePharmacist         Role = "pharmacist"
	RoleReceptionist       Role = "receptionist"
	RoleNurse              Role = "nurse"
	RoleRadiologist        Role = "radiologist"
	RolePhysiotherapist    Role = "physiotherapist"
	RoleDietitian          Role = "dietitian"
	RoleDepartmentOperator Role = "department-operator"
)

var roles = map[Role]bool{
	RolePatient: true, RoleDoctor: true, RoleHospitalAdmin: true, RoleSuperAdmin: true,
	RoleLabTechnician: true, RolePharmacist: true, RoleReceptionist: true, RoleNurse: true,
	RoleRadiologist: true, RolePhysiotherapist: true, RoleDietitian: true,
	RoleDepartmentOperator: true,
}

// operatorRoles are the roles that may appear on a department roster.
var operatorRoles = map[Role]bool{
	RoleDoctor: true, RoleLabTechnician: true, RolePharmacist: true, RoleReceptionist: true,
	RoleNurse: true, RoleRadiologist: true, RoleDepartmentOperator: true,
}

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !roles[r] {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

func (r Role) Valid() bool { return roles[r] }

// IsOperatorRole reports whether r may be permitted on a department roster.
func (r Role) IsOperatorRole() bool { return operatorRoles[r] }

// IsAdmin reports whether r bypasses department membership checks.
func (r Role) IsAdmin() bool {
	return r == RoleSuperAdmin || r == RoleHospitalAdmin
}

// CanDischarge reports whether r may complete a patient journey from any
// department.
func (r Role) CanDischarge() bool {
	return r == RoleHospitalAdmin || r == RoleReceptionist
}

// DischargeEligible reports whether a patient located in n may be discharged
// by any member of staff.
func (n DepartmentName) DischargeEligible() bool {
	return n == Pharmacy || n == Billing
}
