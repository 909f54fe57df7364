package hospital

// StandardDepartment describes a department seeded at hospital onboarding.
type StandardDepartment struct {
	Name          DepartmentName
	Category      DepartmentCategory
	OperatorRoles []Role
}

// StandardDepartments is the core set every hospital starts with.
func StandardDepartments() []StandardDepartment {
	return []StandardDepartment{
		{Reception, CategoryPatientFlow, []Role{RoleReceptionist, RoleDepartmentOperator}},
		{Triage, CategoryPatientFlow, []Role{RoleNurse, RoleDoctor}},
		{Registration, CategoryPatientFlow, []Role{RoleReceptionist, RoleDepartmentOperator}},
		{Emergency, CategoryClinical, []Role{RoleDoctor, RoleNurse}},
		{Outpatient, CategoryClinical, []Role{RoleDoctor, RoleNurse}},
		{Laboratory, CategoryDiagnostic, []Role{RoleLabTechnician}},
		{Radiology, CategoryDiagnostic, []Role{RoleRadiologist}},
		{Pharmacy, CategorySupport, []Role{RolePharmacist}},
		{Billing, CategoryAdministrative, []Role{RoleReceptionist, RoleDepartmentOperator}},
		{MedicalRecords, CategoryAdministrative, []Role{RoleDepartmentOperator}},
	}
}
