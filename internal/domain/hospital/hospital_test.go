package hospital

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDepartmentName(t *testing.T) {
	n, err := ParseDepartmentName(" triage ")
	require.NoError(t, err)
	assert.Equal(t, Triage, n)

	_, err = ParseDepartmentName("CAFETERIA")
	assert.Error(t, err)

	_, err = ParseDepartmentName("")
	assert.Error(t, err)
}

func TestDepartmentNames_Complete(t *testing.T) {
	names := DepartmentNames()
	assert.Len(t, names, 64)
	for _, n := range names {
		assert.True(t, n.Valid(), n)
		_, err := ParseCategory(string(n.DefaultCategory()))
		assert.NoError(t, err, "category of %s", n)
	}
}

func TestDefaultCategory(t *testing.T) {
	assert.Equal(t, CategoryPatientFlow, Reception.DefaultCategory())
	assert.Equal(t, CategoryDiagnostic, Laboratory.DefaultCategory())
	assert.Equal(t, CategorySpecialized, GeneticsClinic.DefaultCategory())
	assert.Equal(t, DepartmentCategory(""), DepartmentName("NOPE").DefaultCategory())
}

func TestRoles(t *testing.T) {
	r, err := ParseRole("Doctor")
	require.NoError(t, err)
	assert.Equal(t, RoleDoctor, r)

	_, err = ParseRole("janitor")
	assert.Error(t, err)

	assert.True(t, RoleNurse.IsOperatorRole())
	assert.False(t, RolePatient.IsOperatorRole())
	assert.False(t, RoleHospitalAdmin.IsOperatorRole())

	assert.True(t, RoleSuperAdmin.IsAdmin())
	assert.True(t, RoleHospitalAdmin.IsAdmin())
	assert.False(t, RoleDoctor.IsAdmin())
}

func TestDischargeRules(t *testing.T) {
	assert.True(t, Pharmacy.DischargeEligible())
	assert.True(t, Billing.DischargeEligible())
	assert.False(t, Emergency.DischargeEligible())

	assert.True(t, RoleReceptionist.CanDischarge())
	assert.True(t, RoleHospitalAdmin.CanDischarge())
	assert.False(t, RoleDoctor.CanDischarge())
}

func TestStandardDepartments(t *testing.T) {
	std := StandardDepartments()
	require.Len(t, std, 10)

	seen := map[DepartmentName]bool{}
	for _, d := range std {
		assert.False(t, seen[d.Name], "duplicate %s", d.Name)
		seen[d.Name] = true
		_, err := ParseCategory(string(d.Category))
		assert.NoError(t, err, d.Name)
		require.NotEmpty(t, d.OperatorRoles, d.Name)
		for _, r := range d.OperatorRoles {
			assert.True(t, r.IsOperatorRole(), "%s on %s", r, d.Name)
		}
	}
	assert.True(t, seen[Triage])
	assert.True(t, seen[Billing])
}
