// Package department is the registry of hospital departments and their
// operator rosters.
package department

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/patientflow/internal/domain/hospital"
	"github.com/ehr/patientflow/pkg/apperr"
)

const DefaultColorCode = "#4CAF50"

var (
	ErrNotFound              = apperr.NotFound("DEPARTMENT_NOT_FOUND", "department not found")
	ErrDuplicateDepartment   = apperr.Conflict("DUPLICATE_DEPARTMENT", "department already exists in this hospital")
	ErrInsufficientOperators = apperr.Precondition("INSUFFICIENT_OPERATORS", "department would have fewer operators than its minimum")
	ErrRoleNotPermitted      = apperr.Precondition("ROLE_NOT_PERMITTED", "role is not permitted to operate in this department")
	ErrAlreadyMember         = apperr.Conflict("ALREADY_MEMBER", "user is already an operator of this department")
	ErrNotMember             = apperr.Precondition("NOT_MEMBER", "user is not an operator of this department")
)

// Department maps to the departments table.
type Department struct {
	ID               uuid.UUID                   `db:"id" json:"id"`
	HospitalID       uuid.UUID                   `db:"hospital_id" json:"hospital_id"`
	Name             hospital.DepartmentName     `db:"name" json:"name"`
	Category         hospital.DepartmentCategory `db:"category" json:"category"`
	OperatorRoles    []hospital.Role             `db:"operator_roles" json:"operator_roles"`
	Operators        []uuid.UUID                 `db:"operators" json:"operators"`
	MinOperators     int                         `db:"min_operators" json:"min_operators"`
	AvailableBeds    int                         `db:"available_beds" json:"available_beds"`
	Operational      bool                        `db:"operational" json:"operational"`
	Location         string                      `db:"location" json:"location,omitempty"`
	PhoneExtension   string                      `db:"phone_extension" json:"phone_extension,omitempty"`
	ColorCode        string                      `db:"color_code" json:"color_code"`
	HeadOfDepartment *uuid.UUID                  `db:"head_of_department" json:"head_of_department,omitempty"`
	CreatedAt        time.Time                   `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time                   `db:"updated_at" json:"updated_at"`
}

// Member is a prospective roster entry.
type Member struct {
	ID   uuid.UUID
	Role hospital.Role
}

// Params describes a department to create.
type Params struct {
	HospitalID     uuid.UUID
	Name           hospital.DepartmentName
	Category       hospital.DepartmentCategory
	OperatorRoles  []hospital.Role
	MinOperators   int
	AvailableBeds  int
	Location       string
	PhoneExtension string
	ColorCode      string
}

// NewDepartment validates p and the initial roster and returns an
// operational department.
func NewDepartment(p Params, initial []Member, now time.Time) (*Department, error) {
	if p.HospitalID == uuid.Nil {
		return nil, apperr.Validation("hospital is required")
	}
	if !p.Name.Valid() {
		return nil, apperr.Validation("unknown department name " + string(p.Name))
	}
	if p.Category == "" {
		p.Category = p.Name.DefaultCategory()
	}
	if _, err := hospital.ParseCategory(string(p.Category)); err != nil {
		return nil, apperr.Validation(err.Error())
	}
	if p.MinOperators < 0 || p.AvailableBeds < 0 {
		return nil, apperr.Validation("min operators and available beds must not be negative")
	}
	for _, r := range p.OperatorRoles {
		if !r.IsOperatorRole() {
			return nil, apperr.Validation("role " + string(r) + " cannot operate a department")
		}
	}
	if p.ColorCode == "" {
		p.ColorCode = DefaultColorCode
	}

	d := &Department{
		ID:             uuid.New(),
		HospitalID:     p.HospitalID,
		Name:           p.Name,
		Category:       p.Category,
		OperatorRoles:  dedupeRoles(p.OperatorRoles),
		Operators:      []uuid.UUID{},
		MinOperators:   p.MinOperators,
		AvailableBeds:  p.AvailableBeds,
		Operational:    true,
		Location:       p.Location,
		PhoneExtension: p.PhoneExtension,
		ColorCode:      p.ColorCode,
		CreatedAt:      now.UTC(),
		UpdatedAt:      now.UTC(),
	}
	for _, m := range initial {
		if d.IsOperator(m.ID) {
			continue
		}
		if !d.Permits(m.Role) {
			return nil, ErrRoleNotPermitted.With("role %s is not permitted in %s", m.Role, d.Name)
		}
		d.Operators = append(d.Operators, m.ID)
	}
	if len(d.Operators) < d.MinOperators {
		return nil, ErrInsufficientOperators.With("%s needs at least %d operators, got %d", d.Name, d.MinOperators, len(d.Operators))
	}
	return d, nil
}

func (d *Department) Permits(r hospital.Role) bool {
	return slices.Contains(d.OperatorRoles, r)
}

func (d *Department) IsOperator(id uuid.UUID) bool {
	return slices.Contains(d.Operators, id)
}

// HasCapacity reports whether patients may be placed here.
func (d *Department) HasCapacity() bool {
	return len(d.Operators) > 0
}

// AddOperator appends m to the roster.
func (d *Department) AddOperator(m Member, now time.Time) error {
	if d.IsOperator(m.ID) {
		return ErrAlreadyMember
	}
	if !d.Permits(m.Role) {
		return ErrRoleNotPermitted.With("role %s is not permitted in %s", m.Role, d.Name)
	}
	d.Operators = append(d.Operators, m.ID)
	d.UpdatedAt = now.UTC()
	return nil
}

// RemoveOperator drops id from the roster unless that would take it below
// the minimum.
func (d *Department) RemoveOperator(id uuid.UUID, now time.Time) error {
	i := slices.Index(d.Operators, id)
	if i < 0 {
		return ErrNotMember
	}
	if len(d.Operators)-1 < d.MinOperators {
		return ErrInsufficientOperators.With("%s needs at least %d operators", d.Name, d.MinOperators)
	}
	d.Operators = slices.Delete(slices.Clone(d.Operators), i, i+1)
	d.UpdatedAt = now.UTC()
	return nil
}

// Patch carries optional changes to a department's descriptive fields.
type Patch struct {
	AvailableBeds    *int       `json:"available_beds,omitempty"`
	Location         *string    `json:"location,omitempty"`
	PhoneExtension   *string    `json:"phone_extension,omitempty"`
	ColorCode        *string    `json:"color_code,omitempty"`
	HeadOfDepartment *uuid.UUID `json:"head_of_department,omitempty"`
	Operational      *bool      `json:"operational,omitempty"`
}

func (d *Department) Apply(p Patch, now time.Time) error {
	if p.AvailableBeds != nil {
		if *p.AvailableBeds < 0 {
			return apperr.Validation("available beds must not be negative")
		}
		d.AvailableBeds = *p.AvailableBeds
	}
	if p.Location != nil {
		d.Location = *p.Location
	}
	if p.PhoneExtension != nil {
		d.PhoneExtension = *p.PhoneExtension
	}
	if p.ColorCode != nil {
		d.ColorCode = *p.ColorCode
	}
	if p.HeadOfDepartment != nil {
		h := *p.HeadOfDepartment
		d.HeadOfDepartment = &h
	}
	if p.Operational != nil {
		d.Operational = *p.Operational
	}
	d.UpdatedAt = now.UTC()
	return nil
}

func dedupeRoles(in []hospital.Role) []hospital.Role {
	out := make([]hospital.Role, 0, len(in))
	for _, r := range in {
		if !slices.Contains(out, r) {
			out = append(out, r)
		}
	}
	return out
}
