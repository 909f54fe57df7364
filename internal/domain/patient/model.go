// Package patient holds patient identity and location state: where in the
// hospital a patient is and how far through their journey they are.
package patient

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/patientflow/internal/domain/hospital"
	"github.com/ehr/patientflow/pkg/apperr"
)

type Status string

const (
	StatusRegistered  Status = "REGISTERED"
	StatusActive      Status = "ACTIVE"
	StatusInTreatment Status = "IN_TREATMENT"
	StatusTransferred Status = "TRANSFERRED"
	StatusDischarged  Status = "DISCHARGED"
	StatusDeceased    Status = "DECEASED"
)

// Terminal reports whether s ends the journey.
func (s Status) Terminal() bool {
	return s == StatusDischarged || s == StatusDeceased
}

var ErrNotFound = apperr.NotFound("PATIENT_NOT_FOUND", "patient not found")

var validGenders = map[string]bool{"Male": true, "Female": true, "Other": true, "Prefer not to say": true}

var validBloodTypes = map[string]bool{
	"A+": true, "A-": true, "B+": true, "B-": true, "AB+": true, "AB-": true,
	"O+": true, "O-": true, "Unknown": true,
}

type Address struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	County     string `json:"county,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
}

type Allergy struct {
	Name     string `json:"name"`
	Severity string `json:"severity,omitempty"`
}

// Demographics is the registration data captured at the front desk.
type Demographics struct {
	FirstName         string     `json:"first_name"`
	LastName          string     `json:"last_name"`
	NationalID        *string    `json:"national_id,omitempty"`
	DateOfBirth       *time.Time `json:"date_of_birth,omitempty"`
	Gender            string     `json:"gender,omitempty"`
	Phone             string     `json:"phone,omitempty"`
	Email             string     `json:"email,omitempty"`
	Address           *Address   `json:"address,omitempty"`
	BloodType         string     `json:"blood_type,omitempty"`
	Allergies         []Allergy  `json:"allergies,omitempty"`
	InsuranceProvider string     `json:"insurance_provider,omitempty"`
	PolicyNumber      string     `json:"policy_number,omitempty"`
}

func (d *Demographics) Validate(now time.Time) error {
	d.FirstName = strings.TrimSpace(d.FirstName)
	d.LastName = strings.TrimSpace(d.LastName)
	if d.FirstName == "" || d.LastName == "" {
		return apperr.Validation("first_name and last_name are required")
	}
	if d.DateOfBirth != nil && d.DateOfBirth.After(now) {
		return apperr.Validation("date_of_birth is in the future")
	}
	if d.Gender != "" && !validGenders[d.Gender] {
		return apperr.Validation("invalid gender " + d.Gender)
	}
	if d.BloodType != "" && !validBloodTypes[d.BloodType] {
		return apperr.Validation("invalid blood_type " + d.BloodType)
	}
	if d.Email != "" && !strings.Contains(d.Email, "@") {
		return apperr.Validation("invalid email")
	}
	return nil
}

// Patient maps to the patients table.
type Patient struct {
	ID         uuid.UUID `db:"id" json:"id"`
	HospitalID uuid.UUID `db:"hospital_id" json:"hospital_id"`
	Demographics
	CurrentDepartment *hospital.DepartmentName `db:"current_department" json:"current_department"`
	Status            Status                   `db:"status" json:"status"`
	AssignedDoctor    *uuid.UUID               `db:"assigned_doctor" json:"assigned_doctor,omitempty"`
	CreatedAt         time.Time                `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time                `db:"updated_at" json:"updated_at"`
}

// New returns a REGISTERED patient that is not yet located anywhere.
func New(hospitalID uuid.UUID, d Demographics, now time.Time) (*Patient, error) {
	if hospitalID == uuid.Nil {
		return nil, apperr.Validation("hospital is required")
	}
	if err := d.Validate(now); err != nil {
		return nil, err
	}
	return &Patient{
		ID:           uuid.New(),
		HospitalID:   hospitalID,
		Demographics: d,
		Status:       StatusRegistered,
		CreatedAt:    now.UTC(),
		UpdatedAt:    now.UTC(),
	}, nil
}

func (p *Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}

// Locate moves the patient to dept, or nowhere when dept is empty.
func (p *Patient) Locate(dept hospital.DepartmentName, now time.Time) {
	if dept == "" {
		p.CurrentDepartment = nil
	} else {
		d := dept
		p.CurrentDepartment = &d
	}
	p.UpdatedAt = now.UTC()
}

// In reports whether the patient is currently located in dept.
func (p *Patient) In(dept hospital.DepartmentName) bool {
	return p.CurrentDepartment != nil && *p.CurrentDepartment == dept
}

// ListFilter narrows patient listings.
type ListFilter struct {
	HospitalID uuid.UUID
	Status     Status
	Department hospital.DepartmentName
}
