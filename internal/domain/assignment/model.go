// Package assignment is the ledger of where each patient has been placed, by
// whom and with what outcome.
package assignment

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/patientflow/internal/domain/hospital"
	"github.com/ehr/patientflow/pkg/apperr"
)

type Status string

const (
	StatusPending         Status = "PENDING"
	StatusInProgress      Status = "IN_PROGRESS"
	StatusTransferPending Status = "TRANSFER_PENDING"
	StatusActive          Status = "ACTIVE"
	StatusCompleted       Status = "COMPLETED"
	StatusTransferred     Status = "TRANSFERRED"
)

// OpenStatuses are the non-terminal states. A patient has at most one
// assignment in any of them.
var OpenStatuses = []Status{StatusPending, StatusInProgress, StatusTransferPending, StatusActive}

// QueueStatuses are the states shown on a department's work queue.
var QueueStatuses = []Status{StatusPending, StatusInProgress}

func (s Status) Open() bool { return slices.Contains(OpenStatuses, s) }

type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

var priorityRank = map[Priority]int{PriorityLow: 1, PriorityMedium: 2, PriorityHigh: 3, PriorityCritical: 4}

// ParsePriority accepts any case. An empty value is MEDIUM.
func ParsePriority(s string) (Priority, error) {
	if strings.TrimSpace(s) == "" {
		return PriorityMedium, nil
	}
	p := Priority(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := priorityRank[p]; !ok {
		return "", fmt.Errorf("unknown priority %q", s)
	}
	return p, nil
}

// Rank orders priorities; higher is more urgent.
func (p Priority) Rank() int { return priorityRank[p] }

var (
	ErrNotFound     = apperr.NotFound("ASSIGNMENT_NOT_FOUND", "assignment not found")
	ErrInvalidState = apperr.Conflict("INVALID_ASSIGNMENT_STATE", "assignment is not in a state that allows this action")
	ErrNotPending   = apperr.Conflict("ASSIGNMENT_NOT_PENDING", "assignment is not awaiting transfer acceptance")
)

// TransferEntry records one move between departments.
type TransferEntry struct {
	FromDepartment hospital.DepartmentName `json:"from_department"`
	ToDepartment   hospital.DepartmentName `json:"to_department"`
	TransferredBy  uuid.UUID               `json:"transferred_by"`
	TransferredAt  time.Time               `json:"transferred_at"`
	Notes          string                  `json:"notes,omitempty"`
}

// Assignment maps to the assignments table.
type Assignment struct {
	ID              uuid.UUID                `db:"id" json:"id"`
	PatientID       uuid.UUID                `db:"patient_id" json:"patient_id"`
	HospitalID      uuid.UUID                `db:"hospital_id" json:"hospital_id"`
	Department      hospital.DepartmentName  `db:"department" json:"department"`
	FromDepartment  *hospital.DepartmentName `db:"from_department" json:"from_department,omitempty"`
	ToDepartment    *hospital.DepartmentName `db:"to_department" json:"to_department,omitempty"`
	AssignedBy      uuid.UUID                `db:"assigned_by" json:"assigned_by"`
	AssignedTo      *uuid.UUID               `db:"assigned_to" json:"assigned_to,omitempty"`
	Doctor          *uuid.UUID               `db:"doctor_id" json:"doctor_id,omitempty"`
	Status          Status                   `db:"status" json:"status"`
	Priority        Priority                 `db:"priority" json:"priority"`
	Reason          string                   `db:"reason" json:"reason,omitempty"`
	Notes           string                   `db:"notes" json:"notes,omitempty"`
	TransferHistory []TransferEntry          `db:"transfer_history" json:"transfer_history"`
	CreatedAt       time.Time                `db:"created_at" json:"created_at"`
	AssignedAt      *time.Time               `db:"assigned_at" json:"assigned_at,omitempty"`
	CompletedAt     *time.Time               `db:"completed_at" json:"completed_at,omitempty"`
	UpdatedAt       time.Time                `db:"updated_at" json:"updated_at"`
}

// New returns a PENDING assignment of a patient to dept.
func New(patientID, hospitalID uuid.UUID, dept hospital.DepartmentName, by uuid.UUID, priority Priority, now time.Time) *Assignment {
	if priority == "" {
		priority = PriorityMedium
	}
	now = now.UTC()
	return &Assignment{
		ID:              uuid.New(),
		PatientID:       patientID,
		HospitalID:      hospitalID,
		Department:      dept,
		AssignedBy:      by,
		Status:          StatusPending,
		Priority:        priority,
		TransferHistory: []TransferEntry{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// NewTransfer returns a TRANSFER_PENDING assignment held by the receiving
// department.
func NewTransfer(patientID, hospitalID uuid.UUID, from, to hospital.DepartmentName, reason string, by uuid.UUID, priority Priority, now time.Time) *Assignment {
	a := New(patientID, hospitalID, to, by, priority, now)
	a.Status = StatusTransferPending
	a.FromDepartment = &from
	a.ToDepartment = &to
	a.Reason = reason
	a.TransferHistory = []TransferEntry{{
		FromDepartment: from,
		ToDepartment:   to,
		TransferredBy:  by,
		TransferredAt:  a.CreatedAt,
		Notes:          reason,
	}}
	return a
}

// StartTreatment hands the assignment to a doctor.
func (a *Assignment) StartTreatment(doctor uuid.UUID, now time.Time) error {
	if a.Status != StatusPending && a.Status != StatusActive {
		return ErrInvalidState.With("cannot assign a doctor to a %s assignment", a.Status)
	}
	now = now.UTC()
	a.Status = StatusInProgress
	a.Doctor = &doctor
	a.AssignedTo = &doctor
	a.AssignedAt = &now
	a.UpdatedAt = now
	return nil
}

// HeldBy reports whether doctor currently owns the assignment.
func (a *Assignment) HeldBy(doctor uuid.UUID) bool {
	return a.Status == StatusInProgress && a.Doctor != nil && *a.Doctor == doctor
}

func (a *Assignment) Complete(notes string, now time.Time) {
	now = now.UTC()
	a.Status = StatusCompleted
	if notes != "" {
		a.Notes = notes
	}
	a.CompletedAt = &now
	a.UpdatedAt = now
}

// CloseAsTransferred ends an assignment the patient has moved on from.
func (a *Assignment) CloseAsTransferred(entry TransferEntry, now time.Time) {
	now = now.UTC()
	a.Status = StatusTransferred
	a.TransferHistory = append(a.TransferHistory, entry)
	a.CompletedAt = &now
	a.UpdatedAt = now
}

// Accept records the receiving department taking the patient.
func (a *Assignment) Accept(by uuid.UUID, now time.Time) error {
	if a.Status != StatusTransferPending {
		return ErrNotPending
	}
	now = now.UTC()
	a.Status = StatusActive
	a.AssignedTo = &by
	a.AssignedAt = &now
	a.UpdatedAt = now
	return nil
}

// Less orders a work queue: most urgent first, then oldest first.
func Less(a, b *Assignment) bool {
	if a.Priority.Rank() != b.Priority.Rank() {
		return a.Priority.Rank() > b.Priority.Rank()
	}
	return a.CreatedAt.Before(b.CreatedAt)
}
