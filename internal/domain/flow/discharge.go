package flow

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/ehr/patientflow/internal/domain/audit"
	"github.com/ehr/patientflow/internal/domain/billing"
	"github.com/ehr/patientflow/internal/domain/hospital"
	"github.com/ehr/patientflow/internal/domain/patient"
	"github.com/ehr/patientflow/internal/platform/notification"
)

// Discharge is the outcome of completing a patient journey.
type Discharge struct {
	Patient *patient.Patient `json:"patient"`
	Billing *billing.Record  `json:"billing,omitempty"`
	// Closed counts the assignments that were still open.
	Closed int `json:"closed_assignments"`
}

// CompletePatientJourney discharges a patient, raising an invoice when
// billing details are given. A patient can be discharged once.
func (e *Engine) CompletePatientJourney(ctx context.Context, actor Actor, patientID uuid.UUID, details *billing.Details) (*Discharge, error) {
	var res *Discharge
	_, err := e.run(ctx, "CompletePatientJourney", actor, patientID, func(ctx context.Context, out *outbox) error {
		p, err := e.patientOf(ctx, actor, patientID)
		if err != nil {
			return err
		}
		switch p.Status {
		case patient.StatusDischarged:
			return ErrAlreadyDischarged
		case patient.StatusDeceased:
			return ErrPatientDeceased
		}
		inFinalStage := p.CurrentDepartment != nil && p.CurrentDepartment.DischargeEligible()
		if !inFinalStage && !actor.Role.CanDischarge() {
			return ErrNotEligibleForDischarge
		}

		res = &Discharge{Patient: p}
		if details != nil {
			rec, err := e.billing.CreateInvoice(ctx, p.ID, p.HospitalID, actor.ID, *details)
			if err != nil {
				return err
			}
			res.Billing = rec
		}
		if res.Closed, err = e.discharge(ctx, actor, p, out); err != nil {
			return err
		}
		if rec := res.Billing; rec != nil {
			out.add(notification.Message{
				To:   notification.ToDepartment(hospital.Billing),
				Text: fmt.Sprintf("Invoice raised for %s: %d due, %d outstanding", p.FullName(), rec.TotalAmount, rec.Balance),
				Payload: notification.BillingUpdatePayload{
					BillingID:   rec.ID,
					PatientID:   p.ID,
					TotalAmount: rec.TotalAmount,
					Balance:     rec.Balance,
				},
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// discharge ends the journey: the patient leaves every department, all open
// assignments are completed and the whole hospital is told.
func (e *Engine) discharge(ctx context.Context, actor Actor, p *patient.Patient, out *outbox) (int, error) {
	now := e.now()
	p.Status = patient.StatusDischarged
	p.AssignedDoctor = nil
	p.Locate("", now)
	if err := e.patients.Update(ctx, p); err != nil {
		return 0, err
	}
	closed, err := e.assignments.CloseOpenForPatient(ctx, p.ID, now)
	if err != nil {
		return 0, err
	}
	if err := e.record(ctx, actor, p.ID, audit.ActionPatientDischarged, map[string]string{
		"closed_assignments": strconv.Itoa(closed),
	}); err != nil {
		return 0, err
	}
	out.add(notification.Message{
		To:      notification.ToHospital(),
		Text:    fmt.Sprintf("Patient %s (ID: %s) has been discharged.", p.FullName(), p.ID),
		Payload: notification.DepartmentAlertPayload{PatientID: &p.ID, Event: string(audit.ActionPatientDischarged)},
	})
	return closed, nil
}

// MarkDeceased records a death. The patient leaves their department and all
// open assignments are completed.
func (e *Engine) MarkDeceased(ctx context.Context, actor Actor, patientID uuid.UUID, notes string) (*patient.Patient, error) {
	if actor.Role != hospital.RoleDoctor && !actor.Role.IsAdmin() {
		return nil, ErrActionNotPermitted.With("role %s may not record a death", actor.Role)
	}

	var p *patient.Patient
	_, err := e.run(ctx, "MarkDeceased", actor, patientID, func(ctx context.Context, out *outbox) error {
		var err error
		if p, err = e.patientOf(ctx, actor, patientID); err != nil {
			return err
		}
		if p.Status == patient.StatusDeceased {
			return ErrPatientDeceased
		}
		last := p.CurrentDepartment

		now := e.now()
		p.Status = patient.StatusDeceased
		p.AssignedDoctor = nil
		p.Locate("", now)
		if err := e.patients.Update(ctx, p); err != nil {
			return err
		}
		closed, err := e.assignments.CloseOpenForPatient(ctx, p.ID, now)
		if err != nil {
			return err
		}
		if err := e.record(ctx, actor, p.ID, audit.ActionPatientDeceased, map[string]string{
			"closed_assignments": strconv.Itoa(closed),
			"notes":              notes,
		}); err != nil {
			return err
		}
		if last != nil {
			out.add(notification.Message{
				To:      notification.ToDepartment(*last),
				Text:    fmt.Sprintf("Patient %s (ID: %s) has been recorded as deceased.", p.FullName(), p.ID),
				Payload: notification.DepartmentAlertPayload{PatientID: &p.ID, Department: *last, Event: string(audit.ActionPatientDeceased)},
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}
