package flow

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ehr/patientflow/internal/domain/assignment"
	"github.com/ehr/patientflow/internal/domain/audit"
	"github.com/ehr/patientflow/internal/domain/hospital"
	"github.com/ehr/patientflow/internal/domain/patient"
	"github.com/ehr/patientflow/internal/platform/notification"
	"github.com/ehr/patientflow/pkg/apperr"
)

// RegisterPatient creates a patient and places them in their first
// department. Nothing is written when the department cannot take patients.
// Retrying a failed call may register the patient twice.
func (e *Engine) RegisterPatient(ctx context.Context, actor Actor, d patient.Demographics, dept hospital.DepartmentName, priority assignment.Priority) (*Result, error) {
	if !dept.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("unknown department %q", dept))
	}
	p, err := patient.New(actor.HospitalID, d, e.now())
	if err != nil {
		return nil, err
	}

	var res *Result
	_, err = e.run(ctx, "RegisterPatient", actor, p.ID, func(ctx context.Context, out *outbox) error {
		if _, err := e.receiving(ctx, actor, dept); err != nil {
			return err
		}
		now := e.now()
		a := assignment.New(p.ID, actor.HospitalID, dept, actor.ID, priority, now)
		p.Locate(dept, now)
		if err := e.patients.Create(ctx, p); err != nil {
			return err
		}
		if err := e.assignments.Create(ctx, a); err != nil {
			return err
		}
		if err := e.record(ctx, actor, p.ID, audit.ActionPatientRegistered, map[string]string{
			"department":    string(dept),
			"assignment_id": a.ID.String(),
		}); err != nil {
			return err
		}
		out.add(notification.Message{
			To:      notification.ToDepartment(dept),
			Text:    fmt.Sprintf("New patient registered: %s (ID: %s)", p.FullName(), p.ID),
			Payload: notification.DepartmentAlertPayload{PatientID: &p.ID, Department: dept, Event: string(audit.ActionPatientRegistered)},
		})
		res = &Result{Patient: p, Assignment: a}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// AssignToDepartment re-routes a patient. Any assignment still open elsewhere
// is closed as transferred; a discharged patient is readmitted.
func (e *Engine) AssignToDepartment(ctx context.Context, actor Actor, patientID uuid.UUID, dept hospital.DepartmentName, priority assignment.Priority) (*Result, error) {
	if !dept.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("unknown department %q", dept))
	}

	var res *Result
	_, err := e.run(ctx, "AssignToDepartment", actor, patientID, func(ctx context.Context, out *outbox) error {
		p, err := e.patientOf(ctx, actor, patientID)
		if err != nil {
			return err
		}
		if p.Status == patient.StatusDeceased {
			return ErrPatientDeceased
		}
		if _, err := e.receiving(ctx, actor, dept); err != nil {
			return err
		}

		now := e.now()
		if err := e.supersede(ctx, actor, p.ID, dept, "reassigned", now); err != nil {
			return err
		}
		a := assignment.New(p.ID, actor.HospitalID, dept, actor.ID, priority, now)
		if err := e.assignments.Create(ctx, a); err != nil {
			return err
		}

		switch p.Status {
		case patient.StatusDischarged:
			p.Status = patient.StatusRegistered
		case patient.StatusInTreatment, patient.StatusTransferred:
			p.Status = patient.StatusActive
		}
		p.AssignedDoctor = nil
		p.Locate(dept, now)
		if err := e.patients.Update(ctx, p); err != nil {
			return err
		}
		if err := e.record(ctx, actor, p.ID, audit.ActionDepartmentAssigned, map[string]string{
			"department":    string(dept),
			"assignment_id": a.ID.String(),
		}); err != nil {
			return err
		}
		out.add(notification.Message{
			To:      notification.ToDepartment(dept),
			Text:    fmt.Sprintf("Patient %s (ID: %s) assigned to your department.", p.FullName(), p.ID),
			Payload: notification.DepartmentAlertPayload{PatientID: &p.ID, Department: dept, Event: string(audit.ActionDepartmentAssigned)},
		})
		res = &Result{Patient: p, Assignment: a}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
