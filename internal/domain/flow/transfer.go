package flow

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ehr/patientflow/internal/domain/assignment"
	"github.com/ehr/patientflow/internal/domain/audit"
	"github.com/ehr/patientflow/internal/domain/department"
	"github.com/ehr/patientflow/internal/domain/hospital"
	"github.com/ehr/patientflow/internal/domain/patient"
	"github.com/ehr/patientflow/internal/platform/notification"
	"github.com/ehr/patientflow/pkg/apperr"
)

// TransferRequest moves a patient between departments of one hospital.
type TransferRequest struct {
	PatientID uuid.UUID
	From      hospital.DepartmentName
	To        hospital.DepartmentName
	Reason    string
	Priority  assignment.Priority
}

// TransferPatient starts a transfer. The patient's location moves to the
// target at once; the new assignment stays TRANSFER_PENDING until the
// receiving department accepts it.
func (e *Engine) TransferPatient(ctx context.Context, actor Actor, req TransferRequest) (*Result, error) {
	if !req.From.Valid() || !req.To.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("unknown department in transfer %q -> %q", req.From, req.To))
	}
	if req.From == req.To {
		return nil, apperr.Validation("cannot transfer a patient to the department they are in")
	}

	var res *Result
	_, err := e.run(ctx, "TransferPatient", actor, req.PatientID, func(ctx context.Context, out *outbox) error {
		if !actor.In(req.From) {
			return ErrWrongActingDepartment.With("acting user is not in %s", req.From)
		}
		p, err := e.patientOf(ctx, actor, req.PatientID)
		if err != nil {
			return err
		}
		if !p.In(req.From) {
			return ErrLocationMismatch.With("patient is not recorded in %s", req.From)
		}
		target, err := e.departments.Lookup(ctx, actor.HospitalID, req.To)
		if errors.Is(err, department.ErrNotFound) {
			return ErrTargetNotOperational.With("department %s not found in this hospital", req.To)
		} else if err != nil {
			return err
		}
		if !target.Operational {
			return ErrTargetNotOperational.With("department %s is not operational", req.To)
		}
		if !target.HasCapacity() {
			return ErrTargetHasNoOperators.With("department %s has no operators", req.To)
		}

		now := e.now()
		if err := e.supersede(ctx, actor, p.ID, req.To, req.Reason, now); err != nil {
			return err
		}
		t := assignment.NewTransfer(p.ID, actor.HospitalID, req.From, req.To, req.Reason, actor.ID, req.Priority, now)
		if err := e.assignments.Create(ctx, t); err != nil {
			return err
		}
		p.Status = patient.StatusTransferred
		p.AssignedDoctor = nil
		p.Locate(req.To, now)
		if err := e.patients.Update(ctx, p); err != nil {
			return err
		}
		if err := e.record(ctx, actor, p.ID, audit.ActionTransferInitiated, map[string]string{
			"assignment_id": t.ID.String(),
			"from":          string(req.From),
			"to":            string(req.To),
			"reason":        req.Reason,
		}); err != nil {
			return err
		}
		out.add(notification.Message{
			To:   notification.ToDepartment(req.To, hospital.RoleDoctor, hospital.RoleNurse),
			Text: fmt.Sprintf("Patient %s (ID: %s) transferred from %s. Reason: %s", p.FullName(), p.ID, req.From, req.Reason),
			Payload: notification.PatientTransferPayload{
				PatientID:      p.ID,
				AssignmentID:   t.ID,
				FromDepartment: req.From,
				ToDepartment:   req.To,
			},
		})
		res = &Result{Patient: p, Assignment: t}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// AcceptTransfer records the receiving department taking the patient and
// tells whoever started the transfer.
func (e *Engine) AcceptTransfer(ctx context.Context, actor Actor, assignmentID uuid.UUID) (*Result, error) {
	a, err := e.assignmentOf(ctx, actor, assignmentID)
	if err != nil {
		return nil, err
	}

	var res *Result
	_, err = e.run(ctx, "AcceptTransfer", actor, a.PatientID, func(ctx context.Context, out *outbox) error {
		if a, err = e.assignments.GetByID(ctx, assignmentID); err != nil {
			return err
		}
		if a.ToDepartment == nil || !actor.In(*a.ToDepartment) {
			return ErrWrongDepartment
		}
		to := *a.ToDepartment
		var from hospital.DepartmentName
		if a.FromDepartment != nil {
			from = *a.FromDepartment
		}

		now := e.now()
		if err := a.Accept(actor.ID, now); err != nil {
			return err
		}
		p, err := e.patientOf(ctx, actor, a.PatientID)
		if err != nil {
			return err
		}
		if err := e.assignments.Update(ctx, a); err != nil {
			return err
		}
		p.Status = patient.StatusActive
		p.AssignedDoctor = nil
		if actor.Role == hospital.RoleDoctor {
			p.AssignedDoctor = ptr(actor.ID)
		}
		p.Locate(to, now)
		if err := e.patients.Update(ctx, p); err != nil {
			return err
		}
		if err := e.record(ctx, actor, p.ID, audit.ActionTransferAccepted, map[string]string{
			"assignment_id": a.ID.String(),
		}); err != nil {
			return err
		}
		out.add(notification.Message{
			To:   notification.ToUsers(a.AssignedBy),
			Text: fmt.Sprintf("Transfer to %s accepted", to),
			Payload: notification.PatientTransferPayload{
				PatientID:      p.ID,
				AssignmentID:   a.ID,
				FromDepartment: from,
				ToDepartment:   to,
				Accepted:       true,
			},
		})
		res = &Result{Patient: p, Assignment: a}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// PendingTransfers lists transfers waiting for dept to accept them.
func (e *Engine) PendingTransfers(ctx context.Context, actor Actor, dept hospital.DepartmentName) ([]*assignment.Assignment, error) {
	var out []*assignment.Assignment
	err := e.read(ctx, "PendingTransfers", actor, func(ctx context.Context) error {
		if !actor.CanSee(dept) {
			return ErrNotAuthorizedForDepartment.With("not authorized for %s", dept)
		}
		var err error
		out, err = e.assignments.PendingTransfers(ctx, actor.HospitalID, dept)
		return err
	})
	return out, err
}
