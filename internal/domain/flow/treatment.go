package flow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/ehr/patientflow/internal/domain/assignment"
	"github.com/ehr/patientflow/internal/domain/audit"
	"github.com/ehr/patientflow/internal/domain/directory"
	"github.com/ehr/patientflow/internal/domain/hospital"
	"github.com/ehr/patientflow/internal/domain/patient"
	"github.com/ehr/patientflow/internal/platform/notification"
	"github.com/ehr/patientflow/pkg/apperr"
)

// AssignToDoctor hands an assignment to a doctor of its department and puts
// the patient in treatment.
func (e *Engine) AssignToDoctor(ctx context.Context, actor Actor, assignmentID, doctorID uuid.UUID) (*assignment.Assignment, error) {
	a, err := e.assignmentOf(ctx, actor, assignmentID)
	if err != nil {
		return nil, err
	}

	_, err = e.run(ctx, "AssignToDoctor", actor, a.PatientID, func(ctx context.Context, out *outbox) error {
		if a, err = e.assignments.GetByID(ctx, assignmentID); err != nil {
			return err
		}
		if !actor.CanSee(a.Department) {
			return ErrNotAuthorizedForDepartment.With("not authorized for %s", a.Department)
		}
		doc, err := e.users.GetUser(ctx, doctorID)
		if errors.Is(err, directory.ErrUserNotFound) {
			return ErrInvalidDoctor
		} else if err != nil {
			return err
		}
		if doc.Role != hospital.RoleDoctor || !doc.Active || doc.HospitalID != a.HospitalID || !doc.InDepartment(a.Department) {
			return ErrInvalidDoctor.With("user %s is not a doctor in %s", doctorID, a.Department)
		}

		now := e.now()
		if err := a.StartTreatment(doc.ID, now); err != nil {
			return err
		}
		p, err := e.patientOf(ctx, actor, a.PatientID)
		if err != nil {
			return err
		}
		if err := e.assignments.Update(ctx, a); err != nil {
			return err
		}
		p.Status = patient.StatusInTreatment
		p.AssignedDoctor = &doc.ID
		p.Locate(a.Department, now)
		if err := e.patients.Update(ctx, p); err != nil {
			return err
		}
		if err := e.record(ctx, actor, p.ID, audit.ActionDoctorAssigned, map[string]string{
			"assignment_id": a.ID.String(),
			"doctor_id":     doc.ID.String(),
		}); err != nil {
			return err
		}
		out.add(notification.Message{
			To:      notification.ToUsers(doc.ID),
			Text:    fmt.Sprintf("New patient assigned in %s", a.Department),
			Payload: notification.NewAssignmentPayload{AssignmentID: a.ID, PatientID: a.PatientID},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// CompleteAssignment closes the doctor's assignment. Without follow-up the
// patient is discharged through the same routine as CompletePatientJourney,
// minus the eligibility check and billing.
func (e *Engine) CompleteAssignment(ctx context.Context, actor Actor, assignmentID uuid.UUID, notes string, requiresFollowUp bool) (*Result, error) {
	a, err := e.assignmentOf(ctx, actor, assignmentID)
	if err != nil {
		return nil, err
	}

	var res *Result
	_, err = e.run(ctx, "CompleteAssignment", actor, a.PatientID, func(ctx context.Context, out *outbox) error {
		if a, err = e.assignments.GetByID(ctx, assignmentID); err != nil {
			return err
		}
		if !a.HeldBy(actor.ID) {
			return ErrNotOwner
		}
		p, err := e.patientOf(ctx, actor, a.PatientID)
		if err != nil {
			return err
		}

		now := e.now()
		a.Complete(notes, now)
		if err := e.assignments.Update(ctx, a); err != nil {
			return err
		}
		if err := e.record(ctx, actor, p.ID, audit.ActionAssignmentCompleted, map[string]string{
			"assignment_id": a.ID.String(),
			"follow_up":     strconv.FormatBool(requiresFollowUp),
		}); err != nil {
			return err
		}

		if requiresFollowUp {
			p.Status = patient.StatusActive
			p.Locate("", now)
			if err := e.patients.Update(ctx, p); err != nil {
				return err
			}
		} else if _, err := e.discharge(ctx, actor, p, out); err != nil {
			return err
		}
		res = &Result{Patient: p, Assignment: a}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ReportCriticalResult alerts the patient's assigned doctor to a critical
// test result.
func (e *Engine) ReportCriticalResult(ctx context.Context, actor Actor, patientID uuid.UUID, testType, result string) (notification.Delivery, error) {
	testType = strings.TrimSpace(testType)
	if testType == "" {
		return notification.Delivery{}, apperr.Validation("test_type is required")
	}

	deliveries, err := e.run(ctx, "ReportCriticalResult", actor, patientID, func(ctx context.Context, out *outbox) error {
		p, err := e.patientOf(ctx, actor, patientID)
		if err != nil {
			return err
		}
		if p.AssignedDoctor == nil {
			return ErrNoAssignedDoctor
		}
		if err := e.record(ctx, actor, p.ID, audit.ActionCriticalResult, map[string]string{
			"test_type": testType,
			"doctor_id": p.AssignedDoctor.String(),
		}); err != nil {
			return err
		}
		out.add(notification.CriticalResult(p.HospitalID, *p.AssignedDoctor, p.ID, &actor.ID, testType, result))
		return nil
	})
	if err != nil {
		return notification.Delivery{}, err
	}
	return deliveries[0], nil
}
