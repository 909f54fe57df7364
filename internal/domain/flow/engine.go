// Package flow moves patients through registration, department assignment,
// transfer and discharge.
//
// Every state-changing command runs inside a per-patient critical section
// provided by a Locker. Validation happens before the first write, the audit
// entry is written in the same unit of work, and notifications are handed to
// the dispatcher only after the unit of work commits.
package flow

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ehr/patientflow/internal/domain/assignment"
	"github.com/ehr/patientflow/internal/domain/audit"
	"github.com/ehr/patientflow/internal/domain/billing"
	"github.com/ehr/patientflow/internal/domain/department"
	"github.com/ehr/patientflow/internal/domain/directory"
	"github.com/ehr/patientflow/internal/domain/hospital"
	"github.com/ehr/patientflow/internal/domain/patient"
	"github.com/ehr/patientflow/internal/platform/notification"
	"github.com/ehr/patientflow/internal/platform/telemetry"
)

type Departments interface {
	Lookup(ctx context.Context, hospitalID uuid.UUID, name hospital.DepartmentName) (*department.Department, error)
}

type Users interface {
	GetUser(ctx context.Context, id uuid.UUID) (*directory.User, error)
	ListByDepartment(ctx context.Context, hospitalID uuid.UUID, dept hospital.DepartmentName, roles ...hospital.Role) ([]*directory.User, error)
}

type Billing interface {
	CreateInvoice(ctx context.Context, patientID, hospitalID, billedBy uuid.UUID, d billing.Details) (*billing.Record, error)
}

type Auditor interface {
	Record(ctx context.Context, hospitalID uuid.UUID, patientID *uuid.UUID, actor uuid.UUID, action audit.Action, detail map[string]string) (*audit.Entry, error)
}

// Deps are the engine's collaborators. Locker defaults to an in-process
// keyed mutex and Tracer to the global tracer.
type Deps struct {
	Patients    patient.Repository
	Assignments assignment.Repository
	Departments Departments
	Users       Users
	Billing     Billing
	Audit       Auditor
	Notifier    notification.Notifier
	Locker      Locker
	Tracer      trace.Tracer
	Logger      zerolog.Logger
}

type Engine struct {
	patients    patient.Repository
	assignments assignment.Repository
	departments Departments
	users       Users
	billing     Billing
	audit       Auditor
	notifier    notification.Notifier
	locker      Locker
	tracer      trace.Tracer
	logger      zerolog.Logger
	now         func() time.Time
}

func NewEngine(d Deps) *Engine {
	if d.Locker == nil {
		d.Locker = NewMemoryLocker()
	}
	if d.Tracer == nil {
		d.Tracer = telemetry.Tracer()
	}
	return &Engine{
		patients:    d.Patients,
		assignments: d.Assignments,
		departments: d.Departments,
		users:       d.Users,
		billing:     d.Billing,
		audit:       d.Audit,
		notifier:    d.Notifier,
		locker:      d.Locker,
		tracer:      d.Tracer,
		logger:      d.Logger.With().Str("component", "flow").Logger(),
		now:         time.Now,
	}
}

// Result is the aggregate returned by commands that move a patient.
type Result struct {
	Patient    *patient.Patient       `json:"patient"`
	Assignment *assignment.Assignment `json:"assignment"`
}

// ResolveActor loads the acting user from the directory.
func (e *Engine) ResolveActor(ctx context.Context, userID uuid.UUID) (Actor, error) {
	u, err := e.users.GetUser(ctx, userID)
	if err != nil {
		return Actor{}, err
	}
	return ActorFromUser(u), nil
}

// outbox collects notifications raised by a command.
type outbox struct {
	msgs []notification.Message
}

func (o *outbox) add(m notification.Message) { o.msgs = append(o.msgs, m) }

// run executes a state-changing command under the patient's lock and then
// dispatches whatever it queued in the outbox.
func (e *Engine) run(ctx context.Context, name string, actor Actor, patientID uuid.UUID, fn func(ctx context.Context, out *outbox) error) ([]notification.Delivery, error) {
	ctx, span := e.tracer.Start(ctx, "flow."+name, trace.WithAttributes(
		attribute.String("patient.id", patientID.String()),
		attribute.String("actor.id", actor.ID.String()),
		attribute.String("actor.role", string(actor.Role)),
	))
	defer span.End()

	if actor.HospitalID == uuid.Nil {
		telemetry.RecordError(span, ErrNoHospital)
		return nil, ErrNoHospital
	}

	out := &outbox{}
	if err := e.locker.WithPatient(ctx, patientID, func(ctx context.Context) error {
		return fn(ctx, out)
	}); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	deliveries := make([]notification.Delivery, 0, len(out.msgs))
	for _, m := range out.msgs {
		if m.HospitalID == uuid.Nil {
			m.HospitalID = actor.HospitalID
		}
		if m.Sender == nil {
			m.Sender = &actor.ID
		}
		deliveries = append(deliveries, e.notifier.Notify(ctx, m))
	}
	e.logger.Debug().
		Str("command", name).
		Str("patient_id", patientID.String()).
		Int("notifications", len(deliveries)).
		Msg("command committed")
	return deliveries, nil
}

// read wraps a query in a span.
func (e *Engine) read(ctx context.Context, name string, actor Actor, fn func(ctx context.Context) error) error {
	ctx, span := e.tracer.Start(ctx, "flow."+name, trace.WithAttributes(
		attribute.String("actor.id", actor.ID.String()),
	))
	defer span.End()
	if actor.HospitalID == uuid.Nil {
		telemetry.RecordError(span, ErrNoHospital)
		return ErrNoHospital
	}
	err := fn(ctx)
	telemetry.RecordError(span, err)
	return err
}

// patientOf loads a patient, hiding patients of other hospitals.
func (e *Engine) patientOf(ctx context.Context, actor Actor, id uuid.UUID) (*patient.Patient, error) {
	p, err := e.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.HospitalID != actor.HospitalID {
		return nil, patient.ErrNotFound
	}
	return p, nil
}

func (e *Engine) assignmentOf(ctx context.Context, actor Actor, id uuid.UUID) (*assignment.Assignment, error) {
	a, err := e.assignments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.HospitalID != actor.HospitalID {
		return nil, assignment.ErrNotFound
	}
	return a, nil
}

// receiving resolves a department that is about to take a patient.
func (e *Engine) receiving(ctx context.Context, actor Actor, name hospital.DepartmentName) (*department.Department, error) {
	d, err := e.departments.Lookup(ctx, actor.HospitalID, name)
	if err != nil {
		return nil, err
	}
	if !d.Operational {
		return nil, ErrDepartmentNotOperational.With("department %s is not operational", name)
	}
	if !d.HasCapacity() {
		return nil, ErrDepartmentHasNoOperators.With("department %s has no active operators", name)
	}
	return d, nil
}

// supersede closes the patient's open assignments because they are moving to
// dept.
func (e *Engine) supersede(ctx context.Context, actor Actor, patientID uuid.UUID, to hospital.DepartmentName, notes string, now time.Time) error {
	open, err := e.assignments.OpenForPatient(ctx, patientID)
	if err != nil {
		return err
	}
	for _, a := range open {
		a.CloseAsTransferred(assignment.TransferEntry{
			FromDepartment: a.Department,
			ToDepartment:   to,
			TransferredBy:  actor.ID,
			TransferredAt:  now.UTC(),
			Notes:          notes,
		}, now)
		if err := e.assignments.Update(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) record(ctx context.Context, actor Actor, patientID uuid.UUID, action audit.Action, detail map[string]string) error {
	_, err := e.audit.Record(ctx, actor.HospitalID, &patientID, actor.ID, action, detail)
	return err
}

func ptr[T any](v T) *T { return &v }
