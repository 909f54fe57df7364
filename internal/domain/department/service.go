package department

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/patientflow/internal/domain/directory"
	"github.com/ehr/patientflow/internal/domain/hospital"
	"github.com/ehr/patientflow/internal/platform/db"
)

// Users is the part of the directory the registry needs to validate roster
// members and keep their department in step with the roster.
type Users interface {
	GetUser(ctx context.Context, id uuid.UUID) (*directory.User, error)
	SetDepartment(ctx context.Context, id uuid.UUID, dept *hospital.DepartmentName) error
}

type Registry struct {
	repo   Repository
	users  Users
	inTx   db.TxRunner
	logger zerolog.Logger
	now    func() time.Time
}

func NewRegistry(repo Repository, users Users, inTx db.TxRunner, logger zerolog.Logger) *Registry {
	if inTx == nil {
		inTx = db.NoTx
	}
	return &Registry{
		repo:   repo,
		users:  users,
		inTx:   inTx,
		logger: logger.With().Str("component", "department").Logger(),
		now:    time.Now,
	}
}

// Create registers a department with its initial roster.
func (r *Registry) Create(ctx context.Context, p Params, operators []uuid.UUID) (*Department, error) {
	var d *Department
	err := r.inTx(ctx, func(ctx context.Context) error {
		if _, err := r.repo.GetByName(ctx, p.HospitalID, p.Name); err == nil {
			return ErrDuplicateDepartment.With("%s already exists in this hospital", p.Name)
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}

		members := make([]Member, 0, len(operators))
		for _, id := range operators {
			u, err := r.member(ctx, p.HospitalID, id)
			if err != nil {
				return err
			}
			members = append(members, Member{ID: u.ID, Role: u.Role})
		}

		var err error
		if d, err = NewDepartment(p, members, r.now()); err != nil {
			return err
		}
		if err := r.repo.Create(ctx, d); err != nil {
			return err
		}
		for _, id := range d.Operators {
			if err := r.users.SetDepartment(ctx, id, &d.Name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.logger.Info().
		Str("hospital_id", d.HospitalID.String()).
		Str("department", string(d.Name)).
		Int("operators", len(d.Operators)).
		Msg("department created")
	return d, nil
}

// AddOperator puts a user on the roster and moves them into the department.
func (r *Registry) AddOperator(ctx context.Context, departmentID, userID uuid.UUID) (*Department, error) {
	var d *Department
	err := r.inTx(ctx, func(ctx context.Context) error {
		var err error
		if d, err = r.repo.GetForUpdate(ctx, departmentID); err != nil {
			return err
		}
		u, err := r.member(ctx, d.HospitalID, userID)
		if err != nil {
			return err
		}
		if err := d.AddOperator(Member{ID: u.ID, Role: u.Role}, r.now()); err != nil {
			return err
		}
		if err := r.repo.Update(ctx, d); err != nil {
			return err
		}
		return r.users.SetDepartment(ctx, u.ID, &d.Name)
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// RemoveOperator takes a user off the roster. The roster never drops below
// the department's minimum.
func (r *Registry) RemoveOperator(ctx context.Context, departmentID, userID uuid.UUID) (*Department, error) {
	var d *Department
	err := r.inTx(ctx, func(ctx context.Context) error {
		var err error
		if d, err = r.repo.GetForUpdate(ctx, departmentID); err != nil {
			return err
		}
		if err := d.RemoveOperator(userID, r.now()); err != nil {
			return err
		}
		if err := r.repo.Update(ctx, d); err != nil {
			return err
		}
		u, err := r.users.GetUser(ctx, userID)
		if errors.Is(err, directory.ErrUserNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if u.InDepartment(d.Name) {
			return r.users.SetDepartment(ctx, userID, nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// HasCapacity reports whether the department has anyone to receive patients.
func (r *Registry) HasCapacity(ctx context.Context, departmentID uuid.UUID) (bool, error) {
	d, err := r.repo.GetByID(ctx, departmentID)
	if err != nil {
		return false, err
	}
	return d.HasCapacity(), nil
}

func (r *Registry) Lookup(ctx context.Context, hospitalID uuid.UUID, name hospital.DepartmentName) (*Department, error) {
	d, err := r.repo.GetByName(ctx, hospitalID, name)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound.With("department %s not found in this hospital", name)
	}
	return d, err
}

func (r *Registry) Get(ctx context.Context, id uuid.UUID) (*Department, error) {
	return r.repo.GetByID(ctx, id)
}

func (r *Registry) List(ctx context.Context, hospitalID uuid.UUID) ([]*Department, error) {
	return r.repo.ListByHospital(ctx, hospitalID)
}

// Update applies descriptive changes. Deactivation goes through here too;
// departments are never deleted.
func (r *Registry) Update(ctx context.Context, id uuid.UUID, p Patch) (*Department, error) {
	var d *Department
	err := r.inTx(ctx, func(ctx context.Context) error {
		var err error
		if d, err = r.repo.GetForUpdate(ctx, id); err != nil {
			return err
		}
		if err := d.Apply(p, r.now()); err != nil {
			return err
		}
		return r.repo.Update(ctx, d)
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *Registry) SetOperational(ctx context.Context, id uuid.UUID, operational bool) (*Department, error) {
	return r.Update(ctx, id, Patch{Operational: &operational})
}

// OnboardHospital seeds the standard departments. Departments that already
// exist are left alone, so it can be re-run.
func (r *Registry) OnboardHospital(ctx context.Context, hospitalID uuid.UUID) ([]*Department, error) {
	var created []*Department
	for _, std := range hospital.StandardDepartments() {
		if _, err := r.repo.GetByName(ctx, hospitalID, std.Name); err == nil {
			continue
		} else if !errors.Is(err, ErrNotFound) {
			return created, err
		}
		d, err := NewDepartment(Params{
			HospitalID:    hospitalID,
			Name:          std.Name,
			Category:      std.Category,
			OperatorRoles: std.OperatorRoles,
		}, nil, r.now())
		if err != nil {
			return created, err
		}
		if err := r.repo.Create(ctx, d); errors.Is(err, ErrDuplicateDepartment) {
			continue
		} else if err != nil {
			return created, err
		}
		created = append(created, d)
	}
	r.logger.Info().
		Str("hospital_id", hospitalID.String()).
		Int("created", len(created)).
		Msg("hospital onboarded")
	return created, nil
}

func (r *Registry) member(ctx context.Context, hospitalID, userID uuid.UUID) (*directory.User, error) {
	u, err := r.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.HospitalID != hospitalID {
		return nil, directory.ErrUserNotFound
	}
	return u, nil
}
