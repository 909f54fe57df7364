package department

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/patientflow/internal/domain/hospital"
	"github.com/ehr/patientflow/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const deptCols = `id, hospital_id, name, category, operator_roles, operators, min_operators,
	available_beds, operational, location, phone_extension, color_code, head_of_department,
	created_at, updated_at`

func scanDepartment(row pgx.Row) (*Department, error) {
	var (
		d     Department
		roles []string
	)
	err := row.Scan(&d.ID, &d.HospitalID, &d.Name, &d.Category, &roles, &d.Operators, &d.MinOperators,
		&d.AvailableBeds, &d.Operational, &d.Location, &d.PhoneExtension, &d.ColorCode, &d.HeadOfDepartment,
		&d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	d.OperatorRoles = make([]hospital.Role, len(roles))
	for i, r := range roles {
		d.OperatorRoles[i] = hospital.Role(r)
	}
	if d.Operators == nil {
		d.Operators = []uuid.UUID{}
	}
	return &d, nil
}

func roleStrings(roles []hospital.Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

func (r *repoPG) Create(ctx context.Context, d *Department) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO departments (`+deptCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		d.ID, d.HospitalID, d.Name, d.Category, roleStrings(d.OperatorRoles), d.Operators, d.MinOperators,
		d.AvailableBeds, d.Operational, d.Location, d.PhoneExtension, d.ColorCode, d.HeadOfDepartment,
		d.CreatedAt, d.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return ErrDuplicateDepartment
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Department, error) {
	return scanDepartment(r.conn(ctx).QueryRow(ctx, `SELECT `+deptCols+` FROM departments WHERE id = $1`, id))
}

func (r *repoPG) GetForUpdate(ctx context.Context, id uuid.UUID) (*Department, error) {
	return scanDepartment(r.conn(ctx).QueryRow(ctx, `SELECT `+deptCols+` FROM departments WHERE id = $1 FOR UPDATE`, id))
}

func (r *repoPG) GetByName(ctx context.Context, hospitalID uuid.UUID, name hospital.DepartmentName) (*Department, error) {
	return scanDepartment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+deptCols+` FROM departments WHERE hospital_id = $1 AND name = $2`, hospitalID, name))
}

func (r *repoPG) ListByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*Department, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+deptCols+` FROM departments WHERE hospital_id = $1 ORDER BY name`, hospitalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Department
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, d *Department) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE departments SET operator_roles = $2, operators = $3, min_operators = $4,
			available_beds = $5, operational = $6, location = $7, phone_extension = $8,
			color_code = $9, head_of_department = $10, updated_at = $11
		WHERE id = $1`,
		d.ID, roleStrings(d.OperatorRoles), d.Operators, d.MinOperators,
		d.AvailableBeds, d.Operational, d.Location, d.PhoneExtension,
		d.ColorCode, d.HeadOfDepartment, d.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
