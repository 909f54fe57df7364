package directory

import (
	"context"
	"errors"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/patientflow/internal/domain/hospital"
	"github.com/ehr/patientflow/internal/platform/db"
)

var pg = goqu.Dialect("postgres")

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const userCols = `id, hospital_id, role, department, first_name, last_name, email, active, created_at`

var userColList = []interface{}{"id", "hospital_id", "role", "department", "first_name", "last_name", "email", "active", "created_at"}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.HospitalID, &u.Role, &u.Department, &u.FirstName, &u.LastName, &u.Email, &u.Active, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repoPG) Create(ctx context.Context, u *User) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO users (`+userCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		u.ID, u.HospitalID, u.Role, u.Department, u.FirstName, u.LastName, u.Email, u.Active, u.CreatedAt)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
}

func (r *repoPG) SetDepartment(ctx context.Context, id uuid.UUID, dept *hospital.DepartmentName) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE users SET department = $2 WHERE id = $1`, id, dept)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *repoPG) Find(ctx context.Context, f Filter) ([]*User, error) {
	ds := pg.From("users").Select(userColList...)
	if f.HospitalID != uuid.Nil {
		ds = ds.Where(goqu.Ex{"hospital_id": f.HospitalID})
	}
	if f.Department != nil {
		ds = ds.Where(goqu.Ex{"department": string(*f.Department)})
	}
	if f.ActiveOnly {
		ds = ds.Where(goqu.Ex{"active": true})
	}
	if len(f.Roles) > 0 {
		roles := make([]string, len(f.Roles))
		for i, role := range f.Roles {
			roles[i] = string(role)
		}
		ds = ds.Where(goqu.C("role").In(roles))
	}

	query, args, err := ds.Order(goqu.I("created_at").Asc()).Prepared(true).ToSQL()
	if err != nil {
		return nil, err
	}
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *repoPG) Existing(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT id FROM users WHERE id = ANY($1) AND active`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
