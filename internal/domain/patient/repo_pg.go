package patient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/patientflow/internal/platform/db"
	"github.com/ehr/patientflow/pkg/apperr"
)

// ErrAlreadyRegistered is returned when the national id is already on file
// for the hospital.
var ErrAlreadyRegistered = apperr.Conflict("PATIENT_ALREADY_REGISTERED", "a patient with this national id is already registered")

var pg = goqu.Dialect("postgres")

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

var patientColList = []interface{}{
	"id", "hospital_id", "first_name", "last_name", "national_id", "date_of_birth", "gender",
	"phone", "email", "address", "blood_type", "allergies", "insurance_provider", "policy_number",
	"current_department", "status", "assigned_doctor", "created_at", "updated_at",
}

const patientCols = `id, hospital_id, first_name, last_name, national_id, date_of_birth, gender,
	phone, email, address, blood_type, allergies, insurance_provider, policy_number,
	current_department, status, assigned_doctor, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var (
		p                  Patient
		address, allergies []byte
	)
	err := row.Scan(&p.ID, &p.HospitalID, &p.FirstName, &p.LastName, &p.NationalID, &p.DateOfBirth, &p.Gender,
		&p.Phone, &p.Email, &address, &p.BloodType, &allergies, &p.InsuranceProvider, &p.PolicyNumber,
		&p.CurrentDepartment, &p.Status, &p.AssignedDoctor, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(address) > 0 && string(address) != "null" {
		p.Address = &Address{}
		if err := json.Unmarshal(address, p.Address); err != nil {
			return nil, fmt.Errorf("decode patient address: %w", err)
		}
	}
	if len(allergies) > 0 {
		if err := json.Unmarshal(allergies, &p.Allergies); err != nil {
			return nil, fmt.Errorf("decode patient allergies: %w", err)
		}
	}
	return &p, nil
}

func encodeJSON(p *Patient) (address, allergies []byte, err error) {
	if address, err = json.Marshal(p.Address); err != nil {
		return nil, nil, fmt.Errorf("encode patient address: %w", err)
	}
	if p.Allergies == nil {
		allergies = []byte("[]")
	} else if allergies, err = json.Marshal(p.Allergies); err != nil {
		return nil, nil, fmt.Errorf("encode patient allergies: %w", err)
	}
	return address, allergies, nil
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	address, allergies, err := encodeJSON(p)
	if err != nil {
		return err
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO patients (`+patientCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
		p.ID, p.HospitalID, p.FirstName, p.LastName, p.NationalID, p.DateOfBirth, p.Gender,
		p.Phone, p.Email, address, p.BloodType, allergies, p.InsuranceProvider, p.PolicyNumber,
		p.CurrentDepartment, p.Status, p.AssignedDoctor, p.CreatedAt, p.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return ErrAlreadyRegistered
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	address, allergies, err := encodeJSON(p)
	if err != nil {
		return err
	}
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET first_name = $2, last_name = $3, national_id = $4, date_of_birth = $5,
			gender = $6, phone = $7, email = $8, address = $9, blood_type = $10, allergies = $11,
			insurance_provider = $12, policy_number = $13, current_department = $14, status = $15,
			assigned_doctor = $16, updated_at = $17
		WHERE id = $1`,
		p.ID, p.FirstName, p.LastName, p.NationalID, p.DateOfBirth,
		p.Gender, p.Phone, p.Email, address, p.BloodType, allergies,
		p.InsuranceProvider, p.PolicyNumber, p.CurrentDepartment, p.Status,
		p.AssignedDoctor, p.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Patient, int, error) {
	base := pg.From("patients").Where(goqu.Ex{"hospital_id": f.HospitalID})
	if f.Status != "" {
		base = base.Where(goqu.Ex{"status": string(f.Status)})
	}
	if f.Department != "" {
		base = base.Where(goqu.Ex{"current_department": string(f.Department)})
	}

	countSQL, countArgs, err := base.Select(goqu.COUNT(goqu.Star())).Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.conn(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listSQL, listArgs, err := base.Select(patientColList...).
		Order(goqu.I("created_at").Desc()).
		Limit(uint(limit)).Offset(uint(offset)).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}
