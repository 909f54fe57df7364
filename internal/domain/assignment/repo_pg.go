package assignment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

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

var assignmentColList = []interface{}{
	"id", "patient_id", "hospital_id", "department", "from_department", "to_department",
	"assigned_by", "assigned_to", "doctor_id", "status", "priority", "reason", "notes",
	"transfer_history", "created_at", "assigned_at", "completed_at", "updated_at",
}

const assignmentCols = `id, patient_id, hospital_id, department, from_department, to_department,
	assigned_by, assigned_to, doctor_id, status, priority, reason, notes,
	transfer_history, created_at, assigned_at, completed_at, updated_at`

// priorityOrder ranks CRITICAL highest so the queue can sort descending.
var priorityOrder = goqu.L(`CASE priority WHEN 'CRITICAL' THEN 4 WHEN 'HIGH' THEN 3 WHEN 'MEDIUM' THEN 2 ELSE 1 END`)

func statusStrings(ss []Status) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = string(s)
	}
	return out
}

func scanAssignment(row pgx.Row) (*Assignment, error) {
	var (
		a       Assignment
		history []byte
	)
	err := row.Scan(&a.ID, &a.PatientID, &a.HospitalID, &a.Department, &a.FromDepartment, &a.ToDepartment,
		&a.AssignedBy, &a.AssignedTo, &a.Doctor, &a.Status, &a.Priority, &a.Reason, &a.Notes,
		&history, &a.CreatedAt, &a.AssignedAt, &a.CompletedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.TransferHistory = []TransferEntry{}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &a.TransferHistory); err != nil {
			return nil, fmt.Errorf("decode transfer history: %w", err)
		}
	}
	return &a, nil
}

func (r *repoPG) collect(ctx context.Context, ds *goqu.SelectDataset) ([]*Assignment, error) {
	query, args, err := ds.Select(assignmentColList...).Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build assignment query: %w", err)
	}
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func historyJSON(a *Assignment) ([]byte, error) {
	if a.TransferHistory == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a.TransferHistory)
}

func (r *repoPG) Create(ctx context.Context, a *Assignment) error {
	history, err := historyJSON(a)
	if err != nil {
		return err
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO assignments (`+assignmentCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		a.ID, a.PatientID, a.HospitalID, a.Department, a.FromDepartment, a.ToDepartment,
		a.AssignedBy, a.AssignedTo, a.Doctor, a.Status, a.Priority, a.Reason, a.Notes,
		history, a.CreatedAt, a.AssignedAt, a.CompletedAt, a.UpdatedAt)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Assignment, error) {
	return scanAssignment(r.conn(ctx).QueryRow(ctx, `SELECT `+assignmentCols+` FROM assignments WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, a *Assignment) error {
	history, err := historyJSON(a)
	if err != nil {
		return err
	}
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE assignments SET assigned_to = $2, doctor_id = $3, status = $4, priority = $5,
			notes = $6, transfer_history = $7, assigned_at = $8, completed_at = $9, updated_at = $10
		WHERE id = $1`,
		a.ID, a.AssignedTo, a.Doctor, a.Status, a.Priority,
		a.Notes, history, a.AssignedAt, a.CompletedAt, a.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) OpenForPatient(ctx context.Context, patientID uuid.UUID) ([]*Assignment, error) {
	return r.collect(ctx, pg.From("assignments").
		Where(goqu.Ex{"patient_id": patientID, "status": statusStrings(OpenStatuses)}).
		Order(goqu.I("created_at").Desc()))
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Assignment, error) {
	return r.collect(ctx, pg.From("assignments").
		Where(goqu.Ex{"patient_id": patientID}).
		Order(goqu.I("created_at").Desc()))
}

func (r *repoPG) Queue(ctx context.Context, hospitalID uuid.UUID, dept hospital.DepartmentName) ([]*Assignment, error) {
	return r.collect(ctx, pg.From("assignments").
		Where(goqu.Ex{
			"hospital_id": hospitalID,
			"department":  string(dept),
			"status":      statusStrings(QueueStatuses),
		}).
		Order(priorityOrder.Desc(), goqu.I("created_at").Asc()))
}

func (r *repoPG) PendingTransfers(ctx context.Context, hospitalID uuid.UUID, dept hospital.DepartmentName) ([]*Assignment, error) {
	return r.collect(ctx, pg.From("assignments").
		Where(goqu.Ex{
			"hospital_id":   hospitalID,
			"to_department": string(dept),
			"status":        string(StatusTransferPending),
		}).
		Order(goqu.I("created_at").Asc()))
}

func (r *repoPG) CloseOpenForPatient(ctx context.Context, patientID uuid.UUID, at time.Time) (int, error) {
	query, args, err := pg.Update("assignments").
		Set(goqu.Record{"status": string(StatusCompleted), "completed_at": at, "updated_at": at}).
		Where(goqu.Ex{"patient_id": patientID, "status": statusStrings(OpenStatuses)}).
		Prepared(true).ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build close query: %w", err)
	}
	tag, err := r.conn(ctx).Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *repoPG) CountByStatus(ctx context.Context, hospitalID uuid.UUID, dept hospital.DepartmentName) (map[Status]int, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT status, COUNT(*) FROM assignments
		WHERE hospital_id = $1 AND department = $2
		GROUP BY status`, hospitalID, dept)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[Status]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[Status(status)] = n
	}
	return out, rows.Err()
}
