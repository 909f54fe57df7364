package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/patientflow/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const billingCols = `id, patient_id, hospital_id, billed_by, billing_date, due_date, items,
	subtotal, tax, discount, total_amount, amount_paid, balance, status,
	payment_method, receipt_number, notes, created_at, updated_at`

func scanRecord(row pgx.Row) (*Record, error) {
	var (
		rec   Record
		items []byte
	)
	err := row.Scan(&rec.ID, &rec.PatientID, &rec.HospitalID, &rec.BilledBy, &rec.BillingDate, &rec.DueDate, &items,
		&rec.Subtotal, &rec.Tax, &rec.Discount, &rec.TotalAmount, &rec.AmountPaid, &rec.Balance, &rec.Status,
		&rec.PaymentMethod, &rec.ReceiptNumber, &rec.Notes, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &rec.Items); err != nil {
		return nil, fmt.Errorf("decode billing items: %w", err)
	}
	return &rec, nil
}

func (r *repoPG) Create(ctx context.Context, rec *Record) error {
	items, err := json.Marshal(rec.Items)
	if err != nil {
		return fmt.Errorf("encode billing items: %w", err)
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO billing (id, patient_id, hospital_id, billed_by, billing_date, due_date, items,
			subtotal, tax, discount, total_amount, amount_paid, balance, status,
			payment_method, receipt_number, notes, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
		rec.ID, rec.PatientID, rec.HospitalID, rec.BilledBy, rec.BillingDate, rec.DueDate, items,
		rec.Subtotal, rec.Tax, rec.Discount, rec.TotalAmount, rec.AmountPaid, rec.Balance, rec.Status,
		rec.PaymentMethod, rec.ReceiptNumber, rec.Notes, rec.CreatedAt, rec.UpdatedAt)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	return scanRecord(r.conn(ctx).QueryRow(ctx, `SELECT `+billingCols+` FROM billing WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, rec *Record) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE billing SET amount_paid = $2, balance = $3, status = $4, payment_method = $5,
			receipt_number = $6, notes = $7, updated_at = $8
		WHERE id = $1`,
		rec.ID, rec.AmountPaid, rec.Balance, rec.Status, rec.PaymentMethod,
		rec.ReceiptNumber, rec.Notes, rec.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Record, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM billing WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+billingCols+` FROM billing WHERE patient_id = $1
		ORDER BY billing_date DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rec)
	}
	return items, total, rows.Err()
}
