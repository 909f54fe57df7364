package audit

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

const entryCols = `seq, hospital_id, patient_id, actor_id, action, detail, prev_hash, hash, at`

func scanEntry(row pgx.Row) (*Entry, error) {
	var (
		e      Entry
		detail []byte
	)
	if err := row.Scan(&e.Seq, &e.HospitalID, &e.PatientID, &e.Actor, &e.Action, &detail, &e.PrevHash, &e.Hash, &e.At); err != nil {
		return nil, err
	}
	if len(detail) > 0 && string(detail) != "null" {
		if err := json.Unmarshal(detail, &e.Detail); err != nil {
			return nil, fmt.Errorf("decode audit detail: %w", err)
		}
	}
	return &e, nil
}

// Append serialises writers per hospital with a transaction-scoped advisory
// lock so sequence numbers stay dense.
func (r *repoPG) Append(ctx context.Context, e *Entry) error {
	return db.RunInTx(ctx, r.pool, func(ctx context.Context) error {
		q := r.conn(ctx)
		if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('audit:' || $1::text))`, e.HospitalID); err != nil {
			return fmt.Errorf("lock audit chain: %w", err)
		}
		var (
			seq  int64
			hash string
		)
		err := q.QueryRow(ctx, `SELECT seq, hash FROM audit_log WHERE hospital_id = $1 ORDER BY seq DESC LIMIT 1`, e.HospitalID).
			Scan(&seq, &hash)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("read audit tail: %w", err)
		}
		e.Seal(seq, hash)
		detail, err := json.Marshal(e.Detail)
		if err != nil {
			return err
		}
		_, err = q.Exec(ctx, `
			INSERT INTO audit_log (`+entryCols+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			e.Seq, e.HospitalID, e.PatientID, e.Actor, e.Action, detail, e.PrevHash, e.Hash, e.At)
		return err
	})
}

func (r *repoPG) list(ctx context.Context, query string, args ...any) ([]*Entry, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *repoPG) ListByPatient(ctx context.Context, hospitalID, patientID uuid.UUID) ([]*Entry, error) {
	return r.list(ctx, `SELECT `+entryCols+` FROM audit_log WHERE hospital_id = $1 AND patient_id = $2 ORDER BY seq`, hospitalID, patientID)
}

func (r *repoPG) ListByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*Entry, error) {
	return r.list(ctx, `SELECT `+entryCols+` FROM audit_log WHERE hospital_id = $1 ORDER BY seq`, hospitalID)
}
