package notification

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

	"github.com/ehr/patientflow/internal/platform/db"
)

var pg = goqu.Dialect("postgres")

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

var notifCols = []interface{}{"id", "hospital_id", "recipient_id", "sender_id", "message", "type", "payload", "read", "read_at", "created_at"}

const notifColList = `id, hospital_id, recipient_id, sender_id, message, type, payload, read, read_at, created_at`

func (r *repoPG) CreateBatch(ctx context.Context, ns []*Notification) error {
	if len(ns) == 0 {
		return nil
	}
	rows := make([]interface{}, 0, len(ns))
	for _, n := range ns {
		payload, err := json.Marshal(n.Payload)
		if err != nil {
			return fmt.Errorf("marshal %s payload: %w", n.Type, err)
		}
		rows = append(rows, goqu.Record{
			"id":           n.ID,
			"hospital_id":  n.HospitalID,
			"recipient_id": n.Recipient,
			"sender_id":    n.Sender,
			"message":      n.Message,
			"type":         string(n.Type),
			"payload":      string(payload),
			"read":         n.Read,
			"created_at":   n.CreatedAt,
		})
	}

	query, args, err := pg.Insert("notifications").Rows(rows...).
		OnConflict(goqu.DoNothing()).Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("build notification insert: %w", err)
	}
	_, err = r.conn(ctx).Exec(ctx, query, args...)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Notification, error) {
	return scanNotification(r.conn(ctx).QueryRow(ctx,
		`SELECT `+notifColList+` FROM notifications WHERE id = $1`, id))
}

func (r *repoPG) ListForUser(ctx context.Context, recipient uuid.UUID, unreadOnly bool, limit, offset int) ([]*Notification, int, error) {
	base := pg.From("notifications").Where(goqu.Ex{"recipient_id": recipient})
	if unreadOnly {
		base = base.Where(goqu.Ex{"read": false})
	}

	countSQL, countArgs, err := base.Select(goqu.COUNT(goqu.Star())).Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build notification count: %w", err)
	}
	var total int
	if err := r.conn(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listSQL, listArgs, err := base.Select(notifCols...).
		Order(goqu.I("created_at").Desc()).
		Limit(uint(limit)).Offset(uint(offset)).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build notification list: %w", err)
	}
	rows, err := r.conn(ctx).Query(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, n)
	}
	return out, total, rows.Err()
}

func (r *repoPG) MarkRead(ctx context.Context, id, recipient uuid.UUID, at time.Time) (*Notification, error) {
	return scanNotification(r.conn(ctx).QueryRow(ctx, `
		UPDATE notifications SET read = TRUE, read_at = COALESCE(read_at, $3)
		WHERE id = $1 AND recipient_id = $2
		RETURNING `+notifColList, id, recipient, at))
}

func scanNotification(row pgx.Row) (*Notification, error) {
	var (
		n       Notification
		typ     string
		payload []byte
	)
	err := row.Scan(&n.ID, &n.HospitalID, &n.Recipient, &n.Sender, &n.Message, &typ, &payload, &n.Read, &n.ReadAt, &n.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	n.Type = Type(typ)
	if n.Payload, err = DecodePayload(n.Type, payload); err != nil {
		return nil, err
	}
	return &n, nil
}
