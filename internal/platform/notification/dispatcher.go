package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/patientflow/internal/domain/hospital"
	"github.com/ehr/patientflow/internal/platform/websocket"
	"github.com/ehr/patientflow/pkg/retry"
)

// Directory expands recipient sets into user IDs.
type Directory interface {
	FindUsersByDepartment(ctx context.Context, hospitalID uuid.UUID, dept hospital.DepartmentName, roles ...hospital.Role) ([]uuid.UUID, error)
	FindUsersByHospital(ctx context.Context, hospitalID uuid.UUID) ([]uuid.UUID, error)
	// ExistingUsers returns the subset of ids that are known users.
	ExistingUsers(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
}

// Notifier is what patient flow uses to raise alerts.
type Notifier interface {
	Notify(ctx context.Context, msg Message) Delivery
}

// Dispatcher persists one notification per resolved recipient and pushes it
// to the recipient's realtime topic.
type Dispatcher struct {
	repo   Repository
	dir    Directory
	pub    websocket.EventPublisher
	queue  Queue
	retry  retry.Config
	logger zerolog.Logger
	now    func() time.Time
}

func NewDispatcher(repo Repository, dir Directory, pub websocket.EventPublisher, queue Queue, cfg retry.Config, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		repo:   repo,
		dir:    dir,
		pub:    pub,
		queue:  queue,
		retry:  cfg,
		logger: logger.With().Str("component", "notification").Logger(),
		now:    time.Now,
	}
}

// Notify attempts delivery and queues the message for retry on failure. It
// never fails the caller.
func (d *Dispatcher) Notify(ctx context.Context, msg Message) Delivery {
	if msg.Payload == nil {
		d.logger.Error().Str("text", msg.Text).Msg("dropping notification without payload")
		return Delivery{MessageID: msg.ID}
	}
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = d.now().UTC()
	}

	n, err := d.Deliver(ctx, msg)
	if err == nil {
		return Delivery{MessageID: msg.ID, Recipients: n}
	}

	d.logger.Warn().Err(err).
		Str("message_id", msg.ID.String()).
		Str("type", string(msg.Type())).
		Msg("notification delivery failed, queueing retry")

	job := Job{Message: msg, Attempts: 1, NotBefore: d.now().Add(d.retry.Delay(1)), LastError: err.Error()}
	// The request context may be cancelled once the response is written.
	if qerr := d.queue.Enqueue(context.WithoutCancel(ctx), job); qerr != nil {
		d.logger.Error().Err(qerr).Str("message_id", msg.ID.String()).Msg("notification dropped, retry queue unavailable")
		return Delivery{MessageID: msg.ID}
	}
	return Delivery{MessageID: msg.ID, Queued: true}
}

// Deliver resolves recipients, stores their notifications and publishes them.
// It is safe to call again for the same message.
func (d *Dispatcher) Deliver(ctx context.Context, msg Message) (int, error) {
	recipients, err := d.resolve(ctx, msg)
	if err != nil {
		return 0, fmt.Errorf("resolve recipients: %w", err)
	}
	if len(recipients) == 0 {
		d.logger.Debug().Str("message_id", msg.ID.String()).Msg("notification has no recipients")
		return 0, nil
	}

	batch := make([]*Notification, 0, len(recipients))
	for _, r := range recipients {
		batch = append(batch, &Notification{
			ID:         notificationID(msg.ID, r),
			HospitalID: msg.HospitalID,
			Recipient:  r,
			Sender:     msg.Sender,
			Message:    msg.Text,
			Type:       msg.Type(),
			Payload:    msg.Payload,
			CreatedAt:  msg.CreatedAt,
		})
	}
	if err := d.repo.CreateBatch(ctx, batch); err != nil {
		return 0, fmt.Errorf("store notifications: %w", err)
	}

	for _, n := range batch {
		d.publish(ctx, n)
	}
	return len(batch), nil
}

func (d *Dispatcher) publish(ctx context.Context, n *Notification) {
	if d.pub == nil {
		return
	}
	data, err := json.Marshal(n)
	if err != nil {
		d.logger.Error().Err(err).Msg("marshal notification event")
		return
	}
	event := websocket.Event{
		Type:      string(n.Type),
		Topic:     websocket.UserTopic(n.Recipient.String()),
		Timestamp: n.CreatedAt,
		Data:      data,
	}
	if err := d.pub.Publish(ctx, event); err != nil {
		d.logger.Warn().Err(err).Str("notification_id", n.ID.String()).Msg("realtime publish failed")
	}
}

func (d *Dispatcher) resolve(ctx context.Context, msg Message) ([]uuid.UUID, error) {
	var (
		ids []uuid.UUID
		err error
	)
	switch {
	case msg.To.Hospital:
		ids, err = d.dir.FindUsersByHospital(ctx, msg.HospitalID)
	case msg.To.Department != "":
		ids, err = d.dir.FindUsersByDepartment(ctx, msg.HospitalID, msg.To.Department, msg.To.Roles...)
	default:
		ids, err = d.dir.ExistingUsers(ctx, dedupe(msg.To.Users))
	}
	if err != nil {
		return nil, err
	}
	return dedupe(ids), nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
