package notification

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/patientflow/pkg/apperr"
)

var ErrNotFound = apperr.NotFound("NOTIFICATION_NOT_FOUND", "notification not found")

type Repository interface {
	// CreateBatch inserts notifications, skipping IDs that already exist.
	CreateBatch(ctx context.Context, ns []*Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*Notification, error)
	ListForUser(ctx context.Context, recipient uuid.UUID, unreadOnly bool, limit, offset int) ([]*Notification, int, error)
	// MarkRead sets the read flag on a recipient's notification. The first
	// read time is kept on repeated calls.
	MarkRead(ctx context.Context, id, recipient uuid.UUID, at time.Time) (*Notification, error)
}
