package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Service is the read side used by staff to page through and acknowledge
// their notifications.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) ListForUser(ctx context.Context, user uuid.UUID, unreadOnly bool, limit, offset int) ([]*Notification, int, error) {
	return s.repo.ListForUser(ctx, user, unreadOnly, limit, offset)
}

// MarkRead acknowledges a notification owned by user. Notifications addressed
// to someone else are reported as not found.
func (s *Service) MarkRead(ctx context.Context, id, user uuid.UUID) (*Notification, error) {
	return s.repo.MarkRead(ctx, id, user, s.now().UTC())
}
