package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"restaurant-hub/contract"
	"restaurant-hub/domain"
	"restaurant-hub/domain/event"
	"restaurant-hub/errors"
	"restaurant-hub/repositories"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// StaffRecipient addresses a notification to the whole staff.
const StaffRecipient = "staff"

type Broadcast struct {
	Title   string   `json:"title" validate:"required,max=200"`
	Message string   `json:"message" validate:"max=2000"`
	Kind    string   `json:"type" validate:"max=64"`
	Link    string   `json:"link,omitempty" validate:"omitempty,max=512"`
	Targets []string `json:"targetUserIds,omitempty" validate:"omitempty,dive,required"`
}

type INotificationService interface {
	MarkRead(ctx context.Context, issuer domain.Identity, ids []string) ([]string, error)
	Broadcast(ctx context.Context, issuer domain.Identity, broadcast Broadcast) ([]domain.Notification, error)
	List(ctx context.Context, viewer domain.Identity, limit int) ([]domain.Notification, error)
}

type NotificationService struct {
	log        *slog.Logger
	repository repositories.INotificationRepository
	publisher  contract.Publisher
	now        func() time.Time
}

func NewNotificationService(log *slog.Logger, repository repositories.INotificationRepository, publisher contract.Publisher) *NotificationService {
	return &NotificationService{
		log:        log,
		repository: repository,
		publisher:  publisher,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// MarkRead only reaches the notifications of the issuer. No ids marks
// every unread notification.
func (s *NotificationService) MarkRead(_ context.Context, issuer domain.Identity, ids []string) ([]string, error) {
	if !issuer.IsAuthenticated() {
		return nil, fmt.Errorf("%w: notifications need a signed in user", errors.ErrForbidden)
	}
	marked, err := s.repository.MarkRead(issuer.UserID, ids)
	if err != nil {
		return nil, fmt.Errorf("mark notifications read: %w", err)
	}
	if len(marked) == 0 {
		return marked, nil
	}
	s.publisher.Publish(event.New(event.NotificationsRead{
		RecipientID:     issuer.UserID,
		NotificationIDs: marked,
		ReadAt:          s.now(),
	}, domain.UserRoom(issuer.UserID)))
	return marked, nil
}

// Broadcast stores one notification per target and publishes it to the
// target's user room. Without targets the notification goes to the staff
// room only and is not stored.
func (s *NotificationService) Broadcast(_ context.Context, issuer domain.Identity, broadcast Broadcast) ([]domain.Notification, error) {
	if !issuer.IsStaff() {
		return nil, fmt.Errorf("%w: only staff may broadcast notifications", errors.ErrForbidden)
	}
	at := s.now()
	build := func(recipient string) domain.Notification {
		return domain.Notification{
			ID:          uuid.NewString(),
			RecipientID: recipient,
			Kind:        broadcast.Kind,
			Title:       broadcast.Title,
			Message:     broadcast.Message,
			Link:        broadcast.Link,
			CreatedAt:   at,
		}
	}

	targets := lo.Uniq(broadcast.Targets)
	if len(targets) == 0 {
		notification := build(StaffRecipient)
		s.publisher.Publish(event.New(event.NotificationCreated{Notification: notification}, domain.StaffRoom()))
		return []domain.Notification{notification}, nil
	}

	sent := make([]domain.Notification, 0, len(targets))
	for _, target := range targets {
		notification := build(target)
		if err := s.repository.SaveNotification(notification); err != nil {
			return sent, fmt.Errorf("save notification for %s: %w", target, err)
		}
		s.publisher.Publish(event.New(event.NotificationCreated{Notification: notification}, domain.UserRoom(target)))
		sent = append(sent, notification)
	}
	s.log.Debug("Notifications broadcast", "count", len(sent))
	return sent, nil
}

func (s *NotificationService) List(_ context.Context, viewer domain.Identity, limit int) ([]domain.Notification, error) {
	if !viewer.IsAuthenticated() {
		return nil, fmt.Errorf("%w: notifications need a signed in user", errors.ErrUnauthenticated)
	}
	return s.repository.ListNotifications(viewer.UserID, limit)
}
