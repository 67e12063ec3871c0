package application

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/example/hybrid-work/internal/persistence"
)

const notificationListLimit = 50

// NotificationService manages the per-user notification feed.
type NotificationService struct {
	repo        persistence.NotificationRepository
	publisher   Publisher
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(repo persistence.NotificationRepository, publisher Publisher, idGenerator func() string, now func() time.Time) *NotificationService {
	return NewNotificationServiceWithLogger(repo, publisher, idGenerator, now, nil)
}

// NewNotificationServiceWithLogger constructs a NotificationService with a specified logger.
func NewNotificationServiceWithLogger(repo persistence.NotificationRepository, publisher Publisher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *NotificationService {
	return &NotificationService{
		repo:        repo,
		publisher:   defaultPublisher(publisher),
		idGenerator: defaultIDGenerator(idGenerator),
		now:         defaultNow(now),
		logger:      defaultLogger(logger),
	}
}

func (s *NotificationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "NotificationService", operation, attrs...)
}

// Notify implements Notifier. The created notification is pushed to the recipient.
func (s *NotificationService) Notify(ctx context.Context, userID, kind string, payload map[string]any) (err error) {
	if s == nil {
		return nilService("NotificationService")
	}
	logger := s.loggerWith(ctx, "Notify", "recipient_id", userID, "kind", kind)
	defer func() {
		logOutcome(ctx, logger, err, "notification created")
	}()

	userID = strings.TrimSpace(userID)
	kind = strings.TrimSpace(kind)
	vErr := &ValidationError{}
	if userID == "" {
		vErr.add("userId", "userId is required")
	}
	if kind == "" {
		vErr.add("kind", "kind is required")
	}
	if err = vErr.orNil(); err != nil {
		return err
	}
	if payload == nil {
		payload = map[string]any{}
	}

	notification := persistence.Notification{
		ID:        s.idGenerator(),
		UserID:    userID,
		Kind:      kind,
		Payload:   payload,
		CreatedAt: s.now(),
	}
	if err = s.repo.CreateNotification(ctx, notification); err != nil {
		return mapRepoError(err)
	}
	s.publisher.Publish([]string{userID}, EventNotificationCreated, notification)
	return nil
}

// List returns the principal's newest notifications.
func (s *NotificationService) List(ctx context.Context, principal Principal) (notifications []persistence.Notification, err error) {
	if s == nil {
		return nil, nilService("NotificationService")
	}
	logger := s.loggerWith(ctx, "List", "principal_id", principal.UserID)
	defer func() {
		logOutcome(ctx, logger, err, "notifications listed", "count", len(notifications))
	}()

	if err = requirePrincipal(principal); err != nil {
		return nil, err
	}
	notifications, err = s.repo.ListNotifications(ctx, principal.UserID, notificationListLimit)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if notifications == nil {
		notifications = []persistence.Notification{}
	}
	return notifications, nil
}

// MarkRead marks one of the principal's notifications as read. Notifications
// of other users are reported as not found.
func (s *NotificationService) MarkRead(ctx context.Context, principal Principal, id string) (err error) {
	if s == nil {
		return nilService("NotificationService")
	}
	logger := s.loggerWith(ctx, "MarkRead", "principal_id", principal.UserID, "notification_id", id)
	defer func() {
		logOutcome(ctx, logger, err, "notification read")
	}()

	if err = requirePrincipal(principal); err != nil {
		return err
	}
	if err = s.repo.MarkNotificationRead(ctx, id, principal.UserID, s.now()); err != nil {
		return mapRepoError(err)
	}
	return nil
}
