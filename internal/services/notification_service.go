package services

import (
	"context"
	"encoding/json"

	"kaamsetu_backend/internal/logger"
	"kaamsetu_backend/internal/models"
	"kaamsetu_backend/internal/repositories"
	"kaamsetu_backend/internal/services/dto"
	"kaamsetu_backend/pkg/apperrors"

	"gorm.io/datatypes"
)

// Pusher delivers a payload to every live connection of a user. Push must
// not block and must swallow delivery failures: durability is the
// notification row's job, not the channel's.
type Pusher interface {
	Push(userID string, payload any)
}

type NotificationService interface {
	// Enqueue persists the notification and pushes it to live connections.
	// data carries the deep-link payload (job_id, room_id) alongside the
	// human-readable link.
	Enqueue(ctx context.Context, recipientID, title, message string, link *string, senderID *string, data map[string]string) error
	List(ctx context.Context, userID string, page, pageSize int) (*dto.NotificationListResponse, error)
	ListUnread(ctx context.Context, userID string) ([]*dto.NotificationResponse, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
	MarkAllRead(ctx context.Context, userID string) error
}

type notificationService struct {
	notificationRepo repositories.NotificationRepository
	pusher           Pusher
}

func NewNotificationService(notificationRepo repositories.NotificationRepository, pusher Pusher) NotificationService {
	return &notificationService{
		notificationRepo: notificationRepo,
		pusher:           pusher,
	}
}

func (s *notificationService) Enqueue(ctx context.Context, recipientID, title, message string, link *string, senderID *string, data map[string]string) error {
	notification := &models.Notification{
		UserID:   recipientID,
		SenderID: senderID,
		Title:    title,
		Message:  message,
		Link:     link,
		Data:     marshalNotificationData(data),
		IsRead:   false,
	}

	if err := s.notificationRepo.Create(ctx, notification); err != nil {
		return apperrors.InternalError(err)
	}

	// Best-effort real-time delivery; an offline recipient just reads the
	// row later.
	if s.pusher != nil {
		s.pusher.Push(recipientID, buildNotificationResponse(notification))
	}

	return nil
}

func (s *notificationService) List(ctx context.Context, userID string, page, pageSize int) (*dto.NotificationListResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	notifications, total, err := s.notificationRepo.ListByUser(ctx, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	responses := make([]*dto.NotificationResponse, 0, len(notifications))
	for i := range notifications {
		responses = append(responses, buildNotificationResponse(&notifications[i]))
	}

	return &dto.NotificationListResponse{
		Notifications: responses,
		Total:         total,
		Page:          page,
		PageSize:      pageSize,
	}, nil
}

func (s *notificationService) ListUnread(ctx context.Context, userID string) ([]*dto.NotificationResponse, error) {
	notifications, err := s.notificationRepo.ListUnread(ctx, userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	responses := make([]*dto.NotificationResponse, 0, len(notifications))
	for i := range notifications {
		responses = append(responses, buildNotificationResponse(&notifications[i]))
	}
	return responses, nil
}

func (s *notificationService) CountUnread(ctx context.Context, userID string) (int64, error) {
	count, err := s.notificationRepo.CountUnread(ctx, userID)
	if err != nil {
		return 0, apperrors.InternalError(err)
	}
	return count, nil
}

func (s *notificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	err := s.notificationRepo.MarkRead(ctx, userID, notificationID)
	if err == repositories.ErrNotificationNotFound {
		return apperrors.NotFound("notification")
	}
	if err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) error {
	if err := s.notificationRepo.MarkAllRead(ctx, userID); err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

// notify is the fire-and-forget variant used by the other services: a
// failed enqueue is logged, never propagated into the triggering state
// transition.
func notify(ctx context.Context, n NotificationService, recipientID, title, message string, link *string, senderID *string, data map[string]string) {
	if err := n.Enqueue(ctx, recipientID, title, message, link, senderID, data); err != nil {
		logger.Warn("notification enqueue failed", "recipient", recipientID, "title", title, "error", err)
	}
}

func marshalNotificationData(data map[string]string) datatypes.JSON {
	if len(data) == 0 {
		return nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

func buildNotificationResponse(n *models.Notification) *dto.NotificationResponse {
	return &dto.NotificationResponse{
		ID:        n.ID,
		UserID:    n.UserID,
		SenderID:  n.SenderID,
		Title:     n.Title,
		Message:   n.Message,
		Link:      n.Link,
		Data:      n.Data,
		IsRead:    n.IsRead,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}
