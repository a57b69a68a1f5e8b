package notification

import (
	"context"

	"github.com/fkhayef/tripsettle/internal/apperr"
)

// Common errors
var (
	ErrNotificationNotFound = apperr.NotFound("notification not found")
	ErrNotRecipient         = apperr.Authorization("not the recipient of this notification")
)

// Store is the persistence the notification service needs
type Store interface {
	Create(ctx context.Context, recipientID int64, message string, entityType, entityID *string) (*Notification, error)
	GetByID(ctx context.Context, id int64) (*Notification, error)
	ListByRecipientID(ctx context.Context, recipientID int64, limit, offset int, unreadOnly bool) ([]*Notification, int, error)
	MarkAsRead(ctx context.Context, id int64) error
	MarkAllAsRead(ctx context.Context, recipientID int64) error
	GetUnreadCount(ctx context.Context, recipientID int64) (int, error)
}

// Service handles notification business logic
type Service struct {
	repo Store
}

// NewService creates a new notification service
func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

// Create creates a new notification
func (s *Service) Create(ctx context.Context, recipientID int64, message string, entityType EntityType, entityID string) (*Notification, error) {
	t := string(entityType)
	return s.repo.Create(ctx, recipientID, message, &t, &entityID)
}

// NotifySettlement tells recipientID about a settlement that involves them
func (s *Service) NotifySettlement(ctx context.Context, recipientID int64, message, settlementID string) error {
	_, err := s.Create(ctx, recipientID, message, EntitySettlement, settlementID)
	return err
}

// GetByID retrieves a notification by its ID
func (s *Service) GetByID(ctx context.Context, id int64) (*Notification, error) {
	notification, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if notification == nil {
		return nil, ErrNotificationNotFound
	}
	return notification, nil
}

// ListByRecipientID retrieves a page of notifications for a user
func (s *Service) ListByRecipientID(ctx context.Context, recipientID int64, page, perPage int, unreadOnly bool) ([]*Notification, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	offset := (page - 1) * perPage
	return s.repo.ListByRecipientID(ctx, recipientID, perPage, offset, unreadOnly)
}

// MarkAsRead marks a notification as read
func (s *Service) MarkAsRead(ctx context.Context, id, userID int64) error {
	notification, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if notification.RecipientID != userID {
		return ErrNotRecipient
	}

	return s.repo.MarkAsRead(ctx, id)
}

// MarkAllAsRead marks all notifications as read for a user
func (s *Service) MarkAllAsRead(ctx context.Context, userID int64) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

// GetUnreadCount returns the count of unread notifications
func (s *Service) GetUnreadCount(ctx context.Context, userID int64) (int, error) {
	return s.repo.GetUnreadCount(ctx, userID)
}
