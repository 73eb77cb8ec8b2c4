package notification

import (
	"context"

	"github.com/cmlabs-hris/leave-portal-go/internal/domain/auth"
)

// Service defines the notification service interface
type Service interface {
	// QueueNotification hands a notification to the background writers
	QueueNotification(ctx context.Context, req CreateNotificationRequest) error

	// Inbox operations always act on the actor's own notifications
	List(ctx context.Context, actor auth.Actor, filter ListFilter) (*NotificationListResponse, error)
	UnreadCount(ctx context.Context, actor auth.Actor) (UnreadCountResponse, error)
	MarkAsRead(ctx context.Context, actor auth.Actor, req MarkAsReadRequest) error
	MarkAllAsRead(ctx context.Context, actor auth.Actor, category *Category) error
	Delete(ctx context.Context, actor auth.Actor, notificationID string) error

	Subscribe(ctx context.Context, userID string) (<-chan SSEEvent, func())

	Stop()
}
