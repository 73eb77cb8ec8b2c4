package notification

import (
	"context"
)

// Repository defines the notification repository interface
type Repository interface {
	Create(ctx context.Context, notification *Notification) error
	CreateBatch(ctx context.Context, notifications []*Notification) error
	GetByID(ctx context.Context, id string) (*Notification, error)
	List(ctx context.Context, recipientID string, filter ListFilter) ([]*Notification, int64, error)
	CountUnread(ctx context.Context, recipientID string) (unread, actionRequired int, err error)
	MarkAsRead(ctx context.Context, ids []string, recipientID string) error
	// MarkAllAsRead limits itself to one category when category is non-nil
	MarkAllAsRead(ctx context.Context, recipientID string, category *Category) error
	Delete(ctx context.Context, id string, recipientID string) error
}
