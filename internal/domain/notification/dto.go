package notification

import (
	"time"

	"github.com/cmlabs-hris/leave-portal-go/internal/pkg/validator"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 50
)

// ============= Request DTOs =============

// CreateNotificationRequest represents a request to create a notification
type CreateNotificationRequest struct {
	RecipientID    string
	SenderID       *string
	Title          string
	Message        string
	Severity       Severity
	Category       Category
	Priority       Priority
	ActionRequired bool
	Data           map[string]interface{}
}

// ToEntity builds an unread notification; ID and CreatedAt are left to the caller
func (r CreateNotificationRequest) ToEntity() *Notification {
	return &Notification{
		RecipientID:    r.RecipientID,
		SenderID:       r.SenderID,
		Title:          r.Title,
		Message:        r.Message,
		Severity:       r.Severity,
		Category:       r.Category,
		Priority:       r.Priority,
		ActionRequired: r.ActionRequired,
		Data:           r.Data,
		IsRead:         false,
	}
}

// MarkAsReadRequest represents a request to mark notifications as read
type MarkAsReadRequest struct {
	NotificationIDs []string `json:"notification_ids"`
}

func (r *MarkAsReadRequest) Validate() error {
	var errs validator.ValidationErrors

	if len(r.NotificationIDs) == 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "notification_ids",
			Message: "at least one notification id is required",
		})
	}
	for _, id := range r.NotificationIDs {
		if validator.IsEmpty(id) {
			errs = append(errs, validator.ValidationError{
				Field:   "notification_ids",
				Message: "notification ids must not be empty",
			})
			break
		}
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// ListFilter narrows a recipient's notification list
type ListFilter struct {
	Page           int
	Limit          int
	UnreadOnly     bool
	Severity       *Severity
	Category       *Category
	ActionRequired *bool
}

// Validate rejects unknown severities and categories and clamps paging
func (f *ListFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.Severity != nil && !f.Severity.IsValid() {
		errs = append(errs, validator.ValidationError{
			Field:   "severity",
			Message: "severity must be one of: info, success, warning, error",
		})
	}
	if f.Category != nil && !f.Category.IsValid() {
		errs = append(errs, validator.ValidationError{
			Field:   "category",
			Message: "category must be one of: leave, attendance, system, announcement",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	return nil
}

// ============= Response DTOs =============

// NotificationResponse represents a notification in API responses
type NotificationResponse struct {
	ID             string                 `json:"id"`
	Title          string                 `json:"title"`
	Message        string                 `json:"message"`
	Severity       Severity               `json:"severity"`
	Category       Category               `json:"category"`
	Priority       Priority               `json:"priority"`
	ActionRequired bool                   `json:"action_required"`
	Data           map[string]interface{} `json:"data,omitempty"`
	IsRead         bool                   `json:"is_read"`
	ReadAt         *time.Time             `json:"read_at,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}

// ToResponse converts a notification entity to its API representation
func (n *Notification) ToResponse() NotificationResponse {
	return NotificationResponse{
		ID:             n.ID,
		Title:          n.Title,
		Message:        n.Message,
		Severity:       n.Severity,
		Category:       n.Category,
		Priority:       n.Priority,
		ActionRequired: n.ActionRequired,
		Data:           n.Data,
		IsRead:         n.IsRead,
		ReadAt:         n.ReadAt,
		CreatedAt:      n.CreatedAt,
	}
}

// NotificationListResponse represents a paginated list of notifications
type NotificationListResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	TotalCount    int64                  `json:"total_count"`
	Page          int                    `json:"page"`
	Limit         int                    `json:"limit"`
	TotalPages    int                    `json:"total_pages"`
}

// UnreadCountResponse splits unread notifications by whether they need a reviewer's action
type UnreadCountResponse struct {
	UnreadCount    int `json:"unread_count"`
	ActionRequired int `json:"action_required"`
}

// SSETokenResponse represents the SSE token response
type SSETokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

// ============= SSE Event =============

// SSEEvent represents a Server-Sent Event
type SSEEvent struct {
	Event string               `json:"event"`
	Data  NotificationResponse `json:"data"`
}
